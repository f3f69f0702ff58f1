package service

import (
	"context"
	"math/rand/v2"

	"apteka/internal/repository"
)

// maxRestock верхняя (исключённая) граница случайного пополнения за день
const maxRestock = 20

// SimulationService моделирует смену календарного дня: заказы с датой
// раньше новой удаляются без возврата остатка (просроченный заказ теряет
// резерв — в отличие от явного удаления), каждый препарат пополняется
// случайным количеством из [0, maxRestock).
type SimulationService struct {
	drugs   repository.DrugRepository
	orders  repository.OrderRepository
	items   repository.ItemRepository
	sim     repository.SimulationRepository
	tx      repository.TxManager
	restock func() int
}

// NewSimulationService создаёт симулятор; restock == nil включает
// стандартный равномерный генератор
func NewSimulationService(
	drugs repository.DrugRepository,
	orders repository.OrderRepository,
	items repository.ItemRepository,
	sim repository.SimulationRepository,
	tx repository.TxManager,
	restock func() int,
) *SimulationService {
	if restock == nil {
		restock = func() int { return rand.IntN(maxRestock) }
	}
	return &SimulationService{drugs: drugs, orders: orders, items: items, sim: sim, tx: tx, restock: restock}
}

// CurrentDate возвращает сохранённую симулируемую дату
func (s *SimulationService) CurrentDate(ctx context.Context) (string, error) {
	return s.sim.CurrentDate(ctx)
}

// AdvanceDay продвигает симулируемую дату: чистка просроченных заказов,
// пополнение склада, запись новой даты — одной транзакцией.
func (s *SimulationService) AdvanceDay(ctx context.Context, newDate string) error {
	if !validDate(newDate) {
		return ErrInvalidInput
	}
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		expired, err := s.orders.ListDatedBefore(ctx, newDate)
		if err != nil {
			return err
		}
		for _, o := range expired {
			if err := s.items.DeleteByOrder(ctx, o.ID); err != nil {
				return err
			}
			if err := s.orders.Delete(ctx, o.ID); err != nil {
				return err
			}
		}

		drugs, err := s.drugs.List(ctx)
		if err != nil {
			return err
		}
		for _, d := range drugs {
			amount := s.restock()
			if amount == 0 {
				continue
			}
			if err := s.drugs.AdjustStock(ctx, d.ID, amount); err != nil {
				return err
			}
		}

		return s.sim.SetCurrentDate(ctx, newDate)
	})
}

package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"apteka/internal/domain"
	"apteka/internal/repository"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrPrescriptionRequired = errors.New("prescription required")
)

const dateLayout = "2006-01-02"

// validDate принимает только каноничную форму YYYY-MM-DD: Parse пропускает
// "2024-1-5", а лексикографический порядок дат держится на нулях слева
func validDate(s string) bool {
	t, err := time.Parse(dateLayout, s)
	return err == nil && t.Format(dateLayout) == s
}

// OrderService реализует жизненный цикл заказа и перекрёстные правила:
// резервирование остатков, рецептурный контроль, слияние одинаковых позиций.
// Каждая мутация выполняется в одной транзакции.
type OrderService struct {
	drugs  repository.DrugRepository
	orders repository.OrderRepository
	items  repository.ItemRepository
	sim    repository.SimulationRepository
	tx     repository.TxManager
}

func NewOrderService(
	drugs repository.DrugRepository,
	orders repository.OrderRepository,
	items repository.ItemRepository,
	sim repository.SimulationRepository,
	tx repository.TxManager,
) *OrderService {
	return &OrderService{drugs: drugs, orders: orders, items: items, sim: sim, tx: tx}
}

// CreateOrder создаёт пустой заказ. Дата раньше симулируемой текущей
// отклоняется. Пустой id заменяется сгенерированным.
func (s *OrderService) CreateOrder(ctx context.Context, id, customerName, orderDate string, prescriptionForDrugIDs []string) (*domain.Order, error) {
	if customerName == "" || !validDate(orderDate) {
		return nil, ErrInvalidInput
	}
	if id == "" {
		id = uuid.NewString()
	}

	// set semantics: дубликаты в списке рецептов не имеют смысла
	rxIDs := make([]string, 0, len(prescriptionForDrugIDs))
	seen := make(map[string]bool, len(prescriptionForDrugIDs))
	for _, drugID := range prescriptionForDrugIDs {
		if drugID == "" || seen[drugID] {
			continue
		}
		seen[drugID] = true
		rxIDs = append(rxIDs, drugID)
	}

	o := &domain.Order{
		ID:                     id,
		CustomerName:           customerName,
		OrderDate:              orderDate,
		PrescriptionForDrugIDs: rxIDs,
		Items:                  []domain.OrderItem{},
	}
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		today, err := s.sim.CurrentDate(ctx)
		if err != nil {
			return err
		}
		if orderDate < today {
			return ErrInvalidInput
		}
		return s.orders.Create(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// List возвращает все заказы с вложенными позициями
func (s *OrderService) List(ctx context.Context) ([]domain.Order, error) {
	return s.orders.List(ctx)
}

// DeleteOrder возвращает количество каждой позиции на склад и удаляет
// заказ вместе с позициями. Всё или ничего.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID string) error {
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.orders.GetByID(ctx, orderID); err != nil {
			return err
		}
		items, err := s.items.ListByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		for _, it := range items {
			if err := s.drugs.AdjustStock(ctx, it.DrugID, it.Quantity); err != nil {
				return err
			}
		}
		if err := s.items.DeleteByOrder(ctx, orderID); err != nil {
			return err
		}
		return s.orders.Delete(ctx, orderID)
	})
}

// AddItem резервирует препарат под заказом: списывает остаток и либо
// увеличивает существующую позицию того же препарата, либо создаёт новую.
// Достаточность остатка проверяется раньше рецептурного правила.
func (s *OrderService) AddItem(ctx context.Context, orderID, drugID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidInput
	}
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		order, err := s.orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		drug, err := s.drugs.GetByID(ctx, drugID)
		if err != nil {
			return err
		}
		if quantity > drug.Stock {
			return ErrInsufficientStock
		}
		if drug.RequiresPrescription && !order.HasPrescriptionFor(drug.ID) {
			return ErrPrescriptionRequired
		}

		if err := s.drugs.AdjustStock(ctx, drugID, -quantity); err != nil {
			return err
		}
		existing, err := s.items.GetByDrug(ctx, orderID, drugID)
		switch {
		case err == nil:
			return s.items.AddQuantity(ctx, existing.ID, quantity)
		case errors.Is(err, repository.ErrNotFound):
			return s.items.Create(ctx, &domain.OrderItem{
				ID:       uuid.NewString(),
				OrderID:  orderID,
				DrugID:   drugID,
				Quantity: quantity,
			})
		default:
			return err
		}
	})
}

// UpdateQuantity изменяет количество позиции на дельту. Увеличение
// дополнительно резервирует остаток; уменьшение возвращает |delta| на склад,
// а позиция с неположительным итогом удаляется. Рецепт при уменьшении
// не перепроверяется.
func (s *OrderService) UpdateQuantity(ctx context.Context, orderID, itemID string, delta int) error {
	if delta == 0 {
		return ErrInvalidInput
	}
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		it, err := s.items.GetByID(ctx, orderID, itemID)
		if err != nil {
			return err
		}
		drug, err := s.drugs.GetByID(ctx, it.DrugID)
		if err != nil {
			return err
		}

		if delta > 0 {
			if drug.Stock < delta {
				return ErrInsufficientStock
			}
			if err := s.drugs.AdjustStock(ctx, drug.ID, -delta); err != nil {
				return err
			}
			return s.items.AddQuantity(ctx, it.ID, delta)
		}

		if err := s.drugs.AdjustStock(ctx, drug.ID, -delta); err != nil {
			return err
		}
		if it.Quantity+delta <= 0 {
			return s.items.Delete(ctx, it.ID)
		}
		return s.items.AddQuantity(ctx, it.ID, delta)
	})
}

// RemoveItem возвращает всё количество позиции на склад и удаляет её
func (s *OrderService) RemoveItem(ctx context.Context, orderID, itemID string) error {
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		it, err := s.items.GetByID(ctx, orderID, itemID)
		if err != nil {
			return err
		}
		if err := s.drugs.AdjustStock(ctx, it.DrugID, it.Quantity); err != nil {
			return err
		}
		return s.items.Delete(ctx, it.ID)
	})
}

// MoveItem переносит позицию под другой заказ. Остаток не меняется:
// количество либо сливается с одноимённой позицией цели, либо позиция
// перевешивается целиком.
func (s *OrderService) MoveItem(ctx context.Context, itemID, sourceOrderID, targetOrderID string) error {
	if sourceOrderID == targetOrderID {
		return ErrInvalidInput
	}
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		it, err := s.items.GetByID(ctx, sourceOrderID, itemID)
		if err != nil {
			return err
		}
		target, err := s.orders.GetByID(ctx, targetOrderID)
		if err != nil {
			return err
		}
		drug, err := s.drugs.GetByID(ctx, it.DrugID)
		if err != nil {
			return err
		}
		if drug.RequiresPrescription && !target.HasPrescriptionFor(drug.ID) {
			return ErrPrescriptionRequired
		}

		existing, err := s.items.GetByDrug(ctx, targetOrderID, it.DrugID)
		switch {
		case err == nil:
			if err := s.items.AddQuantity(ctx, existing.ID, it.Quantity); err != nil {
				return err
			}
			return s.items.Delete(ctx, it.ID)
		case errors.Is(err, repository.ErrNotFound):
			return s.items.SetOrder(ctx, it.ID, targetOrderID)
		default:
			return err
		}
	})
}

package repository

import (
	"context"
	"errors"

	"apteka/internal/domain"
)

// ErrNotFound возвращается, когда сущность не найдена
var ErrNotFound = errors.New("not found")

// DrugRepository интерфейс репозитория препаратов.
// AdjustStock применяет дельту к остатку; вызывающий обязан заранее
// проверить достаточность остатка для отрицательной дельты.
type DrugRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Drug, error)
	List(ctx context.Context) ([]domain.Drug, error)
	AdjustStock(ctx context.Context, id string, delta int) error
}

// OrderRepository интерфейс репозитория заказов
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	// List возвращает заказы с вложенными позициями
	List(ctx context.Context) ([]domain.Order, error)
	// ListDatedBefore возвращает заказы с датой строго раньше указанной
	ListDatedBefore(ctx context.Context, date string) ([]domain.Order, error)
	Delete(ctx context.Context, id string) error
}

// ItemRepository интерфейс репозитория позиций заказа
type ItemRepository interface {
	Create(ctx context.Context, it *domain.OrderItem) error
	// GetByID ищет позицию строго внутри указанного заказа
	GetByID(ctx context.Context, orderID, itemID string) (*domain.OrderItem, error)
	// GetByDrug ищет позицию заказа по препарату (для слияния одинаковых позиций)
	GetByDrug(ctx context.Context, orderID, drugID string) (*domain.OrderItem, error)
	ListByOrder(ctx context.Context, orderID string) ([]domain.OrderItem, error)
	AddQuantity(ctx context.Context, itemID string, delta int) error
	// SetOrder переносит позицию под другой заказ
	SetOrder(ctx context.Context, itemID, orderID string) error
	Delete(ctx context.Context, itemID string) error
	DeleteByOrder(ctx context.Context, orderID string) error
}

// SimulationRepository хранит симулируемую текущую дату (одна строка)
type SimulationRepository interface {
	CurrentDate(ctx context.Context) (string, error)
	SetCurrentDate(ctx context.Context, date string) error
}

// TxManager абстракция транзакции: fn выполняется атомарно,
// репозитории внутри fn работают через транзакцию из контекста.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

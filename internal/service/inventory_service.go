package service

import (
	"context"

	"apteka/internal/domain"
	"apteka/internal/repository"
)

// InventoryService чтение каталога препаратов. Порог «мало на складе»
// сервер не вычисляет — это забота представления.
type InventoryService struct {
	drugs repository.DrugRepository
}

func NewInventoryService(drugs repository.DrugRepository) *InventoryService {
	return &InventoryService{drugs: drugs}
}

func (s *InventoryService) List(ctx context.Context) ([]domain.Drug, error) {
	return s.drugs.List(ctx)
}

func (s *InventoryService) GetByID(ctx context.Context, id string) (*domain.Drug, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	return s.drugs.GetByID(ctx, id)
}

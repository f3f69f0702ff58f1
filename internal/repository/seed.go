package repository

import (
	"context"
	"fmt"

	"apteka/internal/domain"
)

// seedDrugs стартовый каталог препаратов
var seedDrugs = []domain.Drug{
	{ID: "d1", Name: "Аспирин 500мг", Stock: 100, RequiresPrescription: false},
	{ID: "d2", Name: "Амоксициллин 250мг", Stock: 20, RequiresPrescription: true},
	{ID: "d3", Name: "Ибупрофен 400мг", Stock: 50, RequiresPrescription: false},
	{ID: "d4", Name: "Аторвастатин 10мг", Stock: 15, RequiresPrescription: true},
	{ID: "d5", Name: "Метформин 500мг", Stock: 30, RequiresPrescription: true},
	{ID: "d6", Name: "Витамин С 1000мг", Stock: 200, RequiresPrescription: false},
	{ID: "d7", Name: "Лизиноприл 10мг", Stock: 10, RequiresPrescription: true},
	{ID: "d8", Name: "Парацетамол 500мг", Stock: 150, RequiresPrescription: false},
	{ID: "d9", Name: "Кларитромицин 500мг", Stock: 25, RequiresPrescription: true},
	{ID: "d10", Name: "Азитромицин 500мг", Stock: 40, RequiresPrescription: true},
	{ID: "d11", Name: "Цитрамон П", Stock: 200, RequiresPrescription: false},
	{ID: "d12", Name: "Активированный уголь", Stock: 300, RequiresPrescription: false},
	{ID: "d13", Name: "Бисопролол 5мг", Stock: 60, RequiresPrescription: true},
	{ID: "d14", Name: "Нимесил 100мг", Stock: 80, RequiresPrescription: true},
	{ID: "d15", Name: "Панкреатин 25ЕД", Stock: 120, RequiresPrescription: false},
	{ID: "d16", Name: "Левотироксин 50мкг", Stock: 45, RequiresPrescription: true},
	{ID: "d17", Name: "Омепразол 20мг", Stock: 90, RequiresPrescription: false},
	{ID: "d18", Name: "Флуконазол 150мг", Stock: 35, RequiresPrescription: true},
}

// Seed загружает каталог, если таблица препаратов пуста, и инициализирует
// симулируемую дату. Повторный вызов ничего не меняет.
func (s *SQLStore) Seed(ctx context.Context, currentDate string) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM drugs`).Scan(&count); err != nil {
		return fmt.Errorf("count drugs: %w", err)
	}
	if count == 0 {
		for _, d := range seedDrugs {
			_, err := s.db.ExecContext(ctx, `
				INSERT INTO drugs (id, name, stock, requires_prescription)
				VALUES (?, ?, ?, ?)`,
				d.ID, d.Name, d.Stock, d.RequiresPrescription)
			if err != nil {
				return fmt.Errorf("seed drug %s: %w", d.ID, err)
			}
		}
	}

	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM simulation`).Scan(&count); err != nil {
		return fmt.Errorf("count simulation: %w", err)
	}
	if count == 0 {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO simulation (id, sim_date) VALUES (1, ?)`, currentDate)
		if err != nil {
			return fmt.Errorf("seed simulation: %w", err)
		}
	}
	return nil
}

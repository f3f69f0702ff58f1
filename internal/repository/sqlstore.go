package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"apteka/internal/domain"
)

// SQLStore реализует хранилище поверх database/sql: каждая операция —
// отдельный запрос, атомарность обеспечивает TxManager. Репозитории заказов
// и позиций реализованы обёртками SQLOrders и SQLItems (ср. MemoryOrders).
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Ensure interfaces
var (
	_ DrugRepository       = (*SQLStore)(nil)
	_ SimulationRepository = (*SQLStore)(nil)
	_ TxManager            = (*SQLStore)(nil)
)

// querier покрывает и *sql.DB, и *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

func (s *SQLStore) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

// WithTransaction выполняет fn в одной транзакции; репозитории внутри fn
// находят её через контекст. Вложенный вызов продолжает внешнюю транзакцию.
func (s *SQLStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	return tx.Commit()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS drugs (
		id VARCHAR(64) PRIMARY KEY,
		name TEXT NOT NULL,
		stock INTEGER NOT NULL,
		requires_prescription INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id VARCHAR(64) PRIMARY KEY,
		customer_name TEXT NOT NULL,
		order_date VARCHAR(10) NOT NULL,
		prescription_drug_ids TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id VARCHAR(64) PRIMARY KEY,
		order_id VARCHAR(64) NOT NULL,
		drug_id VARCHAR(64) NOT NULL,
		quantity INTEGER NOT NULL,
		FOREIGN KEY (order_id) REFERENCES orders(id),
		FOREIGN KEY (drug_id) REFERENCES drugs(id)
	)`,
	`CREATE TABLE IF NOT EXISTS simulation (
		id INTEGER PRIMARY KEY,
		sim_date VARCHAR(10) NOT NULL
	)`,
}

// Migrate создаёт таблицы, если их ещё нет
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// DrugRepository implementation

func (s *SQLStore) GetByID(ctx context.Context, id string) (*domain.Drug, error) {
	var d domain.Drug
	err := s.q(ctx).QueryRowContext(ctx, `
		SELECT id, name, stock, requires_prescription
		FROM drugs WHERE id = ?`, id,
	).Scan(&d.ID, &d.Name, &d.Stock, &d.RequiresPrescription)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query drug: %w", err)
	}
	return &d, nil
}

func (s *SQLStore) List(ctx context.Context) ([]domain.Drug, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT id, name, stock, requires_prescription
		FROM drugs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query drugs: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Drug, 0)
	for rows.Next() {
		var d domain.Drug
		if err := rows.Scan(&d.ID, &d.Name, &d.Stock, &d.RequiresPrescription); err != nil {
			return nil, fmt.Errorf("scan drug: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLStore) AdjustStock(ctx context.Context, id string, delta int) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE drugs SET stock = stock + ? WHERE id = ?`, delta, id)
	if err != nil {
		return fmt.Errorf("adjust stock: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SimulationRepository implementation

func (s *SQLStore) CurrentDate(ctx context.Context) (string, error) {
	var date string
	err := s.q(ctx).QueryRowContext(ctx, `
		SELECT sim_date FROM simulation WHERE id = 1`).Scan(&date)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query simulation date: %w", err)
	}
	return date, nil
}

func (s *SQLStore) SetCurrentDate(ctx context.Context, date string) error {
	// строка создаётся в Seed; RowsAffected здесь не проверяем — MySQL
	// сообщает изменённые, а не совпавшие строки, и запись той же даты
	// выглядела бы как отсутствие строки
	_, err := s.q(ctx).ExecContext(ctx, `
		UPDATE simulation SET sim_date = ? WHERE id = 1`, date)
	if err != nil {
		return fmt.Errorf("update simulation date: %w", err)
	}
	return nil
}

// OrderRepository implementation on wrapper type

type SQLOrders struct{ store *SQLStore }

func NewSQLOrders(store *SQLStore) *SQLOrders { return &SQLOrders{store: store} }

var _ OrderRepository = (*SQLOrders)(nil)

func scanOrder(row interface{ Scan(...any) error }) (*domain.Order, error) {
	var o domain.Order
	var rxIDs string
	if err := row.Scan(&o.ID, &o.CustomerName, &o.OrderDate, &rxIDs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(rxIDs), &o.PrescriptionForDrugIDs); err != nil {
		return nil, fmt.Errorf("decode prescription ids: %w", err)
	}
	if o.PrescriptionForDrugIDs == nil {
		o.PrescriptionForDrugIDs = []string{}
	}
	o.Items = []domain.OrderItem{}
	return &o, nil
}

func (r *SQLOrders) Create(ctx context.Context, o *domain.Order) error {
	rxIDs, err := json.Marshal(o.PrescriptionForDrugIDs)
	if err != nil {
		return fmt.Errorf("encode prescription ids: %w", err)
	}
	_, err = r.store.q(ctx).ExecContext(ctx, `
		INSERT INTO orders (id, customer_name, order_date, prescription_drug_ids)
		VALUES (?, ?, ?, ?)`,
		o.ID, o.CustomerName, o.OrderDate, string(rxIDs))
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID возвращает строку заказа без позиций; позиции — через ItemRepository
func (r *SQLOrders) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	row := r.store.q(ctx).QueryRowContext(ctx, `
		SELECT id, customer_name, order_date, prescription_drug_ids
		FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	return o, nil
}

func (r *SQLOrders) list(ctx context.Context, where string, args ...any) ([]domain.Order, error) {
	rows, err := r.store.q(ctx).QueryContext(ctx, `
		SELECT id, customer_name, order_date, prescription_drug_ids
		FROM orders `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *SQLOrders) List(ctx context.Context) ([]domain.Order, error) {
	out, err := r.list(ctx, `ORDER BY order_date, id`)
	if err != nil {
		return nil, err
	}
	byOrder := make(map[string]int, len(out))
	for i := range out {
		byOrder[out[i].ID] = i
	}
	items, err := r.store.listItems(ctx, ``)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if i, ok := byOrder[it.OrderID]; ok {
			out[i].Items = append(out[i].Items, it)
		}
	}
	return out, nil
}

func (r *SQLOrders) ListDatedBefore(ctx context.Context, date string) ([]domain.Order, error) {
	return r.list(ctx, `WHERE order_date < ? ORDER BY id`, date)
}

func (r *SQLOrders) Delete(ctx context.Context, id string) error {
	res, err := r.store.q(ctx).ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ItemRepository implementation on wrapper type

type SQLItems struct{ store *SQLStore }

func NewSQLItems(store *SQLStore) *SQLItems { return &SQLItems{store: store} }

var _ ItemRepository = (*SQLItems)(nil)

func (r *SQLItems) Create(ctx context.Context, it *domain.OrderItem) error {
	_, err := r.store.q(ctx).ExecContext(ctx, `
		INSERT INTO order_items (id, order_id, drug_id, quantity)
		VALUES (?, ?, ?, ?)`,
		it.ID, it.OrderID, it.DrugID, it.Quantity)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func scanItemRow(row *sql.Row) (*domain.OrderItem, error) {
	var it domain.OrderItem
	err := row.Scan(&it.ID, &it.OrderID, &it.DrugID, &it.Quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}
	return &it, nil
}

func (r *SQLItems) GetByID(ctx context.Context, orderID, itemID string) (*domain.OrderItem, error) {
	return scanItemRow(r.store.q(ctx).QueryRowContext(ctx, `
		SELECT id, order_id, drug_id, quantity
		FROM order_items WHERE id = ? AND order_id = ?`, itemID, orderID))
}

func (r *SQLItems) GetByDrug(ctx context.Context, orderID, drugID string) (*domain.OrderItem, error) {
	return scanItemRow(r.store.q(ctx).QueryRowContext(ctx, `
		SELECT id, order_id, drug_id, quantity
		FROM order_items WHERE order_id = ? AND drug_id = ?`, orderID, drugID))
}

func (s *SQLStore) listItems(ctx context.Context, where string, args ...any) ([]domain.OrderItem, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT id, order_id, drug_id, quantity
		FROM order_items `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	out := make([]domain.OrderItem, 0)
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.DrugID, &it.Quantity); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *SQLItems) ListByOrder(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	return r.store.listItems(ctx, `WHERE order_id = ?`, orderID)
}

func (r *SQLItems) AddQuantity(ctx context.Context, itemID string, delta int) error {
	res, err := r.store.q(ctx).ExecContext(ctx, `
		UPDATE order_items SET quantity = quantity + ? WHERE id = ?`, delta, itemID)
	if err != nil {
		return fmt.Errorf("update item quantity: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLItems) SetOrder(ctx context.Context, itemID, orderID string) error {
	res, err := r.store.q(ctx).ExecContext(ctx, `
		UPDATE order_items SET order_id = ? WHERE id = ?`, orderID, itemID)
	if err != nil {
		return fmt.Errorf("move item: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLItems) Delete(ctx context.Context, itemID string) error {
	res, err := r.store.q(ctx).ExecContext(ctx, `DELETE FROM order_items WHERE id = ?`, itemID)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLItems) DeleteByOrder(ctx context.Context, orderID string) error {
	_, err := r.store.q(ctx).ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, orderID)
	if err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}
	return nil
}

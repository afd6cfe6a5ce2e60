// Package postgres implements the sales storage on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"barberpos/internal/sales"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is a Postgres-backed sales.Storage. Inside Tx the store is bound to
// a sql.Tx, so every operation issued through it joins the same transaction.
type Store struct {
	db *sql.DB // nil when bound to a transaction
	q  querier
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(30)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return New(db), nil
}

// New wraps an existing database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) FindUser(ctx context.Context, id int64) (*sales.User, error) {
	var u sales.User
	err := s.q.QueryRowContext(ctx,
		"SELECT id, first_name, last_name FROM users WHERE id = $1", id,
	).Scan(&u.ID, &u.FirstName, &u.LastName)
	if err == sql.ErrNoRows {
		return nil, sales.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) FindProduct(ctx context.Context, id int64) (*sales.Product, error) {
	var p sales.Product
	err := s.q.QueryRowContext(ctx,
		"SELECT id, name, stock FROM products WHERE id = $1", id,
	).Scan(&p.ID, &p.Name, &p.Stock)
	if err == sql.ErrNoRows {
		return nil, sales.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DebitStock performs the floor-checked decrement in one statement, so two
// concurrent registrations cannot drive stock negative.
func (s *Store) DebitStock(ctx context.Context, productID int64, qty decimal.Decimal) error {
	res, err := s.q.ExecContext(ctx,
		"UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2",
		productID, qty,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists bool
		if err := s.q.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)", productID,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return sales.ErrProductNotFound
		}
		return sales.ErrInsufficientStock
	}
	return nil
}

func (s *Store) ListSales(ctx context.Context) ([]*sales.Sale, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT id, sale_date, total_amount, status, user_id FROM sales ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*sales.Sale
	byID := map[int64]*sales.Sale{}
	for rows.Next() {
		var sale sales.Sale
		if err := rows.Scan(&sale.ID, &sale.SaleDate, &sale.TotalAmount, &sale.Status, &sale.UserID); err != nil {
			return nil, err
		}
		out = append(out, &sale)
		byID[sale.ID] = &sale
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	itemRows, err := s.q.QueryContext(ctx,
		"SELECT id, sale_id, product_id, quantity, unit_price, subtotal FROM sale_items ORDER BY sale_id, id")
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var item sales.SaleItem
		if err := itemRows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.Subtotal); err != nil {
			return nil, err
		}
		if sale, ok := byID[item.SaleID]; ok {
			sale.Items = append(sale.Items, &item)
		}
	}
	return out, itemRows.Err()
}

func (s *Store) FindSale(ctx context.Context, id int64) (*sales.Sale, error) {
	var sale sales.Sale
	err := s.q.QueryRowContext(ctx,
		"SELECT id, sale_date, total_amount, status, user_id FROM sales WHERE id = $1", id,
	).Scan(&sale.ID, &sale.SaleDate, &sale.TotalAmount, &sale.Status, &sale.UserID)
	if err == sql.ErrNoRows {
		return nil, sales.ErrSaleNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(ctx,
		"SELECT id, sale_id, product_id, quantity, unit_price, subtotal FROM sale_items WHERE sale_id = $1 ORDER BY id", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var item sales.SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.Subtotal); err != nil {
			return nil, err
		}
		sale.Items = append(sale.Items, &item)
	}
	return &sale, rows.Err()
}

func (s *Store) SaveSale(ctx context.Context, sale *sales.Sale) error {
	if sale.ID == 0 {
		return s.q.QueryRowContext(ctx,
			"INSERT INTO sales (sale_date, total_amount, status, user_id) VALUES ($1, $2, $3, $4) RETURNING id",
			sale.SaleDate, sale.TotalAmount, sale.Status, sale.UserID,
		).Scan(&sale.ID)
	}
	res, err := s.q.ExecContext(ctx,
		"UPDATE sales SET sale_date = $2, total_amount = $3, status = $4, user_id = $5 WHERE id = $1",
		sale.ID, sale.SaleDate, sale.TotalAmount, sale.Status, sale.UserID,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sales.ErrSaleNotFound
	}
	return nil
}

func (s *Store) DeleteSale(ctx context.Context, id int64) error {
	// sale_items go with it via ON DELETE CASCADE.
	res, err := s.q.ExecContext(ctx, "DELETE FROM sales WHERE id = $1", id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sales.ErrSaleNotFound
	}
	return nil
}

func (s *Store) SaveItem(ctx context.Context, item *sales.SaleItem) error {
	if item.ID == 0 {
		return s.q.QueryRowContext(ctx,
			"INSERT INTO sale_items (sale_id, product_id, quantity, unit_price, subtotal) VALUES ($1, $2, $3, $4, $5) RETURNING id",
			item.SaleID, item.ProductID, item.Quantity, item.UnitPrice, item.Subtotal,
		).Scan(&item.ID)
	}
	_, err := s.q.ExecContext(ctx,
		"UPDATE sale_items SET product_id = $2, quantity = $3, unit_price = $4, subtotal = $5 WHERE id = $1",
		item.ID, item.ProductID, item.Quantity, item.UnitPrice, item.Subtotal,
	)
	return err
}

func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	_, err := s.q.ExecContext(ctx, "DELETE FROM sale_items WHERE id = $1", id)
	return err
}

// Tx runs fn against a transaction-bound store. A nested call joins the
// already open transaction.
func (s *Store) Tx(ctx context.Context, fn func(sales.Storage) error) error {
	if s.db == nil {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Store{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

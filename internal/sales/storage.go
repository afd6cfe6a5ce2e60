package sales

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrSaleNotFound is returned when a sale with the given ID does not exist.
var ErrSaleNotFound = errors.New("sale not found")

// ErrUserNotFound is returned when the referenced user does not exist.
var ErrUserNotFound = errors.New("user not found")

// ErrProductNotFound is returned when the referenced product does not exist.
var ErrProductNotFound = errors.New("product not found")

// ErrInsufficientStock is returned when a stock debit would drive a
// product's stock below zero.
var ErrInsufficientStock = errors.New("insufficient stock")

// UserDirectory resolves users by ID. Satisfied by any Storage and by the
// HTTP client in internal/users when staff identities live in another service.
type UserDirectory interface {
	FindUser(ctx context.Context, id int64) (*User, error)
}

// Storage is the persistence contract for the sales service. Implementations
// must make Tx atomic: every write issued through the storage passed to the
// callback is committed together or discarded together.
type Storage interface {
	UserDirectory

	FindProduct(ctx context.Context, id int64) (*Product, error)
	// DebitStock decrements the product's stock by qty, failing with
	// ErrInsufficientStock instead of going negative. The check and the
	// write are a single atomic step at the storage layer, so concurrent
	// registrations cannot oversell a product.
	DebitStock(ctx context.Context, productID int64, qty decimal.Decimal) error

	ListSales(ctx context.Context) ([]*Sale, error)
	FindSale(ctx context.Context, id int64) (*Sale, error)
	// SaveSale inserts the sale header when its ID is zero, assigning the
	// ID, and rewrites the header otherwise. Items are persisted through
	// SaveItem / DeleteItem.
	SaveSale(ctx context.Context, sale *Sale) error
	// DeleteSale removes the sale and, by cascade, its items.
	DeleteSale(ctx context.Context, id int64) error

	SaveItem(ctx context.Context, item *SaleItem) error
	DeleteItem(ctx context.Context, id int64) error

	Tx(ctx context.Context, fn func(Storage) error) error
}

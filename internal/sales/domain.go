package sales

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a sale.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Sale is the aggregate root of a barbershop sale: a header plus the ordered
// line items it owns. TotalAmount always equals the sum of item subtotals
// after any mutating service operation.
type Sale struct {
	ID          int64           `json:"id"`
	SaleDate    time.Time       `json:"sale_date"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      Status          `json:"status"`
	UserID      int64           `json:"user_id"`
	Items       []*SaleItem     `json:"items"`

	// Derived display fields, populated on read paths from the owning user.
	// Both are built from the same user today.
	StaffFullName    string `json:"staff_full_name,omitempty"`
	CustomerFullName string `json:"customer_full_name,omitempty"`
}

// SaleItem is one product/quantity/price entry within a sale. ID is zero
// until persisted; SaleID is a non-owning back-reference to the sale.
type SaleItem struct {
	ID        int64           `json:"id"`
	SaleID    int64           `json:"sale_id"`
	ProductID int64           `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Product is a catalog entry. It is referenced by sales, not owned by them;
// the only mutation this service performs is the stock debit on registration.
type Product struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Stock decimal.Decimal `json:"stock"`
}

// User is a staff/customer identity, read-only from this service.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// FullName returns the display name used for the sale's derived fields.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

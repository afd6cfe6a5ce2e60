package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrAlreadyActive is returned when activating a sale that is already active.
var ErrAlreadyActive = errors.New("sale is already active")

// ErrAlreadyInactive is returned when deactivating a sale that is already inactive.
var ErrAlreadyInactive = errors.New("sale is already inactive")

// Service provides sale registration, retrieval, update and lifecycle
// operations on a Storage backend. It is the only place business rules live;
// storages persist, the API layer translates.
type Service struct {
	storage Storage
	users   UserDirectory
	logger  *zap.Logger
}

// NewService creates a new Service. users may be nil, in which case user
// lookups go through the storage itself.
func NewService(storage Storage, users UserDirectory, logger *zap.Logger) *Service {
	if users == nil {
		users = storage
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		storage: storage,
		users:   users,
		logger:  logger,
	}
}

// RegisterSale records a new sale for the given user. The user is resolved
// before any stock is touched; the stock debits, the sale header and the line
// items are then persisted in one unit of work, so a failing item discards
// every earlier debit. Each subtotal is computed as quantity x unit price and
// the header total is their sum.
func (s *Service) RegisterSale(ctx context.Context, userID int64, items []*SaleItem) (*Sale, error) {
	user, err := s.users.FindUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var sale *Sale
	err = s.storage.Tx(ctx, func(st Storage) error {
		total := decimal.Zero
		for _, item := range items {
			product, err := st.FindProduct(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if product.Stock.LessThan(item.Quantity) {
				return fmt.Errorf("%w for product %q", ErrInsufficientStock, product.Name)
			}
			if err := st.DebitStock(ctx, product.ID, item.Quantity); err != nil {
				return err
			}
			item.Subtotal = item.Quantity.Mul(item.UnitPrice)
			total = total.Add(item.Subtotal)
		}

		sale = &Sale{
			SaleDate:    time.Now(),
			TotalAmount: total,
			Status:      StatusActive,
			UserID:      user.ID,
		}
		if err := st.SaveSale(ctx, sale); err != nil {
			return fmt.Errorf("save sale: %w", err)
		}
		for _, item := range items {
			item.SaleID = sale.ID
			if err := st.SaveItem(ctx, item); err != nil {
				return fmt.Errorf("save sale item: %w", err)
			}
		}
		sale.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("sale registered",
		zap.Int64("sale_id", sale.ID),
		zap.Int64("user_id", userID),
		zap.Int("items", len(items)),
		zap.String("total", sale.TotalAmount.String()),
	)
	return sale, nil
}

// ListSales returns all sales with their derived display names populated.
func (s *Service) ListSales(ctx context.Context) ([]*Sale, error) {
	all, err := s.storage.ListSales(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	for _, sale := range all {
		if err := s.populateNames(ctx, sale); err != nil {
			return nil, err
		}
	}
	return all, nil
}

// GetSale returns one sale by ID with derived display names populated.
func (s *Service) GetSale(ctx context.Context, id int64) (*Sale, error) {
	sale, err := s.storage.FindSale(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.populateNames(ctx, sale); err != nil {
		return nil, err
	}
	return sale, nil
}

// UpdateSale replaces the sale's owning user and date (date defaults to now
// when unset) and reconciles its line items against upd.Items by item ID:
// items without an ID are attached and added, matching IDs are updated in
// place, and stored items missing from upd are removed. Every remaining
// subtotal is then recomputed from a fresh product lookup and the total
// re-summed. The sale's status is never touched here.
func (s *Service) UpdateSale(ctx context.Context, id int64, upd *Sale) (*Sale, error) {
	var sale *Sale
	err := s.storage.Tx(ctx, func(st Storage) error {
		var err error
		sale, err = st.FindSale(ctx, id)
		if err != nil {
			return err
		}

		// The new user reference is taken as-is, without existence
		// validation, matching update's contract.
		sale.UserID = upd.UserID
		if upd.SaleDate.IsZero() {
			sale.SaleDate = time.Now()
		} else {
			sale.SaleDate = upd.SaleDate
		}

		removed := reconcileItems(sale, upd.Items)
		for _, itemID := range removed {
			if err := st.DeleteItem(ctx, itemID); err != nil {
				return fmt.Errorf("delete sale item: %w", err)
			}
		}

		total := decimal.Zero
		for _, item := range sale.Items {
			// The referenced product must still resolve, even though the
			// caller's prices are what the subtotal is derived from.
			if _, err := st.FindProduct(ctx, item.ProductID); err != nil {
				return err
			}
			item.Subtotal = item.UnitPrice.Mul(item.Quantity)
			total = total.Add(item.Subtotal)
		}
		sale.TotalAmount = total

		if err := st.SaveSale(ctx, sale); err != nil {
			return fmt.Errorf("save sale: %w", err)
		}
		for _, item := range sale.Items {
			if err := st.SaveItem(ctx, item); err != nil {
				return fmt.Errorf("save sale item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.populateNames(ctx, sale); err != nil {
		return nil, err
	}
	s.logger.Info("sale updated", zap.Int64("sale_id", sale.ID), zap.Int("items", len(sale.Items)))
	return sale, nil
}

// reconcileItems merges upd into the sale's item set and returns the IDs of
// stored items that were dropped. Subtotals of matched items are left alone;
// recomputation follows and always wins, so copying the caller's value here
// would be dead work.
func reconcileItems(sale *Sale, upd []*SaleItem) []int64 {
	current := make(map[int64]*SaleItem, len(sale.Items))
	for _, item := range sale.Items {
		current[item.ID] = item
	}

	keep := make(map[int64]bool, len(upd))
	for _, item := range upd {
		if item.ID == 0 {
			item.SaleID = sale.ID
			sale.Items = append(sale.Items, item)
			continue
		}
		keep[item.ID] = true
		if existing, ok := current[item.ID]; ok {
			existing.ProductID = item.ProductID
			existing.Quantity = item.Quantity
			existing.UnitPrice = item.UnitPrice
		}
	}

	var removed []int64
	kept := sale.Items[:0]
	for _, item := range sale.Items {
		if item.ID != 0 && !keep[item.ID] {
			removed = append(removed, item.ID)
			continue
		}
		kept = append(kept, item)
	}
	sale.Items = kept
	return removed
}

// Deactivate soft-deletes the sale: active becomes inactive, a second
// deactivate is a conflict.
func (s *Service) Deactivate(ctx context.Context, id int64) (*Sale, error) {
	return s.toggleStatus(ctx, id, StatusInactive)
}

// Activate reverses a soft delete, with the symmetric conflict.
func (s *Service) Activate(ctx context.Context, id int64) (*Sale, error) {
	return s.toggleStatus(ctx, id, StatusActive)
}

func (s *Service) toggleStatus(ctx context.Context, id int64, target Status) (*Sale, error) {
	sale, err := s.storage.FindSale(ctx, id)
	if err != nil {
		return nil, err
	}
	if sale.Status == target {
		if target == StatusActive {
			return nil, fmt.Errorf("%w: id %d", ErrAlreadyActive, id)
		}
		return nil, fmt.Errorf("%w: id %d", ErrAlreadyInactive, id)
	}
	sale.Status = target
	if err := s.storage.SaveSale(ctx, sale); err != nil {
		return nil, fmt.Errorf("save sale: %w", err)
	}
	s.logger.Info("sale status changed", zap.Int64("sale_id", id), zap.String("status", string(target)))
	return sale, nil
}

// DeleteSale removes the sale and its items for good. Soft delete is
// Deactivate; this one is the real thing.
func (s *Service) DeleteSale(ctx context.Context, id int64) error {
	if err := s.storage.DeleteSale(ctx, id); err != nil {
		return err
	}
	s.logger.Info("sale deleted", zap.Int64("sale_id", id))
	return nil
}

// populateNames fills the derived display fields from the owning user. Both
// names come from the same user today. An absent user leaves them unset.
func (s *Service) populateNames(ctx context.Context, sale *Sale) error {
	user, err := s.users.FindUser(ctx, sale.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve sale user: %w", err)
	}
	sale.StaffFullName = user.FullName()
	sale.CustomerFullName = user.FullName()
	return nil
}

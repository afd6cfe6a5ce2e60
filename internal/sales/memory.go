package sales

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// LocalStorage provides an in-memory implementation of Storage, used in
// tests and when the server runs without a database.
type LocalStorage struct {
	mu         sync.Mutex
	users      map[int64]*User
	products   map[int64]*Product
	sales      map[int64]*Sale
	nextSaleID int64
	nextItemID int64
}

// NewLocalStorage instantiates an empty LocalStorage.
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{
		users:      map[int64]*User{},
		products:   map[int64]*Product{},
		sales:      map[int64]*Sale{},
		nextSaleID: 1,
		nextItemID: 1,
	}
}

// AddUser seeds a user. Users are otherwise read-only here.
func (l *LocalStorage) AddUser(u *User) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *u
	l.users[u.ID] = &cp
}

// AddProduct seeds a catalog product.
func (l *LocalStorage) AddProduct(p *Product) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *p
	l.products[p.ID] = &cp
}

func (l *LocalStorage) FindUser(ctx context.Context, id int64) (*User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.findUser(id)
}

func (l *LocalStorage) FindProduct(ctx context.Context, id int64) (*Product, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.findProduct(id)
}

func (l *LocalStorage) DebitStock(ctx context.Context, productID int64, qty decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debitStock(productID, qty)
}

func (l *LocalStorage) ListSales(ctx context.Context) ([]*Sale, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.listSales()
}

func (l *LocalStorage) FindSale(ctx context.Context, id int64) (*Sale, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.findSale(id)
}

func (l *LocalStorage) SaveSale(ctx context.Context, sale *Sale) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.saveSale(sale)
}

func (l *LocalStorage) DeleteSale(ctx context.Context, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.deleteSale(id)
}

func (l *LocalStorage) SaveItem(ctx context.Context, item *SaleItem) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.saveItem(item)
}

func (l *LocalStorage) DeleteItem(ctx context.Context, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.deleteItem(id)
}

// Tx holds the store lock for the duration of fn and restores a snapshot of
// all state when fn fails, so partial writes never become visible.
func (l *LocalStorage) Tx(ctx context.Context, fn func(Storage) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := l.snapshot()
	if err := fn(&localTx{s: l}); err != nil {
		l.restore(snap)
		return err
	}
	return nil
}

// localTx exposes the unlocked operations of a LocalStorage whose lock is
// already held by Tx. Nested Tx calls run in the same unit of work.
type localTx struct {
	s *LocalStorage
}

func (t *localTx) FindUser(ctx context.Context, id int64) (*User, error) {
	return t.s.findUser(id)
}

func (t *localTx) FindProduct(ctx context.Context, id int64) (*Product, error) {
	return t.s.findProduct(id)
}

func (t *localTx) DebitStock(ctx context.Context, productID int64, qty decimal.Decimal) error {
	return t.s.debitStock(productID, qty)
}

func (t *localTx) ListSales(ctx context.Context) ([]*Sale, error) {
	return t.s.listSales()
}

func (t *localTx) FindSale(ctx context.Context, id int64) (*Sale, error) {
	return t.s.findSale(id)
}

func (t *localTx) SaveSale(ctx context.Context, sale *Sale) error {
	return t.s.saveSale(sale)
}

func (t *localTx) DeleteSale(ctx context.Context, id int64) error {
	return t.s.deleteSale(id)
}

func (t *localTx) SaveItem(ctx context.Context, item *SaleItem) error {
	return t.s.saveItem(item)
}

func (t *localTx) DeleteItem(ctx context.Context, id int64) error {
	return t.s.deleteItem(id)
}

func (t *localTx) Tx(ctx context.Context, fn func(Storage) error) error {
	return fn(t)
}

func (l *LocalStorage) findUser(id int64) (*User, error) {
	u, ok := l.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (l *LocalStorage) findProduct(id int64) (*Product, error) {
	p, ok := l.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (l *LocalStorage) debitStock(productID int64, qty decimal.Decimal) error {
	p, ok := l.products[productID]
	if !ok {
		return ErrProductNotFound
	}
	if p.Stock.LessThan(qty) {
		return ErrInsufficientStock
	}
	p.Stock = p.Stock.Sub(qty)
	return nil
}

func (l *LocalStorage) listSales() ([]*Sale, error) {
	out := make([]*Sale, 0, len(l.sales))
	for _, s := range l.sales {
		out = append(out, cloneSale(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (l *LocalStorage) findSale(id int64) (*Sale, error) {
	s, ok := l.sales[id]
	if !ok {
		return nil, ErrSaleNotFound
	}
	return cloneSale(s), nil
}

func (l *LocalStorage) saveSale(sale *Sale) error {
	if sale.ID == 0 {
		sale.ID = l.nextSaleID
		l.nextSaleID++
	}
	stored, ok := l.sales[sale.ID]
	header := cloneSale(sale)
	if ok {
		// Header rewrite keeps the stored items; they are maintained
		// through SaveItem / DeleteItem.
		header.Items = stored.Items
	} else {
		header.Items = nil
	}
	l.sales[sale.ID] = header
	return nil
}

func (l *LocalStorage) deleteSale(id int64) error {
	if _, ok := l.sales[id]; !ok {
		return ErrSaleNotFound
	}
	delete(l.sales, id)
	return nil
}

func (l *LocalStorage) saveItem(item *SaleItem) error {
	s, ok := l.sales[item.SaleID]
	if !ok {
		return ErrSaleNotFound
	}
	if item.ID == 0 {
		item.ID = l.nextItemID
		l.nextItemID++
	}
	cp := *item
	for i, existing := range s.Items {
		if existing.ID == item.ID {
			s.Items[i] = &cp
			return nil
		}
	}
	s.Items = append(s.Items, &cp)
	return nil
}

func (l *LocalStorage) deleteItem(id int64) error {
	for _, s := range l.sales {
		for i, item := range s.Items {
			if item.ID == id {
				s.Items = append(s.Items[:i], s.Items[i+1:]...)
				return nil
			}
		}
	}
	return nil
}

type localSnapshot struct {
	users      map[int64]*User
	products   map[int64]*Product
	sales      map[int64]*Sale
	nextSaleID int64
	nextItemID int64
}

func (l *LocalStorage) snapshot() localSnapshot {
	snap := localSnapshot{
		users:      make(map[int64]*User, len(l.users)),
		products:   make(map[int64]*Product, len(l.products)),
		sales:      make(map[int64]*Sale, len(l.sales)),
		nextSaleID: l.nextSaleID,
		nextItemID: l.nextItemID,
	}
	for id, u := range l.users {
		cp := *u
		snap.users[id] = &cp
	}
	for id, p := range l.products {
		cp := *p
		snap.products[id] = &cp
	}
	for id, s := range l.sales {
		snap.sales[id] = cloneSale(s)
	}
	return snap
}

func (l *LocalStorage) restore(snap localSnapshot) {
	l.users = snap.users
	l.products = snap.products
	l.sales = snap.sales
	l.nextSaleID = snap.nextSaleID
	l.nextItemID = snap.nextItemID
}

func cloneSale(s *Sale) *Sale {
	cp := *s
	cp.Items = make([]*SaleItem, len(s.Items))
	for i, item := range s.Items {
		ic := *item
		cp.Items[i] = &ic
	}
	return &cp
}

package orders_test

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/ariefcatur/holycat-orders/internal/inventory"
	"github.com/ariefcatur/holycat-orders/internal/orders"
)

type cartRow struct {
	id        int64
	userID    int64
	productID string
	qty       int
}

type memState struct {
	products map[string]orders.Product
	cart     map[int64]cartRow
	orders   map[string]orders.Order
	items    map[string][]orders.OrderItem
}

func (s memState) clone() memState {
	c := memState{
		products: make(map[string]orders.Product, len(s.products)),
		cart:     make(map[int64]cartRow, len(s.cart)),
		orders:   make(map[string]orders.Order, len(s.orders)),
		items:    make(map[string][]orders.OrderItem, len(s.items)),
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.cart {
		c.cart[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.items {
		c.items[k] = append([]orders.OrderItem(nil), v...)
	}
	return c
}

// memStore serializes units of work behind one mutex and publishes a unit's
// writes only when fn succeeds.
type memStore struct {
	mu       sync.Mutex
	st       memState
	users    map[int64]orders.User
	nextCart int64

	failDeleteCart error
}

var _ orders.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		st: memState{
			products: map[string]orders.Product{},
			cart:     map[int64]cartRow{},
			orders:   map[string]orders.Order{},
			items:    map[string][]orders.OrderItem{},
		},
		users: map[int64]orders.User{},
	}
}

func (m *memStore) addUser(id int64, email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = orders.User{ID: id, Email: email, Name: email}
}

func (m *memStore) addProduct(id, title string, price int64, stock int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.products[id] = orders.Product{ID: id, Title: title, Price: price, Stock: stock, Category: orders.CategoryFood}
}

func (m *memStore) setPrice(id string, price int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.st.products[id]
	p.Price = price
	m.st.products[id] = p
}

func (m *memStore) addCartLine(userID int64, productID string, qty int) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextCart++
	m.st.cart[m.nextCart] = cartRow{id: m.nextCart, userID: userID, productID: productID, qty: qty}
	return m.nextCart
}

func (m *memStore) stock(productID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.products[productID].Stock
}

func (m *memStore) hasCartLine(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.st.cart[id]
	return ok
}

func (m *memStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.st.orders)
}

func (m *memStore) WithTx(ctx context.Context, fn func(tx orders.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.st.clone()
	if err := fn(&memTx{st: &work, store: m}); err != nil {
		return err
	}
	m.st = work
	return nil
}

func (m *memStore) GetOrder(ctx context.Context, id string) (*orders.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.st.orders[id]
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	o.Items = append([]orders.OrderItem(nil), m.st.items[id]...)
	return &o, nil
}

func (m *memStore) ListOrdersByUser(ctx context.Context, userID int64) ([]orders.Order, error) {
	all, _ := m.ListOrders(ctx)
	var out []orders.Order
	for _, o := range all {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memStore) ListOrders(ctx context.Context) ([]orders.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []orders.Order
	for id, o := range m.st.orders {
		o.Items = append([]orders.OrderItem(nil), m.st.items[id]...)
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) GetUser(ctx context.Context, id int64) (*orders.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, orders.ErrUserNotFound
	}
	return &u, nil
}

type memTx struct {
	st    *memState
	store *memStore
}

func (t *memTx) LoadCartLines(ctx context.Context, userID int64, ids []int64) ([]orders.CartLine, error) {
	var out []orders.CartLine
	for _, id := range ids {
		row, ok := t.st.cart[id]
		if !ok || row.userID != userID {
			continue
		}
		p := t.st.products[row.productID]
		out = append(out, orders.CartLine{ID: row.id, UserID: row.userID, ProductID: row.productID, Quantity: row.qty, Product: p})
	}
	return out, nil
}

func (t *memTx) DeleteCartLines(ctx context.Context, userID int64, ids []int64) error {
	if t.store.failDeleteCart != nil {
		return t.store.failDeleteCart
	}
	for _, id := range ids {
		delete(t.st.cart, id)
	}
	return nil
}

func (t *memTx) InsertOrder(ctx context.Context, o *orders.Order) error {
	if _, ok := t.st.orders[o.ID]; ok {
		return errors.New("duplicate order id")
	}
	c := *o
	c.Items = nil
	t.st.orders[o.ID] = c
	return nil
}

func (t *memTx) InsertOrderItems(ctx context.Context, items []orders.OrderItem) error {
	for _, it := range items {
		t.st.items[it.OrderID] = append(t.st.items[it.OrderID], it)
	}
	return nil
}

func (t *memTx) LockOrder(ctx context.Context, id string) (*orders.Order, error) {
	o, ok := t.st.orders[id]
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	return &o, nil
}

func (t *memTx) OrderItems(ctx context.Context, orderID string) ([]orders.OrderItem, error) {
	return append([]orders.OrderItem(nil), t.st.items[orderID]...), nil
}

func (t *memTx) SetStatus(ctx context.Context, id string, from, to orders.Status, ship *orders.Shipment) (bool, error) {
	o, ok := t.st.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	if ship != nil {
		at := ship.ShippedAt
		o.TrackingNumber, o.Courier, o.ShippedAt = ship.TrackingNumber, ship.Courier, &at
	}
	t.st.orders[id] = o
	return true, nil
}

func (t *memTx) SetPaymentProof(ctx context.Context, id, url string) error {
	o := t.st.orders[id]
	o.PaymentProofURL = url
	t.st.orders[id] = o
	return nil
}

func (t *memTx) DeleteOrder(ctx context.Context, id string) error {
	delete(t.st.items, id)
	delete(t.st.orders, id)
	return nil
}

func (t *memTx) DecrementStock(ctx context.Context, productID string, qty int) (int, bool, error) {
	p, ok := t.st.products[productID]
	if !ok {
		return 0, false, inventory.ErrProductNotFound
	}
	if p.Stock < qty {
		return p.Stock, false, nil
	}
	p.Stock -= qty
	t.st.products[productID] = p
	return p.Stock, true, nil
}

func (t *memTx) IncrementStock(ctx context.Context, productID string, qty int) error {
	p, ok := t.st.products[productID]
	if !ok {
		return inventory.ErrProductNotFound
	}
	p.Stock += qty
	t.st.products[productID] = p
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []orders.Notification
	err  error
}

func (n *recordingNotifier) Notify(ctx context.Context, ev orders.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, ev)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func (n *recordingNotifier) last() orders.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[len(n.sent)-1]
}

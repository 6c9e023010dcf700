package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the Postgres Store.
type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

func (r *Repo) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&repoTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const orderColumns = `id::text, user_id, status, payment_method, total,
	COALESCE(tracking_number, ''), COALESCE(courier, ''), shipped_at,
	COALESCE(payment_proof_url, ''), created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o         Order
		status    string
		method    string
		shippedAt *time.Time
	)
	err := row.Scan(&o.ID, &o.UserID, &status, &method, &o.Total,
		&o.TrackingNumber, &o.Courier, &shippedAt,
		&o.PaymentProofURL, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	o.Status = Status(status)
	o.PaymentMethod = PaymentMethod(method)
	o.ShippedAt = shippedAt
	return &o, nil
}

// querier is what pgxpool.Pool and pgx.Tx share.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const itemsQuery = `
	SELECT oi.order_id::text, oi.product_id::text, COALESCE(p.title, ''), oi.quantity, oi.unit_price
	FROM order_items oi
	LEFT JOIN products p ON p.id = oi.product_id
	WHERE oi.order_id = ANY($1::uuid[])
	ORDER BY oi.order_id, oi.product_id`

func loadItems(ctx context.Context, q querier, orderIDs []string) (map[string][]OrderItem, error) {
	rows, err := q.Query(ctx, itemsQuery, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]OrderItem, len(orderIDs))
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.OrderID, &it.ProductID, &it.ProductTitle, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}

func (r *Repo) GetOrder(ctx context.Context, id string) (*Order, error) {
	if uuid.Validate(id) != nil {
		return nil, ErrOrderNotFound
	}
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	items, err := loadItems(ctx, r.DB, []string{o.ID})
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	o.Items = items[o.ID]
	return o, nil
}

func (r *Repo) ListOrdersByUser(ctx context.Context, userID int64) ([]Order, error) {
	return r.listOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *Repo) ListOrders(ctx context.Context) ([]Order, error) {
	return r.listOrders(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
}

func (r *Repo) listOrders(ctx context.Context, sql string, args ...any) ([]Order, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	var ids []string
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}

	items, err := loadItems(ctx, r.DB, ids)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

func (r *Repo) GetUser(ctx context.Context, id int64) (*User, error) {
	var u User
	err := r.DB.QueryRow(ctx, `SELECT id, email, COALESCE(name, '') FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

type repoTx struct{ tx pgx.Tx }

var _ Tx = (*repoTx)(nil)

// LoadCartLines locks the cart rows and their products. Rows come back in
// product order so concurrent checkouts lock products in the same sequence.
func (t *repoTx) LoadCartLines(ctx context.Context, userID int64, ids []int64) ([]CartLine, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT c.id, c.user_id, c.product_id::text, c.quantity,
		       p.title, p.price, p.stock, p.category
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1 AND c.id = ANY($2)
		ORDER BY p.id, c.id
		FOR UPDATE`, userID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CartLine
	for rows.Next() {
		var (
			l   CartLine
			cat string
		)
		if err := rows.Scan(&l.ID, &l.UserID, &l.ProductID, &l.Quantity,
			&l.Product.Title, &l.Product.Price, &l.Product.Stock, &cat); err != nil {
			return nil, err
		}
		l.Product.ID = l.ProductID
		l.Product.Category = Category(cat)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (t *repoTx) DeleteCartLines(ctx context.Context, userID int64, ids []int64) error {
	ct, err := t.tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND id = ANY($2)`, userID, ids)
	if err != nil {
		return err
	}
	if int(ct.RowsAffected()) != len(ids) {
		return fmt.Errorf("deleted %d of %d cart items", ct.RowsAffected(), len(ids))
	}
	return nil
}

func (t *repoTx) InsertOrder(ctx context.Context, o *Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, status, payment_method, total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		o.ID, o.UserID, string(o.Status), string(o.PaymentMethod), o.Total, o.CreatedAt, o.UpdatedAt)
	return err
}

func (t *repoTx) InsertOrderItems(ctx context.Context, items []OrderItem) error {
	for _, it := range items {
		_, err := t.tx.Exec(ctx, `
			INSERT INTO order_items(order_id, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4)`,
			it.OrderID, it.ProductID, it.Quantity, it.UnitPrice,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *repoTx) LockOrder(ctx context.Context, id string) (*Order, error) {
	if uuid.Validate(id) != nil {
		return nil, ErrOrderNotFound
	}
	return scanOrder(t.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
}

func (t *repoTx) OrderItems(ctx context.Context, orderID string) ([]OrderItem, error) {
	items, err := loadItems(ctx, t.tx, []string{orderID})
	if err != nil {
		return nil, err
	}
	return items[orderID], nil
}

func (t *repoTx) SetStatus(ctx context.Context, id string, from, to Status, ship *Shipment) (bool, error) {
	var (
		tracking, courier *string
		shippedAt         *time.Time
	)
	if ship != nil {
		tracking, courier, shippedAt = &ship.TrackingNumber, &ship.Courier, &ship.ShippedAt
	}
	ct, err := t.tx.Exec(ctx, `
		UPDATE orders
		SET status = $3,
		    tracking_number = COALESCE($4, tracking_number),
		    courier = COALESCE($5, courier),
		    shipped_at = COALESCE($6, shipped_at),
		    updated_at = now()
		WHERE id = $1 AND status = $2`,
		id, string(from), string(to), tracking, courier, shippedAt)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (t *repoTx) SetPaymentProof(ctx context.Context, id, url string) error {
	_, err := t.tx.Exec(ctx, `UPDATE orders SET payment_proof_url = $2, updated_at = now() WHERE id = $1`, id, url)
	return err
}

func (t *repoTx) DeleteOrder(ctx context.Context, id string) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
		return err
	}
	ct, err := t.tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrOrderNotFound
	}
	return nil
}

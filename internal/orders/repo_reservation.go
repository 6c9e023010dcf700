package orders

import (
	"context"
	"errors"

	"github.com/ariefcatur/holycat-orders/internal/inventory"
	"github.com/jackc/pgx/v5"
)

// DecrementStock is a conditional update: the row lock taken by UPDATE plus the
// stock >= qty predicate make concurrent reservations of the last unit
// serialize, and only one of them matches.
func (t *repoTx) DecrementStock(ctx context.Context, productID string, qty int) (int, bool, error) {
	var remaining int
	err := t.tx.QueryRow(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2
		RETURNING stock`, productID, qty).Scan(&remaining)
	if err == nil {
		return remaining, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, err
	}

	var stock int
	if err := t.tx.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, inventory.ErrProductNotFound
		}
		return 0, false, err
	}
	return stock, false, nil
}

func (t *repoTx) IncrementStock(ctx context.Context, productID string, qty int) error {
	ct, err := t.tx.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1`, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return inventory.ErrProductNotFound
	}
	return nil
}

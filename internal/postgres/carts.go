package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/ariefcatur/go-marketplace/internal/shop"
)

// GetCart locks the cart row until the transaction ends, so concurrent
// checkouts of one cart run one after the other.
func (r *repo) GetCart(ctx context.Context, userID string) (*shop.Cart, error) {
	c := shop.Cart{UserID: userID}
	err := r.tx.QueryRow(ctx, `SELECT created_at, updated_at FROM carts WHERE user_id=$1 FOR UPDATE`, userID).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shop.ErrCartNotFound
	}
	if err != nil {
		return nil, wrap("get cart", err)
	}

	rows, err := r.tx.Query(ctx, `SELECT product_id, quantity FROM cart_items WHERE user_id=$1 ORDER BY position`, userID)
	if err != nil {
		return nil, wrap("get cart items", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l shop.CartLine
		if err := rows.Scan(&l.ProductID, &l.Quantity); err != nil {
			return nil, wrap("scan cart item", err)
		}
		c.Lines = append(c.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("get cart items", err)
	}
	return &c, nil
}

func (r *repo) SaveCart(ctx context.Context, c *shop.Cart) error {
	if _, err := r.tx.Exec(ctx, `
		INSERT INTO carts(user_id, created_at, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = EXCLUDED.updated_at`,
		c.UserID, c.CreatedAt, c.UpdatedAt); err != nil {
		return wrap("upsert cart", err)
	}
	if _, err := r.tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1`, c.UserID); err != nil {
		return wrap("clear cart items", err)
	}
	for i, l := range c.Lines {
		if _, err := r.tx.Exec(ctx, `
			INSERT INTO cart_items(user_id, product_id, quantity, position) VALUES ($1, $2, $3, $4)`,
			c.UserID, l.ProductID, l.Quantity, i); err != nil {
			return wrap("insert cart item", err)
		}
	}
	return nil
}

package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/ariefcatur/go-marketplace/internal/shop"
)

const reservationView = `
	SELECT r.id, r.checkout_id, r.user_id, r.product_id, r.quantity, r.status, r.created_at, r.updated_at,
	       COALESCE(u.name, ''), COALESCE(u.email, ''),
	       COALESCE(p.seller_id, ''), COALESCE(p.name, ''), COALESCE(p.price_cents, 0)
	FROM reservations r
	LEFT JOIN users u ON u.id = r.user_id
	LEFT JOIN products p ON p.id = r.product_id`

func scanReservation(row pgx.Row) (*shop.ReservationView, error) {
	var v shop.ReservationView
	err := row.Scan(&v.ID, &v.CheckoutID, &v.UserID, &v.ProductID, &v.Quantity, &v.Status, &v.CreatedAt, &v.UpdatedAt,
		&v.User.Name, &v.User.Email, &v.Product.SellerID, &v.Product.Name, &v.Product.PriceCents)
	if err != nil {
		return nil, err
	}
	v.User.ID = v.UserID
	v.Product.ID = v.ProductID
	return &v, nil
}

func (r *repo) AppendReservation(ctx context.Context, res *shop.Reservation) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO reservations(id, checkout_id, user_id, product_id, quantity, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		res.ID, res.CheckoutID, res.UserID, res.ProductID, res.Quantity, string(res.Status), res.CreatedAt, res.UpdatedAt)
	if err != nil {
		return wrap("append reservation", err)
	}
	return nil
}

func (r *repo) GetReservation(ctx context.Context, id string) (*shop.ReservationView, error) {
	v, err := scanReservation(r.tx.QueryRow(ctx, reservationView+` WHERE r.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shop.ErrReservationNotFound
	}
	if err != nil {
		return nil, wrap("get reservation", err)
	}
	return v, nil
}

func (r *repo) ListReservations(ctx context.Context, f shop.ReservationFilter) ([]shop.ReservationView, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != "" {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("r.user_id = $%d", len(args)))
	}
	if f.SellerID != "" {
		args = append(args, f.SellerID)
		where = append(where, fmt.Sprintf("p.seller_id = $%d", len(args)))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, string(s))
		}
		args = append(args, statuses)
		where = append(where, fmt.Sprintf("r.status = ANY($%d)", len(args)))
	}
	q := reservationView
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY r.created_at, r.id`

	rows, err := r.tx.Query(ctx, q, args...)
	if err != nil {
		return nil, wrap("list reservations", err)
	}
	defer rows.Close()

	out := []shop.ReservationView{}
	for rows.Next() {
		v, err := scanReservation(rows)
		if err != nil {
			return nil, wrap("scan reservation", err)
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list reservations", err)
	}
	return out, nil
}

func (r *repo) UpdateReservationStatus(ctx context.Context, id string, status shop.ReservationStatus, at time.Time) error {
	ct, err := r.tx.Exec(ctx, `UPDATE reservations SET status=$2, updated_at=$3 WHERE id=$1`, id, string(status), at)
	if err != nil {
		return wrap("update reservation", err)
	}
	if ct.RowsAffected() == 0 {
		return shop.ErrReservationNotFound
	}
	return nil
}

func (r *repo) DeleteReservation(ctx context.Context, id string) error {
	ct, err := r.tx.Exec(ctx, `DELETE FROM reservations WHERE id=$1`, id)
	if err != nil {
		return wrap("delete reservation", err)
	}
	if ct.RowsAffected() == 0 {
		return shop.ErrReservationNotFound
	}
	return nil
}

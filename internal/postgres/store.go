package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/ariefcatur/go-marketplace/internal/shop"
)

// Store implements shop.Store on one pgx transaction per unit of work.
type Store struct{ DB *pgxpool.Pool }

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx shop.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return wrap("begin", err)
	}
	// no-op once committed; also runs when fn panics
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &repo{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return wrap("commit", err)
	}
	return nil
}

type repo struct{ tx pgx.Tx }

func wrap(op string, err error) error {
	return shop.Storage(op, errors.WithStack(err))
}

func uniqueViolation(err error) (constraint string, ok bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}

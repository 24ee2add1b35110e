package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-marketplace/internal/shop"
)

func seed(t *testing.T, s *Store) {
	t.Helper()
	err := s.WithTx(context.Background(), func(ctx context.Context, tx shop.Tx) error {
		return tx.CreateProduct(ctx, &shop.Product{ID: "p1", SellerID: "s1", Stock: 5, CreatedAt: time.Now()})
	})
	require.NoError(t, err)
}

func stock(t *testing.T, s *Store) int {
	t.Helper()
	var n int
	err := s.WithTx(context.Background(), func(ctx context.Context, tx shop.Tx) error {
		p, err := tx.GetProduct(ctx, "p1")
		if err != nil {
			return err
		}
		n = p.Stock
		return nil
	})
	require.NoError(t, err)
	return n
}

func TestRollbackOnError(t *testing.T) {
	s := New()
	seed(t, s)
	boom := errors.New("boom")

	err := s.WithTx(context.Background(), func(ctx context.Context, tx shop.Tx) error {
		if _, err := tx.AdjustStock(ctx, "p1", -2); err != nil {
			return err
		}
		require.NoError(t, tx.AppendReservation(ctx, &shop.Reservation{ID: "r1", ProductID: "p1", Quantity: 2}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, 5, stock(t, s))
	err = s.WithTx(context.Background(), func(ctx context.Context, tx shop.Tx) error {
		_, err := tx.GetReservation(ctx, "r1")
		return err
	})
	assert.ErrorIs(t, err, shop.ErrReservationNotFound)
}

func TestRollbackOnPanic(t *testing.T) {
	s := New()
	seed(t, s)

	assert.Panics(t, func() {
		_ = s.WithTx(context.Background(), func(ctx context.Context, tx shop.Tx) error {
			_, _ = tx.AdjustStock(ctx, "p1", -5)
			panic("handler bug")
		})
	})
	assert.Equal(t, 5, stock(t, s), "lock released and write discarded")
}

func TestAdjustStockIsConditional(t *testing.T) {
	s := New()
	seed(t, s)

	err := s.WithTx(context.Background(), func(ctx context.Context, tx shop.Tx) error {
		left, err := tx.AdjustStock(ctx, "p1", -5)
		require.NoError(t, err)
		assert.Equal(t, 0, left)
		_, err = tx.AdjustStock(ctx, "p1", -1)
		return err
	})
	var ise *shop.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, 0, ise.Available)
	assert.Equal(t, 1, ise.Requested)
	assert.Equal(t, 5, stock(t, s))
}

func TestFaultBecomesStorageError(t *testing.T) {
	s := New()
	seed(t, s)
	s.Fault = func(op string) error {
		if op == "adjust stock" {
			return errors.New("io timeout")
		}
		return nil
	}

	err := s.WithTx(context.Background(), func(ctx context.Context, tx shop.Tx) error {
		_, err := tx.AdjustStock(ctx, "p1", -1)
		return err
	})
	var se *shop.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "adjust stock", se.Op)

	s.Fault = nil
	assert.Equal(t, 5, stock(t, s))
}

func TestCartIsCopiedPerTransaction(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.WithTx(ctx, func(ctx context.Context, tx shop.Tx) error {
		return tx.SaveCart(ctx, &shop.Cart{UserID: "u1", Lines: []shop.CartLine{{ProductID: "p1", Quantity: 1}}})
	}))

	_ = s.WithTx(ctx, func(ctx context.Context, tx shop.Tx) error {
		c, err := tx.GetCart(ctx, "u1")
		require.NoError(t, err)
		c.Lines[0].Quantity = 99
		require.NoError(t, tx.SaveCart(ctx, c))
		return errors.New("abort")
	})

	require.NoError(t, s.WithTx(ctx, func(ctx context.Context, tx shop.Tx) error {
		c, err := tx.GetCart(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 1, c.Lines[0].Quantity)
		return nil
	}))
}

func TestCancelledContextDoesNotCommit(t *testing.T) {
	s := New()
	seed(t, s)
	ctx, cancel := context.WithCancel(context.Background())

	err := s.WithTx(ctx, func(ctx context.Context, tx shop.Tx) error {
		_, err := tx.AdjustStock(ctx, "p1", -1)
		cancel()
		return err
	})
	assert.ErrorIs(t, err, shop.ErrStorage)
	assert.Equal(t, 5, stock(t, s))
}

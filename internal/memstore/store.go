// Package memstore is an in-process shop.Store. A transaction works on a copy
// of the data and swaps it in on commit, so a failed or panicking unit of work
// leaves nothing behind. Transactions are serialized by one mutex.
package memstore

import (
	"context"
	"sync"

	"github.com/ariefcatur/go-marketplace/internal/shop"
)

type Store struct {
	mu   sync.Mutex
	data *state

	// Fault, when set, is consulted before every write with the operation
	// name; a non-nil result is returned from that write as a StorageError.
	Fault func(op string) error
}

func New() *Store {
	return &Store{data: newState()}
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx shop.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return shop.Storage("begin", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(ctx, &tx{st: work, fault: s.Fault}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return shop.Storage("commit", err)
	}
	s.data = work
	return nil
}

type state struct {
	users        map[string]shop.User
	products     map[string]shop.Product
	carts        map[string]shop.Cart
	reservations map[string]shop.Reservation
	// reservation ids in append order
	ledger []string
}

func newState() *state {
	return &state{
		users:        map[string]shop.User{},
		products:     map[string]shop.Product{},
		carts:        map[string]shop.Cart{},
		reservations: map[string]shop.Reservation{},
	}
}

func (st *state) clone() *state {
	out := &state{
		users:        make(map[string]shop.User, len(st.users)),
		products:     make(map[string]shop.Product, len(st.products)),
		carts:        make(map[string]shop.Cart, len(st.carts)),
		reservations: make(map[string]shop.Reservation, len(st.reservations)),
		ledger:       append([]string(nil), st.ledger...),
	}
	for k, v := range st.users {
		out.users[k] = v
	}
	for k, v := range st.products {
		out.products[k] = v
	}
	for k, v := range st.carts {
		out.carts[k] = copyCart(v)
	}
	for k, v := range st.reservations {
		out.reservations[k] = v
	}
	return out
}

func copyCart(c shop.Cart) shop.Cart {
	c.Lines = append([]shop.CartLine(nil), c.Lines...)
	return c
}

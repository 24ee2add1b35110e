package shop

import (
	"context"
	"sort"
)

// Checkout turns every line of the user's cart into a pending reservation,
// taking the quantities out of stock and emptying the cart. Either all of it
// happens or none of it does.
func (s *Service) Checkout(ctx context.Context, userID string) ([]Reservation, error) {
	if userID == "" {
		return nil, validationf("userId is required")
	}

	var created []Reservation
	err := s.Store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		created = nil

		cart, err := tx.GetCart(ctx, userID)
		if err != nil {
			return err
		}
		if len(cart.Lines) == 0 {
			return ErrEmptyCart
		}

		// validate every line before the first write; duplicate lines for one
		// product are checked against their summed demand
		demand := make(map[string]int, len(cart.Lines))
		order := make([]string, 0, len(cart.Lines))
		for _, l := range cart.Lines {
			if l.Quantity <= 0 {
				return ErrInvalidQuantity
			}
			if _, seen := demand[l.ProductID]; !seen {
				order = append(order, l.ProductID)
			}
			demand[l.ProductID] += l.Quantity
		}
		for _, pid := range order {
			p, err := tx.GetProduct(ctx, pid)
			if err != nil {
				return err
			}
			if demand[pid] > p.Stock {
				return &InsufficientStockError{ProductID: pid, Available: p.Stock, Requested: demand[pid]}
			}
		}

		// conditional decrement in product id order so concurrent checkouts
		// take row locks in the same order; one that got there first makes
		// this fail and the whole transaction rolls back
		sorted := append([]string(nil), order...)
		sort.Strings(sorted)
		for _, pid := range sorted {
			if _, err := tx.AdjustStock(ctx, pid, -demand[pid]); err != nil {
				return err
			}
		}

		checkoutID := s.NewID()
		now := s.Now()
		for _, l := range cart.Lines {
			r := Reservation{
				ID:         s.NewID(),
				CheckoutID: checkoutID,
				UserID:     userID,
				ProductID:  l.ProductID,
				Quantity:   l.Quantity,
				Status:     ReservationPending,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := tx.AppendReservation(ctx, &r); err != nil {
				return err
			}
			created = append(created, r)
		}

		cart.Lines = nil
		cart.UpdatedAt = now
		return tx.SaveCart(ctx, cart)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

package shop

import (
	"context"
	"errors"
)

// AddItem puts qty of a product into the user's cart, creating the cart on
// first use. Stock is not checked here, only at checkout and UpdateQuantity.
func (s *Service) AddItem(ctx context.Context, userID, productID string, qty int) (*Cart, error) {
	if userID == "" || productID == "" {
		return nil, validationf("userId and productId are required")
	}
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	var out *Cart
	err := s.Store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.GetProduct(ctx, productID); err != nil {
			return err
		}
		now := s.Now()
		cart, err := tx.GetCart(ctx, userID)
		if errors.Is(err, ErrCartNotFound) {
			cart = &Cart{UserID: userID, CreatedAt: now}
		} else if err != nil {
			return err
		}

		if i := cart.lineIndex(productID); i >= 0 {
			cart.Lines[i].Quantity += qty
		} else {
			cart.Lines = append(cart.Lines, CartLine{ProductID: productID, Quantity: qty})
		}
		cart.UpdatedAt = now
		if err := tx.SaveCart(ctx, cart); err != nil {
			return err
		}
		out = cart
		return nil
	})
	return out, err
}

// UpdateQuantity sets a line's quantity. qty <= 0 removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID string, qty int) (*Cart, error) {
	if userID == "" || productID == "" {
		return nil, validationf("userId and productId are required")
	}

	var out *Cart
	err := s.Store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		cart, err := tx.GetCart(ctx, userID)
		if err != nil {
			return err
		}
		i := cart.lineIndex(productID)
		if i < 0 {
			return ErrLineNotFound
		}
		p, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if qty > p.Stock {
			return &InsufficientStockError{ProductID: productID, Available: p.Stock, Requested: qty}
		}

		if qty <= 0 {
			cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
		} else {
			cart.Lines[i].Quantity = qty
		}
		cart.UpdatedAt = s.Now()
		if err := tx.SaveCart(ctx, cart); err != nil {
			return err
		}
		out = cart
		return nil
	})
	return out, err
}

func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*Cart, error) {
	if userID == "" || productID == "" {
		return nil, validationf("userId and productId are required")
	}

	var out *Cart
	err := s.Store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		cart, err := tx.GetCart(ctx, userID)
		if err != nil {
			return err
		}
		i := cart.lineIndex(productID)
		if i < 0 {
			return ErrLineNotFound
		}
		cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
		cart.UpdatedAt = s.Now()
		if err := tx.SaveCart(ctx, cart); err != nil {
			return err
		}
		out = cart
		return nil
	})
	return out, err
}

// ClearCart empties the cart but keeps the record.
func (s *Service) ClearCart(ctx context.Context, userID string) error {
	if userID == "" {
		return validationf("userId is required")
	}
	return s.Store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		cart, err := tx.GetCart(ctx, userID)
		if err != nil {
			return err
		}
		cart.Lines = nil
		cart.UpdatedAt = s.Now()
		return tx.SaveCart(ctx, cart)
	})
}

// GetCart returns the cart with each line's product resolved. Lines whose
// product was deleted keep an empty summary.
func (s *Service) GetCart(ctx context.Context, userID string) (*CartView, error) {
	var out *CartView
	err := s.Store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		cart, err := tx.GetCart(ctx, userID)
		if err != nil {
			return err
		}
		view := &CartView{UserID: cart.UserID, Items: make([]CartLineView, 0, len(cart.Lines)), UpdatedAt: cart.UpdatedAt}
		for _, l := range cart.Lines {
			lv := CartLineView{CartLine: l, Product: ProductSummary{ID: l.ProductID}}
			p, err := tx.GetProduct(ctx, l.ProductID)
			switch {
			case err == nil:
				lv.Product = summarize(p)
			case !errors.Is(err, ErrProductNotFound):
				return err
			}
			view.Items = append(view.Items, lv)
		}
		out = view
		return nil
	})
	return out, err
}

func summarize(p *Product) ProductSummary {
	return ProductSummary{ID: p.ID, SellerID: p.SellerID, Name: p.Name, PriceCents: p.PriceCents}
}

package shop

import "context"

type ProductInput struct {
	SellerID   string        `json:"userId"`
	Name       string        `json:"name"`
	Size       string        `json:"size"`
	Image1     string        `json:"image_1"`
	Image2     string        `json:"image_2"`
	Image3     string        `json:"image_3"`
	Stock      int           `json:"stock"`
	Quantity   int           `json:"quantity"`
	PriceCents int           `json:"price_cents"`
	Status     ProductStatus `json:"status"`
}

// ProductPatch carries the listing fields a seller may change. Nil fields
// keep their value; stock goes through AdjustStock instead.
type ProductPatch struct {
	Name       *string        `json:"name"`
	Size       *string        `json:"size"`
	Image1     *string        `json:"image_1"`
	Image2     *string        `json:"image_2"`
	Image3     *string        `json:"image_3"`
	Quantity   *int           `json:"quantity"`
	PriceCents *int           `json:"price_cents"`
	Status     *ProductStatus `json:"status"`
}

func (in ProductInput) validate() error {
	switch {
	case in.SellerID == "" || in.Name == "" || in.Size == "" || in.Image1 == "":
		return validationf("userId, name, size and image_1 are required")
	case in.Stock < 0 || in.Quantity < 0 || in.PriceCents < 0:
		return validationf("stock, quantity and price must not be negative")
	case in.Status != "" && !in.Status.Valid():
		return ErrInvalidStatus
	}
	return nil
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = ProductAvailable
	}
	now := s.Now()
	p := &Product{
		ID:         s.NewID(),
		SellerID:   in.SellerID,
		Name:       in.Name,
		Size:       in.Size,
		Image1:     in.Image1,
		Image2:     in.Image2,
		Image3:     in.Image3,
		Stock:      in.Stock,
		Quantity:   in.Quantity,
		PriceCents: in.PriceCents,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err := s.Store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.CreateProduct(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (*Product, error) {
	var out *Product
	err := s.Store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		p, err := tx.GetProduct(ctx, id)
		out = p
		return err
	})
	return out, err
}

// ListProducts lists the whole catalog, or one seller's listings when
// sellerID is set.
func (s *Service) ListProducts(ctx context.Context, sellerID string) ([]Product, error) {
	var out []Product
	err := s.Store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		ps, err := tx.ListProducts(ctx, sellerID)
		out = ps
		return err
	})
	return out, err
}

func (s *Service) UpdateProduct(ctx context.Context, id string, patch ProductPatch) (*Product, error) {
	return s.mutateProduct(ctx, id, func(p *Product) error {
		if patch.Name != nil {
			p.Name = *patch.Name
		}
		if patch.Size != nil {
			p.Size = *patch.Size
		}
		if patch.Image1 != nil {
			p.Image1 = *patch.Image1
		}
		if patch.Image2 != nil {
			p.Image2 = *patch.Image2
		}
		if patch.Image3 != nil {
			p.Image3 = *patch.Image3
		}
		if patch.Quantity != nil {
			if *patch.Quantity < 0 {
				return validationf("quantity must not be negative")
			}
			p.Quantity = *patch.Quantity
		}
		if patch.PriceCents != nil {
			if *patch.PriceCents < 0 {
				return validationf("price must not be negative")
			}
			p.PriceCents = *patch.PriceCents
		}
		if patch.Status != nil {
			if !patch.Status.Valid() {
				return ErrInvalidStatus
			}
			p.Status = *patch.Status
		}
		return nil
	})
}

func (s *Service) SetProductStatus(ctx context.Context, id string, status ProductStatus) (*Product, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.mutateProduct(ctx, id, func(p *Product) error {
		p.Status = status
		return nil
	})
}

func (s *Service) MarkSold(ctx context.Context, id string) (*Product, error) {
	return s.SetProductStatus(ctx, id, ProductSold)
}

func (s *Service) MarkPending(ctx context.Context, id string) (*Product, error) {
	return s.SetProductStatus(ctx, id, ProductPending)
}

// SetQuantity sets the listing quantity, which is distinct from stock.
func (s *Service) SetQuantity(ctx context.Context, id string, qty int) (*Product, error) {
	if qty < 0 {
		return nil, validationf("quantity must not be negative")
	}
	return s.mutateProduct(ctx, id, func(p *Product) error {
		p.Quantity = qty
		return nil
	})
}

// AdjustStock is the only way stock changes outside checkout.
func (s *Service) AdjustStock(ctx context.Context, id string, delta int) (*Product, error) {
	var out *Product
	err := s.Store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.AdjustStock(ctx, id, delta); err != nil {
			return err
		}
		p, err := tx.GetProduct(ctx, id)
		out = p
		return err
	})
	return out, err
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	return s.Store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.DeleteProduct(ctx, id)
	})
}

func (s *Service) mutateProduct(ctx context.Context, id string, fn func(p *Product) error) (*Product, error) {
	var out *Product
	err := s.Store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		p, err := tx.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		p.UpdatedAt = s.Now()
		if err := tx.UpdateProduct(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, err
}

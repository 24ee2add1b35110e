package memstore

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/ariefcatur/go-marketplace/internal/shop"
)

type tx struct {
	st    *state
	fault func(op string) error
}

func (t *tx) check(op string) error {
	if t.fault == nil {
		return nil
	}
	return shop.Storage(op, t.fault(op))
}

// ---- users ----

func (t *tx) CreateUser(_ context.Context, u *shop.User) error {
	if err := t.check("create user"); err != nil {
		return err
	}
	t.st.users[u.ID] = *u
	return nil
}

func (t *tx) GetUser(_ context.Context, id string) (*shop.User, error) {
	u, ok := t.st.users[id]
	if !ok {
		return nil, shop.ErrUserNotFound
	}
	return &u, nil
}

func (t *tx) GetUserByEmail(_ context.Context, email string) (*shop.User, error) {
	for _, u := range t.st.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, shop.ErrUserNotFound
}

func (t *tx) GetUserByMatricula(_ context.Context, matricula string) (*shop.User, error) {
	for _, u := range t.st.users {
		if matricula != "" && u.Matricula == matricula {
			return &u, nil
		}
	}
	return nil, shop.ErrUserNotFound
}

func (t *tx) ListUsers(_ context.Context) ([]shop.User, error) {
	out := make([]shop.User, 0, len(t.st.users))
	for _, u := range t.st.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (t *tx) UpdateUser(_ context.Context, u *shop.User) error {
	if _, ok := t.st.users[u.ID]; !ok {
		return shop.ErrUserNotFound
	}
	if err := t.check("update user"); err != nil {
		return err
	}
	t.st.users[u.ID] = *u
	return nil
}

func (t *tx) DeleteUser(_ context.Context, id string) error {
	if _, ok := t.st.users[id]; !ok {
		return shop.ErrUserNotFound
	}
	if err := t.check("delete user"); err != nil {
		return err
	}
	delete(t.st.users, id)
	return nil
}

// ---- products ----

func (t *tx) CreateProduct(_ context.Context, p *shop.Product) error {
	if err := t.check("create product"); err != nil {
		return err
	}
	t.st.products[p.ID] = *p
	return nil
}

func (t *tx) GetProduct(_ context.Context, id string) (*shop.Product, error) {
	p, ok := t.st.products[id]
	if !ok {
		return nil, &shop.ProductNotFoundError{ProductID: id}
	}
	return &p, nil
}

func (t *tx) ListProducts(_ context.Context, sellerID string) ([]shop.Product, error) {
	out := make([]shop.Product, 0, len(t.st.products))
	for _, p := range t.st.products {
		if sellerID == "" || p.SellerID == sellerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *tx) UpdateProduct(_ context.Context, p *shop.Product) error {
	cur, ok := t.st.products[p.ID]
	if !ok {
		return &shop.ProductNotFoundError{ProductID: p.ID}
	}
	if err := t.check("update product"); err != nil {
		return err
	}
	next := *p
	next.Stock = cur.Stock
	t.st.products[p.ID] = next
	return nil
}

func (t *tx) DeleteProduct(_ context.Context, id string) error {
	if _, ok := t.st.products[id]; !ok {
		return &shop.ProductNotFoundError{ProductID: id}
	}
	if err := t.check("delete product"); err != nil {
		return err
	}
	delete(t.st.products, id)
	return nil
}

func (t *tx) AdjustStock(_ context.Context, productID string, delta int) (int, error) {
	p, ok := t.st.products[productID]
	if !ok {
		return 0, &shop.ProductNotFoundError{ProductID: productID}
	}
	if p.Stock+delta < 0 {
		return p.Stock, &shop.InsufficientStockError{ProductID: productID, Available: p.Stock, Requested: -delta}
	}
	if err := t.check("adjust stock"); err != nil {
		return 0, err
	}
	p.Stock += delta
	p.UpdatedAt = time.Now().UTC()
	t.st.products[productID] = p
	return p.Stock, nil
}

// ---- carts ----

func (t *tx) GetCart(_ context.Context, userID string) (*shop.Cart, error) {
	c, ok := t.st.carts[userID]
	if !ok {
		return nil, shop.ErrCartNotFound
	}
	c = copyCart(c)
	return &c, nil
}

func (t *tx) SaveCart(_ context.Context, c *shop.Cart) error {
	if err := t.check("save cart"); err != nil {
		return err
	}
	t.st.carts[c.UserID] = copyCart(*c)
	return nil
}

// ---- reservations ----

func (t *tx) AppendReservation(_ context.Context, r *shop.Reservation) error {
	if err := t.check("append reservation"); err != nil {
		return err
	}
	t.st.reservations[r.ID] = *r
	t.st.ledger = append(t.st.ledger, r.ID)
	return nil
}

func (t *tx) GetReservation(_ context.Context, id string) (*shop.ReservationView, error) {
	r, ok := t.st.reservations[id]
	if !ok {
		return nil, shop.ErrReservationNotFound
	}
	v := t.view(r)
	return &v, nil
}

func (t *tx) ListReservations(_ context.Context, f shop.ReservationFilter) ([]shop.ReservationView, error) {
	out := []shop.ReservationView{}
	for _, id := range t.st.ledger {
		r, ok := t.st.reservations[id]
		if !ok {
			continue
		}
		if f.UserID != "" && r.UserID != f.UserID {
			continue
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, r.Status) {
			continue
		}
		v := t.view(r)
		if f.SellerID != "" && v.Product.SellerID != f.SellerID {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (t *tx) UpdateReservationStatus(_ context.Context, id string, status shop.ReservationStatus, at time.Time) error {
	r, ok := t.st.reservations[id]
	if !ok {
		return shop.ErrReservationNotFound
	}
	if err := t.check("update reservation"); err != nil {
		return err
	}
	r.Status = status
	r.UpdatedAt = at
	t.st.reservations[id] = r
	return nil
}

func (t *tx) DeleteReservation(_ context.Context, id string) error {
	if _, ok := t.st.reservations[id]; !ok {
		return shop.ErrReservationNotFound
	}
	if err := t.check("delete reservation"); err != nil {
		return err
	}
	delete(t.st.reservations, id)
	t.st.ledger = slices.DeleteFunc(t.st.ledger, func(x string) bool { return x == id })
	return nil
}

func (t *tx) view(r shop.Reservation) shop.ReservationView {
	v := shop.ReservationView{
		Reservation: r,
		User:        shop.UserSummary{ID: r.UserID},
		Product:     shop.ProductSummary{ID: r.ProductID},
	}
	if u, ok := t.st.users[r.UserID]; ok {
		v.User = shop.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
	}
	if p, ok := t.st.products[r.ProductID]; ok {
		v.Product = shop.ProductSummary{ID: p.ID, SellerID: p.SellerID, Name: p.Name, PriceCents: p.PriceCents}
	}
	return v
}

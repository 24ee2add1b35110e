package shop

import (
	"context"
	"time"
)

// Store runs units of work. WithTx commits when fn returns nil and rolls back
// when fn returns an error or panics; nothing fn wrote is visible after a rollback.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type Tx interface {
	UserRepo
	ProductRepo
	CartRepo
	ReservationRepo
}

type UserRepo interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByMatricula(ctx context.Context, matricula string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdateUser(ctx context.Context, u *User) error
	DeleteUser(ctx context.Context, id string) error
}

type ProductRepo interface {
	CreateProduct(ctx context.Context, p *Product) error
	// GetProduct returns *ProductNotFoundError when absent.
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context, sellerID string) ([]Product, error)
	// UpdateProduct writes listing fields and status; stock is left alone.
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, id string) error
	// AdjustStock adds delta to stock in one conditional step. When the result
	// would be negative nothing changes and *InsufficientStockError is returned.
	AdjustStock(ctx context.Context, productID string, delta int) (remaining int, err error)
}

type CartRepo interface {
	// GetCart returns ErrCartNotFound when the user never had a cart.
	GetCart(ctx context.Context, userID string) (*Cart, error)
	// SaveCart upserts the cart record and replaces its lines.
	SaveCart(ctx context.Context, c *Cart) error
}

type ReservationRepo interface {
	AppendReservation(ctx context.Context, r *Reservation) error
	GetReservation(ctx context.Context, id string) (*ReservationView, error)
	ListReservations(ctx context.Context, f ReservationFilter) ([]ReservationView, error)
	UpdateReservationStatus(ctx context.Context, id string, status ReservationStatus, at time.Time) error
	DeleteReservation(ctx context.Context, id string) error
}

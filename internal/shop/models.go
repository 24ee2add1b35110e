package shop

import "time"

type Role string

const (
	RoleUser   Role = "Usuario"
	RoleSeller Role = "Vendedor"
	RoleAdmin  Role = "Administrador"
)

type Gender string

const (
	GenderMale   Gender = "Masculino"
	GenderFemale Gender = "Femenino"
	GenderOther  Gender = "Otro"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Matricula    string    `json:"matricula,omitempty"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Gender       Gender    `json:"gender"`
	Image        string    `json:"image,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Product struct {
	ID         string        `json:"id"`
	SellerID   string        `json:"userId"`
	Name       string        `json:"name"`
	Size       string        `json:"size"`
	Image1     string        `json:"image_1"`
	Image2     string        `json:"image_2,omitempty"`
	Image3     string        `json:"image_3,omitempty"`
	Stock      int           `json:"stock"`
	Quantity   int           `json:"quantity"`
	PriceCents int           `json:"price_cents"`
	Status     ProductStatus `json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// CartLine is unique per product within a cart.
type CartLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type Cart struct {
	UserID    string     `json:"userId"`
	Lines     []CartLine `json:"items"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (c *Cart) lineIndex(productID string) int {
	for i, l := range c.Lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

// Reservation is an order ledger entry. Only Status changes after creation.
type Reservation struct {
	ID         string            `json:"id"`
	CheckoutID string            `json:"checkoutId"`
	UserID     string            `json:"userId"`
	ProductID  string            `json:"productId"`
	Quantity   int               `json:"quantity"`
	Status     ReservationStatus `json:"status"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type ProductSummary struct {
	ID         string `json:"id"`
	SellerID   string `json:"userId"`
	Name       string `json:"name"`
	PriceCents int    `json:"price_cents"`
}

// ReservationView is a reservation with its user and product resolved.
type ReservationView struct {
	Reservation
	User    UserSummary    `json:"user"`
	Product ProductSummary `json:"product"`
}

type CartLineView struct {
	CartLine
	Product ProductSummary `json:"product"`
}

type CartView struct {
	UserID    string         `json:"userId"`
	Items     []CartLineView `json:"items"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// ReservationFilter narrows ListReservations. Zero value lists everything.
type ReservationFilter struct {
	UserID   string
	SellerID string
	Statuses []ReservationStatus
}

package shop

type ProductStatus string

const (
	ProductAvailable   ProductStatus = "available"
	ProductUnavailable ProductStatus = "unavailable"
	ProductSold        ProductStatus = "sold"
	ProductPending     ProductStatus = "pending"
)

func (s ProductStatus) Valid() bool {
	switch s {
	case ProductAvailable, ProductUnavailable, ProductSold, ProductPending:
		return true
	}
	return false
}

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pendiente"
	ReservationStored    ReservationStatus = "almacenado"
	ReservationCompleted ReservationStatus = "completado"
)

func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationPending, ReservationStored, ReservationCompleted:
		return true
	}
	return false
}

// CanTransition reports whether a reservation in from may be set to to. Any
// known status may replace any other, including moving a completed
// reservation back to pending.
func CanTransition(from, to ReservationStatus) bool {
	return from.Valid() && to.Valid()
}

package shop

import (
	"encoding/json"
	"time"
)

const (
	EventCheckoutCompleted        = "CheckoutCompleted"
	EventReservationStatusChanged = "ReservationStatusChanged"
	EventReservationDeleted       = "ReservationDeleted"
)

const (
	TopicCheckoutCompleted = "marketplace.checkout.completed"
	TopicReservation       = "marketplace.reservation"
)

// PartitionKey keeps every event of one checkout (or one reservation) in order.
func PartitionKey(id string) []byte { return []byte(id) }

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type ReservedLine struct {
	ReservationID string `json:"reservation_id"`
	ProductID     string `json:"product_id"`
	Qty           int    `json:"qty"`
}

type CheckoutCompletedPayload struct {
	CheckoutID string         `json:"checkout_id"`
	UserID     string         `json:"user_id"`
	Lines      []ReservedLine `json:"lines"`
}

type ReservationStatusChangedPayload struct {
	ReservationID string            `json:"reservation_id"`
	Status        ReservationStatus `json:"status"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

type ReservationDeletedPayload struct {
	ReservationID string `json:"reservation_id"`
}

func NewCheckoutCompleted(rs []Reservation) CheckoutCompletedPayload {
	p := CheckoutCompletedPayload{Lines: make([]ReservedLine, 0, len(rs))}
	for _, r := range rs {
		p.CheckoutID = r.CheckoutID
		p.UserID = r.UserID
		p.Lines = append(p.Lines, ReservedLine{ReservationID: r.ID, ProductID: r.ProductID, Qty: r.Quantity})
	}
	return p
}

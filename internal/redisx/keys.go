package redisx

import "time"

const (
	// Checkout idempotency: idem:checkout:{user_id}:{Idempotency-Key} -> "pending" | response body
	KeyIdemCheckout = "idem:checkout:%s:%s"

	// Reservation status cache: reservation_status:{reservation_id} -> {"status": "...", "updated_at": "..."}
	KeyReservationStatus = "reservation_status:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	// a claim that never completes expires so the client can retry
	TTLIdemPending = 30 * time.Second
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)

const idemPending = "pending"

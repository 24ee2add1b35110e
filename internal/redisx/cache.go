package redisx

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// ErrInFlight is returned when another request holds the same idempotency key.
var ErrInFlight = errors.New("request with this idempotency key is in progress")

// Idempotency stores the response of a completed checkout under the client's key.
type Idempotency struct{ R *redis.Client }

// Claim reserves key for one request. It returns the stored body when an
// earlier request already completed, ErrInFlight while one is running, and
// (nil, nil) when the caller now owns the key.
func (i *Idempotency) Claim(ctx context.Context, userID, key string) ([]byte, error) {
	k := fmt.Sprintf(KeyIdemCheckout, userID, key)
	ok, err := i.R.SetNX(ctx, k, idemPending, TTLIdemPending).Result()
	if err != nil {
		return nil, errors.Wrap(err, "claim idempotency key")
	}
	if ok {
		return nil, nil
	}
	v, err := i.R.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; let the caller retry
		return nil, ErrInFlight
	}
	if err != nil {
		return nil, errors.Wrap(err, "read idempotency key")
	}
	if string(v) == idemPending {
		return nil, ErrInFlight
	}
	return v, nil
}

func (i *Idempotency) Complete(ctx context.Context, userID, key string, body []byte) error {
	k := fmt.Sprintf(KeyIdemCheckout, userID, key)
	return errors.Wrap(i.R.Set(ctx, k, body, TTLIdempotency).Err(), "store idempotent result")
}

// Release drops a claim after a failed request so it can be retried.
func (i *Idempotency) Release(ctx context.Context, userID, key string) error {
	k := fmt.Sprintf(KeyIdemCheckout, userID, key)
	return errors.Wrap(i.R.Del(ctx, k).Err(), "release idempotency key")
}

type StatusEntry struct {
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusCache caches reservation statuses for the order lookup endpoint.
type StatusCache struct{ R *redis.Client }

func (c *StatusCache) Put(ctx context.Context, reservationID string, e StatusEntry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return errors.Wrap(c.R.Set(ctx, fmt.Sprintf(KeyReservationStatus, reservationID), b, TTLStatusCache).Err(), "cache status")
}

// PutIfAbsent writes e only when no entry exists for reservationID and
// reports whether it did.
func (c *StatusCache) PutIfAbsent(ctx context.Context, reservationID string, e StatusEntry) (bool, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return false, err
	}
	ok, err := c.R.SetNX(ctx, fmt.Sprintf(KeyReservationStatus, reservationID), b, TTLStatusCache).Result()
	if err != nil {
		return false, errors.Wrap(err, "cache status")
	}
	return ok, nil
}

// Get reports ok=false on a cache miss.
func (c *StatusCache) Get(ctx context.Context, reservationID string) (StatusEntry, bool, error) {
	var e StatusEntry
	b, err := c.R.Get(ctx, fmt.Sprintf(KeyReservationStatus, reservationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return e, false, nil
	}
	if err != nil {
		return e, false, errors.Wrap(err, "read status cache")
	}
	if err := json.Unmarshal(b, &e); err != nil {
		return e, false, errors.Wrap(err, "decode status cache")
	}
	return e, true, nil
}

func (c *StatusCache) Drop(ctx context.Context, reservationID string) error {
	return errors.Wrap(c.R.Del(ctx, fmt.Sprintf(KeyReservationStatus, reservationID)).Err(), "drop status cache")
}

// FirstSeen records eventID for service and reports whether this is the first
// time it was seen.
func FirstSeen(ctx context.Context, rdb *redis.Client, service, eventID string) (bool, error) {
	ok, err := rdb.SetNX(ctx, fmt.Sprintf(KeyDedup, service, eventID), "1", TTLDedup).Result()
	if err != nil {
		return false, errors.Wrap(err, "dedup")
	}
	return ok, nil
}

// Forget removes a dedup mark so a failed event can be processed again.
func Forget(ctx context.Context, rdb *redis.Client, service, eventID string) error {
	return errors.Wrap(rdb.Del(ctx, fmt.Sprintf(KeyDedup, service, eventID)).Err(), "forget dedup")
}

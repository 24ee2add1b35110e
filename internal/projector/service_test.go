package projector

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkax "github.com/ariefcatur/go-marketplace/internal/kafka"
	"github.com/ariefcatur/go-marketplace/internal/shop"
)

func setup(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, "projector-test"), mr
}

func message(eventID, eventType string, at time.Time, payload any) kafkago.Message {
	env := shop.Envelope{
		EventID:      eventID,
		EventType:    eventType,
		EventVersion: 1,
		OccurredAt:   at,
		Payload:      kafkax.MustMarshal(payload),
	}
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func TestCheckoutCompletedCachesPending(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	err := s.HandleMessage(ctx, message("e1", shop.EventCheckoutCompleted, at, shop.CheckoutCompletedPayload{
		CheckoutID: "c1",
		UserID:     "u1",
		Lines: []shop.ReservedLine{
			{ReservationID: "r1", ProductID: "p1", Qty: 2},
			{ReservationID: "r2", ProductID: "p2", Qty: 1},
		},
	}))
	require.NoError(t, err)

	for _, id := range []string{"r1", "r2"} {
		e, ok, err := s.Cache.Get(ctx, id)
		require.NoError(t, err)
		require.True(t, ok, id)
		assert.Equal(t, "pendiente", e.Status)
	}
}

func TestCheckoutCompletedKeepsNewerStatus(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)

	require.NoError(t, s.HandleMessage(ctx, message("e2", shop.EventReservationStatusChanged, t1,
		shop.ReservationStatusChangedPayload{ReservationID: "r1", Status: shop.ReservationStored, UpdatedAt: t1})))
	require.NoError(t, s.HandleMessage(ctx, message("e1", shop.EventCheckoutCompleted, t0, shop.CheckoutCompletedPayload{
		CheckoutID: "c1",
		UserID:     "u1",
		Lines: []shop.ReservedLine{
			{ReservationID: "r1", ProductID: "p1", Qty: 1},
			{ReservationID: "r2", ProductID: "p2", Qty: 1},
		},
	})))

	e, ok, err := s.Cache.Get(ctx, "r1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "almacenado", e.Status)
	assert.True(t, e.UpdatedAt.Equal(t1))

	e, ok, err = s.Cache.Get(ctx, "r2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "pendiente", e.Status)
}

func TestStatusChangeIgnoresStaleEvents(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()
	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	require.NoError(t, s.HandleMessage(ctx, message("e2", shop.EventReservationStatusChanged, t2,
		shop.ReservationStatusChangedPayload{ReservationID: "r1", Status: shop.ReservationCompleted, UpdatedAt: t2})))
	require.NoError(t, s.HandleMessage(ctx, message("e1", shop.EventReservationStatusChanged, t1,
		shop.ReservationStatusChangedPayload{ReservationID: "r1", Status: shop.ReservationStored, UpdatedAt: t1})))

	e, ok, err := s.Cache.Get(ctx, "r1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "completado", e.Status)
}

func TestDuplicateEventIsAppliedOnce(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	msg := message("e1", shop.EventReservationStatusChanged, at,
		shop.ReservationStatusChangedPayload{ReservationID: "r1", Status: shop.ReservationStored, UpdatedAt: at})

	require.NoError(t, s.HandleMessage(ctx, msg))
	require.NoError(t, s.Cache.Drop(ctx, "r1"))
	require.NoError(t, s.HandleMessage(ctx, msg))

	_, ok, err := s.Cache.Get(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, ok, "second delivery must be skipped")
}

func TestReservationDeletedDropsCache(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()
	at := time.Now().UTC()

	require.NoError(t, s.HandleMessage(ctx, message("e1", shop.EventReservationStatusChanged, at,
		shop.ReservationStatusChangedPayload{ReservationID: "r1", Status: shop.ReservationStored, UpdatedAt: at})))
	require.NoError(t, s.HandleMessage(ctx, message("e2", shop.EventReservationDeleted, at,
		shop.ReservationDeletedPayload{ReservationID: "r1"})))

	_, ok, err := s.Cache.Get(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFailedEventCanBeRetried(t *testing.T) {
	s, mr := setup(t)
	ctx := context.Background()
	at := time.Now().UTC()
	msg := message("e1", shop.EventReservationStatusChanged, at,
		shop.ReservationStatusChangedPayload{ReservationID: "r1", Status: shop.ReservationStored, UpdatedAt: at})

	mr.SetError("LOADING")
	err := s.HandleMessage(ctx, msg)
	require.Error(t, err)
	mr.SetError("")

	require.NoError(t, s.HandleMessage(ctx, msg))
	e, ok, err := s.Cache.Get(ctx, "r1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "almacenado", e.Status)
}

func TestUndecodableMessageIsDropped(t *testing.T) {
	s, _ := setup(t)
	err := s.HandleMessage(context.Background(), kafkago.Message{Value: []byte("not json")})
	assert.NoError(t, err)
}

// Package projector keeps the Redis reservation status cache in step with the
// events the API publishes.
package projector

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	kafkax "github.com/ariefcatur/go-marketplace/internal/kafka"
	"github.com/ariefcatur/go-marketplace/internal/redisx"
	"github.com/ariefcatur/go-marketplace/internal/shop"
)

type Service struct {
	Redis       *redis.Client
	Cache       *redisx.StatusCache
	ServiceName string
}

func New(rdb *redis.Client, serviceName string) *Service {
	return &Service{Redis: rdb, Cache: &redisx.StatusCache{R: rdb}, ServiceName: serviceName}
}

// HandleMessage is installed as the consumer handler.
func (s *Service) HandleMessage(ctx context.Context, m kafkago.Message) error {
	var env shop.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// a malformed message would fail forever; drop it
		log.WithError(err).WithField("offset", m.Offset).Warn("skip undecodable envelope")
		return nil
	}

	first, err := redisx.FirstSeen(ctx, s.Redis, s.ServiceName, env.EventID)
	if err != nil {
		return err
	}
	if !first {
		return nil
	}
	if err := s.apply(ctx, env); err != nil {
		if ferr := redisx.Forget(ctx, s.Redis, s.ServiceName, env.EventID); ferr != nil {
			log.WithError(ferr).WithField("event_id", env.EventID).Warn("forget dedup mark")
		}
		return err
	}
	return nil
}

func (s *Service) apply(ctx context.Context, env shop.Envelope) error {
	logger := log.WithFields(log.Fields{"event_id": env.EventID, "event_type": env.EventType})

	switch env.EventType {
	case shop.EventCheckoutCompleted:
		p, err := kafkax.UnwrapPayload[shop.CheckoutCompletedPayload](env.Payload)
		if err != nil {
			return err
		}
		// a status change from the other topic may already be cached; pendiente
		// is only the starting point
		seeded := 0
		for _, l := range p.Lines {
			ok, err := s.Cache.PutIfAbsent(ctx, l.ReservationID, redisx.StatusEntry{
				Status: string(shop.ReservationPending), UpdatedAt: env.OccurredAt,
			})
			if err != nil {
				return err
			}
			if ok {
				seeded++
			}
		}
		logger.WithFields(log.Fields{"lines": len(p.Lines), "seeded": seeded}).Debug("cached checkout reservations")

	case shop.EventReservationStatusChanged:
		p, err := kafkax.UnwrapPayload[shop.ReservationStatusChangedPayload](env.Payload)
		if err != nil {
			return err
		}
		cur, ok, err := s.Cache.Get(ctx, p.ReservationID)
		if err != nil {
			return err
		}
		if ok && cur.UpdatedAt.After(p.UpdatedAt) {
			logger.Debug("skip stale status change")
			return nil
		}
		return s.Cache.Put(ctx, p.ReservationID, redisx.StatusEntry{Status: string(p.Status), UpdatedAt: p.UpdatedAt})

	case shop.EventReservationDeleted:
		p, err := kafkax.UnwrapPayload[shop.ReservationDeletedPayload](env.Payload)
		if err != nil {
			return err
		}
		return s.Cache.Drop(ctx, p.ReservationID)

	default:
		logger.Debug("ignore event")
	}
	return nil
}

// Topics the projector subscribes to.
func Topics() []string {
	return []string{shop.TopicCheckoutCompleted, shop.TopicReservation}
}

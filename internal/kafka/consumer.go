package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

// Handler must return nil only when the message was processed and its offset
// may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

type Consumer struct {
	r       *kafka.Reader
	workers int
}

func NewConsumer(brokers []string, group string, topics []string, workers int) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		GroupTopics:    topics,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // commit per message
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, workers: workers}
}

// Start blocks until ctx is cancelled or the reader fails. Messages of one
// partition always go to the same worker, and a failed message is retried
// until it succeeds or ctx ends, so a later offset is never committed past it.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	jobs := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range jobs {
		jobs[i] = make(chan kafka.Message, 128)
		wg.Add(1)
		go func(id int, in <-chan kafka.Message) {
			defer wg.Done()
			for m := range in {
				logger := log.WithFields(log.Fields{
					"worker": id, "topic": m.Topic, "partition": m.Partition, "offset": m.Offset,
				})
				if !handleWithRetry(ctx, m, h, logger) {
					continue
				}
				if err := c.r.CommitMessages(ctx, m); err != nil {
					logger.WithError(err).Warn("commit offset")
				}
			}
		}(i, jobs[i])
	}
	defer wg.Wait()
	defer func() {
		for _, ch := range jobs {
			close(ch)
		}
	}()

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case jobs[workerFor(m.Partition, c.workers)] <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

func workerFor(partition, workers int) int {
	if partition < 0 {
		partition = -partition
	}
	return partition % workers
}

const (
	retryMin = 100 * time.Millisecond
	retryMax = 10 * time.Second
)

// handleWithRetry reports false only when ctx ended before h succeeded.
func handleWithRetry(ctx context.Context, m kafka.Message, h Handler, logger *log.Entry) bool {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryMin
	b.MaxInterval = retryMax
	b.MaxElapsedTime = 0

	err := backoff.RetryNotify(func() error {
		return h(ctx, m)
	}, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		logger.WithError(err).WithField("retry_in", wait).Error("handle message")
	})
	return err == nil
}

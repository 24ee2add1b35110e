package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-marketplace/internal/config"
	kafkax "github.com/ariefcatur/go-marketplace/internal/kafka"
	"github.com/ariefcatur/go-marketplace/internal/logx"
	"github.com/ariefcatur/go-marketplace/internal/projector"
	"github.com/ariefcatur/go-marketplace/internal/redisx"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logx.Setup(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName+"-projector")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := projector.New(rdb, cfg.ServiceName+"-projector")
	topics := projector.Topics()
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ProjectorGroup, topics, cfg.ProjectorWorkers)

	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.WithFields(log.Fields{
			"group":   cfg.ProjectorGroup,
			"topics":  topics,
			"workers": cfg.ProjectorWorkers,
		}).Info("projector consumer started")
		if err := cons.Start(ctx, svc.HandleMessage); err != nil {
			logger.WithError(err).Error("consumer exit")
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	logger.Info("shutting down consumer")
	cancel()
	<-done
}

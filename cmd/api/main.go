package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/ariefcatur/go-marketplace/internal/config"
	"github.com/ariefcatur/go-marketplace/internal/httpx"
	kafkax "github.com/ariefcatur/go-marketplace/internal/kafka"
	"github.com/ariefcatur/go-marketplace/internal/logx"
	"github.com/ariefcatur/go-marketplace/internal/memstore"
	"github.com/ariefcatur/go-marketplace/internal/paypal"
	"github.com/ariefcatur/go-marketplace/internal/postgres"
	"github.com/ariefcatur/go-marketplace/internal/redisx"
	"github.com/ariefcatur/go-marketplace/internal/shop"
)

func main() {
	app := &cli.App{
		Name:   "api",
		Usage:  "marketplace HTTP API",
		Action: serve,
		Commands: []*cli.Command{
			{Name: "serve", Usage: "run the HTTP server", Action: serve},
			{
				Name:  "migrate",
				Usage: "apply or roll back database migrations",
				Subcommands: []*cli.Command{
					{Name: "up", Action: migrate(true)},
					{Name: "down", Action: migrate(false)},
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func migrate(up bool) cli.ActionFunc {
	return func(*cli.Context) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logx.Setup(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName)
		if err := postgres.Migrate(cfg.PostgresDSN, up); err != nil {
			return err
		}
		log.WithField("up", up).Info("migrations applied")
		return nil
	}
}

func serve(*cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logx.Setup(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// store
	var store shop.Store
	switch cfg.StoreDriver {
	case config.DriverMemory:
		logger.Warn("using in-memory store; data is lost on exit")
		store = memstore.New()
	default:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		store = &postgres.Store{DB: db}
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	checkouts := kafkax.NewProducer(cfg.KafkaBrokers, shop.TopicCheckoutCompleted, 1024)
	checkouts.Start(ctx)
	reservations := kafkax.NewProducer(cfg.KafkaBrokers, shop.TopicReservation, 1024)
	reservations.Start(ctx)

	api := &httpx.API{
		Shop:         shop.NewService(store),
		Idempotency:  &redisx.Idempotency{R: rdb},
		Status:       &redisx.StatusCache{R: rdb},
		Checkouts:    checkouts,
		Reservations: reservations,
		Service:      cfg.ServiceName,
	}
	if cfg.PayPal.ClientID != "" {
		api.Payments = paypal.New(ctx, paypal.Config{
			BaseURL:      cfg.PayPal.BaseURL,
			ClientID:     cfg.PayPal.ClientID,
			ClientSecret: cfg.PayPal.ClientSecret,
			Currency:     cfg.PayPal.Currency,
			ReturnURL:    cfg.PayPal.ReturnURL,
			CancelURL:    cfg.PayPal.CancelURL,
			BrandName:    cfg.PayPal.BrandName,
		})
	} else {
		logger.Warn("PAYPAL_CLIENT_ID not set; payment endpoint disabled")
	}

	router := httpx.NewRouter(15 * time.Second)
	api.Register(router)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- errors.Wrap(err, "listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case err = <-errCh:
	}
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	checkouts.Close() // flush and close the writer
	reservations.Close()
	cancel()
	checkouts.WaitClosed()
	reservations.WaitClosed()
	return err
}

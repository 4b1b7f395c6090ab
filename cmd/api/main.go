package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/safar/go-sql-shop/internal/auth"
	"github.com/safar/go-sql-shop/internal/cart"
	"github.com/safar/go-sql-shop/internal/catalog"
	"github.com/safar/go-sql-shop/internal/checkout"
	"github.com/safar/go-sql-shop/internal/config"
	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/events"
	"github.com/safar/go-sql-shop/internal/httpserver"
	"github.com/safar/go-sql-shop/internal/logging"
	"github.com/safar/go-sql-shop/internal/mailer"
	"github.com/safar/go-sql-shop/internal/orders"
	"github.com/safar/go-sql-shop/internal/payment"
	"github.com/safar/go-sql-shop/internal/ratelimit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	logger := logging.New(cfg.Log.Level).With("service", "shop-api")
	slog.SetDefault(logger)

	db, err := database.Open(context.Background(), cfg.Database)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	logger.Info("connected to database")

	var orderEvents, catalogEvents events.Publisher = events.Nop{}, events.Nop{}
	if cfg.Kafka.Enabled() {
		orderPub := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic)
		catalogPub := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.CatalogTopic)
		defer orderPub.Close()
		defer catalogPub.Close()
		orderEvents, catalogEvents = orderPub, catalogPub
		logger.Info("publishing domain events", "brokers", cfg.Kafka.Brokers)
	}

	var throttle auth.Throttle
	if cfg.Redis.Enabled() {
		rdb := ratelimit.NewRedisClient(cfg.Redis)
		defer rdb.Close()
		throttle = ratelimit.NewSigninLimiter(rdb, cfg.Redis)
		logger.Info("signin throttling enabled", "max_attempts", cfg.Redis.MaxAttempts)
	}

	var resetMailer auth.Mailer = mailer.LogMailer{Logger: logger}
	if cfg.SMTP.Enabled() {
		resetMailer = mailer.NewSMTPMailer(cfg.SMTP)
	}

	e := httpserver.New(&httpserver.Deps{
		Auth:     auth.NewService(db, cfg.Auth, resetMailer, throttle),
		Catalog:  catalog.NewService(db, catalogEvents),
		Cart:     cart.NewService(db),
		Checkout: checkout.NewService(db, payment.NewSimulator(cfg.Payment), orderEvents),
		Orders:   orders.NewService(db),
		DB:       db,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      e,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
	logger.Info("server stopped")
}

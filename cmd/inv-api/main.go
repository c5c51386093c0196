package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tuanvumaihuynh/inventory-api/internal/auth"
	"github.com/tuanvumaihuynh/inventory-api/internal/config"
	"github.com/tuanvumaihuynh/inventory-api/internal/event"
	"github.com/tuanvumaihuynh/inventory-api/internal/http"
	"github.com/tuanvumaihuynh/inventory-api/internal/log"
	"github.com/tuanvumaihuynh/inventory-api/internal/relay"
	"github.com/tuanvumaihuynh/inventory-api/internal/repository"
	"github.com/tuanvumaihuynh/inventory-api/internal/service"
	"github.com/tuanvumaihuynh/inventory-api/internal/storage/db"
	"github.com/tuanvumaihuynh/inventory-api/internal/storage/mq"
	"github.com/tuanvumaihuynh/inventory-api/internal/telemetry"
	"github.com/tuanvumaihuynh/inventory-api/pkg/cmdutil"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("error running api application: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	time.Local = time.UTC

	type Config struct {
		Log      config.Log
		Postgres config.Postgres
		HTTP     config.HTTP
		Auth     config.Auth
		Events   config.Events
		Relay    config.Relay
		Kafka    config.Kafka
		Otel     config.Otel
	}
	cfg, err := config.New[Config]()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	logger := log.NewSlogLogger(cfg.Log)

	cleanupTracer, err := telemetry.InitTracer(ctx, cfg.Otel)
	if err != nil {
		return fmt.Errorf("error initializing tracer: %w", err)
	}
	defer func() {
		if err := cleanupTracer(ctx); err != nil {
			logger.ErrorContext(ctx, "error cleaning up tracer", slog.Any("error", err))
		}
	}()

	pgxPool, err := db.NewPgxPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("error creating pgx pool: %w", err)
	}
	defer pgxPool.Close()

	if cfg.Postgres.AutoMigrate {
		if _, err := db.Migrate(ctx, pgxPool, logger); err != nil {
			return fmt.Errorf("error migrating database: %w", err)
		}
	}

	verifier, err := auth.NewJWKSVerifier(ctx, cfg.Auth)
	if err != nil {
		return fmt.Errorf("error creating token verifier: %w", err)
	}

	dbClient := db.NewClient(pgxPool)
	productRepository := repository.NewProductRepository(dbClient)

	var outboxMsgRepository repository.OutboxMsgRepository
	if cfg.Events.Enabled {
		outboxMsgRepository = repository.NewOutboxMsgRepository(dbClient)
	}

	productService := service.NewProductService(dbClient, productRepository, outboxMsgRepository)

	interruptChan := cmdutil.InterruptChan()

	if cfg.Events.Enabled {
		cleanupEvents, err := runEvents(ctx, cfg.Relay, cfg.Kafka, logger, dbClient, outboxMsgRepository)
		if err != nil {
			return err
		}
		defer cleanupEvents()
	}

	httpSvc := http.New(cfg.HTTP, logger, verifier, dbClient, productService)
	cleanupHTTP, err := httpSvc.Run(ctx)
	if err != nil {
		return fmt.Errorf("error running http service: %w", err)
	}
	logger.InfoContext(ctx, "http service started", slog.String("address", fmt.Sprintf(":%d", cfg.HTTP.Port)))

	<-interruptChan

	logger.InfoContext(ctx, "http service is shutting down")
	if err := cleanupHTTP(ctx); err != nil {
		logger.ErrorContext(ctx, "error shutting down http service", slog.Any("error", err))
	}
	logger.InfoContext(ctx, "http service is stopped")

	return nil
}

// runEvents starts the outbox relay and the product event consumer. The
// returned cleanup stops both and closes their Kafka clients.
func runEvents(
	ctx context.Context,
	relayCfg config.Relay,
	kafkaCfg config.Kafka,
	logger *slog.Logger,
	dbClient *db.Client,
	outboxMsgRepository repository.OutboxMsgRepository,
) (func(), error) {
	kafkaProducer, err := mq.NewKafkaProducer(ctx, kafkaCfg)
	if err != nil {
		return nil, fmt.Errorf("error creating kafka producer: %w", err)
	}

	kafkaConsumer, err := mq.NewKafkaConsumer(ctx, kafkaCfg, logger)
	if err != nil {
		kafkaProducer.Close()
		return nil, fmt.Errorf("error creating kafka consumer: %w", err)
	}

	eventSvc := event.New(logger, kafkaConsumer)
	cleanupEventSvc, err := eventSvc.Run(ctx)
	if err != nil {
		kafkaConsumer.Close()
		kafkaProducer.Close()
		return nil, fmt.Errorf("error running event service: %w", err)
	}
	logger.InfoContext(ctx, "event service started")

	relaySvc := relay.NewService(relayCfg, logger, dbClient, outboxMsgRepository, kafkaProducer)
	cleanupRelay := relaySvc.Run(ctx)
	logger.InfoContext(ctx, "relay service started")

	return func() {
		logger.InfoContext(ctx, "relay service is shutting down")
		cleanupRelay()
		kafkaProducer.Close()
		logger.InfoContext(ctx, "relay service is stopped")

		logger.InfoContext(ctx, "event service is shutting down")
		cleanupEventSvc()
		kafkaConsumer.Close()
		logger.InfoContext(ctx, "event service is stopped")
	}, nil
}

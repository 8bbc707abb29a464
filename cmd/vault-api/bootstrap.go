package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KierLogistics/VaultTrack/config"
	"github.com/KierLogistics/VaultTrack/internal/broker/kafka"
	"github.com/KierLogistics/VaultTrack/internal/cache/rediscache"
	"github.com/KierLogistics/VaultTrack/internal/services/shipments"
	"github.com/KierLogistics/VaultTrack/internal/storage/memshipment"
	"github.com/KierLogistics/VaultTrack/internal/storage/pgshipment"
)

type vaultAPIApp struct {
	ctx      context.Context
	cancel   context.CancelFunc
	opts     vaultAPIOpts
	svc      *shipments.Service
	limiter  *rediscache.RateLimiter
	lookupRL int64
	consumer *kafka.Consumer
	closeDB  func()
}

func mustBootstrapVaultAPI() *vaultAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		panic("swaggerPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("failed to parse config, %v", err))
	}

	httpAddr := cfg.VaultTrack.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	consumerGroup := cfg.VaultTrack.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "vault-api"
	}
	courierTopic := cfg.Kafka.CourierUpdatesTopicName
	if courierTopic == "" {
		courierTopic = "courier.updates"
	}
	updatedTopic := cfg.Kafka.ShipmentUpdatedTopicName
	if updatedTopic == "" {
		updatedTopic = "shipment.updated"
	}

	listTTL := time.Duration(cfg.VaultTrack.AdminListTTLSeconds) * time.Second
	if listTTL <= 0 {
		listTTL = time.Minute
	}

	var store shipments.Store
	closeDB := func() {}
	if cfg.VaultTrack.UseMemoryStore {
		store = memshipment.New()
	} else {
		sslMode := cfg.Database.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
		pg := mustOpenPostgresWithRetry(connString, 60*time.Second)
		store = pg
		closeDB = pg.Close
	}

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	rc := rediscache.New(redisAddr)
	limiter := rediscache.NewRateLimiter(redisAddr)

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	producer := kafka.NewProducer(brokers)
	consumer := kafka.NewConsumer(brokers, courierTopic, consumerGroup)

	svc := shipments.New(store, rc, shipments.Options{
		Publisher:         producer,
		UpdatedTopic:      updatedTopic,
		StrictTransitions: cfg.VaultTrack.StrictStatusTransitions,
		ListTTL:           listTTL,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &vaultAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts: vaultAPIOpts{
			httpAddr:      httpAddr,
			swaggerPath:   swaggerPath,
			topic:         courierTopic,
			consumerGroup: consumerGroup,
		},
		svc:      svc,
		limiter:  limiter,
		lookupRL: int64(cfg.VaultTrack.LookupRateLimitPerMinute),
		consumer: consumer,
		closeDB:  closeDB,
	}
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgshipment.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgshipment.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *vaultAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.consumer != nil {
		_ = a.consumer.Close()
	}
	if a.closeDB != nil {
		a.closeDB()
	}
}

func (a *vaultAPIApp) Run() error {
	return runVaultAPI(a.ctx, a.opts, a.svc, a.limiter, a.lookupRL, a.consumer)
}

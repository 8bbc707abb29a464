package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	shipmentsapi "github.com/KierLogistics/VaultTrack/internal/api/shipments_api"
	"github.com/KierLogistics/VaultTrack/internal/services/shipments"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type vaultAPIOpts struct {
	httpAddr    string
	swaggerPath string

	topic         string
	consumerGroup string

	onListen func(httpAddr string)
}

type kafkaConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

func runVaultAPI(ctx context.Context, opts vaultAPIOpts, svc *shipments.Service, limiter shipmentsapi.RateLimiter, lookupRL int64, consumer kafkaConsumer) error {
	if opts.swaggerPath == "" {
		return fmt.Errorf("swaggerPath env var is required")
	}
	if _, err := os.Stat(opts.swaggerPath); os.IsNotExist(err) {
		return fmt.Errorf("swagger file not found: %s", opts.swaggerPath)
	}

	api := shipmentsapi.New(svc, limiter, lookupRL)

	httpLis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}

	if opts.onListen != nil {
		opts.onListen(httpLis.Addr().String())
	}

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runHTTPServer(ctx, httpLis, api, opts.swaggerPath)
	}()

	go func() {
		slog.Info("kafka consumer started", "topic", opts.topic, "group", opts.consumerGroup)
		_ = consumer.Consume(ctx, func(key, value []byte) error {
			var upd shipments.CourierUpdate
			if err := json.Unmarshal(value, &upd); err != nil {
				slog.Warn("courier update message is not valid JSON", "key", string(key), "err", err)
				return nil
			}
			_, err := svc.ApplyCourierUpdate(ctx, upd)
			switch {
			case err == nil:
				return nil
			case errors.Is(err, shipments.ErrInvalidPayload), errors.Is(err, shipments.ErrNotFound), errors.Is(err, shipments.ErrTerminalStatus):
				// Poison messages are logged and committed, otherwise the
				// consumer would spin on them forever.
				slog.Warn("courier update rejected", "code", upd.TrackingCode, "err", err)
				return nil
			default:
				return err
			}
		})
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-httpErr:
		return err
	}
}

func runHTTPServer(ctx context.Context, lis net.Listener, api *shipmentsapi.ShipmentsAPI, swaggerPath string) error {
	r := chi.NewRouter()
	r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, swaggerPath)
	})

	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger.json"),
	))

	api.Routes(r)

	srv := &http.Server{Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("HTTP server listening", "addr", lis.Addr().String())
	return srv.Serve(lis)
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/Cheertaboi/storefront-checkout/internal/api"
	"github.com/Cheertaboi/storefront-checkout/internal/client"
	"github.com/Cheertaboi/storefront-checkout/internal/config"
	"github.com/Cheertaboi/storefront-checkout/internal/events"
	"github.com/Cheertaboi/storefront-checkout/internal/logging"
	"github.com/Cheertaboi/storefront-checkout/internal/shopper"
	"github.com/Cheertaboi/storefront-checkout/internal/storage"
	"github.com/Cheertaboi/storefront-checkout/pkg/db"
)

func main() {
	configFile := flag.String("config", "", "optional config file layered under the environment")
	flag.Parse()

	// a missing .env is fine, the environment may carry everything
	_ = godotenv.Load()

	cfg, err := config.Load(*configFile)
	if err != nil {
		bootLog := logging.New("info", "json", os.Stderr)
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("storefront")
	}
	log.Info().Msg("server stopped")
}

// run owns every resource it opens and releases them before returning.
func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open %s state store: %w", cfg.StoreDriver, err)
	}
	defer closeStore()

	publisher := events.Publisher(events.NopPublisher{})
	if cfg.KafkaEnabled() {
		kp, err := events.NewKafkaPublisher(events.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		}, log)
		if err != nil {
			return fmt.Errorf("kafka publisher: %w", err)
		}
		publisher = kp
	}
	defer publisher.Close()

	backend, err := client.New(cfg.BackendURL,
		client.WithTimeout(cfg.BackendTimeout),
		client.WithLogger(log.With().Str("component", "backend").Logger()),
	)
	if err != nil {
		return fmt.Errorf("backend client: %w", err)
	}

	reg := shopper.NewRegistry(backend, store,
		shopper.WithStateTTL(cfg.StateTTL),
		shopper.WithPublisher(publisher),
		shopper.WithLogger(log),
	)
	go reg.Run(ctx, time.Minute, cfg.IdleTimeout)

	handler := api.NewRouter(reg, api.Options{Logger: log, CookieSecure: cfg.CookieSecure})

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// graceful shutdown
	idleConnsClosed := make(chan struct{})
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown")
		}
		close(idleConnsClosed)
	}()

	log.Info().Str("addr", srv.Addr).Str("backend", cfg.BackendURL).Str("store", cfg.StoreDriver).Msg("starting storefront")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}

	<-idleConnsClosed
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storage.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverRedis:
		rs := storage.NewRedisStore(cfg.RedisAddr, "storefront:",
			storage.WithRedisPassword(cfg.RedisPassword),
			storage.WithRedisDB(cfg.RedisDB),
		)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rs.Ping(pingCtx); err != nil {
			_ = rs.Close()
			return nil, nil, err
		}
		return rs, func() { _ = rs.Close() }, nil

	case config.DriverPostgres:
		conn, err := db.NewPostgresConnection(ctx, cfg.Postgres())
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(conn); err != nil {
			_ = conn.Close()
			return nil, nil, err
		}
		ps := storage.NewPostgresStore(conn)
		go purgeLoop(ctx, ps, log)
		return ps, func() { _ = conn.Close() }, nil
	}
	return storage.NewMemoryStore(), func() {}, nil
}

// purgeLoop deletes expired rows; reads already ignore them.
func purgeLoop(ctx context.Context, ps *storage.PostgresStore, log zerolog.Logger) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := ps.PurgeExpired(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("purge expired state")
				continue
			}
			if n > 0 {
				log.Debug().Int64("rows", n).Msg("purged expired state")
			}
		}
	}
}

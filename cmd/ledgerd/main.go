package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/aman-zulfiqar/redz-ledger/internal/config"
	"github.com/aman-zulfiqar/redz-ledger/internal/events"
	"github.com/aman-zulfiqar/redz-ledger/internal/flags"
	"github.com/aman-zulfiqar/redz-ledger/internal/genesis"
	"github.com/aman-zulfiqar/redz-ledger/internal/ledger"
	"github.com/aman-zulfiqar/redz-ledger/internal/processor"
	"github.com/aman-zulfiqar/redz-ledger/internal/server"
	"github.com/aman-zulfiqar/redz-ledger/internal/store"
	"github.com/benbjohnson/clock"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	// Get the project root directory (where go.mod is)
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// main wires the ledger: account store, policy flags, event fan-out, the
// transaction processor and the HTTP API, and runs them until a signal arrives.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if cfg.DevMode {
		logger.SetLevel(logrus.DebugLevel)
	}
	programID, _ := cfg.Program()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown (Ctrl+C, SIGTERM)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Redis backs policy flags and the event stream, and optionally accounts
	rclient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rclient.Close()
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}

	var accounts store.AccountStore
	switch cfg.StoreBackend {
	case config.StoreRedis:
		rs, err := store.NewRedisStore(rclient, store.RedisConfig{
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
			Logger:       logger,
		})
		if err != nil {
			logger.WithError(err).Fatal("failed to create account store")
		}
		accounts = rs
	default:
		logger.Warn("using in-memory account store; state is lost on exit")
		accounts = store.NewMemoryStore()
	}
	defer accounts.Close()

	if cfg.GenesisPath != "" {
		g, err := genesis.Load(cfg.GenesisPath)
		if err != nil {
			logger.WithError(err).Fatal("failed to load genesis")
		}
		if err := g.Apply(ctx, accounts, logger); err != nil {
			logger.WithError(err).Fatal("failed to apply genesis")
		}
	}

	flagStore, err := flags.NewStore(rclient)
	if err != nil {
		logger.WithError(err).Fatal("failed to create flags store")
	}
	policy := flags.NewPolicySource(flagStore, ledger.Policy{
		AllowOversubscription:        cfg.AllowOversubscription,
		AllowUndersubscribedFinalize: cfg.AllowUndersubscribedFinalize,
	}, logger)

	publisher, err := events.NewPublisher(rclient, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to create event publisher")
	}
	sinks := events.Fanout{publisher}

	// ClickHouse archiving is optional
	if cfg.ClickHouseAddr != "" {
		ch, err := events.NewClickHouseStore(ctx, events.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
			Logger:   logger,
		})
		if err != nil {
			logger.WithError(err).Warn("clickhouse unavailable, event history disabled")
		} else {
			defer ch.Close()
			if err := ch.EnsureSchema(ctx); err != nil {
				logger.WithError(err).Fatal("failed to create clickhouse schema")
			}
			sinks = append(sinks, ch)
		}
	}

	proc, err := processor.New(processor.Config{
		ProgramID: programID,
		Store:     accounts,
		Clock:     clock.New(),
		Policy:    policy,
		Sink:      sinks,
		Logger:    logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create processor")
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: &server.Handlers{
			Processor: proc,
			Store:     accounts,
			Events:    publisher,
			Flags:     flagStore,
			DevMode:   cfg.DevMode,
			Logger:    logger,
		},
		Config: server.ServerConfig{
			Addr:      cfg.APIAddr,
			DevMode:   cfg.DevMode,
			APIKey:    cfg.APIKey,
			RateLimit: rate.Limit(cfg.RateLimitRPS),
			RateBurst: cfg.RateBurst,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.WithFields(logrus.Fields{
			"addr":       cfg.APIAddr,
			"program_id": programID,
			"store":      cfg.StoreBackend,
		}).Info("ledgerd starting")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		select {
		case <-sigCh:
			logger.Info("shutting down")
		case <-gctx.Done():
		}
		cancel()
		return srv.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Fatal("ledgerd failed")
	}

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer waitCancel()
	if err := srv.WaitClosed(waitCtx); err != nil {
		logger.WithError(err).Warn("server did not close cleanly")
	}
}

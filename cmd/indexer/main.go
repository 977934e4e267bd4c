// indexer archives the live ledger event stream into ClickHouse for
// deployments where ledgerd itself does not write history.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/aman-zulfiqar/redz-ledger/internal/config"
	"github.com/aman-zulfiqar/redz-ledger/internal/constants"
	"github.com/aman-zulfiqar/redz-ledger/internal/events"
	"github.com/aman-zulfiqar/redz-ledger/internal/models"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	flushInterval = time.Second
	flushSize     = 500
)

type Indexer struct {
	clickhouse *events.ClickHouseStore
	logger     *logrus.Logger
	pending    chan models.LedgerEvent
}

func NewIndexer(ch *events.ClickHouseStore, logger *logrus.Logger) *Indexer {
	return &Indexer{
		clickhouse: ch,
		logger:     logger,
		pending:    make(chan models.LedgerEvent, flushSize*4),
	}
}

// Enqueue is the subscription handler. It drops events when the buffer is
// full rather than stalling the Redis connection.
func (idx *Indexer) Enqueue(ev *models.LedgerEvent) {
	select {
	case idx.pending <- *ev:
	default:
		idx.logger.WithField("signature", ev.Signature).Warn("indexer buffer full, event dropped")
	}
}

// Run flushes buffered events to ClickHouse until ctx is done.
func (idx *Indexer) Run(ctx context.Context) error {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]models.LedgerEvent, 0, flushSize)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := idx.clickhouse.InsertEvents(ctx, batch); err != nil {
			idx.logger.WithError(err).WithField("events", len(batch)).Error("clickhouse insert failed")
		} else {
			idx.logger.WithField("events", len(batch)).Debug("events archived")
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			flush(drainCtx)
			cancel()
			return nil
		case ev := <-idx.pending:
			batch = append(batch, ev)
			if len(batch) >= flushSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		}
	}
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	_, filename, _, _ := runtime.Caller(0)
	if err := godotenv.Load(filepath.Join(filepath.Dir(filename), "../..", ".env")); err != nil {
		logger.Debug("no .env file, using system environment variables")
	}

	cfg := config.Load()
	if cfg.ClickHouseAddr == "" {
		logger.Fatal("CLICKHOUSE_ADDR is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	rclient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer rclient.Close()

	ch, err := events.NewClickHouseStore(ctx, events.ClickHouseConfig{
		Addr:     cfg.ClickHouseAddr,
		Database: cfg.ClickHouseDatabase,
		Username: cfg.ClickHouseUsername,
		Password: cfg.ClickHousePassword,
		Logger:   logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to clickhouse")
	}
	defer ch.Close()
	if err := ch.EnsureSchema(ctx); err != nil {
		logger.WithError(err).Fatal("failed to create clickhouse schema")
	}

	publisher, err := events.NewPublisher(rclient, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to create subscriber")
	}

	indexer := NewIndexer(ch, logger)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return indexer.Run(gctx) })
	g.Go(func() error {
		err := publisher.Subscribe(gctx, constants.ChannelAllEvents, indexer.Enqueue)
		if gctx.Err() != nil {
			return nil
		}
		return err
	})
	g.Go(func() error {
		select {
		case <-sigChan:
			logger.Info("shutting down indexer")
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	logger.Info("indexer running")
	if err := g.Wait(); err != nil {
		logger.WithError(err).Fatal("indexer failed")
	}
}

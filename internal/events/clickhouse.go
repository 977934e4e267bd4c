package events

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/aman-zulfiqar/redz-ledger/internal/models"
	"github.com/sirupsen/logrus"
)

type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

// ClickHouseStore archives executed instructions for history queries.
type ClickHouseStore struct {
	conn   driver.Conn
	logger *logrus.Logger
}

const createEventsTable = `
	CREATE TABLE IF NOT EXISTS ledger_events (
		signature   String,
		ix_index    UInt16,
		timestamp   DateTime64(3, 'UTC'),
		instruction LowCardinality(String),
		signer      String,
		subject     String,
		direction   LowCardinality(String),
		amount_a    UInt64,
		amount_b    UInt64,
		amount_in   UInt64,
		amount_out  UInt64,
		lp_amount   UInt64,
		written     Array(String)
	) ENGINE = ReplacingMergeTree
	ORDER BY (subject, timestamp, signature, ix_index)
`

const insertEvents = `
	INSERT INTO ledger_events (
		signature, ix_index, timestamp, instruction, signer, subject, direction,
		amount_a, amount_b, amount_in, amount_out, lp_amount, written
	)
`

func NewClickHouseStore(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseStore, error) {
	if cfg.Database == "" {
		cfg.Database = "default"
	}
	if cfg.Username == "" {
		cfg.Username = "default"
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	cfg.Logger.WithField("addr", cfg.Addr).Info("connected to ClickHouse")
	return &ClickHouseStore{conn: conn, logger: cfg.Logger}, nil
}

func (c *ClickHouseStore) EnsureSchema(ctx context.Context) error {
	if err := c.conn.Exec(ctx, createEventsTable); err != nil {
		return fmt.Errorf("create ledger_events: %w", err)
	}
	return nil
}

// Publish lets the store act as an event sink.
func (c *ClickHouseStore) Publish(ctx context.Context, events []models.LedgerEvent) error {
	return c.InsertEvents(ctx, events)
}

func (c *ClickHouseStore) InsertEvents(ctx context.Context, events []models.LedgerEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch, err := c.conn.PrepareBatch(ctx, insertEvents)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	for _, ev := range events {
		written := ev.Written
		if written == nil {
			written = []string{}
		}
		err := batch.Append(
			ev.Signature,
			ev.Index,
			ev.Timestamp,
			ev.Instruction,
			ev.Signer,
			ev.Subject,
			ev.Direction,
			ev.AmountA,
			ev.AmountB,
			ev.AmountIn,
			ev.AmountOut,
			ev.LpAmount,
			written,
		)
		if err != nil {
			return fmt.Errorf("append event %s/%d: %w", ev.Signature, ev.Index, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to insert events: %w", err)
	}
	return nil
}

func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}

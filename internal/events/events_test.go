package events

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/aman-zulfiqar/redz-ledger/internal/constants"
	"github.com/aman-zulfiqar/redz-ledger/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   3,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	require.NoError(t, client.FlushDB(ctx).Err())

	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	return client
}

func sampleEvent(sig string) models.LedgerEvent {
	return models.LedgerEvent{
		Signature:   sig,
		Timestamp:   time.Unix(1_700_000_000, 0).UTC(),
		Instruction: "Swap",
		Signer:      "user",
		Subject:     "pool",
		Direction:   "a_to_b",
		AmountIn:    1000,
		AmountOut:   493,
		Written:     []string{"pool"},
	}
}

func TestChannels(t *testing.T) {
	ev := sampleEvent("s")
	assert.Equal(t, []string{"ledger:all", "ledger:ix:Swap", "ledger:account:pool"}, Channels(&ev))

	ev.Subject = ""
	assert.Equal(t, []string{"ledger:all", "ledger:ix:Swap"}, Channels(&ev))
}

type stubSink struct {
	got []models.LedgerEvent
	err error
}

func (s *stubSink) Publish(_ context.Context, events []models.LedgerEvent) error {
	s.got = append(s.got, events...)
	return s.err
}

func TestFanout(t *testing.T) {
	ok := &stubSink{}
	failing := &stubSink{err: errors.New("down")}
	f := Fanout{failing, ok}

	err := f.Publish(context.Background(), []models.LedgerEvent{sampleEvent("a")})
	assert.ErrorContains(t, err, "down")
	assert.Len(t, ok.got, 1, "a failing sink must not starve the others")
	assert.Len(t, failing.got, 1)

	assert.NoError(t, Fanout{ok}.Publish(context.Background(), nil))
}

func TestPublisher_PublishAndRecent(t *testing.T) {
	client := setupTestRedis(t)
	pub, err := NewPublisher(client, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan *models.LedgerEvent, 4)
	subCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		_ = pub.PSubscribe(subCtx, constants.ChannelInstructionPrefix+"*", func(ev *models.LedgerEvent) {
			received <- ev
		})
	}()

	// wait for the subscription to register
	require.Eventually(t, func() bool {
		n, err := client.PubSubNumPat(ctx).Result()
		return err == nil && n > 0
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, pub.Publish(ctx, []models.LedgerEvent{sampleEvent("one"), sampleEvent("two")}))

	select {
	case ev := <-received:
		assert.Equal(t, "one", ev.Signature)
		assert.Equal(t, uint64(493), ev.AmountOut)
	case <-ctx.Done():
		t.Fatal("event not received")
	}

	recent, err := pub.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "two", recent[0].Signature)
}

func TestPublisher_RecentIsCapped(t *testing.T) {
	client := setupTestRedis(t)
	pub, err := NewPublisher(client, nil)
	require.NoError(t, err)

	ctx := context.Background()
	batch := make([]models.LedgerEvent, constants.MaxRecentEvents+5)
	for i := range batch {
		batch[i] = sampleEvent("s")
	}
	require.NoError(t, pub.Publish(ctx, batch))

	n, err := client.LLen(ctx, constants.RedisKeyRecentEvents).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(constants.MaxRecentEvents), n)
}

func TestClickHouseStore_Insert(t *testing.T) {
	addr := os.Getenv("CLICKHOUSE_TEST_ADDR")
	if addr == "" {
		t.Skip("CLICKHOUSE_TEST_ADDR not set")
	}
	ctx := context.Background()
	store, err := NewClickHouseStore(ctx, ClickHouseConfig{Addr: addr})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.InsertEvents(ctx, []models.LedgerEvent{sampleEvent("ch-test")}))
}

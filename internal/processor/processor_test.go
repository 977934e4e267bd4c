package processor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aman-zulfiqar/redz-ledger/internal/models"
	"github.com/aman-zulfiqar/redz-ledger/internal/store"
	"github.com/aman-zulfiqar/redz-ledger/internal/token"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stallingSink blocks its first Publish until release is closed.
type stallingSink struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (s *stallingSink) Publish(ctx context.Context, _ []models.LedgerEvent) error {
	if s.calls.Add(1) == 1 {
		close(s.entered)
		select {
		case <-s.release:
		case <-ctx.Done():
		}
	}
	return nil
}

func TestProcess_SlowSinkDoesNotHoldAccounts(t *testing.T) {
	h := newHarness(t)
	h.initConfig(30, 0, 1)
	f := h.createPool(30)
	tr := h.newTrader(f, 1_000_000, 1_000_000)
	h.mustProcess(h.addLiquidityIx(f, tr, 100_000, 100_000))

	sink := &stallingSink{entered: make(chan struct{}), release: make(chan struct{})}
	h.proc.sink = sink

	first := make(chan error, 1)
	go func() {
		_, err := h.process(h.swapIx(f, tr, true, 1000, 0))
		first <- err
	}()
	select {
	case <-sink.entered:
	case <-time.After(time.Second):
		t.Fatal("first swap never reached the sink")
	}

	second := make(chan error, 1)
	go func() {
		_, err := h.process(h.swapIx(f, tr, false, 1000, 0))
		second <- err
	}()
	select {
	case err := <-second:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("second swap waited for the first one's events")
	}

	close(sink.release)
	require.NoError(t, <-first)
	assert.Equal(t, int32(2), sink.calls.Load())
}

// racingStore lets another writer change the store right before the first
// commit, after the processor has read its accounts.
type racingStore struct {
	*store.MemoryStore
	once   sync.Once
	before func()
}

func (r *racingStore) Commit(ctx context.Context, batch store.Batch) error {
	r.once.Do(r.before)
	return r.MemoryStore.Commit(ctx, batch)
}

func TestProcess_ConcurrentWriterConflicts(t *testing.T) {
	h := newHarness(t)
	h.initConfig(30, 0, 1)
	f := h.createPool(30)
	tr := h.newTrader(f, 1_000_000, 1_000_000)
	h.mustProcess(h.addLiquidityIx(f, tr, 100_000, 100_000))
	before := *h.poolState(f.key)

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	racing := &racingStore{MemoryStore: h.store}
	racing.before = func() {
		// another ledger instance spends part of the trader's balance
		h.seed(tr.a, token.ProgramID, &token.Account{Mint: f.mintA, Owner: tr.key, Amount: 10})
	}
	proc, err := New(Config{
		ProgramID: h.program,
		Store:     racing,
		Clock:     h.clock,
		Policy:    h.policy,
		Logger:    logger,
	})
	require.NoError(t, err)

	_, err = proc.Process(context.Background(), "raced", []solana.Instruction{h.swapIx(f, tr, true, 1000, 0)})
	require.ErrorIs(t, err, store.ErrConflict)

	assert.Equal(t, before, *h.poolState(f.key), "conflicting swap must not be applied")
	assert.Equal(t, uint64(10), h.balance(tr.a))
	seen, err := h.store.Seen(context.Background(), "raced")
	require.NoError(t, err)
	assert.False(t, seen)

	// resubmitting against the current state goes through
	_, err = proc.Process(context.Background(), "raced", []solana.Instruction{h.swapIx(f, tr, true, 10, 0)})
	require.NoError(t, err)
	assert.Zero(t, h.balance(tr.a))
}

// Package processor executes ledger instructions. It validates the accounts
// each instruction names, applies the pool, launch and config rules to
// working copies, moves tokens, and commits every written account in one
// atomic batch.
package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/redz-ledger/internal/instruction"
	"github.com/aman-zulfiqar/redz-ledger/internal/ledger"
	"github.com/aman-zulfiqar/redz-ledger/internal/ledgererr"
	"github.com/aman-zulfiqar/redz-ledger/internal/models"
	"github.com/aman-zulfiqar/redz-ledger/internal/store"
	"github.com/aman-zulfiqar/redz-ledger/internal/token"
	"github.com/benbjohnson/clock"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// PolicySource supplies the launch policy in force for a transaction.
type PolicySource interface {
	Policy(ctx context.Context) (ledger.Policy, error)
}

// StaticPolicy is a PolicySource that never changes.
type StaticPolicy ledger.Policy

func (p StaticPolicy) Policy(context.Context) (ledger.Policy, error) {
	return ledger.Policy(p), nil
}

// EventSink receives the events of every committed transaction.
type EventSink interface {
	Publish(ctx context.Context, events []models.LedgerEvent) error
}

type Config struct {
	ProgramID solana.PublicKey
	Store     store.AccountStore
	Clock     clock.Clock
	Policy    PolicySource
	Sink      EventSink
	Logger    *logrus.Logger
}

type Processor struct {
	programID solana.PublicKey
	store     store.AccountStore
	clock     clock.Clock
	policy    PolicySource
	sink      EventSink
	logger    *logrus.Logger
	locks     *lockManager

	configAddress solana.PublicKey
}

// Result is what a committed transaction wrote.
type Result struct {
	Signature string                               `json:"signature"`
	Timestamp time.Time                            `json:"timestamp"`
	Events    []models.LedgerEvent                 `json:"events"`
	Accounts  map[solana.PublicKey]*store.Account `json:"-"`
}

func New(cfg Config) (*Processor, error) {
	if cfg.ProgramID.IsZero() {
		return nil, fmt.Errorf("program id is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("account store is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Policy == nil {
		cfg.Policy = StaticPolicy{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	configAddress, _, err := ledger.FindConfigAddress(cfg.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("derive config address: %w", err)
	}

	return &Processor{
		programID:     cfg.ProgramID,
		store:         cfg.Store,
		clock:         cfg.Clock,
		policy:        cfg.Policy,
		sink:          cfg.Sink,
		logger:        cfg.Logger,
		locks:         newLockManager(cfg.ProgramID, token.ProgramID, solana.SystemProgramID),
		configAddress: configAddress,
	}, nil
}

func (p *Processor) ProgramID() solana.PublicKey { return p.programID }

// Process executes instructions as one transaction. Either every instruction
// succeeds and all writes are committed, or nothing is. A non-empty signature
// is recorded so the same transaction cannot be applied twice.
func (p *Processor) Process(ctx context.Context, signature string, ixs []solana.Instruction) (*Result, error) {
	if len(ixs) == 0 {
		return nil, ledgererr.Wrap(ledgererr.ErrInvalidInstruction, "transaction has no ledger instructions")
	}

	decoded := make([]instruction.Instruction, len(ixs))
	var (
		keys  []solana.PublicKey
		metas []*solana.AccountMeta
	)
	for i, ix := range ixs {
		if !ix.ProgramID().Equals(p.programID) {
			return nil, ledgererr.Wrap(ledgererr.ErrIncorrectProgramID, "instruction %d targets %s", i, ix.ProgramID())
		}
		data, err := ix.Data()
		if err != nil {
			return nil, ledgererr.Wrap(ledgererr.ErrInvalidInstructionData, "instruction %d: %v", i, err)
		}
		decoded[i], err = instruction.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		for _, m := range ix.Accounts() {
			keys = append(keys, m.PublicKey)
			metas = append(metas, m)
		}
	}

	if signature != "" {
		seen, err := p.store.Seen(ctx, signature)
		if err != nil {
			return nil, fmt.Errorf("check signature: %w", err)
		}
		if seen {
			return nil, ledgererr.Wrap(ledgererr.ErrDuplicateTransaction, "%s", signature)
		}
	}

	locked := p.locks.lockSet(metas)
	release := p.locks.acquire(metas)
	defer release()

	policy, err := p.policy.Policy(ctx)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}

	loaded, err := p.store.GetMany(ctx, sortedUnique(keys))
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}

	ts := p.clock.Now().UTC()
	now := uint64(0)
	if ts.Unix() > 0 {
		now = uint64(ts.Unix())
	}

	ws := newWorkingSet(loaded)
	events := make([]models.LedgerEvent, 0, len(ixs))
	for i, ix := range ixs {
		c := &ixContext{
			p:      p,
			ws:     ws,
			metas:  ix.Accounts(),
			now:    now,
			policy: policy,
			event: models.LedgerEvent{
				Signature:   signature,
				Index:       uint16(i),
				Timestamp:   ts,
				Instruction: decoded[i].Opcode().String(),
			},
		}
		if err := c.execute(decoded[i]); err != nil {
			p.logger.WithFields(logrus.Fields{
				"signature":   signature,
				"index":       i,
				"instruction": decoded[i].Opcode().String(),
			}).WithError(err).Debug("instruction rejected")
			return nil, fmt.Errorf("instruction %d (%s): %w", i, decoded[i].Opcode(), err)
		}
		events = append(events, c.event)
	}

	writes, err := ws.changes()
	if err != nil {
		return nil, fmt.Errorf("encode accounts: %w", err)
	}

	writeLocked := make(map[solana.PublicKey]bool, len(locked))
	for _, r := range locked {
		writeLocked[r.key] = r.writable
	}
	expect := make(map[solana.PublicKey]*store.Account, len(writes))
	for k := range writes {
		if !writeLocked[k] {
			return nil, ledgererr.Wrap(ledgererr.ErrAccountNotWritable, "%s", k)
		}
		expect[k] = loaded[k]
	}

	err = p.store.Commit(ctx, store.Batch{Signature: signature, Writes: writes, Expect: expect})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ledgererr.Wrap(ledgererr.ErrDuplicateTransaction, "%s", signature)
	}
	if err != nil {
		return nil, fmt.Errorf("commit accounts: %w", err)
	}
	// events go out after the accounts are free again
	release()

	written := make([]string, 0, len(writes))
	for k := range writes {
		written = append(written, k.String())
	}
	for i := range events {
		events[i].Written = written
	}

	p.logger.WithFields(logrus.Fields{
		"signature":    signature,
		"instructions": len(ixs),
		"accounts":     len(writes),
	}).Info("transaction committed")

	if p.sink != nil {
		if err := p.sink.Publish(ctx, events); err != nil {
			p.logger.WithError(err).WithField("signature", signature).Warn("failed to publish ledger events")
		}
	}

	return &Result{Signature: signature, Timestamp: ts, Events: events, Accounts: writes}, nil
}

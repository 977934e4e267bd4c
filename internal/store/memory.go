package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// MemoryStore keeps accounts in process memory.
type MemoryStore struct {
	mu         sync.RWMutex
	accounts   map[solana.PublicKey]*Account
	signatures map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:   make(map[solana.PublicKey]*Account),
		signatures: make(map[string]struct{}),
	}
}

func (m *MemoryStore) Get(_ context.Context, key solana.PublicKey) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acct, ok := m.accounts[key]
	if !ok {
		return nil, ErrNotFound
	}
	return acct.Clone(), nil
}

func (m *MemoryStore) GetMany(_ context.Context, keys []solana.PublicKey) (map[solana.PublicKey]*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[solana.PublicKey]*Account, len(keys))
	for _, k := range keys {
		if acct, ok := m.accounts[k]; ok {
			out[k] = acct.Clone()
		}
	}
	return out, nil
}

func (m *MemoryStore) Seen(_ context.Context, signature string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.signatures[signature]
	return ok, nil
}

func (m *MemoryStore) Commit(_ context.Context, batch Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if batch.Signature != "" {
		if _, ok := m.signatures[batch.Signature]; ok {
			return ErrDuplicate
		}
	}
	for k, want := range batch.Expect {
		if !matches(want, m.accounts[k]) {
			return fmt.Errorf("%w: %s", ErrConflict, k)
		}
	}
	if batch.Signature != "" {
		m.signatures[batch.Signature] = struct{}{}
	}
	for k, acct := range batch.Writes {
		m.accounts[k] = acct.Clone()
	}
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

package processor

import (
	"bytes"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// lockManager hands out per-account reader/writer locks. A transaction write
// locks the accounts it may modify and read locks the rest, always in
// ascending key order, so two transactions never wait on each other in a
// cycle. Program keys hold no ledger state and are never locked.
type lockManager struct {
	mu       sync.Mutex
	locks    map[solana.PublicKey]*keyLock
	programs map[solana.PublicKey]struct{}
}

type keyLock struct {
	mu   sync.RWMutex
	refs int
}

type lockRequest struct {
	key      solana.PublicKey
	writable bool
}

func newLockManager(programs ...solana.PublicKey) *lockManager {
	m := &lockManager{
		locks:    make(map[solana.PublicKey]*keyLock),
		programs: make(map[solana.PublicKey]struct{}, len(programs)),
	}
	for _, p := range programs {
		m.programs[p] = struct{}{}
	}
	return m
}

// lockSet merges metas into one request per key. A key named writable by any
// meta is write locked.
func (m *lockManager) lockSet(metas []*solana.AccountMeta) []lockRequest {
	writable := make(map[solana.PublicKey]bool, len(metas))
	keys := make([]solana.PublicKey, 0, len(metas))
	for _, meta := range metas {
		if _, ok := m.programs[meta.PublicKey]; ok {
			continue
		}
		if _, ok := writable[meta.PublicKey]; !ok {
			keys = append(keys, meta.PublicKey)
		}
		writable[meta.PublicKey] = writable[meta.PublicKey] || meta.IsWritable
	}

	ordered := sortedUnique(keys)
	out := make([]lockRequest, len(ordered))
	for i, k := range ordered {
		out[i] = lockRequest{key: k, writable: writable[k]}
	}
	return out
}

// acquire blocks until every account in metas is held and returns the release
// func. Release is safe to call more than once.
func (m *lockManager) acquire(metas []*solana.AccountMeta) func() {
	reqs := m.lockSet(metas)

	held := make([]*keyLock, 0, len(reqs))
	for _, r := range reqs {
		m.mu.Lock()
		l, ok := m.locks[r.key]
		if !ok {
			l = &keyLock{}
			m.locks[r.key] = l
		}
		l.refs++
		m.mu.Unlock()

		if r.writable {
			l.mu.Lock()
		} else {
			l.mu.RLock()
		}
		held = append(held, l)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(held) - 1; i >= 0; i-- {
				if reqs[i].writable {
					held[i].mu.Unlock()
				} else {
					held[i].mu.RUnlock()
				}
			}
			m.mu.Lock()
			for i, l := range held {
				l.refs--
				if l.refs == 0 {
					delete(m.locks, reqs[i].key)
				}
			}
			m.mu.Unlock()
		})
	}
}

func sortedUnique(keys []solana.PublicKey) []solana.PublicKey {
	seen := make(map[solana.PublicKey]struct{}, len(keys))
	out := make([]solana.PublicKey, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

package processor

import (
	"bytes"
	"encoding"

	"github.com/aman-zulfiqar/redz-ledger/internal/ledgererr"
	"github.com/aman-zulfiqar/redz-ledger/internal/store"
	"github.com/gagliardetto/solana-go"
)

type binaryValue interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

type entry struct {
	owner solana.PublicKey
	value binaryValue
}

// workingSet holds decoded copies of every account a transaction touches.
// Nothing reaches the store until changes() is committed, so a failed
// instruction leaves persisted state untouched.
type workingSet struct {
	loaded  map[solana.PublicKey]*store.Account
	entries map[solana.PublicKey]*entry
}

func newWorkingSet(loaded map[solana.PublicKey]*store.Account) *workingSet {
	return &workingSet{
		loaded:  loaded,
		entries: make(map[solana.PublicKey]*entry),
	}
}

func (ws *workingSet) exists(key solana.PublicKey) bool {
	if _, ok := ws.entries[key]; ok {
		return true
	}
	_, ok := ws.loaded[key]
	return ok
}

// load decodes key as a T owned by owner. found is false when the account has
// never been written.
func load[T any, PT interface {
	*T
	binaryValue
}](ws *workingSet, key, owner solana.PublicKey) (PT, bool, error) {
	if e, ok := ws.entries[key]; ok {
		v, ok := e.value.(PT)
		if !ok {
			return nil, false, ledgererr.Wrap(ledgererr.ErrInvalidAccountData, "account %s has a different type", key)
		}
		if !e.owner.Equals(owner) {
			return nil, false, ledgererr.Wrap(ledgererr.ErrInvalidAccountOwner, "account %s owned by %s", key, e.owner)
		}
		return v, true, nil
	}

	raw, ok := ws.loaded[key]
	if !ok {
		return nil, false, nil
	}
	if !raw.Owner.Equals(owner) {
		return nil, false, ledgererr.Wrap(ledgererr.ErrInvalidAccountOwner, "account %s owned by %s", key, raw.Owner)
	}
	v := PT(new(T))
	if err := v.UnmarshalBinary(raw.Data); err != nil {
		return nil, false, err
	}
	ws.entries[key] = &entry{owner: owner, value: v}
	return v, true, nil
}

// loadOrNew is load that registers a zero value for a missing account.
func loadOrNew[T any, PT interface {
	*T
	binaryValue
}](ws *workingSet, key, owner solana.PublicKey) (PT, error) {
	v, found, err := load[T, PT](ws, key, owner)
	if err != nil {
		return nil, err
	}
	if !found {
		v = PT(new(T))
		ws.entries[key] = &entry{owner: owner, value: v}
	}
	return v, nil
}

// create registers a brand new account; key must not exist yet.
func (ws *workingSet) create(key, owner solana.PublicKey, v binaryValue) error {
	if ws.exists(key) {
		return ledgererr.Wrap(ledgererr.ErrAlreadyInitialized, "account %s already exists", key)
	}
	ws.entries[key] = &entry{owner: owner, value: v}
	return nil
}

// changes encodes every entry and returns the ones whose bytes differ from
// what was loaded.
func (ws *workingSet) changes() (map[solana.PublicKey]*store.Account, error) {
	out := make(map[solana.PublicKey]*store.Account)
	for key, e := range ws.entries {
		data, err := e.value.MarshalBinary()
		if err != nil {
			return nil, err
		}
		if prev, ok := ws.loaded[key]; ok && prev.Owner.Equals(e.owner) && bytes.Equal(prev.Data, data) {
			continue
		}
		out[key] = &store.Account{Owner: e.owner, Data: data}
	}
	return out, nil
}

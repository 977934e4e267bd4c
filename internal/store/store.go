package store

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/gagliardetto/solana-go"
)

// ErrNotFound is returned when an account has never been written.
var ErrNotFound = errors.New("account not found")

// Account is the stored form of any ledger account: the owning program and
// its raw bytes.
type Account struct {
	Owner solana.PublicKey
	Data  []byte
}

// Clone returns a deep copy so callers can mutate working state freely.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	data := make([]byte, len(a.Data))
	copy(data, a.Data)
	return &Account{Owner: a.Owner, Data: data}
}

// Batch is the set of account writes produced by one transaction.
type Batch struct {
	// Signature identifies the transaction; empty batches skip replay tracking.
	Signature string
	Writes    map[solana.PublicKey]*Account
	// Expect holds the state each written account was read in; a nil entry
	// means the account must still be missing. Keys absent from Expect are
	// written unconditionally.
	Expect map[solana.PublicKey]*Account
}

// matches reports whether cur is the state e expects.
func matches(e, cur *Account) bool {
	if e == nil || cur == nil {
		return e == nil && cur == nil
	}
	return e.Owner.Equals(cur.Owner) && bytes.Equal(e.Data, cur.Data)
}

// AccountStore persists ledger accounts.
type AccountStore interface {
	// Get returns ErrNotFound for missing accounts.
	Get(ctx context.Context, key solana.PublicKey) (*Account, error)

	// GetMany omits missing accounts from the result.
	GetMany(ctx context.Context, keys []solana.PublicKey) (map[solana.PublicKey]*Account, error)

	// Seen reports whether a transaction signature was already committed.
	Seen(ctx context.Context, signature string) (bool, error)

	// Commit applies every write in the batch or none of them. It fails with
	// ErrDuplicate if the batch signature was committed before and with
	// ErrConflict if an account no longer matches batch.Expect.
	Commit(ctx context.Context, batch Batch) error

	Ping(ctx context.Context) error

	io.Closer
}

// ErrDuplicate is returned by Commit for a replayed signature.
var ErrDuplicate = errors.New("transaction already committed")

// ErrConflict is returned by Commit when an account changed after the batch
// read it. Nothing is written and the transaction can be retried.
var ErrConflict = errors.New("account changed concurrently")

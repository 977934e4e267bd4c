// Package token models the subset of SPL token accounts and mints the ledger
// moves value through. Layouts match the leading fields of the SPL program's
// accounts so existing decoders can read them.
package token

import (
	"encoding/binary"

	"github.com/aman-zulfiqar/redz-ledger/internal/ledgererr"
	"github.com/gagliardetto/solana-go"
)

const (
	AccountSize = 72
	MintSize    = 42
)

// ProgramID owns every token account and mint.
var ProgramID = solana.TokenProgramID

// Account is a token balance held by Owner.
type Account struct {
	Mint   solana.PublicKey `json:"mint"`
	Owner  solana.PublicKey `json:"owner"`
	Amount uint64           `json:"amount"`
}

// Mint tracks supply and the only key allowed to mint or burn.
type Mint struct {
	Authority   solana.PublicKey `json:"authority"`
	Supply      uint64           `json:"supply"`
	Decimals    uint8            `json:"decimals"`
	Initialized bool             `json:"initialized"`
}

func (a *Account) MarshalBinary() ([]byte, error) {
	out := make([]byte, AccountSize)
	copy(out[0:32], a.Mint[:])
	copy(out[32:64], a.Owner[:])
	binary.LittleEndian.PutUint64(out[64:72], a.Amount)
	return out, nil
}

func (a *Account) UnmarshalBinary(data []byte) error {
	if len(data) < AccountSize {
		return ledgererr.Wrap(ledgererr.ErrInvalidAccountData, "token account: %d bytes", len(data))
	}
	a.Mint = solana.PublicKeyFromBytes(data[0:32])
	a.Owner = solana.PublicKeyFromBytes(data[32:64])
	a.Amount = binary.LittleEndian.Uint64(data[64:72])
	return nil
}

func (m *Mint) MarshalBinary() ([]byte, error) {
	out := make([]byte, MintSize)
	copy(out[0:32], m.Authority[:])
	binary.LittleEndian.PutUint64(out[32:40], m.Supply)
	out[40] = m.Decimals
	if m.Initialized {
		out[41] = 1
	}
	return out, nil
}

func (m *Mint) UnmarshalBinary(data []byte) error {
	if len(data) < MintSize {
		return ledgererr.Wrap(ledgererr.ErrInvalidAccountData, "mint: %d bytes", len(data))
	}
	m.Authority = solana.PublicKeyFromBytes(data[0:32])
	m.Supply = binary.LittleEndian.Uint64(data[32:40])
	m.Decimals = data[40]
	m.Initialized = data[41] == 1
	return nil
}

// Transfer moves amount from one account to another of the same mint.
// authority must own the source.
func Transfer(from, to *Account, authority solana.PublicKey, amount uint64) error {
	if !from.Mint.Equals(to.Mint) {
		return ledgererr.ErrMintMismatch
	}
	if !from.Owner.Equals(authority) {
		return ledgererr.Wrap(ledgererr.ErrOwnerMismatch, "source owned by %s", from.Owner)
	}
	if from.Amount < amount {
		return ledgererr.Wrap(ledgererr.ErrInsufficientFunds, "balance %d, need %d", from.Amount, amount)
	}
	if from == to {
		return nil
	}
	credited := to.Amount + amount
	if credited < to.Amount {
		return ledgererr.Wrap(ledgererr.ErrArithmeticOverflow, "token balance")
	}
	from.Amount -= amount
	to.Amount = credited
	return nil
}

// MintTo creates amount new tokens in to.
func MintTo(mintKey solana.PublicKey, m *Mint, to *Account, authority solana.PublicKey, amount uint64) error {
	if !m.Initialized {
		return ledgererr.ErrUninitialized
	}
	if !to.Mint.Equals(mintKey) {
		return ledgererr.ErrMintMismatch
	}
	if !m.Authority.Equals(authority) {
		return ledgererr.Wrap(ledgererr.ErrOwnerMismatch, "mint authority is %s", m.Authority)
	}
	supply := m.Supply + amount
	balance := to.Amount + amount
	if supply < m.Supply || balance < to.Amount {
		return ledgererr.Wrap(ledgererr.ErrArithmeticOverflow, "mint supply")
	}
	m.Supply, to.Amount = supply, balance
	return nil
}

// Burn destroys amount tokens held in from. owner must own from.
func Burn(mintKey solana.PublicKey, m *Mint, from *Account, owner solana.PublicKey, amount uint64) error {
	if !m.Initialized {
		return ledgererr.ErrUninitialized
	}
	if !from.Mint.Equals(mintKey) {
		return ledgererr.ErrMintMismatch
	}
	if !from.Owner.Equals(owner) {
		return ledgererr.Wrap(ledgererr.ErrOwnerMismatch, "source owned by %s", from.Owner)
	}
	if from.Amount < amount || m.Supply < amount {
		return ledgererr.Wrap(ledgererr.ErrInsufficientFunds, "balance %d, burn %d", from.Amount, amount)
	}
	from.Amount -= amount
	m.Supply -= amount
	return nil
}

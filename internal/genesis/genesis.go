// Package genesis seeds a fresh ledger with mints and token balances read
// from a YAML file.
package genesis

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aman-zulfiqar/redz-ledger/internal/store"
	"github.com/aman-zulfiqar/redz-ledger/internal/token"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Signature marks the genesis batch in the store so it is applied once.
const Signature = "genesis"

// File is the on-disk genesis format.
//
//	mints:
//	  - address: <base58>
//	    authority: <base58>
//	    decimals: 6
//	accounts:
//	  - address: <base58>
//	    mint: <base58>
//	    owner: <base58>
//	    amount: 1000000
type File struct {
	Mints    []MintSpec    `yaml:"mints"`
	Accounts []AccountSpec `yaml:"accounts"`
}

type MintSpec struct {
	Address   string `yaml:"address"`
	Authority string `yaml:"authority"`
	Decimals  uint8  `yaml:"decimals"`
}

type AccountSpec struct {
	Address string `yaml:"address"`
	Mint    string `yaml:"mint"`
	Owner   string `yaml:"owner"`
	Amount  uint64 `yaml:"amount"`
}

func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse genesis: %w", err)
	}
	return &f, nil
}

// Batch validates the file and renders it as store writes. Mint supply is the
// sum of the balances seeded for it.
func (f *File) Batch() (store.Batch, error) {
	writes := make(map[solana.PublicKey]*store.Account, len(f.Mints)+len(f.Accounts))
	mints := make(map[solana.PublicKey]*token.Mint, len(f.Mints))

	for i, m := range f.Mints {
		addr, err := parseKey(m.Address, "mints[%d].address", i)
		if err != nil {
			return store.Batch{}, err
		}
		authority, err := parseKey(m.Authority, "mints[%d].authority", i)
		if err != nil {
			return store.Batch{}, err
		}
		if _, dup := mints[addr]; dup {
			return store.Batch{}, fmt.Errorf("mints[%d]: duplicate address %s", i, addr)
		}
		mints[addr] = &token.Mint{Authority: authority, Decimals: m.Decimals, Initialized: true}
	}

	for i, a := range f.Accounts {
		addr, err := parseKey(a.Address, "accounts[%d].address", i)
		if err != nil {
			return store.Batch{}, err
		}
		mintKey, err := parseKey(a.Mint, "accounts[%d].mint", i)
		if err != nil {
			return store.Batch{}, err
		}
		owner, err := parseKey(a.Owner, "accounts[%d].owner", i)
		if err != nil {
			return store.Batch{}, err
		}

		mint, ok := mints[mintKey]
		if !ok {
			return store.Batch{}, fmt.Errorf("accounts[%d]: unknown mint %s", i, mintKey)
		}
		if _, dup := mints[addr]; dup {
			return store.Batch{}, fmt.Errorf("accounts[%d]: address %s is a mint", i, addr)
		}
		if _, dup := writes[addr]; dup {
			return store.Batch{}, fmt.Errorf("accounts[%d]: duplicate address %s", i, addr)
		}
		if mint.Supply+a.Amount < mint.Supply {
			return store.Batch{}, fmt.Errorf("accounts[%d]: supply of %s overflows", i, mintKey)
		}
		mint.Supply += a.Amount

		data, _ := (&token.Account{Mint: mintKey, Owner: owner, Amount: a.Amount}).MarshalBinary()
		writes[addr] = &store.Account{Owner: token.ProgramID, Data: data}
	}

	for addr, m := range mints {
		data, _ := m.MarshalBinary()
		writes[addr] = &store.Account{Owner: token.ProgramID, Data: data}
	}

	return store.Batch{Signature: Signature, Writes: writes}, nil
}

// Apply commits the file to s. A store that already holds a genesis batch is
// left untouched.
func (f *File) Apply(ctx context.Context, s store.AccountStore, logger *logrus.Logger) error {
	if logger == nil {
		logger = logrus.New()
	}

	batch, err := f.Batch()
	if err != nil {
		return err
	}

	err = s.Commit(ctx, batch)
	if errors.Is(err, store.ErrDuplicate) {
		logger.Info("genesis already applied, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("commit genesis: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"mints":    len(f.Mints),
		"accounts": len(f.Accounts),
	}).Info("genesis applied")
	return nil
}

func parseKey(s, field string, i int) (solana.PublicKey, error) {
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf(field+": %w", i, err)
	}
	return pk, nil
}

package processor

import (
	"github.com/aman-zulfiqar/redz-ledger/internal/instruction"
	"github.com/aman-zulfiqar/redz-ledger/internal/ledger"
	"github.com/aman-zulfiqar/redz-ledger/internal/ledgererr"
	"github.com/aman-zulfiqar/redz-ledger/internal/models"
	"github.com/aman-zulfiqar/redz-ledger/internal/token"
	"github.com/gagliardetto/solana-go"
)

type role uint8

const (
	signerRole role = 1 << iota
	writableRole
)

// ixContext is the state one instruction executes against.
type ixContext struct {
	p      *Processor
	ws     *workingSet
	metas  []*solana.AccountMeta
	now    uint64
	policy ledger.Policy
	event  models.LedgerEvent
}

func (c *ixContext) execute(ix instruction.Instruction) error {
	switch ix := ix.(type) {
	case *instruction.InitializeConfig:
		return c.initializeConfig(ix)
	case *instruction.CreatePool:
		return c.createPool(ix)
	case *instruction.AddLiquidity:
		return c.addLiquidity(ix)
	case *instruction.RemoveLiquidity:
		return c.removeLiquidity(ix)
	case *instruction.Swap:
		return c.swap(ix)
	case *instruction.LaunchToken:
		return c.launchToken(ix)
	case *instruction.ParticipateInLaunch:
		return c.participate(ix)
	case *instruction.FinalizeTokenLaunch:
		return c.finalize()
	case *instruction.CloseTokenLaunch:
		return c.closeLaunch()
	case *instruction.WithdrawFees:
		return c.withdrawFees(ix)
	case *instruction.UpdateConfig:
		return c.updateConfig(ix)
	default:
		return ledgererr.Wrap(ledgererr.ErrInvalidInstruction, "%T", ix)
	}
}

func (c *ixContext) requireAccounts(n int) error {
	if len(c.metas) < n {
		return ledgererr.Wrap(ledgererr.ErrNotEnoughAccountKeys, "need %d, got %d", n, len(c.metas))
	}
	return nil
}

// key returns the i-th account after checking its signer and writable flags.
func (c *ixContext) key(i int, name string, need role) (solana.PublicKey, error) {
	if i >= len(c.metas) {
		return solana.PublicKey{}, ledgererr.Wrap(ledgererr.ErrNotEnoughAccountKeys, "missing %s account", name)
	}
	m := c.metas[i]
	if need&signerRole != 0 && !m.IsSigner {
		return solana.PublicKey{}, ledgererr.Wrap(ledgererr.ErrMissingRequiredSignature, "%s %s", name, m.PublicKey)
	}
	if need&writableRole != 0 && !m.IsWritable {
		return solana.PublicKey{}, ledgererr.Wrap(ledgererr.ErrAccountNotWritable, "%s %s", name, m.PublicKey)
	}
	return m.PublicKey, nil
}

func (c *ixContext) program(i int, want solana.PublicKey) error {
	got, err := c.key(i, "program", 0)
	if err != nil {
		return err
	}
	if !got.Equals(want) {
		return ledgererr.Wrap(ledgererr.ErrIncorrectProgramID, "expected %s, got %s", want, got)
	}
	return nil
}

func (c *ixContext) config(key solana.PublicKey) (*ledger.ConfigAccount, error) {
	if !key.Equals(c.p.configAddress) {
		return nil, ledgererr.Wrap(ledgererr.ErrInvalidSeeds, "config %s", key)
	}
	cfg, found, err := load[ledger.ConfigAccount](c.ws, key, c.p.programID)
	if err != nil {
		return nil, err
	}
	if !found || !cfg.Initialized {
		return nil, ledgererr.Wrap(ledgererr.ErrUninitialized, "config")
	}
	return cfg, nil
}

func (c *ixContext) pool(key solana.PublicKey) (*ledger.PoolAccount, error) {
	pool, found, err := load[ledger.PoolAccount](c.ws, key, c.p.programID)
	if err != nil {
		return nil, err
	}
	if !found || !pool.Initialized {
		return nil, ledgererr.Wrap(ledgererr.ErrUninitialized, "pool %s", key)
	}
	return pool, nil
}

func (c *ixContext) launch(key solana.PublicKey) (*ledger.LaunchAccount, error) {
	l, found, err := load[ledger.LaunchAccount](c.ws, key, c.p.programID)
	if err != nil {
		return nil, err
	}
	if !found || !l.Initialized {
		return nil, ledgererr.Wrap(ledgererr.ErrUninitialized, "launch %s", key)
	}
	return l, nil
}

func (c *ixContext) mint(key solana.PublicKey) (*token.Mint, error) {
	m, found, err := load[token.Mint](c.ws, key, token.ProgramID)
	if err != nil {
		return nil, err
	}
	if !found || !m.Initialized {
		return nil, ledgererr.Wrap(ledgererr.ErrUninitialized, "mint %s", key)
	}
	return m, nil
}

// tokenAccount loads an existing token account of the given mint.
func (c *ixContext) tokenAccount(key, mint solana.PublicKey) (*token.Account, error) {
	acct, found, err := load[token.Account](c.ws, key, token.ProgramID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ledgererr.Wrap(ledgererr.ErrUninitialized, "token account %s", key)
	}
	if !acct.Mint.Equals(mint) {
		return nil, ledgererr.Wrap(ledgererr.ErrMintMismatch, "token account %s holds %s", key, acct.Mint)
	}
	return acct, nil
}

// receivingAccount is tokenAccount that opens a fresh account for owner when
// key has never been used.
func (c *ixContext) receivingAccount(key, mint, owner solana.PublicKey) (*token.Account, error) {
	if c.ws.exists(key) {
		return c.tokenAccount(key, mint)
	}
	acct := &token.Account{Mint: mint, Owner: owner}
	if err := c.ws.create(key, token.ProgramID, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// vault checks that key is the vault the ledger recorded and loads it.
func (c *ixContext) vault(key, recorded, mint solana.PublicKey, name string) (*token.Account, error) {
	if !key.Equals(recorded) {
		return nil, ledgererr.Wrap(ledgererr.ErrAccountMismatch, "%s %s", name, key)
	}
	return c.tokenAccount(key, mint)
}

func (c *ixContext) transfer(from, to *token.Account, authority solana.PublicKey, amount uint64) error {
	if amount == 0 {
		return nil
	}
	return token.Transfer(from, to, authority, amount)
}

func expectAddress(got solana.PublicKey, derive func() (solana.PublicKey, uint8, error), name string) error {
	want, _, err := derive()
	if err != nil {
		return ledgererr.Wrap(ledgererr.ErrInvalidSeeds, "%s: %v", name, err)
	}
	if !got.Equals(want) {
		return ledgererr.Wrap(ledgererr.ErrInvalidSeeds, "%s %s, expected %s", name, got, want)
	}
	return nil
}

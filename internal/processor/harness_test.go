package processor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aman-zulfiqar/redz-ledger/internal/instruction"
	"github.com/aman-zulfiqar/redz-ledger/internal/ledger"
	"github.com/aman-zulfiqar/redz-ledger/internal/models"
	"github.com/aman-zulfiqar/redz-ledger/internal/store"
	"github.com/aman-zulfiqar/redz-ledger/internal/token"
	"github.com/benbjohnson/clock"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var genesisTime = time.Unix(1_700_000_000, 0)

type mutablePolicy struct {
	mu sync.Mutex
	p  ledger.Policy
}

func (m *mutablePolicy) Policy(context.Context) (ledger.Policy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.p, nil
}

func (m *mutablePolicy) set(p ledger.Policy) {
	m.mu.Lock()
	m.p = p
	m.mu.Unlock()
}

type recordingSink struct {
	mu     sync.Mutex
	events []models.LedgerEvent
}

func (r *recordingSink) Publish(_ context.Context, events []models.LedgerEvent) error {
	r.mu.Lock()
	r.events = append(r.events, events...)
	r.mu.Unlock()
	return nil
}

type harness struct {
	t       *testing.T
	program solana.PublicKey
	store   *store.MemoryStore
	clock   *clock.Mock
	policy  *mutablePolicy
	sink    *recordingSink
	proc    *Processor

	admin     solana.PublicKey
	config    solana.PublicKey
	quoteMint solana.PublicKey
	treasury  solana.PublicKey

	mu  sync.Mutex
	seq int
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	h := &harness{
		t:       t,
		program: solana.NewWallet().PublicKey(),
		store:   store.NewMemoryStore(),
		clock:   clock.NewMock(),
		policy:  &mutablePolicy{},
		sink:    &recordingSink{},
		admin:   solana.NewWallet().PublicKey(),
	}
	h.clock.Set(genesisTime)

	proc, err := New(Config{
		ProgramID: h.program,
		Store:     h.store,
		Clock:     h.clock,
		Policy:    h.policy,
		Sink:      h.sink,
		Logger:    logger,
	})
	require.NoError(t, err)
	h.proc = proc

	h.config, _, err = ledger.FindConfigAddress(h.program)
	require.NoError(t, err)
	h.quoteMint = h.seedMint()
	h.treasury = solana.NewWallet().PublicKey()
	return h
}

func (h *harness) seed(key, owner solana.PublicKey, v interface{ MarshalBinary() ([]byte, error) }) {
	h.t.Helper()
	data, err := v.MarshalBinary()
	require.NoError(h.t, err)
	err = h.store.Commit(context.Background(), store.Batch{
		Writes: map[solana.PublicKey]*store.Account{key: {Owner: owner, Data: data}},
	})
	require.NoError(h.t, err)
}

func (h *harness) seedMint() solana.PublicKey {
	key := solana.NewWallet().PublicKey()
	h.seed(key, token.ProgramID, &token.Mint{Authority: h.admin, Decimals: 6, Initialized: true})
	return key
}

func (h *harness) seedToken(mint, owner solana.PublicKey, amount uint64) solana.PublicKey {
	key := solana.NewWallet().PublicKey()
	h.seed(key, token.ProgramID, &token.Account{Mint: mint, Owner: owner, Amount: amount})
	return key
}

func (h *harness) nextSignature() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	return fmt.Sprintf("sig-%d", h.seq)
}

func (h *harness) process(ixs ...solana.Instruction) (*Result, error) {
	return h.proc.Process(context.Background(), h.nextSignature(), ixs)
}

func (h *harness) mustProcess(ixs ...solana.Instruction) *Result {
	h.t.Helper()
	res, err := h.process(ixs...)
	require.NoError(h.t, err)
	return res
}

func (h *harness) ix(ix solana.Instruction, err error) solana.Instruction {
	h.t.Helper()
	require.NoError(h.t, err)
	return ix
}

func (h *harness) balance(key solana.PublicKey) uint64 {
	h.t.Helper()
	acct, err := h.store.Get(context.Background(), key)
	require.NoError(h.t, err)
	var ta token.Account
	require.NoError(h.t, ta.UnmarshalBinary(acct.Data))
	return ta.Amount
}

func (h *harness) exists(key solana.PublicKey) bool {
	_, err := h.store.Get(context.Background(), key)
	return err == nil
}

func (h *harness) poolState(key solana.PublicKey) *ledger.PoolAccount {
	h.t.Helper()
	acct, err := h.store.Get(context.Background(), key)
	require.NoError(h.t, err)
	pool, err := ledger.DecodePool(acct.Data)
	require.NoError(h.t, err)
	return pool
}

func (h *harness) launchState(key solana.PublicKey) *ledger.LaunchAccount {
	h.t.Helper()
	acct, err := h.store.Get(context.Background(), key)
	require.NoError(h.t, err)
	l, err := ledger.DecodeLaunch(acct.Data)
	require.NoError(h.t, err)
	return l
}

func (h *harness) configState() *ledger.ConfigAccount {
	h.t.Helper()
	acct, err := h.store.Get(context.Background(), h.config)
	require.NoError(h.t, err)
	cfg, err := ledger.DecodeConfig(acct.Data)
	require.NoError(h.t, err)
	return cfg
}

func (h *harness) initConfig(feeBps uint16, launchFee, minLiquidity uint64) {
	h.t.Helper()
	h.mustProcess(h.ix(instruction.NewInitializeConfig(h.program, instruction.InitializeConfigAccounts{
		Admin:     h.admin,
		Config:    h.config,
		QuoteMint: h.quoteMint,
		Treasury:  h.treasury,
	}, instruction.InitializeConfig{
		DefaultFeeRateBps: feeBps,
		LaunchCreationFee: launchFee,
		MinLiquidity:      minLiquidity,
	})))
}

type poolFixture struct {
	key    solana.PublicKey
	mintA  solana.PublicKey
	mintB  solana.PublicKey
	vaultA solana.PublicKey
	vaultB solana.PublicKey
	lpMint solana.PublicKey
}

func (h *harness) poolAccounts() poolFixture {
	h.t.Helper()
	f := poolFixture{
		mintA:  h.seedMint(),
		mintB:  h.seedMint(),
		vaultA: solana.NewWallet().PublicKey(),
		vaultB: solana.NewWallet().PublicKey(),
		lpMint: solana.NewWallet().PublicKey(),
	}
	var err error
	f.key, _, err = ledger.FindPoolAddress(h.program, f.mintA, f.mintB)
	require.NoError(h.t, err)
	return f
}

func (h *harness) createPoolIx(f poolFixture, feeBps uint16) solana.Instruction {
	return h.ix(instruction.NewCreatePool(h.program, instruction.CreatePoolAccounts{
		Authority: solana.NewWallet().PublicKey(),
		Pool:      f.key,
		MintA:     f.mintA,
		MintB:     f.mintB,
		VaultA:    f.vaultA,
		VaultB:    f.vaultB,
		LpMint:    f.lpMint,
		Config:    h.config,
	}, instruction.CreatePool{FeeRateBps: feeBps}))
}

func (h *harness) createPool(feeBps uint16) poolFixture {
	h.t.Helper()
	f := h.poolAccounts()
	h.mustProcess(h.createPoolIx(f, feeBps))
	return f
}

// trader owns token a, token b and (not yet opened) LP accounts for a pool.
type trader struct {
	key solana.PublicKey
	a   solana.PublicKey
	b   solana.PublicKey
	lp  solana.PublicKey
}

func (h *harness) newTrader(f poolFixture, amountA, amountB uint64) trader {
	owner := solana.NewWallet().PublicKey()
	return trader{
		key: owner,
		a:   h.seedToken(f.mintA, owner, amountA),
		b:   h.seedToken(f.mintB, owner, amountB),
		lp:  solana.NewWallet().PublicKey(),
	}
}

func (h *harness) addLiquidityIx(f poolFixture, tr trader, amountA, amountB uint64) solana.Instruction {
	return h.ix(instruction.NewAddLiquidity(h.program, instruction.AddLiquidityAccounts{
		User:   tr.key,
		Pool:   f.key,
		Config: h.config,
		UserA:  tr.a,
		UserB:  tr.b,
		VaultA: f.vaultA,
		VaultB: f.vaultB,
		LpMint: f.lpMint,
		UserLp: tr.lp,
	}, instruction.AddLiquidity{AmountA: amountA, AmountB: amountB}))
}

func (h *harness) removeLiquidityIx(f poolFixture, tr trader, lp uint64) solana.Instruction {
	return h.ix(instruction.NewRemoveLiquidity(h.program, instruction.RemoveLiquidityAccounts{
		User:   tr.key,
		Pool:   f.key,
		UserA:  tr.a,
		UserB:  tr.b,
		VaultA: f.vaultA,
		VaultB: f.vaultB,
		LpMint: f.lpMint,
		UserLp: tr.lp,
	}, instruction.RemoveLiquidity{LpAmount: lp}))
}

func (h *harness) swapIx(f poolFixture, tr trader, aToB bool, amountIn, minOut uint64) solana.Instruction {
	accts := instruction.SwapAccounts{
		User:             tr.key,
		Pool:             f.key,
		UserSource:       tr.a,
		UserDestination:  tr.b,
		SourceVault:      f.vaultA,
		DestinationVault: f.vaultB,
	}
	if !aToB {
		accts.UserSource, accts.UserDestination = tr.b, tr.a
		accts.SourceVault, accts.DestinationVault = f.vaultB, f.vaultA
	}
	return h.ix(instruction.NewSwap(h.program, accts, instruction.Swap{AmountIn: amountIn, MinimumAmountOut: minOut}))
}

package ledger

import (
	"math/rand"
	"testing"

	"github.com/aman-zulfiqar/redz-ledger/internal/amm"
	"github.com/aman-zulfiqar/redz-ledger/internal/ledgererr"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPoolParams(fee uint16) CreatePoolParams {
	return CreatePoolParams{
		TokenAMint:  solana.NewWallet().PublicKey(),
		TokenBMint:  solana.NewWallet().PublicKey(),
		TokenAVault: solana.NewWallet().PublicKey(),
		TokenBVault: solana.NewWallet().PublicKey(),
		LpTokenMint: solana.NewWallet().PublicKey(),
		FeeRateBps:  fee,
	}
}

func seededPool(t *testing.T, reserveA, reserveB uint64, fee uint16) *PoolAccount {
	t.Helper()
	var p PoolAccount
	require.NoError(t, p.Create(newPoolParams(fee)))
	_, err := p.AddLiquidity(reserveA, reserveB, 0)
	require.NoError(t, err)
	return &p
}

func TestPool_Create(t *testing.T) {
	var p PoolAccount
	params := newPoolParams(30)
	require.NoError(t, p.Create(params))
	assert.True(t, p.Initialized)
	assert.Zero(t, p.TokenAReserve)
	assert.Zero(t, p.TokenBReserve)
	assert.Zero(t, p.LpTokenSupply)
	assert.Equal(t, params.LpTokenMint, p.LpTokenMint)

	assert.ErrorIs(t, p.Create(params), ledgererr.ErrAlreadyInitialized)

	var q PoolAccount
	same := newPoolParams(30)
	same.TokenBMint = same.TokenAMint
	assert.ErrorIs(t, q.Create(same), ledgererr.ErrIdenticalMints)
	assert.ErrorIs(t, q.Create(newPoolParams(10001)), ledgererr.ErrInvalidFeeRate)
	assert.False(t, q.Initialized)
}

func TestPool_AddLiquidity(t *testing.T) {
	var p PoolAccount
	_, err := p.AddLiquidity(1, 1, 0)
	assert.ErrorIs(t, err, ledgererr.ErrUninitialized)

	require.NoError(t, p.Create(newPoolParams(30)))

	_, err = p.AddLiquidity(0, 10, 0)
	assert.ErrorIs(t, err, ledgererr.ErrZeroAmount)

	_, err = p.AddLiquidity(10, 10, 100)
	assert.ErrorIs(t, err, ledgererr.ErrBelowMinLiquidity)
	assert.Zero(t, p.LpTokenSupply)

	minted, err := p.AddLiquidity(100000, 50000, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(70710), minted)
	assert.Equal(t, uint64(70710), p.LpTokenSupply)

	// the A side is the smaller proportional contribution
	minted, err = p.AddLiquidity(1000, 1000, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(707), minted)
	assert.Equal(t, uint64(101000), p.TokenAReserve)
	assert.Equal(t, uint64(51000), p.TokenBReserve)
	assert.Equal(t, uint64(71417), p.LpTokenSupply)
}

func TestPool_AddLiquidity_DustMintsNothing(t *testing.T) {
	p := seededPool(t, 1_000_000_000, 1_000_000_000, 30)
	p.LpTokenSupply = 10
	_, err := p.AddLiquidity(1, 1, 0)
	assert.ErrorIs(t, err, ledgererr.ErrInsufficientLiquidityMinted)
}

func TestPool_RemoveLiquidity(t *testing.T) {
	p := seededPool(t, 100000, 50000, 30)

	_, _, err := p.RemoveLiquidity(p.LpTokenSupply + 1)
	assert.ErrorIs(t, err, ledgererr.ErrInsufficientLpSupply)

	_, _, err = p.RemoveLiquidity(0)
	assert.ErrorIs(t, err, ledgererr.ErrZeroAmount)

	a, b, err := p.RemoveLiquidity(7071)
	require.NoError(t, err)
	assert.Equal(t, uint64(10000), a)
	assert.Equal(t, uint64(5000), b)
	assert.Equal(t, uint64(63639), p.LpTokenSupply)

	// last withdrawer may drain the pool
	a, b, err = p.RemoveLiquidity(p.LpTokenSupply)
	require.NoError(t, err)
	assert.Equal(t, uint64(90000), a)
	assert.Equal(t, uint64(45000), b)
	assert.Zero(t, p.TokenAReserve)
	assert.Zero(t, p.TokenBReserve)
	assert.Zero(t, p.LpTokenSupply)
}

func TestPool_RemoveLiquidity_WouldDrainPool(t *testing.T) {
	p := &PoolAccount{Initialized: true, TokenAReserve: 1000, TokenBReserve: 0, LpTokenSupply: 10}
	_, _, err := p.RemoveLiquidity(5)
	assert.ErrorIs(t, err, ledgererr.ErrWouldDrainPool)
	assert.Equal(t, uint64(1000), p.TokenAReserve)
	assert.Equal(t, uint64(10), p.LpTokenSupply)
}

func TestPool_RemoveThenAddRoundTrip(t *testing.T) {
	p := seededPool(t, 1_000_000, 4_000_000, 30)
	before := p.LpTokenSupply
	require.Equal(t, uint64(2_000_000), before)

	a, b, err := p.RemoveLiquidity(333333)
	require.NoError(t, err)
	_, err = p.AddLiquidity(a, b, 0)
	require.NoError(t, err)

	assert.LessOrEqual(t, p.LpTokenSupply, before)
	assert.LessOrEqual(t, before-p.LpTokenSupply, uint64(2), "at most one unit lost per token")
}

func TestPool_Swap(t *testing.T) {
	p := seededPool(t, 100000, 50000, 30)

	out, err := p.Swap(1000, 494, AToB)
	assert.ErrorIs(t, err, ledgererr.ErrSlippageExceeded)
	assert.Zero(t, out)
	assert.Equal(t, uint64(100000), p.TokenAReserve)
	assert.Equal(t, uint64(50000), p.TokenBReserve)

	out, err = p.Swap(1000, 493, AToB)
	require.NoError(t, err)
	assert.Equal(t, uint64(493), out)
	assert.Equal(t, uint64(101000), p.TokenAReserve)
	assert.Equal(t, uint64(49507), p.TokenBReserve)

	out, err = p.Swap(500, 0, BToA)
	require.NoError(t, err)
	assert.Greater(t, out, uint64(0))
	assert.Equal(t, uint64(50007), p.TokenBReserve)
	assert.Equal(t, 101000-out, p.TokenAReserve)
}

func TestPool_SwapErrors(t *testing.T) {
	var p PoolAccount
	_, err := p.Swap(1, 0, AToB)
	assert.ErrorIs(t, err, ledgererr.ErrUninitialized)

	q := seededPool(t, 1_000_000_000, 1_000_000_000, 30)
	_, err = q.Swap(0, 0, AToB)
	assert.ErrorIs(t, err, ledgererr.ErrZeroAmount)

	_, err = q.Swap(1, 0, AToB)
	assert.ErrorIs(t, err, ledgererr.ErrZeroOutput)

	empty := PoolAccount{Initialized: true}
	_, err = empty.Swap(10, 0, AToB)
	assert.ErrorIs(t, err, ledgererr.ErrInvalidReserves)
}

func TestPool_ConstantProductNonDecreasing(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	p := seededPool(t, 5_000_000, 9_000_000, 25)

	for i := 0; i < 1000; i++ {
		before := amm.ConstantProduct(p.TokenAReserve, p.TokenBReserve)
		switch rng.Intn(3) {
		case 0:
			_, _ = p.Swap(uint64(rng.Int63n(500_000))+1, 0, AToB)
		case 1:
			_, _ = p.Swap(uint64(rng.Int63n(500_000))+1, 0, BToA)
		default:
			_, _ = p.AddLiquidity(uint64(rng.Int63n(100_000))+1, uint64(rng.Int63n(100_000))+1, 0)
		}
		after := amm.ConstantProduct(p.TokenAReserve, p.TokenBReserve)
		require.GreaterOrEqual(t, after.Cmp(before), 0, "k decreased at step %d", i)
	}
}

func TestPool_DirectionFor(t *testing.T) {
	p := seededPool(t, 10, 10, 0)
	dir, err := p.DirectionFor(p.TokenAVault, p.TokenBVault)
	require.NoError(t, err)
	assert.Equal(t, AToB, dir)

	dir, err = p.DirectionFor(p.TokenBVault, p.TokenAVault)
	require.NoError(t, err)
	assert.Equal(t, BToA, dir)

	_, err = p.DirectionFor(p.TokenAVault, p.TokenAVault)
	assert.ErrorIs(t, err, ledgererr.ErrAccountMismatch)
}

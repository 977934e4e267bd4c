package amm

import (
	"math"
	"math/rand"
	"testing"

	"github.com/aman-zulfiqar/redz-ledger/internal/ledgererr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"
)

func TestSwapOutput_ReferencePool(t *testing.T) {
	// 1000*9970*50000 / (100000*10000 + 1000*9970) = 493.57...
	out, err := SwapOutput(1000, 100000, 50000, 30)
	require.NoError(t, err)
	assert.Equal(t, uint64(493), out)

	out, err = SwapOutput(1000, 100000, 50000, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(495), out)

	out, err = SwapOutput(1000, 100000, 50000, 10000)
	require.NoError(t, err)
	assert.Zero(t, out)
}

func TestSwapOutput_Errors(t *testing.T) {
	_, err := SwapOutput(1000, 0, 50000, 30)
	assert.ErrorIs(t, err, ledgererr.ErrInvalidReserves)

	_, err = SwapOutput(1000, 100000, 50000, 10001)
	assert.ErrorIs(t, err, ledgererr.ErrInvalidFeeRate)

	_, err = SwapOutput(math.MaxUint64, 1, math.MaxUint64, 0)
	assert.ErrorIs(t, err, ledgererr.ErrArithmeticOverflow)
}

func TestSwapOutput_NeverExceedsReserve(t *testing.T) {
	out, err := SwapOutput(math.MaxUint64/100000, 1, 1_000_000, 0)
	require.NoError(t, err)
	assert.Less(t, out, uint64(1_000_000))
}

func TestSwapOutput_Monotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		reserveIn := uint64(rng.Int63n(1<<40)) + 1
		reserveOut := uint64(rng.Int63n(1<<40)) + 1
		amountIn := uint64(rng.Int63n(1 << 40))
		fee := uint16(rng.Intn(10001))

		base, err := SwapOutput(amountIn, reserveIn, reserveOut, fee)
		require.NoError(t, err)

		more, err := SwapOutput(amountIn+uint64(rng.Int63n(1<<20))+1, reserveIn, reserveOut, fee)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, more, base, "output must not decrease with amountIn")

		if fee < 10000 {
			higherFee, err := SwapOutput(amountIn, reserveIn, reserveOut, fee+1)
			require.NoError(t, err)
			assert.LessOrEqual(t, higherFee, base, "output must not increase with fee")
		}
	}
}

func TestPriceImpact(t *testing.T) {
	impact, err := PriceImpact(1000, 493, 100000, 50000)
	require.NoError(t, err)
	assert.True(t, impact.Equal(decimal.RequireFromString("1.4")), "got %s", impact)

	// execution at exactly the spot price
	impact, err = PriceImpact(1000, 500, 100000, 50000)
	require.NoError(t, err)
	assert.True(t, impact.IsZero())

	_, err = PriceImpact(0, 0, 100000, 50000)
	assert.ErrorIs(t, err, ledgererr.ErrInvalidInput)

	_, err = PriceImpact(1000, 493, 0, 50000)
	assert.ErrorIs(t, err, ledgererr.ErrInvalidInput)
}

func TestPriceImpact_FeeAndSize(t *testing.T) {
	const reserve = 1_000_000_000_000_000

	out, err := SwapOutput(1_000_000_000, reserve, reserve, 0)
	require.NoError(t, err)
	small, err := PriceImpact(1_000_000_000, out, reserve, reserve)
	require.NoError(t, err)
	assert.True(t, small.LessThan(decimal.RequireFromString("0.001")), "got %s", small)

	out, err = SwapOutput(1_000_000_000, reserve, reserve, 30)
	require.NoError(t, err)
	withFee, err := PriceImpact(1_000_000_000, out, reserve, reserve)
	require.NoError(t, err)
	assert.True(t, withFee.IsPositive())
	assert.True(t, withFee.GreaterThan(small))
}

func TestISqrt(t *testing.T) {
	cases := map[uint64]uint64{0: 0, 1: 1, 3: 1, 4: 2, 99: 9, 100: 10, 1 << 40: 1 << 20}
	for in, want := range cases {
		assert.Equal(t, want, ISqrt(uint128.From64(in)), "isqrt(%d)", in)
	}

	sq := uint128.From64(math.MaxUint64).Mul64(math.MaxUint64)
	assert.Equal(t, uint64(math.MaxUint64), ISqrt(sq))
	assert.Equal(t, uint64(math.MaxUint64), ISqrt(uint128.Max))
}

func TestLiquidityMath(t *testing.T) {
	assert.Equal(t, uint64(1000), InitialLiquidity(500, 2000))

	minted, err := ProportionalLiquidity(100, 300, 1000, 2000, 500)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), minted)

	_, err = ProportionalLiquidity(100, 300, 0, 2000, 500)
	assert.ErrorIs(t, err, ledgererr.ErrInvalidReserves)

	a, b, err := WithdrawAmounts(10, 1000, 2001, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), a)
	assert.Equal(t, uint64(200), b)

	_, _, err = WithdrawAmounts(101, 1000, 2001, 100)
	assert.ErrorIs(t, err, ledgererr.ErrInsufficientLpSupply)
}

func TestApplySlippageAndFeeBps(t *testing.T) {
	assert.Equal(t, uint64(990), ApplySlippage(1000, 100))
	assert.Equal(t, uint64(0), ApplySlippage(1000, 10000))
	assert.Equal(t, uint16(30), CalculateFeeBps(3, 1000))
	assert.Equal(t, uint16(0), CalculateFeeBps(3, 0))
}

func TestNewQuote(t *testing.T) {
	q, err := NewQuote(1000, 100000, 50000, 30, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(493), q.AmountOut)
	assert.Equal(t, uint64(488), q.MinimumAmountOut)
	assert.Equal(t, uint64(3), q.FeeAmount)
	assert.True(t, q.PriceImpact.Equal(decimal.RequireFromString("1.4")))
}

package amm

import (
	"math/big"
	"math/bits"

	"github.com/aman-zulfiqar/redz-ledger/internal/ledgererr"
	"github.com/shopspring/decimal"
	"lukechampine.com/uint128"
)

// BpsDenominator is the fixed denominator for fee rates and slippage.
const BpsDenominator = 10000

// PriceImpactPrecision is the number of decimal places kept by PriceImpact.
const PriceImpactPrecision = 18

// SwapOutput computes the constant-product output for amountIn with the fee
// taken from the input side:
//
//	amountInWithFee = amountIn * (10000 - feeRateBps)
//	amountOut = amountInWithFee * reserveOut / (reserveIn * 10000 + amountInWithFee)
//
// Intermediates are 128-bit; a product that does not fit fails with
// ArithmeticOverflow instead of wrapping.
func SwapOutput(amountIn, reserveIn, reserveOut uint64, feeRateBps uint16) (uint64, error) {
	if feeRateBps > BpsDenominator {
		return 0, ledgererr.ErrInvalidFeeRate
	}
	if reserveIn == 0 {
		return 0, ledgererr.ErrInvalidReserves
	}

	amountInWithFee := uint128.From64(amountIn).Mul64(uint64(BpsDenominator - feeRateBps))
	numerator, ok := mul128x64(amountInWithFee, reserveOut)
	if !ok {
		return 0, ledgererr.Wrap(ledgererr.ErrArithmeticOverflow, "swap numerator")
	}
	denominator, ok := add128(uint128.From64(reserveIn).Mul64(BpsDenominator), amountInWithFee)
	if !ok {
		return 0, ledgererr.Wrap(ledgererr.ErrArithmeticOverflow, "swap denominator")
	}

	// denominator > reserveIn*10000 > 0, and the quotient is below reserveOut.
	return numerator.Div(denominator).Lo, nil
}

// PriceImpact returns |spot - execution| / spot * 100 where
// spot = reserveOut/reserveIn and execution = amountOut/amountIn.
// The result is exact up to PriceImpactPrecision decimal places.
func PriceImpact(amountIn, amountOut, reserveIn, reserveOut uint64) (decimal.Decimal, error) {
	if amountIn == 0 || reserveIn == 0 || reserveOut == 0 {
		return decimal.Zero, ledgererr.ErrInvalidInput
	}

	// spot - exec = (reserveOut*amountIn - amountOut*reserveIn) / (reserveIn*amountIn)
	// dividing by spot leaves a single quotient over reserveOut*amountIn.
	spotTerm := mulBig(reserveOut, amountIn)
	execTerm := mulBig(amountOut, reserveIn)
	diff := new(big.Int).Sub(spotTerm, execTerm)
	diff.Abs(diff)

	num := decimal.NewFromBigInt(diff, 0).Mul(decimal.NewFromInt(100))
	den := decimal.NewFromBigInt(spotTerm, 0)
	return num.DivRound(den, PriceImpactPrecision), nil
}

// ApplySlippage calculates the minimum acceptable output for a quote.
// slippageBps: basis points (e.g., 100 = 1%, 50 = 0.5%)
func ApplySlippage(amountOut uint64, slippageBps uint16) uint64 {
	if slippageBps >= BpsDenominator {
		return 0
	}
	return uint128.From64(amountOut).Mul64(uint64(BpsDenominator - slippageBps)).Div64(BpsDenominator).Lo
}

// CalculateFeeBps converts a fee numerator/denominator pair to basis points.
func CalculateFeeBps(feeNumerator, feeDenominator uint64) uint16 {
	if feeDenominator == 0 {
		return 0
	}
	bps := uint128.From64(feeNumerator).Mul64(BpsDenominator).Div64(feeDenominator)
	if bps.Hi != 0 || bps.Lo > BpsDenominator {
		return BpsDenominator
	}
	return uint16(bps.Lo)
}

// ConstantProduct returns reserveA * reserveB as a 128-bit value.
func ConstantProduct(reserveA, reserveB uint64) uint128.Uint128 {
	return uint128.From64(reserveA).Mul64(reserveB)
}

// ISqrt returns floor(sqrt(x)).
func ISqrt(x uint128.Uint128) uint64 {
	if x.Hi == 0 && x.Lo < 2 {
		return x.Lo
	}
	n := bits.Len64(x.Lo)
	if x.Hi != 0 {
		n = 64 + bits.Len64(x.Hi)
	}
	// 2^ceil(n/2) is an upper bound of sqrt(x); Newton steps descend from it.
	g := uint128.From64(1).Lsh(uint((n + 1) / 2))
	for {
		y := g.Add(x.Div(g)).Rsh(1)
		if y.Cmp(g) >= 0 {
			return g.Lo
		}
		g = y
	}
}

func mulBig(a, b uint64) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
}

func mul128x64(a uint128.Uint128, b uint64) (uint128.Uint128, bool) {
	loHi, loLo := bits.Mul64(a.Lo, b)
	hiHi, hiLo := bits.Mul64(a.Hi, b)
	if hiHi != 0 {
		return uint128.Zero, false
	}
	hi, carry := bits.Add64(loHi, hiLo, 0)
	if carry != 0 {
		return uint128.Zero, false
	}
	return uint128.New(loLo, hi), true
}

func add128(a, b uint128.Uint128) (uint128.Uint128, bool) {
	lo, carry := bits.Add64(a.Lo, b.Lo, 0)
	hi, carry := bits.Add64(a.Hi, b.Hi, carry)
	if carry != 0 {
		return uint128.Zero, false
	}
	return uint128.New(lo, hi), true
}

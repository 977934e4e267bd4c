package amm

import (
	"github.com/aman-zulfiqar/redz-ledger/internal/ledgererr"
	"lukechampine.com/uint128"
)

// InitialLiquidity is the LP amount minted by the bootstrap deposit:
// the geometric mean isqrt(amountA * amountB).
func InitialLiquidity(amountA, amountB uint64) uint64 {
	return ISqrt(uint128.From64(amountA).Mul64(amountB))
}

// ProportionalLiquidity mints against the side that contributes less relative
// to the current reserves:
//
//	min(amountA * supply / reserveA, amountB * supply / reserveB)
func ProportionalLiquidity(amountA, amountB, reserveA, reserveB, supply uint64) (uint64, error) {
	if reserveA == 0 || reserveB == 0 {
		return 0, ledgererr.ErrInvalidReserves
	}
	byA := uint128.From64(amountA).Mul64(supply).Div64(reserveA)
	byB := uint128.From64(amountB).Mul64(supply).Div64(reserveB)

	minted := byA
	if byB.Cmp(byA) < 0 {
		minted = byB
	}
	if minted.Hi != 0 {
		return 0, ledgererr.Wrap(ledgererr.ErrArithmeticOverflow, "lp mint")
	}
	return minted.Lo, nil
}

// WithdrawAmounts returns the floor share of each reserve owed for lpAmount.
// lpAmount must not exceed supply.
func WithdrawAmounts(lpAmount, reserveA, reserveB, supply uint64) (uint64, uint64, error) {
	if supply == 0 {
		return 0, 0, ledgererr.ErrInvalidReserves
	}
	if lpAmount > supply {
		return 0, 0, ledgererr.ErrInsufficientLpSupply
	}
	amountA := uint128.From64(lpAmount).Mul64(reserveA).Div64(supply)
	amountB := uint128.From64(lpAmount).Mul64(reserveB).Div64(supply)
	return amountA.Lo, amountB.Lo, nil
}

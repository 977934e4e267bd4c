package ledger

import (
	"github.com/aman-zulfiqar/redz-ledger/internal/amm"
	"github.com/aman-zulfiqar/redz-ledger/internal/ledgererr"
	"github.com/gagliardetto/solana-go"
)

// Direction selects the reserve pair used by a swap.
type Direction uint8

const (
	AToB Direction = iota
	BToA
)

func (d Direction) String() string {
	if d == AToB {
		return "a_to_b"
	}
	return "b_to_a"
}

// CreatePoolParams are the immutable fields recorded by CreatePool.
type CreatePoolParams struct {
	TokenAMint  solana.PublicKey
	TokenBMint  solana.PublicKey
	TokenAVault solana.PublicKey
	TokenBVault solana.PublicKey
	LpTokenMint solana.PublicKey
	FeeRateBps  uint16
}

// Create moves an uninitialized pool to Active with empty reserves.
func (p *PoolAccount) Create(params CreatePoolParams) error {
	if p.Initialized {
		return ledgererr.ErrAlreadyInitialized
	}
	if params.FeeRateBps > amm.BpsDenominator {
		return ledgererr.ErrInvalidFeeRate
	}
	if params.TokenAMint.Equals(params.TokenBMint) {
		return ledgererr.ErrIdenticalMints
	}
	*p = PoolAccount{
		Initialized: true,
		TokenAMint:  params.TokenAMint,
		TokenBMint:  params.TokenBMint,
		TokenAVault: params.TokenAVault,
		TokenBVault: params.TokenBVault,
		LpTokenMint: params.LpTokenMint,
		FeeRateBps:  params.FeeRateBps,
	}
	return nil
}

// AddLiquidity credits both reserves and returns the LP amount minted.
// The bootstrap deposit mints isqrt(amountA*amountB) and must reach
// minLiquidity; later deposits mint against the smaller proportional side and
// keep any excess of the other side in the pool.
func (p *PoolAccount) AddLiquidity(amountA, amountB, minLiquidity uint64) (uint64, error) {
	if !p.Initialized {
		return 0, ledgererr.ErrUninitialized
	}
	if amountA == 0 || amountB == 0 {
		return 0, ledgererr.ErrZeroAmount
	}

	var minted uint64
	if p.LpTokenSupply == 0 {
		minted = amm.InitialLiquidity(amountA, amountB)
		if minted < minLiquidity {
			return 0, ledgererr.Wrap(ledgererr.ErrBelowMinLiquidity, "minted %d, minimum %d", minted, minLiquidity)
		}
	} else {
		var err error
		minted, err = amm.ProportionalLiquidity(amountA, amountB, p.TokenAReserve, p.TokenBReserve, p.LpTokenSupply)
		if err != nil {
			return 0, err
		}
	}
	if minted == 0 {
		return 0, ledgererr.ErrInsufficientLiquidityMinted
	}

	reserveA, ok := checkedAdd(p.TokenAReserve, amountA)
	if !ok {
		return 0, ledgererr.Wrap(ledgererr.ErrArithmeticOverflow, "reserve a")
	}
	reserveB, ok := checkedAdd(p.TokenBReserve, amountB)
	if !ok {
		return 0, ledgererr.Wrap(ledgererr.ErrArithmeticOverflow, "reserve b")
	}
	supply, ok := checkedAdd(p.LpTokenSupply, minted)
	if !ok {
		return 0, ledgererr.Wrap(ledgererr.ErrArithmeticOverflow, "lp supply")
	}

	p.TokenAReserve, p.TokenBReserve, p.LpTokenSupply = reserveA, reserveB, supply
	return minted, nil
}

// RemoveLiquidity burns lpAmount and returns the floor share of each reserve.
// Only the last LP may take a reserve to zero.
func (p *PoolAccount) RemoveLiquidity(lpAmount uint64) (uint64, uint64, error) {
	if !p.Initialized {
		return 0, 0, ledgererr.ErrUninitialized
	}
	if lpAmount == 0 {
		return 0, 0, ledgererr.ErrZeroAmount
	}
	if lpAmount > p.LpTokenSupply {
		return 0, 0, ledgererr.Wrap(ledgererr.ErrInsufficientLpSupply, "requested %d, supply %d", lpAmount, p.LpTokenSupply)
	}

	amountA, amountB, err := amm.WithdrawAmounts(lpAmount, p.TokenAReserve, p.TokenBReserve, p.LpTokenSupply)
	if err != nil {
		return 0, 0, err
	}
	if amountA == 0 && amountB == 0 {
		return 0, 0, ledgererr.ErrZeroOutput
	}

	reserveA := p.TokenAReserve - amountA
	reserveB := p.TokenBReserve - amountB
	supply := p.LpTokenSupply - lpAmount
	if supply > 0 && (reserveA == 0 || reserveB == 0) {
		return 0, 0, ledgererr.ErrWouldDrainPool
	}

	p.TokenAReserve, p.TokenBReserve, p.LpTokenSupply = reserveA, reserveB, supply
	return amountA, amountB, nil
}

// Swap trades amountIn of the input side for the output side and returns the
// amount paid out. The constant product must not decrease.
func (p *PoolAccount) Swap(amountIn, minimumAmountOut uint64, dir Direction) (uint64, error) {
	if !p.Initialized {
		return 0, ledgererr.ErrUninitialized
	}
	if amountIn == 0 {
		return 0, ledgererr.ErrZeroAmount
	}

	reserveIn, reserveOut := p.TokenAReserve, p.TokenBReserve
	if dir == BToA {
		reserveIn, reserveOut = reserveOut, reserveIn
	}

	amountOut, err := amm.SwapOutput(amountIn, reserveIn, reserveOut, p.FeeRateBps)
	if err != nil {
		return 0, err
	}
	if amountOut < minimumAmountOut {
		return 0, ledgererr.Wrap(ledgererr.ErrSlippageExceeded, "out %d, minimum %d", amountOut, minimumAmountOut)
	}
	if amountOut == 0 {
		return 0, ledgererr.ErrZeroOutput
	}

	newIn, ok := checkedAdd(reserveIn, amountIn)
	if !ok {
		return 0, ledgererr.Wrap(ledgererr.ErrArithmeticOverflow, "input reserve")
	}
	if amountOut >= reserveOut {
		return 0, ledgererr.ErrInvariantViolation
	}
	newOut := reserveOut - amountOut

	before := amm.ConstantProduct(reserveIn, reserveOut)
	after := amm.ConstantProduct(newIn, newOut)
	if after.Cmp(before) < 0 {
		return 0, ledgererr.ErrInvariantViolation
	}

	if dir == AToB {
		p.TokenAReserve, p.TokenBReserve = newIn, newOut
	} else {
		p.TokenAReserve, p.TokenBReserve = newOut, newIn
	}
	return amountOut, nil
}

// DirectionFor resolves the swap direction from the input vault.
func (p *PoolAccount) DirectionFor(inputVault, outputVault solana.PublicKey) (Direction, error) {
	switch {
	case inputVault.Equals(p.TokenAVault) && outputVault.Equals(p.TokenBVault):
		return AToB, nil
	case inputVault.Equals(p.TokenBVault) && outputVault.Equals(p.TokenAVault):
		return BToA, nil
	default:
		return 0, ledgererr.Wrap(ledgererr.ErrAccountMismatch, "vaults do not belong to pool")
	}
}

func checkedAdd(a, b uint64) (uint64, bool) {
	s := a + b
	return s, s >= a
}

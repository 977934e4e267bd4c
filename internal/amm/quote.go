package amm

import (
	"github.com/shopspring/decimal"
	"lukechampine.com/uint128"
)

// Quote is a read-only preview of a swap against given reserves.
type Quote struct {
	AmountIn         uint64          `json:"amount_in"`
	AmountOut        uint64          `json:"amount_out"`
	MinimumAmountOut uint64          `json:"minimum_amount_out"`
	FeeAmount        uint64          `json:"fee_amount"`
	PriceImpact      decimal.Decimal `json:"price_impact"`
}

// NewQuote prices amountIn and derives the minimum output for slippageBps.
func NewQuote(amountIn, reserveIn, reserveOut uint64, feeRateBps, slippageBps uint16) (*Quote, error) {
	out, err := SwapOutput(amountIn, reserveIn, reserveOut, feeRateBps)
	if err != nil {
		return nil, err
	}
	impact, err := PriceImpact(amountIn, out, reserveIn, reserveOut)
	if err != nil {
		return nil, err
	}
	fee := uint128.From64(amountIn).Mul64(uint64(feeRateBps)).Div64(BpsDenominator).Lo
	return &Quote{
		AmountIn:         amountIn,
		AmountOut:        out,
		MinimumAmountOut: ApplySlippage(out, slippageBps),
		FeeAmount:        fee,
		PriceImpact:      impact,
	}, nil
}

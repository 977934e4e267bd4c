package models

import "time"

// LedgerEvent describes one executed instruction. Amount columns that do not
// apply to the instruction are zero.
type LedgerEvent struct {
	Signature   string    `json:"signature"`
	Index       uint16    `json:"index"`
	Timestamp   time.Time `json:"timestamp"`
	Instruction string    `json:"instruction"`
	Signer      string    `json:"signer"`
	// Subject is the pool, launch or config account the instruction acted on.
	Subject   string   `json:"subject"`
	Direction string   `json:"direction,omitempty"`
	AmountA   uint64   `json:"amount_a"`
	AmountB   uint64   `json:"amount_b"`
	AmountIn  uint64   `json:"amount_in"`
	AmountOut uint64   `json:"amount_out"`
	LpAmount  uint64   `json:"lp_amount"`
	Written   []string `json:"written"`
}

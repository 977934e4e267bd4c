package client

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/aman-zulfiqar/redz-ledger/internal/ledgererr"
	"github.com/aman-zulfiqar/redz-ledger/internal/models"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
)

// APIError is a non-2xx response from the ledger API
type APIError struct {
	Status     int    `json:"code"`
	Name       string `json:"error"`
	LedgerCode uint32 `json:"ledger_code,omitempty"`
	Kind       string `json:"kind,omitempty"`
	Details    any    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.LedgerCode != 0 {
		return fmt.Sprintf("%s (code %d, http %d)", e.Name, e.LedgerCode, e.Status)
	}
	return fmt.Sprintf("%s (http %d)", e.Name, e.Status)
}

// Unwrap exposes the ledger error so callers can match it with errors.Is.
func (e *APIError) Unwrap() error {
	if le, ok := ledgererr.Lookup(e.LedgerCode); ok {
		return le
	}
	return nil
}

func (e *APIError) retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status == http.StatusConflict || e.Status >= 500
}

type HealthResponse struct {
	OK        bool             `json:"ok"`
	ProgramID solana.PublicKey `json:"program_id"`
}

type AccountResponse struct {
	Address  solana.PublicKey `json:"address"`
	Owner    solana.PublicKey `json:"owner"`
	Encoding string           `json:"encoding"`
	Data     string           `json:"data"`
	Size     int              `json:"size"`
}

// Bytes decodes Data according to Encoding.
func (a *AccountResponse) Bytes() ([]byte, error) {
	switch a.Encoding {
	case "base58":
		return base58.Decode(a.Data)
	case "base64", "":
		return base64.StdEncoding.DecodeString(a.Data)
	default:
		return nil, fmt.Errorf("unknown encoding %q", a.Encoding)
	}
}

type TransactionResponse struct {
	Signature string                     `json:"signature"`
	Timestamp time.Time                  `json:"timestamp"`
	Skipped   int                        `json:"skipped,omitempty"`
	Events    []models.LedgerEvent       `json:"events"`
	Accounts  map[string]AccountResponse `json:"accounts"`
}

type QuoteResponse struct {
	Pool             solana.PublicKey `json:"pool"`
	InputMint        solana.PublicKey `json:"input_mint"`
	OutputMint       solana.PublicKey `json:"output_mint"`
	FeeRateBps       uint16           `json:"fee_rate_bps"`
	AmountIn         uint64           `json:"amount_in"`
	AmountOut        uint64           `json:"amount_out"`
	MinimumAmountOut uint64           `json:"minimum_amount_out"`
	FeeAmount        uint64           `json:"fee_amount"`
	PriceImpact      decimal.Decimal  `json:"price_impact"`
}

type EventsResponse struct {
	Items []models.LedgerEvent `json:"items"`
}

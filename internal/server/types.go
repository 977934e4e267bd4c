package server

import (
	"time"

	"github.com/aman-zulfiqar/redz-ledger/internal/amm"
	"github.com/aman-zulfiqar/redz-ledger/internal/models"
	"github.com/gagliardetto/solana-go"
)

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error      string `json:"error"`                 // Ledger error name or human-readable message
	Code       int    `json:"code"`                  // HTTP status code
	LedgerCode uint32 `json:"ledger_code,omitempty"` // Numeric ledger error code
	Kind       string `json:"kind,omitempty"`        // validation, business_rule or arithmetic
	Details    any    `json:"details,omitempty"`     // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK        bool             `json:"ok"`
	ProgramID solana.PublicKey `json:"program_id"`
}

// TransactionRequest carries a signed, base64-encoded Solana transaction
type TransactionRequest struct {
	Transaction string `json:"transaction"`
}

// TransactionResponse reports a committed transaction and the accounts it wrote
type TransactionResponse struct {
	Signature string                     `json:"signature"`
	Timestamp time.Time                  `json:"timestamp"`
	Skipped   int                        `json:"skipped,omitempty"`
	Events    []models.LedgerEvent       `json:"events"`
	Accounts  map[string]AccountResponse `json:"accounts"`
}

// AccountResponse is the raw form of any stored account
type AccountResponse struct {
	Address  solana.PublicKey `json:"address"`
	Owner    solana.PublicKey `json:"owner"`
	Encoding string           `json:"encoding"`
	Data     string           `json:"data"`
	Size     int              `json:"size"`
}

// QuoteResponse previews a swap against a pool's current reserves
type QuoteResponse struct {
	Pool       solana.PublicKey `json:"pool"`
	InputMint  solana.PublicKey `json:"input_mint"`
	OutputMint solana.PublicKey `json:"output_mint"`
	FeeRateBps uint16           `json:"fee_rate_bps"`
	*amm.Quote
}

// EventsResponse lists recent ledger events, newest first
type EventsResponse struct {
	Items []models.LedgerEvent `json:"items"`
}

// FlagUpsertRequest represents a request to create or update a feature flag
type FlagUpsertRequest struct {
	Key   string `json:"key"`   // Flag key (must match regex pattern)
	Value bool   `json:"value"` // Flag value (true/false)
}

// FlagUpdateRequest represents a request to update an existing feature flag
type FlagUpdateRequest struct {
	Value bool `json:"value"` // New flag value
}

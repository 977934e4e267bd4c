package ledger

import (
	"github.com/gagliardetto/solana-go"
)

// Account sizes in bytes. PoolAccountSize is part of the public wire contract.
const (
	PoolAccountSize         = 187
	LaunchAccountSize       = 172
	ConfigAccountSize       = 115
	ContributionAccountSize = 74
)

// PoolAccount is the state of one constant-product trading pair.
type PoolAccount struct {
	Initialized   bool             `json:"initialized"`
	TokenAMint    solana.PublicKey `json:"token_a_mint"`
	TokenBMint    solana.PublicKey `json:"token_b_mint"`
	TokenAVault   solana.PublicKey `json:"token_a_vault"`
	TokenBVault   solana.PublicKey `json:"token_b_vault"`
	LpTokenMint   solana.PublicKey `json:"lp_token_mint"`
	FeeRateBps    uint16           `json:"fee_rate_bps"`
	TokenAReserve uint64           `json:"token_a_reserve"`
	TokenBReserve uint64           `json:"token_b_reserve"`
	LpTokenSupply uint64           `json:"lp_token_supply"`
}

// LaunchAccount is the escrow state of one token launch.
type LaunchAccount struct {
	Initialized   bool             `json:"initialized"`
	TokenMint     solana.PublicKey `json:"token_mint"`
	Launcher      solana.PublicKey `json:"launcher"`
	TargetAmount  uint64           `json:"target_amount"`
	CurrentAmount uint64           `json:"current_amount"`
	TokenAmount   uint64           `json:"token_amount"`
	Duration      uint64           `json:"duration"`
	LaunchTime    uint64           `json:"launch_time"`
	IsFinalized   bool             `json:"is_finalized"`
	IsClosed      bool             `json:"is_closed"`
	// IsRefunding marks a launch that expired without finalization and was
	// frozen by its launcher; contributors can only be refunded.
	IsRefunding bool             `json:"is_refunding"`
	TokenVault  solana.PublicKey `json:"token_vault"`
	QuoteVault  solana.PublicKey `json:"quote_vault"`
}

// ContributionAccount records one participant's total contribution to a launch.
type ContributionAccount struct {
	Initialized bool             `json:"initialized"`
	Launch      solana.PublicKey `json:"launch"`
	Participant solana.PublicKey `json:"participant"`
	Amount      uint64           `json:"amount"`
	Settled     bool             `json:"settled"`
}

// ConfigAccount is the global configuration singleton.
type ConfigAccount struct {
	Initialized       bool             `json:"initialized"`
	Admin             solana.PublicKey `json:"admin"`
	DefaultFeeRateBps uint16           `json:"default_fee_rate_bps"`
	LaunchCreationFee uint64           `json:"launch_creation_fee"`
	MinLiquidity      uint64           `json:"min_liquidity"`
	QuoteMint         solana.PublicKey `json:"quote_mint"`
	Treasury          solana.PublicKey `json:"treasury"`
}

// Policy holds the launch rules that are decided by operators rather than fixed
// by the ledger.
type Policy struct {
	AllowOversubscription        bool `json:"allow_oversubscription"`
	AllowUndersubscribedFinalize bool `json:"allow_undersubscribed_finalize"`
}

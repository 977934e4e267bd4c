package ledger

import (
	"github.com/aman-zulfiqar/redz-ledger/internal/amm"
	"github.com/aman-zulfiqar/redz-ledger/internal/ledgererr"
	"github.com/gagliardetto/solana-go"
)

// ConfigParams are the admin-controlled numeric settings.
type ConfigParams struct {
	DefaultFeeRateBps uint16
	LaunchCreationFee uint64
	MinLiquidity      uint64
}

func (p ConfigParams) validate() error {
	if p.DefaultFeeRateBps > amm.BpsDenominator {
		return ledgererr.ErrInvalidFeeRate
	}
	return nil
}

// Initialize sets up the config singleton once.
func (c *ConfigAccount) Initialize(admin, quoteMint, treasury solana.PublicKey, params ConfigParams) error {
	if c.Initialized {
		return ledgererr.ErrAlreadyInitialized
	}
	if err := params.validate(); err != nil {
		return err
	}
	*c = ConfigAccount{
		Initialized:       true,
		Admin:             admin,
		DefaultFeeRateBps: params.DefaultFeeRateBps,
		LaunchCreationFee: params.LaunchCreationFee,
		MinLiquidity:      params.MinLiquidity,
		QuoteMint:         quoteMint,
		Treasury:          treasury,
	}
	return nil
}

// Update replaces the numeric settings and optionally hands admin rights to
// newAdmin. Only the current admin may call it.
func (c *ConfigAccount) Update(caller solana.PublicKey, params ConfigParams, newAdmin *solana.PublicKey) error {
	if err := c.authorize(caller); err != nil {
		return err
	}
	if err := params.validate(); err != nil {
		return err
	}
	c.DefaultFeeRateBps = params.DefaultFeeRateBps
	c.LaunchCreationFee = params.LaunchCreationFee
	c.MinLiquidity = params.MinLiquidity
	if newAdmin != nil {
		c.Admin = *newAdmin
	}
	return nil
}

// WithdrawFees returns how much the admin may take from a treasury holding
// balance. amount 0 means everything.
func (c *ConfigAccount) WithdrawFees(caller solana.PublicKey, balance, amount uint64) (uint64, error) {
	if err := c.authorize(caller); err != nil {
		return 0, err
	}
	if amount == 0 {
		amount = balance
	}
	if amount == 0 {
		return 0, ledgererr.ErrZeroAmount
	}
	if amount > balance {
		return 0, ledgererr.Wrap(ledgererr.ErrInsufficientFunds, "treasury holds %d", balance)
	}
	return amount, nil
}

// ResolveFeeRate maps the CreatePool sentinel to the configured default.
func (c *ConfigAccount) ResolveFeeRate(requested uint16) uint16 {
	if requested == UseDefaultFeeRate {
		return c.DefaultFeeRateBps
	}
	return requested
}

// UseDefaultFeeRate asks CreatePool to use the config's default fee rate.
const UseDefaultFeeRate uint16 = 0xFFFF

func (c *ConfigAccount) authorize(caller solana.PublicKey) error {
	if !c.Initialized {
		return ledgererr.ErrUninitialized
	}
	if !caller.Equals(c.Admin) {
		return ledgererr.ErrUnauthorized
	}
	return nil
}

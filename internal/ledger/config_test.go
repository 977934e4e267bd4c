package ledger

import (
	"testing"

	"github.com/aman-zulfiqar/redz-ledger/internal/ledgererr"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Lifecycle(t *testing.T) {
	admin := solana.NewWallet().PublicKey()
	quote := solana.NewWallet().PublicKey()
	treasury := solana.NewWallet().PublicKey()

	var c ConfigAccount
	assert.ErrorIs(t, c.Initialize(admin, quote, treasury, ConfigParams{DefaultFeeRateBps: 10001}), ledgererr.ErrInvalidFeeRate)

	params := ConfigParams{DefaultFeeRateBps: 30, LaunchCreationFee: 1_000_000, MinLiquidity: 1000}
	require.NoError(t, c.Initialize(admin, quote, treasury, params))
	assert.Equal(t, admin, c.Admin)
	assert.Equal(t, treasury, c.Treasury)
	assert.ErrorIs(t, c.Initialize(admin, quote, treasury, params), ledgererr.ErrAlreadyInitialized)

	stranger := solana.NewWallet().PublicKey()
	assert.ErrorIs(t, c.Update(stranger, params, nil), ledgererr.ErrUnauthorized)

	next := solana.NewWallet().PublicKey()
	require.NoError(t, c.Update(admin, ConfigParams{DefaultFeeRateBps: 25, MinLiquidity: 10}, &next))
	assert.Equal(t, uint16(25), c.DefaultFeeRateBps)
	assert.Equal(t, uint64(10), c.MinLiquidity)
	assert.Zero(t, c.LaunchCreationFee)
	assert.Equal(t, next, c.Admin)
	assert.ErrorIs(t, c.Update(admin, params, nil), ledgererr.ErrUnauthorized)
}

func TestConfig_WithdrawFees(t *testing.T) {
	admin := solana.NewWallet().PublicKey()
	c := ConfigAccount{Initialized: true, Admin: admin}

	_, err := c.WithdrawFees(solana.NewWallet().PublicKey(), 100, 10)
	assert.ErrorIs(t, err, ledgererr.ErrUnauthorized)

	amount, err := c.WithdrawFees(admin, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), amount)

	_, err = c.WithdrawFees(admin, 100, 101)
	assert.ErrorIs(t, err, ledgererr.ErrInsufficientFunds)

	_, err = c.WithdrawFees(admin, 0, 0)
	assert.ErrorIs(t, err, ledgererr.ErrZeroAmount)
}

func TestConfig_ResolveFeeRate(t *testing.T) {
	c := ConfigAccount{DefaultFeeRateBps: 30}
	assert.Equal(t, uint16(30), c.ResolveFeeRate(UseDefaultFeeRate))
	assert.Equal(t, uint16(5), c.ResolveFeeRate(5))
}

func TestConfig_UninitializedUpdate(t *testing.T) {
	var c ConfigAccount
	assert.ErrorIs(t, c.Update(solana.PublicKey{}, ConfigParams{}, nil), ledgererr.ErrUninitialized)
}

package processor

import (
	"testing"

	"github.com/aman-zulfiqar/redz-ledger/internal/instruction"
	"github.com/aman-zulfiqar/redz-ledger/internal/ledgererr"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (h *harness) updateConfigIx(caller solana.PublicKey, newAdmin *solana.PublicKey, fee uint16) solana.Instruction {
	return h.ix(instruction.NewUpdateConfig(h.program, instruction.UpdateConfigAccounts{
		Admin:    caller,
		Config:   h.config,
		NewAdmin: newAdmin,
	}, instruction.UpdateConfig{DefaultFeeRateBps: fee, LaunchCreationFee: 5, MinLiquidity: 10}))
}

func (h *harness) withdrawIx(caller, destination solana.PublicKey, amount uint64) solana.Instruction {
	return h.ix(instruction.NewWithdrawFees(h.program, instruction.WithdrawFeesAccounts{
		Admin:       caller,
		Config:      h.config,
		Treasury:    h.treasury,
		Destination: destination,
	}, instruction.WithdrawFees{Amount: amount}))
}

func TestInitializeConfig(t *testing.T) {
	h := newHarness(t)
	h.initConfig(30, launchFee, 1000)

	cfg := h.configState()
	assert.Equal(t, h.admin, cfg.Admin)
	assert.Equal(t, uint16(30), cfg.DefaultFeeRateBps)
	assert.Equal(t, h.quoteMint, cfg.QuoteMint)
	assert.Equal(t, h.treasury, cfg.Treasury)
	assert.Zero(t, h.balance(h.treasury))

	_, err := h.process(h.ix(instruction.NewInitializeConfig(h.program, instruction.InitializeConfigAccounts{
		Admin:     h.admin,
		Config:    h.config,
		QuoteMint: h.quoteMint,
		Treasury:  solana.NewWallet().PublicKey(),
	}, instruction.InitializeConfig{})))
	assert.ErrorIs(t, err, ledgererr.ErrAlreadyInitialized)
}

func TestInitializeConfig_Rejects(t *testing.T) {
	h := newHarness(t)

	_, err := h.process(h.ix(instruction.NewInitializeConfig(h.program, instruction.InitializeConfigAccounts{
		Admin:     h.admin,
		Config:    solana.NewWallet().PublicKey(),
		QuoteMint: h.quoteMint,
		Treasury:  h.treasury,
	}, instruction.InitializeConfig{})))
	assert.ErrorIs(t, err, ledgererr.ErrInvalidSeeds)

	_, err = h.process(h.ix(instruction.NewInitializeConfig(h.program, instruction.InitializeConfigAccounts{
		Admin:     h.admin,
		Config:    h.config,
		QuoteMint: h.quoteMint,
		Treasury:  h.treasury,
	}, instruction.InitializeConfig{DefaultFeeRateBps: 10_001})))
	assert.ErrorIs(t, err, ledgererr.ErrInvalidFeeRate)
	assert.False(t, h.exists(h.config))
}

func TestUpdateConfig(t *testing.T) {
	h := newHarness(t)
	h.initConfig(30, launchFee, 1000)
	stranger := solana.NewWallet().PublicKey()

	_, err := h.process(h.updateConfigIx(stranger, nil, 10))
	assert.ErrorIs(t, err, ledgererr.ErrUnauthorized)

	h.mustProcess(h.updateConfigIx(h.admin, nil, 10))
	cfg := h.configState()
	assert.Equal(t, uint16(10), cfg.DefaultFeeRateBps)
	assert.Equal(t, uint64(5), cfg.LaunchCreationFee)
	assert.Equal(t, uint64(10), cfg.MinLiquidity)

	h.mustProcess(h.updateConfigIx(h.admin, &stranger, 20))
	assert.Equal(t, stranger, h.configState().Admin)

	_, err = h.process(h.updateConfigIx(h.admin, nil, 30))
	assert.ErrorIs(t, err, ledgererr.ErrUnauthorized)
	h.mustProcess(h.updateConfigIx(stranger, nil, 30))
}

func TestUpdateConfig_NewAdminMustSign(t *testing.T) {
	h := newHarness(t)
	h.initConfig(30, launchFee, 1000)
	successor := solana.NewWallet().PublicKey()

	signed := h.updateConfigIx(h.admin, &successor, 20)
	require.True(t, signed.Accounts()[2].IsSigner)

	metas := append([]*solana.AccountMeta{}, signed.Accounts()...)
	metas[2] = &solana.AccountMeta{PublicKey: successor}
	data, err := signed.Data()
	require.NoError(t, err)

	_, err = h.process(solana.NewInstruction(h.program, metas, data))
	assert.ErrorIs(t, err, ledgererr.ErrMissingRequiredSignature)
	assert.Equal(t, h.admin, h.configState().Admin)

	h.mustProcess(signed)
	assert.Equal(t, successor, h.configState().Admin)
}

func TestWithdrawFees(t *testing.T) {
	h := newHarness(t)
	h.startLaunch()
	destination := solana.NewWallet().PublicKey()

	_, err := h.process(h.withdrawIx(solana.NewWallet().PublicKey(), destination, 0))
	assert.ErrorIs(t, err, ledgererr.ErrUnauthorized)

	_, err = h.process(h.withdrawIx(h.admin, destination, launchFee+1))
	assert.ErrorIs(t, err, ledgererr.ErrInsufficientFunds)

	h.mustProcess(h.withdrawIx(h.admin, destination, 400_000))
	assert.Equal(t, uint64(400_000), h.balance(destination))

	h.mustProcess(h.withdrawIx(h.admin, destination, 0))
	assert.Equal(t, uint64(launchFee), h.balance(destination))
	assert.Zero(t, h.balance(h.treasury))

	_, err = h.process(h.withdrawIx(h.admin, destination, 0))
	assert.ErrorIs(t, err, ledgererr.ErrZeroAmount)
}

package processor

import (
	"testing"
	"time"

	"github.com/aman-zulfiqar/redz-ledger/internal/instruction"
	"github.com/aman-zulfiqar/redz-ledger/internal/ledger"
	"github.com/aman-zulfiqar/redz-ledger/internal/ledgererr"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	launchFee    = 1_000_000
	launchTokens = 1_000_000_000
	launchTarget = 2_000_000
	launchWindow = 86_400
)

type launchFixture struct {
	key           solana.PublicKey
	tokenMint     solana.PublicKey
	launcher      solana.PublicKey
	launcherQuote solana.PublicKey
	launcherToken solana.PublicKey
	tokenVault    solana.PublicKey
	quoteVault    solana.PublicKey
}

type participant struct {
	key          solana.PublicKey
	quote        solana.PublicKey
	token        solana.PublicKey
	contribution solana.PublicKey
}

func (h *harness) launchAccounts(quoteBalance uint64) launchFixture {
	h.t.Helper()
	f := launchFixture{
		tokenMint:  h.seedMint(),
		launcher:   solana.NewWallet().PublicKey(),
		tokenVault: solana.NewWallet().PublicKey(),
		quoteVault: solana.NewWallet().PublicKey(),
	}
	f.launcherQuote = h.seedToken(h.quoteMint, f.launcher, quoteBalance)
	f.launcherToken = h.seedToken(f.tokenMint, f.launcher, launchTokens)
	var err error
	f.key, _, err = ledger.FindLaunchAddress(h.program, f.tokenMint)
	require.NoError(h.t, err)
	return f
}

func (h *harness) launchIx(f launchFixture, tokenAmount, target, duration uint64) solana.Instruction {
	return h.ix(instruction.NewLaunchToken(h.program, instruction.LaunchTokenAccounts{
		Launcher:      f.launcher,
		Launch:        f.key,
		TokenMint:     f.tokenMint,
		Config:        h.config,
		LauncherQuote: f.launcherQuote,
		Treasury:      h.treasury,
		LauncherToken: f.launcherToken,
		TokenVault:    f.tokenVault,
		QuoteVault:    f.quoteVault,
	}, instruction.LaunchToken{TokenAmount: tokenAmount, TargetAmount: target, Duration: duration}))
}

func (h *harness) startLaunch() launchFixture {
	h.t.Helper()
	h.initConfig(30, launchFee, 1)
	f := h.launchAccounts(5_000_000)
	h.mustProcess(h.launchIx(f, launchTokens, launchTarget, launchWindow))
	return f
}

func (h *harness) newParticipant(f launchFixture, quote uint64) participant {
	h.t.Helper()
	p := participant{key: solana.NewWallet().PublicKey(), token: solana.NewWallet().PublicKey()}
	p.quote = h.seedToken(h.quoteMint, p.key, quote)
	var err error
	p.contribution, _, err = ledger.FindContributionAddress(h.program, f.key, p.key)
	require.NoError(h.t, err)
	return p
}

func (h *harness) participateIx(f launchFixture, p participant, amount uint64) solana.Instruction {
	return h.ix(instruction.NewParticipateInLaunch(h.program, instruction.ParticipateAccounts{
		Participant:      p.key,
		Launch:           f.key,
		Contribution:     p.contribution,
		ParticipantQuote: p.quote,
		QuoteVault:       f.quoteVault,
	}, instruction.ParticipateInLaunch{Amount: amount}))
}

func (h *harness) finalizeIx(f launchFixture, caller solana.PublicKey) solana.Instruction {
	return h.ix(instruction.NewFinalizeTokenLaunch(h.program, instruction.FinalizeAccounts{
		Launcher: caller,
		Launch:   f.key,
	}))
}

func (h *harness) closeIx(f launchFixture) solana.Instruction {
	return h.ix(instruction.NewCloseTokenLaunch(h.program, instruction.CloseLaunchAccounts{
		Launcher:      f.launcher,
		Launch:        f.key,
		QuoteVault:    f.quoteVault,
		TokenVault:    f.tokenVault,
		LauncherQuote: f.launcherQuote,
		LauncherToken: f.launcherToken,
	}))
}

func (h *harness) settleIx(f launchFixture, p participant) solana.Instruction {
	return h.ix(instruction.NewSettleContribution(h.program, instruction.SettleAccounts{
		Participant:      p.key,
		Launch:           f.key,
		Contribution:     p.contribution,
		QuoteVault:       f.quoteVault,
		TokenVault:       f.tokenVault,
		ParticipantQuote: p.quote,
		ParticipantToken: p.token,
	}))
}

func TestLaunch_SuccessfulLifecycle(t *testing.T) {
	h := newHarness(t)
	f := h.startLaunch()

	l := h.launchState(f.key)
	assert.Equal(t, uint64(genesisTime.Unix()), l.LaunchTime)
	assert.Equal(t, uint64(launchFee), h.balance(h.treasury))
	assert.Equal(t, uint64(4_000_000), h.balance(f.launcherQuote))
	assert.Equal(t, uint64(launchTokens), h.balance(f.tokenVault))
	assert.Zero(t, h.balance(f.launcherToken))

	p1 := h.newParticipant(f, 2_000_000)
	p2 := h.newParticipant(f, 2_000_000)
	h.mustProcess(h.participateIx(f, p1, 1_000_000))
	h.mustProcess(h.participateIx(f, p1, 500_000))
	h.mustProcess(h.participateIx(f, p2, 500_000))
	assert.Equal(t, uint64(launchTarget), h.launchState(f.key).CurrentAmount)
	assert.Equal(t, uint64(launchTarget), h.balance(f.quoteVault))

	_, err := h.process(h.finalizeIx(f, p1.key))
	assert.ErrorIs(t, err, ledgererr.ErrNotLauncher)

	h.mustProcess(h.finalizeIx(f, f.launcher))
	_, err = h.process(h.finalizeIx(f, f.launcher))
	assert.ErrorIs(t, err, ledgererr.ErrAlreadyFinalized)

	_, err = h.process(h.participateIx(f, p2, 1))
	assert.ErrorIs(t, err, ledgererr.ErrLaunchFinalized)

	res := h.mustProcess(h.closeIx(f))
	assert.Equal(t, uint64(launchTarget), res.Events[0].AmountB)
	assert.Equal(t, uint64(6_000_000), h.balance(f.launcherQuote))
	l = h.launchState(f.key)
	assert.True(t, l.IsClosed)
	assert.True(t, l.IsFinalized)
	assert.False(t, l.IsRefunding)

	_, err = h.process(h.closeIx(f))
	assert.ErrorIs(t, err, ledgererr.ErrAlreadyClosed)

	h.mustProcess(h.settleIx(f, p1))
	h.mustProcess(h.settleIx(f, p2))
	assert.Equal(t, uint64(750_000_000), h.balance(p1.token))
	assert.Equal(t, uint64(250_000_000), h.balance(p2.token))
	assert.Zero(t, h.balance(f.tokenVault))

	_, err = h.process(h.settleIx(f, p1))
	assert.ErrorIs(t, err, ledgererr.ErrAlreadySettled)
}

func TestLaunch_ExpiredRefunds(t *testing.T) {
	h := newHarness(t)
	f := h.startLaunch()
	p := h.newParticipant(f, 1_000_000)
	h.mustProcess(h.participateIx(f, p, 500_000))

	_, err := h.process(h.closeIx(f))
	assert.ErrorIs(t, err, ledgererr.ErrNotFinalizedOrExpired)

	// the deadline itself is still open
	h.clock.Add(launchWindow * time.Second)
	_, err = h.process(h.settleIx(f, p))
	assert.ErrorIs(t, err, ledgererr.ErrNotFinalizedOrExpired)

	h.clock.Add(time.Second)
	_, err = h.process(h.finalizeIx(f, f.launcher))
	assert.ErrorIs(t, err, ledgererr.ErrLaunchExpired)
	_, err = h.process(h.participateIx(f, p, 1))
	assert.ErrorIs(t, err, ledgererr.ErrLaunchExpired)

	h.mustProcess(h.settleIx(f, p))
	assert.Equal(t, uint64(1_000_000), h.balance(p.quote))
	assert.False(t, h.exists(p.token))

	res := h.mustProcess(h.closeIx(f))
	assert.Equal(t, "refunding", res.Events[0].Direction)
	assert.Equal(t, uint64(launchTokens), h.balance(f.launcherToken))

	l := h.launchState(f.key)
	assert.True(t, l.IsRefunding)
	assert.True(t, l.IsClosed)
	assert.True(t, l.IsFinalized)

	_, err = h.process(h.settleIx(f, p))
	assert.ErrorIs(t, err, ledgererr.ErrAlreadySettled)
}

func TestLaunch_Policy(t *testing.T) {
	h := newHarness(t)
	f := h.startLaunch()
	p := h.newParticipant(f, 5_000_000)

	_, err := h.process(h.participateIx(f, p, launchTarget+1))
	assert.ErrorIs(t, err, ledgererr.ErrTargetExceeded)

	h.mustProcess(h.participateIx(f, p, 1_000_000))
	_, err = h.process(h.finalizeIx(f, f.launcher))
	assert.ErrorIs(t, err, ledgererr.ErrTargetNotMet)

	h.policy.set(ledger.Policy{AllowOversubscription: true, AllowUndersubscribedFinalize: true})
	h.mustProcess(h.participateIx(f, p, 1_500_000))
	assert.Equal(t, uint64(2_500_000), h.launchState(f.key).CurrentAmount)
	h.mustProcess(h.finalizeIx(f, f.launcher))
}

func TestLaunchToken_Rejects(t *testing.T) {
	h := newHarness(t)
	h.initConfig(30, launchFee, 1)

	poor := h.launchAccounts(launchFee - 1)
	_, err := h.process(h.launchIx(poor, launchTokens, launchTarget, launchWindow))
	assert.ErrorIs(t, err, ledgererr.ErrInsufficientFee)

	f := h.launchAccounts(5_000_000)
	_, err = h.process(h.launchIx(f, launchTokens, launchTarget, 0))
	assert.ErrorIs(t, err, ledgererr.ErrInvalidDuration)
	_, err = h.process(h.launchIx(f, launchTokens, 0, launchWindow))
	assert.ErrorIs(t, err, ledgererr.ErrInvalidTarget)
	_, err = h.process(h.launchIx(f, launchTokens+1, launchTarget, launchWindow))
	assert.ErrorIs(t, err, ledgererr.ErrInsufficientFunds)
	assert.Equal(t, uint64(5_000_000), h.balance(f.launcherQuote))

	h.mustProcess(h.launchIx(f, launchTokens, launchTarget, launchWindow))
	_, err = h.process(h.launchIx(f, launchTokens, launchTarget, launchWindow))
	assert.ErrorIs(t, err, ledgererr.ErrAlreadyInitialized)
}

func TestParticipate_WrongReceipt(t *testing.T) {
	h := newHarness(t)
	f := h.startLaunch()
	p := h.newParticipant(f, 1_000_000)
	other := h.newParticipant(f, 1_000_000)

	p.contribution = other.contribution
	_, err := h.process(h.participateIx(f, p, 1))
	assert.ErrorIs(t, err, ledgererr.ErrInvalidSeeds)
}

func TestCloseTokenLaunch_AccountCount(t *testing.T) {
	h := newHarness(t)
	f := h.startLaunch()

	ix := h.closeIx(f)
	short := solana.NewInstruction(h.program, ix.Accounts()[:6], []byte{byte(instruction.OpCloseTokenLaunch)})
	_, err := h.process(short)
	assert.ErrorIs(t, err, ledgererr.ErrNotEnoughAccountKeys)
}

package ledger

import (
	"github.com/aman-zulfiqar/redz-ledger/internal/ledgererr"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// LaunchParams are the launcher-supplied terms of a launch.
type LaunchParams struct {
	Launcher     solana.PublicKey
	TokenMint    solana.PublicKey
	TokenVault   solana.PublicKey
	QuoteVault   solana.PublicKey
	TokenAmount  uint64
	TargetAmount uint64
	Duration     uint64
}

// Launch opens the escrow at now. feeBalance is what the launcher can pay
// toward the config's launch creation fee.
func (l *LaunchAccount) Launch(params LaunchParams, cfg *ConfigAccount, feeBalance, now uint64) error {
	if l.Initialized {
		return ledgererr.ErrAlreadyInitialized
	}
	if params.Duration == 0 {
		return ledgererr.ErrInvalidDuration
	}
	if params.TargetAmount == 0 {
		return ledgererr.ErrInvalidTarget
	}
	if params.TokenAmount == 0 {
		return ledgererr.ErrInvalidTokenAmount
	}
	if feeBalance < cfg.LaunchCreationFee {
		return ledgererr.Wrap(ledgererr.ErrInsufficientFee, "fee %d, available %d", cfg.LaunchCreationFee, feeBalance)
	}
	*l = LaunchAccount{
		Initialized:  true,
		TokenMint:    params.TokenMint,
		Launcher:     params.Launcher,
		TargetAmount: params.TargetAmount,
		TokenAmount:  params.TokenAmount,
		Duration:     params.Duration,
		LaunchTime:   now,
		TokenVault:   params.TokenVault,
		QuoteVault:   params.QuoteVault,
	}
	return nil
}

// Deadline is launchTime + duration, saturating at the maximum timestamp.
func (l *LaunchAccount) Deadline() uint64 {
	d, ok := checkedAdd(l.LaunchTime, l.Duration)
	if !ok {
		return ^uint64(0)
	}
	return d
}

// Expired reports whether now is past the deadline.
func (l *LaunchAccount) Expired(now uint64) bool {
	return now > l.Deadline()
}

// Participate adds amount to the launch and to the participant's receipt.
// An uninitialized receipt is created for the participant.
func (l *LaunchAccount) Participate(launch solana.PublicKey, receipt *ContributionAccount, participant solana.PublicKey, amount, now uint64, policy Policy) error {
	if !l.Initialized {
		return ledgererr.ErrUninitialized
	}
	if l.Expired(now) {
		return ledgererr.ErrLaunchExpired
	}
	if l.IsFinalized {
		return ledgererr.ErrLaunchFinalized
	}
	if amount == 0 {
		return ledgererr.ErrZeroAmount
	}

	current, ok := checkedAdd(l.CurrentAmount, amount)
	if !ok {
		return ledgererr.Wrap(ledgererr.ErrArithmeticOverflow, "current amount")
	}
	if !policy.AllowOversubscription && current > l.TargetAmount {
		// an earlier oversubscribed raise can leave nothing remaining
		remaining := uint64(0)
		if l.CurrentAmount < l.TargetAmount {
			remaining = l.TargetAmount - l.CurrentAmount
		}
		return ledgererr.Wrap(ledgererr.ErrTargetExceeded, "remaining %d", remaining)
	}

	if receipt.Initialized {
		if !receipt.Launch.Equals(launch) || !receipt.Participant.Equals(participant) {
			return ledgererr.Wrap(ledgererr.ErrAccountMismatch, "contribution receipt")
		}
	}
	contributed, ok := checkedAdd(receipt.Amount, amount)
	if !ok {
		return ledgererr.Wrap(ledgererr.ErrArithmeticOverflow, "contribution")
	}

	l.CurrentAmount = current
	*receipt = ContributionAccount{
		Initialized: true,
		Launch:      launch,
		Participant: participant,
		Amount:      contributed,
	}
	return nil
}

// Finalize ends the fundraising phase successfully.
func (l *LaunchAccount) Finalize(caller solana.PublicKey, now uint64, policy Policy) error {
	if !l.Initialized {
		return ledgererr.ErrUninitialized
	}
	if !caller.Equals(l.Launcher) {
		return ledgererr.ErrNotLauncher
	}
	if l.IsFinalized {
		return ledgererr.ErrAlreadyFinalized
	}
	if l.Expired(now) {
		return ledgererr.ErrLaunchExpired
	}
	if l.CurrentAmount < l.TargetAmount && !policy.AllowUndersubscribedFinalize {
		return ledgererr.Wrap(ledgererr.ErrTargetNotMet, "raised %d of %d", l.CurrentAmount, l.TargetAmount)
	}
	l.IsFinalized = true
	return nil
}

// CloseOutcome lists what the launcher receives from the escrow vaults.
type CloseOutcome struct {
	Refunding    bool
	QuoteRelease uint64
	TokenRelease uint64
}

// Close is the launcher path of CloseTokenLaunch. A finalized launch releases
// the raised quote amount; an expired one is frozen into refund mode and the
// escrowed tokens go back to the launcher. Either way the launch ends closed
// and finalized.
func (l *LaunchAccount) Close(caller solana.PublicKey, now uint64) (CloseOutcome, error) {
	if !l.Initialized {
		return CloseOutcome{}, ledgererr.ErrUninitialized
	}
	if !caller.Equals(l.Launcher) {
		return CloseOutcome{}, ledgererr.ErrNotLauncher
	}
	if l.IsClosed {
		return CloseOutcome{}, ledgererr.ErrAlreadyClosed
	}
	if !l.IsFinalized && !l.Expired(now) {
		return CloseOutcome{}, ledgererr.ErrNotFinalizedOrExpired
	}

	var out CloseOutcome
	if l.IsFinalized {
		out.QuoteRelease = l.CurrentAmount
		if l.CurrentAmount == 0 {
			out.TokenRelease = l.TokenAmount
		}
	} else {
		out.Refunding = true
		out.TokenRelease = l.TokenAmount
		l.IsRefunding = true
		l.IsFinalized = true
	}
	l.IsClosed = true
	return out, nil
}

// Settlement is what a participant receives from the escrow vaults.
type Settlement struct {
	Refund     uint64
	TokenClaim uint64
}

// Settle is the participant path of CloseTokenLaunch: a pro-rata token claim
// for a successful launch, or a full refund for one that expired unfinalized.
func (l *LaunchAccount) Settle(launch solana.PublicKey, receipt *ContributionAccount, participant solana.PublicKey, now uint64) (Settlement, error) {
	if !l.Initialized || !receipt.Initialized {
		return Settlement{}, ledgererr.ErrUninitialized
	}
	if !receipt.Launch.Equals(launch) || !receipt.Participant.Equals(participant) {
		return Settlement{}, ledgererr.Wrap(ledgererr.ErrAccountMismatch, "contribution receipt")
	}
	if receipt.Settled {
		return Settlement{}, ledgererr.ErrAlreadySettled
	}

	var s Settlement
	switch {
	case l.IsRefunding || (!l.IsFinalized && l.Expired(now)):
		s.Refund = receipt.Amount
	case l.IsFinalized:
		if l.CurrentAmount == 0 {
			return Settlement{}, ledgererr.ErrInvalidReserves
		}
		s.TokenClaim = uint128.From64(l.TokenAmount).Mul64(receipt.Amount).Div64(l.CurrentAmount).Lo
	default:
		return Settlement{}, ledgererr.ErrNotFinalizedOrExpired
	}

	receipt.Settled = true
	return s, nil
}

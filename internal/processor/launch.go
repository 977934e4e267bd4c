package processor

import (
	"github.com/aman-zulfiqar/redz-ledger/internal/instruction"
	"github.com/aman-zulfiqar/redz-ledger/internal/ledger"
	"github.com/aman-zulfiqar/redz-ledger/internal/ledgererr"
	"github.com/aman-zulfiqar/redz-ledger/internal/token"
	"github.com/gagliardetto/solana-go"
)

// Account counts that tell the two CloseTokenLaunch paths apart.
const (
	closeLauncherAccounts    = 7
	closeParticipantAccounts = 8
)

// Launch events report token movements in AmountA and quote movements in
// AmountB.

func (c *ixContext) launchToken(ix *instruction.LaunchToken) error {
	if err := c.requireAccounts(10); err != nil {
		return err
	}
	launcher, err := c.key(0, "launcher", signerRole|writableRole)
	if err != nil {
		return err
	}
	launchKey, err := c.key(1, "launch", writableRole)
	if err != nil {
		return err
	}
	tokenMint, _ := c.key(2, "token mint", 0)
	cfgKey, _ := c.key(3, "config", 0)
	var keys [5]solana.PublicKey
	for i, name := range []string{"launcher quote", "treasury", "launcher token", "token vault", "quote vault"} {
		if keys[i], err = c.key(4+i, name, writableRole); err != nil {
			return err
		}
	}
	if err := c.program(9, token.ProgramID); err != nil {
		return err
	}

	if err := expectAddress(launchKey, func() (solana.PublicKey, uint8, error) {
		return ledger.FindLaunchAddress(c.p.programID, tokenMint)
	}, "launch"); err != nil {
		return err
	}
	cfg, err := c.config(cfgKey)
	if err != nil {
		return err
	}
	if _, err := c.mint(tokenMint); err != nil {
		return err
	}
	if tokenMint.Equals(cfg.QuoteMint) {
		return ledgererr.ErrIdenticalMints
	}

	launcherQuote, err := c.tokenAccount(keys[0], cfg.QuoteMint)
	if err != nil {
		return err
	}
	treasury, err := c.vault(keys[1], cfg.Treasury, cfg.QuoteMint, "treasury")
	if err != nil {
		return err
	}
	launcherToken, err := c.tokenAccount(keys[2], tokenMint)
	if err != nil {
		return err
	}
	if keys[3].Equals(keys[4]) {
		return ledgererr.Wrap(ledgererr.ErrAccountMismatch, "token and quote vault must differ")
	}

	launch, err := loadOrNew[ledger.LaunchAccount](c.ws, launchKey, c.p.programID)
	if err != nil {
		return err
	}
	err = launch.Launch(ledger.LaunchParams{
		Launcher:     launcher,
		TokenMint:    tokenMint,
		TokenVault:   keys[3],
		QuoteVault:   keys[4],
		TokenAmount:  ix.TokenAmount,
		TargetAmount: ix.TargetAmount,
		Duration:     ix.Duration,
	}, cfg, launcherQuote.Amount, c.now)
	if err != nil {
		return err
	}

	tokenVault := &token.Account{Mint: tokenMint, Owner: launchKey}
	if err := c.ws.create(keys[3], token.ProgramID, tokenVault); err != nil {
		return err
	}
	quoteVault := &token.Account{Mint: cfg.QuoteMint, Owner: launchKey}
	if err := c.ws.create(keys[4], token.ProgramID, quoteVault); err != nil {
		return err
	}

	if err := c.transfer(launcherQuote, treasury, launcher, cfg.LaunchCreationFee); err != nil {
		return err
	}
	if err := c.transfer(launcherToken, tokenVault, launcher, ix.TokenAmount); err != nil {
		return err
	}

	c.event.Signer = launcher.String()
	c.event.Subject = launchKey.String()
	c.event.AmountA, c.event.AmountB = ix.TokenAmount, cfg.LaunchCreationFee
	return nil
}

func (c *ixContext) participate(ix *instruction.ParticipateInLaunch) error {
	if err := c.requireAccounts(6); err != nil {
		return err
	}
	participant, err := c.key(0, "participant", signerRole|writableRole)
	if err != nil {
		return err
	}
	launchKey, err := c.key(1, "launch", writableRole)
	if err != nil {
		return err
	}
	receiptKey, err := c.key(2, "contribution", writableRole)
	if err != nil {
		return err
	}
	participantQuoteKey, err := c.key(3, "participant quote", writableRole)
	if err != nil {
		return err
	}
	quoteVaultKey, err := c.key(4, "quote vault", writableRole)
	if err != nil {
		return err
	}
	if err := c.program(5, token.ProgramID); err != nil {
		return err
	}

	launch, err := c.launch(launchKey)
	if err != nil {
		return err
	}
	if err := expectAddress(receiptKey, func() (solana.PublicKey, uint8, error) {
		return ledger.FindContributionAddress(c.p.programID, launchKey, participant)
	}, "contribution"); err != nil {
		return err
	}
	if !quoteVaultKey.Equals(launch.QuoteVault) {
		return ledgererr.Wrap(ledgererr.ErrAccountMismatch, "quote vault %s", quoteVaultKey)
	}
	quoteVault, found, err := load[token.Account](c.ws, quoteVaultKey, token.ProgramID)
	if err != nil {
		return err
	}
	if !found {
		return ledgererr.Wrap(ledgererr.ErrUninitialized, "quote vault %s", quoteVaultKey)
	}
	participantQuote, err := c.tokenAccount(participantQuoteKey, quoteVault.Mint)
	if err != nil {
		return err
	}
	receipt, err := loadOrNew[ledger.ContributionAccount](c.ws, receiptKey, c.p.programID)
	if err != nil {
		return err
	}

	if err := launch.Participate(launchKey, receipt, participant, ix.Amount, c.now, c.policy); err != nil {
		return err
	}
	if err := c.transfer(participantQuote, quoteVault, participant, ix.Amount); err != nil {
		return err
	}

	c.event.Signer = participant.String()
	c.event.Subject = launchKey.String()
	c.event.AmountB = ix.Amount
	return nil
}

func (c *ixContext) finalize() error {
	if err := c.requireAccounts(2); err != nil {
		return err
	}
	launcher, err := c.key(0, "launcher", signerRole)
	if err != nil {
		return err
	}
	launchKey, err := c.key(1, "launch", writableRole)
	if err != nil {
		return err
	}
	launch, err := c.launch(launchKey)
	if err != nil {
		return err
	}
	if err := launch.Finalize(launcher, c.now, c.policy); err != nil {
		return err
	}

	c.event.Signer = launcher.String()
	c.event.Subject = launchKey.String()
	c.event.AmountB = launch.CurrentAmount
	return nil
}

func (c *ixContext) closeLaunch() error {
	switch len(c.metas) {
	case closeLauncherAccounts:
		return c.closeAsLauncher()
	case closeParticipantAccounts:
		return c.settleContribution()
	default:
		if len(c.metas) < closeLauncherAccounts {
			return ledgererr.Wrap(ledgererr.ErrNotEnoughAccountKeys, "need %d or %d, got %d",
				closeLauncherAccounts, closeParticipantAccounts, len(c.metas))
		}
		return ledgererr.Wrap(ledgererr.ErrInvalidInstruction, "close takes %d or %d accounts, got %d",
			closeLauncherAccounts, closeParticipantAccounts, len(c.metas))
	}
}

// escrow loads the launch vaults named at the given positions.
func (c *ixContext) escrow(launch *ledger.LaunchAccount, quoteIdx, tokenIdx int) (*token.Account, *token.Account, error) {
	quoteKey, err := c.key(quoteIdx, "quote vault", writableRole)
	if err != nil {
		return nil, nil, err
	}
	tokenKey, err := c.key(tokenIdx, "token vault", writableRole)
	if err != nil {
		return nil, nil, err
	}
	if !quoteKey.Equals(launch.QuoteVault) {
		return nil, nil, ledgererr.Wrap(ledgererr.ErrAccountMismatch, "quote vault %s", quoteKey)
	}
	quoteVault, found, err := load[token.Account](c.ws, quoteKey, token.ProgramID)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return nil, nil, ledgererr.Wrap(ledgererr.ErrUninitialized, "quote vault %s", quoteKey)
	}
	tokenVault, err := c.vault(tokenKey, launch.TokenVault, launch.TokenMint, "token vault")
	if err != nil {
		return nil, nil, err
	}
	return quoteVault, tokenVault, nil
}

func (c *ixContext) closeAsLauncher() error {
	launcher, err := c.key(0, "launcher", signerRole)
	if err != nil {
		return err
	}
	launchKey, err := c.key(1, "launch", writableRole)
	if err != nil {
		return err
	}
	launcherQuoteKey, err := c.key(4, "launcher quote", writableRole)
	if err != nil {
		return err
	}
	launcherTokenKey, err := c.key(5, "launcher token", writableRole)
	if err != nil {
		return err
	}
	if err := c.program(6, token.ProgramID); err != nil {
		return err
	}

	launch, err := c.launch(launchKey)
	if err != nil {
		return err
	}
	quoteVault, tokenVault, err := c.escrow(launch, 2, 3)
	if err != nil {
		return err
	}

	out, err := launch.Close(launcher, c.now)
	if err != nil {
		return err
	}

	if out.QuoteRelease > 0 {
		launcherQuote, err := c.receivingAccount(launcherQuoteKey, quoteVault.Mint, launcher)
		if err != nil {
			return err
		}
		if err := c.transfer(quoteVault, launcherQuote, launchKey, out.QuoteRelease); err != nil {
			return err
		}
	}
	if out.TokenRelease > 0 {
		launcherToken, err := c.receivingAccount(launcherTokenKey, launch.TokenMint, launcher)
		if err != nil {
			return err
		}
		if err := c.transfer(tokenVault, launcherToken, launchKey, out.TokenRelease); err != nil {
			return err
		}
	}

	c.event.Signer = launcher.String()
	c.event.Subject = launchKey.String()
	c.event.AmountA, c.event.AmountB = out.TokenRelease, out.QuoteRelease
	if out.Refunding {
		c.event.Direction = "refunding"
	}
	return nil
}

func (c *ixContext) settleContribution() error {
	participant, err := c.key(0, "participant", signerRole)
	if err != nil {
		return err
	}
	launchKey, err := c.key(1, "launch", writableRole)
	if err != nil {
		return err
	}
	receiptKey, err := c.key(2, "contribution", writableRole)
	if err != nil {
		return err
	}
	participantQuoteKey, err := c.key(5, "participant quote", writableRole)
	if err != nil {
		return err
	}
	participantTokenKey, err := c.key(6, "participant token", writableRole)
	if err != nil {
		return err
	}
	if err := c.program(7, token.ProgramID); err != nil {
		return err
	}

	launch, err := c.launch(launchKey)
	if err != nil {
		return err
	}
	receipt, found, err := load[ledger.ContributionAccount](c.ws, receiptKey, c.p.programID)
	if err != nil {
		return err
	}
	if !found {
		return ledgererr.Wrap(ledgererr.ErrUninitialized, "contribution %s", receiptKey)
	}
	quoteVault, tokenVault, err := c.escrow(launch, 3, 4)
	if err != nil {
		return err
	}

	s, err := launch.Settle(launchKey, receipt, participant, c.now)
	if err != nil {
		return err
	}

	if s.Refund > 0 {
		participantQuote, err := c.receivingAccount(participantQuoteKey, quoteVault.Mint, participant)
		if err != nil {
			return err
		}
		if err := c.transfer(quoteVault, participantQuote, launchKey, s.Refund); err != nil {
			return err
		}
	}
	if s.TokenClaim > 0 {
		participantToken, err := c.receivingAccount(participantTokenKey, launch.TokenMint, participant)
		if err != nil {
			return err
		}
		if err := c.transfer(tokenVault, participantToken, launchKey, s.TokenClaim); err != nil {
			return err
		}
	}

	c.event.Signer = participant.String()
	c.event.Subject = launchKey.String()
	c.event.AmountA, c.event.AmountB = s.TokenClaim, s.Refund
	return nil
}

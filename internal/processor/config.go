package processor

import (
	"github.com/aman-zulfiqar/redz-ledger/internal/instruction"
	"github.com/aman-zulfiqar/redz-ledger/internal/ledger"
	"github.com/aman-zulfiqar/redz-ledger/internal/ledgererr"
	"github.com/aman-zulfiqar/redz-ledger/internal/token"
	"github.com/gagliardetto/solana-go"
)

func (c *ixContext) initializeConfig(ix *instruction.InitializeConfig) error {
	if err := c.requireAccounts(5); err != nil {
		return err
	}
	admin, err := c.key(0, "admin", signerRole|writableRole)
	if err != nil {
		return err
	}
	cfgKey, err := c.key(1, "config", writableRole)
	if err != nil {
		return err
	}
	quoteMint, _ := c.key(2, "quote mint", 0)
	treasuryKey, err := c.key(3, "treasury", writableRole)
	if err != nil {
		return err
	}
	if err := c.program(4, solana.SystemProgramID); err != nil {
		return err
	}

	if !cfgKey.Equals(c.p.configAddress) {
		return ledgererr.Wrap(ledgererr.ErrInvalidSeeds, "config %s", cfgKey)
	}
	if _, err := c.mint(quoteMint); err != nil {
		return err
	}

	cfg, err := loadOrNew[ledger.ConfigAccount](c.ws, cfgKey, c.p.programID)
	if err != nil {
		return err
	}
	err = cfg.Initialize(admin, quoteMint, treasuryKey, ledger.ConfigParams{
		DefaultFeeRateBps: ix.DefaultFeeRateBps,
		LaunchCreationFee: ix.LaunchCreationFee,
		MinLiquidity:      ix.MinLiquidity,
	})
	if err != nil {
		return err
	}
	if err := c.ws.create(treasuryKey, token.ProgramID, &token.Account{Mint: quoteMint, Owner: cfgKey}); err != nil {
		return err
	}

	c.event.Signer = admin.String()
	c.event.Subject = cfgKey.String()
	return nil
}

func (c *ixContext) updateConfig(ix *instruction.UpdateConfig) error {
	if err := c.requireAccounts(2); err != nil {
		return err
	}
	admin, err := c.key(0, "admin", signerRole)
	if err != nil {
		return err
	}
	cfgKey, err := c.key(1, "config", writableRole)
	if err != nil {
		return err
	}
	// the incoming admin signs too, so rights never move to a key nobody holds
	var newAdmin *solana.PublicKey
	if len(c.metas) > 2 {
		k, err := c.key(2, "new admin", signerRole)
		if err != nil {
			return err
		}
		newAdmin = &k
	}

	cfg, err := c.config(cfgKey)
	if err != nil {
		return err
	}
	err = cfg.Update(admin, ledger.ConfigParams{
		DefaultFeeRateBps: ix.DefaultFeeRateBps,
		LaunchCreationFee: ix.LaunchCreationFee,
		MinLiquidity:      ix.MinLiquidity,
	}, newAdmin)
	if err != nil {
		return err
	}

	c.event.Signer = admin.String()
	c.event.Subject = cfgKey.String()
	return nil
}

func (c *ixContext) withdrawFees(ix *instruction.WithdrawFees) error {
	if err := c.requireAccounts(5); err != nil {
		return err
	}
	admin, err := c.key(0, "admin", signerRole)
	if err != nil {
		return err
	}
	cfgKey, _ := c.key(1, "config", 0)
	treasuryKey, err := c.key(2, "treasury", writableRole)
	if err != nil {
		return err
	}
	destinationKey, err := c.key(3, "destination", writableRole)
	if err != nil {
		return err
	}
	if err := c.program(4, token.ProgramID); err != nil {
		return err
	}

	cfg, err := c.config(cfgKey)
	if err != nil {
		return err
	}
	treasury, err := c.vault(treasuryKey, cfg.Treasury, cfg.QuoteMint, "treasury")
	if err != nil {
		return err
	}
	amount, err := cfg.WithdrawFees(admin, treasury.Amount, ix.Amount)
	if err != nil {
		return err
	}
	destination, err := c.receivingAccount(destinationKey, cfg.QuoteMint, admin)
	if err != nil {
		return err
	}
	if err := c.transfer(treasury, destination, cfgKey, amount); err != nil {
		return err
	}

	c.event.Signer = admin.String()
	c.event.Subject = cfgKey.String()
	c.event.AmountB = amount
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/aman-zulfiqar/redz-ledger/internal/client"
	"github.com/aman-zulfiqar/redz-ledger/internal/instruction"
	"github.com/aman-zulfiqar/redz-ledger/internal/ledger"
	"github.com/aman-zulfiqar/redz-ledger/internal/token"
	"github.com/aman-zulfiqar/redz-ledger/internal/wallet"
	"github.com/gagliardetto/solana-go"
)

func runKeygen(_ context.Context, _ *env, args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	out := fs.String("out", "", "write the key as a JSON byte array to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	w := solana.NewWallet()
	if *out != "" {
		// keypair files are number arrays; json.Marshal would base64 a []byte
		nums := make([]int, len(w.PrivateKey))
		for i, b := range w.PrivateKey {
			nums[i] = int(b)
		}
		raw, err := json.Marshal(nums)
		if err != nil {
			return err
		}
		if err := os.WriteFile(*out, raw, 0o600); err != nil {
			return err
		}
	}
	return printJSON(map[string]string{"address": w.PublicKey().String(), "file": *out})
}

func runHealth(ctx context.Context, e *env, _ []string) error {
	h, err := e.client.Health(ctx)
	if err != nil {
		return err
	}
	return printJSON(h)
}

func runConfig(ctx context.Context, e *env, _ []string) error {
	c, err := e.client.Config(ctx)
	if err != nil {
		return err
	}
	return printJSON(c)
}

func runAccount(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("account", flag.ContinueOnError)
	decode := fs.Bool("token", false, "decode as a token account")
	if err := fs.Parse(args); err != nil {
		return err
	}
	key, err := positionalKey(fs.Args(), "account")
	if err != nil {
		return err
	}
	resp, err := e.client.Account(ctx, key)
	if err != nil {
		return err
	}
	if !*decode {
		return printJSON(resp)
	}
	if !resp.Owner.Equals(token.ProgramID) {
		return fmt.Errorf("%s is not a token account", key)
	}
	data, err := resp.Bytes()
	if err != nil {
		return err
	}
	var acct token.Account
	if err := acct.UnmarshalBinary(data); err != nil {
		return err
	}
	return printJSON(acct)
}

func runPool(ctx context.Context, e *env, args []string) error {
	key, err := positionalKey(args, "pool")
	if err != nil {
		return err
	}
	p, err := e.client.Pool(ctx, key)
	if err != nil {
		return err
	}
	return printJSON(p)
}

func runLaunchInfo(ctx context.Context, e *env, args []string) error {
	key, err := positionalKey(args, "launch")
	if err != nil {
		return err
	}
	l, err := e.client.Launch(ctx, key)
	if err != nil {
		return err
	}
	return printJSON(l)
}

func runContribution(ctx context.Context, e *env, args []string) error {
	key, err := positionalKey(args, "contribution")
	if err != nil {
		return err
	}
	c, err := e.client.Contribution(ctx, key)
	if err != nil {
		return err
	}
	return printJSON(c)
}

func runQuote(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("quote", flag.ContinueOnError)
	var pool keyFlag
	fs.Var(&pool, "pool", "pool address")
	amount := fs.Uint64("amount", 0, "input amount")
	b2a := fs.Bool("b2a", false, "swap token B for token A")
	slippage := fs.Uint("slippage", 50, "slippage tolerance in basis points")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]*keyFlag{"pool": &pool}); err != nil {
		return err
	}
	q, err := e.client.Quote(ctx, pool.key, *amount, !*b2a, uint16(*slippage))
	if err != nil {
		return err
	}
	return printJSON(q)
}

func runEvents(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "number of events")
	if err := fs.Parse(args); err != nil {
		return err
	}
	resp, err := e.client.RecentEvents(ctx, *limit)
	if err != nil {
		return err
	}
	return printJSON(resp.Items)
}

func runFlag(ctx context.Context, e *env, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: flag KEY true|false")
	}
	v, err := strconv.ParseBool(args[1])
	if err != nil {
		return err
	}
	if err := e.client.SetFlag(ctx, args[0], v); err != nil {
		return err
	}
	return printJSON(map[string]any{"key": args[0], "value": v})
}

// configArgs registers the shared InitializeConfig/UpdateConfig flags.
func configArgs(fs *flag.FlagSet) func() (instruction.InitializeConfig, error) {
	fee := fs.Uint("fee", 30, "default pool fee in basis points")
	launchFee := fs.Uint64("launch-fee", 0, "quote tokens charged per launch")
	minLiquidity := fs.Uint64("min-liquidity", 1000, "minimum LP tokens minted by a first deposit")
	return func() (instruction.InitializeConfig, error) {
		if *fee > 0xFFFF {
			return instruction.InitializeConfig{}, fmt.Errorf("fee %d out of range", *fee)
		}
		return instruction.InitializeConfig{
			DefaultFeeRateBps: uint16(*fee),
			LaunchCreationFee: *launchFee,
			MinLiquidity:      *minLiquidity,
		}, nil
	}
}

// submit signs ixs with the wallet key plus any cosigners and prints the result.
func submit(ctx context.Context, e *env, build func(program solana.PublicKey, w *wallet.Wallet) ([]solana.Instruction, []solana.PrivateKey, error)) error {
	w, err := e.wallet()
	if err != nil {
		return err
	}
	program, err := e.programID(ctx)
	if err != nil {
		return err
	}
	ixs, cosigners, err := build(program, w)
	if err != nil {
		return err
	}
	resp, err := w.SignAndSend(ctx, ixs, cosigners...)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func one(ix solana.Instruction, err error) ([]solana.Instruction, []solana.PrivateKey, error) {
	if err != nil {
		return nil, nil, err
	}
	return []solana.Instruction{ix}, nil, nil
}

// freshKey returns k when it was set, otherwise a new address that the ledger
// will open as a receiving account.
func freshKey(k keyFlag) solana.PublicKey {
	if k.set {
		return k.key
	}
	return solana.NewWallet().PublicKey()
}

func runInitConfig(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("init-config", flag.ContinueOnError)
	var quoteMint keyFlag
	fs.Var(&quoteMint, "quote-mint", "mint that launches raise and pay fees in")
	cfgArgs := configArgs(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]*keyFlag{"quote-mint": &quoteMint}); err != nil {
		return err
	}
	a, err := cfgArgs()
	if err != nil {
		return err
	}
	return submit(ctx, e, func(program solana.PublicKey, w *wallet.Wallet) ([]solana.Instruction, []solana.PrivateKey, error) {
		admin := w.PublicKey()
		cfgKey, _, err := ledger.FindConfigAddress(program)
		if err != nil {
			return nil, nil, err
		}
		return one(instruction.NewInitializeConfig(program, instruction.InitializeConfigAccounts{
			Admin:     admin,
			Config:    cfgKey,
			QuoteMint: quoteMint.key,
			Treasury:  solana.NewWallet().PublicKey(),
		}, a))
	})
}

func runUpdateConfig(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("update-config", flag.ContinueOnError)
	newAdminPath := fs.String("new-admin", "", "key file of the account taking over the admin role; it cosigns")
	cfgArgs := configArgs(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	a, err := cfgArgs()
	if err != nil {
		return err
	}
	var newAdmin solana.PrivateKey
	if *newAdminPath != "" {
		if newAdmin, err = wallet.ReadKeypair(*newAdminPath); err != nil {
			return fmt.Errorf("update-config: -new-admin: %w", err)
		}
	}
	return submit(ctx, e, func(program solana.PublicKey, w *wallet.Wallet) ([]solana.Instruction, []solana.PrivateKey, error) {
		admin := w.PublicKey()
		cfgKey, _, err := ledger.FindConfigAddress(program)
		if err != nil {
			return nil, nil, err
		}
		accts := instruction.UpdateConfigAccounts{Admin: admin, Config: cfgKey}
		if newAdmin == nil {
			return one(instruction.NewUpdateConfig(program, accts, instruction.UpdateConfig(a)))
		}
		successor := newAdmin.PublicKey()
		accts.NewAdmin = &successor
		ixs, _, err := one(instruction.NewUpdateConfig(program, accts, instruction.UpdateConfig(a)))
		return ixs, []solana.PrivateKey{newAdmin}, err
	})
}

func runWithdrawFees(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("withdraw-fees", flag.ContinueOnError)
	var to keyFlag
	fs.Var(&to, "to", "destination quote token account")
	amount := fs.Uint64("amount", 0, "amount to withdraw; 0 withdraws the whole treasury")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]*keyFlag{"to": &to}); err != nil {
		return err
	}
	cfg, err := e.client.Config(ctx)
	if err != nil {
		return err
	}
	return submit(ctx, e, func(program solana.PublicKey, w *wallet.Wallet) ([]solana.Instruction, []solana.PrivateKey, error) {
		admin := w.PublicKey()
		cfgKey, _, err := ledger.FindConfigAddress(program)
		if err != nil {
			return nil, nil, err
		}
		return one(instruction.NewWithdrawFees(program, instruction.WithdrawFeesAccounts{
			Admin:       admin,
			Config:      cfgKey,
			Treasury:    cfg.Treasury,
			Destination: to.key,
		}, instruction.WithdrawFees{Amount: *amount}))
	})
}

func runCreatePool(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("create-pool", flag.ContinueOnError)
	var mintA, mintB keyFlag
	fs.Var(&mintA, "mint-a", "first mint")
	fs.Var(&mintB, "mint-b", "second mint")
	fee := fs.Uint("fee", 0xFFFF, "pool fee in basis points; omit to use the configured default")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]*keyFlag{"mint-a": &mintA, "mint-b": &mintB}); err != nil {
		return err
	}
	if *fee > 0xFFFF {
		return fmt.Errorf("fee %d out of range", *fee)
	}
	return submit(ctx, e, func(program solana.PublicKey, w *wallet.Wallet) ([]solana.Instruction, []solana.PrivateKey, error) {
		authority := w.PublicKey()
		cfgKey, _, err := ledger.FindConfigAddress(program)
		if err != nil {
			return nil, nil, err
		}
		poolKey, _, err := ledger.FindPoolAddress(program, mintA.key, mintB.key)
		if err != nil {
			return nil, nil, err
		}
		exists, err := w.AccountExists(ctx, poolKey)
		if err != nil {
			return nil, nil, err
		}
		if exists {
			return nil, nil, fmt.Errorf("pool %s already exists", poolKey)
		}
		e.logger.WithField("pool", poolKey).Info("creating pool")
		return one(instruction.NewCreatePool(program, instruction.CreatePoolAccounts{
			Authority: authority,
			Pool:      poolKey,
			MintA:     mintA.key,
			MintB:     mintB.key,
			VaultA:    solana.NewWallet().PublicKey(),
			VaultB:    solana.NewWallet().PublicKey(),
			LpMint:    solana.NewWallet().PublicKey(),
			Config:    cfgKey,
		}, instruction.CreatePool{FeeRateBps: uint16(*fee)}))
	})
}

// poolFlags registers -pool and loads the pool it names after parsing.
func poolFlags(fs *flag.FlagSet) (*keyFlag, func(ctx context.Context, c *client.Client) (*ledger.PoolAccount, error)) {
	var pool keyFlag
	fs.Var(&pool, "pool", "pool address")
	return &pool, func(ctx context.Context, c *client.Client) (*ledger.PoolAccount, error) {
		if !pool.set {
			return nil, fmt.Errorf("%s: -pool is required", fs.Name())
		}
		return c.Pool(ctx, pool.key)
	}
}

func runAddLiquidity(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("add-liquidity", flag.ContinueOnError)
	pool, loadPool := poolFlags(fs)
	var userA, userB, userLp keyFlag
	fs.Var(&userA, "user-a", "token A source account")
	fs.Var(&userB, "user-b", "token B source account")
	fs.Var(&userLp, "user-lp", "LP token account; a new one is opened when omitted")
	amountA := fs.Uint64("a", 0, "token A amount")
	amountB := fs.Uint64("b", 0, "token B amount")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]*keyFlag{"user-a": &userA, "user-b": &userB}); err != nil {
		return err
	}
	p, err := loadPool(ctx, e.client)
	if err != nil {
		return err
	}
	return submit(ctx, e, func(program solana.PublicKey, w *wallet.Wallet) ([]solana.Instruction, []solana.PrivateKey, error) {
		user := w.PublicKey()
		cfgKey, _, err := ledger.FindConfigAddress(program)
		if err != nil {
			return nil, nil, err
		}
		return one(instruction.NewAddLiquidity(program, instruction.AddLiquidityAccounts{
			User:   user,
			Pool:   pool.key,
			Config: cfgKey,
			UserA:  userA.key,
			UserB:  userB.key,
			VaultA: p.TokenAVault,
			VaultB: p.TokenBVault,
			LpMint: p.LpTokenMint,
			UserLp: freshKey(userLp),
		}, instruction.AddLiquidity{AmountA: *amountA, AmountB: *amountB}))
	})
}

func runRemoveLiquidity(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("remove-liquidity", flag.ContinueOnError)
	pool, loadPool := poolFlags(fs)
	var userA, userB, userLp keyFlag
	fs.Var(&userA, "user-a", "token A destination account")
	fs.Var(&userB, "user-b", "token B destination account")
	fs.Var(&userLp, "user-lp", "LP token account to burn from")
	lp := fs.Uint64("lp", 0, "LP tokens to burn")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]*keyFlag{"user-a": &userA, "user-b": &userB, "user-lp": &userLp}); err != nil {
		return err
	}
	p, err := loadPool(ctx, e.client)
	if err != nil {
		return err
	}
	return submit(ctx, e, func(program solana.PublicKey, w *wallet.Wallet) ([]solana.Instruction, []solana.PrivateKey, error) {
		user := w.PublicKey()
		return one(instruction.NewRemoveLiquidity(program, instruction.RemoveLiquidityAccounts{
			User:   user,
			Pool:   pool.key,
			UserA:  userA.key,
			UserB:  userB.key,
			VaultA: p.TokenAVault,
			VaultB: p.TokenBVault,
			LpMint: p.LpTokenMint,
			UserLp: userLp.key,
		}, instruction.RemoveLiquidity{LpAmount: *lp}))
	})
}

func runSwap(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("swap", flag.ContinueOnError)
	pool, loadPool := poolFlags(fs)
	var from, to keyFlag
	fs.Var(&from, "from", "source token account")
	fs.Var(&to, "to", "destination token account; a new one is opened when omitted")
	amount := fs.Uint64("amount", 0, "input amount")
	minOut := fs.Uint64("min-out", 0, "minimum accepted output; 0 quotes with 50 bps slippage")
	b2a := fs.Bool("b2a", false, "swap token B for token A")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]*keyFlag{"from": &from}); err != nil {
		return err
	}
	p, err := loadPool(ctx, e.client)
	if err != nil {
		return err
	}
	if *minOut == 0 {
		q, err := e.client.Quote(ctx, pool.key, *amount, !*b2a, 50)
		if err != nil {
			return err
		}
		*minOut = q.MinimumAmountOut
	}
	srcVault, dstVault := p.TokenAVault, p.TokenBVault
	if *b2a {
		srcVault, dstVault = dstVault, srcVault
	}
	return submit(ctx, e, func(program solana.PublicKey, w *wallet.Wallet) ([]solana.Instruction, []solana.PrivateKey, error) {
		user := w.PublicKey()
		src, err := w.TokenBalance(ctx, from.key)
		if err != nil {
			return nil, nil, err
		}
		if src.Amount < *amount {
			return nil, nil, fmt.Errorf("source holds %d, swap needs %d", src.Amount, *amount)
		}
		return one(instruction.NewSwap(program, instruction.SwapAccounts{
			User:             user,
			Pool:             pool.key,
			UserSource:       from.key,
			UserDestination:  freshKey(to),
			SourceVault:      srcVault,
			DestinationVault: dstVault,
		}, instruction.Swap{AmountIn: *amount, MinimumAmountOut: *minOut}))
	})
}

func runLaunch(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("launch", flag.ContinueOnError)
	var mint, quote, tok keyFlag
	fs.Var(&mint, "mint", "mint of the token being launched")
	fs.Var(&quote, "quote", "launcher quote account paying the creation fee")
	fs.Var(&tok, "token", "launcher token account holding the sale tokens")
	tokens := fs.Uint64("tokens", 0, "tokens offered")
	target := fs.Uint64("target", 0, "quote amount to raise")
	duration := fs.Uint64("duration", 0, "seconds the launch stays open")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]*keyFlag{"mint": &mint, "quote": &quote, "token": &tok}); err != nil {
		return err
	}
	cfg, err := e.client.Config(ctx)
	if err != nil {
		return err
	}
	return submit(ctx, e, func(program solana.PublicKey, w *wallet.Wallet) ([]solana.Instruction, []solana.PrivateKey, error) {
		launcher := w.PublicKey()
		cfgKey, _, err := ledger.FindConfigAddress(program)
		if err != nil {
			return nil, nil, err
		}
		launchKey, _, err := ledger.FindLaunchAddress(program, mint.key)
		if err != nil {
			return nil, nil, err
		}
		e.logger.WithField("launch", launchKey).Info("creating launch")
		return one(instruction.NewLaunchToken(program, instruction.LaunchTokenAccounts{
			Launcher:      launcher,
			Launch:        launchKey,
			TokenMint:     mint.key,
			Config:        cfgKey,
			LauncherQuote: quote.key,
			Treasury:      cfg.Treasury,
			LauncherToken: tok.key,
			TokenVault:    solana.NewWallet().PublicKey(),
			QuoteVault:    solana.NewWallet().PublicKey(),
		}, instruction.LaunchToken{TokenAmount: *tokens, TargetAmount: *target, Duration: *duration}))
	})
}

// launchFlag registers -launch and loads the launch it names after parsing.
func launchFlag(fs *flag.FlagSet) (*keyFlag, func(ctx context.Context, c *client.Client) (*ledger.LaunchAccount, error)) {
	var launch keyFlag
	fs.Var(&launch, "launch", "launch address")
	return &launch, func(ctx context.Context, c *client.Client) (*ledger.LaunchAccount, error) {
		if !launch.set {
			return nil, fmt.Errorf("%s: -launch is required", fs.Name())
		}
		return c.Launch(ctx, launch.key)
	}
}

func runParticipate(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("participate", flag.ContinueOnError)
	launch, loadLaunch := launchFlag(fs)
	var quote keyFlag
	fs.Var(&quote, "quote", "quote account paying the contribution")
	amount := fs.Uint64("amount", 0, "quote amount to contribute")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]*keyFlag{"quote": &quote}); err != nil {
		return err
	}
	l, err := loadLaunch(ctx, e.client)
	if err != nil {
		return err
	}
	return submit(ctx, e, func(program solana.PublicKey, w *wallet.Wallet) ([]solana.Instruction, []solana.PrivateKey, error) {
		participant := w.PublicKey()
		contribution, _, err := ledger.FindContributionAddress(program, launch.key, participant)
		if err != nil {
			return nil, nil, err
		}
		return one(instruction.NewParticipateInLaunch(program, instruction.ParticipateAccounts{
			Participant:      participant,
			Launch:           launch.key,
			Contribution:     contribution,
			ParticipantQuote: quote.key,
			QuoteVault:       l.QuoteVault,
		}, instruction.ParticipateInLaunch{Amount: *amount}))
	})
}

func runFinalize(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("finalize", flag.ContinueOnError)
	launch, loadLaunch := launchFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := loadLaunch(ctx, e.client); err != nil {
		return err
	}
	return submit(ctx, e, func(program solana.PublicKey, w *wallet.Wallet) ([]solana.Instruction, []solana.PrivateKey, error) {
		launcher := w.PublicKey()
		return one(instruction.NewFinalizeTokenLaunch(program, instruction.FinalizeAccounts{
			Launcher: launcher,
			Launch:   launch.key,
		}))
	})
}

func runClose(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("close", flag.ContinueOnError)
	launch, loadLaunch := launchFlag(fs)
	var quote, tok keyFlag
	fs.Var(&quote, "quote", "launcher quote account receiving the raise")
	fs.Var(&tok, "token", "launcher token account receiving unsold tokens")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]*keyFlag{"quote": &quote, "token": &tok}); err != nil {
		return err
	}
	l, err := loadLaunch(ctx, e.client)
	if err != nil {
		return err
	}
	return submit(ctx, e, func(program solana.PublicKey, w *wallet.Wallet) ([]solana.Instruction, []solana.PrivateKey, error) {
		launcher := w.PublicKey()
		return one(instruction.NewCloseTokenLaunch(program, instruction.CloseLaunchAccounts{
			Launcher:      launcher,
			Launch:        launch.key,
			QuoteVault:    l.QuoteVault,
			TokenVault:    l.TokenVault,
			LauncherQuote: quote.key,
			LauncherToken: tok.key,
		}))
	})
}

func runSettle(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("settle", flag.ContinueOnError)
	launch, loadLaunch := launchFlag(fs)
	var quote, tok keyFlag
	fs.Var(&quote, "quote", "quote account for a refund; a new one is opened when omitted")
	fs.Var(&tok, "token", "token account for the allocation; a new one is opened when omitted")
	if err := fs.Parse(args); err != nil {
		return err
	}
	l, err := loadLaunch(ctx, e.client)
	if err != nil {
		return err
	}
	return submit(ctx, e, func(program solana.PublicKey, w *wallet.Wallet) ([]solana.Instruction, []solana.PrivateKey, error) {
		participant := w.PublicKey()
		contribution, _, err := ledger.FindContributionAddress(program, launch.key, participant)
		if err != nil {
			return nil, nil, err
		}
		return one(instruction.NewSettleContribution(program, instruction.SettleAccounts{
			Participant:      participant,
			Launch:           launch.key,
			Contribution:     contribution,
			QuoteVault:       l.QuoteVault,
			TokenVault:       l.TokenVault,
			ParticipantQuote: freshKey(quote),
			ParticipantToken: freshKey(tok),
		}))
	})
}

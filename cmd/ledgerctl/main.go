// ledgerctl builds, signs and submits ledger transactions, and reads ledger
// state, against a running ledgerd.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/aman-zulfiqar/redz-ledger/internal/client"
	"github.com/aman-zulfiqar/redz-ledger/internal/config"
	"github.com/aman-zulfiqar/redz-ledger/internal/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type env struct {
	cfg     *config.Config
	logger  *logrus.Logger
	program solana.PublicKey
	client  *client.Client
	url     string
	keyPath string
}

type command struct {
	usage string
	run   func(ctx context.Context, e *env, args []string) error
}

var commands = map[string]command{
	"keygen":           {"keygen -out FILE", runKeygen},
	"health":           {"health", runHealth},
	"config":           {"config", runConfig},
	"account":          {"account [-token] ADDRESS", runAccount},
	"pool":             {"pool ADDRESS", runPool},
	"launch-info":      {"launch-info ADDRESS", runLaunchInfo},
	"contribution":     {"contribution ADDRESS", runContribution},
	"quote":            {"quote -pool ADDR -amount N [-b2a] [-slippage BPS]", runQuote},
	"events":           {"events [-limit N]", runEvents},
	"flag":             {"flag KEY true|false", runFlag},
	"init-config":      {"init-config -quote-mint ADDR [-fee BPS] [-launch-fee N] [-min-liquidity N]", runInitConfig},
	"update-config":    {"update-config [-fee BPS] [-launch-fee N] [-min-liquidity N] [-new-admin KEYFILE]", runUpdateConfig},
	"withdraw-fees":    {"withdraw-fees -to ADDR [-amount N]", runWithdrawFees},
	"create-pool":      {"create-pool -mint-a ADDR -mint-b ADDR [-fee BPS]", runCreatePool},
	"add-liquidity":    {"add-liquidity -pool ADDR -a N -b N -user-a ADDR -user-b ADDR [-user-lp ADDR]", runAddLiquidity},
	"remove-liquidity": {"remove-liquidity -pool ADDR -lp N -user-a ADDR -user-b ADDR -user-lp ADDR", runRemoveLiquidity},
	"swap":             {"swap -pool ADDR -amount N -from ADDR [-to ADDR] [-min-out N] [-b2a]", runSwap},
	"launch":           {"launch -mint ADDR -tokens N -target N -duration SECS -quote ADDR -token ADDR", runLaunch},
	"participate":      {"participate -launch ADDR -amount N -quote ADDR", runParticipate},
	"finalize":         {"finalize -launch ADDR", runFinalize},
	"close":            {"close -launch ADDR -quote ADDR -token ADDR", runClose},
	"settle":           {"settle -launch ADDR [-quote ADDR] [-token ADDR]", runSettle},
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: ledgerctl [-url URL] [-keypair FILE] COMMAND [flags]")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %s\n", commands[name].usage)
	}
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})

	url := flag.String("url", cfg.LedgerURL, "ledgerd base URL")
	keyPath := flag.String("keypair", cfg.WalletKeyPath, "signing key file (base58 or JSON array)")
	programFlag := flag.String("program", cfg.ProgramID, "ledger program id; read from ledgerd when empty")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = usage
	flag.Parse()

	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", flag.Arg(0))
		usage()
		os.Exit(2)
	}

	e := &env{
		cfg:     cfg,
		logger:  logger,
		url:     *url,
		keyPath: *keyPath,
		client: client.NewClient(client.ClientConfig{
			BaseURL:      *url,
			APIKey:       cfg.APIKey,
			Timeout:      cfg.HTTPTimeout,
			MaxRetries:   3,
			RetryBackoff: 500 * time.Millisecond,
			Logger:       logger,
		}),
	}
	if *programFlag != "" {
		pk, err := solana.PublicKeyFromBase58(*programFlag)
		if err != nil {
			logger.WithError(err).Fatal("invalid -program")
		}
		e.program = pk
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.HTTPTimeout)
	defer cancel()

	if err := cmd.run(ctx, e, flag.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// programID returns the configured program, asking ledgerd when unset.
func (e *env) programID(ctx context.Context) (solana.PublicKey, error) {
	if !e.program.IsZero() {
		return e.program, nil
	}
	h, err := e.client.Health(ctx)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("read program id: %w", err)
	}
	e.program = h.ProgramID
	return e.program, nil
}

func (e *env) wallet() (*wallet.Wallet, error) {
	if e.keyPath == "" {
		if k := os.Getenv("WALLET_PRIVATE_KEY"); k != "" {
			return e.newWallet(k)
		}
		return nil, fmt.Errorf("no signing key: set -keypair, WALLET_KEYPAIR or WALLET_PRIVATE_KEY")
	}
	k, err := wallet.LoadPrivateKey(e.keyPath)
	if err != nil {
		return nil, err
	}
	return e.newWallet(k)
}

func (e *env) newWallet(key string) (*wallet.Wallet, error) {
	return wallet.NewWallet(wallet.WalletConfig{
		LedgerURL:  e.url,
		APIKey:     e.cfg.APIKey,
		Timeout:    e.cfg.HTTPTimeout,
		PrivateKey: key,
		Logger:     e.logger,
	})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// keyFlag is a flag.Value holding a public key.
type keyFlag struct {
	key solana.PublicKey
	set bool
}

func (k *keyFlag) String() string {
	if !k.set {
		return ""
	}
	return k.key.String()
}

func (k *keyFlag) Set(s string) error {
	pk, err := solana.PublicKeyFromBase58(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	k.key, k.set = pk, true
	return nil
}

func required(fs *flag.FlagSet, flags map[string]*keyFlag) error {
	for name, f := range flags {
		if !f.set {
			return fmt.Errorf("%s: -%s is required", fs.Name(), name)
		}
	}
	return nil
}

func positionalKey(args []string, what string) (solana.PublicKey, error) {
	if len(args) != 1 {
		return solana.PublicKey{}, fmt.Errorf("expected one %s address", what)
	}
	return solana.PublicKeyFromBase58(args[0])
}

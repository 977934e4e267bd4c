package wallet

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aman-zulfiqar/redz-ledger/internal/client"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"
)

type WalletConfig struct {
	LedgerURL    string
	APIKey       string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	PrivateKey string // base58-encoded 64-byte key OR solana-keygen JSON array

	Logger *logrus.Logger
}

// Wallet signs ledger transactions with one keypair and submits them to ledgerd.
type Wallet struct {
	cfg    WalletConfig
	ledger *client.Client
	priv   solana.PrivateKey
	pub    solana.PublicKey
}

func NewWallet(cfg WalletConfig) (*Wallet, error) {
	if cfg.LedgerURL == "" {
		return nil, fmt.Errorf("wallet: LedgerURL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	if strings.TrimSpace(cfg.PrivateKey) == "" {
		return nil, fmt.Errorf("wallet: PrivateKey is required")
	}

	priv, err := parsePrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	ledgerClient := client.NewClient(client.ClientConfig{
		BaseURL:      cfg.LedgerURL,
		APIKey:       cfg.APIKey,
		Timeout:      cfg.Timeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       cfg.Logger,
	})

	return &Wallet{
		cfg:    cfg,
		ledger: ledgerClient,
		priv:   priv,
		pub:    priv.PublicKey(),
	}, nil
}

// LoadPrivateKey reads a key file in either format parsePrivateKey accepts.
func LoadPrivateKey(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("wallet: read key file: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// ReadKeypair loads and decodes a key file, for cosigners that never become
// the wallet's own key.
func ReadKeypair(path string) (solana.PrivateKey, error) {
	s, err := LoadPrivateKey(path)
	if err != nil {
		return nil, err
	}
	return parsePrivateKey(s)
}

func (w *Wallet) Address() string             { return w.pub.String() }
func (w *Wallet) PublicKey() solana.PublicKey { return w.pub }
func (w *Wallet) Client() *client.Client      { return w.ledger }

func parsePrivateKey(s string) (solana.PrivateKey, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(s), &ints); err != nil {
			return nil, fmt.Errorf("wallet: invalid JSON private key: %w", err)
		}
		b := make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("wallet: invalid byte at %d: %d", i, v)
			}
			b[i] = byte(v)
		}
		if len(b) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("wallet: expected %d bytes, got %d", ed25519.PrivateKeySize, len(b))
		}
		return solana.PrivateKey(ed25519.PrivateKey(b)), nil
	}

	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("wallet: invalid base58 private key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("wallet: expected %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	return solana.PrivateKey(ed25519.PrivateKey(raw)), nil
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type Config struct {
	// Ledger
	ProgramID    string
	StoreBackend string
	GenesisPath  string

	// Launch policy defaults; flags in Redis override them at runtime.
	AllowOversubscription        bool
	AllowUndersubscribedFinalize bool

	// API server
	APIAddr      string
	APIKey       string
	DevMode      bool
	RateLimitRPS float64
	RateBurst    int

	// Redis settings
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// ClickHouse settings; an empty address disables archiving.
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// Commit and publish retries
	MaxRetries   int
	RetryBackoff time.Duration

	// ledgerctl
	LedgerURL     string
	HTTPTimeout   time.Duration
	WalletKeyPath string
}

func Load() *Config {
	return &Config{
		// Ledger
		ProgramID:    getEnv("LEDGER_PROGRAM_ID", ""),
		StoreBackend: getEnv("LEDGER_STORE", StoreRedis),
		GenesisPath:  getEnv("LEDGER_GENESIS", ""),

		AllowOversubscription:        getBoolEnv("LAUNCH_ALLOW_OVERSUBSCRIPTION", false),
		AllowUndersubscribedFinalize: getBoolEnv("LAUNCH_ALLOW_UNDERSUBSCRIBED_FINALIZE", false),

		// API
		APIAddr:      getEnv("API_ADDR", ":8090"),
		APIKey:       getEnv("API_KEY", ""),
		DevMode:      getBoolEnv("DEV_MODE", false),
		RateLimitRPS: getFloatEnv("TX_RATE_LIMIT_RPS", 20),
		RateBurst:    getIntEnv("TX_RATE_BURST", 40),

		// Redis
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "redz"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// Retries
		MaxRetries:   getIntEnv("MAX_RETRIES", 5),
		RetryBackoff: getDurationEnv("RETRY_BACKOFF", 50*time.Millisecond),

		// Client
		LedgerURL:     getEnv("LEDGER_URL", "http://localhost:8090"),
		HTTPTimeout:   getDurationEnv("HTTP_TIMEOUT", 30*time.Second),
		WalletKeyPath: getEnv("WALLET_KEYPAIR", ""),
	}
}

// Validate checks the settings ledgerd needs to start.
func (c *Config) Validate() error {
	if _, err := c.Program(); err != nil {
		return err
	}
	switch c.StoreBackend {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("LEDGER_STORE must be %q or %q, got %q", StoreMemory, StoreRedis, c.StoreBackend)
	}
	if strings.TrimSpace(c.APIAddr) == "" {
		return fmt.Errorf("API_ADDR is required")
	}
	if c.RateLimitRPS <= 0 || c.RateBurst <= 0 {
		return fmt.Errorf("TX_RATE_LIMIT_RPS and TX_RATE_BURST must be positive")
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("MAX_RETRIES must be positive")
	}
	return nil
}

// Program parses ProgramID.
func (c *Config) Program() (solana.PublicKey, error) {
	if c.ProgramID == "" {
		return solana.PublicKey{}, fmt.Errorf("LEDGER_PROGRAM_ID is required")
	}
	pk, err := solana.PublicKeyFromBase58(c.ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("LEDGER_PROGRAM_ID: %w", err)
	}
	return pk, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

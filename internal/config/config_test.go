package config

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LEDGER_PROGRAM_ID", "")
	cfg := Load()

	assert.Equal(t, StoreRedis, cfg.StoreBackend)
	assert.Equal(t, ":8090", cfg.APIAddr)
	assert.False(t, cfg.AllowOversubscription)
	assert.Equal(t, 50*time.Millisecond, cfg.RetryBackoff)
	assert.ErrorContains(t, cfg.Validate(), "LEDGER_PROGRAM_ID")
}

func TestLoad_FromEnv(t *testing.T) {
	program := solana.NewWallet().PublicKey()
	t.Setenv("LEDGER_PROGRAM_ID", program.String())
	t.Setenv("LEDGER_STORE", StoreMemory)
	t.Setenv("LAUNCH_ALLOW_OVERSUBSCRIPTION", "true")
	t.Setenv("TX_RATE_LIMIT_RPS", "2.5")
	t.Setenv("REDIS_DB", "4")
	t.Setenv("RETRY_BACKOFF", "1s")
	t.Setenv("DEV_MODE", "not-a-bool")

	cfg := Load()
	require.NoError(t, cfg.Validate())

	pk, err := cfg.Program()
	require.NoError(t, err)
	assert.Equal(t, program, pk)
	assert.True(t, cfg.AllowOversubscription)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.Equal(t, 4, cfg.RedisDB)
	assert.Equal(t, time.Second, cfg.RetryBackoff)
	assert.False(t, cfg.DevMode, "unparseable values keep the default")
}

func TestValidate_Rejects(t *testing.T) {
	t.Setenv("LEDGER_PROGRAM_ID", solana.NewWallet().PublicKey().String())

	cfg := Load()
	cfg.StoreBackend = "postgres"
	assert.ErrorContains(t, cfg.Validate(), "LEDGER_STORE")

	cfg = Load()
	cfg.RateBurst = 0
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.ProgramID = "not-base58-0OIl"
	assert.ErrorContains(t, cfg.Validate(), "LEDGER_PROGRAM_ID")
}

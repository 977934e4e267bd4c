package genesis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/aman-zulfiqar/redz-ledger/internal/store"
	"github.com/aman-zulfiqar/redz-ledger/internal/token"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type keys struct {
	mint, authority, alice, bob, aliceATA, bobATA solana.PublicKey
}

func newKeys() keys {
	k := func() solana.PublicKey { return solana.NewWallet().PublicKey() }
	return keys{k(), k(), k(), k(), k(), k()}
}

func (k keys) yaml() string {
	return fmt.Sprintf(`
mints:
  - address: %s
    authority: %s
    decimals: 6
accounts:
  - address: %s
    mint: %s
    owner: %s
    amount: 1500
  - address: %s
    mint: %s
    owner: %s
    amount: 500
`, k.mint, k.authority, k.aliceATA, k.mint, k.alice, k.bobATA, k.mint, k.bob)
}

func TestLoadAndApply(t *testing.T) {
	k := newKeys()
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(k.yaml()), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	require.Len(t, f.Accounts, 2)

	s := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, f.Apply(ctx, s, nil))

	raw, err := s.Get(ctx, k.mint)
	require.NoError(t, err)
	assert.Equal(t, token.ProgramID, raw.Owner)
	var mint token.Mint
	require.NoError(t, mint.UnmarshalBinary(raw.Data))
	assert.Equal(t, uint64(2000), mint.Supply)
	assert.Equal(t, uint8(6), mint.Decimals)
	assert.Equal(t, k.authority, mint.Authority)

	raw, err = s.Get(ctx, k.aliceATA)
	require.NoError(t, err)
	var acct token.Account
	require.NoError(t, acct.UnmarshalBinary(raw.Data))
	assert.Equal(t, k.alice, acct.Owner)
	assert.Equal(t, uint64(1500), acct.Amount)

	seen, err := s.Seen(ctx, Signature)
	require.NoError(t, err)
	assert.True(t, seen)

	// A second apply is a no-op.
	require.NoError(t, f.Apply(ctx, s, nil))
}

func TestBatch_Rejects(t *testing.T) {
	k := newKeys()

	cases := map[string]string{
		"bad address": `
mints:
  - address: nope
    authority: ` + k.authority.String(),
		"unknown mint": `
accounts:
  - address: ` + k.aliceATA.String() + `
    mint: ` + k.mint.String() + `
    owner: ` + k.alice.String(),
		"account shadows mint": `
mints:
  - address: ` + k.mint.String() + `
    authority: ` + k.authority.String() + `
accounts:
  - address: ` + k.mint.String() + `
    mint: ` + k.mint.String() + `
    owner: ` + k.alice.String(),
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			f, err := Parse([]byte(doc))
			require.NoError(t, err)
			_, err = f.Batch()
			assert.Error(t, err)
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("mints: [\n"))
	assert.ErrorContains(t, err, "parse genesis")
}

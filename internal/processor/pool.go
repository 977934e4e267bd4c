package processor

import (
	"github.com/aman-zulfiqar/redz-ledger/internal/instruction"
	"github.com/aman-zulfiqar/redz-ledger/internal/ledger"
	"github.com/aman-zulfiqar/redz-ledger/internal/ledgererr"
	"github.com/aman-zulfiqar/redz-ledger/internal/token"
	"github.com/gagliardetto/solana-go"
)

// lpDecimals is the precision of every LP mint the ledger opens.
const lpDecimals = 9

func (c *ixContext) createPool(ix *instruction.CreatePool) error {
	if err := c.requireAccounts(9); err != nil {
		return err
	}
	authority, err := c.key(0, "authority", signerRole|writableRole)
	if err != nil {
		return err
	}
	poolKey, err := c.key(1, "pool", writableRole)
	if err != nil {
		return err
	}
	mintA, _ := c.key(2, "token a mint", 0)
	mintB, _ := c.key(3, "token b mint", 0)
	vaultA, err := c.key(4, "token a vault", writableRole)
	if err != nil {
		return err
	}
	vaultB, err := c.key(5, "token b vault", writableRole)
	if err != nil {
		return err
	}
	lpMint, err := c.key(6, "lp mint", writableRole)
	if err != nil {
		return err
	}
	cfgKey, _ := c.key(7, "config", 0)
	if err := c.program(8, solana.SystemProgramID); err != nil {
		return err
	}

	if mintA.Equals(mintB) {
		return ledgererr.ErrIdenticalMints
	}
	if err := expectAddress(poolKey, func() (solana.PublicKey, uint8, error) {
		return ledger.FindPoolAddress(c.p.programID, mintA, mintB)
	}, "pool"); err != nil {
		return err
	}
	cfg, err := c.config(cfgKey)
	if err != nil {
		return err
	}
	if _, err := c.mint(mintA); err != nil {
		return err
	}
	if _, err := c.mint(mintB); err != nil {
		return err
	}
	if vaultA.Equals(vaultB) || vaultA.Equals(lpMint) || vaultB.Equals(lpMint) {
		return ledgererr.Wrap(ledgererr.ErrAccountMismatch, "vaults and lp mint must be distinct")
	}

	pool, err := loadOrNew[ledger.PoolAccount](c.ws, poolKey, c.p.programID)
	if err != nil {
		return err
	}
	err = pool.Create(ledger.CreatePoolParams{
		TokenAMint:  mintA,
		TokenBMint:  mintB,
		TokenAVault: vaultA,
		TokenBVault: vaultB,
		LpTokenMint: lpMint,
		FeeRateBps:  cfg.ResolveFeeRate(ix.FeeRateBps),
	})
	if err != nil {
		return err
	}

	if err := c.ws.create(vaultA, token.ProgramID, &token.Account{Mint: mintA, Owner: poolKey}); err != nil {
		return err
	}
	if err := c.ws.create(vaultB, token.ProgramID, &token.Account{Mint: mintB, Owner: poolKey}); err != nil {
		return err
	}
	lp := &token.Mint{Authority: poolKey, Decimals: lpDecimals, Initialized: true}
	if err := c.ws.create(lpMint, token.ProgramID, lp); err != nil {
		return err
	}

	c.event.Signer = authority.String()
	c.event.Subject = poolKey.String()
	return nil
}

// poolAccounts are the accounts shared by AddLiquidity and RemoveLiquidity.
type poolAccounts struct {
	user   solana.PublicKey
	key    solana.PublicKey
	pool   *ledger.PoolAccount
	userA  *token.Account
	userB  *token.Account
	vaultA *token.Account
	vaultB *token.Account
	lpMint *token.Mint
	userLp *token.Account
}

// loadPoolAccounts resolves user and pool at 0 and 1, and the six token
// accounts from index first. A withdrawal may open the user's token a and b
// accounts; a deposit may open the user's LP account.
func (c *ixContext) loadPoolAccounts(first int, withdrawing bool) (*poolAccounts, error) {
	user, err := c.key(0, "user", signerRole)
	if err != nil {
		return nil, err
	}
	poolKey, err := c.key(1, "pool", writableRole)
	if err != nil {
		return nil, err
	}
	pool, err := c.pool(poolKey)
	if err != nil {
		return nil, err
	}

	keys := make([]solana.PublicKey, 6)
	for i, name := range []string{"user token a", "user token b", "token a vault", "token b vault", "lp mint", "user lp"} {
		keys[i], err = c.key(first+i, name, writableRole)
		if err != nil {
			return nil, err
		}
	}

	pa := &poolAccounts{user: user, key: poolKey, pool: pool}
	if pa.vaultA, err = c.vault(keys[2], pool.TokenAVault, pool.TokenAMint, "token a vault"); err != nil {
		return nil, err
	}
	if pa.vaultB, err = c.vault(keys[3], pool.TokenBVault, pool.TokenBMint, "token b vault"); err != nil {
		return nil, err
	}
	if !keys[4].Equals(pool.LpTokenMint) {
		return nil, ledgererr.Wrap(ledgererr.ErrAccountMismatch, "lp mint %s", keys[4])
	}
	if pa.lpMint, err = c.mint(keys[4]); err != nil {
		return nil, err
	}

	if withdrawing {
		pa.userA, err = c.receivingAccount(keys[0], pool.TokenAMint, user)
		if err == nil {
			pa.userB, err = c.receivingAccount(keys[1], pool.TokenBMint, user)
		}
		if err == nil {
			pa.userLp, err = c.tokenAccount(keys[5], pool.LpTokenMint)
		}
	} else {
		pa.userA, err = c.tokenAccount(keys[0], pool.TokenAMint)
		if err == nil {
			pa.userB, err = c.tokenAccount(keys[1], pool.TokenBMint)
		}
		if err == nil {
			pa.userLp, err = c.receivingAccount(keys[5], pool.LpTokenMint, user)
		}
	}
	if err != nil {
		return nil, err
	}
	return pa, nil
}

func (c *ixContext) addLiquidity(ix *instruction.AddLiquidity) error {
	if err := c.requireAccounts(10); err != nil {
		return err
	}
	cfgKey, _ := c.key(2, "config", 0)
	if err := c.program(9, token.ProgramID); err != nil {
		return err
	}
	cfg, err := c.config(cfgKey)
	if err != nil {
		return err
	}
	pa, err := c.loadPoolAccounts(3, false)
	if err != nil {
		return err
	}

	minted, err := pa.pool.AddLiquidity(ix.AmountA, ix.AmountB, cfg.MinLiquidity)
	if err != nil {
		return err
	}
	if err := c.transfer(pa.userA, pa.vaultA, pa.user, ix.AmountA); err != nil {
		return err
	}
	if err := c.transfer(pa.userB, pa.vaultB, pa.user, ix.AmountB); err != nil {
		return err
	}
	if err := token.MintTo(pa.pool.LpTokenMint, pa.lpMint, pa.userLp, pa.key, minted); err != nil {
		return err
	}
	if err := checkReserves(pa); err != nil {
		return err
	}

	c.event.Signer = pa.user.String()
	c.event.Subject = pa.key.String()
	c.event.AmountA, c.event.AmountB, c.event.LpAmount = ix.AmountA, ix.AmountB, minted
	return nil
}

func (c *ixContext) removeLiquidity(ix *instruction.RemoveLiquidity) error {
	if err := c.requireAccounts(9); err != nil {
		return err
	}
	if err := c.program(8, token.ProgramID); err != nil {
		return err
	}
	pa, err := c.loadPoolAccounts(2, true)
	if err != nil {
		return err
	}

	amountA, amountB, err := pa.pool.RemoveLiquidity(ix.LpAmount)
	if err != nil {
		return err
	}
	if err := token.Burn(pa.pool.LpTokenMint, pa.lpMint, pa.userLp, pa.user, ix.LpAmount); err != nil {
		return err
	}
	if err := c.transfer(pa.vaultA, pa.userA, pa.key, amountA); err != nil {
		return err
	}
	if err := c.transfer(pa.vaultB, pa.userB, pa.key, amountB); err != nil {
		return err
	}
	if err := checkReserves(pa); err != nil {
		return err
	}

	c.event.Signer = pa.user.String()
	c.event.Subject = pa.key.String()
	c.event.AmountA, c.event.AmountB, c.event.LpAmount = amountA, amountB, ix.LpAmount
	return nil
}

func (c *ixContext) swap(ix *instruction.Swap) error {
	if err := c.requireAccounts(7); err != nil {
		return err
	}
	user, err := c.key(0, "user", signerRole)
	if err != nil {
		return err
	}
	poolKey, err := c.key(1, "pool", writableRole)
	if err != nil {
		return err
	}
	var keys [4]solana.PublicKey
	for i, name := range []string{"user source", "user destination", "source vault", "destination vault"} {
		if keys[i], err = c.key(2+i, name, writableRole); err != nil {
			return err
		}
	}
	if err := c.program(6, token.ProgramID); err != nil {
		return err
	}

	pool, err := c.pool(poolKey)
	if err != nil {
		return err
	}
	dir, err := pool.DirectionFor(keys[2], keys[3])
	if err != nil {
		return err
	}
	mintIn, mintOut := pool.TokenAMint, pool.TokenBMint
	if dir == ledger.BToA {
		mintIn, mintOut = mintOut, mintIn
	}

	userIn, err := c.tokenAccount(keys[0], mintIn)
	if err != nil {
		return err
	}
	userOut, err := c.receivingAccount(keys[1], mintOut, user)
	if err != nil {
		return err
	}
	vaultIn, err := c.tokenAccount(keys[2], mintIn)
	if err != nil {
		return err
	}
	vaultOut, err := c.tokenAccount(keys[3], mintOut)
	if err != nil {
		return err
	}

	amountOut, err := pool.Swap(ix.AmountIn, ix.MinimumAmountOut, dir)
	if err != nil {
		return err
	}
	if err := c.transfer(userIn, vaultIn, user, ix.AmountIn); err != nil {
		return err
	}
	if err := c.transfer(vaultOut, userOut, poolKey, amountOut); err != nil {
		return err
	}

	vaultA, vaultB := vaultIn, vaultOut
	if dir == ledger.BToA {
		vaultA, vaultB = vaultOut, vaultIn
	}
	if err := reservesMatch(pool, vaultA, vaultB); err != nil {
		return err
	}

	c.event.Signer = user.String()
	c.event.Subject = poolKey.String()
	c.event.Direction = dir.String()
	c.event.AmountIn, c.event.AmountOut = ix.AmountIn, amountOut
	return nil
}

func checkReserves(pa *poolAccounts) error {
	return reservesMatch(pa.pool, pa.vaultA, pa.vaultB)
}

func reservesMatch(pool *ledger.PoolAccount, vaultA, vaultB *token.Account) error {
	if pool.TokenAReserve != vaultA.Amount || pool.TokenBReserve != vaultB.Amount {
		return ledgererr.Wrap(ledgererr.ErrReserveMismatch,
			"reserves %d/%d, vaults %d/%d", pool.TokenAReserve, pool.TokenBReserve, vaultA.Amount, vaultB.Amount)
	}
	return nil
}

package wallet

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/aman-zulfiqar/redz-ledger/internal/client"
	"github.com/aman-zulfiqar/redz-ledger/internal/token"
	"github.com/gagliardetto/solana-go"
)

// BuildTransaction wraps instructions in a transaction paid by the wallet.
// The ledger has no blocks, so the recent blockhash slot carries a random
// nonce that keeps otherwise identical transactions distinct.
func (w *Wallet) BuildTransaction(instructions []solana.Instruction) (*solana.Transaction, error) {
	var nonce solana.Hash
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	tx, err := solana.NewTransaction(
		instructions,
		nonce,
		solana.TransactionPayer(w.pub),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return tx, nil
}

// SignTx signs a transaction with the wallet's key and any co-signers
func (w *Wallet) SignTx(tx *solana.Transaction, cosigners ...solana.PrivateKey) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.pub) {
			return &w.priv
		}
		for i := range cosigners {
			if cosigners[i].PublicKey().Equals(key) {
				return &cosigners[i]
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	return nil
}

// Encode serializes a signed transaction for submission.
func Encode(tx *solana.Transaction) (string, error) {
	txBytes, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(txBytes), nil
}

// SendTx submits a signed transaction to the ledger
func (w *Wallet) SendTx(ctx context.Context, tx *solana.Transaction) (*client.TransactionResponse, error) {
	encodedTx, err := Encode(tx)
	if err != nil {
		return nil, err
	}
	resp, err := w.ledger.SubmitTransaction(ctx, encodedTx)
	if err != nil {
		return nil, fmt.Errorf("submit transaction: %w", err)
	}
	return resp, nil
}

// SignAndSend is a convenience method that builds, signs, and sends a transaction
func (w *Wallet) SignAndSend(
	ctx context.Context,
	instructions []solana.Instruction,
	cosigners ...solana.PrivateKey,
) (*client.TransactionResponse, error) {

	tx, err := w.BuildTransaction(instructions)
	if err != nil {
		return nil, err
	}
	if err := w.SignTx(tx, cosigners...); err != nil {
		return nil, err
	}
	return w.SendTx(ctx, tx)
}

// AccountExists reports whether the ledger holds an account at pubkey
func (w *Wallet) AccountExists(ctx context.Context, pubkey solana.PublicKey) (bool, error) {
	_, err := w.ledger.Account(ctx, pubkey)
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Status == 404 {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// TokenBalance reads the amount held by a token account
func (w *Wallet) TokenBalance(ctx context.Context, account solana.PublicKey) (*token.Account, error) {
	resp, err := w.ledger.Account(ctx, account)
	if err != nil {
		return nil, err
	}
	if !resp.Owner.Equals(token.ProgramID) {
		return nil, fmt.Errorf("%s is not a token account", account)
	}
	data, err := resp.Bytes()
	if err != nil {
		return nil, fmt.Errorf("decode account data: %w", err)
	}
	var out token.Account
	if err := out.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return &out, nil
}

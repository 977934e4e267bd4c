// Package txn turns wire-encoded Solana transactions into verified ledger
// instructions.
package txn

import (
	"encoding/base64"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var (
	ErrMalformed      = errors.New("malformed transaction")
	ErrBadSignature   = errors.New("signature verification failed")
	ErrNoInstructions = errors.New("transaction has no ledger instructions")
)

// Envelope is a verified transaction reduced to what the processor needs.
type Envelope struct {
	Signature    string
	Signers      []solana.PublicKey
	Instructions []solana.Instruction
	// Skipped counts instructions addressed to other programs.
	Skipped int
}

// DecodeBase64 parses a base64 transaction as produced by Transaction.MarshalBinary.
func DecodeBase64(encoded string) (*solana.Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return tx, nil
}

// Open verifies every signature on tx and resolves the instructions that
// target programID into full account metas.
func Open(tx *solana.Transaction, programID solana.PublicKey) (*Envelope, error) {
	msg := &tx.Message
	if len(msg.AddressTableLookups) > 0 {
		return nil, fmt.Errorf("%w: address lookup tables are not supported", ErrMalformed)
	}

	required := int(msg.Header.NumRequiredSignatures)
	if required == 0 || len(tx.Signatures) != required || len(msg.AccountKeys) < required {
		return nil, fmt.Errorf("%w: %d signatures for %d required signers", ErrMalformed, len(tx.Signatures), required)
	}
	if err := tx.VerifySignatures(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	env := &Envelope{
		Signature: tx.Signatures[0].String(),
		Signers:   append([]solana.PublicKey(nil), msg.AccountKeys[:required]...),
	}

	for i, ci := range msg.Instructions {
		if int(ci.ProgramIDIndex) >= len(msg.AccountKeys) {
			return nil, fmt.Errorf("%w: instruction %d program index out of range", ErrMalformed, i)
		}
		program := msg.AccountKeys[ci.ProgramIDIndex]
		if !program.Equals(programID) {
			env.Skipped++
			continue
		}

		metas := make([]*solana.AccountMeta, len(ci.Accounts))
		for j, idx := range ci.Accounts {
			if int(idx) >= len(msg.AccountKeys) {
				return nil, fmt.Errorf("%w: instruction %d account index out of range", ErrMalformed, i)
			}
			metas[j] = &solana.AccountMeta{
				PublicKey:  msg.AccountKeys[idx],
				IsSigner:   isSigner(msg, int(idx)),
				IsWritable: isWritable(msg, int(idx)),
			}
		}
		env.Instructions = append(env.Instructions, solana.NewInstruction(program, metas, []byte(ci.Data)))
	}

	if len(env.Instructions) == 0 {
		return nil, ErrNoInstructions
	}
	return env, nil
}

// Parse is DecodeBase64 followed by Open.
func Parse(encoded string, programID solana.PublicKey) (*Envelope, error) {
	tx, err := DecodeBase64(encoded)
	if err != nil {
		return nil, err
	}
	return Open(tx, programID)
}

func isSigner(msg *solana.Message, idx int) bool {
	return idx < int(msg.Header.NumRequiredSignatures)
}

// Account keys are ordered: writable signers, readonly signers, writable
// non-signers, readonly non-signers.
func isWritable(msg *solana.Message, idx int) bool {
	h := msg.Header
	signers := int(h.NumRequiredSignatures)
	if idx < signers {
		return idx < signers-int(h.NumReadonlySignedAccounts)
	}
	return idx < len(msg.AccountKeys)-int(h.NumReadonlyUnsignedAccounts)
}

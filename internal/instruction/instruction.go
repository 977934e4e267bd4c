// Package instruction decodes and encodes Redz program instruction data.
// Byte 0 is the opcode; the rest is a fixed little-endian payload.
package instruction

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/aman-zulfiqar/redz-ledger/internal/ledgererr"
	bin "github.com/gagliardetto/binary"
)

type Opcode uint8

const (
	OpInitializeConfig Opcode = iota
	OpCreatePool
	OpAddLiquidity
	OpRemoveLiquidity
	OpSwap
	OpLaunchToken
	OpParticipateInLaunch
	OpFinalizeTokenLaunch
	OpCloseTokenLaunch
	OpWithdrawFees
	OpUpdateConfig
)

var opcodeNames = [...]string{
	"InitializeConfig",
	"CreatePool",
	"AddLiquidity",
	"RemoveLiquidity",
	"Swap",
	"LaunchToken",
	"ParticipateInLaunch",
	"FinalizeTokenLaunch",
	"CloseTokenLaunch",
	"WithdrawFees",
	"UpdateConfig",
}

func (o Opcode) String() string {
	if int(o) < len(opcodeNames) {
		return opcodeNames[o]
	}
	return fmt.Sprintf("Opcode(%d)", uint8(o))
}

// Instruction is one decoded Redz instruction. The set of implementations is
// closed; switch on the concrete type.
type Instruction interface {
	Opcode() Opcode
	payloadSize() int
	encode(enc *bin.Encoder) error
	decode(dec *bin.Decoder) error
}

type InitializeConfig struct {
	DefaultFeeRateBps uint16
	LaunchCreationFee uint64
	MinLiquidity      uint64
}

// CreatePool carries only the fee; mints and vaults come from the account list.
// FeeRateBps 0xFFFF selects the config default.
type CreatePool struct {
	FeeRateBps uint16
}

type AddLiquidity struct {
	AmountA uint64
	AmountB uint64
}

type RemoveLiquidity struct {
	LpAmount uint64
}

type Swap struct {
	AmountIn         uint64
	MinimumAmountOut uint64
}

type LaunchToken struct {
	TokenAmount  uint64
	TargetAmount uint64
	Duration     uint64
}

type ParticipateInLaunch struct {
	Amount uint64
}

type FinalizeTokenLaunch struct{}

type CloseTokenLaunch struct{}

// WithdrawFees moves launch fees out of the treasury. Amount 0 withdraws all.
type WithdrawFees struct {
	Amount uint64
}

type UpdateConfig struct {
	DefaultFeeRateBps uint16
	LaunchCreationFee uint64
	MinLiquidity      uint64
}

func (*InitializeConfig) Opcode() Opcode    { return OpInitializeConfig }
func (*CreatePool) Opcode() Opcode          { return OpCreatePool }
func (*AddLiquidity) Opcode() Opcode        { return OpAddLiquidity }
func (*RemoveLiquidity) Opcode() Opcode     { return OpRemoveLiquidity }
func (*Swap) Opcode() Opcode                { return OpSwap }
func (*LaunchToken) Opcode() Opcode         { return OpLaunchToken }
func (*ParticipateInLaunch) Opcode() Opcode { return OpParticipateInLaunch }
func (*FinalizeTokenLaunch) Opcode() Opcode { return OpFinalizeTokenLaunch }
func (*CloseTokenLaunch) Opcode() Opcode    { return OpCloseTokenLaunch }
func (*WithdrawFees) Opcode() Opcode        { return OpWithdrawFees }
func (*UpdateConfig) Opcode() Opcode        { return OpUpdateConfig }

func (*InitializeConfig) payloadSize() int    { return 18 }
func (*CreatePool) payloadSize() int          { return 2 }
func (*AddLiquidity) payloadSize() int        { return 16 }
func (*RemoveLiquidity) payloadSize() int     { return 8 }
func (*Swap) payloadSize() int                { return 16 }
func (*LaunchToken) payloadSize() int         { return 24 }
func (*ParticipateInLaunch) payloadSize() int { return 8 }
func (*FinalizeTokenLaunch) payloadSize() int { return 0 }
func (*CloseTokenLaunch) payloadSize() int    { return 0 }
func (*WithdrawFees) payloadSize() int        { return 8 }
func (*UpdateConfig) payloadSize() int        { return 18 }

func (ix *InitializeConfig) encode(enc *bin.Encoder) error {
	return writeAll(enc, ix.DefaultFeeRateBps, ix.LaunchCreationFee, ix.MinLiquidity)
}

func (ix *InitializeConfig) decode(dec *bin.Decoder) error {
	return readAll(dec, &ix.DefaultFeeRateBps, &ix.LaunchCreationFee, &ix.MinLiquidity)
}

func (ix *CreatePool) encode(enc *bin.Encoder) error { return writeAll(enc, ix.FeeRateBps) }
func (ix *CreatePool) decode(dec *bin.Decoder) error { return readAll(dec, &ix.FeeRateBps) }

func (ix *AddLiquidity) encode(enc *bin.Encoder) error { return writeAll(enc, ix.AmountA, ix.AmountB) }
func (ix *AddLiquidity) decode(dec *bin.Decoder) error { return readAll(dec, &ix.AmountA, &ix.AmountB) }

func (ix *RemoveLiquidity) encode(enc *bin.Encoder) error { return writeAll(enc, ix.LpAmount) }
func (ix *RemoveLiquidity) decode(dec *bin.Decoder) error { return readAll(dec, &ix.LpAmount) }

func (ix *Swap) encode(enc *bin.Encoder) error {
	return writeAll(enc, ix.AmountIn, ix.MinimumAmountOut)
}

func (ix *Swap) decode(dec *bin.Decoder) error {
	return readAll(dec, &ix.AmountIn, &ix.MinimumAmountOut)
}

func (ix *LaunchToken) encode(enc *bin.Encoder) error {
	return writeAll(enc, ix.TokenAmount, ix.TargetAmount, ix.Duration)
}

func (ix *LaunchToken) decode(dec *bin.Decoder) error {
	return readAll(dec, &ix.TokenAmount, &ix.TargetAmount, &ix.Duration)
}

func (ix *ParticipateInLaunch) encode(enc *bin.Encoder) error { return writeAll(enc, ix.Amount) }
func (ix *ParticipateInLaunch) decode(dec *bin.Decoder) error { return readAll(dec, &ix.Amount) }

func (*FinalizeTokenLaunch) encode(*bin.Encoder) error { return nil }
func (*FinalizeTokenLaunch) decode(*bin.Decoder) error { return nil }

func (*CloseTokenLaunch) encode(*bin.Encoder) error { return nil }
func (*CloseTokenLaunch) decode(*bin.Decoder) error { return nil }

func (ix *WithdrawFees) encode(enc *bin.Encoder) error { return writeAll(enc, ix.Amount) }
func (ix *WithdrawFees) decode(dec *bin.Decoder) error { return readAll(dec, &ix.Amount) }

func (ix *UpdateConfig) encode(enc *bin.Encoder) error {
	return writeAll(enc, ix.DefaultFeeRateBps, ix.LaunchCreationFee, ix.MinLiquidity)
}

func (ix *UpdateConfig) decode(dec *bin.Decoder) error {
	return readAll(dec, &ix.DefaultFeeRateBps, &ix.LaunchCreationFee, &ix.MinLiquidity)
}

// Decode parses instruction data. The payload length must match the opcode
// exactly; trailing bytes are rejected.
func Decode(data []byte) (Instruction, error) {
	if len(data) == 0 {
		return nil, ledgererr.Wrap(ledgererr.ErrInvalidInstructionData, "empty instruction")
	}
	ix, err := newForOpcode(Opcode(data[0]))
	if err != nil {
		return nil, err
	}
	payload := data[1:]
	if len(payload) != ix.payloadSize() {
		return nil, ledgererr.Wrap(ledgererr.ErrInvalidInstructionData,
			"%s: payload is %d bytes, want %d", ix.Opcode(), len(payload), ix.payloadSize())
	}
	if err := ix.decode(bin.NewBinDecoder(payload)); err != nil {
		return nil, ledgererr.Wrap(ledgererr.ErrInvalidInstructionData, "%s: %v", ix.Opcode(), err)
	}
	return ix, nil
}

// Encode serializes ix as opcode || payload.
func Encode(ix Instruction) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 1+ix.payloadSize()))
	buf.WriteByte(byte(ix.Opcode()))
	if err := ix.encode(bin.NewBinEncoder(buf)); err != nil {
		return nil, fmt.Errorf("encode %s: %w", ix.Opcode(), err)
	}
	return buf.Bytes(), nil
}

func newForOpcode(op Opcode) (Instruction, error) {
	switch op {
	case OpInitializeConfig:
		return &InitializeConfig{}, nil
	case OpCreatePool:
		return &CreatePool{}, nil
	case OpAddLiquidity:
		return &AddLiquidity{}, nil
	case OpRemoveLiquidity:
		return &RemoveLiquidity{}, nil
	case OpSwap:
		return &Swap{}, nil
	case OpLaunchToken:
		return &LaunchToken{}, nil
	case OpParticipateInLaunch:
		return &ParticipateInLaunch{}, nil
	case OpFinalizeTokenLaunch:
		return &FinalizeTokenLaunch{}, nil
	case OpCloseTokenLaunch:
		return &CloseTokenLaunch{}, nil
	case OpWithdrawFees:
		return &WithdrawFees{}, nil
	case OpUpdateConfig:
		return &UpdateConfig{}, nil
	default:
		return nil, ledgererr.Wrap(ledgererr.ErrInvalidInstruction, "unknown opcode %d", uint8(op))
	}
}

func writeAll(enc *bin.Encoder, fields ...any) error {
	for _, f := range fields {
		var err error
		switch v := f.(type) {
		case uint16:
			err = enc.WriteUint16(v, binary.LittleEndian)
		case uint64:
			err = enc.WriteUint64(v, binary.LittleEndian)
		default:
			err = fmt.Errorf("unsupported field type %T", f)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func readAll(dec *bin.Decoder, fields ...any) error {
	for _, f := range fields {
		var err error
		switch v := f.(type) {
		case *uint16:
			*v, err = dec.ReadUint16(binary.LittleEndian)
		case *uint64:
			*v, err = dec.ReadUint64(binary.LittleEndian)
		default:
			err = fmt.Errorf("unsupported field type %T", f)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

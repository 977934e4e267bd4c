package ledger

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/aman-zulfiqar/redz-ledger/internal/ledgererr"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Pool account field offsets.
const (
	PoolOffsetInitialized   = 0
	PoolOffsetTokenAMint    = 1
	PoolOffsetTokenBMint    = 33
	PoolOffsetTokenAVault   = 65
	PoolOffsetTokenBVault   = 97
	PoolOffsetLpTokenMint   = 129
	PoolOffsetFeeRate       = 161
	PoolOffsetTokenAReserve = 163
	PoolOffsetTokenBReserve = 171
	PoolOffsetLpTokenSupply = 179
)

// writer keeps the first encoding error so field writes can be chained.
type writer struct {
	buf *bytes.Buffer
	enc *bin.Encoder
	err error
}

func newWriter(size int) *writer {
	buf := bytes.NewBuffer(make([]byte, 0, size))
	return &writer{buf: buf, enc: bin.NewBinEncoder(buf)}
}

func (w *writer) bool(v bool) {
	var b uint8
	if v {
		b = 1
	}
	w.u8(b)
}

func (w *writer) u8(v uint8) {
	if w.err == nil {
		w.err = w.enc.WriteUint8(v)
	}
}

func (w *writer) u16(v uint16) {
	if w.err == nil {
		w.err = w.enc.WriteUint16(v, binary.LittleEndian)
	}
}

func (w *writer) u64(v uint64) {
	if w.err == nil {
		w.err = w.enc.WriteUint64(v, binary.LittleEndian)
	}
}

func (w *writer) key(k solana.PublicKey) {
	if w.err == nil {
		w.err = w.enc.WriteBytes(k[:], false)
	}
}

func (w *writer) bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buf.Bytes(), nil
}

type reader struct {
	dec *bin.Decoder
	err error
}

func newReader(data []byte, size int, kind string) (*reader, error) {
	if len(data) < size {
		return nil, ledgererr.Wrap(ledgererr.ErrInvalidAccountData, "%s: expected %d bytes, got %d", kind, size, len(data))
	}
	return &reader{dec: bin.NewBinDecoder(data)}, nil
}

func (r *reader) bool() bool {
	v := r.u8()
	if r.err == nil && v > 1 {
		r.err = fmt.Errorf("invalid bool byte %d", v)
	}
	return v == 1
}

func (r *reader) u8() uint8 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint8()
	r.err = err
	return v
}

func (r *reader) u16() uint16 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint16(binary.LittleEndian)
	r.err = err
	return v
}

func (r *reader) u64() uint64 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint64(binary.LittleEndian)
	r.err = err
	return v
}

func (r *reader) key() solana.PublicKey {
	if r.err != nil {
		return solana.PublicKey{}
	}
	b, err := r.dec.ReadNBytes(solana.PublicKeyLength)
	r.err = err
	if err != nil {
		return solana.PublicKey{}
	}
	return solana.PublicKeyFromBytes(b)
}

func (r *reader) done(kind string) error {
	if r.err != nil {
		return ledgererr.Wrap(ledgererr.ErrInvalidAccountData, "%s: %v", kind, r.err)
	}
	return nil
}

// MarshalBinary encodes the pool in its fixed 187-byte layout.
func (p *PoolAccount) MarshalBinary() ([]byte, error) {
	w := newWriter(PoolAccountSize)
	w.bool(p.Initialized)
	w.key(p.TokenAMint)
	w.key(p.TokenBMint)
	w.key(p.TokenAVault)
	w.key(p.TokenBVault)
	w.key(p.LpTokenMint)
	w.u16(p.FeeRateBps)
	w.u64(p.TokenAReserve)
	w.u64(p.TokenBReserve)
	w.u64(p.LpTokenSupply)
	return w.bytes()
}

// UnmarshalBinary decodes a pool; trailing bytes past 187 are ignored.
func (p *PoolAccount) UnmarshalBinary(data []byte) error {
	r, err := newReader(data, PoolAccountSize, "pool")
	if err != nil {
		return err
	}
	out := PoolAccount{
		Initialized:   r.bool(),
		TokenAMint:    r.key(),
		TokenBMint:    r.key(),
		TokenAVault:   r.key(),
		TokenBVault:   r.key(),
		LpTokenMint:   r.key(),
		FeeRateBps:    r.u16(),
		TokenAReserve: r.u64(),
		TokenBReserve: r.u64(),
		LpTokenSupply: r.u64(),
	}
	if err := r.done("pool"); err != nil {
		return err
	}
	*p = out
	return nil
}

func (l *LaunchAccount) MarshalBinary() ([]byte, error) {
	w := newWriter(LaunchAccountSize)
	w.bool(l.Initialized)
	w.key(l.TokenMint)
	w.key(l.Launcher)
	w.u64(l.TargetAmount)
	w.u64(l.CurrentAmount)
	w.u64(l.TokenAmount)
	w.u64(l.Duration)
	w.u64(l.LaunchTime)
	w.bool(l.IsFinalized)
	w.bool(l.IsClosed)
	w.bool(l.IsRefunding)
	w.key(l.TokenVault)
	w.key(l.QuoteVault)
	return w.bytes()
}

func (l *LaunchAccount) UnmarshalBinary(data []byte) error {
	r, err := newReader(data, LaunchAccountSize, "launch")
	if err != nil {
		return err
	}
	out := LaunchAccount{
		Initialized:   r.bool(),
		TokenMint:     r.key(),
		Launcher:      r.key(),
		TargetAmount:  r.u64(),
		CurrentAmount: r.u64(),
		TokenAmount:   r.u64(),
		Duration:      r.u64(),
		LaunchTime:    r.u64(),
		IsFinalized:   r.bool(),
		IsClosed:      r.bool(),
		IsRefunding:   r.bool(),
		TokenVault:    r.key(),
		QuoteVault:    r.key(),
	}
	if err := r.done("launch"); err != nil {
		return err
	}
	*l = out
	return nil
}

func (c *ContributionAccount) MarshalBinary() ([]byte, error) {
	w := newWriter(ContributionAccountSize)
	w.bool(c.Initialized)
	w.key(c.Launch)
	w.key(c.Participant)
	w.u64(c.Amount)
	w.bool(c.Settled)
	return w.bytes()
}

func (c *ContributionAccount) UnmarshalBinary(data []byte) error {
	r, err := newReader(data, ContributionAccountSize, "contribution")
	if err != nil {
		return err
	}
	out := ContributionAccount{
		Initialized: r.bool(),
		Launch:      r.key(),
		Participant: r.key(),
		Amount:      r.u64(),
		Settled:     r.bool(),
	}
	if err := r.done("contribution"); err != nil {
		return err
	}
	*c = out
	return nil
}

func (c *ConfigAccount) MarshalBinary() ([]byte, error) {
	w := newWriter(ConfigAccountSize)
	w.bool(c.Initialized)
	w.key(c.Admin)
	w.u16(c.DefaultFeeRateBps)
	w.u64(c.LaunchCreationFee)
	w.u64(c.MinLiquidity)
	w.key(c.QuoteMint)
	w.key(c.Treasury)
	return w.bytes()
}

func (c *ConfigAccount) UnmarshalBinary(data []byte) error {
	r, err := newReader(data, ConfigAccountSize, "config")
	if err != nil {
		return err
	}
	out := ConfigAccount{
		Initialized:       r.bool(),
		Admin:             r.key(),
		DefaultFeeRateBps: r.u16(),
		LaunchCreationFee: r.u64(),
		MinLiquidity:      r.u64(),
		QuoteMint:         r.key(),
		Treasury:          r.key(),
	}
	if err := r.done("config"); err != nil {
		return err
	}
	*c = out
	return nil
}

// DecodePool is a convenience wrapper for read-only clients.
func DecodePool(data []byte) (*PoolAccount, error) {
	var p PoolAccount
	if err := p.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return &p, nil
}

func DecodeLaunch(data []byte) (*LaunchAccount, error) {
	var l LaunchAccount
	if err := l.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return &l, nil
}

func DecodeContribution(data []byte) (*ContributionAccount, error) {
	var c ContributionAccount
	if err := c.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return &c, nil
}

func DecodeConfig(data []byte) (*ConfigAccount, error) {
	var c ConfigAccount
	if err := c.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return &c, nil
}

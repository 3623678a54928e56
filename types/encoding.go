package types

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// An Encoder writes ledger objects to an underlying stream.
type Encoder struct {
	w   io.Writer
	buf [1024]byte
	n   int
	err error
}

// Flush writes any pending data to the underlying stream. It returns the first
// error encountered by the Encoder.
func (e *Encoder) Flush() error {
	if e.err == nil && e.n > 0 {
		_, e.err = e.w.Write(e.buf[:e.n])
		e.n = 0
	}
	return e.err
}

// Write implements io.Writer.
func (e *Encoder) Write(p []byte) (int, error) {
	lenp := len(p)
	for e.err == nil && len(p) > 0 {
		if e.n == len(e.buf) {
			e.Flush()
		}
		c := copy(e.buf[e.n:], p)
		e.n += c
		p = p[c:]
	}
	return lenp, e.err
}

// WriteUint8 writes a uint8 value to the underlying stream.
func (e *Encoder) WriteUint8(u uint8) {
	e.Write([]byte{u})
}

// WriteUint32 writes a uint32 value to the underlying stream.
func (e *Encoder) WriteUint32(u uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], u)
	e.Write(buf[:])
}

// WriteUint64 writes a uint64 value to the underlying stream.
func (e *Encoder) WriteUint64(u uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], u)
	e.Write(buf[:])
}

// WritePrefix writes a length prefix to the underlying stream.
func (e *Encoder) WritePrefix(i int) { e.WriteUint64(uint64(i)) }

// WriteBytes writes a length-prefixed []byte to the underlying stream.
func (e *Encoder) WriteBytes(b []byte) {
	e.WritePrefix(len(b))
	e.Write(b)
}

// Reset resets the Encoder to write to w. Any unflushed data, along with any
// error previously encountered, is discarded.
func (e *Encoder) Reset(w io.Writer) {
	e.w = w
	e.n = 0
	e.err = nil
}

// NewEncoder returns an Encoder that wraps the provided stream.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		w: w,
	}
}

// An EncoderTo can encode itself to a stream via an Encoder.
type EncoderTo interface {
	EncodeTo(e *Encoder)
}

// EncoderFunc implements types.EncoderTo with a function.
type EncoderFunc func(*Encoder)

// EncodeTo implements types.EncoderTo.
func (fn EncoderFunc) EncodeTo(e *Encoder) { fn(e) }

// EncodeSlice encodes a slice of objects that implement EncoderTo.
func EncodeSlice[T EncoderTo](e *Encoder, s []T) {
	e.WritePrefix(len(s))
	for i := range s {
		s[i].EncodeTo(e)
	}
}

// EncodeSliceFn encodes a slice of objects by calling an explicit function to
// encode each element.
func EncodeSliceFn[T any](e *Encoder, s []T, fn func(*Encoder, T)) {
	e.WritePrefix(len(s))
	for i := range s {
		fn(e, s[i])
	}
}

// A Decoder reads values from an underlying stream. Callers MUST check
// (*Decoder).Err before using any decoded values.
type Decoder struct {
	lr  io.LimitedReader
	buf [64]byte
	err error
}

// SetErr sets the Decoder's error if it has not already been set. SetErr should
// only be called from DecodeFrom methods.
func (d *Decoder) SetErr(err error) {
	if err != nil && d.err == nil {
		d.err = err
		// clear d.buf so that future reads always return zero
		d.buf = [len(d.buf)]byte{}
	}
}

// Err returns the first error encountered during decoding.
func (d *Decoder) Err() error { return d.err }

// Remaining returns the number of bytes left in the underlying stream.
func (d *Decoder) Remaining() int64 { return d.lr.N }

// Read implements the io.Reader interface. It always returns an error if fewer
// than len(p) bytes were read.
func (d *Decoder) Read(p []byte) (int, error) {
	n := 0
	for len(p[n:]) > 0 && d.err == nil {
		read, err := io.ReadFull(&d.lr, d.buf[:min(len(p[n:]), len(d.buf))])
		n += copy(p[n:], d.buf[:read])
		d.SetErr(err)
	}
	return n, d.err
}

// ReadUint8 reads a uint8 value from the underlying stream.
func (d *Decoder) ReadUint8() uint8 {
	d.Read(d.buf[:1])
	return d.buf[0]
}

// ReadUint32 reads a uint32 value from the underlying stream.
func (d *Decoder) ReadUint32() uint32 {
	d.Read(d.buf[:4])
	return binary.LittleEndian.Uint32(d.buf[:4])
}

// ReadUint64 reads a uint64 value from the underlying stream.
func (d *Decoder) ReadUint64() uint64 {
	d.Read(d.buf[:8])
	return binary.LittleEndian.Uint64(d.buf[:8])
}

// ReadPrefix reads a length prefix from the underlying stream. If the length
// exceeds the number of bytes remaining in the stream, ReadPrefix sets d.Err
// and returns 0.
func (d *Decoder) ReadPrefix() int {
	n := d.ReadUint64()
	if n > uint64(d.lr.N) {
		d.SetErr(fmt.Errorf("encoded object contains invalid length prefix (%v elems > %v bytes left in stream)", n, d.lr.N))
		return 0
	}
	return int(n)
}

// ReadBytes reads a length-prefixed []byte from the underlying stream.
func (d *Decoder) ReadBytes() []byte {
	b := make([]byte, d.ReadPrefix())
	d.Read(b)
	return b
}

// NewDecoder returns a Decoder that wraps the provided stream.
func NewDecoder(lr io.LimitedReader) *Decoder {
	return &Decoder{
		lr: lr,
	}
}

// NewBufDecoder returns a Decoder for the provided byte slice.
func NewBufDecoder(buf []byte) *Decoder {
	return NewDecoder(io.LimitedReader{
		R: bytes.NewReader(buf),
		N: int64(len(buf)),
	})
}

// A DecoderFrom can decode itself from a stream via a Decoder.
type DecoderFrom interface {
	DecodeFrom(d *Decoder)
}

// DecoderFunc implements types.DecoderFrom with a function.
type DecoderFunc func(*Decoder)

// DecodeFrom implements types.DecoderFrom.
func (fn DecoderFunc) DecodeFrom(d *Decoder) { fn(d) }

// DecodeSlice decodes a length-prefixed slice of type T, containing values read
// from the decoder.
func DecodeSlice[T any, DF interface {
	*T
	DecoderFrom
}](d *Decoder, s *[]T) {
	*s = make([]T, d.ReadPrefix())
	for i := range *s {
		DF(&(*s)[i]).DecodeFrom(d)
		if d.Err() != nil {
			break
		}
	}
}

// DecodeSliceFn decodes a length-prefixed slice of type T, calling an explicit
// function to decode each element.
func DecodeSliceFn[T any](d *Decoder, s *[]T, fn func(*Decoder) T) {
	*s = make([]T, d.ReadPrefix())
	for i := range *s {
		(*s)[i] = fn(d)
		if d.Err() != nil {
			break
		}
	}
}

// EncodeBytes returns the canonical encoding of v.
func EncodeBytes(v EncoderTo) []byte {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	v.EncodeTo(e)
	e.Flush()
	return buf.Bytes()
}

// DecodeBytes decodes b into v. Unlike a bare Decoder, it rejects encodings
// with trailing bytes, so that every value has exactly one valid encoding.
func DecodeBytes(b []byte, v DecoderFrom) error {
	d := NewBufDecoder(b)
	v.DecodeFrom(d)
	if d.Err() != nil {
		return d.Err()
	} else if d.Remaining() != 0 {
		return errors.New("trailing bytes after encoded object")
	}
	return nil
}

// implementations of EncoderTo and DecoderFrom for core types

// EncodeTo implements types.EncoderTo.
func (h Hash256) EncodeTo(e *Encoder) { e.Write(h[:]) }

// EncodeTo implements types.EncoderTo.
func (h TxHash) EncodeTo(e *Encoder) { e.Write(h[:]) }

// EncodeTo implements types.EncoderTo.
func (a Address) EncodeTo(e *Encoder) { e.Write(a[:]) }

// EncodeTo implements types.EncoderTo.
func (pk PublicKey) EncodeTo(e *Encoder) { e.Write(pk[:]) }

// EncodeTo implements types.EncoderTo.
func (c CoinValue) EncodeTo(e *Encoder) {
	e.WriteUint64(c.Lo)
	e.WriteUint64(c.Hi)
}

// EncodeTo implements types.EncoderTo.
func (d Denom) EncodeTo(e *Encoder) {
	e.WriteUint8(uint8(d.Kind))
	if d.Kind == DenomKindCustom {
		d.TxHash.EncodeTo(e)
	}
}

// EncodeTo implements types.EncoderTo.
func (id CoinID) EncodeTo(e *Encoder) {
	id.TxHash.EncodeTo(e)
	e.WriteUint8(id.Index)
}

// EncodeTo implements types.EncoderTo.
func (cd CoinData) EncodeTo(e *Encoder) {
	cd.CovHash.EncodeTo(e)
	cd.Value.EncodeTo(e)
	cd.Denom.EncodeTo(e)
	e.WriteBytes(cd.AdditionalData)
}

// EncodeTo implements types.EncoderTo.
func (cdh CoinDataHeight) EncodeTo(e *Encoder) {
	cdh.CoinData.EncodeTo(e)
	e.WriteUint64(cdh.Height)
}

type txnSansSigs Transaction

func (txn txnSansSigs) EncodeTo(e *Encoder) {
	e.WriteUint8(uint8(txn.Kind))
	EncodeSlice(e, txn.Inputs)
	EncodeSlice(e, txn.Outputs)
	txn.Fee.EncodeTo(e)
	EncodeSliceFn(e, txn.Covenants, (*Encoder).WriteBytes)
	e.WriteBytes(txn.Data)
}

// EncodeTo implements types.EncoderTo.
func (txn Transaction) EncodeTo(e *Encoder) {
	txnSansSigs(txn).EncodeTo(e)
	EncodeSliceFn(e, txn.Sigs, (*Encoder).WriteBytes)
}

// EncodeTo implements types.EncoderTo.
func (sd StakeDoc) EncodeTo(e *Encoder) {
	sd.Pubkey.EncodeTo(e)
	e.WriteUint64(sd.EStart)
	e.WriteUint64(sd.EPostEnd)
	sd.SymsStaked.EncodeTo(e)
}

// EncodeTo implements types.EncoderTo.
func (h Header) EncodeTo(e *Encoder) {
	e.WriteUint8(uint8(h.Network))
	h.Previous.EncodeTo(e)
	e.WriteUint64(h.Height)
	h.HistoryHash.EncodeTo(e)
	h.CoinsHash.EncodeTo(e)
	h.TransactionsHash.EncodeTo(e)
	h.FeePool.EncodeTo(e)
	e.WriteUint64(h.FeeMultiplier)
	e.WriteUint64(h.DoscSpeed)
	h.StakesHash.EncodeTo(e)
}

// DecodeFrom implements types.DecoderFrom.
func (h *Hash256) DecodeFrom(d *Decoder) { d.Read(h[:]) }

// DecodeFrom implements types.DecoderFrom.
func (h *TxHash) DecodeFrom(d *Decoder) { d.Read(h[:]) }

// DecodeFrom implements types.DecoderFrom.
func (a *Address) DecodeFrom(d *Decoder) { d.Read(a[:]) }

// DecodeFrom implements types.DecoderFrom.
func (pk *PublicKey) DecodeFrom(d *Decoder) { d.Read(pk[:]) }

// DecodeFrom implements types.DecoderFrom.
func (c *CoinValue) DecodeFrom(d *Decoder) {
	c.Lo = d.ReadUint64()
	c.Hi = d.ReadUint64()
}

// DecodeFrom implements types.DecoderFrom.
func (dn *Denom) DecodeFrom(d *Decoder) {
	dn.Kind = DenomKind(d.ReadUint8())
	switch dn.Kind {
	case DenomKindMel, DenomKindSym, DenomKindErg, DenomKindNewCoin:
		dn.TxHash = TxHash{}
	case DenomKindCustom:
		dn.TxHash.DecodeFrom(d)
	default:
		d.SetErr(fmt.Errorf("unknown denomination kind (%v)", dn.Kind))
	}
}

// DecodeFrom implements types.DecoderFrom.
func (id *CoinID) DecodeFrom(d *Decoder) {
	id.TxHash.DecodeFrom(d)
	id.Index = d.ReadUint8()
}

// DecodeFrom implements types.DecoderFrom.
func (cd *CoinData) DecodeFrom(d *Decoder) {
	cd.CovHash.DecodeFrom(d)
	cd.Value.DecodeFrom(d)
	cd.Denom.DecodeFrom(d)
	cd.AdditionalData = d.ReadBytes()
}

// DecodeFrom implements types.DecoderFrom.
func (cdh *CoinDataHeight) DecodeFrom(d *Decoder) {
	cdh.CoinData.DecodeFrom(d)
	cdh.Height = d.ReadUint64()
}

// DecodeFrom implements types.DecoderFrom.
func (txn *Transaction) DecodeFrom(d *Decoder) {
	txn.Kind = TxKind(d.ReadUint8())
	DecodeSlice(d, &txn.Inputs)
	DecodeSlice(d, &txn.Outputs)
	txn.Fee.DecodeFrom(d)
	DecodeSliceFn(d, &txn.Covenants, (*Decoder).ReadBytes)
	txn.Data = d.ReadBytes()
	DecodeSliceFn(d, &txn.Sigs, (*Decoder).ReadBytes)
}

// DecodeFrom implements types.DecoderFrom.
func (sd *StakeDoc) DecodeFrom(d *Decoder) {
	sd.Pubkey.DecodeFrom(d)
	sd.EStart = d.ReadUint64()
	sd.EPostEnd = d.ReadUint64()
	sd.SymsStaked.DecodeFrom(d)
}

// DecodeFrom implements types.DecoderFrom.
func (h *Header) DecodeFrom(d *Decoder) {
	h.Network = NetID(d.ReadUint8())
	h.Previous.DecodeFrom(d)
	h.Height = d.ReadUint64()
	h.HistoryHash.DecodeFrom(d)
	h.CoinsHash.DecodeFrom(d)
	h.TransactionsHash.DecodeFrom(d)
	h.FeePool.DecodeFrom(d)
	h.FeeMultiplier = d.ReadUint64()
	h.DoscSpeed = d.ReadUint64()
	h.StakesHash.DecodeFrom(d)
}

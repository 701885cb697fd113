package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/bitfsorg/librewards-go/identity"
)

// AccountType is the leading tag byte of every stored account.
type AccountType uint8

// Account type tags. Values are persisted; never renumber.
const (
	TypeMint         AccountType = 1
	TypeTokenAccount AccountType = 2
	TypeAdmin        AccountType = 10
	TypeNode         AccountType = 11
	TypeCustody      AccountType = 12
	TypeRewardEntry  AccountType = 13
	TypeReceipt      AccountType = 14
)

func (t AccountType) String() string {
	switch t {
	case TypeMint:
		return "mint"
	case TypeTokenAccount:
		return "token-account"
	case TypeAdmin:
		return "admin"
	case TypeNode:
		return "node"
	case TypeCustody:
		return "custody"
	case TypeRewardEntry:
		return "reward-entry"
	case TypeReceipt:
		return "receipt"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Writer appends fixed-width little-endian fields after a type tag.
type Writer struct {
	buf []byte
}

// NewWriter starts an account encoding of type t.
func NewWriter(t AccountType, sizeHint int) *Writer {
	buf := make([]byte, 0, 1+sizeHint)
	return &Writer{buf: append(buf, byte(t))}
}

func (w *Writer) Key(k identity.PublicKey) { w.buf = append(w.buf, k[:]...) }
func (w *Writer) U8(v uint8) { w.buf = append(w.buf, v) }
func (w *Writer) U64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }
func (w *Writer) I64(v int64) { w.U64(uint64(v)) }

func (w *Writer) Bool(v bool) {
	if v {
		w.U8(1)
		return
	}
	w.U8(0)
}

// Bytes returns the encoded account.
func (w *Writer) Bytes() []byte { return w.buf }

// Decoder reads fields written by Writer. It keeps the first error and returns
// zero values after it, so callers check once in Finish.
type Decoder struct {
	data []byte
	off  int
	err  error
}

// NewDecoder checks the type tag of data and positions after it.
func NewDecoder(data []byte, t AccountType) *Decoder {
	d := &Decoder{data: data}
	if len(data) == 0 {
		d.err = fmt.Errorf("%w: empty", ErrInvalidAccountData)
		return d
	}
	if got := AccountType(data[0]); got != t {
		d.err = fmt.Errorf("%w: want %s, got %s", ErrWrongAccountType, t, got)
		return d
	}
	d.off = 1
	return d
}

func (d *Decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if len(d.data)-d.off < n {
		d.err = fmt.Errorf("%w: truncated at offset %d", ErrInvalidAccountData, d.off)
		return nil
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b
}

func (d *Decoder) Key() identity.PublicKey {
	var k identity.PublicKey
	if b := d.take(identity.KeySize); b != nil {
		copy(k[:], b)
	}
	return k
}

func (d *Decoder) U8() uint8 {
	if b := d.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (d *Decoder) U64() uint64 {
	if b := d.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (d *Decoder) I64() int64 { return int64(d.U64()) }

func (d *Decoder) Bool() bool {
	v := d.U8()
	if v > 1 && d.err == nil {
		d.err = fmt.Errorf("%w: bool byte %d", ErrInvalidAccountData, v)
	}
	return v == 1
}

// Finish returns the first decoding error, or an error if bytes remain.
func (d *Decoder) Finish() error {
	if d.err != nil {
		return d.err
	}
	if d.off != len(d.data) {
		return fmt.Errorf("%w: %d trailing bytes", ErrInvalidAccountData, len(d.data)-d.off)
	}
	return nil
}

package datastore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/big"
	"unicode/utf16"
)

// Writer accumulates an encoded stream and tracks the write position.
type Writer struct {
	buf []byte
}

// NewWriter creates an empty writer.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 1024)}
}

// Bytes returns the written bytes.
func (w *Writer) Bytes() []byte { return w.buf }

// Pos returns the current write offset.
func (w *Writer) Pos() int { return len(w.buf) }

// Byte writes a single byte.
func (w *Writer) Byte(b byte) { w.buf = append(w.buf, b) }

// Raw writes bytes verbatim.
func (w *Writer) Raw(data []byte) { w.buf = append(w.buf, data...) }

// Uint writes an unsigned LEB128 value.
func (w *Writer) Uint(v uint64) { w.buf = AppendUint(w.buf, v) }

// Int writes a signed LEB128 value.
func (w *Writer) Int(v int64) { w.buf = AppendInt(w.buf, v) }

// BigInt writes a signed arbitrary-precision LEB128 value.
func (w *Writer) BigInt(v *big.Int) { w.buf = AppendBigInt(w.buf, v) }

// Bool writes 0 or 1.
func (w *Writer) Bool(v bool) {
	if v {
		w.Byte(1)
		return
	}
	w.Byte(0)
}

// Uint16LE writes a fixed little-endian uint16.
func (w *Writer) Uint16LE(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// Uint32LE writes a fixed little-endian uint32.
func (w *Writer) Uint32LE(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// Uint64LE writes a fixed little-endian uint64.
func (w *Writer) Uint64LE(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// PatchUint64LE overwrites 8 bytes at pos.
func (w *Writer) PatchUint64LE(pos int, v uint64) {
	binary.LittleEndian.PutUint64(w.buf[pos:pos+8], v)
}

// Name writes the length in UTF-16 code units followed by every code unit
// as an unsigned LEB128 value.
func (w *Writer) Name(s string) {
	units := utf16.Encode([]rune(s))
	w.Uint(uint64(len(units)))
	for _, u := range units {
		w.Uint(uint64(u))
	}
}

// Reader decodes a byte slice with position tracking.
type Reader struct {
	data []byte
	pos  int
}

// NewReader wraps data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Pos returns the current read offset.
func (r *Reader) Pos() int { return r.pos }

// Len returns the total input size.
func (r *Reader) Len() int { return len(r.data) }

// Seek moves to an absolute offset.
func (r *Reader) Seek(pos int) error {
	if pos < 0 || pos > len(r.data) {
		return fmt.Errorf("seek to %d outside [0,%d]", pos, len(r.data))
	}
	r.pos = pos
	return nil
}

// ReadByte implements io.ByteReader.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, io.ErrUnexpectedEOF
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// Bytes reads n raw bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, io.ErrUnexpectedEOF
	}
	out := r.data[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

// Uint reads an unsigned value of at most bits width.
func (r *Reader) Uint(bits uint) (uint64, error) { return ReadUint(r, bits) }

// Int reads a signed value of at most bits width.
func (r *Reader) Int(bits uint) (int64, error) { return ReadInt(r, bits) }

// BigInt reads a signed arbitrary-precision value.
func (r *Reader) BigInt() (*big.Int, error) { return ReadBigInt(r) }

// Bool reads a 0/1 byte.
func (r *Reader) Bool() (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, fmt.Errorf("invalid boolean byte 0x%02x", b)
}

// Uint16LE reads a fixed little-endian uint16.
func (r *Reader) Uint16LE() (uint16, error) {
	b, err := r.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// Uint32LE reads a fixed little-endian uint32.
func (r *Reader) Uint32LE() (uint32, error) {
	b, err := r.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Uint64LE reads a fixed little-endian uint64.
func (r *Reader) Uint64LE() (uint64, error) {
	b, err := r.Bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ErrStringTooLong guards against corrupted length prefixes.
var ErrStringTooLong = errors.New("string length exceeds input")

// Name reads a value written by Writer.Name.
func (r *Reader) Name() (string, error) {
	n, err := r.Uint(32)
	if err != nil {
		return "", err
	}
	if int(n) > len(r.data)-r.pos {
		return "", ErrStringTooLong
	}
	units := make([]uint16, n)
	for i := range units {
		u, err := r.Uint(16)
		if err != nil {
			return "", err
		}
		units[i] = uint16(u)
	}
	return string(utf16.Decode(units)), nil
}

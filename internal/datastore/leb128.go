// Package datastore holds the LEB128 codec and the size/alignment arithmetic
// shared by the assembly format and the layout engine.
//
// Encoding: each byte carries 7 payload bits (low bits first); 0x80 marks a
// continuation. Signed values are sign-extended from bit 0x40 of the final
// byte. Encoders always produce the minimal number of bytes.
package datastore

import (
	"errors"
	"io"
	"math/big"
)

// ErrOverflow is returned when an encoded value does not fit the requested width.
var ErrOverflow = errors.New("leb128: overflow")

// AppendUint appends the unsigned LEB128 encoding of v.
func AppendUint(dst []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			dst = append(dst, b|0x80)
			continue
		}
		return append(dst, b)
	}
}

// AppendInt appends the signed LEB128 encoding of v.
func AppendInt(dst []byte, v int64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(dst, b)
		}
		dst = append(dst, b|0x80)
	}
}

var (
	big7f    = big.NewInt(0x7f)
	bigZero  = big.NewInt(0)
	bigMinus = big.NewInt(-1)
)

// AppendBigUint appends the unsigned encoding of a non-negative big integer.
func AppendBigUint(dst []byte, v *big.Int) []byte {
	if v.Sign() < 0 {
		panic("leb128: negative value for unsigned encoding")
	}
	x := new(big.Int).Set(v)
	low := new(big.Int)
	for {
		b := byte(low.And(x, big7f).Uint64())
		x.Rsh(x, 7)
		if x.Sign() != 0 {
			dst = append(dst, b|0x80)
			continue
		}
		return append(dst, b)
	}
}

// AppendBigInt appends the signed encoding of an arbitrary-precision integer.
func AppendBigInt(dst []byte, v *big.Int) []byte {
	x := new(big.Int).Set(v)
	low := new(big.Int)
	for {
		// And/Rsh use two's complement semantics for negative values.
		b := byte(low.And(x, big7f).Uint64())
		x.Rsh(x, 7)
		if (x.Cmp(bigZero) == 0 && b&0x40 == 0) || (x.Cmp(bigMinus) == 0 && b&0x40 != 0) {
			return append(dst, b)
		}
		dst = append(dst, b|0x80)
	}
}

// ReadUint decodes an unsigned value of at most bits width.
func ReadUint(r io.ByteReader, bits uint) (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		payload := uint64(b & 0x7f)
		if shift >= bits || (bits-shift < 7 && payload>>(bits-shift) != 0) {
			return 0, ErrOverflow
		}
		result |= payload << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
}

// ReadInt decodes a signed value of at most bits width.
func ReadInt(r io.ByteReader, bits uint) (int64, error) {
	var result int64
	var shift uint
	var b byte
	var err error
	for {
		b, err = r.ReadByte()
		if err != nil {
			return 0, err
		}
		if shift >= bits {
			return 0, ErrOverflow
		}
		if bits-shift < 7 {
			// bits above the sign bit must repeat it
			n := bits - shift - 1
			hi, mask := (b&0x7f)>>n, byte(0x7f)>>n
			if hi != 0 && hi != mask {
				return 0, ErrOverflow
			}
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= ^int64(0) << shift
	}
	if bits < 64 {
		limit := int64(1) << (bits - 1)
		if result >= limit || result < -limit {
			return 0, ErrOverflow
		}
	}
	return result, nil
}

// ReadBigUint decodes an unsigned arbitrary-precision value.
func ReadBigUint(r io.ByteReader) (*big.Int, error) {
	result := new(big.Int)
	part := new(big.Int)
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		part.SetUint64(uint64(b & 0x7f))
		result.Or(result, part.Lsh(part, shift))
		shift += 7
		if b&0x80 == 0 {
			return result, nil
		}
	}
}

// ReadBigInt decodes a signed arbitrary-precision value.
func ReadBigInt(r io.ByteReader) (*big.Int, error) {
	result := new(big.Int)
	part := new(big.Int)
	var shift uint
	var b byte
	var err error
	for {
		b, err = r.ReadByte()
		if err != nil {
			return nil, err
		}
		part.SetUint64(uint64(b & 0x7f))
		result.Or(result, part.Lsh(part, shift))
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if b&0x40 != 0 {
		result.Sub(result, new(big.Int).Lsh(big.NewInt(1), shift))
	}
	return result, nil
}

// UintLen returns the number of bytes AppendUint would produce.
func UintLen(v uint64) int {
	n := 1
	for v >>= 7; v != 0; v >>= 7 {
		n++
	}
	return n
}

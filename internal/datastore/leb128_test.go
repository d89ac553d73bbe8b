package datastore

import (
	"bytes"
	"errors"
	"math"
	"math/big"
	"testing"
)

func TestAppendUintKnownVectors(t *testing.T) {
	tests := []struct {
		v    uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{624485, []byte{0xe5, 0x8e, 0x26}},
		{math.MaxUint64, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}},
	}
	for _, tt := range tests {
		if got := AppendUint(nil, tt.v); !bytes.Equal(got, tt.want) {
			t.Errorf("AppendUint(%d) = % x, want % x", tt.v, got, tt.want)
		}
		if UintLen(tt.v) != len(tt.want) {
			t.Errorf("UintLen(%d) = %d, want %d", tt.v, UintLen(tt.v), len(tt.want))
		}
	}
}

func TestAppendIntKnownVectors(t *testing.T) {
	tests := []struct {
		v    int64
		want []byte
	}{
		{0, []byte{0x00}},
		{-1, []byte{0x7f}},
		{63, []byte{0x3f}},
		{64, []byte{0xc0, 0x00}},
		{-64, []byte{0x40}},
		{-65, []byte{0xbf, 0x7f}},
		{-123456, []byte{0xc0, 0xbb, 0x78}},
	}
	for _, tt := range tests {
		if got := AppendInt(nil, tt.v); !bytes.Equal(got, tt.want) {
			t.Errorf("AppendInt(%d) = % x, want % x", tt.v, got, tt.want)
		}
	}
}

func TestSignedRoundTripAndMinimality(t *testing.T) {
	values := []int64{0, 1, -1, 63, 64, -64, -65, 8191, -8192, 1 << 40, -(1 << 40), math.MaxInt64, math.MinInt64}
	for _, v := range values {
		enc := AppendInt(nil, v)
		got, err := ReadInt(bytes.NewReader(enc), 64)
		if err != nil {
			t.Fatalf("ReadInt(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("round trip %d -> %d", v, got)
		}
		if len(enc) > 1 {
			// dropping the last byte and clearing continuation must not decode to v
			shorter := append([]byte(nil), enc[:len(enc)-1]...)
			shorter[len(shorter)-1] &^= 0x80
			if back, err := ReadInt(bytes.NewReader(shorter), 64); err == nil && back == v {
				t.Errorf("encoding of %d is not minimal: % x", v, enc)
			}
		}
	}
}

func TestUnsignedRoundTrip32(t *testing.T) {
	for _, v := range []uint64{0, 1, 127, 128, 1 << 20, math.MaxUint32} {
		got, err := ReadUint(bytes.NewReader(AppendUint(nil, v)), 32)
		if err != nil || got != v {
			t.Errorf("round trip %d -> %d (%v)", v, got, err)
		}
	}
	if _, err := ReadUint(bytes.NewReader(AppendUint(nil, math.MaxUint32+1)), 32); !errors.Is(err, ErrOverflow) {
		t.Errorf("expected overflow, got %v", err)
	}
	if _, err := ReadInt(bytes.NewReader(AppendInt(nil, math.MaxInt32+1)), 32); !errors.Is(err, ErrOverflow) {
		t.Errorf("expected signed overflow, got %v", err)
	}
}

func TestReadRejectsStrayHighBits(t *testing.T) {
	cont := func(last byte) []byte {
		return []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, last}
	}
	tests := []struct {
		name   string
		in     []byte
		signed bool
		want   int64
		err    bool
	}{
		{"uint max", cont(0x01), false, -1, false},
		{"uint bit 64", cont(0x02), false, 0, true},
		{"int min", cont(0x7f), true, math.MinInt64, false},
		{"int zero padded", cont(0x00), true, 0, false},
		{"int bit 64 without sign", cont(0x02), true, 0, true},
		{"int sign without bit 63", cont(0x7e), true, 0, true},
		{"int positive bit 63", cont(0x01), true, 0, true},
		{"int eleventh byte", append(cont(0x80), 0x00), true, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got int64
			var err error
			if tt.signed {
				got, err = ReadInt(bytes.NewReader(tt.in), 64)
			} else {
				var u uint64
				u, err = ReadUint(bytes.NewReader(tt.in), 64)
				got = int64(u)
			}
			if tt.err {
				if !errors.Is(err, ErrOverflow) {
					t.Fatalf("got %d (%v), want ErrOverflow", got, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("got %d (%v), want %d", got, err, tt.want)
			}
		})
	}
}

func TestBigIntMatchesFixedWidth(t *testing.T) {
	for _, v := range []int64{0, 5, -5, 64, -65, math.MaxInt64, math.MinInt64} {
		if got, want := AppendBigInt(nil, big.NewInt(v)), AppendInt(nil, v); !bytes.Equal(got, want) {
			t.Errorf("big encoding of %d = % x, want % x", v, got, want)
		}
	}
	if got, want := AppendBigUint(nil, new(big.Int).SetUint64(math.MaxUint64)), AppendUint(nil, math.MaxUint64); !bytes.Equal(got, want) {
		t.Errorf("big unsigned mismatch % x vs % x", got, want)
	}
}

func TestBigIntRoundTripHuge(t *testing.T) {
	huge, _ := new(big.Int).SetString("-1234567890123456789012345678901234567890", 10)
	back, err := ReadBigInt(bytes.NewReader(AppendBigInt(nil, huge)))
	if err != nil {
		t.Fatalf("ReadBigInt: %v", err)
	}
	if back.Cmp(huge) != 0 {
		t.Errorf("round trip %s -> %s", huge, back)
	}
	pos := new(big.Int).Lsh(big.NewInt(1), 130)
	backU, err := ReadBigUint(bytes.NewReader(AppendBigUint(nil, pos)))
	if err != nil || backU.Cmp(pos) != 0 {
		t.Errorf("unsigned round trip %s -> %v (%v)", pos, backU, err)
	}
}

func TestStreamNamesAndPatch(t *testing.T) {
	w := NewWriter()
	w.Uint64LE(0)
	w.Name("Größe𝄞")
	w.Int(-3)
	w.PatchUint64LE(0, 42)

	r := NewReader(w.Bytes())
	off, err := r.Uint64LE()
	if err != nil || off != 42 {
		t.Fatalf("patched header = %d (%v)", off, err)
	}
	name, err := r.Name()
	if err != nil || name != "Größe𝄞" {
		t.Fatalf("name = %q (%v)", name, err)
	}
	v, err := r.Int(32)
	if err != nil || v != -3 {
		t.Fatalf("int = %d (%v)", v, err)
	}
	if _, err := r.ReadByte(); err == nil {
		t.Errorf("expected EOF")
	}
}

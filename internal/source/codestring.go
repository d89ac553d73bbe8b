package source

import (
	"fmt"
	"strings"

	"fortio.org/safecast"
)

// CodeString is an immutable view into a File, or a free-standing string
// with no file behind it. Substring operations return new values.
type CodeString struct {
	File   *File
	Index  int
	Length int
	Line   int // 0-based line of Index
	text   string
}

// NewCodeString creates a view of length bytes at index inside f.
func NewCodeString(f *File, index, length int) CodeString {
	if f == nil {
		return CodeString{}
	}
	if index < 0 || length < 0 || index+length > len(f.Content) {
		panic(fmt.Sprintf("source: code string %d+%d out of range (len %d)", index, length, len(f.Content)))
	}
	return CodeString{File: f, Index: index, Length: length, Line: f.LineOf(index)}
}

// FreeString wraps text that does not belong to any file.
func FreeString(s string) CodeString {
	return CodeString{Length: len(s), text: s}
}

// IsFree reports whether the string has no backing file.
func (c CodeString) IsFree() bool { return c.File == nil }

// IsEmpty reports whether the view has zero length.
func (c CodeString) IsEmpty() bool { return c.Length == 0 }

// Len returns the length in bytes.
func (c CodeString) Len() int { return c.Length }

// End returns the exclusive end offset inside the file.
func (c CodeString) End() int { return c.Index + c.Length }

func (c CodeString) bytes() []byte {
	if c.File == nil {
		return []byte(c.text)
	}
	return c.File.Content[c.Index : c.Index+c.Length]
}

func (c CodeString) String() string {
	if c.File == nil {
		return c.text
	}
	return string(c.File.Content[c.Index : c.Index+c.Length])
}

// At returns the byte at offset i relative to the view.
func (c CodeString) At(i int) byte {
	if c.File == nil {
		return c.text[i]
	}
	return c.File.Content[c.Index+i]
}

// Substring returns the view starting at offset i.
func (c CodeString) Substring(i int) CodeString {
	return c.SubstringN(i, c.Length-i)
}

// SubstringN returns n bytes starting at offset i.
func (c CodeString) SubstringN(i, n int) CodeString {
	if i < 0 || n < 0 || i+n > c.Length {
		panic(fmt.Sprintf("source: substring %d+%d of %d", i, n, c.Length))
	}
	if c.File == nil {
		return FreeString(c.text[i : i+n])
	}
	return NewCodeString(c.File, c.Index+i, n)
}

// SubstringTo returns the first n bytes.
func (c CodeString) SubstringTo(n int) CodeString {
	return c.SubstringN(0, n)
}

// TrimStart drops leading whitespace.
func (c CodeString) TrimStart() CodeString {
	i := 0
	for i < c.Length && isSpace(c.At(i)) {
		i++
	}
	return c.Substring(i)
}

// TrimEnd drops trailing whitespace.
func (c CodeString) TrimEnd() CodeString {
	n := c.Length
	for n > 0 && isSpace(c.At(n-1)) {
		n--
	}
	return c.SubstringTo(n)
}

// Trim drops whitespace on both sides.
func (c CodeString) Trim() CodeString {
	return c.TrimStart().TrimEnd()
}

// Equal compares the text exactly (case-sensitive).
func (c CodeString) Equal(s string) bool {
	if c.Length != len(s) {
		return false
	}
	if c.File == nil {
		return c.text == s
	}
	return string(c.bytes()) == s
}

// SameText compares two views by their text.
func (c CodeString) SameText(other CodeString) bool {
	if c.Length != other.Length {
		return false
	}
	return c.Equal(other.String())
}

// StartsWith reports whether the view begins with s.
func (c CodeString) StartsWith(s string) bool {
	return c.Length >= len(s) && c.SubstringTo(len(s)).Equal(s)
}

// EndsWith reports whether the view ends with s.
func (c CodeString) EndsWith(s string) bool {
	return c.Length >= len(s) && c.Substring(c.Length-len(s)).Equal(s)
}

// Find returns the offset of the first occurrence of s, or -1.
func (c CodeString) Find(s string) int {
	return strings.Index(c.String(), s)
}

// Span converts the view to a diagnostics span. Free strings map to an empty span.
func (c CodeString) Span() Span {
	if c.File == nil {
		return Span{}
	}
	start, err := safecast.Conv[uint32](c.Index)
	if err != nil {
		panic(fmt.Errorf("span start overflow: %w", err))
	}
	end, err := safecast.Conv[uint32](c.Index + c.Length)
	if err != nil {
		panic(fmt.Errorf("span end overflow: %w", err))
	}
	return Span{File: c.File.ID, Start: start, End: end}
}

// Position returns the 1-based line/column of the first byte.
func (c CodeString) Position() LineCol {
	if c.File == nil {
		return LineCol{Line: 1, Col: 1}
	}
	col := c.Index - c.File.LineStart(c.Line) + 1
	return LineCol{Line: uint32(c.Line + 1), Col: uint32(col)} // #nosec G115
}

// Erase overwrites the viewed bytes with spaces (newlines kept) and refreshes
// the file's line table. Free strings are left unchanged.
func (c CodeString) Erase() {
	if c.File == nil {
		return
	}
	buf := c.File.Content[c.Index : c.Index+c.Length]
	for i, b := range buf {
		if b != '\n' {
			buf[i] = ' '
		}
	}
	c.File.Update()
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}

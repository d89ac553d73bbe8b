package source

// Bracket and word scanning primitives shared by every recognizer. String
// ("...") and character ('...') literals are skipped; a backslash escapes the
// next byte inside them.

func closingBracket(b byte) byte {
	switch b {
	case '(':
		return ')'
	case '[':
		return ']'
	case '{':
		return '}'
	}
	return 0
}

func isClosing(b byte) bool {
	return b == ')' || b == ']' || b == '}'
}

// skipLiteral returns the offset after the literal starting at i, or -1 when
// the literal is not terminated.
func (c CodeString) skipLiteral(i int) int {
	quote := c.At(i)
	for j := i + 1; j < c.Length; j++ {
		switch c.At(j) {
		case '\\':
			j++
		case quote:
			return j + 1
		}
	}
	return -1
}

// MatchingBracket returns the offset of the bracket closing the one at open,
// or -1 when unbalanced.
func (c CodeString) MatchingBracket(open int) int {
	if open < 0 || open >= c.Length || closingBracket(c.At(open)) == 0 {
		return -1
	}
	stack := []byte{closingBracket(c.At(open))}
	for i := open + 1; i < c.Length; i++ {
		b := c.At(i)
		switch {
		case b == '"' || b == '\'':
			next := c.skipLiteral(i)
			if next < 0 {
				return -1
			}
			i = next - 1
		case closingBracket(b) != 0:
			stack = append(stack, closingBracket(b))
		case isClosing(b):
			if stack[len(stack)-1] != b {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}

// FindOutsideBrackets returns the first offset of s that is not nested in any
// bracket or literal, or -1.
func (c CodeString) FindOutsideBrackets(s string) int {
	depth := 0
	for i := 0; i < c.Length; i++ {
		b := c.At(i)
		switch {
		case b == '"' || b == '\'':
			next := c.skipLiteral(i)
			if next < 0 {
				return -1
			}
			i = next - 1
			continue
		case closingBracket(b) != 0:
			if depth == 0 && c.Substring(i).StartsWith(s) {
				return i
			}
			depth++
			continue
		case isClosing(b):
			depth--
			continue
		}
		if depth == 0 && c.Substring(i).StartsWith(s) {
			return i
		}
	}
	return -1
}

// Split cuts the view at every top-level separator byte and trims the parts.
// Empty parts are kept so callers can report them.
func (c CodeString) Split(sep byte) []CodeString {
	if c.Trim().IsEmpty() {
		return nil
	}
	var parts []CodeString
	depth, start := 0, 0
	for i := 0; i < c.Length; i++ {
		b := c.At(i)
		switch {
		case b == '"' || b == '\'':
			if next := c.skipLiteral(i); next > 0 {
				i = next - 1
			}
		case closingBracket(b) != 0:
			depth++
		case isClosing(b):
			depth--
		case b == sep && depth == 0:
			parts = append(parts, c.SubstringN(start, i-start).Trim())
			start = i + 1
		}
	}
	return append(parts, c.Substring(start).Trim())
}

// IsIdentChar reports whether b may appear inside an identifier.
func IsIdentChar(b byte) bool {
	return b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b >= 0x80
}

// Word splits off the leading identifier (after whitespace). When the view
// does not start with an identifier character word is empty.
func (c CodeString) Word() (word, rest CodeString) {
	c = c.TrimStart()
	n := 0
	for n < c.Length && IsIdentChar(c.At(n)) {
		n++
	}
	return c.SubstringTo(n), c.Substring(n).TrimStart()
}

// IsIdentifier reports whether the whole view is one identifier not starting with a digit.
func (c CodeString) IsIdentifier() bool {
	if c.Length == 0 {
		return false
	}
	if b := c.At(0); b >= '0' && b <= '9' {
		return false
	}
	for i := 0; i < c.Length; i++ {
		if !IsIdentChar(c.At(i)) {
			return false
		}
	}
	return true
}

// Lines splits the view into lines without their terminating newline.
func (c CodeString) Lines() []CodeString {
	var lines []CodeString
	start := 0
	for i := 0; i < c.Length; i++ {
		if c.At(i) == '\n' {
			lines = append(lines, c.SubstringN(start, i-start))
			start = i + 1
		}
	}
	if start < c.Length {
		lines = append(lines, c.Substring(start))
	}
	return lines
}

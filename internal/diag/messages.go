package diag

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

//go:embed messages/*.txt
var messageFiles embed.FS

// Cultures shipped with the compiler. The first entry is the fallback.
var builtinCultures = []language.Tag{language.English, language.German}

var cultureMatcher = language.NewMatcher(builtinCultures)

// MessageTable maps message enum names to culture-specific format strings.
type MessageTable struct {
	Culture  language.Tag
	entries  map[string]string
	fallback *MessageTable
}

var (
	defaultOnce  sync.Once
	defaultTable *MessageTable
)

// DefaultMessages returns the embedded English table.
func DefaultMessages() *MessageTable {
	defaultOnce.Do(func() {
		t, err := loadEmbedded(language.English)
		if err != nil {
			Fatalf("embedded English message table: %v", err)
		}
		defaultTable = t
	})
	return defaultTable
}

// LoadMessages picks the embedded table closest to culture (a BCP 47 tag
// such as "de-AT"). Unknown or empty cultures get the English table. Keys
// missing from the chosen table fall back to English.
func LoadMessages(culture string) (*MessageTable, error) {
	if culture == "" {
		return DefaultMessages(), nil
	}
	tag, err := language.Parse(culture)
	if err != nil {
		return nil, fmt.Errorf("message culture %q: %w", culture, err)
	}
	_, idx, _ := cultureMatcher.Match(tag)
	if idx == 0 {
		return DefaultMessages(), nil
	}
	t, err := loadEmbedded(builtinCultures[idx])
	if err != nil {
		return nil, err
	}
	t.fallback = DefaultMessages()
	return t, nil
}

// ReadMessages builds a table from a user supplied Key="Value" file.
func ReadMessages(r io.Reader, culture language.Tag) (*MessageTable, error) {
	entries, err := ParseMessages(r)
	if err != nil {
		return nil, err
	}
	return &MessageTable{Culture: culture, entries: entries, fallback: DefaultMessages()}, nil
}

func loadEmbedded(tag language.Tag) (*MessageTable, error) {
	base, _ := tag.Base()
	name := "messages/Messages." + base.String() + ".txt"
	data, err := messageFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	entries, err := ParseMessages(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &MessageTable{Culture: tag, entries: entries}, nil
}

// ParseMessages reads Key="Value" lines. Blank lines and lines starting with
// '#' are skipped. Values may use \" \\ \n and \t escapes.
func ParseMessages(r io.Reader) (map[string]string, error) {
	entries := make(map[string]string)
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq <= 0 {
			return nil, fmt.Errorf("line %d: expected Key=\"Value\"", lineNo)
		}
		key := strings.TrimSpace(line[:eq])
		raw := strings.TrimSpace(line[eq+1:])
		if len(raw) < 2 || raw[0] != '"' || raw[len(raw)-1] != '"' {
			return nil, fmt.Errorf("line %d: value of %s is not quoted", lineNo, key)
		}
		val, err := unescapeMessage(raw[1 : len(raw)-1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		entries[key] = val
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func unescapeMessage(s string) (string, error) {
	if !strings.ContainsRune(s, '\\') {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i == len(s) {
			return "", fmt.Errorf("dangling escape")
		}
		switch s[i] {
		case '"', '\\':
			b.WriteByte(s[i])
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		default:
			return "", fmt.Errorf("unknown escape \\%c", s[i])
		}
	}
	return b.String(), nil
}

// Lookup returns the raw format string for code.
func (t *MessageTable) Lookup(code Code) (string, bool) {
	for cur := t; cur != nil; cur = cur.fallback {
		if v, ok := cur.entries[code.String()]; ok {
			return v, true
		}
	}
	return "", false
}

// Len returns the number of entries of this table without its fallback.
func (t *MessageTable) Len() int { return len(t.entries) }

// Format renders code with args. Every argument is substituted as text.
func (t *MessageTable) Format(code Code, args ...any) string {
	format, ok := t.Lookup(code)
	if !ok {
		if len(args) == 0 {
			return code.String()
		}
		return code.String() + ": " + fmt.Sprint(args...)
	}
	if len(args) == 0 {
		return format
	}
	text := make([]any, len(args))
	for i, a := range args {
		text[i] = fmt.Sprint(a)
	}
	return fmt.Sprintf(format, text...)
}

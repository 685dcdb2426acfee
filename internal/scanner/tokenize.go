package scanner

import (
	"strings"
	"unicode/utf8"
)

// Tokenizer limits. Both bound work on pathological inputs; a single
// minified JS line or a million-line log file must not stall a worker.
const (
	DefaultMaxTokenLength = 4096
	DefaultMaxLines       = 100000
)

// Limits bounds tokenizer work per object.
type Limits struct {
	MaxTokenLength int
	MaxLines       int
}

// DefaultLimits returns the standard tokenizer bounds.
func DefaultLimits() Limits {
	return Limits{MaxTokenLength: DefaultMaxTokenLength, MaxLines: DefaultMaxLines}
}

func (l Limits) withDefaults() Limits {
	if l.MaxTokenLength <= 0 {
		l.MaxTokenLength = DefaultMaxTokenLength
	}
	if l.MaxLines <= 0 {
		l.MaxLines = DefaultMaxLines
	}
	return l
}

// isDelimiter reports whether r separates likely token substrings within a
// line. The set covers KEY=value assignments, YAML/JSON "key: value" pairs,
// and quoted literals.
func isDelimiter(r rune) bool {
	switch r {
	case ' ', '\t', '=', ':', ',', ';', '"', '\'', '`':
		return true
	}
	return false
}

// Tokenizer produces candidate tokens from one object's content: each
// trimmed line, plus the line's delimiter-separated sub-tokens so a long
// line with one high-entropy value is not averaged away. Tokenizers hold no
// cross-object state; construct a new one to restart.
type Tokenizer struct {
	ref    ObjectRef
	data   string
	limits Limits

	pos     int // byte offset of the next unread line
	line    int
	pending []Token
}

// NewTokenizer creates a tokenizer over data. Invalid UTF-8 is replaced
// rune-by-rune so binary junk degrades to noise instead of an error.
func NewTokenizer(ref ObjectRef, data []byte, limits Limits) *Tokenizer {
	s := string(data)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, string(utf8.RuneError))
	}
	return &Tokenizer{ref: ref, data: s, limits: limits.withDefaults()}
}

// Next returns the next token, or ok=false when the content is exhausted.
func (t *Tokenizer) Next() (Token, bool) {
	for {
		if len(t.pending) > 0 {
			tok := t.pending[0]
			t.pending = t.pending[1:]
			return tok, true
		}
		if t.pos >= len(t.data) || t.line >= t.limits.MaxLines {
			return Token{}, false
		}
		t.fillLine()
	}
}

// fillLine consumes one line and queues its tokens: the whole trimmed line
// first, then any sub-tokens that differ from it.
func (t *Tokenizer) fillLine() {
	start := t.pos
	end := strings.IndexByte(t.data[start:], '\n')
	var line string
	if end < 0 {
		line = t.data[start:]
		t.pos = len(t.data)
	} else {
		line = t.data[start : start+end]
		t.pos = start + end + 1
	}
	t.line++

	line = strings.TrimSuffix(line, "\r")
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}

	lineOffset := start + strings.Index(line, trimmed)

	// Sub-tokens isolate the value part of assignments and key/value pairs.
	fields := strings.FieldsFunc(trimmed, isDelimiter)
	if len(fields) == 1 && fields[0] == trimmed {
		t.pending = append(t.pending, t.token(trimmed, lineOffset, false))
		return
	}

	// The line splits: queue it as a composite ahead of its fragments.
	t.pending = append(t.pending, t.token(trimmed, lineOffset, true))
	search := 0
	for _, f := range fields {
		idx := strings.Index(trimmed[search:], f)
		if idx < 0 {
			continue
		}
		off := lineOffset + search + idx
		search += idx + len(f)
		t.pending = append(t.pending, t.token(f, off, false))
	}
}

func (t *Tokenizer) token(value string, offset int, composite bool) Token {
	if len(value) > t.limits.MaxTokenLength {
		value = value[:t.limits.MaxTokenLength]
	}
	return Token{Value: value, Ref: t.ref, Line: t.line, Offset: offset, Composite: composite}
}

package scanner

import (
	"fmt"
	"unicode/utf8"
)

// ObjectRef identifies a single object in the scanned bucket. It is produced
// by the lister and never mutated afterwards.
type ObjectRef struct {
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type,omitempty"`
	ETag        string `json:"etag,omitempty"`
}

// Token is a candidate string extracted from object content, with enough
// position information to report and deduplicate findings.
//
// Composite marks a whole-line token that was further split into sub-tokens.
// Composite tokens are matched against markers only; entropy classification
// happens on their fragments, so one secret yields one finding.
type Token struct {
	Value     string
	Ref       ObjectRef
	Line      int // 1-based line number
	Offset    int // byte offset of the token within the object
	Composite bool
}

// Finding is a token classified as a potential secret.
type Finding struct {
	Key      string  `json:"key"`
	Line     int     `json:"line"`
	Offset   int     `json:"offset"`
	Token    string  `json:"-"` // full value, kept for dedup only
	Snippet  string  `json:"snippet"`
	Entropy  float64 `json:"entropy"`
	Alphabet int     `json:"alphabet"`
	Reason   string  `json:"reason"`
}

// Classification reasons.
const (
	ReasonEntropy    = "entropy>threshold"
	ReasonPrivateKey = "private-key marker"
)

const snippetLen = 12

// Redact truncates a token value for display. Findings never expose the
// full token. Truncation backs up to a rune boundary so multi-byte input
// cannot produce an invalid-UTF-8 snippet.
func Redact(value string) string {
	if len(value) <= snippetLen {
		return value
	}
	cut := snippetLen
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut] + "..."
}

// String renders a finding in the classic one-line report format.
func (f Finding) String() string {
	return fmt.Sprintf("[!] POSITIVE | %s:%d | Entropy: %.2f | Data: %s", f.Key, f.Line, f.Entropy, f.Snippet)
}

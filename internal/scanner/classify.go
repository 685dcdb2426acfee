package scanner

import (
	"regexp"
	"strings"
)

// Policy defaults.
const (
	DefaultThreshold      = 4.5
	DefaultMinTokenLength = 8
)

// Default exclusion patterns: strings that look random but are almost always
// content digests or identifiers rather than credentials. Both are
// overridable through Policy.ExcludePatterns.
var defaultExcludePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[0-9a-fA-F]{32,}$`), // md5/sha hex digests
	regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`), // uuid
}

// privateKeyMarker matches PEM private key headers, which are flagged on
// sight independent of entropy.
var privateKeyMarker = regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----`)

// Policy is the classification half of the scan configuration: what counts
// as a finding. Immutable once built.
type Policy struct {
	Threshold       float64
	MinTokenLength  int
	ExcludePatterns []*regexp.Regexp
}

// DefaultPolicy returns the standard classification policy.
func DefaultPolicy() Policy {
	return Policy{
		Threshold:       DefaultThreshold,
		MinTokenLength:  DefaultMinTokenLength,
		ExcludePatterns: defaultExcludePatterns,
	}
}

// Classifier applies a Policy to tokens.
type Classifier struct {
	policy Policy
}

// NewClassifier creates a classifier. Zero-valued policy fields fall back to
// defaults.
func NewClassifier(policy Policy) *Classifier {
	if policy.Threshold == 0 {
		policy.Threshold = DefaultThreshold
	}
	if policy.MinTokenLength <= 0 {
		policy.MinTokenLength = DefaultMinTokenLength
	}
	if policy.ExcludePatterns == nil {
		policy.ExcludePatterns = defaultExcludePatterns
	}
	return &Classifier{policy: policy}
}

// Evaluate scores a token and classifies it. Tokens below the minimum length
// are exempt before entropy is computed; entropy on short strings is
// statistically unstable, not merely low. Composite line tokens are checked
// for markers only, leaving entropy classification to their fragments.
func (c *Classifier) Evaluate(tok Token) (Finding, bool) {
	if privateKeyMarker.MatchString(tok.Value) {
		return c.finding(tok, Score{}, ReasonPrivateKey), true
	}
	if tok.Composite {
		return Finding{}, false
	}
	if len(tok.Value) < c.policy.MinTokenLength {
		return Finding{}, false
	}
	return c.Classify(tok, Shannon(tok.Value))
}

// Classify applies the threshold policy to an already-computed score. A
// score exactly at the threshold is not a finding; the comparison is a
// strict greater-than.
func (c *Classifier) Classify(tok Token, score Score) (Finding, bool) {
	if len(tok.Value) < c.policy.MinTokenLength {
		return Finding{}, false
	}
	if score.Bits <= c.policy.Threshold {
		return Finding{}, false
	}
	for _, pattern := range c.policy.ExcludePatterns {
		if pattern.MatchString(tok.Value) {
			return Finding{}, false
		}
	}
	return c.finding(tok, score, ReasonEntropy), true
}

func (c *Classifier) finding(tok Token, score Score, reason string) Finding {
	return Finding{
		Key:      tok.Ref.Key,
		Line:     tok.Line,
		Offset:   tok.Offset,
		Token:    tok.Value,
		Snippet:  Redact(strings.TrimSpace(tok.Value)),
		Entropy:  score.Bits,
		Alphabet: score.Alphabet,
		Reason:   reason,
	}
}

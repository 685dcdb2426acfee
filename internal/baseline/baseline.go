package baseline

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ppiankov/leakspectre/internal/report"
	"github.com/ppiankov/leakspectre/internal/scanner"
)

// Finding is a flattened, identity-comparable finding from a scan. TokenHash
// stands in for the token value so baseline files never store secrets.
type Finding struct {
	Reason    string `json:"reason"`
	Key       string `json:"key"`
	Line      int    `json:"line"`
	Offset    int    `json:"offset"`
	TokenHash string `json:"token_hash,omitempty"`
}

func (f Finding) key() string {
	return fmt.Sprintf("%s|%s|%d|%d|%s", f.Reason, f.Key, f.Line, f.Offset, f.TokenHash)
}

// DiffResult holds the outcome of comparing current findings against a baseline.
type DiffResult struct {
	New       []Finding
	Resolved  []Finding
	Unchanged []Finding
}

func hashToken(value string) string {
	if value == "" {
		return ""
	}
	sum := sha1.Sum([]byte(value))
	return hex.EncodeToString(sum[:])
}

// Flatten converts scan findings into the baseline identity form.
func Flatten(findings []scanner.Finding) []Finding {
	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		out = append(out, Finding{
			Reason:    f.Reason,
			Key:       f.Key,
			Line:      f.Line,
			Offset:    f.Offset,
			TokenHash: hashToken(f.Token),
		})
	}
	return out
}

// FlattenReport extracts baseline findings from a full scan report.
func FlattenReport(data report.Data) []Finding {
	if data.Result == nil {
		return nil
	}
	return Flatten(data.Result.Findings)
}

// file is the persisted baseline format.
type file struct {
	Findings []Finding `json:"findings"`
}

// Load reads a baseline written by Save and returns its findings.
func Load(path string) ([]Finding, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read baseline: %w", err)
	}
	var f file
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse baseline: %w", err)
	}
	return f.Findings, nil
}

// Save writes findings to a baseline file.
func Save(path string, findings []Finding) error {
	payload, err := json.MarshalIndent(file{Findings: findings}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode baseline: %w", err)
	}
	if err := os.WriteFile(path, payload, 0644); err != nil {
		return fmt.Errorf("write baseline: %w", err)
	}
	return nil
}

// Diff compares current findings against a baseline.
func Diff(current, baseline []Finding) DiffResult {
	baseMap := make(map[string]struct{}, len(baseline))
	for _, f := range baseline {
		baseMap[f.key()] = struct{}{}
	}
	curMap := make(map[string]struct{}, len(current))
	for _, f := range current {
		curMap[f.key()] = struct{}{}
	}

	var result DiffResult
	for _, f := range current {
		if _, exists := baseMap[f.key()]; exists {
			result.Unchanged = append(result.Unchanged, f)
		} else {
			result.New = append(result.New, f)
		}
	}
	for _, f := range baseline {
		if _, exists := curMap[f.key()]; !exists {
			result.Resolved = append(result.Resolved, f)
		}
	}
	return result
}

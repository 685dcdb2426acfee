package engine

import (
	"sort"

	"github.com/ppiankov/leakspectre/internal/scanner"
)

// Summary counts every listed object exactly once, independent of whether
// it produced findings. A scan with zero findings and a scan that failed on
// everything are distinguishable here.
type Summary struct {
	Objects   int   `json:"objects"`
	Scanned   int   `json:"scanned"`
	Skipped   int   `json:"skipped"`
	Failed    int   `json:"failed"`
	Truncated int   `json:"truncated"`
	Findings  int   `json:"findings"`
	Retries   int64 `json:"retries"`
}

// Result is the complete outcome of one scan invocation.
type Result struct {
	Findings []scanner.Finding `json:"findings"`
	Summary  Summary           `json:"summary"`
}

type findingKey struct {
	key    string
	token  string
	offset int
}

// aggregator collects outcomes from workers. It is owned by a single
// goroutine; serialization happens on the outcomes channel, so no lock is
// needed here.
type aggregator struct {
	seen     map[findingKey]struct{}
	findings []scanner.Finding
	summary  Summary
}

func newAggregator() *aggregator {
	return &aggregator{seen: make(map[findingKey]struct{})}
}

// add folds one outcome into the result. Findings with an identical
// (object key, token value, offset) identity are dropped; a retried fetch
// re-tokenizes the same bytes and must not double-report.
func (a *aggregator) add(o Outcome) {
	a.summary.Objects++
	switch o.Status {
	case StatusScanned:
		a.summary.Scanned++
	case StatusSkipped:
		a.summary.Skipped++
	case StatusFailed:
		a.summary.Failed++
	}
	if o.Truncated {
		a.summary.Truncated++
	}

	for _, f := range o.Findings {
		id := findingKey{key: f.Key, token: f.Token, offset: f.Offset}
		if _, dup := a.seen[id]; dup {
			continue
		}
		a.seen[id] = struct{}{}
		a.findings = append(a.findings, f)
	}
}

// result finalizes the scan: findings sorted by (key, line, offset) so the
// report is reproducible across runs over unchanged data.
func (a *aggregator) result() *Result {
	sort.Slice(a.findings, func(i, j int) bool {
		fi, fj := a.findings[i], a.findings[j]
		if fi.Key != fj.Key {
			return fi.Key < fj.Key
		}
		if fi.Line != fj.Line {
			return fi.Line < fj.Line
		}
		return fi.Offset < fj.Offset
	})
	a.summary.Findings = len(a.findings)
	return &Result{Findings: a.findings, Summary: a.summary}
}

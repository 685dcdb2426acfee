package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/ppiankov/leakspectre/internal/scanner"
)

// TextReporter generates human-readable text reports
type TextReporter struct {
	writer io.Writer
}

// NewTextReporter creates a new text reporter
func NewTextReporter(w io.Writer) *TextReporter {
	return &TextReporter{writer: w}
}

// Generate generates a text report
func (r *TextReporter) Generate(data Data) error {
	// Header
	fmt.Fprintf(r.writer, "LeakSpectre Report\n")
	fmt.Fprintf(r.writer, "==================\n\n")
	fmt.Fprintf(r.writer, "Scan Time: %s\n", data.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(r.writer, "Bucket: %s\n", data.Config.Bucket)
	if data.Config.Prefix != "" {
		fmt.Fprintf(r.writer, "Prefix: %s\n", data.Config.Prefix)
	}
	if data.Config.AWSProfile != "" {
		fmt.Fprintf(r.writer, "AWS Profile: %s\n", data.Config.AWSProfile)
	}
	if data.Config.AWSRegion != "" {
		fmt.Fprintf(r.writer, "AWS Region: %s\n", data.Config.AWSRegion)
	}
	fmt.Fprintf(r.writer, "Entropy Threshold: %.2f\n", data.Config.Threshold)
	if data.Aborted {
		fmt.Fprintf(r.writer, "%s\n", color.YellowString("Scan aborted: results are partial"))
	}
	fmt.Fprintf(r.writer, "\n")

	r.printFindings(data)
	r.printSummary(data)

	return nil
}

func (r *TextReporter) printFindings(data Data) {
	findings := data.Result.Findings
	if len(findings) == 0 {
		fmt.Fprintf(r.writer, "%s\n\n", color.GreenString("No potential secrets found"))
		return
	}

	fmt.Fprintf(r.writer, "%s\n", color.RedString("Potential Secrets"))
	fmt.Fprintf(r.writer, "%s\n", strings.Repeat("-", 50))

	for _, f := range findings {
		// Findings arrive pre-sorted by (key, line, offset).
		switch f.Reason {
		case scanner.ReasonPrivateKey:
			fmt.Fprintf(r.writer, "  %s | %s:%d | %s\n",
				color.RedString("[!] PRIVATE KEY"), f.Key, f.Line, f.Snippet)
		default:
			fmt.Fprintf(r.writer, "  %s | %s:%d | Entropy: %.2f | Data: %s\n",
				color.RedString("[!] POSITIVE"), f.Key, f.Line, f.Entropy, f.Snippet)
		}
	}
	fmt.Fprintf(r.writer, "\n")
}

func (r *TextReporter) printSummary(data Data) {
	s := data.Result.Summary
	fmt.Fprintf(r.writer, "Summary\n")
	fmt.Fprintf(r.writer, "-------\n")
	fmt.Fprintf(r.writer, "Objects Listed: %d\n", s.Objects)
	fmt.Fprintf(r.writer, "Scanned: %d\n", s.Scanned)
	fmt.Fprintf(r.writer, "Skipped: %d\n", s.Skipped)

	if s.Failed > 0 {
		fmt.Fprintf(r.writer, "%s: %d\n", color.YellowString("Errored"), s.Failed)
	} else {
		fmt.Fprintf(r.writer, "Errored: 0\n")
	}
	if s.Truncated > 0 {
		fmt.Fprintf(r.writer, "%s: %d\n", color.YellowString("Truncated"), s.Truncated)
	}
	if s.Retries > 0 {
		fmt.Fprintf(r.writer, "Retries: %d\n", s.Retries)
	}

	if s.Findings > 0 {
		fmt.Fprintf(r.writer, "%s: %d\n", color.RedString("Findings"), s.Findings)
	} else {
		fmt.Fprintf(r.writer, "Findings: 0\n")
	}
}

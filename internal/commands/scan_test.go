package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ppiankov/leakspectre/internal/report"
	"github.com/ppiankov/leakspectre/internal/scanner"
)

func TestScanFlagDefaults(t *testing.T) {
	if scanFlags.bucket != "" {
		t.Fatalf("expected empty default bucket, got %q", scanFlags.bucket)
	}
	if scanFlags.threshold != scanner.DefaultThreshold {
		t.Fatalf("expected default threshold %v, got %v", scanner.DefaultThreshold, scanFlags.threshold)
	}
	if scanFlags.minTokenLength != scanner.DefaultMinTokenLength {
		t.Fatalf("expected default min-length %d, got %d", scanner.DefaultMinTokenLength, scanFlags.minTokenLength)
	}
	if scanFlags.outputFormat != "text" {
		t.Fatalf("expected default format 'text', got %q", scanFlags.outputFormat)
	}
	if scanFlags.workers != 0 {
		t.Fatalf("expected default workers 0 (auto), got %d", scanFlags.workers)
	}
	if scanCmd.Flags().Lookup("format").DefValue != "text" {
		t.Fatalf("expected flag default format text, got %q", scanCmd.Flags().Lookup("format").DefValue)
	}
	if scanCmd.Flags().Lookup("bucket") == nil {
		t.Fatal("expected bucket flag to be registered")
	}
}

func TestScanSelectReporter(t *testing.T) {
	var buf bytes.Buffer

	reporter, err := selectReporter("json", &buf)
	if err != nil {
		t.Fatalf("expected no error for json, got %v", err)
	}
	if _, ok := reporter.(*report.JSONReporter); !ok {
		t.Fatalf("expected JSONReporter, got %T", reporter)
	}

	reporter, err = selectReporter("text", &buf)
	if err != nil {
		t.Fatalf("expected no error for text, got %v", err)
	}
	if _, ok := reporter.(*report.TextReporter); !ok {
		t.Fatalf("expected TextReporter, got %T", reporter)
	}

	reporter, err = selectReporter("sarif", &buf)
	if err != nil {
		t.Fatalf("expected no error for sarif, got %v", err)
	}
	if _, ok := reporter.(*report.SARIFReporter); !ok {
		t.Fatalf("expected SARIFReporter, got %T", reporter)
	}

	_, err = selectReporter("xml", &buf)
	if err == nil {
		t.Fatalf("expected error for unsupported format")
	}
	if !strings.Contains(err.Error(), "unsupported output format") {
		t.Fatalf("unexpected error message: %v", err)
	}
}

func TestCompileExcludes(t *testing.T) {
	excludes, err := compileExcludes(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if excludes != nil {
		t.Fatalf("expected nil for no patterns, got %d", len(excludes))
	}

	excludes, err = compileExcludes([]string{`^ghp_[A-Za-z0-9]{36}$`})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Built-in filters are retained alongside the user pattern.
	if len(excludes) != len(scanner.DefaultPolicy().ExcludePatterns)+1 {
		t.Fatalf("expected defaults plus one, got %d", len(excludes))
	}

	if _, err := compileExcludes([]string{"["}); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}

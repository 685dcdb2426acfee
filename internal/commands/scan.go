package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"time"

	"github.com/ppiankov/leakspectre/internal/baseline"
	"github.com/ppiankov/leakspectre/internal/engine"
	"github.com/ppiankov/leakspectre/internal/report"
	"github.com/ppiankov/leakspectre/internal/s3"
	"github.com/ppiankov/leakspectre/internal/scanner"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var scanFlags struct {
	bucket          string
	prefix          string
	awsProfile      string
	awsRegion       string
	threshold       float64
	minTokenLength  int
	maxObjectSize   int64
	workers         int
	rateLimit       float64
	blacklistExt    []string
	excludePatterns []string
	outputFormat    string
	outputFile      string
	failOnFindings  bool
	noProgress      bool
	timeout         time.Duration
	baselinePath    string
	updateBaseline  bool
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan an S3 bucket for high-entropy secrets",
	Long: `Lists the objects of an S3 bucket, fetches their content, and classifies
every extracted token by Shannon entropy. Tokens scoring above the threshold
and lines carrying private key markers are reported as potential leaks.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVarP(&scanFlags.bucket, "bucket", "b", "", "S3 bucket to scan (required)")
	scanCmd.Flags().StringVarP(&scanFlags.prefix, "prefix", "p", "", "Only scan objects under this key prefix")
	scanCmd.Flags().StringVar(&scanFlags.awsProfile, "aws-profile", "", "AWS profile to use")
	scanCmd.Flags().StringVar(&scanFlags.awsRegion, "aws-region", "", "AWS region (defaults to profile default)")
	scanCmd.Flags().Float64VarP(&scanFlags.threshold, "threshold", "t", scanner.DefaultThreshold, "Entropy threshold in bits; tokens scoring above it are flagged")
	scanCmd.Flags().IntVar(&scanFlags.minTokenLength, "min-length", scanner.DefaultMinTokenLength, "Minimum token length considered for classification")
	scanCmd.Flags().Int64Var(&scanFlags.maxObjectSize, "max-object-size", s3.DefaultMaxObjectSize, "Read at most this many bytes per object")
	scanCmd.Flags().IntVarP(&scanFlags.workers, "workers", "w", 0, "Concurrent object fetches (0 = 2x CPU count)")
	scanCmd.Flags().Float64Var(&scanFlags.rateLimit, "rate-limit", 0, "Max S3 requests per second (0 = unlimited)")
	scanCmd.Flags().StringSliceVar(&scanFlags.blacklistExt, "blacklist-ext", nil, "Additional file extensions to skip (comma-separated)")
	scanCmd.Flags().StringSliceVar(&scanFlags.excludePatterns, "exclude-pattern", nil, "Additional regexes; matching tokens are never flagged")
	scanCmd.Flags().StringVarP(&scanFlags.outputFormat, "format", "f", "text", "Output format: text, json, or sarif")
	scanCmd.Flags().StringVarP(&scanFlags.outputFile, "output", "o", "", "Output file (default: stdout)")
	scanCmd.Flags().BoolVar(&scanFlags.failOnFindings, "fail-on-findings", false, "Exit with error if potential secrets are found")
	scanCmd.Flags().BoolVar(&scanFlags.noProgress, "no-progress", false, "Disable progress indicators")
	scanCmd.Flags().DurationVar(&scanFlags.timeout, "timeout", 0, "Total operation timeout (e.g. 5m, 30s). 0 means no timeout")
	scanCmd.Flags().StringVar(&scanFlags.baselinePath, "baseline", "", "Path to a baseline file for diff comparison")
	scanCmd.Flags().BoolVar(&scanFlags.updateBaseline, "update-baseline", false, "Write current findings as the new baseline")
	_ = scanCmd.MarkFlagRequired("bucket")
}

func runScan(cmd *cobra.Command, args []string) error {
	// Apply config file defaults for flags not explicitly set
	applyConfigToScanFlags(cmd)

	ctx := context.Background()
	if scanFlags.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, scanFlags.timeout)
		defer cancel()
	}
	start := time.Now()

	// Check if we're running in a terminal (for progress indicators)
	isTTY := term.IsTerminal(int(os.Stderr.Fd()))
	showProgress := isTTY && !scanFlags.noProgress

	excludes, err := compileExcludes(scanFlags.excludePatterns)
	if err != nil {
		return err
	}

	// 1. Initialize S3 client
	printStatus("Initializing AWS S3 client...")
	s3Client, err := s3.NewClient(ctx, scanFlags.awsProfile, scanFlags.awsRegion)
	if err != nil {
		return enhanceError("S3 client initialization", err, scanFlags.workers)
	}
	if scanFlags.rateLimit > 0 {
		s3Client.SetRateLimit(scanFlags.rateLimit, int(scanFlags.rateLimit))
	}

	// 2. Verify the bucket is reachable before spinning up the pool
	printStatus("Checking bucket: %s", scanFlags.bucket)
	if err := s3Client.CheckBucket(ctx, scanFlags.bucket); err != nil {
		return enhanceError("bucket check", err, scanFlags.workers)
	}

	// 3. Wire the scan pipeline
	lister := s3.NewLister(s3Client, scanFlags.bucket, scanFlags.prefix)
	fetcher := s3.NewFetcher(s3Client, scanFlags.bucket, scanFlags.maxObjectSize)
	scheduler := engine.New(engine.Config{
		Workers: scanFlags.workers,
		Policy: scanner.Policy{
			Threshold:       scanFlags.threshold,
			MinTokenLength:  scanFlags.minTokenLength,
			ExcludePatterns: excludes,
		},
		Limits:    scanner.DefaultLimits(),
		Blacklist: scanner.NewBlacklist(scanFlags.blacklistExt),
	}, lister, fetcher)

	if showProgress {
		scheduler.SetProgressCallback(func(processed int, message string) {
			fmt.Fprintf(os.Stderr, "\r\033[K[%d] %s", processed, message)
		})
		defer fmt.Fprint(os.Stderr, "\r\033[K")
	}

	// 4. Run the scan
	printStatus("Scanning bucket %s...", scanFlags.bucket)
	result, runErr := scheduler.Run(ctx)
	aborted := false
	if runErr != nil {
		if errors.Is(runErr, engine.ErrAborted) {
			aborted = true
			slog.Warn("Scan aborted, reporting partial results")
		} else {
			return enhanceError("scan", runErr, scanFlags.workers)
		}
	}

	// 5. Generate report
	reportData := report.Data{
		Tool:      "leakspectre",
		Version:   GetVersion(),
		Timestamp: time.Now(),
		Config: report.Config{
			Bucket:     scanFlags.bucket,
			Prefix:     scanFlags.prefix,
			AWSProfile: scanFlags.awsProfile,
			AWSRegion:  s3Client.GetRegion(),
			Threshold:  scanFlags.threshold,
			Workers:    scanFlags.workers,
		},
		Result:  result,
		Aborted: aborted,
	}

	// Determine output writer
	writer := os.Stdout
	if scanFlags.outputFile != "" {
		f, err := os.Create(scanFlags.outputFile)
		if err != nil {
			return enhanceError("output file creation", err, scanFlags.workers)
		}
		defer func() { _ = f.Close() }()
		writer = f
	}

	reporter, err := selectReporter(scanFlags.outputFormat, writer)
	if err != nil {
		return err
	}
	if err := reporter.Generate(reportData); err != nil {
		return enhanceError("report generation", err, scanFlags.workers)
	}

	// Baseline comparison
	newFindings := result.Summary.Findings
	if scanFlags.baselinePath != "" {
		currentFindings := baseline.FlattenReport(reportData)
		baselineFindings, err := baseline.Load(scanFlags.baselinePath)
		if err != nil && !scanFlags.updateBaseline {
			return enhanceError("baseline load", err, scanFlags.workers)
		}
		diff := baseline.Diff(currentFindings, baselineFindings)
		newFindings = len(diff.New)
		slog.Info("Baseline comparison",
			slog.Int("new", len(diff.New)),
			slog.Int("resolved", len(diff.Resolved)),
			slog.Int("unchanged", len(diff.Unchanged)),
		)

		if scanFlags.updateBaseline {
			if err := baseline.Save(scanFlags.baselinePath, currentFindings); err != nil {
				return enhanceError("baseline write", err, scanFlags.workers)
			}
			slog.Info("Updated baseline", slog.String("path", scanFlags.baselinePath))
		}
	}

	slog.Info("Scan complete",
		slog.Int("objects", result.Summary.Objects),
		slog.Int("scanned", result.Summary.Scanned),
		slog.Int("findings", result.Summary.Findings),
		slog.Duration("duration", time.Since(start)),
	)

	if aborted {
		return engine.ErrAborted
	}
	if scanFlags.failOnFindings && newFindings > 0 {
		return fmt.Errorf("found %d potential secrets", newFindings)
	}
	return nil
}

// compileExcludes turns user-supplied regexes into classification exclusions,
// keeping the built-in hex and UUID filters.
func compileExcludes(patterns []string) ([]*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	excludes := scanner.DefaultPolicy().ExcludePatterns
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		excludes = append(excludes, re)
	}
	return excludes, nil
}

func applyConfigToScanFlags(cmd *cobra.Command) {
	if !cmd.Flags().Lookup("aws-region").Changed && cfg.Region != "" {
		scanFlags.awsRegion = cfg.Region
	}
	if !cmd.Flags().Lookup("aws-profile").Changed && cfg.Profile != "" {
		scanFlags.awsProfile = cfg.Profile
	}
	if !cmd.Flags().Lookup("format").Changed && cfg.Format != "" {
		scanFlags.outputFormat = cfg.Format
	}
	if !cmd.Flags().Lookup("threshold").Changed && cfg.Threshold > 0 {
		scanFlags.threshold = cfg.Threshold
	}
	if !cmd.Flags().Lookup("min-length").Changed && cfg.MinTokenLength > 0 {
		scanFlags.minTokenLength = cfg.MinTokenLength
	}
	if !cmd.Flags().Lookup("workers").Changed && cfg.Workers > 0 {
		scanFlags.workers = cfg.Workers
	}
	if !cmd.Flags().Lookup("max-object-size").Changed && cfg.MaxObjectSize > 0 {
		scanFlags.maxObjectSize = cfg.MaxObjectSize
	}
	if !cmd.Flags().Lookup("rate-limit").Changed && cfg.RateLimit > 0 {
		scanFlags.rateLimit = cfg.RateLimit
	}
	if !cmd.Flags().Lookup("blacklist-ext").Changed && len(cfg.BlacklistExt) > 0 {
		scanFlags.blacklistExt = cfg.BlacklistExt
	}
	if !cmd.Flags().Lookup("exclude-pattern").Changed && len(cfg.ExcludePatterns) > 0 {
		scanFlags.excludePatterns = cfg.ExcludePatterns
	}
	if !cmd.Flags().Lookup("timeout").Changed {
		if d := cfg.TimeoutDuration(); d > 0 {
			scanFlags.timeout = d
		}
	}
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/ppiankov/leakspectre/internal/logging"
	"github.com/ppiankov/leakspectre/internal/scanner"
)

// ErrAborted marks a scan stopped by cancellation rather than completing.
// The partial result accompanying it is still valid.
var ErrAborted = errors.New("scan aborted")

// Config is the immutable per-scan configuration. It is constructed once at
// startup and passed explicitly; nothing in the engine reads ambient state.
type Config struct {
	Workers   int
	Policy    scanner.Policy
	Limits    scanner.Limits
	Blacklist *scanner.Blacklist
}

// DefaultWorkers is the worker-pool size when none is configured.
func DefaultWorkers() int {
	return runtime.NumCPU() * 2
}

// Scheduler drives a scan: it pulls object references from the lister,
// dispatches fetch+classify work to a bounded worker pool, and funnels every
// outcome through a single aggregation goroutine.
type Scheduler struct {
	cfg        Config
	lister     Lister
	fetcher    ContentFetcher
	classifier *scanner.Classifier
	blacklist  *scanner.Blacklist
	progress   ProgressCallback
}

// New creates a scheduler. Zero-valued config fields fall back to defaults.
func New(cfg Config, lister Lister, fetcher ContentFetcher) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers()
	}
	blacklist := cfg.Blacklist
	if blacklist == nil {
		blacklist = scanner.NewBlacklist(nil)
	}
	return &Scheduler{
		cfg:        cfg,
		lister:     lister,
		fetcher:    fetcher,
		classifier: scanner.NewClassifier(cfg.Policy),
		blacklist:  blacklist,
	}
}

// SetProgressCallback sets the progress callback function.
func (s *Scheduler) SetProgressCallback(callback ProgressCallback) {
	s.progress = callback
}

// Run executes the scan to completion or cancellation. On cancellation the
// already-aggregated partial result is returned together with ErrAborted; a
// lister failure likewise returns whatever completed before it.
func (s *Scheduler) Run(ctx context.Context) (*Result, error) {
	// The task channel's capacity is the pool size: when every worker is
	// busy and the buffer is full, the producer blocks. That is the only
	// queue between the lister and the workers, which bounds memory against
	// buckets with millions of objects.
	tasks := make(chan scanner.ObjectRef, s.cfg.Workers)
	outcomes := make(chan Outcome)

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ref := range tasks {
				outcomes <- s.scanObject(ctx, ref)
			}
		}()
	}

	agg := newAggregator()
	aggDone := make(chan struct{})
	go func() {
		defer close(aggDone)
		processed := 0
		for o := range outcomes {
			agg.add(o)
			processed++
			if s.progress != nil {
				s.progress(processed, fmt.Sprintf("%s %s", o.Status, o.Ref.Key))
			}
		}
	}()

	var listErr error
	aborted := false

produce:
	for {
		ref, ok, err := s.lister.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				aborted = true
			} else {
				listErr = err
			}
			break
		}
		if !ok {
			break
		}

		// Blacklisted objects never reach a worker or the network.
		if s.blacklist.Skip(ref) {
			select {
			case outcomes <- Outcome{Ref: ref, Status: StatusSkipped}:
			case <-ctx.Done():
				aborted = true
				break produce
			}
			continue
		}

		select {
		case tasks <- ref:
		case <-ctx.Done():
			aborted = true
			break produce
		}
	}

	// Let in-flight tasks drain, then stop aggregation.
	close(tasks)
	wg.Wait()
	close(outcomes)
	<-aggDone

	if ctx.Err() != nil {
		aborted = true
	}

	agg.summary.Retries = s.fetcher.Retries()
	result := agg.result()

	if aborted {
		return result, ErrAborted
	}
	if listErr != nil {
		return result, fmt.Errorf("listing objects: %w", listErr)
	}
	return result, nil
}

// scanObject runs the fetch -> tokenize -> classify pipeline for one object.
func (s *Scheduler) scanObject(ctx context.Context, ref scanner.ObjectRef) Outcome {
	fetched, err := s.fetcher.Fetch(ctx, ref)
	if err != nil {
		slog.Debug("Fetch failed", slog.String("key", ref.Key), "error", err)
		return Outcome{Ref: ref, Status: StatusFailed, Err: err}
	}

	var findings []scanner.Finding
	tokenizer := scanner.NewTokenizer(ref, fetched.Data, s.cfg.Limits)
	for {
		tok, ok := tokenizer.Next()
		if !ok {
			break
		}
		if f, ok := s.classifier.Evaluate(tok); ok {
			slog.Debug("Potential secret",
				slog.String("key", ref.Key),
				slog.Int("line", f.Line),
				logging.Token(f.Token),
			)
			findings = append(findings, f)
		}
	}

	return Outcome{
		Ref:       ref,
		Status:    StatusScanned,
		Findings:  findings,
		Truncated: fetched.Truncated,
	}
}

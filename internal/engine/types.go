package engine

import (
	"context"

	"github.com/ppiankov/leakspectre/internal/s3"
	"github.com/ppiankov/leakspectre/internal/scanner"
)

// Status is the terminal state of one object-scan task.
type Status string

const (
	// StatusScanned means the object was fetched, tokenized and classified.
	StatusScanned Status = "scanned"
	// StatusSkipped means the blacklist excluded the object before fetch.
	StatusSkipped Status = "skipped"
	// StatusFailed means fetching failed after retry exhaustion or abort.
	StatusFailed Status = "failed"
)

// Outcome is the result of one object-scan task. Exactly one Outcome is
// produced per listed object.
type Outcome struct {
	Ref       scanner.ObjectRef
	Status    Status
	Findings  []scanner.Finding
	Truncated bool
	Err       error
}

// Lister enumerates object references. ok=false with nil error marks normal
// exhaustion. Implemented by s3.Lister.
type Lister interface {
	Next(ctx context.Context) (scanner.ObjectRef, bool, error)
}

// ContentFetcher retrieves object bytes and tracks transient-failure
// retries. Implemented by s3.Fetcher.
type ContentFetcher interface {
	Fetch(ctx context.Context, ref scanner.ObjectRef) (s3.FetchResult, error)
	Retries() int64
}

// ProgressCallback is invoked as objects finish, with a running count and a
// short message.
type ProgressCallback func(processed int, message string)

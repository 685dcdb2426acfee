package s3

import (
	"strings"

	"github.com/ppiankov/leakspectre/internal/scanner"
)

// ErrorKind classifies storage failures so callers can decide between
// retrying, skipping and aborting without string-matching at every call site.
type ErrorKind int

const (
	// ErrorKindTransient covers throttling, timeouts and 5xx responses.
	ErrorKindTransient ErrorKind = iota
	// ErrorKindNotFound covers missing buckets and keys.
	ErrorKindNotFound
	// ErrorKindForbidden covers permission failures.
	ErrorKindForbidden
	// ErrorKindOther is everything else; treated as permanent.
	ErrorKindOther
)

// FetchResult holds one object's retrieved content. Truncated marks objects
// larger than the fetch cap whose tail was not downloaded.
type FetchResult struct {
	Ref       scanner.ObjectRef
	Data      []byte
	Truncated bool
}

var transientMarkers = []string{
	"RequestLimitExceeded",
	"ServiceUnavailable",
	"SlowDown",
	"RequestTimeout",
	"TooManyRequests",
	"InternalError",
	"connection reset",
	"503",
	"429",
}

// Classify maps an error to its kind using the response markers AWS returns.
func Classify(err error) ErrorKind {
	if err == nil {
		return ErrorKindOther
	}
	msg := err.Error()

	switch {
	case strings.Contains(msg, "NoSuchKey"),
		strings.Contains(msg, "NoSuchBucket"),
		strings.Contains(msg, "NotFound"),
		strings.Contains(msg, "404"):
		return ErrorKindNotFound
	case strings.Contains(msg, "AccessDenied"),
		strings.Contains(msg, "Access Denied"),
		strings.Contains(msg, "Forbidden"),
		strings.Contains(msg, "403"):
		return ErrorKindForbidden
	}

	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return ErrorKindTransient
		}
	}
	return ErrorKindOther
}

// IsRetryable reports whether an operation that failed with err is worth
// repeating.
func IsRetryable(err error) bool {
	return err != nil && Classify(err) == ErrorKindTransient
}

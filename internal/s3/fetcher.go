package s3

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ppiankov/leakspectre/internal/scanner"
)

// DefaultMaxObjectSize caps how many bytes of a single object are fetched.
const DefaultMaxObjectSize int64 = 10 * 1024 * 1024

// Fetcher retrieves object content, capped at a maximum size. It is safe for
// concurrent use; all the network nondeterminism of a scan is confined here
// and in the Lister.
type Fetcher struct {
	client  *Client
	bucket  string
	maxSize int64

	retries atomic.Int64
}

// NewFetcher creates a fetcher for one bucket. maxSize <= 0 selects the
// default cap.
func NewFetcher(client *Client, bucket string, maxSize int64) *Fetcher {
	if maxSize <= 0 {
		maxSize = DefaultMaxObjectSize
	}
	return &Fetcher{client: client, bucket: bucket, maxSize: maxSize}
}

// Retries returns how many transient-failure retries fetches have performed
// so far.
func (f *Fetcher) Retries() int64 {
	return f.retries.Load()
}

// Fetch downloads up to maxSize bytes of ref. Objects over the cap come back
// with Truncated set; scanning a capped prefix is an accepted tradeoff and
// is surfaced, not hidden. Transient failures are retried with exponential
// backoff before the error is returned.
func (f *Fetcher) Fetch(ctx context.Context, ref scanner.ObjectRef) (FetchResult, error) {
	if ref.Size == 0 {
		return FetchResult{Ref: ref}, nil
	}

	input := &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(ref.Key),
	}
	// A ranged GET on a small object would be harmless, but a range past the
	// end of one is a 416, so the header is only set when the cap bites.
	if ref.Size > f.maxSize {
		input.Range = aws.String(fmt.Sprintf("bytes=0-%d", f.maxSize-1))
	}

	var data []byte
	err := f.client.WithRetry(ctx, func() error {
		out, err := f.client.s3Client.GetObject(ctx, input)
		if err != nil {
			return err
		}
		defer out.Body.Close()

		// The range header already bounds the response; the LimitReader is a
		// second bound against servers that ignore it.
		data, err = io.ReadAll(io.LimitReader(out.Body, f.maxSize))
		return err
	}, func(error) {
		f.retries.Add(1)
	})
	if err != nil {
		return FetchResult{}, err
	}

	return FetchResult{
		Ref:       ref,
		Data:      data,
		Truncated: ref.Size > int64(len(data)),
	}, nil
}

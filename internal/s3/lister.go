package s3

import (
	"context"
	"mime"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ppiankov/leakspectre/internal/scanner"
)

const defaultPageSize = 1000

// Lister lazily enumerates a bucket (optionally under a prefix) one
// ListObjectsV2 page at a time. It never assumes a total object count, so
// arbitrarily large buckets stream through a single page's worth of memory.
// A Lister is valid for one scan invocation; its cursor is not persisted.
type Lister struct {
	client *Client
	bucket string
	prefix string

	buf       []scanner.ObjectRef
	nextToken *string
	done      bool
}

// NewLister creates a lister over bucket/prefix.
func NewLister(client *Client, bucket, prefix string) *Lister {
	return &Lister{client: client, bucket: bucket, prefix: prefix}
}

// Next returns the next object reference. ok=false with a nil error marks
// normal exhaustion; a non-nil error means a page could not be fetched even
// after retries and the enumeration cannot continue.
func (l *Lister) Next(ctx context.Context) (scanner.ObjectRef, bool, error) {
	for len(l.buf) == 0 {
		if l.done {
			return scanner.ObjectRef{}, false, nil
		}
		if err := l.fetchPage(ctx); err != nil {
			return scanner.ObjectRef{}, false, err
		}
	}

	ref := l.buf[0]
	l.buf = l.buf[1:]
	return ref, true, nil
}

func (l *Lister) fetchPage(ctx context.Context) error {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(l.bucket),
		MaxKeys: aws.Int32(defaultPageSize),
	}
	if l.prefix != "" {
		input.Prefix = aws.String(l.prefix)
	}
	if l.nextToken != nil {
		input.ContinuationToken = l.nextToken
	}

	var page *s3.ListObjectsV2Output
	err := l.client.WithRetry(ctx, func() error {
		var err error
		page, err = l.client.s3Client.ListObjectsV2(ctx, input)
		return err
	}, nil)
	if err != nil {
		l.done = true
		return err
	}

	for _, obj := range page.Contents {
		if obj.Key == nil {
			continue
		}
		ref := scanner.ObjectRef{
			Key:         *obj.Key,
			ContentType: mime.TypeByExtension(path.Ext(*obj.Key)),
		}
		if obj.Size != nil {
			ref.Size = *obj.Size
		}
		if obj.ETag != nil {
			ref.ETag = *obj.ETag
		}
		l.buf = append(l.buf, ref)
	}

	if page.IsTruncated != nil && *page.IsTruncated && page.NextContinuationToken != nil {
		l.nextToken = page.NextContinuationToken
	} else {
		l.done = true
	}
	return nil
}

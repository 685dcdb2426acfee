package s3

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// RetryPolicy bounds retries of transient storage failures.
type RetryPolicy struct {
	MaxAttempts int           // total attempts, including the first
	BackoffBase time.Duration // initial backoff interval
	MaxInterval time.Duration // backoff ceiling
}

// DefaultRetryPolicy mirrors the AWS guidance of a few attempts with a short
// initial delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BackoffBase: 1 * time.Second, MaxInterval: 30 * time.Second}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.BackoffBase <= 0 {
		p.BackoffBase = def.BackoffBase
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = def.MaxInterval
	}
	return p
}

// Client wraps the AWS S3 client with rate limiting and transient-error
// retries. All bucket operations of this tool go through it.
type Client struct {
	s3Client *s3.Client
	config   aws.Config
	retry    RetryPolicy
	limiter  *rate.Limiter
}

// NewClient creates a client from the ambient AWS configuration.
func NewClient(ctx context.Context, profile, region string) (*Client, error) {
	opts := []func(*config.LoadOptions) error{}

	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &Client{
		s3Client: s3.NewFromConfig(cfg),
		config:   cfg,
		retry:    DefaultRetryPolicy(),
	}, nil
}

// GetRegion returns the configured region.
func (c *Client) GetRegion() string {
	return c.config.Region
}

// SetRetryPolicy overrides the default retry behavior.
func (c *Client) SetRetryPolicy(policy RetryPolicy) {
	c.retry = policy.withDefaults()
}

// SetRateLimit caps outgoing API requests at rps with the given burst.
// A non-positive rps disables limiting.
func (c *Client) SetRateLimit(rps float64, burst int) {
	if rps <= 0 {
		c.limiter = nil
		return
	}
	if burst <= 0 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// wait blocks until the rate limiter admits one request.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// WithRetry runs operation, retrying transient failures with exponential
// backoff up to the configured attempt limit. Permanent failures return
// immediately. notify, when non-nil, is invoked once per retry.
func (c *Client) WithRetry(ctx context.Context, operation func() error, notify func(error)) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retry.BackoffBase
	bo.MaxInterval = c.retry.MaxInterval

	attempts := uint64(c.retry.MaxAttempts)
	if attempts == 0 {
		attempts = 1
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, attempts-1), ctx)

	wrapped := func() error {
		if err := c.wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		err := operation()
		if err != nil && !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	onRetry := func(err error, _ time.Duration) {
		if notify != nil {
			notify(err)
		}
	}

	if err := backoff.RetryNotify(wrapped, policy, onRetry); err != nil {
		return err
	}
	return nil
}

// CheckBucket verifies the bucket exists and is readable. Failures here are
// configuration errors: the scan must not start.
func (c *Client) CheckBucket(ctx context.Context, bucket string) error {
	err := c.WithRetry(ctx, func() error {
		_, err := c.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{
			Bucket: aws.String(bucket),
		})
		return err
	}, nil)
	if err == nil {
		return nil
	}

	switch Classify(err) {
	case ErrorKindNotFound:
		return fmt.Errorf("bucket %s does not exist or is in a different region: %w", bucket, err)
	case ErrorKindForbidden:
		return fmt.Errorf("no permission to access bucket %s: %w", bucket, err)
	default:
		return fmt.Errorf("bucket %s is not reachable: %w", bucket, err)
	}
}

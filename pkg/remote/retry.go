package remote

import (
	"context"
	"io"
	"time"

	log "github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/sidkik/pishow/pkg/errors"
)

// DefaultBackoff is the backoff used between attempts of a remote call that
// failed with a network error.
var DefaultBackoff = wait.Backoff{
	Duration: 500 * time.Millisecond,
	Factor:   2,
	Jitter:   0.1,
	Steps:    5,
	Cap:      30 * time.Second,
}

type retryingClient struct {
	client  Client
	backoff wait.Backoff
}

// WithRetries wraps `client` so that calls that fail because of a
// NetworkError are retried with exponential backoff. Once the attempts are
// exhausted, the last NetworkError is returned. Other errors are returned
// immediately.
func WithRetries(client Client, backoff wait.Backoff) Client {
	return retryingClient{client, backoff}
}

func (c retryingClient) ListFiles(ctx context.Context, dir string) (files []string, err error) {
	err = c.retry(ctx, "ListFiles", func() error {
		files, err = c.client.ListFiles(ctx, dir)
		return err
	})
	return files, err
}

func (c retryingClient) GetFile(ctx context.Context, path string) (r io.ReadCloser, err error) {
	err = c.retry(ctx, "GetFile", func() error {
		r, err = c.client.GetFile(ctx, path)
		return err
	})
	return r, err
}

func (c retryingClient) GetMetadata(ctx context.Context, path string) (md Metadata, err error) {
	err = c.retry(ctx, "GetMetadata", func() error {
		md, err = c.client.GetMetadata(ctx, path)
		return err
	})
	return md, err
}

// Poll isn't retried. A failed poll just means that the run loop checks the
// remote sooner than it otherwise would have.
func (c retryingClient) Poll(ctx context.Context, dir string) (bool, error) {
	return c.client.Poll(ctx, dir)
}

func (c retryingClient) retry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	attempt := 0
	waitErr := wait.ExponentialBackoffWithContext(ctx, c.backoff, func(ctx context.Context) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}

		attempt++
		lastErr = fn()
		if lastErr == nil {
			return true, nil
		}
		if !errors.IsNetwork(lastErr) {
			return false, lastErr
		}

		log.WithError(lastErr).WithFields(log.Fields{
			"op":      op,
			"attempt": attempt,
		}).Debug("Remote call failed. Retrying..")
		return false, nil
	})

	switch {
	case waitErr == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case lastErr != nil:
		// Either a non-retryable error, or the backoff was exhausted.
		return lastErr
	default:
		return waitErr
	}
}

// Package retry implements exponential backoff with jitter for the
// embedder's gateway transport, never for the pipeline itself. The pipeline
// reports errors and re-issues the same DataRequest (same continuation) the
// next time a buffer goes empty; whether to retry a failed fetch against the
// gateway is entirely the embedder's call. This package is what the example
// embedder (internal/mockgateway) uses to make that call.
package retry

import (
	"math/rand"
	"time"

	"github.com/cosmosquery/crosspartition/internal/errors"
)

// Controller implements exponential backoff with jitter.
type Controller struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	maxRetries   int
}

// New creates a Controller with default settings: initial delay 10ms, max
// delay 1s, max 5 retries.
func New() *Controller {
	return &Controller{
		initialDelay: 10 * time.Millisecond,
		maxDelay:     1 * time.Second,
		maxRetries:   5,
	}
}

// Do executes fn, retrying on transient failures per classifier's verdict.
func (c *Controller) Do(fn func() error, classifier *errors.Classifier) error {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		category := classifier.Classify(err)

		if !classifier.ShouldRetry(category) {
			return err
		}
		if attempt >= c.maxRetries {
			return err
		}

		time.Sleep(c.delay(attempt))
	}

	return lastErr
}

func (c *Controller) delay(attempt int) time.Duration {
	delay := c.initialDelay * time.Duration(1<<uint(attempt))
	if delay > c.maxDelay {
		delay = c.maxDelay
	}

	jitter := time.Duration(float64(delay) * 0.25 * (rand.Float64()*2 - 1))
	delay += jitter

	if delay < 0 {
		delay = c.initialDelay
	}
	return delay
}

package errors

import (
	stderrors "errors"
	"syscall"
)

// Category buckets an error for the embedder's retry policy. The pipeline
// itself never retries — that's the embedder's responsibility. Classifier
// exists so embedder-side transport code (see internal/retry) can decide
// whether a failed gateway fetch is worth retrying.
type Category int

const (
	CategoryTransient  Category = iota // network hiccup, worth a backoff retry
	CategoryPermanent                  // will never succeed by retrying
	CategoryCritical                   // system-level failure, alert rather than retry
	CategoryValidation                 // malformed data, no retry
)

// Classifier categorizes errors surfaced while servicing DataRequests.
type Classifier struct{}

func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify inspects err and returns its retry category. Pipeline errors
// (*Error) are always Permanent or Validation — the engine already decided
// they aren't retryable by construction. Transport-level errors (syscall
// errnos bubbling up through the embedder's HTTP/gRPC client) are classified
// by errno.
func (c *Classifier) Classify(err error) Category {
	if err == nil {
		return CategoryPermanent
	}

	var sysErr syscall.Errno
	if stderrors.As(err, &sysErr) {
		switch sysErr {
		case syscall.EAGAIN, syscall.ETIMEDOUT, syscall.ECONNRESET:
			return CategoryTransient
		case syscall.EINVAL, syscall.ENOENT:
			return CategoryPermanent
		case syscall.EIO, syscall.ENOSPC:
			return CategoryCritical
		}
	}

	if code, ok := CodeOf(err); ok {
		switch code {
		case DeserializationError, InvalidGatewayResponse:
			return CategoryValidation
		default:
			return CategoryPermanent
		}
	}

	return CategoryPermanent
}

// ShouldRetry reports whether category warrants a retry.
func (c *Classifier) ShouldRetry(category Category) bool {
	return category == CategoryTransient
}

// IsCritical reports whether category requires immediate operator attention.
func (c *Classifier) IsCritical(category Category) bool {
	return category == CategoryCritical
}

package paging

import (
	"errors"
	"fmt"
)

// ErrInvalidState means the loaded pages disagree with the mediator's
// bookkeeping. It is a defect, not a transient condition, and is never
// retried.
var ErrInvalidState = errors.New("invalid paging state")

// ErrClosed is returned by loads on a pager that has been closed.
var ErrClosed = errors.New("pager closed")

// FetchError is a retryable failure to fetch a page from the network.
type FetchError struct {
	Page int
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch page %d: %v", e.Page, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether a failed load may succeed if run again.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrInvalidState) && !errors.Is(err, ErrClosed)
}

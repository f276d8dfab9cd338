package watcher

import (
	"errors"
	"fmt"
)

// ErrTooManyFailures is returned by Run once MaxConsecutiveFailures cycles in
// a row failed to fetch.
var ErrTooManyFailures = errors.New("too many consecutive fetch failures")

// FetchError wraps a scrape failure for one cycle.
type FetchError struct {
	Board string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch board %s: %v", e.Board, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// FetchInvariantError reports a batch whose size differs from the requested count.
type FetchInvariantError struct {
	Board string
	Want  int
	Got   int
}

func (e *FetchInvariantError) Error() string {
	return fmt.Sprintf("board %s returned %d items, want %d", e.Board, e.Got, e.Want)
}

// Package fetcher retrieves disclosure documents over HTTP.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Fetcher defines the interface for retrieving remote documents.
type Fetcher interface {
	// Fetch returns the document body decoded to UTF-8 text.
	Fetch(ctx context.Context, url string) (string, error)
}

// FetchError reports a document that could not be retrieved. Callers treat
// any FetchError as "nothing to extract" and move on.
type FetchError struct {
	URL        string
	StatusCode int  // 0 when no response was received
	Timeout    bool // the request or its retries ran out of time
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.Err == nil && e.Timeout:
		return fmt.Sprintf("fetch %s: timeout: status %d", e.URL, e.StatusCode)
	case e.Err == nil:
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	case e.Timeout:
		return fmt.Sprintf("fetch %s: timeout: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a FetchError caused by a timeout.
func IsTimeout(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Timeout
}

func newFetchError(rawURL string, status int, err error) *FetchError {
	return &FetchError{URL: rawURL, StatusCode: status, Timeout: isTimeout(err), Err: err}
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

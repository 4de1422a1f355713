package client

import (
	"fmt"
	"net"
	"net/url"

	"github.com/pkg/errors"
)

// ConnectionError means the endpoint could not be reached at all: DNS
// failure, refused connection, TLS failure, or a connect timeout
type ConnectionError struct {
	URL   string
	Cause error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("Connection error for %s: %s", e.URL, e.Cause)
}

// TimeoutError means the endpoint was reached but didn't answer within the
// read timeout
type TimeoutError struct {
	URL   string
	Cause error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("Read timed out for %s: %s", e.URL, e.Cause)
}

// IsConnectionError reports whether err is a ConnectionError
func IsConnectionError(err error) bool {
	_, ok := errors.Cause(err).(*ConnectionError)
	return ok
}

// IsTimeout reports whether err is a TimeoutError
func IsTimeout(err error) bool {
	_, ok := errors.Cause(err).(*TimeoutError)
	return ok
}

const tlsHandshakeTimeoutMessage = "net/http: TLS handshake timeout"

// classifyCallError splits transport failures into the two recoverable
// kinds callers handle differently. Failures during dial or TLS handshake
// are connection errors even when they are timeouts: the endpoint was
// never reached, so only failures after connecting count as read timeouts.
func classifyCallError(callURL string, err error) error {
	cause := err
	if urlErr, ok := cause.(*url.Error); ok {
		cause = urlErr.Err
	}
	if opErr, ok := cause.(*net.OpError); ok && opErr.Op == "dial" {
		return &ConnectionError{URL: callURL, Cause: err}
	}
	if cause.Error() == tlsHandshakeTimeoutMessage {
		return &ConnectionError{URL: callURL, Cause: err}
	}
	if netErr, ok := cause.(net.Error); ok && netErr.Timeout() {
		return &TimeoutError{URL: callURL, Cause: err}
	}
	return &ConnectionError{URL: callURL, Cause: err}
}

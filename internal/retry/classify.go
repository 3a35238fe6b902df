package retry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"syscall"
)

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// IsTransient reports whether err is expected to resolve on retry.
//
// Status-carrying errors are transient for 5xx and 429. Connection resets,
// timeouts and DNS failures are transient; other socket errno values are not.
// Caller cancellation is never retried. Anything unclassifiable is transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if status, ok := StatusCode(err); ok {
		return status >= http.StatusInternalServerError || status == http.StatusTooManyRequests
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ECONNRESET || errno == syscall.ETIMEDOUT
	}
	return true
}

// StatusCode extracts the upstream HTTP status carried by err, if any.
func StatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

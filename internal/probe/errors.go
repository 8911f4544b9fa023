package probe

import (
	"errors"
	"fmt"
)

// ErrDeadline reports that the adapter's own time limit expired.
var ErrDeadline = errors.New("probe deadline exceeded")

// ProxyError reports a failure to reach or use the vendor's proxy.
type ProxyError struct {
	Proxy string
	Err   error
}

func (e *ProxyError) Error() string {
	return fmt.Sprintf("proxy %s: %v", e.Proxy, e.Err)
}

func (e *ProxyError) Unwrap() error { return e.Err }

// NetworkError reports a transport failure on the path to the target.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPStatusError reports an error status from the target.
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("http status %d", e.StatusCode)
}

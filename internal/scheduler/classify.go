package scheduler

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strconv"

	"github.com/okian/pathbench/internal/probe"
)

// Failure reasons of probe errors.
const (
	ReasonProxyConn   = "proxy-conn-failed"
	ReasonProxyTunnel = "proxy-tunnel-failed"
	ReasonTimeout     = "timeout"
	ReasonNetwork     = "network-error"
	ReasonHTTP4xx     = "http-4xx"
	ReasonHTTP5xx     = "http-5xx"
	ReasonError       = "error"
	ReasonBlocked     = "blocked"
	ReasonNoResults   = "no-results"
)

//nolint:gochecknoglobals // compiled once
var (
	tunnelPattern  = regexp.MustCompile(`(?i)ERR_TUNNEL_CONNECTION_FAILED|tunnel connection failed|proxy CONNECT .*(aborted|failed)`)
	proxyPattern   = regexp.MustCompile(`(?i)ERR_PROXY_CONNECTION_FAILED|proxyconnect|proxy (connection|connect) (failed|refused)|ERR_PROXY_AUTH|407 Proxy Authentication`)
	timeoutPattern = regexp.MustCompile(`(?i)timeout|timed out|deadline exceeded`)
	networkPattern = regexp.MustCompile(`(?i)ERR_NAME_NOT_RESOLVED|ERR_CONNECTION_(REFUSED|RESET|CLOSED|TIMED_OUT)|ERR_INTERNET_DISCONNECTED|ERR_NETWORK_CHANGED|ERR_ADDRESS_UNREACHABLE|connection (refused|reset)|no such host|network is unreachable|ECONNREFUSED|ECONNRESET|ENOTFOUND|EAI_AGAIN|broken pipe`)
	httpPattern    = regexp.MustCompile(`(?i)\bhttp (?:status )?([45])\d\d\b`)
)

// Classification is how a probe error is recorded.
type Classification struct {
	Reason  string
	Blocked bool
}

// rule matches an error; the first matching rule wins.
type rule struct {
	reason string
	match  func(err error, text string) (blocked, ok bool)
}

var rules = []rule{ //nolint:gochecknoglobals // immutable rule table
	{ReasonProxyTunnel, func(_ error, text string) (bool, bool) {
		return false, tunnelPattern.MatchString(text)
	}},
	{ReasonProxyConn, func(err error, text string) (bool, bool) {
		var pe *probe.ProxyError
		return false, errors.As(err, &pe) || proxyPattern.MatchString(text)
	}},
	{ReasonTimeout, func(err error, text string) (bool, bool) {
		var ne net.Error
		timedOut := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, probe.ErrDeadline) ||
			(errors.As(err, &ne) && ne.Timeout())
		return false, timedOut || timeoutPattern.MatchString(text)
	}},
	{ReasonNetwork, func(err error, text string) (bool, bool) {
		var ne *probe.NetworkError
		var oe *net.OpError
		var de *net.DNSError
		return false, errors.As(err, &ne) || errors.As(err, &oe) || errors.As(err, &de) || networkPattern.MatchString(text)
	}},
	{ReasonHTTP4xx, func(err error, text string) (bool, bool) {
		return true, httpClass(err, text) == '4'
	}},
	{ReasonHTTP5xx, func(err error, text string) (bool, bool) {
		return true, httpClass(err, text) == '5'
	}},
}

func httpClass(err error, text string) byte {
	var he *probe.HTTPStatusError
	if errors.As(err, &he) {
		if code := strconv.Itoa(he.StatusCode); len(code) == 3 {
			return code[0]
		}
		return 0
	}
	if m := httpPattern.FindStringSubmatch(text); m != nil {
		return m[1][0]
	}
	return 0
}

// Classify maps a probe error to a failure reason. Errors no rule knows are
// recorded as ReasonError.
func Classify(err error) Classification {
	text := err.Error()
	for _, r := range rules {
		if blocked, ok := r.match(err, text); ok {
			return Classification{Reason: r.reason, Blocked: blocked}
		}
	}
	return Classification{Reason: ReasonError}
}

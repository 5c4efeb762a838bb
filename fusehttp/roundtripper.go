// Package fusehttp integrates breakers with net/http clients and servers.
//
// RoundTripper guards outbound requests made through an http.Client, and
// Middleware guards inbound requests served by an http.Handler. Both treat
// transport errors and 5xx statuses as failures.
package fusehttp

import (
	"context"
	"errors"
	"net/http"

	"github.com/gravitational/trace"

	"github.com/switchgear/fuse"
)

// errServerStatus marks a response whose status counted as a failure. The
// response itself still flows back to the caller.
var errServerStatus = errors.New("server status counted as failure")

// RoundTripper wraps an http.RoundTripper with a Breaker.
type RoundTripper struct {
	next http.RoundTripper
	b    *fuse.Breaker
}

// NewRoundTripper returns a RoundTripper guarding next with b. A nil next
// uses http.DefaultTransport.
func NewRoundTripper(b *fuse.Breaker, next http.RoundTripper) *RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &RoundTripper{next: next, b: b}
}

// RoundTrip forwards the request if the breaker admits it. Transport errors
// and 5xx statuses count as failures; a 5xx response is still returned to
// the caller with a nil error. Requests that outlive the breaker's call
// timeout fail with ErrTimeout, and the request context is cancelled so the
// transport unwinds the connection.
func (t *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return roundTrip(t.b, t.next, req)
}

// HostRoundTripper guards each destination host with its own breaker drawn
// from a Registry, so one unhealthy host does not reject calls to the rest.
type HostRoundTripper struct {
	next http.RoundTripper
	reg  *fuse.Registry
}

// NewHostRoundTripper returns a HostRoundTripper drawing per-host breakers
// from reg. A nil next uses http.DefaultTransport.
func NewHostRoundTripper(reg *fuse.Registry, next http.RoundTripper) *HostRoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &HostRoundTripper{next: next, reg: reg}
}

// RoundTrip forwards the request through the breaker registered for the
// request's host, creating it on first use. Otherwise identical to
// RoundTripper.RoundTrip.
func (t *HostRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	b, err := t.reg.Get(req.URL.Host)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return roundTrip(b, t.next, req)
}

func roundTrip(b *fuse.Breaker, next http.RoundTripper, req *http.Request) (*http.Response, error) {
	var resp *http.Response
	err := b.Do(req.Context(), func(ctx context.Context) error {
		r, err := next.RoundTrip(req.WithContext(ctx))
		if err != nil {
			return trace.Wrap(err)
		}
		resp = r
		if r.StatusCode >= http.StatusInternalServerError {
			return errServerStatus
		}
		return nil
	})
	// resp is read only on outcomes that prove the exchange completed; an
	// abandoned exchange may still be writing it.
	switch {
	case err == nil, errors.Is(err, errServerStatus):
		return resp, nil
	default:
		return nil, err
	}
}

package fusehttp

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/switchgear/fuse"
)

// Middleware returns middleware that guards an http.Handler with b.
//
// The inner handler's response is buffered and replayed only when the
// handler finishes in time, so a handler abandoned at the call timeout never
// writes a partial response. Rejected requests receive 503 Service
// Unavailable, timed out requests 504 Gateway Timeout. Responses with a 5xx
// status count as failures but are served unchanged. Handler panics count as
// failures and then propagate to the server's own recovery.
//
// The buffered writer does not support Flusher or Hijacker, so streaming
// handlers should not run behind this middleware.
func Middleware(b *fuse.Breaker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &bufferedResponse{header: make(http.Header)}
			err := b.Do(r.Context(), func(ctx context.Context) error {
				next.ServeHTTP(rec, r.WithContext(ctx))
				if rec.status >= http.StatusInternalServerError {
					return errServerStatus
				}
				return nil
			})
			// The buffer is replayed only on outcomes that prove the handler
			// finished; an abandoned handler may still be writing it.
			switch {
			case err == nil, errors.Is(err, errServerStatus):
				rec.replay(w)
			case fuse.IsOpen(err), fuse.IsStopped(err):
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			case fuse.IsTimeout(err):
				http.Error(w, "request timed out", http.StatusGatewayTimeout)
			default:
				// The request context is gone; there is no one to answer.
			}
		})
	}
}

// bufferedResponse captures a handler's response so it can be replayed after
// the breaker's verdict.
type bufferedResponse struct {
	header      http.Header
	body        bytes.Buffer
	status      int
	wroteHeader bool
}

func (r *bufferedResponse) Header() http.Header {
	return r.header
}

func (r *bufferedResponse) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.status = status
	r.wroteHeader = true
}

func (r *bufferedResponse) Write(p []byte) (int, error) {
	r.WriteHeader(http.StatusOK)
	return r.body.Write(p)
}

func (r *bufferedResponse) replay(w http.ResponseWriter) {
	for k, vs := range r.header {
		w.Header()[k] = vs
	}
	if r.wroteHeader {
		w.WriteHeader(r.status)
	}
	r.body.WriteTo(w)
}

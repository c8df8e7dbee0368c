package sse

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"
)

type contextKey struct{}

// NewContext returns a copy of ctx carrying the session.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session attached by Middleware.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok
}

// Middleware establishes an SSE session for every request before calling the
// next handler. The session is available to the handler via FromContext.
//
// The session is closed when the next handler returns, so the handler should
// block for as long as events are to be sent, usually until the request
// context is done:
//
//	func updates(w http.ResponseWriter, r *http.Request) {
//		s, _ := sse.FromContext(r.Context())
//		s.Send(&sse.Event{Event: "connected", Data: state})
//		<-s.Done()
//	}
//
// If the session can not be established the request is answered with 500
// status code and the next handler is not called.
func Middleware(opts ...Option) func(http.Handler) http.Handler {
	logger := newOptions(opts).logger

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := newStreamWriter(w)

			s, err := Establish(sw, r, opts...)
			if err != nil {
				logger.WithFields(logrus.Fields{
					"remote_addr": r.RemoteAddr,
					"path":        r.URL.Path,
				}).WithError(err).Error("sse session not established")
				if !sw.Written() {
					http.Error(w, err.Error(), http.StatusInternalServerError)
				}
				return
			}
			defer s.Close()

			next.ServeHTTP(sw, r.WithContext(NewContext(r.Context(), s)))
		})
	}
}

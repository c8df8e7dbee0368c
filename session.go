package sse

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// HeartbeatComment is the text of keep-alive comment lines. Clients ignore
// comments, they only generate traffic for idle connection timers.
const HeartbeatComment = "sse-handshake"

var (
	// ErrHeadersWritten is returned from Establish if response headers
	// were already sent, either by previous Establish call or by the HTTP
	// handler itself. Nothing is written to the response in this case.
	ErrHeadersWritten = errors.New("response headers already written")

	// ErrStreamingUnsupported is returned from Establish if
	// http.ResponseWriter does not implement http.Flusher interface.
	ErrStreamingUnsupported = errors.New("http.ResponseWriter does not implement http.Flusher interface")

	// ErrDelivery wraps transport errors returned by Session.Send. Session
	// is closed after a failed delivery and client is expected to
	// reconnect with its last event ID.
	ErrDelivery = errors.New("event delivery failed")
)

// Session is a single open SSE response. Session methods are safe for
// concurrent use, events written by concurrent Send calls never interleave.
type Session struct {
	w       *streamWriter
	cfg     Config
	log     logrus.FieldLogger
	metrics *Metrics
	hb      *heartbeat

	// closed and unwatch are guarded by w.mu, no writes can happen after
	// Close returns.
	closed  bool
	unwatch func() bool

	idMu   sync.RWMutex
	lastID string
	hasID  bool

	closeOnce sync.Once
	done      chan struct{}
}

// Establish turns HTTP response into SSE stream. It writes stream headers,
// starts keep-alive heartbeat and returns a session for sending events.
//
// Effective configuration is resolved from request query overrides, options
// and DefaultConfig (in that order). Last event ID is taken from the
// Last-Event-ID header or lastEventId query parameter.
//
// Session is closed when request context is cancelled (client went away) or
// when Close is called, typically when the HTTP handler returns. Caller must
// make sure one of these happens, otherwise heartbeat go routine leaks.
func Establish(w http.ResponseWriter, r *http.Request, opts ...Option) (*Session, error) {
	o := newOptions(opts)

	sw := newStreamWriter(w)
	if sw.flusher == nil {
		return nil, ErrStreamingUnsupported
	}

	cfg := Resolve(ParseOverrides(r), o.settings)
	log := o.logger.WithFields(logrus.Fields{
		"remote_addr": r.RemoteAddr,
		"path":        r.URL.Path,
	})

	sw.mu.Lock()
	if sw.writtenLocked() {
		sw.mu.Unlock()
		return nil, ErrHeadersWritten
	}

	// SSE connections are long-lived and shouldn't be terminated by the
	// server's WriteTimeout setting.
	rc := http.NewResponseController(sw.ResponseWriter)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		log.WithError(err).Debug("could not disable write deadline")
	}

	o.metrics.sessionOpened()

	h := sw.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	sw.ResponseWriter.WriteHeader(http.StatusOK)
	sw.written = true
	sw.flusher.Flush()
	sw.mu.Unlock()

	s := &Session{
		w:       sw,
		cfg:     cfg,
		log:     log,
		metrics: o.metrics,
		done:    make(chan struct{}),
	}
	if id, ok := RequestLastEventID(r); ok {
		s.lastID, s.hasID = id, true
	}

	s.hb = startHeartbeat(cfg.Heartbeat, s.ping)
	sw.mu.Lock()
	s.unwatch = context.AfterFunc(r.Context(), s.Close)
	sw.mu.Unlock()

	log.WithFields(logrus.Fields{
		"heartbeat_ms":  cfg.Heartbeat.Milliseconds(),
		"retry_ms":      cfg.Retry.Milliseconds(),
		"last_event_id": s.lastID,
	}).Debug("sse session established")

	return s, nil
}

// Send writes one or more events to the client. All events are encoded before
// anything is written, encoding error prevents the whole batch from being
// sent. Events are written with a single write call.
//
// Send on a closed session does nothing and returns nil, session might be
// closed by the client at any moment. Transport errors are returned wrapped
// in ErrDelivery and close the session.
func (s *Session) Send(events ...*Event) error {
	if len(events) == 0 {
		return nil
	}

	frame, err := Encode(s.cfg.Retry, events...)
	if err != nil {
		return err
	}

	s.w.mu.Lock()
	if s.closed {
		s.w.mu.Unlock()
		s.log.WithField("events", len(events)).Warn("send on closed sse session ignored")
		return nil
	}
	err = s.w.writeLocked(frame)
	if err == nil {
		if id, ok := LastID(events...); ok {
			s.idMu.Lock()
			s.lastID, s.hasID = id, true
			s.idMu.Unlock()
		}
	}
	s.w.mu.Unlock()

	if err != nil {
		s.metrics.failure("send")
		s.log.WithError(err).Debug("sse send failed")
		s.Close()
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}

	s.metrics.eventsSent(events)
	return nil
}

// ping writes a keep-alive comment. It runs on the heartbeat go routine.
func (s *Session) ping() error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()

	if s.closed {
		return nil
	}
	if err := s.w.writeLocked([]byte(": " + HeartbeatComment + "\n")); err != nil {
		s.metrics.failure("heartbeat")
		s.log.WithError(err).Debug("sse heartbeat failed")
		s.closed = true
		// heartbeat can not be stopped from its own go routine
		go s.Close()
		return err
	}
	s.metrics.heartbeat()
	return nil
}

// LastEventID returns the resumption identifier. It is initialized from the
// client request and replaced by ID of every sent event carrying one. Second
// return value is false until the identifier is known.
func (s *Session) LastEventID() (string, bool) {
	s.idMu.RLock()
	defer s.idMu.RUnlock()
	return s.lastID, s.hasID
}

// Config returns effective session configuration.
func (s *Session) Config() Config {
	return s.cfg
}

// Close stops heartbeat and marks session as closed. It is safe to call Close
// multiple times and concurrently with Send. No writes happen after Close
// returns.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.w.mu.Lock()
		s.closed = true
		unwatch := s.unwatch
		s.w.mu.Unlock()

		s.hb.stop()
		if unwatch != nil {
			unwatch()
		}
		close(s.done)

		s.metrics.sessionClosed()
		s.log.Debug("sse session closed")
	})
}

// Done returns a channel closed when session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

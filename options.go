package sse

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Option configures sessions created by Establish and Middleware.
type Option func(*options)

type options struct {
	settings Settings
	logger   logrus.FieldLogger
	metrics  *Metrics
}

func newOptions(opts []Option) *options {
	o := &options{
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithHeartbeat sets keep-alive interval. Request override takes precedence
// over it, non-positive value leaves the default in place.
func WithHeartbeat(d time.Duration) Option {
	return func(o *options) {
		o.settings.Heartbeat = Duration(d)
	}
}

// WithRetry sets client reconnect delay. Request override takes precedence
// over it, negative value leaves the default in place. The delay is sent in
// whole milliseconds, so 1500µs goes out as "retry: 1".
func WithRetry(d time.Duration) Option {
	return func(o *options) {
		o.settings.Retry = Duration(d)
	}
}

// WithLogger sets a logger for session diagnostics. Logrus standard logger is
// used by default.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics enables prometheus instrumentation of sessions.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

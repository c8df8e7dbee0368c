package sse

import (
	"math"
	"net/http"
	"strconv"
	"time"
)

// Query parameter and header names used to read per request configuration.
const (
	HeaderLastEventID = "Last-Event-ID"
	QueryLastEventID  = "lastEventId"
	QueryHeartbeat    = "heartbeat"
	QueryRetry        = "retry"
)

// Config holds effective SSE session configuration. It is resolved once per
// connection and never changed afterwards.
type Config struct {
	// Heartbeat sets how often a comment line is written to keep idle
	// connection open. It is always positive. Keep it lower than 60
	// seconds if nginx proxy is used, by default nginx will timeout the
	// request if there is more than 60 seconds gap between two reads.
	Heartbeat time.Duration

	// Retry is a time duration before successive reconnects, it is passed
	// as a recommendation for SSE clients with every event.
	Retry time.Duration
}

// DefaultConfig is used for values not set by factory options or request
// overrides.
var DefaultConfig = Config{
	Heartbeat: 3 * time.Second,
	Retry:     3 * time.Second,
}

// Settings is a set of optional configuration values coming from a single
// source. Nil fields are not set.
type Settings struct {
	Heartbeat *time.Duration
	Retry     *time.Duration
}

// Duration returns a pointer to d, handy for filling Settings and
// Event.Retry.
func Duration(d time.Duration) *time.Duration {
	return &d
}

// Resolve merges configuration sources. Request override has the highest
// precedence, then factory settings and then DefaultConfig. Negative values
// are ignored on every level, zero heartbeat is ignored too.
func Resolve(override, factory Settings) Config {
	return Config{
		Heartbeat: pick(DefaultConfig.Heartbeat, positive, override.Heartbeat, factory.Heartbeat),
		Retry:     pick(DefaultConfig.Retry, nonNegative, override.Retry, factory.Retry),
	}
}

func positive(d time.Duration) bool    { return d > 0 }
func nonNegative(d time.Duration) bool { return d >= 0 }

func pick(def time.Duration, valid func(time.Duration) bool, values ...*time.Duration) time.Duration {
	for _, v := range values {
		if v != nil && valid(*v) {
			return *v
		}
	}
	return def
}

// ParseOverrides reads heartbeat and retry overrides (in milliseconds) from
// request query. Malformed values are left unset, bad client input should
// never fail the connection.
func ParseOverrides(r *http.Request) Settings {
	q := r.URL.Query()
	return Settings{
		Heartbeat: parseMillis(q.Get(QueryHeartbeat)),
		Retry:     parseMillis(q.Get(QueryRetry)),
	}
}

func parseMillis(s string) *time.Duration {
	if s == "" {
		return nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms < 0 || ms > math.MaxInt64/int64(time.Millisecond) {
		return nil
	}
	return Duration(time.Duration(ms) * time.Millisecond)
}

// RequestLastEventID extracts the client resumption identifier. Header value
// takes precedence over the query parameter, the latter is used by
// EventSource polyfills that can not set custom headers.
func RequestLastEventID(r *http.Request) (string, bool) {
	if id := r.Header.Get(HeaderLastEventID); id != "" {
		return id, true
	}
	if id := r.URL.Query().Get(QueryLastEventID); id != "" {
		return id, true
	}
	return "", false
}

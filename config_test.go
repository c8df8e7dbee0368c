package sse

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolvePrecedence(t *testing.T) {
	a := Duration(100 * time.Millisecond)
	b := Duration(200 * time.Millisecond)

	tests := []struct {
		msg      string
		override Settings
		factory  Settings
		expected Config
	}{
		{
			msg:      "defaults",
			expected: DefaultConfig,
		},
		{
			msg:      "factory",
			factory:  Settings{Heartbeat: b, Retry: b},
			expected: Config{Heartbeat: *b, Retry: *b},
		},
		{
			msg:      "override wins",
			override: Settings{Heartbeat: a, Retry: a},
			factory:  Settings{Heartbeat: b, Retry: b},
			expected: Config{Heartbeat: *a, Retry: *a},
		},
		{
			msg:      "override without factory",
			override: Settings{Retry: a},
			expected: Config{Heartbeat: DefaultConfig.Heartbeat, Retry: *a},
		},
		{
			msg:      "mixed sources",
			override: Settings{Heartbeat: a},
			factory:  Settings{Retry: b},
			expected: Config{Heartbeat: *a, Retry: *b},
		},
		{
			msg:      "negative values fall through",
			override: Settings{Heartbeat: Duration(-1), Retry: Duration(-1)},
			factory:  Settings{Heartbeat: b, Retry: Duration(-5)},
			expected: Config{Heartbeat: *b, Retry: DefaultConfig.Retry},
		},
		{
			msg:      "zero heartbeat falls through, zero retry does not",
			override: Settings{Heartbeat: Duration(0), Retry: Duration(0)},
			factory:  Settings{Retry: b},
			expected: Config{Heartbeat: DefaultConfig.Heartbeat, Retry: 0},
		},
	}

	for _, test := range tests {
		t.Run(test.msg, func(t *testing.T) {
			assert.Equal(t, test.expected, Resolve(test.override, test.factory))
		})
	}
}

func TestParseOverrides(t *testing.T) {
	tests := []struct {
		msg       string
		query     string
		heartbeat *time.Duration
		retry     *time.Duration
	}{
		{msg: "empty", query: ""},
		{msg: "both", query: "?heartbeat=500&retry=0", heartbeat: Duration(500 * time.Millisecond), retry: Duration(0)},
		{msg: "non numeric", query: "?heartbeat=fast&retry=1s"},
		{msg: "negative", query: "?heartbeat=-10&retry=-1"},
		{msg: "fraction", query: "?retry=1.5"},
		{msg: "overflow", query: "?retry=99999999999999999999"},
		{msg: "huge", query: "?heartbeat=9223372036854775807"},
	}

	for _, test := range tests {
		t.Run(test.msg, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/events"+test.query, nil)
			s := ParseOverrides(r)
			assert.Equal(t, test.heartbeat, s.Heartbeat)
			assert.Equal(t, test.retry, s.Retry)
		})
	}
}

func TestRequestLastEventID(t *testing.T) {
	tests := []struct {
		msg    string
		target string
		header string
		id     string
		ok     bool
	}{
		{msg: "unset", target: "/"},
		{msg: "header", target: "/", header: "7", id: "7", ok: true},
		{msg: "query", target: "/?lastEventId=9", id: "9", ok: true},
		{msg: "header preferred", target: "/?lastEventId=9", header: "7", id: "7", ok: true},
	}

	for _, test := range tests {
		t.Run(test.msg, func(t *testing.T) {
			r := httptest.NewRequest("GET", test.target, nil)
			if test.header != "" {
				r.Header.Set("Last-Event-ID", test.header)
			}
			id, ok := RequestLastEventID(r)
			assert.Equal(t, test.ok, ok)
			assert.Equal(t, test.id, id)
		})
	}
}

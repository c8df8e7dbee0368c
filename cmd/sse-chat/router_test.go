package main

import (
	"bufio"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log, _ := logtest.NewNullLogger()
	cfg := Config{
		Heartbeat:   time.Hour,
		Retry:       time.Second,
		HistoryTTL:  time.Minute,
		CORSOrigins: []string{"*"},
	}

	router, err := newRouter(cfg, log, prometheus.NewRegistry())
	require.NoError(t, err)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestRouterChat(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest("GET", srv.URL+"/updates", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://example.com")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, "text/event-stream", res.Header.Get("Content-Type"))
	assert.Equal(t, "*", res.Header.Get("Access-Control-Allow-Origin"))

	body := bufio.NewReader(res.Body)
	lines := make(chan string, 16)
	go func() {
		for {
			line, err := body.ReadString('\n')
			if err != nil {
				close(lines)
				return
			}
			lines <- strings.TrimSuffix(line, "\n")
		}
	}()
	next := func() string {
		select {
		case line := <-lines:
			return line
		case <-time.After(2 * time.Second):
			t.Fatal("timeout reading stream")
			return ""
		}
	}

	assert.Equal(t, "retry: 1000", next())
	assert.Equal(t, "event: connected", next())
	assert.Equal(t, `data: {"id":1}`, next())
	assert.Equal(t, "", next())

	// client is registered after greeting, retry until broadcast reaches it
	require.Eventually(t, func() bool {
		post, err := http.PostForm(srv.URL+"/sendMessage", url.Values{"message": {"hi"}, "userId": {"7"}})
		if err != nil {
			return false
		}
		post.Body.Close()

		select {
		case line := <-lines:
			return line == "retry: 1000"
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	id := next()
	assert.True(t, strings.HasPrefix(id, "id: "), id)
	assert.Equal(t, "event: message", next())
	assert.Equal(t, `data: {"text":"hi","userId":"7"}`, next())
}

func TestRouterMetrics(t *testing.T) {
	srv := newTestServer(t)

	res, err := http.Get(srv.URL + "/updates")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	scrape := func() string {
		metrics, err := http.Get(srv.URL + "/metrics")
		if err != nil {
			return ""
		}
		defer metrics.Body.Close()
		b, _ := io.ReadAll(metrics.Body)
		return string(b)
	}

	assert.Eventually(t, func() bool {
		body := scrape()
		return strings.Contains(body, "chat_sse_open_sessions 1") &&
			strings.Contains(body, `chat_sse_events_sent_total{event="connected"} 1`)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRouterSendMessageMethod(t *testing.T) {
	srv := newTestServer(t)

	res, err := http.Get(srv.URL + "/sendMessage")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
}

package sse

import (
	"net/http"
	"sync"
)

// streamWriter wraps a http.ResponseWriter of an SSE response. It tracks if
// anything was written and serializes writes coming from session, heartbeat
// and HTTP handler.
type streamWriter struct {
	http.ResponseWriter
	flusher http.Flusher

	mu      sync.Mutex
	written bool
}

type writtenReporter interface {
	Written() bool
}

func newStreamWriter(w http.ResponseWriter) *streamWriter {
	if sw, ok := w.(*streamWriter); ok {
		return sw
	}
	flusher, _ := w.(http.Flusher)
	return &streamWriter{
		ResponseWriter: w,
		flusher:        flusher,
	}
}

func (w *streamWriter) WriteHeader(code int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.written = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *streamWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.written = true
	return w.ResponseWriter.Write(p)
}

func (w *streamWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.flusher != nil {
		w.flusher.Flush()
	}
}

// Written reports whether response headers were sent, either through this
// writer or, if wrapped writer can tell, by anybody else.
func (w *streamWriter) Written() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writtenLocked()
}

func (w *streamWriter) writtenLocked() bool {
	if w.written {
		return true
	}
	if wr, ok := w.ResponseWriter.(writtenReporter); ok {
		return wr.Written()
	}
	return false
}

// Unwrap allows http.ResponseController to reach the wrapped writer.
func (w *streamWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// writeLocked writes and flushes p in one go. Caller must hold w.mu.
func (w *streamWriter) writeLocked(p []byte) error {
	w.written = true
	if _, err := w.ResponseWriter.Write(p); err != nil {
		return err
	}
	w.flusher.Flush()
	return nil
}

package sse

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Event holds data for single event in SSE stream.
type Event struct {
	// ID value will be converted to string with fmt package. A nil ID,
	// including a typed nil pointer, is not sent. Any other value (0 and ""
	// among them) is.
	ID interface{}

	// Event is an optional event name, empty string means the client
	// dispatches a generic "message" event.
	Event string

	// Data is sent verbatim if it is a string, a byte slice or a scalar
	// value. Any other value is marshaled to JSON.
	Data interface{}

	// Retry overrides session reconnect delay for this event only. It is
	// sent in whole milliseconds, sub-millisecond remainder is truncated.
	Retry *time.Duration
}

// ErrInvalidField is returned when an event field can not be represented in
// the SSE wire format without breaking framing.
var ErrInvalidField = errors.New("invalid event field")

// Encode renders events in SSE wire format. Every event produces a complete
// frame terminated by a blank line, frames are concatenated in the given
// order. Retry is used for events that do not set their own Retry value.
//
// Encode does no I/O. If any of the events can not be encoded, no output is
// returned for the whole batch.
func Encode(retry time.Duration, events ...*Event) ([]byte, error) {
	var buf bytes.Buffer
	for i, e := range events {
		if err := encodeFrame(&buf, retry, e); err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

func encodeFrame(buf *bytes.Buffer, retry time.Duration, e *Event) error {
	if e == nil {
		return fmt.Errorf("%w: nil event", ErrInvalidField)
	}
	if e.Retry != nil {
		retry = *e.Retry
	}
	if retry < 0 {
		return fmt.Errorf("%w: negative retry %s", ErrInvalidField, retry)
	}

	data, err := formatData(e.Data)
	if err != nil {
		return err
	}

	buf.WriteString("retry: ")
	buf.WriteString(strconv.FormatInt(retry.Milliseconds(), 10))
	buf.WriteByte('\n')

	if hasID(e.ID) {
		id := fmt.Sprint(e.ID)
		if strings.ContainsAny(id, "\r\n") {
			return fmt.Errorf("%w: id contains line break", ErrInvalidField)
		}
		buf.WriteString("id: ")
		buf.WriteString(id)
		buf.WriteByte('\n')
	}

	if e.Event != "" {
		if strings.ContainsAny(e.Event, "\r\n") {
			return fmt.Errorf("%w: event name contains line break", ErrInvalidField)
		}
		buf.WriteString("event: ")
		buf.WriteString(e.Event)
		buf.WriteByte('\n')
	}

	// Line breaks can only be transferred as multiple data lines, client
	// joins them back with "\n".
	for _, line := range splitLines(data) {
		buf.WriteString("data: ")
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	buf.WriteByte('\n')
	return nil
}

// formatData converts event payload to its textual form.
func formatData(v interface{}) (string, error) {
	switch d := v.(type) {
	case nil:
		return "", nil
	case string:
		return d, nil
	case []byte:
		return string(d), nil
	case json.RawMessage:
		return string(d), nil
	case bool:
		return strconv.FormatBool(d), nil
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(d), nil
	case float32:
		return strconv.FormatFloat(float64(d), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(d, 'g', -1, 64), nil
	}

	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("marshal data: %w", err)
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}

// hasID reports whether id holds a value to be sent, nil pointers and other
// nil references count as absent.
func hasID(id interface{}) bool {
	if id == nil {
		return false
	}
	switch v := reflect.ValueOf(id); v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return !v.IsNil()
	}
	return true
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Split(s, "\n")
}

// LastID returns the ID of the last event carrying one. Second return value
// is false if none of the events have an ID.
func LastID(events ...*Event) (string, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i] != nil && hasID(events[i].ID) {
			return fmt.Sprint(events[i].ID), true
		}
	}
	return "", false
}

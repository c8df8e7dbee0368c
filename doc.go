// Package sse is a library for serving Server-Sent Events from net/http
// handlers.
//
// It turns a single long-lived HTTP response into a push channel. Stream
// headers are written once, a keep-alive comment is written periodically to
// keep proxies from dropping an idle connection, and events are framed in
// the text/event-stream wire format. Event data is sent verbatim for strings
// and scalars and marshaled to JSON for anything else.
//
// Typical usage of this package is:
//   - Wrap the SSE endpoint handler with Middleware, or call Establish from
//     the handler directly.
//   - Get the session with FromContext and send events with Session.Send.
//     Session.LastEventID tells which event the client saw last before
//     reconnecting.
//   - Block in the handler until the request context is done. Session is
//     closed and the heartbeat stopped when either the client disconnects or
//     the handler returns.
//
// Heartbeat and retry intervals are resolved per request. Query parameters
// heartbeat and retry (milliseconds) override values given with WithHeartbeat
// and WithRetry options which override DefaultConfig.
//
// This package does not keep a registry of connected clients. Applications
// broadcasting to many clients keep their own collection of sessions.
package sse

// Package report defines the analytics sink capability and the trace event
// formatter, plus the shipped sink adapters (log, HTTP collector, NATS).
package report

import (
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
)

// EventLCPTrace is the event name under which threshold-exceeded traces are
// reported.
const EventLCPTrace = "lcp_trace"

// Sink is an opaque analytics destination. Send is fire-and-forget from the
// agent's point of view: one attempt, no retry; errors are the caller's to
// log and discard.
type Sink interface {
	Available() bool
	Send(event string, attrs map[string]any) error
}

// LogSink reports trace events through the process logger. It is the
// default sink when no collector or NATS endpoint is configured.
type LogSink struct{}

// Available always reports true.
func (LogSink) Available() bool { return true }

// Send logs the event with its attributes as structured fields.
func (LogSink) Send(event string, attrs map[string]any) error {
	logrus.WithFields(logrus.Fields(attrs)).Info(event)
	return nil
}

// eventEnvelope is the wire shape shared by the HTTP and NATS sinks.
type eventEnvelope struct {
	Event      string         `json:"event"`
	Timestamp  time.Time      `json:"timestamp"`
	Attributes map[string]any `json:"attributes"`
}

func marshalEvent(event string, attrs map[string]any) ([]byte, error) {
	return json.Marshal(eventEnvelope{
		Event:      event,
		Timestamp:  time.Now().UTC(),
		Attributes: attrs,
	})
}

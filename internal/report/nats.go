package report

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// NATSSink publishes trace events to a NATS subject.
type NATSSink struct {
	conn    *nats.Conn
	subject string
}

// NewNATSSink connects to the given NATS server and returns a sink
// publishing to subject.
func NewNATSSink(url, subject string) (*NATSSink, error) {
	if subject == "" {
		return nil, fmt.Errorf("nats subject is required")
	}

	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logrus.Debugf("report: nats sink connected to %s, subject %s", url, subject)
	return &NATSSink{conn: conn, subject: subject}, nil
}

// Available reports whether the connection is up.
func (s *NATSSink) Available() bool {
	return s.conn != nil && s.conn.Status() == nats.CONNECTED
}

// Send publishes the event once.
func (s *NATSSink) Send(event string, attrs map[string]any) error {
	data, err := marshalEvent(event, attrs)
	if err != nil {
		return fmt.Errorf("failed to encode trace event: %w", err)
	}

	if err := s.conn.Publish(s.subject, data); err != nil {
		return fmt.Errorf("failed to publish trace event: %w", err)
	}
	return nil
}

// Close drains and closes the connection.
func (s *NATSSink) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}

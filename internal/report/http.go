package report

import (
	"bytes"
	"fmt"
	"net/http"
	"time"
)

// HTTPSink posts trace events as JSON to a collector endpoint.
type HTTPSink struct {
	url    string
	client *http.Client
}

// NewHTTPSink returns a sink posting to the given collector URL.
func NewHTTPSink(url string) *HTTPSink {
	return &HTTPSink{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Available reports whether a collector URL is configured.
func (s *HTTPSink) Available() bool { return s.url != "" }

// Send posts the event once. No retry: a missed trace is acceptable loss.
func (s *HTTPSink) Send(event string, attrs map[string]any) error {
	body, err := marshalEvent(event, attrs)
	if err != nil {
		return fmt.Errorf("failed to encode trace event: %w", err)
	}

	resp, err := s.client.Post(s.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("collector post failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("collector rejected trace event: %s", resp.Status)
	}
	return nil
}

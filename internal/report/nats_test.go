package report

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNATSSinkRequiresSubject(t *testing.T) {
	_, err := NewNATSSink("nats://127.0.0.1:4222", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subject")
}

func TestNATSSinkUnavailableWithoutConnection(t *testing.T) {
	var sink NATSSink
	assert.False(t, sink.Available())
}

func TestMarshalEventEnvelope(t *testing.T) {
	data, err := marshalEvent(EventLCPTrace, map[string]any{
		"lcp_value_ms": 2600.0,
		"page_url":     "https://a.test/",
	})
	require.NoError(t, err)

	var got struct {
		Event      string         `json:"event"`
		Timestamp  time.Time      `json:"timestamp"`
		Attributes map[string]any `json:"attributes"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, EventLCPTrace, got.Event)
	assert.False(t, got.Timestamp.IsZero())
	assert.Equal(t, 2600.0, got.Attributes["lcp_value_ms"])
	assert.Equal(t, "https://a.test/", got.Attributes["page_url"])
}

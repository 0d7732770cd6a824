package report

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSinkSend(t *testing.T) {
	var received struct {
		Event      string         `json:"event"`
		Attributes map[string]any `json:"attributes"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sink := NewHTTPSink(server.URL)
	require.True(t, sink.Available())

	err := sink.Send(EventLCPTrace, map[string]any{"lcp_value_ms": 2600.0, "page_url": "https://a.test/"})
	require.NoError(t, err)
	assert.Equal(t, EventLCPTrace, received.Event)
	assert.Equal(t, "https://a.test/", received.Attributes["page_url"])
}

func TestHTTPSinkSendRejectedByCollector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sink := NewHTTPSink(server.URL)
	err := sink.Send(EventLCPTrace, map[string]any{})
	assert.Error(t, err)
}

func TestHTTPSinkSendUnreachableCollector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close() // shut down before use

	sink := NewHTTPSink(server.URL)
	err := sink.Send(EventLCPTrace, map[string]any{})
	assert.Error(t, err)
}

func TestHTTPSinkAvailability(t *testing.T) {
	assert.False(t, NewHTTPSink("").Available())
	assert.True(t, NewHTTPSink("https://collector.test/v1/traces").Available())
}

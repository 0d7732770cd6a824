package report

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/pagetrace/internal/types"
)

func TestBuildAttributes(t *testing.T) {
	cand := types.LCPCandidate{Value: 3200, URL: "https://a.test/hero.png", HasElement: true}
	snap := types.NavigationSnapshot{
		DOMContentLoaded:       800,
		LoadComplete:           3000,
		FirstContentfulPaint:   900,
		LargestContentfulPaint: 3200,
	}
	resources := []types.ResourceRecord{
		{Name: "https://a.test/hero.png", Duration: 120, InitiatorType: "img"},
		{Name: "https://a.test/theme.css", Duration: 40, InitiatorType: "link"},
	}

	attrs := BuildAttributes("trace-1", "https://a.test/", cand, snap, resources)

	assert.Equal(t, "trace-1", attrs["trace_id"])
	assert.Equal(t, "https://a.test/", attrs["page_url"])
	assert.Equal(t, 3200.0, attrs["lcp_value_ms"])
	assert.Equal(t, "https://a.test/hero.png", attrs["lcp_element_url"])
	assert.Equal(t, 800.0, attrs["dom_content_loaded_ms"])
	assert.Equal(t, 3000.0, attrs["load_complete_ms"])
	assert.Equal(t, 900.0, attrs["first_contentful_paint_ms"])
	assert.Equal(t, 3200.0, attrs["largest_contentful_paint_ms"])
	assert.Equal(t, 2, attrs["resource_count"])

	encoded, ok := attrs["critical_resources"].(string)
	require.True(t, ok)
	var decoded []types.ResourceRecord
	require.NoError(t, json.Unmarshal([]byte(encoded), &decoded))
	assert.Equal(t, resources, decoded)
}

func TestBuildAttributesOmitsEmptyResourceList(t *testing.T) {
	attrs := BuildAttributes("trace-2", "https://a.test/", types.LCPCandidate{Value: 2600}, types.NavigationSnapshot{}, nil)

	assert.Equal(t, 0, attrs["resource_count"])
	_, present := attrs["critical_resources"]
	assert.False(t, present)
}

func TestLogSinkAlwaysAvailable(t *testing.T) {
	var sink LogSink
	assert.True(t, sink.Available())
	assert.NoError(t, sink.Send(EventLCPTrace, map[string]any{"lcp_value_ms": 2600.0}))
}

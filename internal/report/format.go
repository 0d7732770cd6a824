package report

import (
	"encoding/json"

	"github.com/jonathan/pagetrace/internal/types"
)

// BuildAttributes flattens a fired trace into the attribute map handed to
// the sink. The critical resource list is JSON-encoded under a single
// attribute so the payload stays a flat mapping.
func BuildAttributes(traceID, pageURL string, cand types.LCPCandidate, snap types.NavigationSnapshot, resources []types.ResourceRecord) map[string]any {
	attrs := map[string]any{
		"trace_id":                    traceID,
		"page_url":                    pageURL,
		"lcp_value_ms":                cand.Value,
		"lcp_element_url":             cand.URL,
		"dom_content_loaded_ms":       snap.DOMContentLoaded,
		"load_complete_ms":            snap.LoadComplete,
		"first_contentful_paint_ms":   snap.FirstContentfulPaint,
		"largest_contentful_paint_ms": snap.LargestContentfulPaint,
		"resource_count":              len(resources),
	}

	if len(resources) > 0 {
		if data, err := json.Marshal(resources); err == nil {
			attrs["critical_resources"] = string(data)
		}
	}

	return attrs
}

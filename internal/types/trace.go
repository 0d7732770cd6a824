// Package types provides type definitions for structured data used throughout the pagetrace system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "time"

// LCPCandidate is a single observed largest-contentful-paint reading.
// Later candidates supersede earlier ones: the monitor keeps the most
// recently emitted candidate as current, not the maximum-valued one.
type LCPCandidate struct {
	// Value is milliseconds since navigation start.
	Value float64 `json:"value"`
	// URL is the resource URL behind the element; empty for text elements.
	URL string `json:"url,omitempty"`
	// HasElement reports whether the reading carried a DOM element. The
	// element itself stays in the page; it is resolved at selection time.
	HasElement bool      `json:"has_element,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

// ResourceRecord is one entry from the browser's resource timing buffer.
type ResourceRecord struct {
	Name            string  `json:"name"`
	StartTime       float64 `json:"start_time"`
	Duration        float64 `json:"duration"`
	TransferSize    float64 `json:"transfer_size"`
	EncodedBodySize float64 `json:"encoded_body_size"`
	DecodedBodySize float64 `json:"decoded_body_size"`
	// InitiatorType categorizes what triggered the fetch: script, link,
	// img, css, or other.
	InitiatorType string `json:"initiator_type"`
}

// NavigationSnapshot holds page-load milestones as non-negative millisecond
// offsets from navigation start, or 0 when unavailable.
type NavigationSnapshot struct {
	DOMContentLoaded       float64 `json:"dom_content_loaded"`
	LoadComplete           float64 `json:"load_complete"`
	FirstContentfulPaint   float64 `json:"first_contentful_paint"`
	LargestContentfulPaint float64 `json:"largest_contentful_paint"`
}

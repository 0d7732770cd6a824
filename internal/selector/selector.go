// Package selector chooses the bounded set of resources most likely to
// explain a page's LCP timing, and extracts page-load navigation
// milestones.
package selector

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/pagetrace/internal/timing"
	"github.com/jonathan/pagetrace/internal/types"
)

// cssMarker identifies stylesheet resources by name. Render-blocking
// stylesheets commonly gate LCP even when they are not the LCP resource.
const cssMarker = ".css"

// bgImagePattern extracts the first url(...) reference from a computed
// background-image value, tolerant of quoted and unquoted forms. Multiple
// comma-separated images and image-set() syntax are not handled.
var bgImagePattern = regexp.MustCompile(`url\(\s*['"]?([^'")]+?)['"]?\s*\)`)

// Selector reads timing data from a source and applies the selection
// algorithm. All read and resolution failures degrade; the selector never
// returns an error to its caller.
type Selector struct {
	source       timing.Source
	maxResources int
}

// New returns a selector bounded to maxResources entries per snapshot.
func New(source timing.Source, maxResources int) *Selector {
	return &Selector{source: source, maxResources: maxResources}
}

// CriticalResources reads the buffered resource timing records and selects
// the bounded, deduplicated, ordered critical set. hasElement reports
// whether the triggering LCP candidate carried a DOM element; when it did,
// the element's own resource is resolved and prioritized. A failing timing
// read yields an empty set.
func (s *Selector) CriticalResources(ctx context.Context, hasElement bool) []types.ResourceRecord {
	entries, err := s.source.EntriesByType(ctx, timing.KindResource)
	if err != nil {
		logrus.Warnf("selector: resource timing read failed, returning empty set: %v", err)
		return nil
	}
	records := toRecords(entries)

	lcpURL := ""
	if hasElement {
		probe, ok, err := s.source.LCPElementProbe(ctx)
		if err != nil {
			// Degrade to fallback ranking over the records already read.
			logrus.Debugf("selector: lcp element probe failed: %v", err)
		} else if ok {
			lcpURL = ResolveElementURL(probe)
		}
	}

	return SelectCritical(records, lcpURL, s.maxResources)
}

// SelectCritical is the deterministic selection algorithm. With no LCP
// resource URL it ranks by duration alone. With one, it places the LCP
// resource itself first, then stylesheet records, then fills remaining
// capacity by duration. Ties break by original buffer order; URLs are never
// duplicated; the result never exceeds maxResources.
func SelectCritical(records []types.ResourceRecord, lcpURL string, maxResources int) []types.ResourceRecord {
	if maxResources <= 0 || len(records) == 0 {
		return nil
	}

	selected := make([]types.ResourceRecord, 0, maxResources)
	used := make(map[string]bool, maxResources)
	add := func(r types.ResourceRecord) {
		if len(selected) >= maxResources || used[r.Name] {
			return
		}
		used[r.Name] = true
		selected = append(selected, r)
	}

	if lcpURL != "" {
		// Priority 1: the LCP resource itself.
		for _, r := range records {
			if r.Name == lcpURL {
				add(r)
				break
			}
		}
		// Priority 2: render-blocking stylesheets.
		for _, r := range records {
			if isStylesheet(r) {
				add(r)
			}
		}
	}

	// Priority 3 (and the whole ranking when no URL resolved): remaining
	// capacity goes to the most expensive resources.
	for _, r := range topByDuration(records) {
		if len(selected) >= maxResources {
			break
		}
		add(r)
	}

	return selected
}

// ResolveElementURL resolves the resource URL behind an LCP element: the
// src attribute for image/video-like elements, otherwise the first url(...)
// reference in the computed background-image. Empty when neither resolves.
func ResolveElementURL(probe timing.ElementProbe) string {
	if probe.Src != "" {
		return probe.Src
	}
	return backgroundImageURL(probe.BackgroundImage)
}

func backgroundImageURL(value string) string {
	if value == "" || value == "none" {
		return ""
	}
	m := bgImagePattern.FindStringSubmatch(value)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func isStylesheet(r types.ResourceRecord) bool {
	if !strings.Contains(r.Name, cssMarker) {
		return false
	}
	return r.InitiatorType == "link" || r.InitiatorType == "css"
}

// topByDuration returns the records ordered by descending duration with a
// stable tie-break on original buffer order.
func topByDuration(records []types.ResourceRecord) []types.ResourceRecord {
	ranked := make([]types.ResourceRecord, len(records))
	copy(ranked, records)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Duration > ranked[j].Duration
	})
	return ranked
}

func toRecords(entries []timing.Entry) []types.ResourceRecord {
	records := make([]types.ResourceRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, types.ResourceRecord{
			Name:            e.Name,
			StartTime:       e.StartTime,
			Duration:        e.Duration,
			TransferSize:    e.TransferSize,
			EncodedBodySize: e.EncodedBodySize,
			DecodedBodySize: e.DecodedBodySize,
			InitiatorType:   e.InitiatorType,
		})
	}
	return records
}

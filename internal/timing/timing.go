// Package timing defines the browser timing-source capability consumed by
// the monitor and selector, and its chromedp-backed implementation.
//
// The capability is a constructor-injected interface so the components that
// depend on it are constructible and testable without a live browser.
package timing

import "context"

// Performance entry kinds understood by a Source.
const (
	KindLCP      = "largest-contentful-paint"
	KindResource = "resource"
	KindPaint    = "paint"
)

// FirstContentfulPaint is the paint entry name marking FCP.
const FirstContentfulPaint = "first-contentful-paint"

// Entry is a raw performance timeline entry as read from the page.
type Entry struct {
	Name            string  `json:"name"`
	EntryType       string  `json:"entryType"`
	StartTime       float64 `json:"startTime"`
	Duration        float64 `json:"duration"`
	RenderTime      float64 `json:"renderTime"`
	LoadTime        float64 `json:"loadTime"`
	TransferSize    float64 `json:"transferSize"`
	EncodedBodySize float64 `json:"encodedBodySize"`
	DecodedBodySize float64 `json:"decodedBodySize"`
	InitiatorType   string  `json:"initiatorType"`
	HasElement      bool    `json:"hasElement"`
}

// CandidateValue derives the LCP candidate value from an entry. Render time
// is preferred when present since it is more accurate for images with
// delayed decode; some entries report only the start time depending on
// resource type.
func (e Entry) CandidateValue() float64 {
	if e.RenderTime > 0 {
		return e.RenderTime
	}
	if e.StartTime > 0 {
		return e.StartTime
	}
	return 0
}

// NavigationTiming holds the raw navigation timing fields needed to compute
// page-load milestone offsets.
type NavigationTiming struct {
	NavigationStart          float64 `json:"navigationStart"`
	DOMContentLoadedEventEnd float64 `json:"domContentLoadedEventEnd"`
	LoadEventEnd             float64 `json:"loadEventEnd"`
}

// ElementProbe carries the resolved attributes of the current LCP element.
// The element itself never leaves the page.
type ElementProbe struct {
	TagName         string `json:"tagName"`
	Src             string `json:"src"`
	BackgroundImage string `json:"backgroundImage"`
}

// ObserveFunc receives live entries from a push subscription.
type ObserveFunc func(Entry)

// Source is the timing capability of the host page.
type Source interface {
	// EntriesByType returns all currently buffered entries of the given kind.
	EntriesByType(ctx context.Context, kind string) ([]Entry, error)

	// ObserverSupported reports whether live (push) observation of the given
	// entry kind is available on this host.
	ObserverSupported(ctx context.Context, kind string) (bool, error)

	// Observe subscribes fn to live entries of the given kind. Buffered
	// historical entries are replayed to fn before live updates arrive.
	// The returned func cancels the subscription.
	Observe(ctx context.Context, kind string, fn ObserveFunc) (func(), error)

	// LoadEventFired reports whether the page's load event has completed.
	LoadEventFired(ctx context.Context) (bool, error)

	// NavigationTiming reads the raw navigation timing fields.
	NavigationTiming(ctx context.Context) (NavigationTiming, error)

	// LCPElementProbe resolves the element implicated by the most recent
	// LCP entry. ok is false when no element is retained.
	LCPElementProbe(ctx context.Context) (probe ElementProbe, ok bool, err error)
}

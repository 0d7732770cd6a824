package selector

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/pagetrace/internal/timing"
	"github.com/jonathan/pagetrace/internal/types"
)

// NavigationSnapshot extracts the page-load milestones as offsets from
// navigation start. Negative computed offsets (an invalid navigationStart,
// for instance) clamp to 0. Any read failure yields the all-zero snapshot,
// logged but never propagated.
func (s *Selector) NavigationSnapshot(ctx context.Context) types.NavigationSnapshot {
	nav, err := s.source.NavigationTiming(ctx)
	if err != nil {
		logrus.Warnf("selector: navigation timing read failed: %v", err)
		return types.NavigationSnapshot{}
	}

	paints, err := s.source.EntriesByType(ctx, timing.KindPaint)
	if err != nil {
		logrus.Warnf("selector: paint timing read failed: %v", err)
		return types.NavigationSnapshot{}
	}

	lcps, err := s.source.EntriesByType(ctx, timing.KindLCP)
	if err != nil {
		logrus.Warnf("selector: buffered lcp read failed: %v", err)
		return types.NavigationSnapshot{}
	}

	snap := types.NavigationSnapshot{
		DOMContentLoaded: clampOffset(nav.DOMContentLoadedEventEnd - nav.NavigationStart),
		LoadComplete:     clampOffset(nav.LoadEventEnd - nav.NavigationStart),
	}

	for _, e := range paints {
		if e.Name == timing.FirstContentfulPaint {
			snap.FirstContentfulPaint = e.StartTime
			break
		}
	}

	// The last buffered entry is canonical: each LCP emission supersedes
	// the previous one.
	if len(lcps) > 0 {
		snap.LargestContentfulPaint = lcps[len(lcps)-1].StartTime
	}

	return snap
}

func clampOffset(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

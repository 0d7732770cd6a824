package selector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/pagetrace/internal/timing"
	"github.com/jonathan/pagetrace/internal/types"
)

func TestNavigationSnapshotOffsets(t *testing.T) {
	src := &fakeSource{
		nav: timing.NavigationTiming{
			NavigationStart:          1000,
			DOMContentLoadedEventEnd: 1800,
			LoadEventEnd:             4000,
		},
		entries: map[string][]timing.Entry{
			timing.KindPaint: {
				{Name: "first-paint", StartTime: 700},
				{Name: timing.FirstContentfulPaint, StartTime: 900},
			},
			timing.KindLCP: {
				{StartTime: 2000},
				{StartTime: 1800},
			},
		},
	}
	s := New(src, 10)

	snap := s.NavigationSnapshot(context.Background())
	assert.Equal(t, 800.0, snap.DOMContentLoaded)
	assert.Equal(t, 3000.0, snap.LoadComplete)
	assert.Equal(t, 900.0, snap.FirstContentfulPaint)
	// Last buffered entry is canonical, not the maximum.
	assert.Equal(t, 1800.0, snap.LargestContentfulPaint)
}

func TestNavigationSnapshotClampsNegativeOffsets(t *testing.T) {
	src := &fakeSource{
		nav: timing.NavigationTiming{
			// Invalid navigationStart makes both offsets negative.
			NavigationStart:          5000,
			DOMContentLoadedEventEnd: 1800,
			LoadEventEnd:             4000,
		},
	}
	s := New(src, 10)

	snap := s.NavigationSnapshot(context.Background())
	assert.Equal(t, 0.0, snap.DOMContentLoaded)
	assert.Equal(t, 0.0, snap.LoadComplete)
}

func TestNavigationSnapshotZeroOnNavigationReadFailure(t *testing.T) {
	src := &fakeSource{navErr: assert.AnError}
	s := New(src, 10)

	snap := s.NavigationSnapshot(context.Background())
	assert.Equal(t, types.NavigationSnapshot{}, snap)
}

func TestNavigationSnapshotZeroOnEntryReadFailure(t *testing.T) {
	src := &fakeSource{
		nav:  timing.NavigationTiming{NavigationStart: 1000, DOMContentLoadedEventEnd: 1800, LoadEventEnd: 4000},
		errs: map[string]error{timing.KindPaint: assert.AnError},
	}
	s := New(src, 10)

	snap := s.NavigationSnapshot(context.Background())
	assert.Equal(t, types.NavigationSnapshot{}, snap)
}

func TestNavigationSnapshotMissingEntriesLeaveZeroFields(t *testing.T) {
	src := &fakeSource{
		nav: timing.NavigationTiming{NavigationStart: 1000, DOMContentLoadedEventEnd: 1800, LoadEventEnd: 4000},
	}
	s := New(src, 10)

	snap := s.NavigationSnapshot(context.Background())
	assert.Equal(t, 800.0, snap.DOMContentLoaded)
	assert.Equal(t, 0.0, snap.FirstContentfulPaint)
	assert.Equal(t, 0.0, snap.LargestContentfulPaint)
}

// Package monitor implements the LCP detection state machine: it observes
// the page's largest-contentful-paint signal and fires a one-shot callback
// the first time the value strictly exceeds a threshold.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/pagetrace/internal/timing"
	"github.com/jonathan/pagetrace/internal/types"
)

// State is the monitor lifecycle state.
type State int

const (
	StateIdle State = iota
	StateObserving
	StateStopped
)

// Callback receives the candidate that first exceeded the threshold. It is
// invoked at most once per monitoring session, outside the monitor's lock,
// so it may safely call Stop.
type Callback func(types.LCPCandidate)

// Monitor watches the largest-contentful-paint signal through a timing
// source. Each incoming candidate replaces the current one unconditionally:
// last-write-wins, matching the platform semantics where every emission
// supersedes the previous one. Deliberately not max-wins.
type Monitor struct {
	source timing.Source

	// PollInterval and SettleDelay drive the fallback polling strategy.
	// Exposed so tests can shrink them.
	PollInterval time.Duration
	SettleDelay  time.Duration

	mu          sync.Mutex
	state       State
	threshold   float64
	cb          Callback
	current     *types.LCPCandidate
	fired       bool
	stopObserve func()
	cancelPoll  context.CancelFunc
}

// New returns an idle monitor reading from the given source.
func New(source timing.Source) *Monitor {
	return &Monitor{
		source:       source,
		state:        StateIdle,
		PollInterval: time.Second,
		SettleDelay:  2 * time.Second,
	}
}

// Start begins observing. Calling while already observing is a no-op.
// Starting after Stop begins a fresh session with a reset fired flag.
// Live (push) observation is preferred; if the capability is absent or
// subscribing fails, the monitor degrades to polling. Neither failure is
// surfaced to the caller.
func (m *Monitor) Start(ctx context.Context, thresholdMs float64, onExceeded Callback) {
	m.mu.Lock()
	if m.state == StateObserving {
		m.mu.Unlock()
		return
	}
	m.state = StateObserving
	m.threshold = thresholdMs
	m.cb = onExceeded
	m.current = nil
	m.fired = false
	m.mu.Unlock()

	supported, err := m.source.ObserverSupported(ctx, timing.KindLCP)
	if err != nil {
		logrus.Warnf("monitor: observer capability check failed, using polling: %v", err)
	} else if supported {
		stop, err := m.source.Observe(ctx, timing.KindLCP, m.handleEntry)
		if err == nil {
			m.mu.Lock()
			if m.state != StateObserving {
				// Stopped while subscribing.
				m.mu.Unlock()
				stop()
				return
			}
			m.stopObserve = stop
			m.mu.Unlock()
			return
		}
		logrus.Warnf("monitor: live observation failed, using polling: %v", err)
	}

	pollCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	if m.state != StateObserving {
		m.mu.Unlock()
		cancel()
		return
	}
	m.cancelPoll = cancel
	m.mu.Unlock()

	go m.poll(pollCtx)
}

// Stop ends the session and releases the observation subscription or poll
// timer. Idempotent; safe to call from within a fired callback. After Stop
// no further callback firing is possible until the next Start.
func (m *Monitor) Stop() {
	m.mu.Lock()
	stop := m.stopObserve
	cancel := m.cancelPoll
	m.stopObserve = nil
	m.cancelPoll = nil
	m.state = StateStopped
	m.mu.Unlock()

	if stop != nil {
		stop()
	}
	if cancel != nil {
		cancel()
	}
}

// Current returns the most recently delivered candidate, or false if none
// has been observed this session.
func (m *Monitor) Current() (types.LCPCandidate, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return types.LCPCandidate{}, false
	}
	return *m.current, true
}

// Running reports whether the monitor is observing.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateObserving
}

func (m *Monitor) handleEntry(e timing.Entry) {
	m.deliver(types.LCPCandidate{
		Value:      e.CandidateValue(),
		URL:        e.Name,
		HasElement: e.HasElement,
		ObservedAt: time.Now(),
	})
}

func (m *Monitor) deliver(cand types.LCPCandidate) {
	m.mu.Lock()
	if m.state != StateObserving {
		m.mu.Unlock()
		return
	}
	m.current = &cand

	var cb Callback
	if !m.fired && cand.Value > m.threshold {
		m.fired = true
		cb = m.cb
	}
	m.mu.Unlock()

	if cb != nil {
		cb(cand)
	}
}

// poll is the fallback strategy: sample buffered entries immediately, then
// on a fixed interval until the page load event fires, then once more after
// a settle delay. Ceasing to poll is not a state transition; the monitor
// stays Observing for the callback's sake.
func (m *Monitor) poll(ctx context.Context) {
	m.sampleBuffered(ctx)

	ticker := time.NewTicker(m.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sampleBuffered(ctx)

			loaded, err := m.source.LoadEventFired(ctx)
			if err != nil {
				// Transient; the next tick self-heals.
				logrus.Debugf("monitor: load state check failed: %v", err)
				continue
			}
			if loaded {
				select {
				case <-ctx.Done():
					return
				case <-time.After(m.SettleDelay):
				}
				m.sampleBuffered(ctx)
				return
			}
		}
	}
}

func (m *Monitor) sampleBuffered(ctx context.Context) {
	entries, err := m.source.EntriesByType(ctx, timing.KindLCP)
	if err != nil {
		logrus.Debugf("monitor: buffered lcp sample failed: %v", err)
		return
	}
	for _, e := range entries {
		m.handleEntry(e)
	}
}

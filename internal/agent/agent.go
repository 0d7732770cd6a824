// Package agent composes the LCP monitor, resource selector, and reporting
// sink into one monitoring session per page, applying the enabled and
// sampling gates.
package agent

import (
	"context"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/pagetrace/internal/config"
	"github.com/jonathan/pagetrace/internal/monitor"
	"github.com/jonathan/pagetrace/internal/report"
	"github.com/jonathan/pagetrace/internal/selector"
	"github.com/jonathan/pagetrace/internal/timing"
	"github.com/jonathan/pagetrace/internal/types"
)

// Agent owns the lifecycle of one monitoring session: monitor fires →
// selector snapshots → sink receives. The trace is a single best-effort
// report; sink failures are logged and the trace is dropped.
type Agent struct {
	cfg      *config.Config
	monitor  *monitor.Monitor
	selector *selector.Selector
	sink     report.Sink
	pageURL  string

	// sampler decides session admission; injectable for tests.
	sampler func() float64

	mu      sync.Mutex
	traceID string
	done    chan struct{}
}

// New wires an agent for one page against the given timing source and sink.
func New(cfg *config.Config, source timing.Source, sink report.Sink, pageURL string) *Agent {
	return &Agent{
		cfg:      cfg,
		monitor:  monitor.New(source),
		selector: selector.New(source, cfg.MaxResources),
		sink:     sink,
		pageURL:  pageURL,
		sampler:  rand.Float64,
		done:     make(chan struct{}),
	}
}

// Start arms the monitor unless gated off. Returns false when the agent is
// disabled or the session is not sampled; the monitor never starts in that
// case.
func (a *Agent) Start(ctx context.Context) bool {
	if !a.cfg.Enabled {
		logrus.Debug("agent: disabled, not arming")
		return false
	}
	if a.sampler() >= a.cfg.SamplingRate {
		logrus.Debugf("agent: session not sampled (rate=%v)", a.cfg.SamplingRate)
		return false
	}

	done := make(chan struct{})
	a.mu.Lock()
	a.traceID = uuid.NewString()
	a.done = done
	traceID := a.traceID
	a.mu.Unlock()

	logrus.Debugf("agent: armed, trace %s, threshold %vms", traceID, a.cfg.ThresholdMs)

	a.monitor.Start(ctx, a.cfg.ThresholdMs, func(cand types.LCPCandidate) {
		a.report(ctx, traceID, cand)
		close(done)
	})
	return true
}

// Stop tears down the monitor. Idempotent.
func (a *Agent) Stop() {
	a.monitor.Stop()
}

// Done is closed once the threshold has fired and the trace attempt
// completed for the current session.
func (a *Agent) Done() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.done
}

// CurrentLCP returns the monitor's most recent candidate.
func (a *Agent) CurrentLCP() (types.LCPCandidate, bool) {
	return a.monitor.Current()
}

func (a *Agent) report(ctx context.Context, traceID string, cand types.LCPCandidate) {
	resources := a.selector.CriticalResources(ctx, cand.HasElement)
	snap := a.selector.NavigationSnapshot(ctx)
	attrs := report.BuildAttributes(traceID, a.pageURL, cand, snap, resources)

	if !a.sink.Available() {
		logrus.Warnf("agent: reporting sink unavailable, trace %s dropped", traceID)
		return
	}
	if err := a.sink.Send(report.EventLCPTrace, attrs); err != nil {
		// One attempt only; a missed trace is acceptable loss.
		logrus.Warnf("agent: trace %s send failed, dropped: %v", traceID, err)
		return
	}
	logrus.Infof("agent: lcp %.0fms exceeded threshold %vms on %s, trace %s sent",
		cand.Value, a.cfg.ThresholdMs, a.pageURL, traceID)
}

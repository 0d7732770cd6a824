package timing

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// evalTimeout bounds every single JS evaluation against the page.
const evalTimeout = 10 * time.Second

// lcpBinding is the CDP runtime binding the injected observer script calls
// to forward live LCP entries into Go.
const lcpBinding = "__pagetraceEmit"

// observerScript is installed on every new document, before page scripts
// run. It subscribes a PerformanceObserver with buffered:true so historical
// entries are replayed through the binding, and retains the latest LCP
// element for later probing.
const observerScript = `(() => {
	try {
		const types = (typeof PerformanceObserver !== 'undefined' && PerformanceObserver.supportedEntryTypes) || [];
		if (!types.includes('largest-contentful-paint')) return;
		const obs = new PerformanceObserver((list) => {
			for (const entry of list.getEntries()) {
				window.__pagetraceLCPElement = entry.element || null;
				if (typeof window.` + lcpBinding + ` === 'function') {
					window.` + lcpBinding + `(JSON.stringify({
						name: entry.url || entry.name || '',
						entryType: entry.entryType,
						startTime: entry.startTime,
						duration: entry.duration,
						renderTime: entry.renderTime || 0,
						loadTime: entry.loadTime || 0,
						hasElement: !!entry.element
					}));
				}
			}
		});
		obs.observe({type: 'largest-contentful-paint', buffered: true});
	} catch (e) {}
})();`

// elementProbeExpr resolves the retained LCP element's src and computed
// background-image. Returns JSON null when no element is retained.
const elementProbeExpr = `(() => {
	const el = window.__pagetraceLCPElement;
	if (!el) return JSON.stringify(null);
	let bg = '';
	try { bg = getComputedStyle(el).backgroundImage || ''; } catch (e) {}
	return JSON.stringify({
		tagName: (el.tagName || '').toLowerCase(),
		src: el.currentSrc || el.src || '',
		backgroundImage: bg
	});
})()`

var _ Source = (*Session)(nil)

// SessionOptions configures the headless browser session.
type SessionOptions struct {
	Width  int
	Height int
}

// Session is a chromedp-backed Source bound to one headless Chrome page.
type Session struct {
	ctx           context.Context
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc

	mu        sync.Mutex
	nextSubID int
	subs      map[int]ObserveFunc
	scriptOK  bool
	navigated bool
}

// NewSession launches a headless Chrome, installs the LCP observer script
// on new documents, and wires the runtime binding that forwards live
// entries. Failure to install the observer degrades the session to
// buffered reads only; it is not fatal.
func NewSession(ctx context.Context, opts SessionOptions) (*Session, error) {
	if opts.Width == 0 {
		opts.Width = 1366
	}
	if opts.Height == 0 {
		opts.Height = 768
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.WindowSize(opts.Width, opts.Height),
		)...,
	)

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		ctx:           browserCtx,
		allocCancel:   allocCancel,
		browserCancel: browserCancel,
		subs:          make(map[int]ObserveFunc),
	}

	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		bc, ok := ev.(*runtime.EventBindingCalled)
		if !ok || bc.Name != lcpBinding {
			return
		}
		s.dispatch(bc.Payload)
	})

	// Start the browser process before registering the binding and script.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	err := chromedp.Run(browserCtx,
		runtime.AddBinding(lcpBinding),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(observerScript).Do(ctx)
			return err
		}),
	)
	if err != nil {
		logrus.Warnf("timing: failed to install lcp observer script, live observation disabled: %v", err)
	} else {
		s.scriptOK = true
	}

	return s, nil
}

// Close releases the browser and allocator.
func (s *Session) Close() {
	if s.browserCancel != nil {
		s.browserCancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
}

// Navigate loads the given URL and waits for the document body to be ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := chromedp.Run(s.ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	s.mu.Lock()
	s.navigated = true
	s.mu.Unlock()
	return nil
}

// dispatch parses a binding payload and fans it out to live subscribers.
func (s *Session) dispatch(payload string) {
	var entry Entry
	if err := json.Unmarshal([]byte(payload), &entry); err != nil {
		logrus.Debugf("timing: dropping malformed observer payload: %v", err)
		return
	}
	entry.EntryType = KindLCP

	s.mu.Lock()
	fns := make([]ObserveFunc, 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(entry)
	}
}

// evalContext derives the evaluation context: bounded by evalTimeout on the
// session's browser context, and additionally cancelled when the caller's
// context is. chromedp needs the browser context for target routing, so the
// caller's cancellation is bridged in rather than used directly.
func evalContext(base, caller context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithTimeout(base, evalTimeout)
	stop := context.AfterFunc(caller, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

// eval runs a JS expression whose result is a JSON.stringify'd value and
// unmarshals it into out.
func (s *Session) eval(ctx context.Context, expr string, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := evalContext(s.ctx, ctx)
	defer cancel()

	var raw string
	if err := chromedp.Run(runCtx, chromedp.Evaluate(expr, &raw)); err != nil {
		return fmt.Errorf("page evaluation failed: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("failed to parse page evaluation result: %w", err)
	}
	return nil
}

// EntriesByType reads all buffered performance entries of the given kind.
func (s *Session) EntriesByType(ctx context.Context, kind string) ([]Entry, error) {
	expr := fmt.Sprintf(`JSON.stringify(performance.getEntriesByType(%q).map((e) => ({
		name: e.url || e.name || '',
		entryType: e.entryType,
		startTime: e.startTime,
		duration: e.duration,
		renderTime: e.renderTime || 0,
		loadTime: e.loadTime || 0,
		transferSize: e.transferSize || 0,
		encodedBodySize: e.encodedBodySize || 0,
		decodedBodySize: e.decodedBodySize || 0,
		initiatorType: e.initiatorType || '',
		hasElement: !!e.element
	})))`, kind)

	var entries []Entry
	if err := s.eval(ctx, expr, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ObserverSupported reports whether the page's PerformanceObserver can
// deliver entries of the given kind, and whether the observer script was
// successfully installed.
func (s *Session) ObserverSupported(ctx context.Context, kind string) (bool, error) {
	if !s.scriptOK {
		return false, nil
	}
	expr := fmt.Sprintf(`JSON.stringify(typeof PerformanceObserver !== 'undefined' &&
		(PerformanceObserver.supportedEntryTypes || []).includes(%q))`, kind)

	var supported bool
	if err := s.eval(ctx, expr, &supported); err != nil {
		return false, err
	}
	return supported, nil
}

// Observe subscribes fn to live entries. Only largest-contentful-paint is
// wired through the injected observer. Buffered entries are replayed
// best-effort before live delivery begins; repeats are harmless under the
// monitor's last-write-wins semantics.
func (s *Session) Observe(ctx context.Context, kind string, fn ObserveFunc) (func(), error) {
	if kind != KindLCP {
		return nil, fmt.Errorf("live observation not available for entry kind %q", kind)
	}
	if !s.scriptOK {
		return nil, fmt.Errorf("lcp observer script is not installed")
	}

	if buffered, err := s.EntriesByType(ctx, kind); err == nil {
		for _, e := range buffered {
			fn(e)
		}
	}

	s.mu.Lock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}, nil
}

// LoadEventFired reports whether the target document has finished loading.
// Before a navigation commits the tab shows about:blank, whose readyState is
// already complete; that must not count, or a poller armed ahead of a slow
// navigation would take its settle sample against the wrong document and
// cease early.
func (s *Session) LoadEventFired(ctx context.Context) (bool, error) {
	s.mu.Lock()
	navigated := s.navigated
	s.mu.Unlock()
	if !navigated {
		return false, nil
	}

	var loaded bool
	if err := s.eval(ctx, `JSON.stringify(document.readyState === 'complete')`, &loaded); err != nil {
		return false, err
	}
	return loaded, nil
}

// NavigationTiming reads the legacy navigation timing fields. The values
// are absolute epoch milliseconds; callers compute offsets.
func (s *Session) NavigationTiming(ctx context.Context) (NavigationTiming, error) {
	const expr = `JSON.stringify({
		navigationStart: performance.timing.navigationStart,
		domContentLoadedEventEnd: performance.timing.domContentLoadedEventEnd,
		loadEventEnd: performance.timing.loadEventEnd
	})`

	var nav NavigationTiming
	if err := s.eval(ctx, expr, &nav); err != nil {
		return NavigationTiming{}, err
	}
	return nav, nil
}

// LCPElementProbe resolves the element retained by the observer script.
func (s *Session) LCPElementProbe(ctx context.Context) (ElementProbe, bool, error) {
	var probe *ElementProbe
	if err := s.eval(ctx, elementProbeExpr, &probe); err != nil {
		return ElementProbe{}, false, err
	}
	if probe == nil {
		return ElementProbe{}, false, nil
	}
	return *probe, true, nil
}

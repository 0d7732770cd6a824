package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/pagetrace/internal/agent"
	"github.com/jonathan/pagetrace/internal/config"
	"github.com/jonathan/pagetrace/internal/report"
	"github.com/jonathan/pagetrace/internal/timing"
)

var traceCmd = &cobra.Command{
	Use:   "trace <url>...",
	Short: "Monitor pages for LCP threshold crossings and report traces",
	Long:  "Opens each URL in a headless Chrome session, monitors the largest-contentful-paint signal, and reports a timing trace to the configured sink the first time the value strictly exceeds the threshold.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTrace,
}

var (
	traceConfigPath   string
	traceThresholdMs  float64
	traceSamplingRate float64
	traceMaxResources int
	traceCollectorURL string
	traceNATSURL      string
	traceNATSSubject  string
	traceTimeoutMs    int
	traceDebug        bool
	traceConcurrency  int
)

func init() {
	traceCmd.Flags().StringVarP(&traceConfigPath, "config", "c", "", "Path to JSON config file")
	traceCmd.Flags().Float64Var(&traceThresholdMs, "threshold", 2500, "LCP threshold in milliseconds (strictly exceeded)")
	traceCmd.Flags().Float64Var(&traceSamplingRate, "sampling", 1.0, "Fraction of sessions to sample, 0 to 1")
	traceCmd.Flags().IntVar(&traceMaxResources, "max-resources", 10, "Maximum critical resources per trace (1-100)")
	traceCmd.Flags().StringVar(&traceCollectorURL, "collector-url", "", "HTTP collector endpoint for trace events")
	traceCmd.Flags().StringVar(&traceNATSURL, "nats-url", "", "NATS server URL for trace events")
	traceCmd.Flags().StringVar(&traceNATSSubject, "nats-subject", "pagetrace.lcp", "NATS subject for trace events")
	traceCmd.Flags().IntVar(&traceTimeoutMs, "timeout", 30000, "Per-page wait for a threshold crossing (ms)")
	traceCmd.Flags().BoolVar(&traceDebug, "debug", false, "Enable debug logging")
	traceCmd.Flags().IntVar(&traceConcurrency, "concurrency", 2, "Maximum concurrent page sessions")

	rootCmd.AddCommand(traceCmd)
}

func runTrace(cmd *cobra.Command, args []string) error {
	raw := config.Default()
	if traceConfigPath != "" {
		loaded, err := config.Load(traceConfigPath)
		if err != nil {
			return err
		}
		raw = loaded
	}

	// CLI flags win over file values when explicitly set.
	flags := cmd.Flags()
	if flags.Changed("threshold") {
		raw.ThresholdMs = traceThresholdMs
	}
	if flags.Changed("sampling") {
		raw.SamplingRate = traceSamplingRate
	}
	if flags.Changed("max-resources") {
		raw.MaxResources = traceMaxResources
	}
	if flags.Changed("collector-url") {
		raw.CollectorURL = traceCollectorURL
	}
	if flags.Changed("nats-url") {
		raw.NATSURL = traceNATSURL
	}
	if flags.Changed("nats-subject") {
		raw.NATSSubject = traceNATSSubject
	}
	if flags.Changed("timeout") {
		raw.PageTimeoutMs = traceTimeoutMs
	}
	if traceDebug {
		raw.DebugMode = true
	}

	cfg, err := config.New(raw)
	if err != nil {
		return err
	}
	if cfg.DebugMode {
		logrus.SetLevel(logrus.DebugLevel)
	}

	sink, closeSink, err := buildSink(cfg)
	if err != nil {
		return err
	}
	defer closeSink()

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(traceConcurrency)
	for _, url := range args {
		g.Go(func() error {
			return tracePage(ctx, cfg, sink, url)
		})
	}
	return g.Wait()
}

// buildSink selects the sink adapter from the configuration: NATS wins over
// the HTTP collector; with neither configured, traces go to the log.
func buildSink(cfg *config.Config) (report.Sink, func(), error) {
	if cfg.NATSURL != "" {
		sink, err := report.NewNATSSink(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return nil, nil, fmt.Errorf("nats sink setup failed: %w", err)
		}
		return sink, sink.Close, nil
	}
	if cfg.CollectorURL != "" {
		return report.NewHTTPSink(cfg.CollectorURL), func() {}, nil
	}
	return report.LogSink{}, func() {}, nil
}

// tracePage runs one monitoring session: launch a browser, arm the agent,
// navigate, and wait for a threshold crossing or the page timeout.
func tracePage(ctx context.Context, cfg *config.Config, sink report.Sink, url string) error {
	session, err := timing.NewSession(ctx, timing.SessionOptions{
		Width:  cfg.ViewportWidth,
		Height: cfg.ViewportHeight,
	})
	if err != nil {
		return fmt.Errorf("browser session for %s: %w", url, err)
	}
	defer session.Close()

	ag := agent.New(cfg, session, sink, url)
	if !ag.Start(ctx) {
		logrus.Infof("session for %s gated off (disabled or not sampled)", url)
		return nil
	}
	defer ag.Stop()

	if err := session.Navigate(ctx, url); err != nil {
		return err
	}

	select {
	case <-ag.Done():
		return nil
	case <-time.After(cfg.PageTimeout()):
		if cand, ok := ag.CurrentLCP(); ok {
			logrus.Infof("no threshold crossing on %s (last lcp %.0fms, threshold %vms)",
				url, cand.Value, cfg.ThresholdMs)
		} else {
			logrus.Infof("no lcp observed on %s", url)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

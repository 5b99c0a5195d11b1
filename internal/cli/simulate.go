package cli

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/gxo-labs/trialkit/internal/config"
	"github.com/gxo-labs/trialkit/internal/engine"
	"github.com/gxo-labs/trialkit/internal/events"
	"github.com/gxo-labs/trialkit/internal/logger"
	"github.com/gxo-labs/trialkit/internal/loop"
	"github.com/gxo-labs/trialkit/internal/metrics"
	"github.com/gxo-labs/trialkit/internal/module"
	"github.com/gxo-labs/trialkit/internal/simulate"
	"github.com/gxo-labs/trialkit/internal/state"
	intSurface "github.com/gxo-labs/trialkit/internal/surface"
	"github.com/gxo-labs/trialkit/internal/tracing"
	trialkit "github.com/gxo-labs/trialkit/pkg/trialkit/v1"
	gxolog "github.com/gxo-labs/trialkit/pkg/trialkit/v1/log"
	gxostate "github.com/gxo-labs/trialkit/pkg/trialkit/v1/state"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/surface"
)

type simulateOptions struct {
	sessionPath string
	logLevel    string
	logFormat   string
	output      string
	frames      bool
	metricsAddr string
	seed        int64
	iti         time.Duration
	timeout     time.Duration
	storePath   string
}

// scriptedSurface is a surface the driver can inject input into.
type scriptedSurface interface {
	surface.Surface
	simulate.Injector
}

func (a *App) newSimulateCmd() *cobra.Command {
	opts := &simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a session against its scripted input",
		Long: `Run every trial of a session in real time, replaying each trial's
scripted key presses and clicks relative to stimulus onset, and print the
session report.

Trials without a script receive no input and end on their deadline. A trial
with neither a script nor a deadline never ends; use --timeout to bound it.

Spans are exported over OTLP as configured by the standard OTEL_*
environment variables. Set OTEL_SDK_DISABLED=true to turn tracing off.

Examples:
  trialkit simulate -s session.yaml
  trialkit simulate -s session.yaml --frames -o json
  trialkit simulate -s session.yaml --metrics-addr :9090 --timeout 2m
  trialkit simulate -s session.yaml --store results.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.logFormat != "text" && opts.logFormat != "json" {
				return &ExitError{Code: ExitUsageError, Err: fmt.Errorf("--log-format must be 'text' or 'json'")}
			}
			if !validOutput(opts.output) {
				return &ExitError{Code: ExitUsageError, Err: fmt.Errorf("--output must be 'text', 'json' or 'yaml'")}
			}
			if opts.iti < 0 {
				return &ExitError{Code: ExitUsageError, Err: fmt.Errorf("--iti cannot be negative")}
			}
			return a.simulateSession(cmd.Context(), opts, cmd.Flags().Changed("seed"))
		},
	}
	cmd.Flags().StringVarP(&opts.sessionPath, "session", "s", "", "Path to the session YAML file (required)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", DefaultLogLevel, "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&opts.logFormat, "log-format", DefaultLogFmt, "Log format (text, json)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "text", "Report format (text, json, yaml)")
	cmd.Flags().BoolVar(&opts.frames, "frames", false, "Print every surface change to stderr")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "Probe jitter seed for sessions that do not set one")
	cmd.Flags().DurationVar(&opts.iti, "iti", 0, "Inter-trial interval for sessions without pacing")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Abort the session after this long (0 = no limit)")
	cmd.Flags().StringVar(&opts.storePath, "store", "", "Append result records to this SQLite database (default: in memory)")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func (a *App) simulateSession(ctx context.Context, opts *simulateOptions, seedSet bool) error {
	log := logger.NewLogger(opts.logLevel, opts.logFormat, a.stderr).With("trialkit_version", Version)

	session, raw, err := config.LoadSessionFromFile(opts.sessionPath, module.DefaultStaticRegistryGetter)
	if err != nil {
		log.Errorf("Failed to load session: %v", err)
		return &ExitError{Code: ExitFailure, Err: err}
	}
	if !session.HasScripts() {
		log.Warnf("Session '%s' has no scripted input, every trial ends on its deadline.", session.Name)
	}

	store, err := openResultStore(opts.storePath, log)
	if err != nil {
		log.Errorf("Failed to open result store: %v", err)
		return &ExitError{Code: ExitFailure, Err: err}
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warnf("Error closing result store: %v", err)
		}
	}()

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	if opts.timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, opts.timeout)
		defer cancelTimeout()
	}

	sched := loop.New(log)
	loopCtx, stopLoop := context.WithCancel(context.Background())
	go func() { _ = sched.Run(loopCtx) }()

	var surf scriptedSurface = intSurface.NewHeadless()
	if opts.frames {
		surf = intSurface.NewConsole(a.stderr, sched.Now)
	}

	metricsProvider := metrics.NewProcessRegistryProvider()
	bus := events.NewChannelEventBus(DefaultEventBusSize, log)
	listener, err := events.NewMetricsEventListener(bus, metricsProvider.Registry(), log)
	if err != nil {
		stopLoop()
		return &ExitError{Code: ExitFailure, Err: err}
	}
	listenerDone := make(chan struct{})
	go func() {
		defer close(listenerDone)
		listener.Start(context.Background())
	}()
	driver := simulate.NewDriver(session, sched, surf, log)

	tracerProvider, err := tracing.NewProviderFromEnv(ctx, log)
	if err != nil {
		log.Warnf("Failed to initialize tracing from environment: %v. Using NoOp tracer.", err)
		tracerProvider = tracing.NewNoOpProvider()
	}
	if !tracerProvider.IsEffectivelyNoOp() {
		log.Debugf("Trial spans are exported over OTLP.")
	}

	seed := time.Now().UnixNano()
	if seedSet {
		seed = opts.seed
	}
	eng, err := engine.NewEngine(log,
		trialkit.WithScheduler(sched),
		trialkit.WithSurface(surf),
		trialkit.WithEventBus(events.NewFanoutBus(driver, bus)),
		trialkit.WithResultStore(store),
		trialkit.WithMetricsRegistryProvider(metricsProvider),
		trialkit.WithTracerProvider(tracerProvider),
		trialkit.WithRandSource(rand.New(rand.NewSource(seed))),
		trialkit.WithInterTrialInterval(opts.iti),
	)
	if err != nil {
		stopLoop()
		bus.Close()
		log.Errorf("Failed to create engine: %v", err)
		return &ExitError{Code: ExitFailure, Err: err}
	}

	stopMetrics := a.serveMetrics(opts.metricsAddr, metricsProvider, log)

	log.Infof("Simulating session '%s' (%d trials)", session.Name, len(session.Trials))
	report, runErr := eng.RunSession(runCtx, raw)

	// The loop goes first so no trial callback can emit on a closed bus.
	stopLoop()
	<-sched.Done()
	bus.Close()
	<-listenerDone
	stopMetrics()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warnf("Error shutting down tracer provider: %v", err)
	}
	if missed := driver.Missed(); missed > 0 {
		log.Warnf("%d scripted input(s) reached no listener.", missed)
	}

	if err := writeReport(a.stdout, opts.output, report); err != nil {
		log.Errorf("Failed to write report: %v", err)
		return &ExitError{Code: ExitFailure, Err: err}
	}
	return exitFor(ctx, runCtx, runErr, log)
}

// openResultStore returns the SQLite store at path, or an in-memory store
// when path is empty.
func openResultStore(path string, log gxolog.Logger) (gxostate.ResultStore, error) {
	if path == "" {
		return state.NewMemoryResultStore(), nil
	}
	log.Infof("Appending result records to %s", path)
	return state.NewSQLiteResultStore(path, log)
}

// serveMetrics starts a Prometheus endpoint when addr is set and returns a
// function that shuts it down.
func (a *App) serveMetrics(addr string, provider *metrics.PrometheusRegistryProvider, log gxolog.Logger) func() {
	if addr == "" {
		return func() {}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(provider.Registry(), promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Infof("Serving metrics on %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Metrics server failed: %v", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// exitFor picks the exit code: interrupted by a signal, timed out, failed,
// or success.
func exitFor(parent, runCtx context.Context, runErr error, log gxolog.Logger) error {
	switch {
	case runErr == nil:
		log.Infof("Session completed successfully.")
		return nil
	case parent.Err() != nil:
		log.Warnf("Session interrupted by signal.")
		return &ExitError{Code: ExitSigInt, Err: runErr}
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		log.Errorf("Session timed out.")
		return &ExitError{Code: ExitTimeout, Err: runErr}
	default:
		log.Errorf("Session failed: %v", runErr)
		return &ExitError{Code: ExitFailure, Err: runErr}
	}
}

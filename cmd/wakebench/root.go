package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/MrWong99/wakebench/internal/config"
	"github.com/MrWong99/wakebench/internal/harness"
	"github.com/MrWong99/wakebench/internal/health"
	"github.com/MrWong99/wakebench/internal/history"
	"github.com/MrWong99/wakebench/internal/history/postgres"
	"github.com/MrWong99/wakebench/internal/observe"
	"github.com/MrWong99/wakebench/pkg/provider/kws"
)

// defaultConfigPath is read when --config is not given and the file exists.
const defaultConfigPath = "wakebench.yaml"

// Environment overrides, typically set in .env.
const (
	envConfig      = "WAKEBENCH_CONFIG"
	envPostgresDSN = "WAKEBENCH_POSTGRES_DSN"
	envORTLibrary  = "WAKEBENCH_ORT_LIBRARY"
)

// cli holds the flag values and the state shared by all subcommands.
type cli struct {
	out io.Writer

	// ── global flags ──
	configPath  string
	logLevel    string
	metricsAddr string
	format      string

	// ── harness overrides ──
	model       string
	threshold   float64
	deviceFrame int
	window      int
	backends    []string
	keywords    []string

	registry *config.Registry
	metrics  *observe.Metrics
	lastRun  health.LastRun

	mu         sync.Mutex
	cfg        *config.Config
	store      history.Store
	persistent bool

	closers []func(context.Context) error
}

func newCLI(out io.Writer) *cli {
	c := &cli{out: out, registry: config.NewRegistry()}
	registerBuiltinBackends(c.registry)
	return c
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "wakebench",
		Short: "Replay recordings through the wake-word pipeline and report detections",
		Long: `wakebench feeds WAV recordings to a keyword-spotting model exactly the way
the embedded firmware does: 512-sample driver reads, accumulated into
1280-sample analysis windows, the last window zero-padded. Backends are tried
in preference order (tflite, then onnx by default) and the first that loads
the model scores every window.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.setup(cmd); err != nil {
				return &exitError{code: exitAborted, err: err}
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "config file (default: $"+envConfig+" or ./"+defaultConfigPath+" if present)")
	pf.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&c.metricsAddr, "metrics-addr", "", "serve /metrics, /healthz and /readyz on this address")
	pf.StringVarP(&c.format, "format", "o", "text", "output format: text, json, yaml")

	pf.StringVarP(&c.model, "model", "m", "", "model file or pretrained model name")
	pf.Float64Var(&c.threshold, "threshold", config.DefaultThreshold, "detection threshold; scores must exceed it")
	pf.IntVar(&c.deviceFrame, "device-frame", config.DefaultDeviceFrameSize, "samples per simulated driver read")
	pf.IntVar(&c.window, "window", config.DefaultAnalysisWindowSize, "samples per analysis window")
	pf.StringSliceVar(&c.backends, "backend", nil, "backend preference order, e.g. tflite,onnx")
	pf.StringSliceVar(&c.keywords, "keyword", nil, "keyword labels for the model outputs, in order")

	root.AddCommand(
		c.runCmd(),
		c.batchCmd(),
		c.watchCmd(),
		c.backendsCmd(),
		c.historyCmd(),
	)
	return root
}

// ── Setup ─────────────────────────────────────────────────────────────────────

// setup loads configuration, applies flag overrides and starts the shared
// services every subcommand needs.
func (c *cli) setup(cmd *cobra.Command) error {
	switch c.format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q; valid: text, json, yaml", c.format)
	}

	path := c.resolveConfigPath()
	cfg, err := c.loadConfig(path)
	if err != nil {
		return err
	}
	if err := c.applyOverrides(cmd.Flags(), cfg); err != nil {
		return err
	}
	c.configPath = path
	c.cfg = cfg

	slog.SetDefault(newLogger(cfg.LogLevel))
	slog.Debug("configuration loaded",
		"config", path,
		"model", cfg.Model,
		"backends", cfg.BackendNames(),
		"device_frame_size", cfg.Harness.DeviceFrameSize,
		"analysis_window_size", cfg.Harness.AnalysisWindowSize,
		"threshold", cfg.Harness.DetectionThreshold,
	)

	ctx := cmd.Context()
	if cfg.Metrics.ListenAddr != "" || cfg.LogLevel == config.LogDebug {
		pc := observe.ProviderConfig{ServiceName: "wakebench"}
		if cfg.LogLevel == config.LogDebug {
			pc.SpanLogger = slog.Default()
		}
		shutdown, err := observe.InitProvider(ctx, pc)
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		c.closers = append(c.closers, shutdown)
	}
	c.metrics = observe.DefaultMetrics()

	c.openHistory(ctx, cfg.History.PostgresDSN)

	if cfg.Metrics.ListenAddr != "" {
		if err := c.serveMetrics(cfg.Metrics.ListenAddr); err != nil {
			return err
		}
	}
	return nil
}

func (c *cli) resolveConfigPath() string {
	if c.configPath != "" {
		return c.configPath
	}
	if p := os.Getenv(envConfig); p != "" {
		return p
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}

func (c *cli) loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file %q not found", path)
		}
		return nil, err
	}
	return cfg, nil
}

// applyOverrides copies explicitly set flags and environment overrides onto
// cfg and revalidates it.
func (c *cli) applyOverrides(flags *pflag.FlagSet, cfg *config.Config) error {
	if flags.Changed("log-level") {
		cfg.LogLevel = config.LogLevel(c.logLevel)
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.ListenAddr = c.metricsAddr
	}
	if flags.Changed("model") {
		cfg.Model = c.model
	}
	if flags.Changed("threshold") {
		cfg.Harness.DetectionThreshold = c.threshold
	}
	if flags.Changed("device-frame") {
		cfg.Harness.DeviceFrameSize = c.deviceFrame
	}
	if flags.Changed("window") {
		cfg.Harness.AnalysisWindowSize = c.window
	}
	if flags.Changed("keyword") {
		cfg.Keywords = c.keywords
	}
	if flags.Changed("backend") {
		cfg.Backends = reorderBackends(cfg.Backends, c.backends)
	}
	if dsn := os.Getenv(envPostgresDSN); dsn != "" {
		cfg.History.PostgresDSN = dsn
	}
	return config.Validate(cfg)
}

// reorderBackends returns the entries named by names, in that order. Entries
// already configured keep their options.
func reorderBackends(entries []config.BackendEntry, names []string) []config.BackendEntry {
	out := make([]config.BackendEntry, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		entry := config.BackendEntry{Name: name}
		for _, e := range entries {
			if e.Name == name {
				entry = e
				break
			}
		}
		out = append(out, entry)
	}
	return out
}

// openHistory connects the configured history store. Without a DSN, or when
// the database is unreachable, runs are kept in memory.
func (c *cli) openHistory(ctx context.Context, dsn string) {
	if dsn != "" {
		store, err := postgres.NewStore(ctx, dsn)
		if err == nil {
			c.store, c.persistent = store, true
			c.closers = append(c.closers, func(context.Context) error { return store.Close() })
			return
		}
		slog.Warn("history database unavailable, keeping history in memory", "err", err)
	}
	c.store = history.NewMemStore()
}

// serveMetrics starts the metrics and health endpoint in the background.
func (c *cli) serveMetrics(addr string) error {
	checkers := []health.Checker{c.lastRun.Checker()}
	if p, ok := c.store.(health.Pinger); ok {
		checkers = append(checkers, health.PingChecker("history", p))
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", observe.InstrumentHandler(c.metrics, "/metrics", promhttp.Handler()))
	health.New(checkers...).Register(mux, func(route string, next http.Handler) http.Handler {
		return observe.InstrumentHandler(c.metrics, route, next)
	})

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "err", err)
		}
	}()
	slog.Info("metrics endpoint listening", "addr", ln.Addr().String())
	c.closers = append(c.closers, srv.Shutdown)
	return nil
}

// close releases everything setup started, in reverse order.
func (c *cli) close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// ── Shared helpers ────────────────────────────────────────────────────────────

// currentConfig returns the active configuration. Watch mode replaces it on
// reload.
func (c *cli) currentConfig() *config.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

func (c *cli) setConfig(cfg *config.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
}

// backendList builds the backend preference list for cfg.
func (c *cli) backendList(cfg *config.Config) ([]kws.Backend, error) {
	bs, err := c.registry.Backends(cfg)
	if err != nil {
		return nil, err
	}
	if len(bs) == 0 {
		return nil, errors.New("no backends configured")
	}
	return bs, nil
}

// harnessOptions returns the options every run shares.
func (c *cli) harnessOptions() []harness.Option {
	return []harness.Option{
		harness.WithMetrics(c.metrics),
		harness.WithHistory(c.store),
		harness.WithObserver(harness.LogObserver{}),
	}
}

// requireModel fails when no model reference is configured. The energy
// backend alone can run without one.
func requireModel(cfg *config.Config) error {
	if cfg.Model != "" {
		return nil
	}
	for _, b := range cfg.Backends {
		if b.Name != string(kws.KindEnergy) {
			return errors.New("no model given; use --model or set model in the config")
		}
	}
	return nil
}

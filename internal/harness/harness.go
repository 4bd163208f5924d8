// Package harness drives one wake-word evaluation run: it loads a recording,
// selects an inference backend, replays the recording through the device's
// frame and window buffering and reports which keywords were detected.
//
// A run moves through the states Idle, SourceLoaded, BackendSelected,
// Streaming and Reported. Any failure aborts the run with a [*RunError]
// carrying the state it failed in and the partial report.
//
// Streaming is single-threaded and synchronous: frames are produced in
// order, every window is scored as soon as the accumulator emits it, and no
// window is scored before the previous one has been evaluated. Independent
// runs may execute concurrently; see [RunBatch].
package harness

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/wakebench/internal/detect"
	"github.com/MrWong99/wakebench/internal/history"
	"github.com/MrWong99/wakebench/internal/observe"
	"github.com/MrWong99/wakebench/internal/resilience"
	"github.com/MrWong99/wakebench/pkg/audio"
	"github.com/MrWong99/wakebench/pkg/provider/kws"
)

// Result is the outcome of a completed run.
type Result struct {
	RunID     string        `json:"run_id" yaml:"run_id"`
	Source    string        `json:"source" yaml:"source"`
	Model     kws.ModelRef  `json:"model" yaml:"model"`
	Backend   kws.Kind      `json:"backend" yaml:"backend"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	Report    detect.Report `json:"report" yaml:"report"`
}

// Success reports whether the run heard the wake word.
func (r *Result) Success() bool { return detect.Success(r.Report) }

// Option is a functional option for [New].
type Option func(*Harness)

// WithObserver sets the progress observer. Defaults to [NopObserver].
func WithObserver(o Observer) Option {
	return func(h *Harness) { h.observer = o }
}

// WithMetrics sets the metric instruments. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(h *Harness) { h.metrics = m }
}

// WithHistory persists every run, completed or aborted, to store. A failed
// save is logged and does not fail the run.
func WithHistory(store history.Store) Option {
	return func(h *Harness) { h.history = store }
}

// Harness runs one source against one model. Run may be called repeatedly,
// for example when the model file changes, but not concurrently.
type Harness struct {
	cfg      Config
	src      Source
	backends []kws.Backend

	observer  Observer
	metrics   *observe.Metrics
	history   history.Store
	conformer *audio.Conformer
}

// New validates cfg and returns a Harness that will score src with the first
// backend in backends able to load cfg.Model.
func New(cfg Config, src Source, backends []kws.Backend, opts ...Option) (*Harness, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("harness: source is required")
	}
	h := &Harness{
		cfg:       cfg,
		src:       src,
		backends:  backends,
		observer:  NopObserver{},
		conformer: &audio.Conformer{SampleRate: cfg.SampleRate},
	}
	for _, o := range opts {
		o(h)
	}
	if h.metrics == nil {
		h.metrics = observe.DefaultMetrics()
	}
	return h, nil
}

// Config returns the run configuration.
func (h *Harness) Config() Config { return h.cfg }

// run carries the mutable state of one Run invocation.
type run struct {
	id      string
	state   State
	backend kws.Kind
	window  int
	eval    *detect.Evaluator
}

// Run executes one complete evaluation. On failure the error is a
// [*RunError] and the result is nil.
func (h *Harness) Run(ctx context.Context) (*Result, error) {
	started := time.Now()
	r := &run{
		id:     uuid.NewString(),
		window: -1,
		eval:   detect.NewEvaluator(h.cfg.Threshold),
	}
	source := sourceName(h.src)

	ctx, span := observe.StartSpan(ctx, "harness.run", trace.WithAttributes(
		attribute.String("run.id", r.id),
		attribute.String("source", source),
		attribute.String("model", h.cfg.Model.String()),
	))
	defer span.End()

	h.metrics.ActiveRuns.Add(ctx, 1)
	defer h.metrics.ActiveRuns.Add(ctx, -1)

	log := observe.Logger(ctx).With("run_id", r.id, "source", source, "model", h.cfg.Model.String())

	report, err := h.execute(ctx, r, log)
	elapsed := time.Since(started)

	rec := history.Record{
		RunID:     r.id,
		StartedAt: started,
		Duration:  elapsed,
		Source:    source,
		Model:     h.cfg.Model.String(),
		Backend:   r.backend,
		Report:    report,
	}

	status := observe.StatusSilent
	switch {
	case err != nil:
		status = observe.StatusFailed
		rec.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("run aborted", "state", r.state.String(), "err", err)
	case report.Detected():
		status = observe.StatusDetected
	}
	h.metrics.RecordRun(ctx, status, elapsed)
	span.SetAttributes(
		attribute.String("backend", string(r.backend)),
		attribute.Int("windows", report.Windows),
		attribute.Int("detections", len(report.Events)),
	)

	if h.history != nil {
		if serr := h.history.Save(ctx, rec); serr != nil {
			log.Warn("failed to save run history", "err", serr)
		}
	}

	if err != nil {
		return nil, err
	}
	log.Info("run complete",
		"backend", string(r.backend),
		"windows", report.Windows,
		"detections", len(report.Events),
		"max_score", report.Stats.Max,
		"duration", elapsed,
	)
	return &Result{
		RunID:     r.id,
		Source:    source,
		Model:     h.cfg.Model,
		Backend:   r.backend,
		StartedAt: started,
		Duration:  elapsed,
		Report:    report,
	}, nil
}

// execute walks the state machine. The returned report is the final report
// on success and the partial report on failure.
func (h *Harness) execute(ctx context.Context, r *run, log *slog.Logger) (detect.Report, error) {
	fail := func(err error) (detect.Report, error) {
		partial := r.eval.Snapshot()
		return partial, &RunError{
			State:   r.state,
			Backend: r.backend,
			Window:  r.window,
			Err:     err,
			Partial: partial,
		}
	}

	// ── 1. Source ────────────────────────────────────────────────────────
	seq, err := h.loadSource(ctx)
	if err != nil {
		return fail(err)
	}
	h.transition(r, StateSourceLoaded)
	log.Debug("source loaded",
		"samples", seq.Len(),
		"duration", seq.Duration(),
		"expected_windows", audio.WindowCount(seq.Len(), h.cfg.DeviceFrameSize, h.cfg.AnalysisWindowSize),
	)

	// ── 2. Backend ───────────────────────────────────────────────────────
	scorer, kind, err := h.selectBackend(ctx)
	if err != nil {
		return fail(err)
	}
	defer func() {
		if cerr := scorer.Close(); cerr != nil {
			log.Warn("failed to close scorer", "backend", string(kind), "err", cerr)
		}
	}()
	r.backend = kind
	h.transition(r, StateBackendSelected)
	log.Debug("backend selected", "backend", string(kind), "keywords", scorer.Keywords())

	// ── 3. Streaming ─────────────────────────────────────────────────────
	h.transition(r, StateStreaming)
	acc := audio.NewAccumulator(h.cfg.AnalysisWindowSize)
	emit := func(w audio.Window) error {
		r.window = w.Index
		return h.scoreWindow(ctx, r, scorer, w)
	}
	for frame := range audio.Frames(seq.Samples, h.cfg.DeviceFrameSize) {
		if err := acc.Ingest(frame, emit); err != nil {
			return fail(err)
		}
	}
	if err := acc.Flush(emit); err != nil {
		return fail(err)
	}
	r.window = -1

	// ── 4. Report ────────────────────────────────────────────────────────
	report := r.eval.Finalize()
	h.transition(r, StateReported)
	return report, nil
}

func (h *Harness) loadSource(ctx context.Context) (seq audio.Sequence, err error) {
	ctx, span := observe.StartSpan(ctx, "harness.load_source")
	defer observe.EndSpan(span, &err)

	seq, err = h.src.Load(ctx)
	if err != nil {
		return audio.Sequence{}, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	if seq.SampleRate <= 0 {
		return audio.Sequence{}, fmt.Errorf("%w: invalid sample rate %d", ErrSourceUnavailable, seq.SampleRate)
	}
	seq = h.conformer.Conform(seq)
	span.SetAttributes(attribute.Int("samples", seq.Len()))
	return seq, nil
}

func (h *Harness) selectBackend(ctx context.Context) (_ kws.Scorer, _ kws.Kind, err error) {
	ctx, span := observe.StartSpan(ctx, "harness.select_backend")
	defer observe.EndSpan(span, &err)

	scorer, kind, err := resilience.SelectBackend(ctx, h.cfg.Model, h.backends,
		resilience.WithInitFailureHook(func(k kws.Kind, _ error) {
			h.metrics.RecordBackendInitFailure(ctx, string(k))
		}),
	)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrNoBackendAvailable, err)
	}
	span.SetAttributes(attribute.String("backend", string(kind)))
	return scorer, kind, nil
}

// scoreWindow runs inference on w, resolves the raw scores and feeds the
// evaluator. A backend error or an unresolvable score aborts the run.
func (h *Harness) scoreWindow(ctx context.Context, r *run, scorer kws.Scorer, w audio.Window) error {
	start := time.Now()
	raw, err := scorer.Score(ctx, w.Samples)
	h.metrics.RecordScore(ctx, string(r.backend), time.Since(start))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrScoringFailure, err)
	}
	scores, err := kws.ResolveAll(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedScoreMap, err)
	}

	offset := w.Offset(h.cfg.SampleRate)
	r.eval.Observe(offset, scores)
	for _, kw := range kws.SortedKeywords(scores) {
		if scores[kw] > h.cfg.Threshold {
			h.metrics.RecordDetection(ctx, kw)
		}
	}
	h.observer.WindowScored(r.id, w, offset, scores)
	return nil
}

func (h *Harness) transition(r *run, to State) {
	from := r.state
	r.state = to
	h.observer.StateChanged(r.id, from, to)
}

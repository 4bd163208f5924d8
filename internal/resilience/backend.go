package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrWong99/wakebench/pkg/provider/kws"
)

// errNilScorer reports a loader that returned neither a scorer nor an error.
var errNilScorer = errors.New("loader returned nil scorer")

// SelectOption configures [SelectBackend].
type SelectOption func(*selectConfig)

type selectConfig struct {
	onInitFailure func(kind kws.Kind, err error)
}

// WithInitFailureHook registers fn to be called for every backend that fails
// to load, after the failure is logged. Used to feed the init-failure metric.
func WithInitFailureHook(fn func(kind kws.Kind, err error)) SelectOption {
	return func(c *selectConfig) { c.onInitFailure = fn }
}

// SelectBackend tries each backend in order and returns the first scorer that
// loads model, together with the kind that produced it. Failed backends are
// logged at warn level and skipped. If none loads, the returned error wraps
// [ErrAllFailed] and every backend's error.
func SelectBackend(ctx context.Context, model kws.ModelRef, backends []kws.Backend, opts ...SelectOption) (kws.Scorer, kws.Kind, error) {
	var cfg selectConfig
	for _, o := range opts {
		o(&cfg)
	}

	cascade := NewCascade[kws.Loader]().OnFailure(func(name string, err error) {
		slog.Warn("backend failed, trying next", "kind", name, "model", model.String(), "err", err)
		if cfg.onInitFailure != nil {
			cfg.onInitFailure(kws.Kind(name), err)
		}
	})
	for _, b := range backends {
		cascade.Add(string(b.Kind), b.Loader)
	}

	scorer, name, err := ExecuteWithResult(cascade, func(l kws.Loader) (kws.Scorer, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if l == nil {
			return nil, errors.New("no loader configured")
		}
		s, err := l.Load(ctx, model)
		if err == nil && s == nil {
			return nil, errNilScorer
		}
		return s, err
	})
	if err != nil {
		return nil, "", fmt.Errorf("select backend for %q: %w", model, err)
	}
	return scorer, kws.Kind(name), nil
}

// Probe is the outcome of loading a model with a single backend.
type Probe struct {
	Kind     kws.Kind
	Keywords []string
	Err      error
}

// OK reports whether the backend loaded the model.
func (p Probe) OK() bool { return p.Err == nil }

// ProbeBackends attempts to load model with every backend, not only the first
// that succeeds, and closes each scorer again. Results keep the input order.
func ProbeBackends(ctx context.Context, model kws.ModelRef, backends []kws.Backend) []Probe {
	probes := make([]Probe, len(backends))
	for i, b := range backends {
		probes[i].Kind = b.Kind
		if b.Loader == nil {
			probes[i].Err = errors.New("no loader configured")
			continue
		}
		scorer, err := b.Loader.Load(ctx, model)
		if err == nil && scorer == nil {
			err = errNilScorer
		}
		if err != nil {
			probes[i].Err = err
			continue
		}
		probes[i].Keywords = scorer.Keywords()
		if err := scorer.Close(); err != nil {
			slog.Warn("closing probed scorer", "kind", b.Kind, "err", err)
		}
	}
	return probes
}

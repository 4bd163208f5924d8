// Package health provides HTTP health and readiness handlers for the
// long-running wakebench modes (batch with --metrics-addr, and watch).
//
// The package exposes two endpoints:
//
//   - /healthz: liveness; always returns 200 OK.
//   - /readyz: readiness; returns 200 only when all registered [Checker]
//     functions pass, e.g. the history database answers and the last watch
//     run did not abort.
//
// Responses are JSON objects with a top-level "status" field ("ok" or "fail")
// and a "checks" map containing the result of each named checker.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"
)

// checkTimeout is the maximum time a single readiness check may take before
// the context is cancelled.
const checkTimeout = 5 * time.Second

// Checker is a named readiness check. Check returns nil when the dependency
// is healthy and an error describing the failure otherwise.
type Checker struct {
	// Name appears as a key in the JSON response, e.g. "history".
	Name string

	// Check probes the dependency. It must respect context cancellation.
	Check func(ctx context.Context) error
}

// Pinger is implemented by dependencies that can be probed for liveness,
// such as the PostgreSQL history store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker returns a Checker named name that pings p.
func PingChecker(name string, p Pinger) Checker {
	return Checker{Name: name, Check: p.Ping}
}

// LastRun remembers the outcome of the most recent harness run so readiness
// reflects whether the current model and audio still evaluate. The zero
// value reports ready until a run fails. Safe for concurrent use.
type LastRun struct {
	mu  sync.Mutex
	err error
	at  time.Time
}

// Set records the outcome of a run. A nil err marks the run as good.
func (l *LastRun) Set(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
	l.at = time.Now()
}

// Check reports the last recorded run failure, if any.
func (l *LastRun) Check(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err == nil {
		return nil
	}
	return errors.New("run at " + l.at.Format(time.RFC3339) + " aborted: " + l.err.Error())
}

// Checker returns l as a Checker named "last_run".
func (l *LastRun) Checker() Checker {
	return Checker{Name: "last_run", Check: l.Check}
}

// result is the JSON response body for health endpoints.
type result struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves /healthz and /readyz endpoints. It is safe for concurrent
// use; the checker list is fixed at construction time.
type Handler struct {
	checkers []Checker
}

// New creates a [Handler] that evaluates the given checkers on each /readyz
// request, sequentially in the order provided.
func New(checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c}
}

// Healthz always returns 200 OK.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Status: "ok"})
}

// Readyz returns 200 only when every registered [Checker] passes. Each
// checker is given a context with a [checkTimeout] deadline derived from the
// request context.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.checkers))
	allOK := true

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			checks[c.Name] = "fail: " + err.Error()
			allOK = false
		} else {
			checks[c.Name] = "ok"
		}
	}

	res := result{
		Status: "ok",
		Checks: checks,
	}
	status := http.StatusOK
	if !allOK {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, res)
}

// Middleware wraps a route's handler, e.g. with request instrumentation.
type Middleware func(route string, next http.Handler) http.Handler

// Register adds the /healthz and /readyz routes to mux, each wrapped by mw
// when given.
func (h *Handler) Register(mux *http.ServeMux, mw ...Middleware) {
	wrap := func(route string, fn http.HandlerFunc) http.Handler {
		var handler http.Handler = fn
		for _, m := range mw {
			handler = m(route, handler)
		}
		return handler
	}
	mux.Handle("GET /healthz", wrap("/healthz", h.Healthz))
	mux.Handle("GET /readyz", wrap("/readyz", h.Readyz))
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}

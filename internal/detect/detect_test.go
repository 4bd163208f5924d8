package detect

import (
	"math"
	"slices"
	"testing"
)

func TestEvaluator_ThresholdIsStrict(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		threshold float64
		score     float64
		want      bool
	}{
		{"equal is not a detection", 0.5, 0.5, false},
		{"just above", 0.5, 0.5000001, true},
		{"below", 0.5, 0.49, false},
		{"zero threshold zero score", 0, 0, false},
		{"negative score", 0, -0.1, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			e := NewEvaluator(tc.threshold)
			e.Observe(0, map[string]float64{"hey_nap": tc.score})
			if got := e.Finalize().Detected(); got != tc.want {
				t.Errorf("Detected() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEvaluator_Stats(t *testing.T) {
	t.Parallel()
	e := NewEvaluator(0.5)
	e.Observe(0, map[string]float64{"a": 0.2, "b": 0.4})
	e.Observe(0.08, map[string]float64{"a": 0.9, "b": 0.1})
	e.Observe(0.16, map[string]float64{"a": 0.0, "b": 0.6})

	r := e.Finalize()
	want := Stats{Count: 6, Max: 0.9, Mean: 2.2 / 6, Min: 0.0}
	if r.Stats.Count != want.Count || r.Stats.Max != want.Max || r.Stats.Min != want.Min {
		t.Errorf("Stats = %+v, want %+v", r.Stats, want)
	}
	if math.Abs(r.Stats.Mean-want.Mean) > 1e-12 {
		t.Errorf("Mean = %v, want %v", r.Stats.Mean, want.Mean)
	}
	if r.Windows != 3 {
		t.Errorf("Windows = %d, want 3", r.Windows)
	}
}

func TestEvaluator_MaxBelowZero(t *testing.T) {
	t.Parallel()
	e := NewEvaluator(0.5)
	e.Observe(0, map[string]float64{"a": -0.3})
	e.Observe(0.08, map[string]float64{"a": -0.1})
	r := e.Finalize()
	if r.Stats.Max != -0.1 || r.Stats.Min != -0.3 {
		t.Errorf("Stats = %+v, want max -0.1 min -0.3", r.Stats)
	}
}

func TestEvaluator_EmptyRun(t *testing.T) {
	t.Parallel()
	r := NewEvaluator(0.5).Finalize()
	if r.Stats != (Stats{}) {
		t.Errorf("Stats = %+v, want zero", r.Stats)
	}
	if r.Windows != 0 || r.Detected() {
		t.Errorf("report = %+v, want empty", r)
	}
	if r.Events == nil {
		t.Error("Events is nil, want empty slice")
	}
	if Success(r) {
		t.Error("Success on empty run")
	}
}

func TestEvaluator_EventOrder(t *testing.T) {
	t.Parallel()
	e := NewEvaluator(0.5)
	e.Observe(0, map[string]float64{"zeta": 0.9, "alpha": 0.8, "mid": 0.7})
	e.Observe(0.08, map[string]float64{"alpha": 0.1, "zeta": 0.95})

	var got []string
	for _, ev := range e.Finalize().Events {
		got = append(got, ev.Keyword)
	}
	want := []string{"alpha", "mid", "zeta", "zeta"}
	if !slices.Equal(got, want) {
		t.Errorf("event order = %v, want %v", got, want)
	}
}

func TestEvaluator_EventOffsets(t *testing.T) {
	t.Parallel()
	e := NewEvaluator(0.5)
	e.Observe(0, map[string]float64{"hey_nap": 0.1})
	e.Observe(0.08, map[string]float64{"hey_nap": 0.7})
	e.Observe(0.16, map[string]float64{"hey_nap": 0.6})

	r := e.Finalize()
	if len(r.Events) != 2 {
		t.Fatalf("len(Events) = %d, want 2", len(r.Events))
	}
	if r.Events[0] != (Event{Offset: 0.08, Keyword: "hey_nap", Score: 0.7}) {
		t.Errorf("Events[0] = %+v", r.Events[0])
	}
	if r.Events[1].Offset != 0.16 {
		t.Errorf("Events[1].Offset = %v, want 0.16", r.Events[1].Offset)
	}
	if !Success(r) {
		t.Error("Success = false, want true")
	}
	if kw := r.Keywords(); !slices.Equal(kw, []string{"hey_nap"}) {
		t.Errorf("Keywords = %v", kw)
	}
}

func TestEvaluator_SnapshotIsIndependent(t *testing.T) {
	t.Parallel()
	e := NewEvaluator(0.5)
	e.Observe(0, map[string]float64{"a": 0.9})
	snap := e.Snapshot()
	e.Observe(0.08, map[string]float64{"a": 0.9})

	if len(snap.Events) != 1 || snap.Windows != 1 {
		t.Errorf("snapshot changed after Observe: %+v", snap)
	}
	if got := e.Finalize(); len(got.Events) != 2 {
		t.Errorf("final events = %d, want 2", len(got.Events))
	}
}

func TestEvaluator_Idempotent(t *testing.T) {
	t.Parallel()
	feed := func() Report {
		e := NewEvaluator(0.3)
		for i, s := range []float64{0.1, 0.4, 0.2, 0.35} {
			e.Observe(float64(i)*0.08, map[string]float64{"x": s, "y": 1 - s})
		}
		return e.Finalize()
	}
	a, b := feed(), feed()
	if a.Stats != b.Stats || !slices.Equal(a.Events, b.Events) {
		t.Errorf("reports differ:\n%+v\n%+v", a, b)
	}
}

package audio_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/MrWong99/wakebench/pkg/audio"
)

// ramp returns n samples whose values are 1..n (wrapping at int16 range), so
// every sample's original position can be recovered from its value.
func ramp(n int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(i%32000 + 1)
	}
	return out
}

// stream runs samples through the chunker and accumulator and returns every
// emitted window, including the flushed one.
func stream(t *testing.T, samples []int16, frameSize, windowSize int) []audio.Window {
	t.Helper()
	acc := audio.NewAccumulator(windowSize)
	var windows []audio.Window
	emit := func(w audio.Window) error {
		windows = append(windows, w)
		return nil
	}
	for frame := range audio.Frames(samples, frameSize) {
		if err := acc.Ingest(frame, emit); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
		if acc.Pending() >= windowSize {
			t.Fatalf("pending %d samples after ingest, want < %d", acc.Pending(), windowSize)
		}
	}
	if err := acc.Flush(emit); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if acc.Pending() != 0 {
		t.Fatalf("pending %d samples after flush, want 0", acc.Pending())
	}
	return windows
}

func TestAccumulator_WindowCount(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		n          int
		wantCount  int
		wantPadded bool
	}{
		{"empty", 0, 0, false},
		{"one sample", 1, 1, true},
		{"exactly two windows", 2560, 2, false},
		{"two and a half windows", 3200, 3, true},
		{"one device frame", 512, 1, true},
		// 1280 samples arrive as three 512-sample frames; the device padding
		// spills into a second window.
		{"one window of samples", 1280, 2, true},
		{"five frames", 5 * 512, 2, false},
		{"ten windows", 12800, 10, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			windows := stream(t, ramp(tc.n), 512, 1280)
			if len(windows) != tc.wantCount {
				t.Fatalf("windows = %d, want %d", len(windows), tc.wantCount)
			}
			if got := audio.WindowCount(tc.n, 512, 1280); got != tc.wantCount {
				t.Errorf("WindowCount = %d, want %d", got, tc.wantCount)
			}
			if tc.wantCount == 0 {
				return
			}
			last := windows[len(windows)-1]
			if last.Padded != tc.wantPadded {
				t.Errorf("last window padded = %v, want %v", last.Padded, tc.wantPadded)
			}
		})
	}
}

func TestAccumulator_NoLossNoDuplication(t *testing.T) {
	t.Parallel()
	sizes := []struct{ frame, window int }{
		{512, 1280},
		{480, 1280},
		{1280, 512},
		{160, 160},
		{7, 13},
	}
	for _, sz := range sizes {
		for _, n := range []int{0, 1, 6, 511, 512, 513, 1279, 1280, 2560, 3200, 9999} {
			samples := ramp(n)
			windows := stream(t, samples, sz.frame, sz.window)

			var joined []int16
			for i, w := range windows {
				if len(w.Samples) != sz.window {
					t.Fatalf("frame=%d window=%d n=%d: window %d has %d samples", sz.frame, sz.window, n, i, len(w.Samples))
				}
				if w.Index != i {
					t.Fatalf("window %d has index %d", i, w.Index)
				}
				joined = append(joined, w.Samples...)
			}
			if len(joined) < n {
				t.Fatalf("frame=%d window=%d n=%d: %d samples emitted, want at least %d", sz.frame, sz.window, n, len(joined), n)
			}
			if !slices.Equal(joined[:n], samples) {
				t.Fatalf("frame=%d window=%d n=%d: emitted samples differ from input", sz.frame, sz.window, n)
			}
			for i, s := range joined[n:] {
				if s != 0 {
					t.Fatalf("frame=%d window=%d n=%d: padding sample %d = %d, want 0", sz.frame, sz.window, n, i, s)
				}
			}
			if got, want := len(windows), audio.WindowCount(n, sz.frame, sz.window); got != want {
				t.Fatalf("frame=%d window=%d n=%d: %d windows, WindowCount says %d", sz.frame, sz.window, n, got, want)
			}
		}
	}
}

func TestAccumulator_RetainsRemainder(t *testing.T) {
	acc := audio.NewAccumulator(1280)
	var count int
	emit := func(audio.Window) error { count++; return nil }

	frame := make([]int16, 512)
	wantPending := []int{512, 1024, 256, 768, 0}
	wantCount := []int{0, 0, 1, 1, 2}
	for i := range wantPending {
		if err := acc.Ingest(frame, emit); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
		if acc.Pending() != wantPending[i] {
			t.Errorf("after frame %d: pending = %d, want %d", i+1, acc.Pending(), wantPending[i])
		}
		if count != wantCount[i] {
			t.Errorf("after frame %d: emitted = %d, want %d", i+1, count, wantCount[i])
		}
	}
	if acc.Ingested() != 5*512 {
		t.Errorf("Ingested = %d, want %d", acc.Ingested(), 5*512)
	}
	if acc.Emitted() != 2 {
		t.Errorf("Emitted = %d, want 2", acc.Emitted())
	}
}

func TestAccumulator_FlushEmptyEmitsNothing(t *testing.T) {
	acc := audio.NewAccumulator(1280)
	err := acc.Flush(func(audio.Window) error {
		t.Fatal("emit called on empty flush")
		return nil
	})
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestAccumulator_EmitErrorStopsIngest(t *testing.T) {
	acc := audio.NewAccumulator(4)
	boom := errors.New("boom")
	var calls int
	err := acc.Ingest(make([]int16, 12), func(audio.Window) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if calls != 1 {
		t.Errorf("emit called %d times, want 1", calls)
	}
	if acc.Pending() != 8 {
		t.Errorf("pending = %d, want 8", acc.Pending())
	}
}

func TestAccumulator_WindowsDoNotAliasBuffer(t *testing.T) {
	acc := audio.NewAccumulator(2)
	var windows []audio.Window
	emit := func(w audio.Window) error { windows = append(windows, w); return nil }
	_ = acc.Ingest([]int16{1, 2, 3}, emit)
	_ = acc.Ingest([]int16{4, 5, 6}, emit)

	want := [][]int16{{1, 2}, {3, 4}, {5, 6}}
	for i, w := range windows {
		if !slices.Equal(w.Samples, want[i]) {
			t.Errorf("window %d = %v, want %v", i, w.Samples, want[i])
		}
	}
}

func TestAccumulator_PanicsOnNonPositiveSize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	audio.NewAccumulator(0)
}

func TestWindow_Offset(t *testing.T) {
	tests := []struct {
		index int
		rate  int
		want  float64
	}{
		{0, 16000, 0},
		{1, 16000, 0.08},
		{2, 16000, 0.16},
		{25, 16000, 2.0},
		{3, 0, 0},
	}
	for _, tc := range tests {
		w := audio.Window{Index: tc.index, Samples: make([]int16, 1280)}
		if got := w.Offset(tc.rate); got != tc.want {
			t.Errorf("Offset(index=%d, rate=%d) = %v, want %v", tc.index, tc.rate, got, tc.want)
		}
	}
}

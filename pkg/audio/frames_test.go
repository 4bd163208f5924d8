package audio_test

import (
	"slices"
	"testing"

	"github.com/MrWong99/wakebench/pkg/audio"
)

func TestFrames_Reconstruction(t *testing.T) {
	t.Parallel()
	for _, size := range []int{1, 3, 512} {
		for _, n := range []int{0, 1, 2, 3, 511, 512, 513, 1024, 3200} {
			samples := ramp(n)
			var joined []int16
			count := 0
			for frame := range audio.Frames(samples, size) {
				if len(frame) != size {
					t.Fatalf("size=%d n=%d: frame %d has %d samples", size, n, count, len(frame))
				}
				joined = append(joined, frame...)
				count++
			}
			if count != audio.FrameCount(n, size) {
				t.Fatalf("size=%d n=%d: %d frames, FrameCount says %d", size, n, count, audio.FrameCount(n, size))
			}
			if !slices.Equal(joined[:n], samples) {
				t.Fatalf("size=%d n=%d: reconstruction mismatch", size, n)
			}
			for _, s := range joined[n:] {
				if s != 0 {
					t.Fatalf("size=%d n=%d: non-zero padding %d", size, n, s)
				}
			}
		}
	}
}

func TestFrames_Restartable(t *testing.T) {
	seq := audio.Frames(ramp(1100), 512)
	first := 0
	for range seq {
		first++
	}
	second := 0
	for range seq {
		second++
	}
	if first != 3 || second != 3 {
		t.Errorf("frame counts = %d, %d; want 3, 3", first, second)
	}
}

func TestFrames_EarlyBreak(t *testing.T) {
	seen := 0
	for range audio.Frames(ramp(4096), 512) {
		seen++
		if seen == 2 {
			break
		}
	}
	if seen != 2 {
		t.Errorf("seen = %d, want 2", seen)
	}
}

func TestFrames_PaddingDoesNotMutateInput(t *testing.T) {
	samples := []int16{1, 2, 3}
	// Full frames alias the input by contract; only check the padded tail.
	var last []int16
	for frame := range audio.Frames(samples, 2) {
		last = frame
	}
	last[0] = 99
	if samples[2] != 3 {
		t.Errorf("padded frame aliases input: samples[2] = %d", samples[2])
	}
}

func TestFrames_NonPositiveSize(t *testing.T) {
	for range audio.Frames(ramp(10), 0) {
		t.Fatal("expected no frames for size 0")
	}
}

package audio_test

import (
	"testing"

	"github.com/MrWong99/wakebench/pkg/audio"
)

func TestFirstChannel_Stereo(t *testing.T) {
	// Two stereo frames: L=100,R=200 and L=-100,R=-200
	got := audio.FirstChannel([]int16{100, 200, -100, -200}, 2)
	want := []int16{100, -100}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestFirstChannel_MonoUnchanged(t *testing.T) {
	in := []int16{1, 2, 3}
	got := audio.FirstChannel(in, 1)
	if &got[0] != &in[0] {
		t.Error("expected same slice for mono input")
	}
}

func TestFirstChannel_TrailingPartialFrameDropped(t *testing.T) {
	got := audio.FirstChannel([]int16{1, 2, 3, 4, 5}, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(got))
	}
}

func TestFloat32_Scaling(t *testing.T) {
	got := audio.Float32([]int16{-32768, 0, 16384})
	want := []float32{-1, 0, 0.5}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestResampleMono_SameRate(t *testing.T) {
	in := []int16{100, 200, 300}
	out := audio.ResampleMono(in, 16000, 16000)
	if len(out) != len(in) {
		t.Fatalf("length mismatch: got %d, want %d", len(out), len(in))
	}
}

func TestResampleMono_Upsample(t *testing.T) {
	// 2 samples at 16kHz → 6 samples at 48kHz (3x)
	out := audio.ResampleMono([]int16{1000, 2000}, 16000, 48000)
	if len(out) != 6 {
		t.Fatalf("expected 6 samples, got %d", len(out))
	}
	if out[0] != 1000 {
		t.Errorf("first sample: got %d, want 1000", out[0])
	}
	last := out[len(out)-1]
	if last < 1800 || last > 2200 {
		t.Errorf("last sample: got %d, want close to 2000", last)
	}
}

func TestResampleMono_Downsample(t *testing.T) {
	// 6 samples at 48kHz → 2 samples at 16kHz (1/3x)
	out := audio.ResampleMono([]int16{100, 200, 300, 400, 500, 600}, 48000, 16000)
	if len(out) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(out))
	}
}

func TestResampleMono_ZeroRate(t *testing.T) {
	in := []int16{100, 200}
	if out := audio.ResampleMono(in, 0, 16000); len(out) != len(in) {
		t.Errorf("expected unchanged output for zero srcRate, got len %d", len(out))
	}
	if out := audio.ResampleMono(in, 16000, -1); len(out) != len(in) {
		t.Errorf("expected unchanged output for negative dstRate, got len %d", len(out))
	}
}

func TestConformer_NoOp(t *testing.T) {
	c := audio.Conformer{SampleRate: 16000}
	seq := audio.Sequence{Samples: []int16{1, 2, 3}, SampleRate: 16000}
	got := c.Conform(seq)
	if &got.Samples[0] != &seq.Samples[0] {
		t.Error("expected same slice (zero allocation) for matching rate")
	}
}

func TestConformer_Resamples(t *testing.T) {
	c := audio.Conformer{SampleRate: 16000}
	seq := audio.Sequence{Samples: make([]int16, 4800), SampleRate: 48000}
	got := c.Conform(seq)
	if got.SampleRate != 16000 {
		t.Errorf("sample rate = %d, want 16000", got.SampleRate)
	}
	if got.Len() != 1600 {
		t.Errorf("len = %d, want 1600", got.Len())
	}
}

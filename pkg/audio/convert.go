package audio

import (
	"log/slog"
	"sync"
)

// Conformer brings decoded recordings to the sample rate a harness runs at.
// It logs a warning on the first rate mismatch only. Create one per harness;
// not designed for shared use across goroutines.
type Conformer struct {
	SampleRate     int
	warnedMismatch sync.Once
}

// Conform returns seq at the conformer's sample rate. If the rates already
// match, seq is returned unchanged (zero allocation).
func (c *Conformer) Conform(seq Sequence) Sequence {
	if seq.SampleRate == c.SampleRate || c.SampleRate <= 0 {
		return seq
	}
	c.warnedMismatch.Do(func() {
		slog.Warn("audio sample rate mismatch: resampling",
			"from_hz", seq.SampleRate,
			"to_hz", c.SampleRate,
		)
	})
	return Sequence{
		Samples:    ResampleMono(seq.Samples, seq.SampleRate, c.SampleRate),
		SampleRate: c.SampleRate,
	}
}

// FirstChannel downmixes interleaved multi-channel samples by keeping the
// first channel of every frame and discarding the others. This matches the
// firmware's capture path, which reads a single microphone slot. A trailing
// incomplete frame is dropped.
func FirstChannel(interleaved []int16, channels int) []int16 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	out := make([]int16, frames)
	for i := range frames {
		out[i] = interleaved[i*channels]
	}
	return out
}

// Float32 normalises samples to [-1, 1) by dividing by 32768, the input
// scaling most keyword-spotting models are exported with.
func Float32(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / 32768.0
	}
	return out
}

// ResampleMono resamples mono samples from srcRate to dstRate using linear
// interpolation. If the rates match or either is not positive, the input is
// returned unchanged.
func ResampleMono(samples []int16, srcRate, dstRate int) []int16 {
	if srcRate <= 0 || dstRate <= 0 {
		return samples
	}
	if srcRate == dstRate || len(samples) < 2 {
		return samples
	}
	dstLen := int(int64(len(samples)) * int64(dstRate) / int64(srcRate))
	if dstLen == 0 {
		return nil
	}

	out := make([]int16, dstLen)
	ratio := float64(srcRate) / float64(dstRate)

	for i := range dstLen {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := samples[srcIdx]
		s1 := s0
		if srcIdx+1 < len(samples) {
			s1 = samples[srcIdx+1]
		}
		out[i] = int16(float64(s0)*(1-frac) + float64(s1)*frac)
	}
	return out
}

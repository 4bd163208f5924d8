package audio

import "time"

// Sequence is a complete mono recording held in memory. Samples are signed
// 16-bit PCM at SampleRate Hz. Sequences are resolved fully before any
// streaming starts; nothing in the pipeline reads audio lazily from storage.
type Sequence struct {
	// Samples holds one int16 per sample, in chronological order.
	Samples []int16

	// SampleRate in Hz (16000 for the wake-word models this harness targets).
	SampleRate int
}

// Len returns the number of samples in the sequence.
func (s Sequence) Len() int { return len(s.Samples) }

// Duration returns the playback length of the sequence. It returns 0 when the
// sample rate is not positive.
func (s Sequence) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(s.Samples)) * time.Second / time.Duration(s.SampleRate)
}

// Window is a fixed-size slice of audio handed to a classification model.
// Windows are produced by an [Accumulator] and are owned by the receiver: the
// Samples slice is never reused by the accumulator after emission.
type Window struct {
	// Index is the number of windows emitted before this one (0-based).
	Index int

	// Samples holds exactly the accumulator's window size of samples.
	Samples []int16

	// Padded reports whether this is the final end-of-stream window and was
	// right-padded with zero samples.
	Padded bool
}

// Offset returns the nominal time of the window in seconds. It is derived
// from the window index, not from the device frame the samples arrived in,
// because the firmware reports time at window-emission granularity.
func (w Window) Offset(sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(w.Index*len(w.Samples)) / float64(sampleRate)
}

package audio

import "iter"

// Frames slices samples into device frames of exactly size samples, the read
// granularity of the embedded microphone driver. The final frame is
// right-padded with zeros when len(samples) is not a multiple of size. An
// empty input, or a non-positive size, yields no frames.
//
// The returned sequence is lazy and may be ranged over any number of times.
// Full frames alias samples; callers that retain a frame past the loop body
// must copy it.
func Frames(samples []int16, size int) iter.Seq[[]int16] {
	return func(yield func([]int16) bool) {
		if size <= 0 {
			return
		}
		for start := 0; start < len(samples); start += size {
			end := start + size
			if end <= len(samples) {
				if !yield(samples[start:end:end]) {
					return
				}
				continue
			}
			last := make([]int16, size)
			copy(last, samples[start:])
			yield(last)
			return
		}
	}
}

// FrameCount returns the number of frames [Frames] yields for n samples.
func FrameCount(n, size int) int {
	if n <= 0 || size <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

package audio

import "fmt"

// Accumulator is a FIFO sample buffer that bridges a producer of device
// frames to a consumer of fixed-size analysis windows. The two sizes are
// independent; with the firmware defaults (512-sample frames, 1280-sample
// windows) every 2.5 frames yield one window.
//
// After every Ingest the buffer holds fewer than the window size samples.
// Samples leave the buffer in arrival order, each exactly once.
//
// An Accumulator is not safe for concurrent use.
type Accumulator struct {
	size    int
	buf     []int16
	emitted int
	fed     int
}

// NewAccumulator returns an empty accumulator emitting windows of size
// samples. It panics if size is not positive.
func NewAccumulator(size int) *Accumulator {
	if size <= 0 {
		panic(fmt.Sprintf("audio: accumulator window size must be positive, got %d", size))
	}
	return &Accumulator{
		size: size,
		buf:  make([]int16, 0, 2*size),
	}
}

// Size returns the window size in samples.
func (a *Accumulator) Size() int { return a.size }

// Pending returns the number of samples buffered but not yet emitted.
func (a *Accumulator) Pending() int { return len(a.buf) }

// Emitted returns the number of windows emitted so far, including the final
// padded window if [Accumulator.Flush] produced one.
func (a *Accumulator) Emitted() int { return a.emitted }

// Ingested returns the total number of samples appended so far.
func (a *Accumulator) Ingested() int { return a.fed }

// Ingest appends frame to the buffer, then calls emit with a window from the
// front of the buffer for as long as at least one full window is available.
// emit runs synchronously, before Ingest returns. If emit returns an error,
// the window is still considered consumed, no further windows are emitted,
// and the error is returned unchanged.
func (a *Accumulator) Ingest(frame []int16, emit func(Window) error) error {
	a.buf = append(a.buf, frame...)
	a.fed += len(frame)

	consumed := 0
	var err error
	for len(a.buf)-consumed >= a.size {
		w := a.take(a.buf[consumed:consumed+a.size], false)
		consumed += a.size
		if err = emit(w); err != nil {
			break
		}
	}
	a.compact(consumed)
	return err
}

// Flush ends the stream. If a non-empty remainder is buffered, exactly one
// final window is emitted, right-padded with zeros to the window size. An
// empty buffer emits nothing. The accumulator is empty afterwards.
func (a *Accumulator) Flush(emit func(Window) error) error {
	if len(a.buf) == 0 {
		return nil
	}
	w := a.take(a.buf, true)
	a.buf = a.buf[:0]
	return emit(w)
}

// take copies src into a new window of the accumulator's size and advances
// the emission counter.
func (a *Accumulator) take(src []int16, padded bool) Window {
	samples := make([]int16, a.size)
	copy(samples, src)
	w := Window{Index: a.emitted, Samples: samples, Padded: padded}
	a.emitted++
	return w
}

// compact drops the first n samples, moving the remainder to the front so the
// backing array does not grow without bound.
func (a *Accumulator) compact(n int) {
	if n == 0 {
		return
	}
	rest := copy(a.buf, a.buf[n:])
	a.buf = a.buf[:rest]
}

// WindowCount returns the number of windows a stream of n samples produces
// when chunked into frames of frameSize and accumulated into windows of
// windowSize, including the final padded window. The device-frame padding
// counts towards the total, exactly as it does on the target.
func WindowCount(n, frameSize, windowSize int) int {
	if windowSize <= 0 {
		return 0
	}
	total := FrameCount(n, frameSize) * frameSize
	return (total + windowSize - 1) / windowSize
}

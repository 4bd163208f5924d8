//go:build cgo

package tflite

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	tfl "github.com/mattn/go-tflite"

	"github.com/MrWong99/wakebench/pkg/audio"
	"github.com/MrWong99/wakebench/pkg/provider/kws"
)

// Compile-time assertion.
var _ kws.Scorer = (*Scorer)(nil)

func (l *Loader) open(model kws.ModelRef) (kws.Scorer, error) {
	m := tfl.NewModelFromFile(model.String())
	if m == nil {
		return nil, fmt.Errorf("%w: tflite: cannot parse %q", kws.ErrUnsupportedModel, model)
	}

	opts := tfl.NewInterpreterOptions()
	defer opts.Delete()
	opts.SetNumThread(l.threads)
	opts.SetErrorReporter(func(msg string, _ interface{}) {
		slog.Debug("tflite interpreter", "model", model.String(), "msg", msg)
	}, nil)

	interp := tfl.NewInterpreter(m, opts)
	if interp == nil {
		m.Delete()
		return nil, fmt.Errorf("%w: tflite: cannot create interpreter for %q", kws.ErrRuntimeUnavailable, model)
	}

	sc, err := l.prepare(model, m, interp)
	if err != nil {
		interp.Delete()
		m.Delete()
		return nil, err
	}
	return sc, nil
}

func (l *Loader) prepare(model kws.ModelRef, m *tfl.Model, interp *tfl.Interpreter) (*Scorer, error) {
	if status := interp.AllocateTensors(); status != tfl.OK {
		return nil, fmt.Errorf("tflite: allocate tensors for %q: status %v", model, status)
	}

	in := interp.GetInputTensor(0)
	if in == nil {
		return nil, fmt.Errorf("%w: tflite: %q has no input tensor", kws.ErrUnsupportedModel, model)
	}
	switch in.Type() {
	case tfl.Float32, tfl.Int16:
	default:
		return nil, fmt.Errorf("%w: tflite: input type %v, want float32 or int16", kws.ErrUnsupportedModel, in.Type())
	}
	inLen := lastDim(in)
	if l.windowSize > 0 && inLen != l.windowSize {
		return nil, fmt.Errorf("%w: tflite: %q expects %d-sample windows, harness feeds %d",
			kws.ErrUnsupportedModel, model, inLen, l.windowSize)
	}

	out := interp.GetOutputTensor(0)
	if out == nil || out.Type() != tfl.Float32 {
		return nil, fmt.Errorf("%w: tflite: %q output must be float32", kws.ErrUnsupportedModel, model)
	}
	keywords, err := l.labels(model, lastDim(out))
	if err != nil {
		return nil, err
	}

	return &Scorer{
		model:    m,
		interp:   interp,
		input:    in,
		inLen:    inLen,
		keywords: keywords,
	}, nil
}

func lastDim(t *tfl.Tensor) int {
	n := t.NumDims()
	if n == 0 {
		return 1
	}
	return t.Dim(n - 1)
}

// Scorer owns one interpreter. Windows are scored one at a time.
type Scorer struct {
	mu       sync.Mutex
	model    *tfl.Model
	interp   *tfl.Interpreter
	input    *tfl.Tensor
	inLen    int
	keywords []string
	closed   bool
}

// Score copies window into the input tensor, invokes the interpreter and
// returns one single-element score slice per keyword.
func (s *Scorer) Score(_ context.Context, window []int16) (kws.RawScores, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, kws.ErrClosed
	}
	if len(window) != s.inLen {
		return nil, fmt.Errorf("tflite: window has %d samples, model expects %d", len(window), s.inLen)
	}

	var status tfl.Status
	if s.input.Type() == tfl.Float32 {
		status = s.input.CopyFromBuffer(audio.Float32(window))
	} else {
		status = s.input.CopyFromBuffer(window)
	}
	if status != tfl.OK {
		return nil, fmt.Errorf("tflite: copy input: status %v", status)
	}
	if status := s.interp.Invoke(); status != tfl.OK {
		return nil, fmt.Errorf("tflite: invoke: status %v", status)
	}

	data := s.interp.GetOutputTensor(0).Float32s()
	if len(data) < len(s.keywords) {
		return nil, fmt.Errorf("tflite: output has %d elements, want %d", len(data), len(s.keywords))
	}
	scores := make(kws.RawScores, len(s.keywords))
	for i, kw := range s.keywords {
		scores[kw] = []float32{data[i]}
	}
	return scores, nil
}

// Keywords returns the output labels.
func (s *Scorer) Keywords() []string { return s.keywords }

// Close frees the interpreter and model.
func (s *Scorer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.interp.Delete()
	s.model.Delete()
	return nil
}

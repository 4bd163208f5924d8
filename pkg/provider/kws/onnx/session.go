//go:build cgo

package onnx

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/MrWong99/wakebench/pkg/audio"
	"github.com/MrWong99/wakebench/pkg/provider/kws"
)

// Compile-time assertion.
var _ kws.Scorer = (*Scorer)(nil)

// envMu serialises runtime initialisation; the ONNX Runtime environment is
// process-wide.
var envMu sync.Mutex

func initEnvironment(libraryPath string) error {
	envMu.Lock()
	defer envMu.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("%w: onnx: initialise runtime: %v", kws.ErrRuntimeUnavailable, err)
	}
	return nil
}

func (l *Loader) open(model kws.ModelRef) (kws.Scorer, error) {
	if err := initEnvironment(l.libraryPath); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(model.String())
	if err != nil {
		return nil, fmt.Errorf("%w: onnx: inspect %q: %v", kws.ErrUnsupportedModel, model, err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("%w: onnx: %q declares no inputs or outputs", kws.ErrUnsupportedModel, model)
	}

	inInfo := inputs[0]
	inName, outName := l.inputName, l.outputName
	if inName == "" {
		inName = inInfo.Name
	} else {
		for _, in := range inputs {
			if in.Name == inName {
				inInfo = in
			}
		}
	}
	if dims := inInfo.Dimensions; l.windowSize > 0 && len(dims) > 0 {
		if last := dims[len(dims)-1]; last > 0 && int(last) != l.windowSize {
			return nil, fmt.Errorf("%w: onnx: %q expects %d-sample windows, harness feeds %d",
				kws.ErrUnsupportedModel, model, last, l.windowSize)
		}
	}
	outInfo := outputs[0]
	if outName == "" {
		outName = outInfo.Name
	} else {
		for _, o := range outputs {
			if o.Name == outName {
				outInfo = o
			}
		}
	}

	n := 0
	if dims := outInfo.Dimensions; len(dims) > 0 && dims[len(dims)-1] > 0 {
		n = int(dims[len(dims)-1])
	}
	keywords, err := l.labels(model, n)
	if err != nil {
		return nil, err
	}

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(keywords))))
	if err != nil {
		return nil, fmt.Errorf("onnx: allocate output tensor: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(model.String(),
		[]string{inName}, []string{outName}, nil)
	if err != nil {
		out.Destroy()
		return nil, fmt.Errorf("onnx: create session for %q: %w", model, err)
	}

	return &Scorer{
		session:  session,
		output:   out,
		keywords: keywords,
	}, nil
}

// Scorer runs one ONNX session. Windows are scored one at a time.
type Scorer struct {
	mu       sync.Mutex
	session  *ort.DynamicAdvancedSession
	output   *ort.Tensor[float32]
	keywords []string
	closed   bool
}

// Score runs the model over window and returns one single-element score slice
// per keyword.
func (s *Scorer) Score(_ context.Context, window []int16) (kws.RawScores, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, kws.ErrClosed
	}

	input, err := ort.NewTensor(ort.NewShape(1, int64(len(window))), audio.Float32(window))
	if err != nil {
		return nil, fmt.Errorf("onnx: create input tensor: %w", err)
	}
	defer input.Destroy()

	if err := s.session.Run([]ort.Value{input}, []ort.Value{s.output}); err != nil {
		return nil, fmt.Errorf("onnx: run: %w", err)
	}

	data := s.output.GetData()
	scores := make(kws.RawScores, len(s.keywords))
	for i, kw := range s.keywords {
		scores[kw] = []float32{data[i]}
	}
	return scores, nil
}

// Keywords returns the output labels.
func (s *Scorer) Keywords() []string { return s.keywords }

// Close destroys the session and its tensors.
func (s *Scorer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	var firstErr error
	if err := s.session.Destroy(); err != nil {
		firstErr = err
	}
	if err := s.output.Destroy(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

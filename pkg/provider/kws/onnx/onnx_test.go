package onnx

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/MrWong99/wakebench/pkg/provider/kws"
)

func TestLoad_RejectsOtherFormats(t *testing.T) {
	t.Parallel()
	l := New()
	for _, ref := range []kws.ModelRef{"hey_nap.tflite", "hey_jarvis", "model.pb"} {
		_, err := l.Load(context.Background(), ref)
		if !errors.Is(err, kws.ErrUnsupportedModel) {
			t.Errorf("Load(%q) err = %v, want ErrUnsupportedModel", ref, err)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	ref := kws.ModelRef(filepath.Join(t.TempDir(), "absent.onnx"))
	_, err := New().Load(context.Background(), ref)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want os.ErrNotExist", err)
	}
}

func TestLabels(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		keywords []string
		outputs  int
		want     []string
		wantErr  bool
	}{
		{"default single output", nil, 1, []string{"hey_nap"}, false},
		{"default unknown width", nil, 0, []string{"hey_nap"}, false},
		{"multi output needs labels", nil, 2, nil, true},
		{"configured labels match", []string{"a", "b"}, 2, []string{"a", "b"}, false},
		{"configured labels mismatch", []string{"a"}, 2, nil, true},
		{"configured labels unknown width", []string{"a", "b"}, 0, []string{"a", "b"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			l := New(WithKeywords(tc.keywords...))
			got, err := l.labels("models/hey_nap.onnx", tc.outputs)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(got, tc.want) {
				t.Errorf("labels = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestOptions(t *testing.T) {
	l := New(WithLibraryPath("/opt/ort/libonnxruntime.so"), WithInputName("audio"), WithOutputName("scores"))
	if l.libraryPath != "/opt/ort/libonnxruntime.so" || l.inputName != "audio" || l.outputName != "scores" {
		t.Errorf("options not applied: %+v", l)
	}
}

package tflite

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
	for _, ref := range []kws.ModelRef{"hey_nap.onnx", "hey_jarvis"} {
		_, err := l.Load(context.Background(), ref)
		if !errors.Is(err, kws.ErrUnsupportedModel) {
			t.Errorf("Load(%q) err = %v, want ErrUnsupportedModel", ref, err)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	ref := kws.ModelRef(filepath.Join(t.TempDir(), "absent.tflite"))
	_, err := New().Load(context.Background(), ref)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want os.ErrNotExist", err)
	}
}

func TestLoad_GarbageFileFails(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "broken.tflite")
	if err := os.WriteFile(path, []byte("not a flatbuffer"), 0o644); err != nil {
		t.Fatal(err)
	}
	// With cgo the parse fails; without it the runtime is unavailable.
	// Either way the loader must fail so the selector can move on.
	if _, err := New().Load(context.Background(), kws.ModelRef(path)); err == nil {
		t.Fatal("expected error for a corrupt model")
	}
}

func TestLabels(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		keywords []string
		n        int
		want     []string
		wantErr  bool
	}{
		{"default single", nil, 1, []string{"hey_nap"}, false},
		{"default multi", nil, 3, nil, true},
		{"configured", []string{"a", "b", "c"}, 3, []string{"a", "b", "c"}, false},
		{"configured mismatch", []string{"a"}, 3, nil, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := New(WithKeywords(tc.keywords...)).labels("hey_nap.tflite", tc.n)
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

func TestWithThreads_IgnoresNonPositive(t *testing.T) {
	if l := New(WithThreads(0)); l.threads != 1 {
		t.Errorf("threads = %d, want default 1", l.threads)
	}
	if l := New(WithThreads(4)); l.threads != 4 {
		t.Errorf("threads = %d, want 4", l.threads)
	}
}

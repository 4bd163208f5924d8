package wav_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"

	"github.com/MrWong99/wakebench/pkg/audio"
	"github.com/MrWong99/wakebench/pkg/audio/wav"
)

func TestWriteFileLoad_RoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "tone.wav")
	in := audio.Sequence{Samples: []int16{0, 100, -100, 32767, -32768, 7}, SampleRate: 16000}
	if err := wav.WriteFile(path, in); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := wav.File{Path: path}.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", got.SampleRate)
	}
	if !slices.Equal(got.Samples, in.Samples) {
		t.Errorf("Samples = %v, want %v", got.Samples, in.Samples)
	}
}

func TestLoad_StereoKeepsFirstChannel(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "stereo.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc := gowav.NewEncoder(f, 16000, 16, 2, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: 16000},
		Data:           []int{10, -10, 20, -20, 30, -30},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	got, err := wav.File{Path: path}.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want := []int16{10, 20, 30}; !slices.Equal(got.Samples, want) {
		t.Errorf("Samples = %v, want %v", got.Samples, want)
	}
}

func TestLoad_RejectsEightBit(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "eight.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc := gowav.NewEncoder(f, 16000, 8, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: 16000},
		Data:           []int{1, 2, 3, 4},
		SourceBitDepth: 8,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	_, err = wav.File{Path: path}.Load(context.Background())
	if !errors.Is(err, wav.ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestLoad_NotAWav(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "junk.wav")
	if err := os.WriteFile(path, []byte("definitely not riff data"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (wav.File{Path: path}).Load(context.Background()); err == nil {
		t.Fatal("expected error for non-WAV input")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := wav.File{Path: filepath.Join(t.TempDir(), "nope.wav")}.Load(context.Background())
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want os.ErrNotExist", err)
	}
}

func TestLoad_CancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (wav.File{Path: "whatever.wav"}).Load(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

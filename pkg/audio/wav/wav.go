// Package wav decodes 16-bit PCM WAV recordings into [audio.Sequence] values
// and encodes sequences back to WAV for fixtures.
//
// Multi-channel files are reduced to mono by keeping the first channel, the
// same slot the firmware reads from the I2S bus. Only 16-bit integer PCM is
// accepted; anything else is rejected with [ErrUnsupportedFormat] rather than
// converted, because a silent conversion would change what the model sees.
package wav

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"

	"github.com/MrWong99/wakebench/pkg/audio"
)

// ErrUnsupportedFormat is returned for WAV files that are not 16-bit PCM.
var ErrUnsupportedFormat = errors.New("wav: unsupported format")

const (
	pcmFormat = 1
	bitDepth  = 16
)

// Decode reads a complete WAV stream from r.
func Decode(r io.ReadSeeker) (audio.Sequence, error) {
	d := gowav.NewDecoder(r)
	if !d.IsValidFile() {
		if err := d.Err(); err != nil {
			return audio.Sequence{}, fmt.Errorf("wav: invalid file: %w", err)
		}
		return audio.Sequence{}, fmt.Errorf("%w: not a RIFF/WAVE stream", ErrUnsupportedFormat)
	}
	if d.WavAudioFormat != pcmFormat {
		return audio.Sequence{}, fmt.Errorf("%w: audio format %d, want PCM", ErrUnsupportedFormat, d.WavAudioFormat)
	}
	if d.BitDepth != bitDepth {
		return audio.Sequence{}, fmt.Errorf("%w: %d-bit samples, want 16-bit", ErrUnsupportedFormat, d.BitDepth)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return audio.Sequence{}, fmt.Errorf("wav: read samples: %w", err)
	}

	channels := int(d.NumChans)
	interleaved := make([]int16, len(buf.Data))
	for i, s := range buf.Data {
		interleaved[i] = int16(s)
	}
	return audio.Sequence{
		Samples:    audio.FirstChannel(interleaved, channels),
		SampleRate: int(d.SampleRate),
	}, nil
}

// Encode writes seq to w as a mono 16-bit PCM WAV stream.
func Encode(w io.WriteSeeker, seq audio.Sequence) error {
	enc := gowav.NewEncoder(w, seq.SampleRate, bitDepth, 1, pcmFormat)
	data := make([]int, len(seq.Samples))
	for i, s := range seq.Samples {
		data[i] = int(s)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: seq.SampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wav: write samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wav: finalize: %w", err)
	}
	return nil
}

// WriteFile encodes seq into a new file at path.
func WriteFile(path string, seq audio.Sequence) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("wav: create %q: %w", path, err)
	}
	if err := Encode(f, seq); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// File is a frame source backed by a WAV file on disk.
type File struct {
	Path string
}

// Load reads and decodes the whole file. The context is only checked before
// the file is opened; decoding a local file does not block meaningfully.
func (f File) Load(ctx context.Context) (audio.Sequence, error) {
	if err := ctx.Err(); err != nil {
		return audio.Sequence{}, err
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		return audio.Sequence{}, fmt.Errorf("wav: open %q: %w", f.Path, err)
	}
	defer fh.Close()

	seq, err := Decode(fh)
	if err != nil {
		return audio.Sequence{}, fmt.Errorf("%s: %w", f.Path, err)
	}
	return seq, nil
}

// String returns the file path.
func (f File) String() string { return f.Path }

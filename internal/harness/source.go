package harness

import (
	"context"
	"fmt"

	"github.com/MrWong99/wakebench/pkg/audio"
)

// Source produces the complete recording for one run. The harness resolves
// the whole sequence before streaming starts.
type Source interface {
	Load(ctx context.Context) (audio.Sequence, error)
}

// SourceFunc adapts a plain function to the [Source] interface.
type SourceFunc func(ctx context.Context) (audio.Sequence, error)

// Load calls f.
func (f SourceFunc) Load(ctx context.Context) (audio.Sequence, error) { return f(ctx) }

// Static returns a named source that always yields seq.
func Static(name string, seq audio.Sequence) Source {
	return staticSource{name: name, seq: seq}
}

type staticSource struct {
	name string
	seq  audio.Sequence
}

func (s staticSource) Load(ctx context.Context) (audio.Sequence, error) {
	if err := ctx.Err(); err != nil {
		return audio.Sequence{}, err
	}
	return s.seq, nil
}

func (s staticSource) String() string { return s.name }

// sourceName returns a display name for src: its String method when it has
// one, otherwise its type.
func sourceName(src Source) string {
	if s, ok := src.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", src)
}

//go:build !cgo

package tflite

import (
	"fmt"

	"github.com/MrWong99/wakebench/pkg/provider/kws"
)

func (l *Loader) open(model kws.ModelRef) (kws.Scorer, error) {
	return nil, fmt.Errorf("%w: tflite: built without cgo, cannot load %q", kws.ErrRuntimeUnavailable, model)
}

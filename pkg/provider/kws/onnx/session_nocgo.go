//go:build !cgo

package onnx

import (
	"fmt"

	"github.com/MrWong99/wakebench/pkg/provider/kws"
)

func (l *Loader) open(model kws.ModelRef) (kws.Scorer, error) {
	return nil, fmt.Errorf("%w: onnx: built without cgo, cannot load %q", kws.ErrRuntimeUnavailable, model)
}

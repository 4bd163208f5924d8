package kws

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
)

// ErrMalformedScoreMap is returned by [Resolve] when a backend reports a
// score that is not a usable number.
var ErrMalformedScoreMap = errors.New("kws: malformed score map")

// RawScores maps keyword labels to the value a backend produced for one
// window. A value is either a scalar number or a numeric slice; see
// [Resolve] for how it becomes a single score.
type RawScores map[string]any

// Resolve reduces one raw score value to a float64.
//
// Any integer, unsigned or floating-point scalar is used as-is. For a
// non-empty slice or array the first element is resolved the same way:
// streaming wake-word runtimes return a per-keyword prediction buffer and the
// first entry is the prediction for the window just scored. Further elements
// are ignored rather than interpreted. Anything else, including an empty
// sequence, NaN and ±Inf, yields [ErrMalformedScoreMap].
func Resolve(v any) (float64, error) {
	f, err := resolveValue(reflect.ValueOf(v))
	if err != nil {
		return 0, err
	}
	switch {
	case math.IsNaN(f):
		return 0, fmt.Errorf("%w: score is NaN", ErrMalformedScoreMap)
	case math.IsInf(f, 0):
		return 0, fmt.Errorf("%w: score is %v", ErrMalformedScoreMap, f)
	}
	return f, nil
}

func resolveValue(rv reflect.Value) (float64, error) {
	switch rv.Kind() {
	case reflect.Invalid:
		return 0, fmt.Errorf("%w: missing score", ErrMalformedScoreMap)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Interface:
		return resolveValue(rv.Elem())
	case reflect.Slice, reflect.Array:
		if rv.Len() == 0 {
			return 0, fmt.Errorf("%w: empty score sequence", ErrMalformedScoreMap)
		}
		return resolveValue(rv.Index(0))
	default:
		return 0, fmt.Errorf("%w: unsupported score type %s", ErrMalformedScoreMap, rv.Type())
	}
}

// ResolveAll resolves every entry of raw. The first malformed entry, in
// keyword order, aborts resolution; the error names the keyword.
func ResolveAll(raw RawScores) (map[string]float64, error) {
	out := make(map[string]float64, len(raw))
	for _, kw := range SortedKeywords(raw) {
		f, err := Resolve(raw[kw])
		if err != nil {
			return nil, fmt.Errorf("keyword %q: %w", kw, err)
		}
		out[kw] = f
	}
	return out, nil
}

// SortedKeywords returns the keys of m in ascending order.
func SortedKeywords[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

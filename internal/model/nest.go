package model

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// Nest converts a flat output into nested []any following its shape, so
// that a (1, 3) output becomes [[a, b, c]]. A rank-0 output yields the bare
// number. Inconsistent shapes and non-finite values are ErrInternal.
func Nest(out *Output) (any, error) {
	if out == nil {
		return nil, errors.WithStack(fmt.Errorf("%w: nil output", ErrInternal))
	}

	want := int64(1)
	for _, d := range out.Shape {
		if d < 0 {
			return nil, errors.WithStack(fmt.Errorf("%w: negative output dimension in %v", ErrInternal, out.Shape))
		}
		want *= d
	}
	if want != int64(len(out.Data)) {
		return nil, errors.WithStack(fmt.Errorf("%w: output shape %v holds %d values, got %d",
			ErrInternal, out.Shape, want, len(out.Data)))
	}

	for i, v := range out.Data {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, errors.WithStack(fmt.Errorf("%w: non-finite output value at index %d", ErrInternal, i))
		}
	}

	if len(out.Shape) == 0 {
		return out.Data[0], nil
	}
	return nest(out.Data, out.Shape), nil
}

func nest(data []float32, shape []int64) []any {
	n := int(shape[0])
	result := make([]any, n)
	if len(shape) == 1 {
		for i := range n {
			result[i] = data[i]
		}
		return result
	}

	stride := len(data) / max(n, 1)
	for i := range n {
		result[i] = nest(data[i*stride:(i+1)*stride], shape[1:])
	}
	return result
}

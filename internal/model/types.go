// Package model owns the inference side of a request: it normalizes decoded
// images into input tensors, holds the process-wide model handle, and runs
// the forward pass.
package model

import (
	"context"
	"fmt"
)

// Layout is the dimension order of the input tensor.
type Layout string

const (
	LayoutNHWC Layout = "nhwc"
	LayoutNCHW Layout = "nchw"
)

// Scale is the numeric range pixel intensities are mapped to.
type Scale string

const (
	// ScaleRaw keeps 8-bit intensities as 0-255 floats.
	ScaleRaw Scale = "raw"
	// ScaleUnit maps intensities to 0-1.
	ScaleUnit Scale = "unit"
)

// Tensor is a batched float32 input tensor.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// Output is the flat result of a forward pass together with its shape.
type Output struct {
	Shape []int64
	Data  []float32
}

// Model runs forward passes. Implementations must be safe for concurrent
// use once loaded.
type Model interface {
	// InputShape is the declared input shape. Negative entries are dynamic.
	InputShape() []int64
	Predict(ctx context.Context, t *Tensor) (*Output, error)
	Close() error
}

// Options describes the tensor a model expects.
type Options struct {
	ImageSize int
	Layout    Layout
	Scale     Scale
}

// CheckShape reports ErrModelInputMismatch when got does not fit declared.
// Dynamic (negative) declared dims accept any size.
func CheckShape(declared, got []int64) error {
	if len(declared) != len(got) {
		return fmt.Errorf("%w: expected rank %d, got shape %v", ErrModelInputMismatch, len(declared), got)
	}
	for i, d := range declared {
		if d >= 0 && d != got[i] {
			return fmt.Errorf("%w: expected shape %v, got %v", ErrModelInputMismatch, declared, got)
		}
	}
	return nil
}

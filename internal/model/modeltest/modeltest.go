// Package modeltest provides an in-memory model.Model for tests.
package modeltest

import (
	"context"
	"sync/atomic"

	"github.com/Brownie44l1/predict-api/internal/model"
)

// Model is a deterministic fake. Its output has shape (batch, Classes) and
// holds, for each class k, the mean of the input scaled by k+1.
type Model struct {
	Shape   []int64
	Classes int

	// PredictFunc, when set, replaces the default forward pass.
	PredictFunc func(ctx context.Context, t *model.Tensor) (*model.Output, error)

	calls  atomic.Int64
	closed atomic.Bool
}

// New returns a fake expecting NHWC input of size×size×channels.
func New(size, channels, classes int) *Model {
	return &Model{
		Shape:   []int64{-1, int64(size), int64(size), int64(channels)},
		Classes: classes,
	}
}

func (m *Model) InputShape() []int64 {
	return m.Shape
}

func (m *Model) Predict(ctx context.Context, t *model.Tensor) (*model.Output, error) {
	m.calls.Add(1)
	if m.PredictFunc != nil {
		return m.PredictFunc(ctx, t)
	}
	if err := model.CheckShape(m.Shape, t.Shape); err != nil {
		return nil, err
	}

	var sum float64
	for _, v := range t.Data {
		sum += float64(v)
	}
	mean := float32(sum / float64(max(len(t.Data), 1)))

	batch := t.Shape[0]
	out := &model.Output{
		Shape: []int64{batch, int64(m.Classes)},
		Data:  make([]float32, int(batch)*m.Classes),
	}
	for b := range int(batch) {
		for k := range m.Classes {
			out.Data[b*m.Classes+k] = mean * float32(k+1)
		}
	}
	return out, nil
}

func (m *Model) Close() error {
	m.closed.Store(true)
	return nil
}

// Calls reports how many forward passes ran.
func (m *Model) Calls() int64 {
	return m.calls.Load()
}

// Closed reports whether Close was called.
func (m *Model) Closed() bool {
	return m.closed.Load()
}

// Loader returns a model.Loader that always yields m.
func (m *Model) Loader() model.Loader {
	return func(context.Context) (model.Model, error) {
		return m, nil
	}
}

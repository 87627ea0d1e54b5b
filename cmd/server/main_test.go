package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/predict-api/internal/config"
	"github.com/Brownie44l1/predict-api/internal/imaging"
	"github.com/Brownie44l1/predict-api/internal/imaging/imagingtest"
	"github.com/Brownie44l1/predict-api/internal/inference"
	"github.com/Brownie44l1/predict-api/internal/logging"
	"github.com/Brownie44l1/predict-api/internal/model"
	"github.com/Brownie44l1/predict-api/internal/model/modeltest"
)

func TestModelOptions(t *testing.T) {
	cfg := &config.ModelConfig{Layout: "nchw", PixelScale: "unit", ImageSize: 224}
	require.NoError(t, cfg.Finalize())

	opts := modelOptions(cfg)
	assert.Equal(t, model.Options{ImageSize: 224, Layout: model.LayoutNCHW, Scale: model.ScaleUnit}, opts)
}

func TestModelOptions_Defaults(t *testing.T) {
	cfg := &config.ModelConfig{}
	require.NoError(t, cfg.Finalize())

	opts := modelOptions(cfg)
	assert.Equal(t, model.Options{ImageSize: 256, Layout: model.LayoutNHWC, Scale: model.ScaleRaw}, opts)
}

func newReleaseFixture(t *testing.T, block <-chan struct{}) (*inference.Pipeline, *model.Handle, *modeltest.Model) {
	t.Helper()

	fake := modeltest.New(8, 3, 2)
	fake.PredictFunc = func(ctx context.Context, _ *model.Tensor) (*model.Output, error) {
		<-block
		return &model.Output{Shape: []int64{1, 1}, Data: []float32{1}}, nil
	}
	handle := model.NewHandle(fake.Loader())
	opts := model.Options{ImageSize: 8, Layout: model.LayoutNHWC, Scale: model.ScaleRaw}
	pipeline := inference.New(imaging.NewDecoder(logging.Discard(), 0), handle, opts, 10*time.Millisecond, logging.Discard())

	_, err := pipeline.Predict(context.Background(), imagingtest.RedPNG(t, 10, 10))
	require.ErrorIs(t, err, inference.ErrTimeout)
	return pipeline, handle, fake
}

func TestRelease_KeepsModelOpenWhileRunInFlight(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	pipeline, handle, fake := newReleaseFixture(t, block)
	release(pipeline, handle, 10*time.Millisecond, logging.Discard())

	assert.False(t, fake.Closed())
}

func TestRelease_ClosesModelAfterDrain(t *testing.T) {
	block := make(chan struct{})
	pipeline, handle, fake := newReleaseFixture(t, block)

	close(block)
	release(pipeline, handle, time.Second, logging.Discard())

	assert.True(t, fake.Closed())
}

package model_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/predict-api/internal/model"
	"github.com/Brownie44l1/predict-api/internal/model/modeltest"
)

func TestHandle_ConcurrentFirstUseLoadsOnce(t *testing.T) {
	fake := modeltest.New(8, 3, 2)
	release := make(chan struct{})
	var loads atomic.Int64

	h := model.NewHandle(func(ctx context.Context) (model.Model, error) {
		loads.Add(1)
		<-release
		return fake, nil
	})
	assert.Equal(t, model.StateUnloaded, h.State())

	const n = 64
	var wg sync.WaitGroup
	results := make([]model.Model, n)
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = h.Get(context.Background())
		}()
	}

	require.Eventually(t, func() bool { return h.State() == model.StateLoading }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), loads.Load())
	assert.Equal(t, int64(1), h.Loads())
	assert.Equal(t, model.StateReady, h.State())
	for i := range n {
		require.NoError(t, errs[i])
		assert.Same(t, fake, results[i])
	}
}

func TestHandle_FailedLoadIsTerminal(t *testing.T) {
	var loads atomic.Int64
	h := model.NewHandle(func(ctx context.Context) (model.Model, error) {
		loads.Add(1)
		return nil, errors.New("model.onnx: no such file")
	})

	for range 3 {
		_, err := h.Get(context.Background())
		require.ErrorIs(t, err, model.ErrModelLoad)
		assert.Contains(t, err.Error(), "no such file")
	}

	assert.Equal(t, int64(1), loads.Load())
	assert.Equal(t, model.StateFailed, h.State())
}

func TestHandle_KeepsModelLoadError(t *testing.T) {
	cause := errors.Join(model.ErrModelLoad, errors.New("bad graph"))
	h := model.NewHandle(func(ctx context.Context) (model.Model, error) {
		return nil, cause
	})

	_, err := h.Get(context.Background())
	assert.Same(t, cause, err)
}

func TestHandle_NilModelFails(t *testing.T) {
	h := model.NewHandle(func(ctx context.Context) (model.Model, error) {
		return nil, nil
	})

	_, err := h.Get(context.Background())
	require.ErrorIs(t, err, model.ErrModelLoad)
	assert.Equal(t, model.StateFailed, h.State())
}

func TestHandle_WaiterHonoursContext(t *testing.T) {
	release := make(chan struct{})
	fake := modeltest.New(8, 3, 2)
	h := model.NewHandle(func(ctx context.Context) (model.Model, error) {
		<-release
		return fake, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := h.Get(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The abandoned wait does not poison the load.
	close(release)
	m, err := h.Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, fake, m)
	assert.Equal(t, int64(1), h.Loads())
}

func TestHandle_Close(t *testing.T) {
	fake := modeltest.New(8, 3, 2)
	h := model.NewHandle(fake.Loader())

	require.NoError(t, h.Close(), "closing an unloaded handle is a no-op")
	assert.False(t, fake.Closed())

	_, err := h.Get(context.Background())
	require.NoError(t, err)
	require.NoError(t, h.Close())
	assert.True(t, fake.Closed())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "unloaded", model.StateUnloaded.String())
	assert.Equal(t, "loading", model.StateLoading.String())
	assert.Equal(t, "ready", model.StateReady.String())
	assert.Equal(t, "failed", model.StateFailed.String())
	assert.Equal(t, "State(9)", model.State(9).String())
}

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckSpatial(t *testing.T) {
	nhwc := Options{ImageSize: 256, Layout: LayoutNHWC}
	nchw := Options{ImageSize: 224, Layout: LayoutNCHW}

	assert.NoError(t, checkSpatial([]int64{-1, 256, 256, 3}, nhwc))
	assert.NoError(t, checkSpatial([]int64{1, -1, -1, 3}, nhwc))
	assert.NoError(t, checkSpatial([]int64{-1, 3, 224, 224}, nchw))

	err := checkSpatial([]int64{1, 224, 224, 3}, nhwc)
	require.ErrorIs(t, err, ErrModelLoad)
	assert.Contains(t, err.Error(), "configured image_size is 256")

	assert.ErrorIs(t, checkSpatial([]int64{1, 256, 256}, nhwc), ErrModelLoad)
	assert.ErrorIs(t, checkSpatial([]int64{1, 3, 256, 256}, nchw), ErrModelLoad)
}

func TestOutputShape(t *testing.T) {
	assert.Equal(t, []int64{1, 10}, outputShape([]int64{-1, 10}, 1))
	assert.Equal(t, []int64{1, 7, 4}, outputShape([]int64{1, 7, 4}, 1))
	assert.Equal(t, []int64{}, outputShape([]int64{}, 1))
}

func TestCheckOutput(t *testing.T) {
	assert.NoError(t, checkOutput([]int64{-1, 10}))
	assert.NoError(t, checkOutput([]int64{1, 7, 4}))
	assert.NoError(t, checkOutput([]int64{}))

	err := checkOutput([]int64{-1, -1})
	require.ErrorIs(t, err, ErrModelLoad)
	assert.Contains(t, err.Error(), "output dimension 1")

	assert.ErrorIs(t, checkOutput([]int64{1, 7, -1}), ErrModelLoad)
}

func TestCheckShape(t *testing.T) {
	declared := []int64{-1, 256, 256, 3}

	assert.NoError(t, CheckShape(declared, []int64{1, 256, 256, 3}))
	assert.ErrorIs(t, CheckShape(declared, []int64{1, 256, 256, 4}), ErrModelInputMismatch)
	assert.ErrorIs(t, CheckShape(declared, []int64{1, 256, 256, 1}), ErrModelInputMismatch)
	assert.ErrorIs(t, CheckShape(declared, []int64{1, 256, 256}), ErrModelInputMismatch)
}

func TestOpenONNX_MissingArtifact(t *testing.T) {
	_, err := OpenONNX(ONNXConfig{
		Path:    t.TempDir() + "/absent.onnx",
		Options: Options{ImageSize: 256, Layout: LayoutNHWC},
	})
	require.ErrorIs(t, err, ErrModelLoad)
}

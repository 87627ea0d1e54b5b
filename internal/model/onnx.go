package model

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNXConfig locates an ONNX model and the runtime library.
type ONNXConfig struct {
	Path        string
	LibraryPath string
	Options     Options
}

type onnxModel struct {
	session    *ort.DynamicAdvancedSession
	inputDims  []int64
	outputDims []int64
}

// ONNXLoader returns a Loader that opens cfg with onnxruntime.
func ONNXLoader(cfg ONNXConfig) Loader {
	return func(_ context.Context) (Model, error) {
		return OpenONNX(cfg)
	}
}

// OpenONNX initializes the onnxruntime environment and opens the model at
// cfg.Path. The model must take one float32 input whose fixed spatial dims
// agree with cfg.Options, and produce float32 output.
func OpenONNX(cfg ONNXConfig) (Model, error) {
	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelLoad, err)
	}

	if cfg.LibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("%w: failed to initialize ONNX environment: %w", ErrModelLoad, err)
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read model info: %w", ErrModelLoad, err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("%w: expected 1 model input, found %d", ErrModelLoad, len(inputs))
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("%w: model declares no outputs", ErrModelLoad)
	}

	in, out := inputs[0], outputs[0]
	if in.DataType != ort.TensorElementDataTypeFloat || out.DataType != ort.TensorElementDataTypeFloat {
		return nil, fmt.Errorf("%w: input and output must be float32, got %v -> %v", ErrModelLoad, in.DataType, out.DataType)
	}

	inputDims := []int64(in.Dimensions)
	if err := checkSpatial(inputDims, cfg.Options); err != nil {
		return nil, err
	}
	outputDims := []int64(out.Dimensions)
	if err := checkOutput(outputDims); err != nil {
		return nil, err
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.Path,
		[]string{in.Name}, []string{out.Name}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create ONNX session: %w", ErrModelLoad, err)
	}

	return &onnxModel{
		session:    session,
		inputDims:  inputDims,
		outputDims: outputDims,
	}, nil
}

// checkSpatial rejects models whose fixed H/W disagree with the configured
// image size. A mismatch here is a deployment error, not a request error.
func checkSpatial(dims []int64, opts Options) error {
	if len(dims) != 4 {
		return fmt.Errorf("%w: expected rank-4 image input, got %v", ErrModelLoad, dims)
	}

	h, w := dims[1], dims[2]
	if opts.Layout == LayoutNCHW {
		h, w = dims[2], dims[3]
	}
	size := int64(opts.ImageSize)
	if (h >= 0 && h != size) || (w >= 0 && w != size) {
		return fmt.Errorf("%w: model expects %dx%d input, configured image_size is %d", ErrModelLoad, h, w, size)
	}
	return nil
}

// checkOutput rejects outputs whose size is unknown before the run. Only the
// leading batch dim may be dynamic.
func checkOutput(dims []int64) error {
	for i, d := range dims {
		if i > 0 && d < 0 {
			return fmt.Errorf("%w: output dimension %d of %v is dynamic; only the batch dimension may be", ErrModelLoad, i, dims)
		}
	}
	return nil
}

func (m *onnxModel) InputShape() []int64 {
	return m.inputDims
}

// Predict runs one forward pass. Each call owns its tensors, so concurrent
// calls share only the session.
func (m *onnxModel) Predict(ctx context.Context, t *Tensor) (*Output, error) {
	if err := CheckShape(m.inputDims, t.Shape); err != nil {
		return nil, err
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(t.Shape...), t.Data)
	if err != nil {
		return nil, errors.WithStack(fmt.Errorf("%w: failed to create input tensor: %w", ErrInternal, err))
	}
	defer inputTensor.Destroy()

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(outputShape(m.outputDims, t.Shape[0])...))
	if err != nil {
		return nil, errors.WithStack(fmt.Errorf("%w: failed to create output tensor: %w", ErrInternal, err))
	}
	defer outputTensor.Destroy()

	if err := m.session.Run([]ort.Value{inputTensor}, []ort.Value{outputTensor}); err != nil {
		return nil, errors.WithStack(fmt.Errorf("%w: inference failed: %w", ErrInternal, err))
	}

	data := outputTensor.GetData()
	result := &Output{
		Shape: []int64(outputTensor.GetShape().Clone()),
		Data:  make([]float32, len(data)),
	}
	copy(result.Data, data)

	return result, nil
}

func (m *onnxModel) Close() error {
	if m.session != nil {
		if err := m.session.Destroy(); err != nil {
			return err
		}
	}
	return ort.DestroyEnvironment()
}

// outputShape resolves a dynamic leading dim to the batch size. Other dims
// are fixed, see checkOutput.
func outputShape(declared []int64, batch int64) []int64 {
	shape := make([]int64, len(declared))
	copy(shape, declared)
	if len(shape) > 0 && shape[0] < 0 {
		shape[0] = batch
	}
	return shape
}

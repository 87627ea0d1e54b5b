package model

import "errors"

// Domain errors for model loading and execution.
var (
	// ErrModelInputMismatch means the request produced a tensor the model
	// cannot accept, such as an unexpected channel count. It is a caller fault.
	ErrModelInputMismatch = errors.New("image incompatible with model input")

	// ErrModelLoad means the model artifact is missing or malformed. It is
	// fatal: a handle that fails to load stays failed.
	ErrModelLoad = errors.New("model load failed")

	// ErrInternal marks runtime or conversion defects.
	ErrInternal = errors.New("internal inference error")
)

package inference

import (
	"context"
	"errors"
	"net/http"

	"github.com/Brownie44l1/predict-api/internal/imaging"
	"github.com/Brownie44l1/predict-api/internal/model"
)

// ErrTimeout means the pipeline did not finish within its deadline.
var ErrTimeout = errors.New("inference timed out")

// MapHTTPStatus maps pipeline errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, imaging.ErrInvalidInput),
		errors.Is(err, imaging.ErrUnsupportedMedia),
		errors.Is(err, imaging.ErrDecode),
		errors.Is(err, model.ErrModelInputMismatch),
		errors.Is(err, ErrTimeout),
		errors.Is(err, context.Canceled):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrModelLoad):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ClientMessage returns the message safe to send to a caller. Caller faults
// pass through; server faults are reduced to a generic message.
func ClientMessage(err error) string {
	switch MapHTTPStatus(err) {
	case http.StatusServiceUnavailable:
		return "model unavailable"
	case http.StatusInternalServerError:
		return "internal server error"
	}
	if errors.Is(err, context.Canceled) {
		return "request canceled"
	}
	return err.Error()
}

// IsClientError reports whether err is the caller's fault.
func IsClientError(err error) bool {
	return MapHTTPStatus(err) < http.StatusInternalServerError
}

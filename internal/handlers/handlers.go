package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/Brownie44l1/predict-api/internal/imaging"
	"github.com/Brownie44l1/predict-api/internal/inference"
	"github.com/Brownie44l1/predict-api/internal/middleware"
)

// PredictRequest is the body of POST /predict.
type PredictRequest struct {
	ImageData string `json:"imageData" validate:"required"`
}

type Handler struct {
	pipeline *inference.Pipeline
	logger   *slog.Logger
	validate *validator.Validate
}

func NewHandler(pipeline *inference.Pipeline, logger *slog.Logger) *Handler {
	return &Handler{
		pipeline: pipeline,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Routes registers the handler's endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /predict", h.Predict)
}

func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.respondError(w, r, http.StatusRequestEntityTooLarge,
				fmt.Errorf("request body exceeds %d bytes", maxErr.Limit))
			return
		}
		h.respondError(w, r, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.respondError(w, r, http.StatusBadRequest,
			fmt.Errorf("%w: imageData is required", imaging.ErrInvalidInput))
		return
	}

	result, err := h.pipeline.Predict(r.Context(), req.ImageData)
	if err != nil {
		h.respondError(w, r, inference.MapHTTPStatus(err), err)
		return
	}

	RespondJSON(w, http.StatusOK, result)
}

// respondError logs err and writes the caller-safe message. Server faults
// are logged in full, with stack where one was recorded.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, status int, err error) {
	id := middleware.RequestID(r.Context())
	if status >= http.StatusInternalServerError {
		h.logger.Error("prediction failed", "request_id", id, "status", status, "error", fmt.Sprintf("%+v", err))
		RespondError(w, status, inference.ClientMessage(err))
		return
	}

	message := err.Error()
	if inference.IsClientError(err) {
		message = inference.ClientMessage(err)
	}
	h.logger.Warn("request rejected", "request_id", id, "status", status, "error", message)
	RespondError(w, status, message)
}

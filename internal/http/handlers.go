package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/prediction-service/internal/lifecycle"
	"github.com/kjstillabower/prediction-service/internal/observability"
	"github.com/kjstillabower/prediction-service/internal/service"
	"github.com/kjstillabower/prediction-service/internal/traffic"
	"github.com/kjstillabower/prediction-service/internal/validation"
)

// HealthConfig holds service metadata reported by /health and /model, plus the
// degraded-state thresholds.
type HealthConfig struct {
	ServiceName      string
	Title            string
	Description      string
	Version          string
	DegradedWindow   time.Duration
	DegradedErrorPct int
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	predictionService *service.PredictionService
	healthConfig      *HealthConfig
	logger            *zap.Logger
	maxBodyBytes      int64
	healthStatusMu    sync.Mutex
	healthStatusPrev  string
}

// NewHandler returns a new Handler. maxBodyBytes <= 0 disables the body size limit.
func NewHandler(
	predictionService *service.PredictionService,
	healthConfig *HealthConfig,
	logger *zap.Logger,
	maxBodyBytes int64,
) *Handler {
	return &Handler{
		predictionService: predictionService,
		healthConfig:      healthConfig,
		logger:            logger,
		maxBodyBytes:      maxBodyBytes,
	}
}

// PostPredict handles POST /predict.
func (h *Handler) PostPredict(w http.ResponseWriter, r *http.Request) {
	body, err := h.readBody(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			traffic.RecordRejected()
			writeError(w, r, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "request body too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "unable to read request body")
		return
	}

	result, err := h.predictionService.Predict(r.Context(), body)
	if err != nil {
		writePredictionError(w, r, err)
		return
	}
	traffic.RecordSuccess()
	writeJSON(w, r, http.StatusOK, result)
}

func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}
	return io.ReadAll(r.Body)
}

// GetModel handles GET /model. Returns API metadata, the input schema and artifact kinds.
func (h *Handler) GetModel(w http.ResponseWriter, r *http.Request) {
	info := h.predictionService.Info()
	if hc := h.healthConfig; hc != nil {
		info.Version = hc.Version
		if hc.Title != "" {
			info.Title = hc.Title
		}
		if hc.Description != "" {
			info.Description = hc.Description
		}
	}
	writeJSON(w, r, http.StatusOK, info)
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{"artifacts": "loaded", "predictions": "healthy"}
	switch result.status {
	case "starting":
		checks["artifacts"] = "pending"
	case "degraded":
		checks["predictions"] = "unhealthy"
	}
	resp := map[string]interface{}{
		"status":    result.status,
		"service":   "prediction-service",
		"version":   "dev",
		"schema":    h.predictionService.Schema().Name,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.healthConfig != nil {
		if h.healthConfig.ServiceName != "" {
			resp["service"] = h.healthConfig.ServiceName
		}
		if h.healthConfig.Version != "" {
			resp["version"] = h.healthConfig.Version
		}
	}
	writeJSON(w, r, result.statusCode, resp)
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > starting > degraded > healthy.
func (h *Handler) computeHealthStatus() healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if !lifecycle.IsReady() {
		return healthResult{"starting", http.StatusServiceUnavailable, "artifacts_not_loaded"}
	}
	if h.healthConfig != nil && h.healthConfig.DegradedWindow > 0 && h.healthConfig.DegradedErrorPct > 0 {
		errCount, total := traffic.ErrorRate(h.healthConfig.DegradedWindow)
		if total > 0 {
			pct := float64(errCount) * 100 / float64(total)
			if pct >= float64(h.healthConfig.DegradedErrorPct) {
				return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
			}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes a JSON response with the specified HTTP status code.
// The value is encoded before the header is sent, so a value that cannot be encoded
// is logged and answered with a 500 error envelope instead of an empty body.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	logger := observability.LoggerFromContext(r.Context())
	data, err := json.Marshal(v)
	if err != nil {
		logger.Error("encode response", zap.Int("status", status), zap.Error(err))
		status = http.StatusInternalServerError
		data, _ = json.Marshal(map[string]interface{}{"error": errorBody{
			Code:      "INTERNAL_ERROR",
			Message:   "internal error",
			RequestID: observability.CorrelationID(r.Context()),
		}})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		logger.Warn("write response", zap.Error(err))
	}
}

// errorBody is the standard error envelope. Fields is set only for validation failures.
type errorBody struct {
	Code      string                  `json:"code"`
	Message   string                  `json:"message"`
	RequestID string                  `json:"requestId"`
	Fields    []validation.FieldError `json:"fields,omitempty"`
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeErrorBody(w, r, status, errorBody{
		Code:      code,
		Message:   message,
		RequestID: observability.CorrelationID(r.Context()),
	})
}

func writeErrorBody(w http.ResponseWriter, r *http.Request, status int, body errorBody) {
	writeJSON(w, r, status, map[string]interface{}{"error": body})
}

// writePredictionError maps service errors to responses. Validation failures become 422 with
// field detail; prediction failures become 500 with the cause redacted (it is logged by the
// service); an expired request context becomes 503.
func writePredictionError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *validation.ValidationError
	var pe *service.PredictionError
	switch {
	case errors.As(err, &ve):
		traffic.RecordRejected()
		writeErrorBody(w, r, http.StatusUnprocessableEntity, errorBody{
			Code:      "VALIDATION_FAILED",
			Message:   "request validation failed",
			RequestID: observability.CorrelationID(r.Context()),
			Fields:    ve.Fields,
		})
	case errors.As(err, &pe):
		traffic.RecordError()
		writeError(w, r, http.StatusInternalServerError, "PREDICTION_FAILED", "unable to compute prediction")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, r, http.StatusServiceUnavailable, "REQUEST_TIMEOUT", "request timed out before prediction")
	default:
		traffic.RecordError()
		observability.LoggerFromContext(r.Context()).Error("unexpected prediction error", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/prediction-service/internal/artifact"
	"github.com/kjstillabower/prediction-service/internal/models"
	"github.com/kjstillabower/prediction-service/internal/observability"
	"github.com/kjstillabower/prediction-service/internal/validation"
)

// Stages reported in PredictionError.Stage.
const (
	StageTransform = "transform"
	StagePredict   = "predict"
	StageResult    = "result"
)

// ErrNonFinite is returned when the model produces NaN or an infinity.
var ErrNonFinite = errors.New("non-finite prediction")

// PredictionError reports a failure inside the scaler or model for an already validated input.
type PredictionError struct {
	Stage string
	Err   error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("prediction failed at %s: %v", e.Stage, e.Err)
}

func (e *PredictionError) Unwrap() error { return e.Err }

// PredictionService runs validate, transform and predict against the artifacts loaded at
// startup. It holds no mutable state and is safe for concurrent use.
type PredictionService struct {
	artifacts *artifact.Artifacts
}

// NewPredictionService wraps loaded artifacts. The artifacts must not be modified afterwards.
func NewPredictionService(artifacts *artifact.Artifacts) *PredictionService {
	return &PredictionService{artifacts: artifacts}
}

// Schema returns the request schema this service validates against.
func (s *PredictionService) Schema() validation.Schema {
	return s.artifacts.Schema
}

// Info describes the schema and loaded artifacts.
func (s *PredictionService) Info() models.ModelInfo {
	schema := s.artifacts.Schema
	return models.ModelInfo{
		Title:       schema.Title,
		Description: schema.Description,
		Schema:      schema.Name,
		Fields:      append([]validation.Field(nil), schema.Fields...),
		Output:      schema.Output,
		Unit:        schema.Unit,
		Scaler:      s.artifacts.Scaler.Kind(),
		Model:       s.artifacts.Model.Kind(),
		Features:    s.artifacts.Scaler.NumFeatures(),
	}
}

// Predict validates body, assembles the feature vector, scales it and runs the model.
// Validation failures return *validation.ValidationError before the scaler or model is
// touched. Scaler/model failures, including panics, return *PredictionError.
func (s *PredictionService) Predict(ctx context.Context, body []byte) (models.Prediction, error) {
	schema := s.artifacts.Schema
	logger := observability.LoggerFromContext(ctx)

	features, err := schema.Validate(body)
	if err != nil {
		var ve *validation.ValidationError
		if errors.As(err, &ve) {
			for _, f := range ve.Fields {
				observability.RecordValidationFailure(f.Field, f.Constraint)
			}
		}
		observability.RecordPrediction(schema.Name, observability.OutcomeRejected)
		logger.Debug("request rejected", zap.Error(err))
		return models.Prediction{}, err
	}

	if err := ctx.Err(); err != nil {
		observability.RecordPrediction(schema.Name, observability.OutcomeTimeout)
		return models.Prediction{}, err
	}

	start := time.Now()
	value, err := s.run(features, schema.Decimals)
	duration := time.Since(start)
	observability.PredictionDuration.WithLabelValues(schema.Name).Observe(duration.Seconds())
	if err != nil {
		observability.RecordPrediction(schema.Name, observability.OutcomeFailed)
		logger.Error("prediction failed", zap.Float64s("features", features), zap.Error(err))
		return models.Prediction{}, err
	}

	observability.RecordPrediction(schema.Name, observability.OutcomeSuccess)
	logger.Debug("prediction served",
		zap.String("schema", schema.Name),
		zap.Float64("prediction", value),
		zap.Duration("duration", duration))
	return models.Prediction{Field: schema.Output, Value: value, Unit: schema.Unit}, nil
}

// run applies the scaler then the model and rounds to decimals when decimals >= 0. A panic
// in either is recovered and reported as a PredictionError for the stage that raised it.
// The returned value is always finite.
func (s *PredictionService) run(features []float64, decimals int) (value float64, err error) {
	stage := StageTransform
	defer func() {
		if r := recover(); r != nil {
			value = 0
			err = &PredictionError{Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	scaled, err := s.artifacts.Scaler.Transform(features)
	if err != nil {
		return 0, &PredictionError{Stage: StageTransform, Err: err}
	}
	stage = StagePredict
	value, err = s.artifacts.Model.Predict(scaled)
	if err != nil {
		return 0, &PredictionError{Stage: StagePredict, Err: err}
	}
	stage = StageResult
	if decimals >= 0 {
		value = round(value, decimals)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, &PredictionError{Stage: StageResult, Err: ErrNonFinite}
	}
	return value, nil
}

// round returns the float64 nearest to v correctly rounded to the given number of decimal
// places, ties to even. Formatting avoids the overflow and double rounding of v*10^d.
func round(v float64, decimals int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', decimals, 64), 64)
	if err != nil {
		return v
	}
	return r
}

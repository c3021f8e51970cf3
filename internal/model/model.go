// Package model holds the fitted numeric objects served by the prediction service:
// feature scalers and regressors. Both are immutable after construction and safe
// for concurrent use.
package model

import "errors"

// ErrDimensionMismatch is returned when an input vector length differs from the
// number of features the scaler or regressor was fitted on.
var ErrDimensionMismatch = errors.New("feature dimension mismatch")

// ErrMalformedTree is returned when tree traversal leaves the node table or does
// not reach a leaf.
var ErrMalformedTree = errors.New("malformed decision tree")

// Scaler maps a raw feature vector to a normalized vector of the same length.
type Scaler interface {
	Kind() string
	NumFeatures() int
	Transform(x []float64) ([]float64, error)
}

// Regressor maps a normalized feature vector to a scalar prediction.
type Regressor interface {
	Kind() string
	NumFeatures() int
	Predict(x []float64) (float64, error)
}

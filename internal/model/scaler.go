package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

const (
	KindStandard = "standard"
	KindMinMax   = "minmax"
	KindIdentity = "identity"
)

// StandardScaler centers each feature on its fitted mean and divides by its fitted scale.
type StandardScaler struct {
	mean  *mat.VecDense
	scale *mat.VecDense
}

// NewStandardScaler builds a StandardScaler from fitted parameters. A nil mean means
// no centering. Zero scales are replaced by 1 so constant features pass through.
func NewStandardScaler(mean, scale []float64) (*StandardScaler, error) {
	n := len(scale)
	if n == 0 {
		return nil, fmt.Errorf("standard scaler: scale is empty")
	}
	if mean == nil {
		mean = make([]float64, n)
	}
	if len(mean) != n {
		return nil, fmt.Errorf("standard scaler: mean has %d values, scale has %d: %w", len(mean), n, ErrDimensionMismatch)
	}
	s := make([]float64, n)
	for i, v := range scale {
		if v == 0 {
			v = 1
		}
		s[i] = v
	}
	m := make([]float64, n)
	copy(m, mean)
	return &StandardScaler{
		mean:  mat.NewVecDense(n, m),
		scale: mat.NewVecDense(n, s),
	}, nil
}

func (s *StandardScaler) Kind() string     { return KindStandard }
func (s *StandardScaler) NumFeatures() int { return s.mean.Len() }

// Transform returns (x - mean) / scale.
func (s *StandardScaler) Transform(x []float64) ([]float64, error) {
	v, err := toVec(x, s.NumFeatures())
	if err != nil {
		return nil, err
	}
	v.SubVec(v, s.mean)
	v.DivElemVec(v, s.scale)
	return v.RawVector().Data, nil
}

// MinMaxScaler applies x*scale + min, the fitted form of a min-max feature range transform.
type MinMaxScaler struct {
	min   *mat.VecDense
	scale *mat.VecDense
}

// NewMinMaxScaler builds a MinMaxScaler from fitted per-feature offsets and scales.
func NewMinMaxScaler(min, scale []float64) (*MinMaxScaler, error) {
	n := len(scale)
	if n == 0 {
		return nil, fmt.Errorf("minmax scaler: scale is empty")
	}
	if len(min) != n {
		return nil, fmt.Errorf("minmax scaler: min has %d values, scale has %d: %w", len(min), n, ErrDimensionMismatch)
	}
	m := make([]float64, n)
	copy(m, min)
	s := make([]float64, n)
	copy(s, scale)
	return &MinMaxScaler{
		min:   mat.NewVecDense(n, m),
		scale: mat.NewVecDense(n, s),
	}, nil
}

func (s *MinMaxScaler) Kind() string     { return KindMinMax }
func (s *MinMaxScaler) NumFeatures() int { return s.min.Len() }

// Transform returns x*scale + min.
func (s *MinMaxScaler) Transform(x []float64) ([]float64, error) {
	v, err := toVec(x, s.NumFeatures())
	if err != nil {
		return nil, err
	}
	v.MulElemVec(v, s.scale)
	v.AddVec(v, s.min)
	return v.RawVector().Data, nil
}

// IdentityScaler passes features through unchanged. Used for models fitted on raw inputs.
type IdentityScaler struct {
	n int
}

func NewIdentityScaler(n int) (*IdentityScaler, error) {
	if n <= 0 {
		return nil, fmt.Errorf("identity scaler: n_features must be positive, got %d", n)
	}
	return &IdentityScaler{n: n}, nil
}

func (s *IdentityScaler) Kind() string     { return KindIdentity }
func (s *IdentityScaler) NumFeatures() int { return s.n }

func (s *IdentityScaler) Transform(x []float64) ([]float64, error) {
	if len(x) != s.n {
		return nil, fmt.Errorf("identity scaler: got %d features, want %d: %w", len(x), s.n, ErrDimensionMismatch)
	}
	out := make([]float64, len(x))
	copy(out, x)
	return out, nil
}

// toVec copies x into a fresh vector so the caller's slice is never modified.
func toVec(x []float64, want int) (*mat.VecDense, error) {
	if len(x) != want {
		return nil, fmt.Errorf("got %d features, want %d: %w", len(x), want, ErrDimensionMismatch)
	}
	data := make([]float64, len(x))
	copy(data, x)
	return mat.NewVecDense(len(data), data), nil
}

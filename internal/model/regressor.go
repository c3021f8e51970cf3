package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

const (
	KindLinear = "linear"
	KindTree   = "tree"
)

// LinearRegressor predicts coef·x + intercept.
type LinearRegressor struct {
	coef      *mat.VecDense
	intercept float64
}

// NewLinearRegressor builds a LinearRegressor from fitted coefficients.
func NewLinearRegressor(coef []float64, intercept float64) (*LinearRegressor, error) {
	if len(coef) == 0 {
		return nil, fmt.Errorf("linear regressor: coef is empty")
	}
	c := make([]float64, len(coef))
	copy(c, coef)
	return &LinearRegressor{coef: mat.NewVecDense(len(c), c), intercept: intercept}, nil
}

func (r *LinearRegressor) Kind() string     { return KindLinear }
func (r *LinearRegressor) NumFeatures() int { return r.coef.Len() }

// Coef returns a copy of the fitted coefficients.
func (r *LinearRegressor) Coef() []float64 {
	out := make([]float64, r.coef.Len())
	copy(out, r.coef.RawVector().Data)
	return out
}

// Intercept returns the fitted intercept.
func (r *LinearRegressor) Intercept() float64 { return r.intercept }

func (r *LinearRegressor) Predict(x []float64) (float64, error) {
	if len(x) != r.coef.Len() {
		return 0, fmt.Errorf("linear regressor: got %d features, want %d: %w", len(x), r.coef.Len(), ErrDimensionMismatch)
	}
	return mat.Dot(r.coef, mat.NewVecDense(len(x), x)) + r.intercept, nil
}

// TreeNode is one node of a fitted decision tree regressor. Internal nodes route on
// x[Feature] <= Threshold to Left, otherwise Right; leaves return Value.
type TreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
	Leaf      bool    `json:"leaf"`
}

// TreeRegressor evaluates a decision tree whose root is nodes[0].
type TreeRegressor struct {
	nodes     []TreeNode
	nFeatures int
}

// NewTreeRegressor checks node references and feature indices up front so Predict
// only fails on inputs of the wrong length.
func NewTreeRegressor(nFeatures int, nodes []TreeNode) (*TreeRegressor, error) {
	if nFeatures <= 0 {
		return nil, fmt.Errorf("tree regressor: n_features must be positive, got %d", nFeatures)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("tree regressor: no nodes: %w", ErrMalformedTree)
	}
	for i, n := range nodes {
		if n.Leaf {
			continue
		}
		if n.Feature < 0 || n.Feature >= nFeatures {
			return nil, fmt.Errorf("tree regressor: node %d feature %d out of range: %w", i, n.Feature, ErrMalformedTree)
		}
		if n.Left <= i || n.Left >= len(nodes) || n.Right <= i || n.Right >= len(nodes) {
			return nil, fmt.Errorf("tree regressor: node %d children (%d, %d) invalid: %w", i, n.Left, n.Right, ErrMalformedTree)
		}
	}
	cp := make([]TreeNode, len(nodes))
	copy(cp, nodes)
	return &TreeRegressor{nodes: cp, nFeatures: nFeatures}, nil
}

func (r *TreeRegressor) Kind() string     { return KindTree }
func (r *TreeRegressor) NumFeatures() int { return r.nFeatures }

func (r *TreeRegressor) Predict(x []float64) (float64, error) {
	if len(x) != r.nFeatures {
		return 0, fmt.Errorf("tree regressor: got %d features, want %d: %w", len(x), r.nFeatures, ErrDimensionMismatch)
	}
	i := 0
	// children always have larger indices, so a walk visits at most len(nodes) nodes
	for steps := 0; steps < len(r.nodes); steps++ {
		n := r.nodes[i]
		if n.Leaf {
			return n.Value, nil
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return 0, ErrMalformedTree
}

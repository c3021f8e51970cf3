package models

import (
	"encoding/json"

	"github.com/kjstillabower/prediction-service/internal/validation"
)

// Prediction is the response body for one prediction call. It marshals to
// {"<Field>": Value} plus "unit" when Unit is set.
type Prediction struct {
	Field string
	Value float64
	Unit  string
}

func (p Prediction) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{p.Field: p.Value}
	if p.Unit != "" {
		out["unit"] = p.Unit
	}
	return json.Marshal(out)
}

// ModelInfo describes the loaded artifacts and input schema for GET /model.
type ModelInfo struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Version     string             `json:"version"`
	Schema      string             `json:"schema"`
	Fields      []validation.Field `json:"fields"`
	Output      string             `json:"output"`
	Unit        string             `json:"unit,omitempty"`
	Scaler      string             `json:"scaler"`
	Model       string             `json:"model"`
	Features    int                `json:"features"`
}

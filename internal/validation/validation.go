package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrValidation matches every *ValidationError via errors.Is.
var ErrValidation = errors.New("validation failed")

// Constraint names reported in FieldError.Constraint.
const (
	ConstraintRequired = "required"
	ConstraintType     = "type"
	ConstraintGT       = "gt"
	ConstraintGE       = "ge"
	ConstraintLT       = "lt"
	ConstraintLE       = "le"
	ConstraintBody     = "body"
)

// FieldError describes one violated constraint. Limit is set for range constraints.
type FieldError struct {
	Field      string   `json:"field"`
	Constraint string   `json:"constraint"`
	Limit      *float64 `json:"limit,omitempty"`
	Message    string   `json:"message"`
}

// ValidationError lists every field that failed validation for one request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Validate decodes body as a JSON object and checks each declared field is present,
// a finite number (a JSON number or a numeric string), and inside its range. On success it returns the feature
// vector in declared field order. Undeclared keys are ignored.
func (s Schema) Validate(body []byte) ([]float64, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		msg := "request body must be a JSON object"
		if err != nil {
			msg = "malformed JSON: " + err.Error()
		}
		return nil, &ValidationError{Fields: []FieldError{{Field: "body", Constraint: ConstraintBody, Message: msg}}}
	}

	vec := make([]float64, len(s.Fields))
	var errs []FieldError
	for i, f := range s.Fields {
		v, fe := f.check(raw)
		if fe != nil {
			errs = append(errs, *fe)
			continue
		}
		vec[i] = v
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}
	return vec, nil
}

// check extracts the field from raw and applies type and range rules.
func (f Field) check(raw map[string]json.RawMessage) (float64, *FieldError) {
	msg, ok := raw[f.Name]
	if !ok {
		return 0, &FieldError{Field: f.Name, Constraint: ConstraintRequired, Message: "field required"}
	}
	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.UseNumber()
	var tok interface{}
	if err := dec.Decode(&tok); err != nil {
		return 0, &FieldError{Field: f.Name, Constraint: ConstraintType, Message: "must be a number"}
	}
	var text string
	switch t := tok.(type) {
	case json.Number:
		text = t.String()
	case string:
		// numeric strings such as "100" or " 2.5 " are coerced; hex literals are not
		text = strings.TrimSpace(t)
		if text == "" || strings.ContainsAny(text, "xX_") {
			return 0, &FieldError{Field: f.Name, Constraint: ConstraintType, Message: "must be a number"}
		}
	default:
		return 0, &FieldError{Field: f.Name, Constraint: ConstraintType, Message: "must be a number"}
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, &FieldError{Field: f.Name, Constraint: ConstraintType, Message: "must be a finite number"}
	}
	if fe := f.checkRange(v); fe != nil {
		return 0, fe
	}
	return v, nil
}

func (f Field) checkRange(v float64) *FieldError {
	lower, upper := f.Min, f.Max
	if f.MinInclusive {
		if v < lower {
			return rangeError(f.Name, ConstraintGE, lower, "greater than or equal to")
		}
	} else if v <= lower {
		return rangeError(f.Name, ConstraintGT, lower, "greater than")
	}
	if f.MaxInclusive {
		if v > upper {
			return rangeError(f.Name, ConstraintLE, upper, "less than or equal to")
		}
	} else if v >= upper {
		return rangeError(f.Name, ConstraintLT, upper, "less than")
	}
	return nil
}

func rangeError(field, constraint string, limit float64, phrase string) *FieldError {
	l := limit
	return &FieldError{
		Field:      field,
		Constraint: constraint,
		Limit:      &l,
		Message:    fmt.Sprintf("must be %s %s", phrase, strconv.FormatFloat(limit, 'g', -1, 64)),
	}
}

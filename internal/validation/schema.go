package validation

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownSchema is returned by Lookup for names with no registered schema.
var ErrUnknownSchema = errors.New("unknown schema")

// Field declares one numeric input and its allowed range.
type Field struct {
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	MinInclusive bool    `json:"minInclusive"`
	MaxInclusive bool    `json:"maxInclusive"`
}

// Schema is a fixed request shape. Fields are listed in the order the scaler was fitted on.
type Schema struct {
	Name        string  `json:"name"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Fields      []Field `json:"fields"`
	Output      string  `json:"output"`
	Unit        string  `json:"unit,omitempty"`
	// Decimals rounds the prediction when >= 0. -1 leaves it untouched.
	Decimals int `json:"decimals"`
}

// FieldNames returns the field names in feature-vector order.
func (s Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

const (
	WaterUsage      = "water_usage"
	WaterEfficiency = "water_efficiency"
)

var builtin = map[string]Schema{
	WaterUsage: {
		Name:        WaterUsage,
		Title:       "Water Usage Predictor API",
		Description: "Predicts yearly water usage based on daily usage and population.",
		Fields: []Field{
			{Name: "daily_water_usage", Description: "Average daily water usage per capita in liters (0-1000)", Min: 0, Max: 1000},
			{Name: "population", Description: "Population of the country (1000 to 2 billion)", Min: 1000, Max: 2e9},
		},
		Output:   "predicted_yearly_water_usage",
		Decimals: -1,
	},
	WaterEfficiency: {
		Name:        WaterEfficiency,
		Title:       "Water Efficiency Predictor API",
		Description: "Predicts water efficiency of energy generation from weather conditions.",
		Fields: []Field{
			{Name: "temperature", Description: "Air temperature in degrees Celsius", Min: -50, Max: 60, MinInclusive: true, MaxInclusive: true},
			{Name: "humidity", Description: "Relative humidity in percent", Min: 0, Max: 100, MinInclusive: true, MaxInclusive: true},
			{Name: "wind_speed", Description: "Wind speed in km/h", Min: 0, Max: 150, MinInclusive: true, MaxInclusive: true},
			{Name: "precipitation", Description: "Precipitation in mm", Min: 0, Max: 500, MinInclusive: true, MaxInclusive: true},
		},
		Output:   "predicted_water_efficiency",
		Unit:     "L/KWh",
		Decimals: 4,
	},
}

// Lookup returns the built-in schema registered under name.
func Lookup(name string) (Schema, error) {
	s, ok := builtin[name]
	if !ok {
		return Schema{}, fmt.Errorf("%w: %q (known: %v)", ErrUnknownSchema, name, Names())
	}
	// Fields is shared with the registry; hand out a copy.
	s.Fields = append([]Field(nil), s.Fields...)
	return s, nil
}

// Names lists the registered schema names in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for n := range builtin {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

package models

import (
	"encoding/json"
	"testing"
)

func TestPrediction_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		p    Prediction
		want string
	}{
		{"no unit", Prediction{Field: "predicted_yearly_water_usage", Value: 36500}, `{"predicted_yearly_water_usage":36500}`},
		{"with unit", Prediction{Field: "predicted_water_efficiency", Value: 1.2345, Unit: "L/KWh"}, `{"predicted_water_efficiency":1.2345,"unit":"L/KWh"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := json.Marshal(tc.p)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(got) != tc.want {
				t.Errorf("Marshal() = %s, want %s", got, tc.want)
			}
		})
	}
}

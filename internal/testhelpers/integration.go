// Package testhelpers writes fixture artifacts for tests that exercise loading and
// serving end to end.
package testhelpers

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/kjstillabower/prediction-service/internal/artifact"
	"github.com/kjstillabower/prediction-service/internal/validation"
)

const (
	ScalerFile = "scaler.json"
	ModelFile  = "model.json"
)

// IdentityScaler returns a pass-through scaler document for n features.
func IdentityScaler(n int) map[string]interface{} {
	return map[string]interface{}{"kind": "identity", "n_features": n}
}

// SumModel returns a linear model document that adds its n inputs.
func SumModel(n int) map[string]interface{} {
	coef := make([]float64, n)
	for i := range coef {
		coef[i] = 1
	}
	return map[string]interface{}{"kind": "linear", "coef": coef, "intercept": 0}
}

// WriteJSON marshals v into dir/name and returns the full path.
func WriteJSON(t *testing.T, dir, name string, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal %s: %v", name, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteArtifacts writes a scaler and model document into a fresh temp dir.
func WriteArtifacts(t *testing.T, scaler, model interface{}) artifact.Paths {
	t.Helper()
	dir := t.TempDir()
	WriteJSON(t, dir, ScalerFile, scaler)
	WriteJSON(t, dir, ModelFile, model)
	return artifact.Paths{Dir: dir, ScalerFile: ScalerFile, ModelFile: ModelFile}
}

// LoadSumArtifacts loads identity-scaler and sum-model artifacts for the named schema,
// so a prediction equals the sum of the request fields.
func LoadSumArtifacts(t *testing.T, schemaName string) *artifact.Artifacts {
	t.Helper()
	schema, err := validation.Lookup(schemaName)
	if err != nil {
		t.Fatalf("Lookup(%q): %v", schemaName, err)
	}
	n := len(schema.Fields)
	paths := WriteArtifacts(t, IdentityScaler(n), SumModel(n))
	arts, err := artifact.Load(paths, schema)
	if err != nil {
		t.Fatalf("artifact.Load: %v", err)
	}
	return arts
}

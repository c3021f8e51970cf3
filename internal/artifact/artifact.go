// Package artifact loads the fitted scaler and regressor exported by the offline
// training process. Loading happens once at startup; any failure is fatal.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kjstillabower/prediction-service/internal/model"
	"github.com/kjstillabower/prediction-service/internal/validation"
)

const (
	NameScaler = "scaler"
	NameModel  = "model"
)

// ErrUnknownKind is returned when an artifact's kind has no decoder.
var ErrUnknownKind = errors.New("unknown artifact kind")

// ErrShapeMismatch is returned when artifact dimensions disagree with each other or the schema.
var ErrShapeMismatch = errors.New("artifact shape mismatch")

// StartupError reports an artifact that could not be loaded. The service must not start.
type StartupError struct {
	Artifact string
	Path     string
	Err      error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("load %s artifact %s: %v", e.Artifact, e.Path, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

// Paths locates the artifact pair. Relative file names resolve against Dir.
type Paths struct {
	Dir        string
	ScalerFile string
	ModelFile  string
}

func (p Paths) resolve(name string) string {
	if filepath.IsAbs(name) || p.Dir == "" {
		return name
	}
	return filepath.Join(p.Dir, name)
}

// Artifacts is the read-only state shared by every request after startup.
type Artifacts struct {
	Schema     validation.Schema
	Scaler     model.Scaler
	Model      model.Regressor
	ScalerPath string
	ModelPath  string
}

type scalerFile struct {
	Kind         string    `json:"kind"`
	FeatureNames []string  `json:"feature_names"`
	NFeatures    int       `json:"n_features"`
	Mean         []float64 `json:"mean"`
	Scale        []float64 `json:"scale"`
	Min          []float64 `json:"min"`
}

type modelFile struct {
	Kind      string           `json:"kind"`
	NFeatures int              `json:"n_features"`
	Coef      []float64        `json:"coef"`
	Intercept float64          `json:"intercept"`
	Nodes     []model.TreeNode `json:"nodes"`
}

// Load reads and decodes both artifacts and checks that the scaler matches the schema's
// field count and order and that the model accepts the scaler's output.
func Load(paths Paths, schema validation.Schema) (*Artifacts, error) {
	scalerPath := paths.resolve(paths.ScalerFile)
	modelPath := paths.resolve(paths.ModelFile)

	scaler, err := loadScaler(scalerPath, schema)
	if err != nil {
		return nil, &StartupError{Artifact: NameScaler, Path: scalerPath, Err: err}
	}
	reg, err := loadModel(modelPath)
	if err != nil {
		return nil, &StartupError{Artifact: NameModel, Path: modelPath, Err: err}
	}
	if reg.NumFeatures() != scaler.NumFeatures() {
		return nil, &StartupError{
			Artifact: NameModel,
			Path:     modelPath,
			Err:      fmt.Errorf("%w: model expects %d features, scaler produces %d", ErrShapeMismatch, reg.NumFeatures(), scaler.NumFeatures()),
		}
	}
	return &Artifacts{
		Schema:     schema,
		Scaler:     scaler,
		Model:      reg,
		ScalerPath: scalerPath,
		ModelPath:  modelPath,
	}, nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func loadScaler(path string, schema validation.Schema) (model.Scaler, error) {
	var f scalerFile
	if err := readJSON(path, &f); err != nil {
		return nil, err
	}

	var (
		s   model.Scaler
		err error
	)
	switch f.Kind {
	case model.KindStandard:
		s, err = model.NewStandardScaler(f.Mean, f.Scale)
	case model.KindMinMax:
		s, err = model.NewMinMaxScaler(f.Min, f.Scale)
	case model.KindIdentity:
		s, err = model.NewIdentityScaler(f.NFeatures)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, f.Kind)
	}
	if err != nil {
		return nil, err
	}

	want := schema.FieldNames()
	if s.NumFeatures() != len(want) {
		return nil, fmt.Errorf("%w: scaler fitted on %d features, schema %s declares %d", ErrShapeMismatch, s.NumFeatures(), schema.Name, len(want))
	}
	if len(f.FeatureNames) > 0 {
		if len(f.FeatureNames) != len(want) {
			return nil, fmt.Errorf("%w: feature_names has %d entries, want %d", ErrShapeMismatch, len(f.FeatureNames), len(want))
		}
		for i, name := range f.FeatureNames {
			if name != want[i] {
				return nil, fmt.Errorf("%w: feature %d is %q, schema expects %q", ErrShapeMismatch, i, name, want[i])
			}
		}
	}
	return s, nil
}

func loadModel(path string) (model.Regressor, error) {
	var f modelFile
	if err := readJSON(path, &f); err != nil {
		return nil, err
	}
	switch f.Kind {
	case model.KindLinear:
		if f.NFeatures > 0 && f.NFeatures != len(f.Coef) {
			return nil, fmt.Errorf("%w: n_features %d, coef has %d", ErrShapeMismatch, f.NFeatures, len(f.Coef))
		}
		return model.NewLinearRegressor(f.Coef, f.Intercept)
	case model.KindTree:
		return model.NewTreeRegressor(f.NFeatures, f.Nodes)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, f.Kind)
	}
}

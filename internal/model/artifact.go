package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/attrition-dashboard/backend/internal/employee"
	"github.com/attrition-dashboard/backend/pkg/logger"
)

// Artifact kinds.
const (
	KindRandomForest       = "random_forest"
	KindLogisticRegression = "logistic_regression"
)

// Artifact is the JSON export of a trained estimator.
type Artifact struct {
	Kind         string         `json:"kind"`
	FeatureNames []string       `json:"feature_names"`
	Trees        []TreeArtifact `json:"trees,omitempty"`
	Coefficients []float64      `json:"coefficients,omitempty"`
	Intercept    float64        `json:"intercept,omitempty"`
}

// TreeArtifact uses the node arrays of a fitted decision tree. Leaves have -1 children;
// Value holds per-class sample counts (or fractions) for every node.
type TreeArtifact struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

// LoadArtifact reads and validates the model file at path. Any failure is a
// *employee.StartupError.
func LoadArtifact(path string) (Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &employee.StartupError{Source: path, Err: err}
	}

	m, err := ParseArtifact(data, filepath.Base(path))
	if err != nil {
		return nil, &employee.StartupError{Source: path, Err: err}
	}

	logger.Info("Model artifact loaded",
		zap.String("path", path),
		zap.String("model", m.Name()),
		zap.Int("features", len(m.FeatureNames())),
	)
	return m, nil
}

// ParseArtifact builds a Model from artifact JSON. Feature names are mapped onto the
// canonical dataset schema.
func ParseArtifact(data []byte, name string) (Model, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to decode model artifact: %w", err)
	}

	names, err := canonicalNames(a.FeatureNames)
	if err != nil {
		return nil, err
	}

	switch a.Kind {
	case KindRandomForest:
		return newForest(name, names, a.Trees)
	case KindLogisticRegression:
		return newLogistic(name, names, a.Coefficients, a.Intercept)
	case "":
		return nil, fmt.Errorf("model artifact has no kind")
	default:
		return nil, fmt.Errorf("unsupported model kind %q", a.Kind)
	}
}

func canonicalNames(raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("model artifact lists no feature names")
	}

	names := make([]string, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, n := range raw {
		c := employee.CanonicalColumn(n)
		if c == "" {
			return nil, fmt.Errorf("feature %d has an empty name", i)
		}
		if seen[c] {
			return nil, fmt.Errorf("duplicate feature %q", c)
		}
		seen[c] = true
		names[i] = c
	}
	return names, nil
}

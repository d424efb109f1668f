package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/attrition-dashboard/backend/internal/features"
)

var (
	// ErrFeatureMismatch means a vector was not reconciled against this model's columns.
	ErrFeatureMismatch = errors.New("feature vector does not match model columns")

	// ErrModelUnavailable wraps failures of a remote inference backend.
	ErrModelUnavailable = errors.New("model backend unavailable")
)

// DecisionThreshold separates the positive class in Predict.
const DecisionThreshold = 0.5

// Model is a trained binary classifier over a fixed, ordered list of input columns.
type Model interface {
	Name() string
	FeatureNames() []string
	PredictProba(ctx context.Context, v features.Vector) (float64, error)
	Predict(ctx context.Context, v features.Vector) (int, error)
}

// Scorer is implemented by models that return probability and class from one
// evaluation. Callers prefer it over PredictProba followed by Predict.
type Scorer interface {
	Score(ctx context.Context, v features.Vector) (float64, int, error)
}

// classOf mirrors argmax over [p0, p1] with ties going to class 0.
func classOf(p float64) int {
	if p > DecisionThreshold {
		return 1
	}
	return 0
}

func checkColumns(names []string, v features.Vector) error {
	if len(v.Columns) != len(names) || len(v.Values) != len(names) {
		return fmt.Errorf("%w: got %d columns, model expects %d", ErrFeatureMismatch, len(v.Columns), len(names))
	}
	for i, name := range names {
		if v.Columns[i] != name {
			return fmt.Errorf("%w: column %d is %q, model expects %q", ErrFeatureMismatch, i, v.Columns[i], name)
		}
	}
	return nil
}

package model

import (
	"context"
	"fmt"
	"math"

	"github.com/attrition-dashboard/backend/internal/features"
)

// Logistic is a binary logistic regression.
type Logistic struct {
	name         string
	features     []string
	coefficients []float64
	intercept    float64
}

func newLogistic(name string, names []string, coefficients []float64, intercept float64) (*Logistic, error) {
	if len(coefficients) != len(names) {
		return nil, fmt.Errorf("logistic regression has %d coefficients for %d features", len(coefficients), len(names))
	}
	for i, c := range coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("coefficient %d is not finite", i)
		}
	}

	return &Logistic{
		name:         name,
		features:     names,
		coefficients: append([]float64(nil), coefficients...),
		intercept:    intercept,
	}, nil
}

func (l *Logistic) Name() string { return l.name }

func (l *Logistic) FeatureNames() []string {
	return append([]string(nil), l.features...)
}

func (l *Logistic) PredictProba(_ context.Context, v features.Vector) (float64, error) {
	if err := checkColumns(l.features, v); err != nil {
		return 0, err
	}

	z := l.intercept
	for i, c := range l.coefficients {
		z += c * v.Values[i]
	}
	return 1 / (1 + math.Exp(-z)), nil
}

func (l *Logistic) Predict(ctx context.Context, v features.Vector) (int, error) {
	p, err := l.PredictProba(ctx, v)
	if err != nil {
		return 0, err
	}
	return classOf(p), nil
}

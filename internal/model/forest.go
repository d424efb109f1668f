package model

import (
	"context"
	"fmt"

	"github.com/attrition-dashboard/backend/internal/features"
)

const leaf = -1

type tree struct {
	left, right []int
	feature     []int
	threshold   []float64
	positive    []float64 // positive-class fraction per node
}

// Forest averages the positive-class leaf fraction over its trees.
type Forest struct {
	name     string
	features []string
	trees    []tree
}

func newForest(name string, names []string, artifacts []TreeArtifact) (*Forest, error) {
	if len(artifacts) == 0 {
		return nil, fmt.Errorf("random forest has no trees")
	}

	f := &Forest{name: name, features: names, trees: make([]tree, len(artifacts))}
	for i, a := range artifacts {
		t, err := buildTree(a, len(names))
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		f.trees[i] = t
	}
	return f, nil
}

func buildTree(a TreeArtifact, nFeatures int) (tree, error) {
	n := len(a.ChildrenLeft)
	if n == 0 {
		return tree{}, fmt.Errorf("no nodes")
	}
	if len(a.ChildrenRight) != n || len(a.Feature) != n || len(a.Threshold) != n || len(a.Value) != n {
		return tree{}, fmt.Errorf("node arrays have different lengths")
	}

	t := tree{
		left:      a.ChildrenLeft,
		right:     a.ChildrenRight,
		feature:   a.Feature,
		threshold: a.Threshold,
		positive:  make([]float64, n),
	}

	for i := 0; i < n; i++ {
		l, r := a.ChildrenLeft[i], a.ChildrenRight[i]
		if (l == leaf) != (r == leaf) {
			return tree{}, fmt.Errorf("node %d has exactly one child", i)
		}
		if l != leaf {
			// Children always follow their parent in the node arrays, which also rules out cycles.
			if l <= i || l >= n || r <= i || r >= n {
				return tree{}, fmt.Errorf("node %d has out-of-range children (%d, %d)", i, l, r)
			}
			if a.Feature[i] < 0 || a.Feature[i] >= nFeatures {
				return tree{}, fmt.Errorf("node %d splits on unknown feature %d", i, a.Feature[i])
			}
		}

		counts := a.Value[i]
		if len(counts) != 2 {
			return tree{}, fmt.Errorf("node %d has %d class values, want 2", i, len(counts))
		}
		total := counts[0] + counts[1]
		if total <= 0 {
			if l == leaf {
				return tree{}, fmt.Errorf("leaf %d has no samples", i)
			}
			continue
		}
		t.positive[i] = counts[1] / total
	}

	return t, nil
}

func (t tree) predict(x []float64) float64 {
	node := 0
	for t.left[node] != leaf {
		if x[t.feature[node]] <= t.threshold[node] {
			node = t.left[node]
		} else {
			node = t.right[node]
		}
	}
	return t.positive[node]
}

func (f *Forest) Name() string { return f.name }

func (f *Forest) FeatureNames() []string {
	return append([]string(nil), f.features...)
}

func (f *Forest) PredictProba(_ context.Context, v features.Vector) (float64, error) {
	if err := checkColumns(f.features, v); err != nil {
		return 0, err
	}

	var sum float64
	for _, t := range f.trees {
		sum += t.predict(v.Values)
	}
	return sum / float64(len(f.trees)), nil
}

func (f *Forest) Predict(ctx context.Context, v features.Vector) (int, error) {
	p, err := f.PredictProba(ctx, v)
	if err != nil {
		return 0, err
	}
	return classOf(p), nil
}

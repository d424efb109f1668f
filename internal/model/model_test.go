package model

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attrition-dashboard/backend/internal/employee"
	"github.com/attrition-dashboard/backend/internal/features"
	"github.com/attrition-dashboard/backend/pkg/circuitbreaker"
)

// Two stumps over satisfaction_level and average_monthly_hours.
const forestJSON = `{
  "kind": "random_forest",
  "feature_names": ["satisfaction_level", "average_montly_hours", "Department_sales"],
  "trees": [
    {
      "children_left":  [1, -1, -1],
      "children_right": [2, -1, -1],
      "feature":        [0, -2, -2],
      "threshold":      [0.4, -2, -2],
      "value":          [[50, 50], [10, 90], [40, 10]]
    },
    {
      "children_left":  [1, -1, -1],
      "children_right": [2, -1, -1],
      "feature":        [1, -2, -2],
      "threshold":      [250, -2, -2],
      "value":          [[50, 50], [0.8, 0.2], [0.3, 0.7]]
    }
  ]
}`

func vec(m Model, values ...float64) features.Vector {
	return features.Vector{Columns: m.FeatureNames(), Values: values}
}

func TestParseArtifact_Forest(t *testing.T) {
	m, err := ParseArtifact([]byte(forestJSON), "hr_rf")
	require.NoError(t, err)

	assert.Equal(t, "hr_rf", m.Name())
	assert.Equal(t, []string{"satisfaction_level", "average_monthly_hours", "department_sales"}, m.FeatureNames(),
		"feature names follow the canonical schema")

	ctx := context.Background()
	tests := []struct {
		name         string
		satisfaction float64
		hours        float64
		want         float64
		class        int
	}{
		{"dissatisfied and overworked", 0.2, 280, (0.9 + 0.7) / 2, 1},
		{"threshold goes left", 0.4, 250, (0.9 + 0.2) / 2, 1},
		{"satisfied and balanced", 0.8, 160, (0.2 + 0.2) / 2, 0},
		{"satisfied and overworked", 0.9, 300, (0.2 + 0.7) / 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := m.PredictProba(ctx, vec(m, tt.satisfaction, tt.hours, 0))
			require.NoError(t, err)
			assert.InDelta(t, tt.want, p, 1e-12)

			class, err := m.Predict(ctx, vec(m, tt.satisfaction, tt.hours, 0))
			require.NoError(t, err)
			assert.Equal(t, tt.class, class)
		})
	}
}

func TestForest_RejectsMisalignedVector(t *testing.T) {
	m, err := ParseArtifact([]byte(forestJSON), "hr_rf")
	require.NoError(t, err)

	_, err = m.PredictProba(context.Background(), features.Vector{
		Columns: []string{"average_monthly_hours", "satisfaction_level", "department_sales"},
		Values:  []float64{280, 0.2, 0},
	})
	assert.ErrorIs(t, err, ErrFeatureMismatch)

	_, err = m.PredictProba(context.Background(), features.Vector{Columns: []string{"satisfaction_level"}, Values: []float64{0.2}})
	assert.ErrorIs(t, err, ErrFeatureMismatch)
}

func TestParseArtifact_Logistic(t *testing.T) {
	data := `{"kind":"logistic_regression","feature_names":["satisfaction_level","tenure"],"coefficients":[-4,0.5],"intercept":1}`
	m, err := ParseArtifact([]byte(data), "lr")
	require.NoError(t, err)

	p, err := m.PredictProba(context.Background(), vec(m, 0.5, 2))
	require.NoError(t, err)
	// z = 1 - 2 + 1 = 0
	assert.InDelta(t, 0.5, p, 1e-12)

	class, err := m.Predict(context.Background(), vec(m, 0.5, 2))
	require.NoError(t, err)
	assert.Equal(t, 0, class, "ties go to class 0")

	p, err = m.PredictProba(context.Background(), vec(m, 0, 10))
	require.NoError(t, err)
	assert.InDelta(t, 1/(1+math.Exp(-6)), p, 1e-12)
}

func TestParseArtifact_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad json":          `{`,
		"no kind":           `{"feature_names":["a"]}`,
		"unknown kind":      `{"kind":"svm","feature_names":["a"]}`,
		"no features":       `{"kind":"logistic_regression","coefficients":[]}`,
		"duplicate feature": `{"kind":"logistic_regression","feature_names":["tenure","time_spend_company"],"coefficients":[1,1]}`,
		"coef mismatch":     `{"kind":"logistic_regression","feature_names":["a","b"],"coefficients":[1]}`,
		"no trees":          `{"kind":"random_forest","feature_names":["a"],"trees":[]}`,
		"ragged tree": `{"kind":"random_forest","feature_names":["a"],"trees":[{"children_left":[1,-1],"children_right":[2,-1,-1],
			"feature":[0,-2,-2],"threshold":[0.5,0,0],"value":[[1,1],[1,0],[0,1]]}]}`,
		"backwards child": `{"kind":"random_forest","feature_names":["a"],"trees":[{"children_left":[0,-1,-1],"children_right":[2,-1,-1],
			"feature":[0,-2,-2],"threshold":[0.5,0,0],"value":[[1,1],[1,0],[0,1]]}]}`,
		"unknown feature": `{"kind":"random_forest","feature_names":["a"],"trees":[{"children_left":[1,-1,-1],"children_right":[2,-1,-1],
			"feature":[3,-2,-2],"threshold":[0.5,0,0],"value":[[1,1],[1,0],[0,1]]}]}`,
		"empty leaf": `{"kind":"random_forest","feature_names":["a"],"trees":[{"children_left":[1,-1,-1],"children_right":[2,-1,-1],
			"feature":[0,-2,-2],"threshold":[0.5,0,0],"value":[[1,1],[0,0],[0,1]]}]}`,
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseArtifact([]byte(data), name)
			assert.Error(t, err)
		})
	}
}

func TestLoadArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	require.NoError(t, os.WriteFile(path, []byte(forestJSON), 0o644))

	m, err := LoadArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, "model.json", m.Name())

	_, err = LoadArtifact(filepath.Join(dir, "missing.json"))
	assert.True(t, employee.IsStartupError(err))

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("not json"), 0o644))
	_, err = LoadArtifact(corrupt)
	assert.True(t, employee.IsStartupError(err))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		p    float64
		want RiskLevel
	}{
		{0.0, RiskLow},
		{0.29, RiskLow},
		{0.30, RiskMedium},
		{0.5, RiskMedium},
		{0.69, RiskMedium},
		{0.70, RiskHigh},
		{1.0, RiskHigh},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.p), "probability %v", tt.p)
	}

	assert.Contains(t, RiskHigh.Message(), "very likely to leave")
	assert.Contains(t, RiskMedium.Message(), "Monitor closely")
	assert.Contains(t, RiskLow.Message(), "likely to stay")
}

type fakeSidecar struct {
	status  atomic.Int32
	calls   atomic.Int32
	mu      sync.Mutex
	columns []string
}

func (f *fakeSidecar) lastColumns() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.columns
}

func newSidecar(t *testing.T) (*fakeSidecar, *httptest.Server) {
	t.Helper()

	f := &fakeSidecar{}
	f.status.Store(http.StatusOK)

	mux := http.NewServeMux()
	mux.HandleFunc("/metadata", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"name":          "rf2_pipeline",
			"feature_names": []string{"satisfaction_level", "Work_accident"},
		})
	})
	mux.HandleFunc("/predict", func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		if code := int(f.status.Load()); code != http.StatusOK {
			w.WriteHeader(code)
			w.Write([]byte("boom"))
			return
		}
		var req remotePredictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.columns = req.Columns
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]interface{}{"probability": 1 - req.Values[0]})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func TestRemoteModel(t *testing.T) {
	_, srv := newSidecar(t)

	m, err := NewRemoteModel(context.Background(), srv.URL+"/", 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "rf2_pipeline", m.Name())
	assert.Equal(t, []string{"satisfaction_level", "work_accident"}, m.FeatureNames())

	v := features.Vector{Columns: m.FeatureNames(), Values: []float64{0.25, 0}}
	p, err := m.PredictProba(context.Background(), v)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, p, 1e-12)

	class, err := m.Predict(context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, 1, class)
}

func TestRemoteModel_SendsSidecarColumnNames(t *testing.T) {
	sidecar, srv := newSidecar(t)

	m, err := NewRemoteModel(context.Background(), srv.URL, 2*time.Second)
	require.NoError(t, err)

	_, err = m.PredictProba(context.Background(), features.Vector{Columns: m.FeatureNames(), Values: []float64{0.5, 1}})
	require.NoError(t, err)
	assert.Equal(t, []string{"satisfaction_level", "Work_accident"}, sidecar.lastColumns())
}

func TestRemoteModel_ScoreIsOneRequest(t *testing.T) {
	sidecar, srv := newSidecar(t)

	m, err := NewRemoteModel(context.Background(), srv.URL, 2*time.Second)
	require.NoError(t, err)

	var _ Scorer = m
	p, class, err := m.Score(context.Background(), features.Vector{Columns: m.FeatureNames(), Values: []float64{0.1, 0}})
	require.NoError(t, err)
	assert.InDelta(t, 0.9, p, 1e-12)
	assert.Equal(t, 1, class)
	assert.Equal(t, int32(1), sidecar.calls.Load())
}

func TestRemoteModel_ClientErrorIsNotRetried(t *testing.T) {
	sidecar, srv := newSidecar(t)

	m, err := NewRemoteModel(context.Background(), srv.URL, 2*time.Second)
	require.NoError(t, err)

	sidecar.status.Store(http.StatusUnprocessableEntity)
	_, err = m.PredictProba(context.Background(), features.Vector{Columns: m.FeatureNames(), Values: []float64{0.5, 0}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.Equal(t, int32(1), sidecar.calls.Load())
}

func TestRemoteModel_ClientErrorsDoNotOpenBreaker(t *testing.T) {
	sidecar, srv := newSidecar(t)

	m, err := NewRemoteModel(context.Background(), srv.URL, 2*time.Second)
	require.NoError(t, err)
	v := features.Vector{Columns: m.FeatureNames(), Values: []float64{0.5, 0}}

	sidecar.status.Store(http.StatusUnprocessableEntity)
	for i := 0; i < 10; i++ {
		_, err := m.PredictProba(context.Background(), v)
		require.Error(t, err)
		assert.NotErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	}
	assert.Equal(t, circuitbreaker.StateClosed, m.cb.State())
	assert.Equal(t, uint32(0), m.cb.Counts().ConsecutiveFailures)

	sidecar.status.Store(http.StatusOK)
	_, err = m.PredictProba(context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, int32(11), sidecar.calls.Load())
}

func TestRemoteModel_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewRemoteModel(context.Background(), url, 200*time.Millisecond)
	require.Error(t, err)
	assert.True(t, employee.IsStartupError(err))
}

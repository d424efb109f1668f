package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/attrition-dashboard/backend/internal/employee"
	"github.com/attrition-dashboard/backend/internal/features"
	"github.com/attrition-dashboard/backend/internal/metrics"
	"github.com/attrition-dashboard/backend/pkg/circuitbreaker"
	"github.com/attrition-dashboard/backend/pkg/logger"
	"github.com/attrition-dashboard/backend/pkg/retry"
)

// RemoteModel delegates inference to a model-serving sidecar over HTTP:
//
//	GET  /metadata -> {"name": "...", "feature_names": [...]}
//	POST /predict  <- {"columns": [...], "values": [...]}
//	               -> {"probability": 0.42, "prediction": 0}
//
// Vectors are reconciled against the canonical feature names, but the request
// carries the names exactly as the sidecar reported them.
type RemoteModel struct {
	endpoint    string
	timeout     time.Duration
	name        string
	features    []string
	wire        []string
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

type metadataResponse struct {
	Name         string   `json:"name"`
	FeatureNames []string `json:"feature_names"`
}

type remotePredictRequest struct {
	Columns []string  `json:"columns"`
	Values  []float64 `json:"values"`
}

type remotePredictResponse struct {
	Probability float64 `json:"probability"`
	Prediction  *int    `json:"prediction,omitempty"`
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("model server returned %d: %s", e.code, e.body)
}

// NewRemoteModel fetches the sidecar's metadata once. Failure to reach it is a
// *employee.StartupError.
func NewRemoteModel(ctx context.Context, endpoint string, timeout time.Duration) (*RemoteModel, error) {
	m := &RemoteModel{
		endpoint: strings.TrimRight(endpoint, "/"),
		timeout:  timeout,
		cb: circuitbreaker.NewCircuitBreaker("model", circuitbreaker.Config{
			MaxRequests:      3,
			Interval:         time.Minute,
			Timeout:          15 * time.Second,
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Logger:           logger.GetLogger(),
			OnStateChange: func(name string, from, to circuitbreaker.State) {
				metrics.CircuitState.WithLabelValues(name).Set(float64(to))
			},
		}),
		retryConfig: retry.Config{
			MaxAttempts:    3,
			InitialDelay:   200 * time.Millisecond,
			MaxDelay:       2 * time.Second,
			Multiplier:     2.0,
			JitterFraction: 0.1,
			RetryIf:        isTransient,
			Logger:         logger.GetLogger(),
		},
	}

	var meta metadataResponse
	if err := m.call(ctx, fiber.MethodGet, "/metadata", nil, &meta); err != nil {
		return nil, &employee.StartupError{Source: m.endpoint, Err: err}
	}

	names, err := canonicalNames(meta.FeatureNames)
	if err != nil {
		return nil, &employee.StartupError{Source: m.endpoint, Err: err}
	}
	m.features = names
	m.wire = append([]string(nil), meta.FeatureNames...)
	m.name = meta.Name
	if m.name == "" {
		m.name = "remote"
	}

	logger.Info("Remote model connected",
		zap.String("endpoint", m.endpoint),
		zap.String("model", m.name),
		zap.Int("features", len(names)),
	)
	return m, nil
}

func (m *RemoteModel) Name() string { return m.name }

func (m *RemoteModel) FeatureNames() []string {
	return append([]string(nil), m.features...)
}

// Score returns the probability and class from a single /predict round trip.
func (m *RemoteModel) Score(ctx context.Context, v features.Vector) (float64, int, error) {
	resp, err := m.predict(ctx, v)
	if err != nil {
		return 0, 0, err
	}
	if resp.Prediction != nil {
		return resp.Probability, *resp.Prediction, nil
	}
	return resp.Probability, classOf(resp.Probability), nil
}

func (m *RemoteModel) PredictProba(ctx context.Context, v features.Vector) (float64, error) {
	resp, err := m.predict(ctx, v)
	if err != nil {
		return 0, err
	}
	return resp.Probability, nil
}

func (m *RemoteModel) Predict(ctx context.Context, v features.Vector) (int, error) {
	_, class, err := m.Score(ctx, v)
	return class, err
}

func (m *RemoteModel) predict(ctx context.Context, v features.Vector) (*remotePredictResponse, error) {
	if err := checkColumns(m.features, v); err != nil {
		return nil, err
	}

	var resp remotePredictResponse
	req := remotePredictRequest{Columns: m.wire, Values: v.Values}
	if err := m.call(ctx, fiber.MethodPost, "/predict", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (m *RemoteModel) call(ctx context.Context, method, path string, body, out interface{}) error {
	// A 4xx means the sidecar is up and rejected this input, so it is kept
	// out of the breaker's failure count and returned afterwards.
	var rejected error
	err := m.cb.Execute(ctx, func() error {
		err := retry.Do(ctx, m.retryConfig, func() error {
			return m.do(method, path, body, out)
		})
		if err != nil && !isTransient(err) {
			rejected = err
			return nil
		}
		return err
	})
	if err == nil {
		err = rejected
	}

	status := "ok"
	switch {
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		status = "circuit_open"
	case rejected != nil:
		status = "rejected"
	case err != nil:
		status = "error"
	}
	metrics.RemoteModelRequests.WithLabelValues(path, status).Inc()

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %s %s: %v", ErrModelUnavailable, method, path, err)
	}
	return nil
}

func (m *RemoteModel) do(method, path string, body, out interface{}) error {
	var agent *fiber.Agent
	switch method {
	case fiber.MethodGet:
		agent = fiber.Get(m.endpoint + path)
	default:
		agent = fiber.Post(m.endpoint + path).JSON(body)
	}
	agent.Timeout(m.timeout)
	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return fmt.Errorf("invalid model endpoint: %w", err)
	}

	code, data, errs := agent.Bytes()
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if code != fiber.StatusOK {
		return &statusError{code: code, body: truncate(string(data), 200)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode model response: %w", err)
	}
	return nil
}

// isTransient retries network failures and 5xx responses, never 4xx.
func isTransient(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500
	}
	return true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

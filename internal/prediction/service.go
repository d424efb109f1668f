package prediction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/attrition-dashboard/backend/internal/employee"
	"github.com/attrition-dashboard/backend/internal/features"
	"github.com/attrition-dashboard/backend/internal/metrics"
	"github.com/attrition-dashboard/backend/internal/model"
	"github.com/attrition-dashboard/backend/internal/storage/models"
	"github.com/attrition-dashboard/backend/pkg/logger"
	"github.com/attrition-dashboard/backend/pkg/utils"
)

// Cache stores prediction results keyed by feature-vector hash.
type Cache interface {
	GetPrediction(ctx context.Context, vectorHash string, result interface{}) (bool, error)
	SetPrediction(ctx context.Context, vectorHash string, result interface{}, ttl time.Duration) error
}

// HistoryStore persists served predictions.
type HistoryStore interface {
	InsertPrediction(record *models.PredictionRecord) error
	GetPredictionHistory(limit int) ([]models.PredictionRecord, error)
	CountByRisk() (map[string]int, error)
}

// ErrHistoryDisabled is returned by History when no store is configured.
var ErrHistoryDisabled = errors.New("prediction history is disabled")

type Request struct {
	Record   features.RawRecord
	ClientID string
}

type Result struct {
	ID          string          `json:"id"`
	Probability float64         `json:"probability"`
	Prediction  int             `json:"prediction"`
	Risk        model.RiskLevel `json:"risk"`
	Message     string          `json:"message"`
	Features    features.Vector `json:"features"`
	Model       string          `json:"model"`
	Cached      bool            `json:"cached"`
	LatencyMS   int             `json:"latency_ms"`
}

type cachedPrediction struct {
	Probability float64 `json:"probability"`
	Prediction  int     `json:"prediction"`
}

// Service runs one raw record through reconciliation, inference and risk banding.
// Cache and history are optional; nil disables them.
type Service struct {
	model    model.Model
	options  features.Options
	cache    Cache
	cacheTTL time.Duration
	history  HistoryStore
}

func NewService(m model.Model, options features.Options, cache Cache, cacheTTL time.Duration, history HistoryStore) *Service {
	return &Service{
		model:    m,
		options:  options,
		cache:    cache,
		cacheTTL: cacheTTL,
		history:  history,
	}
}

// ExpectedColumns lists the model's input columns in order.
func (s *Service) ExpectedColumns() []string {
	return s.model.FeatureNames()
}

func (s *Service) ModelName() string {
	return s.model.Name()
}

// Predict returns employee.ErrInvalidInput for rejected records; other errors come from
// the model backend.
func (s *Service) Predict(ctx context.Context, req Request) (*Result, error) {
	startTime := time.Now()

	vector, err := features.Reconcile(req.Record, s.model.FeatureNames(), s.options)
	if err != nil {
		metrics.PredictionErrors.WithLabelValues("invalid_input").Inc()
		return nil, err
	}

	key := utils.HashParts(s.model.Name(), vector.Key())

	var (
		entry  cachedPrediction
		cached bool
	)
	if s.cache != nil {
		cached, err = s.cache.GetPrediction(ctx, key, &entry)
		if err != nil {
			logger.Warn("Prediction cache lookup failed", zap.Error(err))
			cached = false
		}
		if cached {
			metrics.CacheHits.WithLabelValues("prediction").Inc()
		} else {
			metrics.CacheMisses.WithLabelValues("prediction").Inc()
		}
	}

	if !cached {
		entry, err = s.infer(ctx, vector)
		if err != nil {
			metrics.PredictionErrors.WithLabelValues("model").Inc()
			return nil, err
		}

		if s.cache != nil {
			if err := s.cache.SetPrediction(ctx, key, entry, s.cacheTTL); err != nil {
				logger.Warn("Failed to cache prediction", zap.Error(err))
			}
		}
	}

	risk := model.Classify(entry.Probability)
	elapsed := time.Since(startTime)

	result := &Result{
		ID:          uuid.New().String(),
		Probability: entry.Probability,
		Prediction:  entry.Prediction,
		Risk:        risk,
		Message:     risk.Message(),
		Features:    vector,
		Model:       s.model.Name(),
		Cached:      cached,
		LatencyMS:   int(elapsed.Milliseconds()),
	}

	metrics.PredictionDuration.WithLabelValues(strconv.FormatBool(cached)).Observe(elapsed.Seconds())
	metrics.PredictionsTotal.WithLabelValues(string(risk)).Inc()
	metrics.PredictionProbability.Observe(entry.Probability)

	logger.Info("Prediction served",
		zap.String("prediction_id", result.ID),
		zap.Float64("probability", result.Probability),
		zap.String("risk", string(risk)),
		zap.Bool("cached", cached),
	)

	s.record(req, result)

	return result, nil
}

// History lists the most recent predictions, newest first.
func (s *Service) History(limit int) ([]models.PredictionRecord, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.GetPredictionHistory(limit)
}

// RiskCounts tallies recorded predictions per risk level.
func (s *Service) RiskCounts() (map[string]int, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.CountByRisk()
}

func (s *Service) infer(ctx context.Context, v features.Vector) (cachedPrediction, error) {
	if scorer, ok := s.model.(model.Scorer); ok {
		p, class, err := scorer.Score(ctx, v)
		if err != nil {
			return cachedPrediction{}, fmt.Errorf("failed to score: %w", err)
		}
		if err := s.checkProbability(p); err != nil {
			return cachedPrediction{}, err
		}
		return cachedPrediction{Probability: p, Prediction: class}, nil
	}

	p, err := s.model.PredictProba(ctx, v)
	if err != nil {
		return cachedPrediction{}, fmt.Errorf("failed to predict probability: %w", err)
	}
	if err := s.checkProbability(p); err != nil {
		return cachedPrediction{}, err
	}

	class, err := s.model.Predict(ctx, v)
	if err != nil {
		return cachedPrediction{}, fmt.Errorf("failed to predict class: %w", err)
	}

	return cachedPrediction{Probability: p, Prediction: class}, nil
}

func (s *Service) checkProbability(p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return fmt.Errorf("model %s returned probability %v outside [0, 1]", s.model.Name(), p)
	}
	return nil
}

func (s *Service) record(req Request, result *Result) {
	if s.history == nil {
		return
	}

	input, err := json.Marshal(req.Record)
	if err != nil {
		logger.Warn("Failed to encode prediction input", zap.Error(err))
		input = []byte("{}")
	}

	err = s.history.InsertPrediction(&models.PredictionRecord{
		ID:          result.ID,
		ClientID:    req.ClientID,
		ModelName:   result.Model,
		Input:       string(input),
		Features:    result.Features,
		Probability: result.Probability,
		Prediction:  result.Prediction,
		RiskLevel:   string(result.Risk),
		Cached:      result.Cached,
		LatencyMS:   result.LatencyMS,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		logger.Warn("Failed to record prediction", zap.String("prediction_id", result.ID), zap.Error(err))
	}
}

// IsInvalidInput reports whether err rejects the request itself.
func IsInvalidInput(err error) bool {
	return errors.Is(err, employee.ErrInvalidInput)
}

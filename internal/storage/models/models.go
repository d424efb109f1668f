package models

import (
	"time"

	"github.com/attrition-dashboard/backend/internal/features"
)

// PredictionRecord is one served prediction, kept for the analyst's history view.
// Features is the reconciled vector in the model's column order.
type PredictionRecord struct {
	ID          string          `json:"id"`
	ClientID    string          `json:"client_id,omitempty"`
	ModelName   string          `json:"model_name"`
	Input       string          `json:"input"`
	Features    features.Vector `json:"features"`
	Probability float64         `json:"probability"`
	Prediction  int             `json:"prediction"`
	RiskLevel   string          `json:"risk_level"`
	Cached      bool            `json:"cached"`
	LatencyMS   int             `json:"latency_ms"`
	CreatedAt   time.Time       `json:"created_at"`
}

type SystemMetric struct {
	ID          int
	MetricName  string
	MetricValue float64
	Tags        string
	Timestamp   time.Time
}

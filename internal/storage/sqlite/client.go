package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/attrition-dashboard/backend/internal/storage/models"
	"github.com/attrition-dashboard/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS prediction_history (
		id TEXT PRIMARY KEY,
		client_id TEXT,
		model_name TEXT NOT NULL,
		input TEXT NOT NULL,
		features TEXT NOT NULL,
		probability REAL NOT NULL,
		prediction INTEGER NOT NULL,
		risk_level TEXT NOT NULL,
		cached INTEGER DEFAULT 0,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_prediction_created ON prediction_history(created_at);
	CREATE INDEX IF NOT EXISTS idx_prediction_risk ON prediction_history(risk_level);

	CREATE TABLE IF NOT EXISTS system_metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		metric_name TEXT NOT NULL,
		metric_value REAL NOT NULL,
		tags TEXT,
		timestamp INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_metrics_name ON system_metrics(metric_name);
	CREATE INDEX IF NOT EXISTS idx_metrics_timestamp ON system_metrics(timestamp);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertPrediction(record *models.PredictionRecord) error {
	query := `
		INSERT INTO prediction_history (id, client_id, model_name, input, features, probability,
			prediction, risk_level, cached, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	featuresJSON, err := json.Marshal(record.Features)
	if err != nil {
		return fmt.Errorf("failed to marshal features: %w", err)
	}

	cached := 0
	if record.Cached {
		cached = 1
	}

	_, err = c.db.Exec(
		query,
		record.ID,
		record.ClientID,
		record.ModelName,
		record.Input,
		string(featuresJSON),
		record.Probability,
		record.Prediction,
		record.RiskLevel,
		cached,
		record.LatencyMS,
		record.CreatedAt.UnixMilli(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}

	logger.Debug("Prediction recorded",
		zap.String("prediction_id", record.ID),
		zap.Float64("probability", record.Probability),
		zap.String("risk", record.RiskLevel),
	)

	return nil
}

// GetPredictionHistory returns the most recent predictions, newest first.
func (c *Client) GetPredictionHistory(limit int) ([]models.PredictionRecord, error) {
	query := `
		SELECT id, client_id, model_name, input, features, probability, prediction, risk_level,
			cached, latency_ms, created_at
		FROM prediction_history
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction history: %w", err)
	}
	defer rows.Close()

	records := make([]models.PredictionRecord, 0)
	for rows.Next() {
		var (
			r            models.PredictionRecord
			clientID     sql.NullString
			featuresJSON string
			cached       int
			createdAt    int64
		)

		err := rows.Scan(&r.ID, &clientID, &r.ModelName, &r.Input, &featuresJSON, &r.Probability,
			&r.Prediction, &r.RiskLevel, &cached, &r.LatencyMS, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if err := json.Unmarshal([]byte(featuresJSON), &r.Features); err != nil {
			return nil, fmt.Errorf("failed to decode features of %s: %w", r.ID, err)
		}
		r.ClientID = clientID.String
		r.Cached = cached == 1
		r.CreatedAt = time.UnixMilli(createdAt)
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate prediction history: %w", err)
	}

	return records, nil
}

// CountByRisk tallies stored predictions per risk level.
func (c *Client) CountByRisk() (map[string]int, error) {
	rows, err := c.db.Query(`SELECT risk_level, COUNT(*) FROM prediction_history GROUP BY risk_level`)
	if err != nil {
		return nil, fmt.Errorf("failed to count predictions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			risk string
			n    int
		)
		if err := rows.Scan(&risk, &n); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		counts[risk] = n
	}

	return counts, rows.Err()
}

func (c *Client) RecordMetric(name string, value float64, tags map[string]string) error {
	tagsJSON, _ := json.Marshal(tags)

	query := `INSERT INTO system_metrics (metric_name, metric_value, tags, timestamp) VALUES (?, ?, ?, ?)`

	_, err := c.db.Exec(query, name, value, string(tagsJSON), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to record metric: %w", err)
	}

	return nil
}

// LatestMetric returns the most recent value recorded under name.
func (c *Client) LatestMetric(name string) (*models.SystemMetric, error) {
	query := `SELECT id, metric_name, metric_value, tags, timestamp FROM system_metrics
		WHERE metric_name = ? ORDER BY timestamp DESC, id DESC LIMIT 1`

	var (
		m  models.SystemMetric
		ts int64
	)
	err := c.db.QueryRow(query, name).Scan(&m.ID, &m.MetricName, &m.MetricValue, &m.Tags, &ts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metric: %w", err)
	}

	m.Timestamp = time.Unix(ts, 0)
	return &m, nil
}

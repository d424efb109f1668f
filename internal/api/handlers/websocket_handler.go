package handlers

import (
	"encoding/json"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/attrition-dashboard/backend/internal/analytics"
	"github.com/attrition-dashboard/backend/internal/bootstrap"
	"github.com/attrition-dashboard/backend/internal/metrics"
	"github.com/attrition-dashboard/backend/pkg/logger"
)

// jsonConn is the part of *websocket.Conn a dashboard session uses.
type jsonConn interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
}

type socketMessage struct {
	Type     string          `json:"type"`
	Criteria json.RawMessage `json:"criteria,omitempty"`
}

// WebSocketHandler pushes a fresh summary every time the analyst moves a filter.
// Each connection keeps its own criteria.
type WebSocketHandler struct {
	resources *bootstrap.Resources
}

func NewWebSocketHandler(resources *bootstrap.Resources) *WebSocketHandler {
	return &WebSocketHandler{
		resources: resources,
	}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")
	metrics.WebSocketSessions.Inc()

	defer func() {
		c.Close()
		metrics.WebSocketSessions.Dec()
		logger.Info("WebSocket connection closed")
	}()

	h.serve(c)
}

func (h *WebSocketHandler) serve(c jsonConn) {
	criteria := analytics.DefaultCriteria()

	if err := h.sendSummary(c, criteria); err != nil {
		logger.Error("Failed to send initial summary", zap.Error(err))
		return
	}

	for {
		var msg socketMessage
		if err := c.ReadJSON(&msg); err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			return
		}

		var err error
		switch msg.Type {
		case "filter":
			next := criteria
			if len(msg.Criteria) > 0 {
				if uerr := json.Unmarshal(msg.Criteria, &next); uerr != nil {
					h.sendError(c, "Invalid filter criteria")
					continue
				}
			}
			criteria = next
			err = h.sendSummary(c, criteria)
		case "reset":
			criteria = analytics.DefaultCriteria()
			err = h.sendSummary(c, criteria)
		case "charts":
			view := analytics.Apply(h.resources.Dataset, criteria)
			err = c.WriteJSON(map[string]interface{}{
				"type":     "charts",
				"criteria": criteria,
				"charts":   analytics.BuildCharts(h.resources.Dataset, view),
			})
		default:
			h.sendError(c, "Unknown message type")
			continue
		}

		if err != nil {
			logger.Error("Failed to write WebSocket message", zap.Error(err))
			return
		}
	}
}

func (h *WebSocketHandler) sendSummary(c jsonConn, criteria analytics.Criteria) error {
	return c.WriteJSON(map[string]interface{}{
		"type": "summary",
		"view": BuildView(h.resources.Dataset, criteria),
	})
}

func (h *WebSocketHandler) sendError(c jsonConn, errorMsg string) {
	msg := map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	}

	if err := c.WriteJSON(msg); err != nil {
		logger.Debug("Failed to send WebSocket error", zap.Error(err))
	}
}

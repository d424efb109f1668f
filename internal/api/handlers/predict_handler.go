package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/attrition-dashboard/backend/internal/employee"
	"github.com/attrition-dashboard/backend/internal/features"
	"github.com/attrition-dashboard/backend/internal/middleware/ratelimit"
	"github.com/attrition-dashboard/backend/internal/middleware/validation"
	"github.com/attrition-dashboard/backend/internal/model"
	"github.com/attrition-dashboard/backend/internal/prediction"
	"github.com/attrition-dashboard/backend/pkg/logger"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

type PredictHandler struct {
	service *prediction.Service
}

func NewPredictHandler(service *prediction.Service) *PredictHandler {
	return &PredictHandler{
		service: service,
	}
}

// PredictRequest is the single-employee form. Work accident and promotion are
// optional; the configured defaults fill them in.
type PredictRequest struct {
	SatisfactionLevel   *float64 `json:"satisfaction_level" validate:"required,min=0,max=1"`
	LastEvaluation      *float64 `json:"last_evaluation" validate:"required,min=0,max=1"`
	NumberProject       *int     `json:"number_project" validate:"required,min=1"`
	AverageMonthlyHours *int     `json:"average_monthly_hours" validate:"required,min=0,max=744"`
	Tenure              *int     `json:"tenure" validate:"required,min=0"`
	WorkAccident        *int     `json:"work_accident" validate:"omitempty,oneof=0 1"`
	PromotionLast5Years *int     `json:"promotion_last_5years" validate:"omitempty,oneof=0 1"`
	Department          string   `json:"department" validate:"required"`
	Salary              string   `json:"salary" validate:"required"`
}

// RawRecord converts the form into the reconciler's input.
func (r PredictRequest) RawRecord() features.RawRecord {
	raw := features.RawRecord{
		Numeric: map[string]float64{
			employee.ColSatisfactionLevel:   *r.SatisfactionLevel,
			employee.ColLastEvaluation:      *r.LastEvaluation,
			employee.ColNumberProject:       float64(*r.NumberProject),
			employee.ColAverageMonthlyHours: float64(*r.AverageMonthlyHours),
			employee.ColTenure:              float64(*r.Tenure),
		},
		Categorical: map[string]string{
			employee.ColDepartment: r.Department,
			employee.ColSalary:     r.Salary,
		},
	}
	if r.WorkAccident != nil {
		raw.Numeric[employee.ColWorkAccident] = float64(*r.WorkAccident)
	}
	if r.PromotionLast5Years != nil {
		raw.Numeric[employee.ColPromotionLast5Years] = float64(*r.PromotionLast5Years)
	}
	return raw
}

func (h *PredictHandler) HandlePredict(c *fiber.Ctx) error {
	var req PredictRequest

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := validation.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	result, err := h.service.Predict(c.UserContext(), prediction.Request{
		Record:   req.RawRecord(),
		ClientID: c.Get(ratelimit.ClientHeader),
	})
	switch {
	case err == nil:
	case prediction.IsInvalidInput(err):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, model.ErrModelUnavailable):
		logger.Error("Model server unavailable", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Model server unavailable",
		})
	default:
		logger.Error("Failed to predict attrition", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to predict attrition",
		})
	}

	return c.JSON(result)
}

func (h *PredictHandler) GetHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultHistoryLimit)
	if limit <= 0 || limit > maxHistoryLimit {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "limit must be between 1 and 200",
		})
	}

	history, err := h.service.History(limit)
	if errors.Is(err, prediction.ErrHistoryDisabled) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Prediction history is disabled",
		})
	}
	if err != nil {
		logger.Error("Failed to load prediction history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load prediction history",
		})
	}

	counts, err := h.service.RiskCounts()
	if err != nil {
		logger.Error("Failed to count predictions by risk", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load prediction history",
		})
	}

	return c.JSON(fiber.Map{
		"count":       len(history),
		"risk_counts": counts,
		"history":     history,
	})
}

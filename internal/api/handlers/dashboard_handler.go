package handlers

import (
	"bytes"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/attrition-dashboard/backend/internal/analytics"
	"github.com/attrition-dashboard/backend/internal/bootstrap"
	"github.com/attrition-dashboard/backend/internal/employee"
	"github.com/attrition-dashboard/backend/internal/metrics"
	"github.com/attrition-dashboard/backend/pkg/logger"
)

type DashboardHandler struct {
	resources *bootstrap.Resources
}

func NewDashboardHandler(resources *bootstrap.Resources) *DashboardHandler {
	return &DashboardHandler{
		resources: resources,
	}
}

type DashboardView struct {
	Criteria       analytics.Criteria         `json:"criteria"`
	Total          int                        `json:"total"`
	FilteredCount  int                        `json:"filtered_count"`
	Empty          bool                       `json:"empty"`
	Summary        analytics.Summary          `json:"summary"`
	DepartmentRisk []analytics.DepartmentRate `json:"department_risk"`
}

// BuildView filters the dataset and summarises the result. An empty view is
// reported through Empty, never as an error.
func BuildView(ds *employee.Dataset, criteria analytics.Criteria) DashboardView {
	view := analytics.Apply(ds, criteria)
	metrics.FilteredRows.Observe(float64(len(view)))

	summary, err := analytics.Summarize(view)
	if errors.Is(err, employee.ErrEmptyResult) {
		metrics.EmptyResults.Inc()
	}

	ranking := analytics.DepartmentRanking(view)
	if ranking == nil {
		ranking = []analytics.DepartmentRate{}
	}

	return DashboardView{
		Criteria:       criteria,
		Total:          ds.Len(),
		FilteredCount:  len(view),
		Empty:          summary.Empty(),
		Summary:        summary,
		DepartmentRisk: ranking,
	}
}

func (h *DashboardHandler) GetOptions(c *fiber.Ctx) error {
	metrics.DashboardRequests.WithLabelValues("options").Inc()

	ds := h.resources.Dataset
	projects, tenure := analytics.Bounds(ds)

	return c.JSON(fiber.Map{
		"departments":      ds.Departments(),
		"salary_levels":    ds.SalaryLevels(),
		"project_bounds":   projects,
		"tenure_bounds":    tenure,
		"default_criteria": analytics.DefaultCriteria(),
		"overworked_hours": analytics.OverworkedHours,
		"model":            h.resources.Model.Name(),
		"model_columns":    h.resources.Model.FeatureNames(),
	})
}

func (h *DashboardHandler) GetDashboard(c *fiber.Ctx) error {
	metrics.DashboardRequests.WithLabelValues("dashboard").Inc()

	criteria, err := parseCriteria(c)
	if err != nil {
		logger.Error("Failed to parse filter criteria", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid filter criteria",
		})
	}

	return c.JSON(BuildView(h.resources.Dataset, criteria))
}

func (h *DashboardHandler) GetCharts(c *fiber.Ctx) error {
	metrics.DashboardRequests.WithLabelValues("charts").Inc()

	criteria, err := parseCriteria(c)
	if err != nil {
		logger.Error("Failed to parse filter criteria", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid filter criteria",
		})
	}

	ds := h.resources.Dataset
	view := analytics.Apply(ds, criteria)
	metrics.FilteredRows.Observe(float64(len(view)))

	return c.JSON(fiber.Map{
		"criteria": criteria,
		"charts":   analytics.BuildCharts(ds, view),
	})
}

func (h *DashboardHandler) GetHighRisk(c *fiber.Ctx) error {
	metrics.DashboardRequests.WithLabelValues("high_risk").Inc()

	employees := analytics.HighRisk(h.resources.Dataset)
	metrics.HighRiskEmployees.Set(float64(len(employees)))

	return c.JSON(fiber.Map{
		"count":     len(employees),
		"columns":   analytics.ExportColumns,
		"employees": employees,
	})
}

func (h *DashboardHandler) ExportHighRisk(c *fiber.Ctx) error {
	metrics.DashboardRequests.WithLabelValues("high_risk_export").Inc()

	employees := analytics.HighRisk(h.resources.Dataset)

	var buf bytes.Buffer
	if err := analytics.WriteCSV(&buf, employees); err != nil {
		logger.Error("Failed to export high-risk employees", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to export high-risk employees",
		})
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Attachment(analytics.ExportFilename)
	return c.Send(buf.Bytes())
}

// parseCriteria starts from the default sidebar state and overlays whatever the
// body sets.
func parseCriteria(c *fiber.Ctx) (analytics.Criteria, error) {
	criteria := analytics.DefaultCriteria()
	if len(c.Body()) == 0 {
		return criteria, nil
	}
	if err := c.BodyParser(&criteria); err != nil {
		return analytics.Criteria{}, err
	}
	return criteria, nil
}

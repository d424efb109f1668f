package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attrition-dashboard/backend/internal/bootstrap"
	"github.com/attrition-dashboard/backend/internal/employee"
	"github.com/attrition-dashboard/backend/internal/features"
	"github.com/attrition-dashboard/backend/internal/metrics"
	"github.com/attrition-dashboard/backend/internal/model"
	"github.com/attrition-dashboard/backend/internal/prediction"
	"github.com/attrition-dashboard/backend/pkg/config"
)

const logisticJSON = `{
  "kind": "logistic_regression",
  "feature_names": ["satisfaction_level", "salary", "Department_sales", "Department_hr"],
  "coefficients": [-4.0, -0.5, 0.3, 0.2],
  "intercept": 1.5
}`

func rec(dept, salary string, projects, tenure, hours int, satisfaction float64, left int) employee.Record {
	return employee.Record{
		SatisfactionLevel:   satisfaction,
		LastEvaluation:      0.7,
		NumberProject:       projects,
		AverageMonthlyHours: hours,
		Tenure:              tenure,
		Department:          dept,
		Salary:              salary,
		Left:                left,
	}
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	metrics.Init()

	ds := employee.NewDataset("fixture", []employee.Record{
		rec("sales", "low", 2, 3, 157, 0.38, 1),
		rec("sales", "medium", 5, 6, 262, 0.80, 0),
		rec("hr", "low", 7, 4, 272, 0.11, 1),
		rec("hr", "high", 3, 2, 200, 0.90, 0),
		rec("it", "medium", 4, 3, 255, 0.30, 0),
		rec("it", "low", 6, 5, 140, 0.65, 0),
	}, true)

	m, err := model.ParseArtifact([]byte(logisticJSON), "logreg")
	require.NoError(t, err)

	res := &bootstrap.Resources{Dataset: ds, Model: m}
	svc := prediction.NewService(m, features.DefaultOptions(), nil, 0, nil)

	return NewApp(config.ServerConfig{AllowOrigins: "*", BodyLimit: 1 << 20}, Deps{
		Resources:   res,
		Predictions: svc,
	})
}

func do(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decode(t *testing.T, data []byte) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out), string(data))
	return out
}

func TestHealthAndReady(t *testing.T) {
	app := newTestApp(t)

	resp, _ := do(t, app, fiber.MethodGet, "/api/v1/health", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, data := do(t, app, fiber.MethodGet, "/api/v1/ready", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decode(t, data)
	assert.Equal(t, float64(6), body["rows"])
	assert.Equal(t, "logreg", body["model"])
}

func TestOptions(t *testing.T) {
	app := newTestApp(t)

	resp, data := do(t, app, fiber.MethodGet, "/api/v1/options", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decode(t, data)
	assert.Equal(t, []interface{}{"sales", "hr", "it"}, body["departments"])
	assert.Equal(t, []interface{}{"low", "medium", "high"}, body["salary_levels"])
	assert.Equal(t, []interface{}{float64(2), float64(7)}, body["project_bounds"])
	assert.Equal(t, []interface{}{float64(2), float64(6)}, body["tenure_bounds"])
	assert.Equal(t, []interface{}{"satisfaction_level", "salary", "department_sales", "department_hr"}, body["model_columns"])
}

func TestDashboard_DefaultCriteria(t *testing.T) {
	app := newTestApp(t)

	resp, data := do(t, app, fiber.MethodPost, "/api/v1/dashboard", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decode(t, data)
	assert.Equal(t, float64(6), body["total"])
	assert.Equal(t, float64(5), body["filtered_count"], "the 7-project employee is outside the default slider")
	assert.Equal(t, false, body["empty"])

	summary := body["summary"].(map[string]interface{})
	assert.InDelta(t, 0.2, summary["attrition_rate"], 1e-9)
	assert.Equal(t, "sales", summary["top_risk_department"])
}

func TestDashboard_Filters(t *testing.T) {
	app := newTestApp(t)

	resp, data := do(t, app, fiber.MethodPost, "/api/v1/dashboard",
		`{"project_range":[1,10],"tenure_range":[1,10],"overworked_only":true,"departments":["hr"]}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decode(t, data)
	assert.Equal(t, float64(1), body["filtered_count"])
	summary := body["summary"].(map[string]interface{})
	assert.Equal(t, float64(1), summary["attrition_rate"])
	assert.Equal(t, "hr", summary["top_risk_department"])
}

func TestDashboard_EmptyResult(t *testing.T) {
	app := newTestApp(t)

	resp, data := do(t, app, fiber.MethodPost, "/api/v1/dashboard", `{"project_range":[6,2]}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decode(t, data)
	assert.Equal(t, true, body["empty"])
	summary := body["summary"].(map[string]interface{})
	assert.Nil(t, summary["attrition_rate"])
	assert.Nil(t, summary["avg_satisfaction"])
	assert.Nil(t, summary["top_risk_department"])
}

func TestDashboard_InvalidBody(t *testing.T) {
	app := newTestApp(t)

	resp, _ := do(t, app, fiber.MethodPost, "/api/v1/dashboard", `{"project_range":`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCharts(t *testing.T) {
	app := newTestApp(t)

	resp, data := do(t, app, fiber.MethodPost, "/api/v1/dashboard/charts", `{"salary_levels":["low"]}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	charts := decode(t, data)["charts"].(map[string]interface{})
	assert.Equal(t, false, charts["empty"])
	assert.Len(t, charts["department_outcomes"], 2)
	assert.Len(t, charts["promotion_impact"], 1, "promotion impact covers the full dataset")
}

func TestHighRisk(t *testing.T) {
	app := newTestApp(t)

	resp, data := do(t, app, fiber.MethodGet, "/api/v1/high-risk", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), decode(t, data)["count"])

	resp, data = do(t, app, fiber.MethodGet, "/api/v1/high-risk/export", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "high_risk_employees.csv")

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "satisfaction_level,last_evaluation,number_project,average_monthly_hours,tenure,work_accident,promotion_last_5years,department,salary,left", lines[0])
	assert.Equal(t, "0.11,0.7,7,272,4,0,0,hr,low,1", lines[1])
}

func TestPredict(t *testing.T) {
	app := newTestApp(t)

	form := `{"satisfaction_level":0.1,"last_evaluation":0.9,"number_project":6,
		"average_monthly_hours":280,"tenure":4,"department":"hr","salary":"low"}`

	resp, data := do(t, app, fiber.MethodPost, "/api/v1/predict", form)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(data))

	body := decode(t, data)
	assert.Equal(t, "High", body["risk"])
	assert.Equal(t, float64(1), body["prediction"])
	assert.NotEmpty(t, body["id"])

	vector := body["features"].(map[string]interface{})
	assert.Equal(t, []interface{}{"satisfaction_level", "salary", "department_sales", "department_hr"}, vector["columns"])
	assert.Equal(t, []interface{}{0.1, float64(0), float64(0), float64(1)}, vector["values"])
}

func TestPredict_Rejected(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			"unknown salary",
			`{"satisfaction_level":0.5,"last_evaluation":0.5,"number_project":3,"average_monthly_hours":160,"tenure":3,"department":"hr","salary":"platinum"}`,
			"platinum",
		},
		{
			"missing satisfaction",
			`{"last_evaluation":0.5,"number_project":3,"average_monthly_hours":160,"tenure":3,"department":"hr","salary":"low"}`,
			"satisfaction_level is required",
		},
		{
			"satisfaction out of range",
			`{"satisfaction_level":1.5,"last_evaluation":0.5,"number_project":3,"average_monthly_hours":160,"tenure":3,"department":"hr","salary":"low"}`,
			"satisfaction_level must be at most 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := do(t, app, fiber.MethodPost, "/api/v1/predict", tt.body)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, decode(t, data)["error"], tt.want)
		})
	}
}

func TestPredictHistory_Disabled(t *testing.T) {
	app := newTestApp(t)

	resp, _ := do(t, app, fiber.MethodGet, "/api/v1/predict/history", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, app, fiber.MethodGet, "/api/v1/predict/history?limit=0", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t)

	resp, data := do(t, app, fiber.MethodGet, "/metrics", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), "attrition_")
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	app := newTestApp(t)

	resp, _ := do(t, app, fiber.MethodGet, "/ws/dashboard", "")
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

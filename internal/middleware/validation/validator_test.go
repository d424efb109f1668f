package validation

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Satisfaction *float64 `json:"satisfaction_level" validate:"required,min=0,max=1"`
	Salary       string   `json:"salary" validate:"required,oneof=low medium high"`
	Projects     int      `json:"number_project" validate:"gte=1"`
}

func TestStruct(t *testing.T) {
	ok := 0.5
	assert.NoError(t, Struct(sample{Satisfaction: &ok, Salary: "low", Projects: 3}))

	err := Struct(sample{Salary: "platinum"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "satisfaction_level is required")
	assert.Contains(t, err.Error(), "salary must be one of [low medium high]")
	assert.Contains(t, err.Error(), "number_project must be at least 1")

	tooHigh := 1.5
	err = Struct(sample{Satisfaction: &tooHigh, Salary: "high", Projects: 1})
	require.Error(t, err)
	assert.Equal(t, "satisfaction_level must be at most 1", err.Error())
}

func TestMiddleware_ContentType(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware(Config{}))
	app.Post("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		want        int
	}{
		{"json", fiber.MethodPost, "application/json; charset=utf-8", `{}`, fiber.StatusNoContent},
		{"empty post", fiber.MethodPost, "", "", fiber.StatusNoContent},
		{"form", fiber.MethodPost, "text/plain", "x", fiber.StatusUnsupportedMediaType},
		{"get ignored", fiber.MethodGet, "text/plain", "", fiber.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

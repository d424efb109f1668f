package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/attrition-dashboard/backend/internal/api/handlers"
	"github.com/attrition-dashboard/backend/internal/bootstrap"
	"github.com/attrition-dashboard/backend/internal/metrics"
	"github.com/attrition-dashboard/backend/internal/middleware/ratelimit"
	"github.com/attrition-dashboard/backend/internal/middleware/security"
	"github.com/attrition-dashboard/backend/internal/middleware/validation"
	"github.com/attrition-dashboard/backend/internal/prediction"
	"github.com/attrition-dashboard/backend/pkg/config"
	"github.com/attrition-dashboard/backend/pkg/logger"
)

// Deps are the collaborators the HTTP layer needs. RateLimiter may be nil.
type Deps struct {
	Resources   *bootstrap.Resources
	Predictions *prediction.Service
	RateLimiter *ratelimit.RateLimiter
}

// NewApp builds the fiber application with middleware and every route mounted.
func NewApp(cfg config.ServerConfig, deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:           time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout:          time.Duration(cfg.WriteTimeout) * time.Second,
		BodyLimit:             cfg.BodyLimit,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + ratelimit.ClientHeader,
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: strings.Split(cfg.AllowOrigins, ","),
		IsDevelopment:  cfg.AllowOrigins == "*",
	}))
	app.Use(validation.Middleware(validation.Config{Logger: logger.GetLogger()}))

	Register(app, deps)

	return app
}

// Register mounts the routes on app.
func Register(app *fiber.App, deps Deps) {
	dashboardHandler := handlers.NewDashboardHandler(deps.Resources)
	predictHandler := handlers.NewPredictHandler(deps.Predictions)
	wsHandler := handlers.NewWebSocketHandler(deps.Resources)

	app.Get("/metrics", metrics.MetricsHandler())

	api := app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ready",
			"rows":    deps.Resources.Dataset.Len(),
			"model":   deps.Resources.Model.Name(),
			"columns": len(deps.Resources.Model.FeatureNames()),
		})
	})

	api.Get("/options", dashboardHandler.GetOptions)
	api.Post("/dashboard", dashboardHandler.GetDashboard)
	api.Post("/dashboard/charts", dashboardHandler.GetCharts)
	api.Get("/high-risk", dashboardHandler.GetHighRisk)
	api.Get("/high-risk/export", dashboardHandler.ExportHighRisk)

	predictRoutes := []fiber.Handler{predictHandler.HandlePredict}
	if deps.RateLimiter != nil {
		predictRoutes = append([]fiber.Handler{deps.RateLimiter.Middleware()}, predictRoutes...)
	}
	api.Post("/predict", predictRoutes...)
	api.Get("/predict/history", predictHandler.GetHistory)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/dashboard", websocket.New(wsHandler.HandleConnection))
}

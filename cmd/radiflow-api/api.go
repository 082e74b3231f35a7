// Package main provides the Radiflow API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/radiflow/radiflow/pkg/engine"
	"github.com/radiflow/radiflow/pkg/eventbus"
	"github.com/radiflow/radiflow/pkg/tenant"
	"github.com/radiflow/radiflow/pkg/web"
)

type API struct {
	logger   *slog.Logger
	engine   *engine.Engine
	tenants  *tenant.Manager
	eventBus eventbus.EventBus
	validate *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	eng *engine.Engine,
	tenants *tenant.Manager,
	eventBus eventbus.EventBus,
) *API {
	return &API{
		logger:   logger,
		engine:   eng,
		tenants:  tenants,
		eventBus: eventBus,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.logger, a.engine, a.tenants, a.eventBus, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Radiflow API")
	})

	app.Post("/events", handlers.FireEvent)

	auto := app.Group("/automations")
	auto.Get("/", handlers.GetAutomations)
	auto.Get("/:id", handlers.GetAutomation)
	auto.Get("/:id/executions", handlers.GetAutomationExecutions)

	exec := app.Group("/executions")
	exec.Get("/", handlers.GetExecutions)
	exec.Get("/:id", handlers.GetExecution)
	exec.Get("/:id/steps", handlers.GetExecutionSteps)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}

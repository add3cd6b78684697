// Package main provides the Curator API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/pinfeed/curator/pkg/collector"
	"github.com/pinfeed/curator/pkg/evaluator"
	"github.com/pinfeed/curator/pkg/eventbus"
	"github.com/pinfeed/curator/pkg/notifier"
	"github.com/pinfeed/curator/pkg/persistence"
	"github.com/pinfeed/curator/pkg/sessionlog"
	"github.com/pinfeed/curator/pkg/status"
	"github.com/pinfeed/curator/pkg/web"
	"github.com/pinfeed/curator/pkg/workflow"
)

type API struct {
	logger           *slog.Logger
	persistence      persistence.Persistence
	eventBus         eventbus.EventBus
	collectorFactory collector.Factory
	evaluator        evaluator.Evaluator
	tracker          *status.Tracker
	sessions         *sessionlog.Log
	hub              *notifier.Hub
	validate         *validator.Validate
	maxPins          int
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	collectorFactory collector.Factory,
	evaluator evaluator.Evaluator,
	maxPins int,
) *API {
	return &API{
		logger:           logger,
		persistence:      persistence,
		eventBus:         eventBus,
		collectorFactory: collectorFactory,
		evaluator:        evaluator,
		tracker:          status.NewTracker(persistence.StatusRecords(), logger),
		sessions:         sessionlog.NewLog(persistence.Sessions(), logger),
		hub:              notifier.NewHub(logger),
		validate:         validator.New(validator.WithRequiredStructEnabled()),
		maxPins:          maxPins,
	}
}

// Tracker exposes the status tracker for the reconciliation job.
func (a *API) Tracker() *status.Tracker {
	return a.tracker
}

func (a *API) App() *fiber.App {
	orchestrator := workflow.NewOrchestrator(workflow.Config{
		Persistence:      a.persistence,
		Tracker:          a.tracker,
		Sessions:         a.sessions,
		CollectorFactory: a.collectorFactory,
		Evaluator:        a.evaluator,
		Publisher:        a.eventBus,
		Logger:           a.logger,
		MaxPins:          a.maxPins,
	})

	handlers := web.NewAPIHandlers(
		a.persistence, a.tracker, a.sessions, a.hub, orchestrator, a.validate, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Curator API")
	})

	p := app.Group("/prompts")
	p.Post("/", handlers.CreatePrompt)
	p.Get("/", handlers.GetPrompts)
	p.Get("/:id", handlers.GetPrompt)
	p.Get("/:id/status", handlers.GetStatus)
	p.Get("/:id/results", handlers.GetResults)
	p.Get("/:id/sessions", handlers.GetSessions)
	p.Get("/:id/live", handlers.LiveUpdates)

	app.Get("/sessions/:id", handlers.GetSession)
	app.Put("/pins/:id/status", handlers.UpdatePinStatus)

	app.Get("/health", handlers.HealthCheck)

	return app
}

// Start connects observer fan-out to the event bus and serves HTTP.
func (a *API) Start(ctx context.Context, port int) error {
	if err := a.hub.Attach(a.eventBus); err != nil {
		return err
	}

	if err := a.eventBus.Subscribe(ctx); err != nil {
		return err
	}

	return a.App().Listen(":" + strconv.Itoa(port))
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/conveyor-ci/conveyor/pkg/dedup"
	"github.com/conveyor-ci/conveyor/pkg/eventbus"
	"github.com/conveyor-ci/conveyor/pkg/persistence"
	"github.com/conveyor-ci/conveyor/pkg/sources/schedule"
	"github.com/conveyor-ci/conveyor/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"gopkg.in/yaml.v3"
)

type Server struct {
	logger   *slog.Logger
	store    persistence.Persistence
	eventBus eventbus.EventBus
	guard    dedup.Guard
	validate *validator.Validate
}

func NewServer(
	logger *slog.Logger,
	store persistence.Persistence,
	eventBus eventbus.EventBus,
	guard dedup.Guard,
) *Server {
	return &Server{
		logger:   logger,
		store:    store,
		eventBus: eventBus,
		guard:    guard,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *Server) App() *fiber.App {
	handlers := web.NewHandlers(s.logger, s.store, s.eventBus, s.guard, s.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Conveyor CI")
	})

	e := app.Group("/events")
	e.Post("/push", handlers.PostPushEvent)
	e.Post("/merge-request", handlers.PostMergeRequestEvent)

	r := app.Group("/runs")
	r.Get("/", handlers.GetRuns)
	r.Get("/:id", handlers.GetRun)

	app.Get("/health", handlers.HealthCheck)

	return app
}

// StartSchedules loads the schedules file and runs the cron source in the
// background. An empty path disables scheduling.
func (s *Server) StartSchedules(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read schedules file: %w", err)
	}

	var config struct {
		Schedules []schedule.Entry `yaml:"schedules"`
	}

	err = yaml.Unmarshal(contents, &config)
	if err != nil {
		return fmt.Errorf("failed to parse schedules file: %w", err)
	}

	source := schedule.NewSource(s.logger, s.eventBus)

	for _, entry := range config.Schedules {
		err = source.Add(entry)
		if err != nil {
			return err
		}
	}

	go source.Start(ctx)

	s.logger.InfoContext(ctx, "Schedules started", "schedules", len(config.Schedules))

	return nil
}

func (s *Server) Start(port int) error {
	return s.App().Listen(":" + strconv.Itoa(port))
}

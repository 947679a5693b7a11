package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Measdoulas/CASHRULER-sub000/internal/config"
	"github.com/Measdoulas/CASHRULER-sub000/internal/domain"
	"github.com/Measdoulas/CASHRULER-sub000/internal/handler"
	"github.com/Measdoulas/CASHRULER-sub000/internal/repository/postgres"
	"github.com/Measdoulas/CASHRULER-sub000/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Connect to database
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	// Verify database connection
	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Connected to database")

	// Initialize repositories
	templateRepo := postgres.NewTemplateRepository(pool)
	entryRepo := postgres.NewEntryRepository(pool)
	aggregateRepo := postgres.NewAggregateRepository(pool)

	// Initialize services
	generator := service.NewGeneratorService(templateRepo, entryRepo, aggregateRepo, log.Logger)
	reminder := service.NewReminderService(templateRepo, entryRepo, &logRenderer{}, log.Logger)

	// Initialize runners
	reporter := &logReporter{}
	generationRunner := service.NewScheduledRunner(generator, reporter, log.Logger, service.RunnerConfig{
		Interval: cfg.GenerationInterval,
	})
	reminderRunner := service.NewScheduledRunner(reminder, reporter, log.Logger, service.RunnerConfig{
		Interval: cfg.ReminderInterval,
	})

	runCtx, cancelRunners := context.WithCancel(context.Background())
	generationRunner.Start(runCtx)
	reminderRunner.Start(runCtx)

	// Initialize handlers
	jobHandler := handler.NewJobHandler(map[string]*service.ScheduledRunner{
		generator.Name(): generationRunner,
		reminder.Name():  reminderRunner,
	})

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Register API routes
	handler.RegisterRoutes(e, jobHandler)

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	generationRunner.Stop()
	reminderRunner.Stop()
	cancelRunners()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Engine exited")
}

// logRenderer adapts zerolog to domain.NotificationRenderer until a real
// notification channel is wired in.
type logRenderer struct{}

// Render implements domain.NotificationRenderer
func (r *logRenderer) Render(notificationID int, title, body string) error {
	log.Info().Int("notification_id", notificationID).Str("title", title).Str("body", body).Msg("Reminder")
	return nil
}

// logReporter adapts zerolog to domain.JobReporter
type logReporter struct{}

// Report implements domain.JobReporter
func (r *logReporter) Report(job string, result domain.JobResult) {
	log.Info().Str("job", job).Str("result", string(result)).Msg("Job result reported")
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}

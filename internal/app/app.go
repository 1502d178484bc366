// -----------------------------------------------------------------------
// App - Application wiring and lifecycle
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aestimo/internal/common"
	"github.com/ternarybob/aestimo/internal/events"
	"github.com/ternarybob/aestimo/internal/handlers"
	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/llm"
	"github.com/ternarybob/aestimo/internal/masumi"
	"github.com/ternarybob/aestimo/internal/orchestrator"
	"github.com/ternarybob/aestimo/internal/payments"
	"github.com/ternarybob/aestimo/internal/store"
	"github.com/ternarybob/aestimo/internal/tasks"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Core services
	Gateway      interfaces.PaymentGateway
	JobStore     *store.JobStore
	EventService interfaces.EventService
	LLMService   interfaces.LLMService
	Registry     *tasks.Registry
	Monitor      *payments.Monitor
	Orchestrator *orchestrator.Orchestrator

	// HTTP handlers
	APIHandler *handlers.APIHandler
	JobHandler *handlers.JobHandler
	WSHandler  *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if cfg.Masumi.APIKey == "" {
		return nil, fmt.Errorf("masumi payment service API key is not configured")
	}
	if cfg.Masumi.AgentIdentifier == "" {
		return nil, fmt.Errorf("masumi agent identifier is not configured")
	}
	if err := common.ValidateExpirySchedule(cfg.Monitor.ExpirySchedule); err != nil {
		return nil, fmt.Errorf("invalid expiry schedule: %w", err)
	}

	// Payment service client
	clientOpts := []masumi.ClientOption{
		masumi.WithBaseURL(cfg.Masumi.PaymentServiceURL),
		masumi.WithLogger(logger),
	}
	if cfg.Masumi.RateLimit > 0 {
		clientOpts = append(clientOpts, masumi.WithRateLimit(cfg.Masumi.RateLimit))
	}
	if timeout, err := time.ParseDuration(cfg.Masumi.Timeout); err == nil {
		clientOpts = append(clientOpts, masumi.WithHTTPClient(&http.Client{Timeout: timeout}))
	}
	app.Gateway = masumi.NewClient(cfg.Masumi.APIKey, cfg.Masumi.Network, clientOpts...)

	logger.Info().
		Str("payment_service", cfg.Masumi.PaymentServiceURL).
		Str("network", cfg.Masumi.Network).
		Msg("Payment gateway initialized")

	// Job store and event stream
	app.JobStore = store.NewJobStore()
	app.EventService = events.NewService(cfg.WebSocket.RecentEvents, logger)

	// LLM service and task registry
	llmService, err := llm.NewLLMService(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM service: %w", err)
	}
	app.LLMService = llmService
	app.Registry = tasks.NewDefaultRegistry(llmService, logger)

	// Payment monitoring and orchestration
	app.Monitor = payments.NewMonitor(app.Gateway, cfg.PollInterval(), logger)
	app.Orchestrator = orchestrator.New(
		cfg,
		app.Gateway,
		app.JobStore,
		app.Registry,
		app.Monitor,
		app.EventService,
		logger,
	)

	if err := app.Orchestrator.StartExpirySweep(); err != nil {
		return nil, fmt.Errorf("failed to start expiry sweep: %w", err)
	}

	// HTTP handlers
	app.APIHandler = handlers.NewAPIHandler()
	app.JobHandler = handlers.NewJobHandler(app.Orchestrator, logger)
	app.WSHandler = handlers.NewWebSocketHandler(app.EventService, logger, &cfg.WebSocket)

	logger.Info().
		Str("llm_provider", app.LLMService.GetProviderName()).
		Str("poll_interval", cfg.Monitor.PollInterval).
		Msg("Application initialization complete")

	return app, nil
}

// Close shuts down application components in dependency order
func (a *App) Close() error {
	a.Logger.Info().Msg("Shutting down application...")

	// Stop new work first, then tear down the services it depends on
	a.Orchestrator.Shutdown()
	a.WSHandler.CloseAll()
	a.EventService.Close()

	if err := a.LLMService.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("LLM service close failed")
	}

	a.Logger.Info().Msg("Application shutdown complete")
	return nil
}

// HealthCheck verifies the LLM backend is reachable
func (a *App) HealthCheck(ctx context.Context) error {
	return a.LLMService.HealthCheck(ctx)
}

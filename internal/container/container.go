package container

import (
	"context"
	"net/http"

	"go-attack-planner/internal/config"
	"go-attack-planner/internal/factory"
	"go-attack-planner/internal/gemini"
	"go-attack-planner/internal/imaging"
	"go-attack-planner/internal/logger"
	"go-attack-planner/internal/observer"
	"go-attack-planner/internal/planner"
	"go-attack-planner/internal/service"
	"go-attack-planner/internal/session"
	"go-attack-planner/internal/storage"
	"go-attack-planner/internal/transport"
	"go-attack-planner/internal/worker"
	"go-attack-planner/pkg/validation"

	"github.com/prometheus/client_golang/prometheus"
)

// Container holds all application dependencies
type Container struct {
	config    *config.Config
	publisher *observer.EventPublisher
	metrics   *observer.MetricsObserver
	pool      *worker.Pool
	plans     service.PlanService
	resolver  *service.ImageResolver
	sessions  *session.Store
	handler   http.Handler
}

// NewContainer builds the dependency graph around the Gemini client.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	model, err := gemini.NewClient(ctx, gemini.Options{
		APIKey: cfg.GeminiAPIKey,
		Model:  cfg.GeminiModel,
	})
	if err != nil {
		return nil, err
	}
	return NewContainerWithModel(cfg, model, prometheus.DefaultRegisterer), nil
}

// NewContainerWithModel builds the graph around any planner model. Plan
// metrics are registered with reg; a nil reg keeps them private.
func NewContainerWithModel(cfg *config.Config, model planner.Model, reg prometheus.Registerer) *Container {
	logger.SetLevel(cfg.LogLevel)

	publisher := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver(reg)
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	publisher.Subscribe(metrics)

	orchestrator := planner.NewOrchestrator(model,
		planner.WithStageDelay(cfg.StageDelay),
		planner.WithMaxConcurrent(cfg.MaxConcurrentGenerations),
	)
	plans := service.NewPlanService(orchestrator, publisher)

	pool := worker.NewPool(cfg.Workers)
	pool.Start()

	sessions := session.NewStore(plans, pool, session.Options{
		TTL:               cfg.SessionTTL,
		GenerationTimeout: cfg.GenerationTimeout,
	})

	resolver := service.NewImageResolver(
		validation.NewReferenceValidator(),
		factory.NewStorageFactory(factory.StorageOptions{
			HTTP: storage.HTTPOptions{
				Timeout:  cfg.ImageFetchTimeout,
				MaxBytes: cfg.MaxImageBytes,
			},
			AzureStorageAccount: cfg.AzureStorageAccount,
			AzureStorageKey:     cfg.AzureStorageKey,
		}),
		imaging.NewDecoder(cfg.MaxImageBytes),
	)

	c := &Container{
		config:    cfg,
		publisher: publisher,
		metrics:   metrics,
		pool:      pool,
		plans:     plans,
		resolver:  resolver,
		sessions:  sessions,
	}
	c.handler = transport.NewHandler(transport.Dependencies{
		Plans:    plans,
		Sessions: sessions,
		Resolver: resolver,
		Stats:    c.Stats,
	}, cfg)
	return c
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Plans returns the plan service used by both the HTTP API and the CLI.
func (c *Container) Plans() service.PlanService {
	return c.plans
}

// Resolver returns the image reference resolver
func (c *Container) Resolver() *service.ImageResolver {
	return c.resolver
}

// Stats gathers the counters exposed on GET /stats.
func (c *Container) Stats() map[string]interface{} {
	return map[string]interface{}{
		"sessions": c.sessions.Stats(),
		"workers":  c.pool.GetStats(),
		"plans":    c.metrics.GetMetrics(),
	}
}

// Close stops background work: no new sessions expire or start generating,
// running generations finish and pending events are delivered.
func (c *Container) Close() {
	c.sessions.Close()
	c.pool.Close()
	c.publisher.Flush()
}

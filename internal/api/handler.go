// Package api exposes benchmark runs and batches over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hermitbench/internal/bench"
	"hermitbench/internal/provider"
	"hermitbench/internal/runner"
	"hermitbench/internal/store"
)

// ModelLister lists the models the provider offers.
type ModelLister interface {
	ListModels(ctx context.Context) ([]provider.ModelInfo, error)
}

// BatchService starts batches and builds persona cards.
type BatchService interface {
	Start(ctx context.Context, req runner.BatchRequest) (string, error)
	BuildPersonaCards(ctx context.Context, resultsByModel map[string][]bench.RunResult) map[string]bench.PersonaCard
}

// PromptReloader re-reads prompt templates from a file.
type PromptReloader interface {
	LoadFile(path string) error
	Loaded() []string
}

// Defaults fill request fields the client omits.
type Defaults struct {
	Temperature  float64
	TopP         float64
	MaxTurns     int
	RunsPerModel int
	TaskDelayMs  int
}

// Config wires dependencies for the HTTP handler.
type Config struct {
	Models     ModelLister
	Interactor runner.Interactor
	Batches    BatchService
	Repository store.BatchRepository
	Prompts    PromptReloader
	PromptPath string
	Defaults   Defaults
	// BaseContext scopes background batches; request contexts end with the response.
	BaseContext context.Context
	Logger      *zap.Logger
	Now         func() time.Time
}

type handler struct {
	models      ModelLister
	interactor  runner.Interactor
	batches     BatchService
	repo        store.BatchRepository
	prompts     PromptReloader
	promptPath  string
	defaults    Defaults
	baseContext context.Context
	logger      *zap.Logger
	nowFn       func() time.Time
}

// NewHandler builds the gin engine serving the API.
func NewHandler(cfg Config) (http.Handler, error) {
	if cfg.Repository == nil {
		return nil, errors.New("api: repository is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.BaseContext == nil {
		cfg.BaseContext = context.Background()
	}
	h := &handler{
		models:      cfg.Models,
		interactor:  cfg.Interactor,
		batches:     cfg.Batches,
		repo:        cfg.Repository,
		prompts:     cfg.Prompts,
		promptPath:  cfg.PromptPath,
		defaults:    cfg.Defaults,
		baseContext: cfg.BaseContext,
		logger:      cfg.Logger,
		nowFn:       cfg.Now,
	}

	r := gin.New()
	r.Use(gin.Recovery(), h.accessLog)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api := r.Group("/api")
	{
		api.GET("/models", h.listModels)
		api.POST("/run", h.runInteraction)
		api.POST("/run-batch", h.runBatch)
		api.GET("/batches", h.listBatches)
		api.POST("/prompts/reload", h.reloadPrompts)

		batch := api.Group("/batch/:id")
		{
			batch.GET("", h.batchStatus)
			batch.GET("/results", h.requireCompleted(h.batchResults))
			batch.GET("/summaries", h.requireCompleted(h.batchSummaries))
			batch.POST("/persona-cards", h.requireCompleted(h.personaCards))
			batch.GET("/report", h.requireCompleted(h.batchReport))
		}
	}
	return r, nil
}

func (h *handler) accessLog(c *gin.Context) {
	start := h.nowFn()
	c.Next()
	h.logger.Debug("http request",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("elapsed", h.nowFn().Sub(start)),
	)
}

func writeError(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, errorResponse{Detail: detail})
}

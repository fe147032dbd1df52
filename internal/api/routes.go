package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hermitbench/internal/bench"
	"hermitbench/internal/provider"
	"hermitbench/internal/report"
	"hermitbench/internal/store"
)

const batchKey = "batch"

func (h *handler) listModels(c *gin.Context) {
	if h.models == nil {
		writeError(c, http.StatusServiceUnavailable, "model listing is not configured")
		return
	}
	models, err := h.models.ListModels(c.Request.Context())
	if err != nil {
		h.logger.Error("list models", zap.Error(err))
		writeError(c, http.StatusInternalServerError, fmt.Sprintf("Failed to fetch models: %v", err))
		return
	}
	if models == nil {
		models = []provider.ModelInfo{}
	}
	c.JSON(http.StatusOK, modelsResponse{Models: models})
}

func (h *handler) runInteraction(c *gin.Context) {
	if h.interactor == nil {
		writeError(c, http.StatusServiceUnavailable, "interaction runner is not configured")
		return
	}
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	params, err := req.params(h.defaults)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.interactor.Run(c.Request.Context(), params)
	if err != nil {
		h.logger.Error("run interaction", zap.String("model", params.Model), zap.Error(err))
		writeError(c, http.StatusInternalServerError, fmt.Sprintf("Failed to run interaction: %v", err))
		return
	}
	c.JSON(http.StatusOK, newRunResponse(result))
}

func (h *handler) runBatch(c *gin.Context) {
	if h.batches == nil {
		writeError(c, http.StatusServiceUnavailable, "batch runner is not configured")
		return
	}
	var body batchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	req, err := body.request(h.defaults)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	id, err := h.batches.Start(h.baseContext, req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, bench.ErrContract) {
			status = http.StatusBadRequest
		}
		writeError(c, status, err.Error())
		return
	}
	batch, err := h.repo.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusOK, batchStatusResponse{
			BatchID:    id,
			Status:     bench.BatchRunning,
			TotalTasks: req.Config().TotalTasks(),
		})
		return
	}
	c.JSON(http.StatusOK, newBatchStatus(batch))
}

func (h *handler) listBatches(c *gin.Context) {
	batches, err := h.repo.List(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]batchStatusResponse, 0, len(batches))
	for _, batch := range batches {
		out = append(out, newBatchStatus(batch))
	}
	c.JSON(http.StatusOK, gin.H{"batches": out})
}

func (h *handler) reloadPrompts(c *gin.Context) {
	if h.prompts == nil || h.promptPath == "" {
		writeError(c, http.StatusBadRequest, "no prompt file is configured")
		return
	}
	if err := h.prompts.LoadFile(h.promptPath); err != nil {
		writeError(c, http.StatusInternalServerError, fmt.Sprintf("Failed to reload prompts: %v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"loaded": h.prompts.Loaded()})
}

func (h *handler) loadBatch(c *gin.Context) (bench.Batch, bool) {
	id := c.Param("id")
	batch, err := h.repo.Get(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(c, http.StatusNotFound, fmt.Sprintf("Batch ID %s not found", id))
		return bench.Batch{}, false
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return bench.Batch{}, false
	}
	return batch, true
}

func (h *handler) batchStatus(c *gin.Context) {
	batch, ok := h.loadBatch(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newBatchStatus(batch))
}

// requireCompleted loads the batch into the context and rejects unfinished ones.
func (h *handler) requireCompleted(next gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		batch, ok := h.loadBatch(c)
		if !ok {
			return
		}
		if batch.Status != bench.BatchCompleted {
			writeError(c, http.StatusBadRequest,
				fmt.Sprintf("Batch %s is not completed yet (status: %s)", batch.ID, batch.Status))
			return
		}
		c.Set(batchKey, batch)
		next(c)
	}
}

func batchFrom(c *gin.Context) bench.Batch {
	return c.MustGet(batchKey).(bench.Batch)
}

func (h *handler) batchResults(c *gin.Context) {
	batch := batchFrom(c)
	out := make(map[string][]runResponse, len(batch.Results))
	for model, results := range batch.Results {
		runs := make([]runResponse, 0, len(results))
		for _, result := range results {
			runs = append(runs, newRunResponse(result))
		}
		out[model] = runs
	}
	c.JSON(http.StatusOK, resultsResponse{Results: out})
}

func (h *handler) batchSummaries(c *gin.Context) {
	batch := batchFrom(c)
	summaries := batch.Summaries
	if summaries == nil {
		summaries = map[string]bench.ModelSummary{}
	}
	c.JSON(http.StatusOK, summaries)
}

func (h *handler) personaCards(c *gin.Context) {
	if h.batches == nil {
		writeError(c, http.StatusServiceUnavailable, "batch runner is not configured")
		return
	}
	batch := batchFrom(c)
	cards := h.batches.BuildPersonaCards(c.Request.Context(), batch.Results)
	if err := h.repo.SetPersonaCards(c.Request.Context(), batch.ID, cards); err != nil {
		h.logger.Warn("store persona cards", zap.String("batch_id", batch.ID), zap.Error(err))
	}
	c.JSON(http.StatusOK, cards)
}

func (h *handler) batchReport(c *gin.Context) {
	batch := batchFrom(c)
	kind, err := report.ParseKind(c.DefaultQuery("format", "csv"))
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	rendered, err := report.Generate(c.Request.Context(), batch, kind, h.nowFn())
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", rendered.Filename))
	c.Data(http.StatusOK, rendered.ContentType, rendered.Content)
}

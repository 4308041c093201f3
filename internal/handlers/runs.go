package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/primelio/cee-service/internal/database"
)

// ListImportRunsRequest represents query parameters for listing import runs
type ListImportRunsRequest struct {
	Status string `form:"status" json:"status" jsonschema:"enum=pending,enum=running,enum=completed,enum=failed"`
	Limit  int    `form:"limit" json:"limit" binding:"min=0,max=500" jsonschema:"minimum=0,maximum=500"`
	Offset int    `form:"offset" json:"offset" binding:"min=0" jsonschema:"minimum=0"`
}

// ListImportRunsResponse represents the paged run listing
type ListImportRunsResponse struct {
	Runs  []database.ImportRun `json:"runs" jsonschema:"required"`
	Total int                  `json:"total" jsonschema:"required"`
}

// ListImportRunErrorsResponse represents the paged error listing for one run
type ListImportRunErrorsResponse struct {
	RunID  string                    `json:"runId" jsonschema:"required"`
	Errors []database.ImportRunError `json:"errors" jsonschema:"required"`
	Total  int                       `json:"total" jsonschema:"required"`
}

// ImportErrorSummaryResponse aggregates a run's errors by type and severity
type ImportErrorSummaryResponse struct {
	RunID   string                        `json:"runId" jsonschema:"required"`
	Summary []database.ImportErrorSummary `json:"summary" jsonschema:"required"`
}

// ListImportRuns returns a paginated history of referential imports
// @Summary List import runs
// @Tags imports
// @Produce json
// @Param status query string false "Filter by status (pending, running, completed, failed)"
// @Param limit query int false "Number of items to return" default(50) minimum(0) maximum(500)
// @Param offset query int false "Number of items to skip" default(0) minimum(0)
// @Success 200 {object} ListImportRunsResponse
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/v1/imports [get]
func ListImportRuns(c *gin.Context) {
	var req ListImportRunsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Limit == 0 {
		req.Limit = 50
	}

	ctx := c.Request.Context()

	total, err := database.CountImportRuns(ctx, req.Status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count import runs"})
		return
	}

	runs, err := database.ListImportRuns(ctx, req.Status, req.Limit, req.Offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list import runs"})
		return
	}

	c.JSON(http.StatusOK, ListImportRunsResponse{Runs: runs, Total: total})
}

// GetImportRun returns one import run by UUID or public ID
// @Summary Get import run
// @Tags imports
// @Produce json
// @Param id path string true "Run UUID or public ID (imp_...)"
// @Success 200 {object} database.ImportRun
// @Failure 404 {object} map[string]string "Unknown run"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/v1/imports/{id} [get]
func GetImportRun(c *gin.Context) {
	run := resolveImportRun(c)
	if run == nil {
		return
	}
	c.JSON(http.StatusOK, run)
}

// ListImportRunErrors returns the row-level problems recorded for a run
// @Summary List import run errors
// @Tags imports
// @Produce json
// @Param id path string true "Run UUID or public ID"
// @Param limit query int false "Number of items to return" default(50) minimum(0) maximum(500)
// @Param offset query int false "Number of items to skip" default(0) minimum(0)
// @Success 200 {object} ListImportRunErrorsResponse
// @Failure 404 {object} map[string]string "Unknown run"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/v1/imports/{id}/errors [get]
func ListImportRunErrors(c *gin.Context) {
	run := resolveImportRun(c)
	if run == nil {
		return
	}

	var req ListImportRunsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Limit == 0 {
		req.Limit = 50
	}

	ctx := c.Request.Context()

	total, err := database.CountImportRunErrors(ctx, run.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count import errors"})
		return
	}

	errors, err := database.ListImportRunErrors(ctx, run.ID, req.Limit, req.Offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list import errors"})
		return
	}

	c.JSON(http.StatusOK, ListImportRunErrorsResponse{RunID: run.PublicID, Errors: errors, Total: total})
}

// GetImportErrorSummary returns a run's errors grouped by type and severity
// @Summary Summarise import run errors
// @Tags imports
// @Produce json
// @Param id path string true "Run UUID or public ID"
// @Success 200 {object} ImportErrorSummaryResponse
// @Failure 404 {object} map[string]string "Unknown run"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/v1/imports/{id}/errors/summary [get]
func GetImportErrorSummary(c *gin.Context) {
	run := resolveImportRun(c)
	if run == nil {
		return
	}

	summary, err := database.GetImportErrorSummary(c.Request.Context(), run.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to summarise import errors"})
		return
	}

	c.JSON(http.StatusOK, ImportErrorSummaryResponse{RunID: run.PublicID, Summary: summary})
}

// resolveImportRun loads the run from the :id path parameter, writing the
// error response itself when the run cannot be found.
func resolveImportRun(c *gin.Context) *database.ImportRun {
	id := c.Param("id")

	run, err := database.GetImportRun(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query import run"})
		return nil
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown import run: " + id})
		return nil
	}
	return run
}

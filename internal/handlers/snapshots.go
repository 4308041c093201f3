package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/primelio/cee-service/internal/database"
	"github.com/primelio/cee-service/internal/jobs"
	"github.com/primelio/cee-service/internal/rentability"
)

// ProjectSnapshotView represents a stored rentability snapshot
type ProjectSnapshotView struct {
	PublicID        string          `json:"publicId" jsonschema:"required"`
	ProjectID       string          `json:"projectId" jsonschema:"required"`
	Category        string          `json:"category" jsonschema:"required,enum=isolation,enum=eclairage"`
	TotalMwhCumac   float64         `json:"totalMwhCumac"`
	TotalPrimeEur   float64         `json:"totalPrimeEur"`
	CaTTC           float64         `json:"ca_ttc"`
	CoutChantierTTC float64         `json:"cout_chantier_ttc"`
	MargeTotaleTTC  float64         `json:"marge_totale_ttc"`
	Isolation       *categoryBlocks `json:"isolation,omitempty"`
	Eclairage       *categoryBlocks `json:"eclairage,omitempty"`
	ComputedAt      time.Time       `json:"computedAt"`
	LastRecomputeAt *time.Time      `json:"lastRecomputeAt,omitempty"`
}

type categoryBlocks struct {
	HT  *rentability.CategorySnapshot `json:"ht,omitempty"`
	TTC *rentability.CategorySnapshot `json:"ttc,omitempty"`
}

// ListSnapshotsRequest represents query parameters for listing snapshots
type ListSnapshotsRequest struct {
	Category string `form:"category" json:"category" jsonschema:"enum=isolation,enum=eclairage"`
	Limit    int    `form:"limit" json:"limit" binding:"min=0,max=200" jsonschema:"minimum=0,maximum=200"`
	Offset   int    `form:"offset" json:"offset" binding:"min=0" jsonschema:"minimum=0"`
}

// ListSnapshotsResponse represents the paged snapshot listing
type ListSnapshotsResponse struct {
	Snapshots []ProjectSnapshotView `json:"snapshots" jsonschema:"required"`
	Total     int                   `json:"total" jsonschema:"required"`
}

func decodeBlock(raw *string) *rentability.CategorySnapshot {
	if raw == nil {
		return nil
	}
	var block rentability.CategorySnapshot
	if err := json.Unmarshal([]byte(*raw), &block); err != nil {
		return nil
	}
	return &block
}

func toSnapshotView(row *database.ProjectSnapshotRow) ProjectSnapshotView {
	view := ProjectSnapshotView{
		PublicID:        row.PublicID,
		ProjectID:       row.ProjectID,
		Category:        row.Category,
		TotalMwhCumac:   row.TotalMwhCumac,
		TotalPrimeEur:   row.TotalPrimeEur,
		CaTTC:           row.CaTTC,
		CoutChantierTTC: row.CoutChantierTTC,
		MargeTotaleTTC:  row.MargeTotaleTTC,
		ComputedAt:      row.ComputedAt,
		LastRecomputeAt: row.LastRecomputeAt,
	}
	// One side only; the other is nulled by the category-switch guard.
	if row.IsolationHT != nil || row.IsolationTTC != nil {
		view.Isolation = &categoryBlocks{HT: decodeBlock(row.IsolationHT), TTC: decodeBlock(row.IsolationTTC)}
	}
	if row.EclairageHT != nil || row.EclairageTTC != nil {
		view.Eclairage = &categoryBlocks{HT: decodeBlock(row.EclairageHT), TTC: decodeBlock(row.EclairageTTC)}
	}
	return view
}

// GetProjectSnapshot returns the stored snapshot of a project
// @Summary Get project snapshot
// @Tags snapshots
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} ProjectSnapshotView
// @Failure 404 {object} map[string]string "No snapshot stored"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/v1/projects/{id}/snapshot [get]
func GetProjectSnapshot(c *gin.Context) {
	projectID := c.Param("id")

	row, err := database.GetProjectSnapshot(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query snapshot"})
		return
	}
	if row == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no snapshot stored for project " + projectID})
		return
	}
	c.JSON(http.StatusOK, toSnapshotView(row))
}

// RecomputeSnapshotResponse reports a snapshot recompute outcome
type RecomputeSnapshotResponse struct {
	ProjectID string `json:"projectId" jsonschema:"required"`
	Changed   bool   `json:"changed" jsonschema:"required"`
	Skipped   bool   `json:"skipped,omitempty"`
}

// RecomputeProjectSnapshot replays the stored compute document
// @Summary Recompute project snapshot
// @Description Replays the project's stored compute document against the current referential and upserts the result. A snapshot stored before input capture is skipped.
// @Tags snapshots
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} RecomputeSnapshotResponse
// @Failure 404 {object} map[string]string "No snapshot stored"
// @Failure 503 {object} map[string]string "Referential unavailable"
// @Router /api/v1/projects/{id}/snapshot [put]
func RecomputeProjectSnapshot(c *gin.Context) {
	if !engineReady(c) {
		return
	}
	projectID := c.Param("id")

	row, err := database.GetProjectSnapshot(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query snapshot"})
		return
	}
	if row == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no snapshot stored for project " + projectID})
		return
	}

	result, err := jobs.RecomputeProject(c.Request.Context(), computeService, projectID, jobs.RecomputeOptions{
		Tolerance: changeTolerance,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, RecomputeSnapshotResponse{
		ProjectID: result.ProjectID,
		Changed:   result.Changed,
		Skipped:   result.Skipped,
	})
}

// ListProjectSnapshots returns stored snapshots, newest first
// @Summary List project snapshots
// @Tags snapshots
// @Produce json
// @Param category query string false "Filter by category" Enums(isolation, eclairage)
// @Param limit query int false "Number of items to return" default(50) minimum(0) maximum(200)
// @Param offset query int false "Number of items to skip" default(0) minimum(0)
// @Success 200 {object} ListSnapshotsResponse
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/v1/snapshots [get]
func ListProjectSnapshots(c *gin.Context) {
	var req ListSnapshotsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Limit == 0 {
		req.Limit = 50
	}
	if req.Category != "" {
		if _, ok := rentability.ParseCategory(req.Category); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category: " + req.Category})
			return
		}
	}

	ctx := c.Request.Context()

	total, err := database.CountProjectSnapshots(ctx, req.Category)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count snapshots"})
		return
	}

	rows, err := database.ListProjectSnapshots(ctx, req.Category, req.Limit, req.Offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list snapshots"})
		return
	}

	views := make([]ProjectSnapshotView, 0, len(rows))
	for i := range rows {
		views = append(views, toSnapshotView(&rows[i]))
	}
	c.JSON(http.StatusOK, ListSnapshotsResponse{Snapshots: views, Total: total})
}

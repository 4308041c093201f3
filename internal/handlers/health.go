package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/primelio/cee-service/internal/database"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status      string     `json:"status"`
	Database    string     `json:"database"`
	Catalog     string     `json:"catalog"`
	Products    int        `json:"products,omitempty"`
	RefreshedAt *time.Time `json:"refreshedAt,omitempty"`
}

func unixTimePtr(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

// HealthCheck handles the health check endpoint
func HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status: "ok",
	}

	// Check database connection
	if database.Pool() != nil {
		err := database.Status(c.Request.Context())
		if err != nil {
			response.Database = "disconnected"
			c.JSON(http.StatusServiceUnavailable, response)
			return
		}
		response.Database = "connected"
	} else {
		response.Database = "not configured"
	}

	if referential == nil {
		response.Catalog = "not configured"
	} else if !referential.IsHealthy() {
		response.Catalog = "stale"
		response.Status = "degraded"
	} else {
		freshness := referential.GetFreshness()
		response.Catalog = "ready"
		response.Products = freshness.Products
		response.RefreshedAt = unixTimePtr(freshness.LoadedAt)
	}

	c.JSON(http.StatusOK, response)
}

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/primelio/cee-service/internal/database"
)

// ListCatalogProductsRequest represents query parameters for listing the referential
type ListCatalogProductsRequest struct {
	Code   string `form:"code" json:"code"`
	Active *bool  `form:"active" json:"active"`
	Limit  int    `form:"limit" json:"limit" binding:"min=0,max=500" jsonschema:"minimum=0,maximum=500"`
	Offset int    `form:"offset" json:"offset" binding:"min=0" jsonschema:"minimum=0"`
}

// CatalogProductView represents one referential entry
type CatalogProductView struct {
	Code                  string             `json:"code" jsonschema:"required"`
	Label                 string             `json:"label"`
	KwhCumac              map[string]float64 `json:"kwhCumac" jsonschema:"required"`
	MultiplierKey         string             `json:"multiplierKey"`
	MultiplierLabel       string             `json:"multiplierLabel"`
	MultiplierCoefficient *float64           `json:"multiplierCoefficient,omitempty"`
	Bonification          *float64           `json:"bonification,omitempty"`
	Active                bool               `json:"active"`
	UpdatedAt             time.Time          `json:"updatedAt"`
}

// ListCatalogProductsResponse represents the paged referential listing
type ListCatalogProductsResponse struct {
	Products []CatalogProductView `json:"products" jsonschema:"required"`
	Total    int                  `json:"total" jsonschema:"required"`
}

func toProductView(p *database.CatalogProduct) CatalogProductView {
	return CatalogProductView{
		Code:                  p.Code,
		Label:                 p.Label,
		KwhCumac:              p.KwhCumac,
		MultiplierKey:         p.MultiplierKey,
		MultiplierLabel:       p.MultiplierLabel,
		MultiplierCoefficient: p.MultiplierCoefficient,
		Bonification:          p.Bonification,
		Active:                p.Active,
		UpdatedAt:             p.UpdatedAt,
	}
}

// ListCatalogProducts returns a paginated referential listing
// @Summary List catalog products
// @Description Returns the CEE operation referential, optionally filtered by code substring.
// @Tags catalog
// @Produce json
// @Param code query string false "Filter by code substring"
// @Param active query bool false "Only active entries" default(true)
// @Param limit query int false "Number of items to return" default(50) minimum(0) maximum(500)
// @Param offset query int false "Number of items to skip" default(0) minimum(0)
// @Success 200 {object} ListCatalogProductsResponse
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/v1/catalog/products [get]
func ListCatalogProducts(c *gin.Context) {
	var req ListCatalogProductsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Limit == 0 {
		req.Limit = 50
	}
	activeOnly := req.Active == nil || *req.Active

	ctx := c.Request.Context()

	total, err := database.CountCatalogProducts(ctx, req.Code, activeOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count catalog products"})
		return
	}

	products, err := database.ListCatalogProducts(ctx, req.Code, activeOnly, req.Limit, req.Offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list catalog products"})
		return
	}

	views := make([]CatalogProductView, 0, len(products))
	for i := range products {
		views = append(views, toProductView(&products[i]))
	}
	c.JSON(http.StatusOK, ListCatalogProductsResponse{Products: views, Total: total})
}

// GetCatalogProduct returns one referential entry by operation code
// @Summary Get catalog product
// @Tags catalog
// @Produce json
// @Param code path string true "Operation code, e.g. BAT-EQ-127"
// @Success 200 {object} CatalogProductView
// @Failure 404 {object} map[string]string "Unknown code"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/v1/catalog/products/{code} [get]
func GetCatalogProduct(c *gin.Context) {
	code := c.Param("code")

	product, err := database.GetCatalogProductByCode(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query catalog product"})
		return
	}
	if product == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown operation code: " + code})
		return
	}
	c.JSON(http.StatusOK, toProductView(product))
}

// DelegateView represents one delegate with its purchase price
type DelegateView struct {
	Name           string    `json:"name" jsonschema:"required"`
	PriceEurPerMwh float64   `json:"priceEurPerMwh" jsonschema:"required"`
	Active         bool      `json:"active"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ListDelegatesResponse represents the delegate listing
type ListDelegatesResponse struct {
	Delegates []DelegateView `json:"delegates" jsonschema:"required"`
}

// ListDelegates returns the delegates and their purchase prices
// @Summary List delegates
// @Tags catalog
// @Produce json
// @Param active query bool false "Only active delegates" default(true)
// @Success 200 {object} ListDelegatesResponse
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/v1/catalog/delegates [get]
func ListDelegates(c *gin.Context) {
	activeOnly := c.DefaultQuery("active", "true") != "false"

	delegates, err := database.ListDelegates(c.Request.Context(), activeOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list delegates"})
		return
	}

	views := make([]DelegateView, 0, len(delegates))
	for _, d := range delegates {
		views = append(views, DelegateView{
			Name:           d.Name,
			PriceEurPerMwh: d.PriceEurPerMwh,
			Active:         d.Active,
			UpdatedAt:      d.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, ListDelegatesResponse{Delegates: views})
}

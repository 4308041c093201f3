package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/primelio/cee-service/internal/catalog"
	"github.com/primelio/cee-service/internal/compute"
	"github.com/primelio/cee-service/internal/database"
	"github.com/primelio/cee-service/internal/rentability"
)

// Engine dependencies shared by the compute endpoints
// (initialized by the application)
var (
	computeService  *compute.Service
	referential     *catalog.Cache
	changeTolerance float64
)

// InitEngine wires the compute endpoints to the running service.
// This should be called during application startup.
func InitEngine(svc *compute.Service, cache *catalog.Cache, tolerance float64) {
	computeService = svc
	referential = cache
	changeTolerance = tolerance
}

func engineReady(c *gin.Context) bool {
	if computeService == nil || referential == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "engine not initialized"})
		return false
	}
	if !referential.IsHealthy() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "referential unavailable"})
		return false
	}
	return true
}

// Compute runs the full project computation
// @Summary Compute project valorisation and rentability
// @Description Valorises the project lines against the CEE referential, derives the unified and per-category rentability views and builds the persistable snapshot. With persist=true the snapshot is upserted.
// @Tags compute
// @Accept json
// @Produce json
// @Param persist query bool false "Persist the resulting snapshot" default(false)
// @Param request body compute.Request true "Project compute document"
// @Success 200 {object} compute.Response
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 503 {object} map[string]string "Referential unavailable"
// @Router /api/v1/compute [post]
func Compute(c *gin.Context) {
	if !engineReady(c) {
		return
	}

	var req compute.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := computeService.Compute(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	persist := c.Query("persist") == "true"
	if persist {
		if req.ProjectID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "persist=true requires projectId"})
			return
		}
		written, err := persistSnapshot(c, &req, resp)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist snapshot"})
			return
		}
		c.Header("X-Snapshot-Written", boolHeader(written))
	}

	c.JSON(http.StatusOK, resp)
}

// persistSnapshot maps the compute result onto a snapshot row, attaches the
// request document for later replay, and upserts under the configured
// tolerance. Returns whether a write happened.
func persistSnapshot(c *gin.Context, req *compute.Request, resp *compute.Response) (bool, error) {
	row, err := database.NewProjectSnapshotRow(req.ProjectID, &resp.Totals, resp.Snapshot)
	if err != nil {
		return false, err
	}

	doc, err := json.Marshal(req)
	if err != nil {
		return false, err
	}
	input := string(doc)
	row.Input = &input

	written, err := database.UpsertProjectSnapshot(c.Request.Context(), row, changeTolerance)
	if err != nil {
		log.Error().Err(err).Str("project_id", req.ProjectID).Msg("Snapshot upsert failed")
		return false, err
	}
	return written, nil
}

func boolHeader(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// Valorise values the project lines without the rentability derivations
// @Summary Valorise project lines
// @Description Resolves each line's operation code against the referential and converts kWh cumac into MWh and euros via the delegate price. Lines the referential cannot resolve carry warnings instead of failing the request.
// @Tags compute
// @Accept json
// @Produce json
// @Param request body compute.Request true "Project compute document (figures ignored)"
// @Success 200 {object} compute.ValorisationResponse
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 503 {object} map[string]string "Referential unavailable"
// @Router /api/v1/valorisation [post]
func Valorise(c *gin.Context) {
	if !engineReady(c) {
		return
	}

	var req compute.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, computeService.Valorise(&req))
}

// UnifiedRentabilityRequest represents a direct unified-engine request
type UnifiedRentabilityRequest struct {
	MeasurementMode         string  `json:"measurementMode" jsonschema:"enum=luminaire,enum=surface"`
	CeePrime                float64 `json:"ceePrime"`
	TravauxNonSubventionnes float64 `json:"travauxNonSubventionnes"`
	TravauxEnabled          bool    `json:"travauxEnabled"`
	ProjectType             string  `json:"projectType"`
	LaborCost               float64 `json:"laborCost"`
	MaterialCost            float64 `json:"materialCost"`
	Commission              float64 `json:"commission"`
	AdditionalCostsTTC      float64 `json:"additionalCostsTtc"`
	SubcontractorCost       float64 `json:"subcontractorCost"`
	Units                   float64 `json:"units"`
}

// RentabilityUnified runs the cross-category rentability formula directly
// @Summary Unified rentability
// @Tags rentability
// @Accept json
// @Produce json
// @Param request body UnifiedRentabilityRequest true "Normalized figures"
// @Success 200 {object} rentability.UnifiedResult
// @Failure 400 {object} map[string]string "Bad request"
// @Router /api/v1/rentability/unified [post]
func RentabilityUnified(c *gin.Context) {
	var req UnifiedRentabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mode := rentability.ModeSurface
	if req.MeasurementMode == string(rentability.ModeLuminaire) {
		mode = rentability.ModeLuminaire
	}

	calc := rentability.NewCalculator()
	result := calc.Unified(rentability.UnifiedInput{
		MeasurementMode:         mode,
		CeePrime:                req.CeePrime,
		TravauxNonSubventionnes: req.TravauxNonSubventionnes,
		TravauxEnabled:          req.TravauxEnabled,
		ProjectType:             req.ProjectType,
		LaborCost:               req.LaborCost,
		MaterialCost:            req.MaterialCost,
		Commission:              req.Commission,
		AdditionalCostsTTC:      req.AdditionalCostsTTC,
		SubcontractorCost:       req.SubcontractorCost,
		Units:                   req.Units,
	})
	c.JSON(http.StatusOK, result)
}

// CategoryRentabilityRequest represents a direct category-engine request
type CategoryRentabilityRequest struct {
	Category string  `json:"category" binding:"required" jsonschema:"required,enum=isolation,enum=eclairage"`
	CA       float64 `json:"ca"`

	SurfaceFactureeM2 float64 `json:"surfaceFactureeM2"`
	MoHtPerM2         float64 `json:"moHtPerM2"`
	MaterialTotalHT   float64 `json:"materialTotalHt"`

	NbLuminaires                float64 `json:"nbLuminaires"`
	CoutTotalMo                 float64 `json:"coutTotalMo"`
	CoutTotalMateriauxEclairage float64 `json:"coutTotalMateriauxEclairage"`

	CommissionHT         float64 `json:"commissionHt"`
	FraisAdditionnelsHT  float64 `json:"fraisAdditionnelsHt"`
	FraisAdditionnelsTTC float64 `json:"fraisAdditionnelsTtc"`
}

// CategoryRentabilityResponse carries both tax views plus the snapshot the
// store layer would persist for these figures.
type CategoryRentabilityResponse struct {
	HT       rentability.CategoryResult   `json:"ht"`
	TTC      rentability.CategoryResult   `json:"ttc"`
	Snapshot *rentability.ProjectSnapshot `json:"snapshot"`
}

// RentabilityCategory runs both tax views of the category engine
// @Summary Category rentability (HT and TTC)
// @Tags rentability
// @Accept json
// @Produce json
// @Param request body CategoryRentabilityRequest true "Category figures"
// @Success 200 {object} CategoryRentabilityResponse
// @Failure 400 {object} map[string]string "Bad request"
// @Router /api/v1/rentability/category [post]
func RentabilityCategory(c *gin.Context) {
	var req CategoryRentabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category, ok := rentability.ParseCategory(req.Category)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category: " + req.Category})
		return
	}

	input := rentability.CategoryInput{
		Category:                    category,
		CA:                          req.CA,
		SurfaceFactureeM2:           req.SurfaceFactureeM2,
		MoHtPerM2:                   req.MoHtPerM2,
		MaterialTotalHT:             req.MaterialTotalHT,
		NbLuminaires:                req.NbLuminaires,
		CoutTotalMo:                 req.CoutTotalMo,
		CoutTotalMateriauxEclairage: req.CoutTotalMateriauxEclairage,
		CommissionHT:                req.CommissionHT,
		FraisAdditionnelsHT:         req.FraisAdditionnelsHT,
		FraisAdditionnelsTTC:        req.FraisAdditionnelsTTC,
	}

	calc := rentability.NewCalculator()
	ht := calc.Category(input, rentability.ViewHT)
	ttc := calc.Category(input, rentability.ViewTTC)

	c.JSON(http.StatusOK, CategoryRentabilityResponse{
		HT:       ht,
		TTC:      ttc,
		Snapshot: rentability.BuildSnapshot(category, ht, ttc),
	})
}

// SubcontractRequest represents a subcontractor payment estimate request
type SubcontractRequest struct {
	Category          string   `json:"category" binding:"required" jsonschema:"required,enum=isolation,enum=eclairage"`
	UnitLabelOverride string   `json:"unitLabelOverride"`
	BaseUnitsOverride *float64 `json:"baseUnitsOverride"`
	SurfaceM2         float64  `json:"surfaceM2"`
	NbLuminaires      float64  `json:"nbLuminaires"`
	// Rate tolerates localized strings ("12,50") in addition to numbers.
	Rate any `json:"rate"`
}

// Subcontract estimates the subcontractor payment
// @Summary Subcontractor payment estimate
// @Tags rentability
// @Accept json
// @Produce json
// @Param request body SubcontractRequest true "Subcontract terms"
// @Success 200 {object} rentability.SubcontractResult
// @Failure 400 {object} map[string]string "Bad request"
// @Router /api/v1/subcontract [post]
func Subcontract(c *gin.Context) {
	var req SubcontractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category, ok := rentability.ParseCategory(req.Category)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category: " + req.Category})
		return
	}

	result := rentability.NewCalculator().Subcontract(rentability.SubcontractInput{
		Category:          category,
		UnitLabelOverride: req.UnitLabelOverride,
		BaseUnitsOverride: req.BaseUnitsOverride,
		SurfaceM2:         req.SurfaceM2,
		NbLuminaires:      req.NbLuminaires,
		Rate:              req.Rate,
	})
	c.JSON(http.StatusOK, result)
}

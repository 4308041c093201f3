package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primelio/cee-service/internal/catalog"
	"github.com/primelio/cee-service/internal/compute"
	"github.com/primelio/cee-service/internal/database"
	"github.com/primelio/cee-service/internal/rentability"
)

type stubSource struct{}

func (stubSource) Load(ctx context.Context) ([]database.CatalogProduct, []database.Delegate, error) {
	products := []database.CatalogProduct{
		{
			Code:          "BAT-EQ-127",
			Label:         "Luminaires à modules LED",
			KwhCumac:      map[string]float64{"Bureaux": 1000},
			MultiplierKey: "nbLuminaires",
			Active:        true,
		},
	}
	delegates := []database.Delegate{
		{Name: "TotalEnergies", PriceEurPerMwh: 50, Active: true},
	}
	return products, delegates, nil
}

func setupEngineRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cache := catalog.NewCache(stubSource{}, catalog.DefaultConfig())
	t.Cleanup(func() { _ = cache.Close() })
	require.NoError(t, cache.Warmup(context.Background()))

	InitEngine(compute.NewService(cache), cache, 0.005)

	router := gin.New()
	router.POST("/api/v1/compute", Compute)
	router.POST("/api/v1/valorisation", Valorise)
	router.POST("/api/v1/rentability/unified", RentabilityUnified)
	router.POST("/api/v1/rentability/category", RentabilityCategory)
	router.POST("/api/v1/subcontract", Subcontract)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestComputeEndpoint(t *testing.T) {
	router := setupEngineRouter(t)

	w := postJSON(t, router, "/api/v1/compute", compute.Request{
		Category: "eclairage",
		Context:  compute.ContextInput{BuildingType: "Bureaux", DelegateName: "TotalEnergies"},
		Lines: []compute.LineInput{
			{Code: "BAT-EQ-127", DynamicParams: map[string]any{"nbLuminaires": 50}},
		},
		Figures: compute.Figures{NbLuminaires: 50},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp compute.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	// 1000 kWh cumac x bonification 2 = 2 MWh per luminaire, 50 luminaires
	// at 50 EUR/MWh
	require.Len(t, resp.Lines, 1)
	require.NotNil(t, resp.Lines[0].Result)
	assert.InDelta(t, 2, resp.Lines[0].Result.PerUnitMwhCumac, 1e-9)
	assert.InDelta(t, 100, resp.Totals.TotalMwhCumac, 1e-9)
	assert.InDelta(t, 5000, resp.Totals.TotalPrimeEur, 1e-9)
	assert.Equal(t, rentability.CategoryLighting, resp.Category)
	require.NotNil(t, resp.Snapshot)
}

func TestComputeEndpointRejectsUnknownCategory(t *testing.T) {
	router := setupEngineRouter(t)

	w := postJSON(t, router, "/api/v1/compute", compute.Request{
		Category: "plomberie",
		Context:  compute.ContextInput{BuildingType: "Bureaux"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestComputeEndpointPersistRequiresProjectID(t *testing.T) {
	router := setupEngineRouter(t)

	w := postJSON(t, router, "/api/v1/compute?persist=true", compute.Request{
		Category: "eclairage",
		Context:  compute.ContextInput{BuildingType: "Bureaux", DelegateName: "TotalEnergies"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "projectId")
}

func TestValoriseEndpointWarnsOnUnknownCode(t *testing.T) {
	router := setupEngineRouter(t)

	w := postJSON(t, router, "/api/v1/valorisation", compute.Request{
		Category: "eclairage",
		Context:  compute.ContextInput{BuildingType: "Bureaux", DelegateName: "TotalEnergies"},
		Lines: []compute.LineInput{
			{Code: "BAT-XX-999", DynamicParams: map[string]any{"nbLuminaires": 3}},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp compute.ValorisationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Lines, 1)
	assert.Nil(t, resp.Lines[0].Result)
	assert.NotEmpty(t, resp.Lines[0].Warnings)
}

func TestRentabilityCategoryEndpoint(t *testing.T) {
	router := setupEngineRouter(t)

	w := postJSON(t, router, "/api/v1/rentability/category", CategoryRentabilityRequest{
		Category:          "isolation",
		CA:                10000,
		SurfaceFactureeM2: 100,
		MoHtPerM2:         20,
		MaterialTotalHT:   3000,
		CommissionHT:      500,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp CategoryRentabilityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.InDelta(t, resp.HT.CA, resp.TTC.CA, 1e-9)
	require.NotNil(t, resp.Snapshot)
	assert.Equal(t, rentability.CategoryInsulation, resp.Snapshot.Category)
	assert.InDelta(t, 10000, resp.Snapshot.HT.CA, 1e-9)

	w = postJSON(t, router, "/api/v1/rentability/category", CategoryRentabilityRequest{Category: "chauffage"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubcontractEndpointParsesLocalizedRate(t *testing.T) {
	router := setupEngineRouter(t)

	w := postJSON(t, router, "/api/v1/subcontract", SubcontractRequest{
		Category:  "isolation",
		SurfaceM2: 80,
		Rate:      "12,50",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp rentability.SubcontractResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.InDelta(t, 12.5, resp.Rate, 1e-9)
	assert.InDelta(t, 1000, resp.EstimatedCost, 1e-9)
}

func TestEngineUnavailableReturns503(t *testing.T) {
	gin.SetMode(gin.TestMode)
	InitEngine(nil, nil, 0)

	router := gin.New()
	router.POST("/api/v1/compute", Compute)

	w := postJSON(t, router, "/api/v1/compute", compute.Request{Category: "eclairage"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

package compute

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primelio/cee-service/internal/catalog"
	"github.com/primelio/cee-service/internal/database"
	"github.com/primelio/cee-service/internal/rentability"
	"github.com/primelio/cee-service/internal/types"
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
		{
			Code:                  "BAT-EN-101",
			Label:                 "Isolation de combles",
			KwhCumac:              map[string]float64{"Bureaux": 2300},
			MultiplierKey:         "surface",
			MultiplierCoefficient: types.Float64Ptr(2),
			Active:                true,
		},
	}
	delegates := []database.Delegate{
		{Name: "TotalEnergies", PriceEurPerMwh: 50, Active: true},
	}
	return products, delegates, nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	cache := catalog.NewCache(stubSource{}, catalog.DefaultConfig())
	t.Cleanup(func() { _ = cache.Close() })
	require.NoError(t, cache.Warmup(context.Background()))
	return NewService(cache)
}

func TestComputeLightingProject(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.Compute(&Request{
		ProjectID: "PRJ-42",
		Category:  "eclairage",
		Context:   ContextInput{BuildingType: "Bureaux", DelegateName: "TotalEnergies"},
		Lines: []LineInput{
			{Code: "BAT-EQ-127", DynamicParams: map[string]any{"nbLuminaires": 10}},
		},
		Figures: Figures{
			NbLuminaires:                10,
			CoutTotalMo:                 300,
			CoutTotalMateriauxEclairage: 400,
			Commission:                  100,
			AdditionalCostsHT:           50,
			AdditionalCostsTTC:          60,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, rentability.CategoryLighting, resp.Category)
	assert.Equal(t, 50.0, resp.DelegatePriceEurPerMwh)
	assert.Empty(t, resp.Warnings)

	// 1000 kWh x bonification 2 / 1000 = 2 MWh per luminaire, 10 luminaires
	require.Len(t, resp.Lines, 1)
	require.NotNil(t, resp.Lines[0].Result)
	assert.InDelta(t, 2, resp.Lines[0].Result.PerUnitMwhCumac, 1e-9)
	assert.InDelta(t, 20, resp.Totals.TotalMwhCumac, 1e-9)
	assert.InDelta(t, 1000, resp.Totals.TotalPrimeEur, 1e-9)
	assert.True(t, resp.Totals.HasComputedTotals)

	// CA is the prime alone, costs are commission + additional TTC
	assert.InDelta(t, 1000, resp.Unified.CA, 1e-9)
	assert.InDelta(t, 160, resp.Unified.TotalCosts, 1e-9)
	assert.InDelta(t, 840, resp.Unified.MargeTotale, 1e-9)
	assert.InDelta(t, 84, resp.Unified.MargePerUnit, 1e-9)

	require.NotNil(t, resp.Snapshot)
	assert.InDelta(t, 860, resp.Snapshot.TTC.CoutChantier, 1e-9)
	assert.InDelta(t, 140, resp.Snapshot.MargeTotaleTTC, 1e-9)
	assert.InDelta(t, 850, resp.Snapshot.HT.CoutChantier, 1e-9)
	assert.InDelta(t, 15, resp.Snapshot.HT.MargeParUnite, 1e-9)
	assert.Nil(t, resp.Subcontract, "no subcontract estimate without a rate")
}

func TestComputeInsulationProject(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.Compute(&Request{
		Category: "Isolation",
		Context: ContextInput{
			BuildingType:           "bureaux",
			DelegateName:           "Nobody",
			DelegatePriceEurPerMwh: types.Float64Ptr(40),
		},
		Lines: []LineInput{
			{Code: "BAT-EN-101", DynamicParams: map[string]any{"surface": 50}},
		},
		Figures: Figures{
			SurfaceFactureeM2:  50,
			MoHtPerM2:          10,
			MaterialTotalHT:    500,
			Commission:         200,
			AdditionalCostsTTC: 100,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, rentability.CategoryInsulation, resp.Category)
	assert.Equal(t, 40.0, resp.DelegatePriceEurPerMwh, "the explicit price wins over the delegate name")
	assert.Empty(t, resp.Warnings)

	// 2300 kWh x bonification 2 / 1000 = 4.6 MWh per m², 50 m² x coefficient 2
	require.NotNil(t, resp.Lines[0].Result)
	assert.InDelta(t, 100, resp.Lines[0].Result.Multiplier, 1e-9)
	assert.InDelta(t, 460, resp.Totals.TotalMwhCumac, 1e-9)
	assert.InDelta(t, 18400, resp.Totals.TotalPrimeEur, 1e-9)

	assert.InDelta(t, 18400, resp.Unified.CA, 1e-9)
	assert.InDelta(t, 362, resp.Unified.MargePerUnit, 1e-9)

	// surface x MO rate + materials + commission + additional costs
	assert.InDelta(t, 1300, resp.Snapshot.TTC.CoutChantier, 1e-9)
	assert.InDelta(t, 1200, resp.Snapshot.HT.CoutChantier, 1e-9)
	assert.InDelta(t, 17100, resp.Snapshot.MargeTotaleTTC, 1e-9)
}

func TestComputeDegradesToWarnings(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.Compute(&Request{
		Category: "eclairage",
		Context:  ContextInput{BuildingType: "Bureaux", DelegateName: "Engie"},
		Lines: []LineInput{
			{Code: "XXX-YY-999", DynamicParams: map[string]any{"nbLuminaires": 4}},
			{Code: "BAT-EQ-127"},
		},
	})
	require.NoError(t, err)

	require.Len(t, resp.Warnings, 1)
	assert.Contains(t, resp.Warnings[0], `unknown delegate "Engie"`)

	require.Len(t, resp.Lines, 2)
	assert.Nil(t, resp.Lines[0].Result)
	assert.Equal(t, []string{"unknown operation code"}, resp.Lines[0].Warnings)
	assert.Nil(t, resp.Lines[1].Result)
	assert.Equal(t, []string{"missing dynamic params"}, resp.Lines[1].Warnings)

	assert.Equal(t, 2, resp.Totals.SkippedLines)
	assert.False(t, resp.Totals.HasComputedTotals)
	assert.Zero(t, resp.Unified.CA)
	assert.Zero(t, resp.Unified.MargeRate)
}

func TestComputeFallbackPrime(t *testing.T) {
	svc := newTestService(t)

	t.Run("manual prime feeds CA when nothing valorises", func(t *testing.T) {
		resp, err := svc.Compute(&Request{
			Category: "eclairage",
			Context:  ContextInput{BuildingType: "Bureaux", DelegateName: "TotalEnergies"},
			Figures:  Figures{CeePrimeFallback: 1500, LaborCost: 500},
		})
		require.NoError(t, err)

		assert.False(t, resp.Totals.HasComputedTotals)
		assert.InDelta(t, 1500, resp.Unified.CA, 1e-9)
		assert.InDelta(t, 1000, resp.Unified.MargeTotale, 1e-9)
	})

	t.Run("computed valorisation wins over the manual prime", func(t *testing.T) {
		resp, err := svc.Compute(&Request{
			Category: "eclairage",
			Context:  ContextInput{BuildingType: "Bureaux", DelegateName: "TotalEnergies"},
			Lines: []LineInput{
				{Code: "BAT-EQ-127", DynamicParams: map[string]any{"nbLuminaires": 10}},
			},
			Figures: Figures{CeePrimeFallback: 99999},
		})
		require.NoError(t, err)

		assert.True(t, resp.Totals.HasComputedTotals)
		assert.InDelta(t, 1000, resp.Unified.CA, 1e-9)
	})
}

func TestComputeRejectsUnknownCategory(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Compute(&Request{Category: "menuiserie"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown category")
}

func TestComputeSubcontractEstimate(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.Compute(&Request{
		Category: "eclairage",
		Context:  ContextInput{BuildingType: "Bureaux", DelegateName: "TotalEnergies"},
		Figures: Figures{
			NbLuminaires:    10,
			SubcontractRate: "2,5",
		},
	})
	require.NoError(t, err)

	require.NotNil(t, resp.Subcontract)
	assert.Equal(t, "LED", resp.Subcontract.UnitLabel)
	assert.InDelta(t, 10, resp.Subcontract.BaseUnits, 1e-9)
	assert.InDelta(t, 2.5, resp.Subcontract.Rate, 1e-9)
	assert.InDelta(t, 25, resp.Subcontract.EstimatedCost, 1e-9)
}

func TestValoriseParsesLocalizedQuantities(t *testing.T) {
	svc := newTestService(t)

	resp := svc.Valorise(&Request{
		Context: ContextInput{BuildingType: "Bureaux", DelegateName: "TotalEnergies"},
		Lines: []LineInput{
			{Code: "bat-eq-127", DynamicParams: map[string]any{"nbLuminaires": "12,5"}},
		},
	})

	require.Len(t, resp.Lines, 1)
	require.NotNil(t, resp.Lines[0].Result)
	assert.InDelta(t, 12.5, resp.Lines[0].Result.Multiplier, 1e-9)
	assert.InDelta(t, 25, resp.Totals.TotalMwhCumac, 1e-9)
	assert.InDelta(t, 1250, resp.Totals.TotalPrimeEur, 1e-9)
}

func TestMeasurementModeDefaultsAndOverride(t *testing.T) {
	assert.Equal(t, rentability.ModeLuminaire, measurementMode("", rentability.CategoryLighting))
	assert.Equal(t, rentability.ModeSurface, measurementMode("", rentability.CategoryInsulation))
	assert.Equal(t, rentability.ModeSurface, measurementMode("Surface", rentability.CategoryLighting))
	assert.Equal(t, rentability.ModeLuminaire, measurementMode(" luminaire ", rentability.CategoryInsulation))
}

package rentability

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnified(t *testing.T) {
	calc := NewCalculator()

	t.Run("margin identity", func(t *testing.T) {
		result := calc.Unified(UnifiedInput{
			MeasurementMode:         ModeSurface,
			CeePrime:                5000,
			TravauxNonSubventionnes: 2000,
			TravauxEnabled:          true,
			ProjectType:             "RENO",
			LaborCost:               1500,
			MaterialCost:            2500,
			Commission:              300,
			AdditionalCostsTTC:      200,
			SubcontractorCost:       1000,
			Units:                   100,
		})

		assert.Equal(t, float64(7000), result.CA)
		assert.Equal(t, float64(5500), result.TotalCosts)
		assert.Equal(t, result.CA-result.TotalCosts, result.MargeTotale)
		assert.Equal(t, float64(1500), result.MargeTotale)
		assert.InDelta(t, 1500.0/7000.0, result.MargeRate, 1e-9)
		assert.Equal(t, float64(15), result.MargePerUnit)
	})

	t.Run("margin rate is a ratio not a percent", func(t *testing.T) {
		result := calc.Unified(UnifiedInput{CeePrime: 1000, LaborCost: 500})
		assert.Equal(t, 0.5, result.MargeRate)
	})

	t.Run("negative prime clamps in CA but stays visible", func(t *testing.T) {
		result := calc.Unified(UnifiedInput{CeePrime: -800})
		assert.Equal(t, float64(0), result.CA)
		assert.Equal(t, float64(-800), result.RawCeePrime)
	})

	t.Run("travaux require the enabled flag", func(t *testing.T) {
		result := calc.Unified(UnifiedInput{
			CeePrime:                1000,
			TravauxNonSubventionnes: 500,
			TravauxEnabled:          false,
			ProjectType:             "RENO",
		})
		assert.Equal(t, float64(1000), result.CA)
	})

	t.Run("travaux excluded for NA project type", func(t *testing.T) {
		for _, projectType := range []string{"NA", " NA "} {
			result := calc.Unified(UnifiedInput{
				CeePrime:                1000,
				TravauxNonSubventionnes: 500,
				TravauxEnabled:          true,
				ProjectType:             projectType,
			})
			assert.Equal(t, float64(1000), result.CA, "projectType=%q", projectType)
		}
	})

	t.Run("zero denominators never produce NaN", func(t *testing.T) {
		result := calc.Unified(UnifiedInput{
			CeePrime:  -100,
			LaborCost: 50,
		})
		assert.Equal(t, float64(0), result.CA)
		assert.Equal(t, float64(0), result.MargeRate)
		assert.Equal(t, float64(0), result.MargePerUnit)
		assert.Equal(t, float64(-50), result.MargeTotale)

		for name, v := range map[string]float64{
			"ca":           result.CA,
			"totalCosts":   result.TotalCosts,
			"margeTotale":  result.MargeTotale,
			"margeRate":    result.MargeRate,
			"margePerUnit": result.MargePerUnit,
		} {
			assert.False(t, math.IsNaN(v), "%s is NaN", name)
			assert.False(t, math.IsInf(v, 0), "%s is Inf", name)
		}
	})

	t.Run("measurement mode does not change the figures", func(t *testing.T) {
		in := UnifiedInput{CeePrime: 1000, LaborCost: 400, Units: 10}
		in.MeasurementMode = ModeLuminaire
		luminaire := calc.Unified(in)
		in.MeasurementMode = ModeSurface
		surface := calc.Unified(in)
		assert.Equal(t, luminaire, surface)
	})
}

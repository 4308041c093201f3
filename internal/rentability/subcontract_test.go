package rentability

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/primelio/cee-service/internal/types"
)

func TestSubcontract(t *testing.T) {
	calc := NewCalculator()

	t.Run("insulation defaults to surface units", func(t *testing.T) {
		result := calc.Subcontract(SubcontractInput{
			Category:  CategoryInsulation,
			SurfaceM2: 150,
			Rate:      8,
		})
		assert.Equal(t, "m²", result.UnitLabel)
		assert.Equal(t, float64(150), result.BaseUnits)
		assert.Equal(t, float64(8), result.Rate)
		assert.Equal(t, float64(1200), result.EstimatedCost)
	})

	t.Run("lighting defaults to luminaire units", func(t *testing.T) {
		result := calc.Subcontract(SubcontractInput{
			Category:     CategoryLighting,
			NbLuminaires: 40,
			SurfaceM2:    999, // ignored for lighting
			Rate:         15,
		})
		assert.Equal(t, "LED", result.UnitLabel)
		assert.Equal(t, float64(40), result.BaseUnits)
		assert.Equal(t, float64(600), result.EstimatedCost)
	})

	t.Run("overrides replace the category defaults", func(t *testing.T) {
		result := calc.Subcontract(SubcontractInput{
			Category:          CategoryInsulation,
			UnitLabelOverride: "point lumineux",
			BaseUnitsOverride: types.Float64Ptr(25),
			SurfaceM2:         150,
			Rate:              4,
		})
		assert.Equal(t, "point lumineux", result.UnitLabel)
		assert.Equal(t, float64(25), result.BaseUnits)
		assert.Equal(t, float64(100), result.EstimatedCost)
	})

	t.Run("comma decimal rate", func(t *testing.T) {
		result := calc.Subcontract(SubcontractInput{
			Category:  CategoryInsulation,
			SurfaceM2: 100,
			Rate:      "2,50",
		})
		assert.Equal(t, 2.5, result.Rate)
		assert.Equal(t, float64(250), result.EstimatedCost)
	})

	t.Run("missing rate estimates to zero", func(t *testing.T) {
		result := calc.Subcontract(SubcontractInput{
			Category:  CategoryInsulation,
			SurfaceM2: 100,
		})
		assert.Equal(t, float64(0), result.Rate)
		assert.Equal(t, float64(0), result.EstimatedCost)
	})

	t.Run("garbage rate estimates to zero", func(t *testing.T) {
		result := calc.Subcontract(SubcontractInput{
			Category:  CategoryInsulation,
			SurfaceM2: 100,
			Rate:      "sur devis",
		})
		assert.Equal(t, float64(0), result.EstimatedCost)
	})

	t.Run("non-positive units estimate to zero", func(t *testing.T) {
		result := calc.Subcontract(SubcontractInput{
			Category: CategoryInsulation,
			Rate:     10,
		})
		assert.Equal(t, float64(0), result.EstimatedCost)

		result = calc.Subcontract(SubcontractInput{
			Category:          CategoryLighting,
			BaseUnitsOverride: types.Float64Ptr(-5),
			Rate:              10,
		})
		assert.Equal(t, float64(0), result.EstimatedCost)
	})
}

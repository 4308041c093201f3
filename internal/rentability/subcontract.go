package rentability

import (
	"time"

	"github.com/primelio/cee-service/internal/numeric"
)

// Subcontract estimates what a subcontractor will invoice for a project.
// Unit label and base quantity follow the category unless overridden by
// the project; the rate tolerates localized string input. Missing or
// non-positive figures estimate to zero rather than failing.
func (c *Calculator) Subcontract(in SubcontractInput) SubcontractResult {
	startTime := time.Now()
	defer func() {
		c.metrics.RecordComputation("subcontract", time.Since(startTime))
	}()

	unitLabel := in.UnitLabelOverride
	if unitLabel == "" {
		unitLabel = in.Category.UnitLabel()
	}

	baseUnits := in.SurfaceM2
	if in.Category == CategoryLighting {
		baseUnits = in.NbLuminaires
	}
	if in.BaseUnitsOverride != nil {
		baseUnits = numeric.Sanitize(*in.BaseUnitsOverride, 0)
	}

	rate := numeric.Sanitize(in.Rate, 0)

	var estimatedCost float64
	if baseUnits > 0 && rate > 0 {
		estimatedCost = baseUnits * rate
	}

	return SubcontractResult{
		UnitLabel:     unitLabel,
		BaseUnits:     baseUnits,
		Rate:          rate,
		EstimatedCost: estimatedCost,
	}
}

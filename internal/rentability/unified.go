package rentability

import (
	"strings"
	"time"
)

// Unified computes the project-level rentability view shared by both
// measurement modes. The CEE prime is clamped at zero on the revenue side;
// a negative prime reflects a data problem upstream and must never reduce
// the CA. Non-subsidized works count only when enabled and the project
// type is a real one.
func (c *Calculator) Unified(in UnifiedInput) UnifiedResult {
	startTime := time.Now()
	defer func() {
		c.metrics.RecordComputation("unified", time.Since(startTime))
	}()

	prime := in.CeePrime
	if prime < 0 {
		prime = 0
	}

	ca := prime
	if in.TravauxEnabled && strings.TrimSpace(in.ProjectType) != "NA" {
		ca += in.TravauxNonSubventionnes
	}

	totalCosts := in.LaborCost + in.MaterialCost + in.Commission +
		in.AdditionalCostsTTC + in.SubcontractorCost

	margeTotale := ca - totalCosts

	// Margin rate is a ratio (0.5, not 50); percent formatting belongs to
	// the consumer.
	var margeRate float64
	if ca > 0 {
		margeRate = margeTotale / ca
	}

	var margePerUnit float64
	if in.Units > 0 {
		margePerUnit = margeTotale / in.Units
	}

	return UnifiedResult{
		CA:           ca,
		RawCeePrime:  in.CeePrime,
		TotalCosts:   totalCosts,
		MargeTotale:  margeTotale,
		MargeRate:    margeRate,
		MargePerUnit: margePerUnit,
	}
}

package rentability

import "time"

// Category computes one tax view of the per-category rentability. The HT
// and TTC views share every figure except the additional costs; keeping
// that the only difference is a storage contract with the CRM screens.
func (c *Calculator) Category(in CategoryInput, view TaxView) CategoryResult {
	startTime := time.Now()
	defer func() {
		c.metrics.RecordComputation("category", time.Since(startTime))
	}()

	frais := in.FraisAdditionnelsHT
	if view == ViewTTC {
		frais = in.FraisAdditionnelsTTC
	}

	var coutChantier, perUnitDivisor float64
	switch in.Category {
	case CategoryLighting:
		coutChantier = in.CoutTotalMo + in.CoutTotalMateriauxEclairage + in.CommissionHT + frais
		perUnitDivisor = in.NbLuminaires
	default:
		// Insulation is the historical default for unknown rows.
		coutChantier = in.SurfaceFactureeM2*in.MoHtPerM2 + in.MaterialTotalHT + in.CommissionHT + frais
		perUnitDivisor = in.SurfaceFactureeM2
	}

	margeTotale := in.CA - coutChantier

	var margeParUnite float64
	if perUnitDivisor > 0 {
		margeParUnite = margeTotale / perUnitDivisor
	}

	return CategoryResult{
		CA:                in.CA,
		CoutChantier:      coutChantier,
		MargeTotale:       margeTotale,
		MargeParUnite:     margeParUnite,
		FraisAdditionnels: frais,
	}
}

// BuildSnapshot assembles the persisted snapshot from the two tax views.
// The top-level TTC triplet repeats the TTC block verbatim.
func BuildSnapshot(cat Category, ht, ttc CategoryResult) *ProjectSnapshot {
	return &ProjectSnapshot{
		Category:        cat,
		HT:              toSnapshot(ht),
		TTC:             toSnapshot(ttc),
		CaTTC:           ttc.CA,
		CoutChantierTTC: ttc.CoutChantier,
		MargeTotaleTTC:  ttc.MargeTotale,
	}
}

func toSnapshot(r CategoryResult) CategorySnapshot {
	return CategorySnapshot{
		CA:                r.CA,
		CoutChantier:      r.CoutChantier,
		MargeTotale:       r.MargeTotale,
		MargeParUnite:     r.MargeParUnite,
		FraisAdditionnels: r.FraisAdditionnels,
	}
}

// Package compute drives the engines behind the public API: it resolves
// catalog references, valorises the project lines and derives the
// rentability views in one pass. The engines stay pure; everything the
// referential cannot resolve degrades to a warning instead of an error.
package compute

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/primelio/cee-service/internal/catalog"
	"github.com/primelio/cee-service/internal/rentability"
	"github.com/primelio/cee-service/internal/valorisation"
)

// Service runs project computations against the cached referential.
type Service struct {
	cache   *catalog.Cache
	valor   *valorisation.Calculator
	rent    *rentability.Calculator
	metrics *MetricsRecorder
	logger  zerolog.Logger
}

func NewService(cache *catalog.Cache) *Service {
	return &Service{
		cache:   cache,
		valor:   valorisation.NewCalculator(valorisation.DefaultConfig()),
		rent:    rentability.NewCalculator(),
		metrics: NewMetricsRecorder(),
		logger:  log.With().Str("component", "compute").Logger(),
	}
}

// Compute runs the full pipeline: valorisation, the project-level
// rentability view, both per-category tax views and the persistable
// snapshot. Only an unknown category is an error; missing referential or
// form data lands in the warnings.
func (s *Service) Compute(req *Request) (*Response, error) {
	start := time.Now()

	category, ok := rentability.ParseCategory(req.Category)
	if !ok {
		s.metrics.RecordRequest("rejected", time.Since(start))
		return nil, fmt.Errorf("unknown category %q", req.Category)
	}

	vctx, lines, totals, warnings := s.valorise(req)

	mode := measurementMode(req.Figures.MeasurementMode, category)
	units := req.Figures.SurfaceFactureeM2
	if mode == rentability.ModeLuminaire {
		units = req.Figures.NbLuminaires
	}

	// A computed valorisation wins over the form's manually entered prime.
	prime := totals.TotalPrimeEur
	if !totals.HasComputedTotals {
		prime = req.Figures.CeePrimeFallback
	}

	unified := s.rent.Unified(rentability.UnifiedInput{
		MeasurementMode:         mode,
		CeePrime:                prime,
		TravauxNonSubventionnes: req.Figures.TravauxNonSubventionnes,
		TravauxEnabled:          req.Figures.TravauxEnabled,
		ProjectType:             req.Figures.ProjectType,
		LaborCost:               req.Figures.LaborCost,
		MaterialCost:            req.Figures.MaterialCost,
		Commission:              req.Figures.Commission,
		AdditionalCostsTTC:      req.Figures.AdditionalCostsTTC,
		SubcontractorCost:       req.Figures.SubcontractorCost,
		Units:                   units,
	})

	categoryInput := rentability.CategoryInput{
		Category:                    category,
		CA:                          unified.CA,
		SurfaceFactureeM2:           req.Figures.SurfaceFactureeM2,
		MoHtPerM2:                   req.Figures.MoHtPerM2,
		MaterialTotalHT:             req.Figures.MaterialTotalHT,
		NbLuminaires:                req.Figures.NbLuminaires,
		CoutTotalMo:                 req.Figures.CoutTotalMo,
		CoutTotalMateriauxEclairage: req.Figures.CoutTotalMateriauxEclairage,
		CommissionHT:                req.Figures.Commission,
		FraisAdditionnelsHT:         req.Figures.AdditionalCostsHT,
		FraisAdditionnelsTTC:        req.Figures.AdditionalCostsTTC,
	}
	ht := s.rent.Category(categoryInput, rentability.ViewHT)
	ttc := s.rent.Category(categoryInput, rentability.ViewTTC)

	resp := &Response{
		ProjectID:              req.ProjectID,
		Category:               category,
		Lines:                  lines,
		Totals:                 *totals,
		Unified:                unified,
		Snapshot:               rentability.BuildSnapshot(category, ht, ttc),
		DelegatePriceEurPerMwh: vctx.DelegatePriceEurPerMwh,
		Warnings:               warnings,
		ComputedAt:             time.Now(),
	}

	if req.Figures.SubcontractRate != nil {
		sub := s.rent.Subcontract(rentability.SubcontractInput{
			Category:          category,
			UnitLabelOverride: req.Figures.SubcontractUnitLabel,
			BaseUnitsOverride: req.Figures.SubcontractBaseUnits,
			SurfaceM2:         req.Figures.SurfaceFactureeM2,
			NbLuminaires:      req.Figures.NbLuminaires,
			Rate:              req.Figures.SubcontractRate,
		})
		resp.Subcontract = &sub
	}

	s.metrics.RecordRequest("computed", time.Since(start))
	s.logger.Debug().
		Str("project_id", req.ProjectID).
		Str("category", string(category)).
		Int("lines", len(req.Lines)).
		Int("skipped", totals.SkippedLines).
		Float64("prime_eur", totals.TotalPrimeEur).
		Msg("Project computed")

	return resp, nil
}

// Valorise values the request lines without the rentability derivations.
func (s *Service) Valorise(req *Request) *ValorisationResponse {
	vctx, lines, totals, warnings := s.valorise(req)
	return &ValorisationResponse{
		Lines:                  lines,
		Totals:                 *totals,
		DelegatePriceEurPerMwh: vctx.DelegatePriceEurPerMwh,
		Warnings:               warnings,
	}
}

func (s *Service) valorise(req *Request) (*valorisation.Context, []LineResult, *valorisation.ProjectTotals, []string) {
	var warnings []string

	price := 0.0
	switch {
	case req.Context.DelegatePriceEurPerMwh != nil && *req.Context.DelegatePriceEurPerMwh > 0:
		price = *req.Context.DelegatePriceEurPerMwh
	case req.Context.DelegateName != "":
		if delegate, ok := s.cache.Delegate(req.Context.DelegateName); ok {
			price = delegate.PriceEurPerMwh
		} else {
			warnings = append(warnings,
				fmt.Sprintf("unknown delegate %q, prime computed at 0 €/MWh", req.Context.DelegateName))
		}
	default:
		warnings = append(warnings, "no delegate price, prime computed at 0 €/MWh")
	}

	vctx := &valorisation.Context{
		BuildingType:           req.Context.BuildingType,
		DelegatePriceEurPerMwh: price,
		Coefficient:            req.Context.Coefficient,
	}

	lines := make([]LineResult, 0, len(req.Lines))
	results := make([]*valorisation.Result, 0, len(req.Lines))
	for _, line := range req.Lines {
		product, ok := s.cache.Product(line.Code)
		if !ok {
			lines = append(lines, LineResult{Code: line.Code, Warnings: []string{"unknown operation code"}})
			results = append(results, nil)
			continue
		}

		result, lineWarnings := s.valor.Line(&valorisation.ProductInput{
			Product:       product,
			DynamicParams: line.DynamicParams,
		}, vctx)
		lines = append(lines, LineResult{Code: line.Code, Result: result, Warnings: warningStrings(lineWarnings)})
		results = append(results, result)
	}

	return vctx, lines, s.valor.Aggregate(results), warnings
}

func warningStrings(w valorisation.Warnings) []string {
	if !w.Any() {
		return nil
	}
	var out []string
	if w.MissingDynamicParams {
		out = append(out, "missing dynamic params")
	}
	if w.MissingKwh {
		out = append(out, "no kWh cumac for the building type")
	}
	return out
}

func measurementMode(raw string, category rentability.Category) rentability.MeasurementMode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "luminaire":
		return rentability.ModeLuminaire
	case "surface":
		return rentability.ModeSurface
	}
	if category == rentability.CategoryLighting {
		return rentability.ModeLuminaire
	}
	return rentability.ModeSurface
}

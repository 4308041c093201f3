package valorisation

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/primelio/cee-service/internal/numeric"
)

// Calculator converts kWh cumac savings into euro premiums. It is a pure
// computation over its inputs; referential data and delegate prices are
// resolved by the caller.
type Calculator struct {
	config  *Config
	metrics *MetricsRecorder
	logger  zerolog.Logger
}

// NewCalculator creates a valorisation calculator.
func NewCalculator(config *Config) *Calculator {
	return &Calculator{
		config:  config,
		metrics: NewMetricsRecorder(),
		logger:  log.With().Str("component", "valorisation").Logger(),
	}
}

// Line valorises a single product line. Missing referential or form data
// yields a nil result with the corresponding warning flag set. A quantity
// that does not resolve to a positive number counts as missing: zero,
// negative and malformed values all flag the line instead of contributing
// a silent zero. Line never returns an error.
func (c *Calculator) Line(in *ProductInput, vctx *Context) (*Result, Warnings) {
	startTime := time.Now()
	defer func() {
		c.metrics.RecordLineDuration(time.Since(startTime))
	}()

	if in == nil || in.Product == nil {
		c.metrics.RecordLineSkipped("missing_kwh")
		return nil, Warnings{MissingKwh: true}
	}
	product := in.Product

	rawMultiplier, ok := resolveMultiplier(product, in.DynamicParams)
	if !ok {
		c.logger.Debug().
			Str("code", product.Code).
			Str("multiplierKey", product.MultiplierKey).
			Msg("multiplier field absent from dynamic params")
		c.metrics.RecordMissingParams(product.Code)
		c.metrics.RecordLineSkipped("missing_params")
		return nil, Warnings{MissingDynamicParams: true}
	}

	multiplierCoef := c.config.DefaultCoefficient
	if product.MultiplierCoefficient != nil {
		multiplierCoef = numeric.Sanitize(*product.MultiplierCoefficient, c.config.DefaultCoefficient)
	}

	multiplier := numeric.Sanitize(rawMultiplier, 0) * multiplierCoef
	if multiplier <= 0 {
		c.logger.Debug().
			Str("code", product.Code).
			Str("multiplierKey", product.MultiplierKey).
			Msg("quantity did not resolve to a positive number")
		c.metrics.RecordMissingParams(product.Code)
		c.metrics.RecordLineSkipped("missing_params")
		return nil, Warnings{MissingDynamicParams: true}
	}

	kwhCumac, ok := lookupFolded(product.KwhCumac, vctx.BuildingType)
	if !ok || kwhCumac <= 0 {
		c.logger.Debug().
			Str("code", product.Code).
			Str("buildingType", vctx.BuildingType).
			Msg("no positive kWh cumac entry for building type")
		c.metrics.RecordMissingKwh(product.Code)
		c.metrics.RecordLineSkipped("missing_kwh")
		return nil, Warnings{MissingKwh: true}
	}

	bonification := c.config.DefaultBonification
	if product.Bonification != nil {
		bonification = numeric.Sanitize(*product.Bonification, c.config.DefaultBonification)
	}
	coefficient := c.config.DefaultCoefficient
	if vctx.Coefficient != nil {
		coefficient = numeric.Sanitize(*vctx.Coefficient, c.config.DefaultCoefficient)
	}

	// kWh cumac -> MWh cumac, bonified. The division by 1000 is the
	// kWh->MWh unit change.
	perUnitMwh := kwhCumac * bonification * coefficient / 1000
	delegatePrice := vctx.DelegatePriceEurPerMwh

	result := &Result{
		Code:            product.Code,
		KwhCumac:        kwhCumac,
		Multiplier:      multiplier,
		Bonification:    bonification,
		Coefficient:     coefficient,
		PerUnitMwhCumac: perUnitMwh,
		TotalMwhCumac:   perUnitMwh * multiplier,
		PerUnitEur:      perUnitMwh * delegatePrice,
		TotalEur:        perUnitMwh * multiplier * delegatePrice,
	}
	result.PrimeEur = result.TotalEur

	c.metrics.RecordLineComputed()
	return result, Warnings{}
}

// resolveMultiplier extracts the raw quantity for a product from the line's
// dynamic params. The configured field key wins; the display label is the
// legacy fallback for lines created before keys were stored.
func resolveMultiplier(product *CatalogProduct, params map[string]any) (any, bool) {
	if len(params) == 0 {
		return nil, false
	}
	if product.MultiplierKey != "" {
		if v, ok := paramFolded(params, product.MultiplierKey); ok {
			return v, true
		}
	}
	if product.MultiplierLabel != "" {
		if v, ok := paramFolded(params, product.MultiplierLabel); ok {
			return v, true
		}
	}
	return nil, false
}

// Aggregate sums line results into project totals. Nil results (lines that
// could not be valorised) contribute zero.
func (c *Calculator) Aggregate(results []*Result) *ProjectTotals {
	totals := &ProjectTotals{}
	for _, r := range results {
		if r == nil {
			totals.SkippedLines++
			continue
		}
		totals.TotalMwhCumac += r.TotalMwhCumac
		totals.TotalEur += r.TotalEur
		totals.TotalPrimeEur += r.PrimeEur
		totals.ComputedLines++
	}
	totals.HasComputedTotals = totals.ComputedLines > 0
	return totals
}

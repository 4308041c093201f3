package compute

import (
	"time"

	"github.com/primelio/cee-service/internal/rentability"
	"github.com/primelio/cee-service/internal/valorisation"
)

// Request is the compute document the CRM posts for a project. The same
// document is persisted alongside the snapshot so recompute tasks can
// replay it against the current referential.
type Request struct {
	ProjectID string       `json:"projectId,omitempty"`
	Category  string       `json:"category"`
	Context   ContextInput `json:"context"`
	Lines     []LineInput  `json:"lines"`
	Figures   Figures      `json:"figures"`
}

// ContextInput carries the project-level valorisation parameters. The
// delegate is referenced by name and priced from the referential; an
// explicit price wins when both are present.
type ContextInput struct {
	BuildingType           string   `json:"buildingType"`
	DelegateName           string   `json:"delegateName,omitempty"`
	DelegatePriceEurPerMwh *float64 `json:"delegatePriceEurPerMwh,omitempty"`
	Coefficient            *float64 `json:"coefficient,omitempty"`
}

// LineInput is one project line: an operation code plus the raw form
// fields it was entered with.
type LineInput struct {
	Code          string         `json:"code"`
	DynamicParams map[string]any `json:"dynamicParams"`
}

// Figures carries the CRM form figures feeding the rentability views.
type Figures struct {
	MeasurementMode string `json:"measurementMode,omitempty"` // luminaire | surface, defaults per category

	// Project-level view. CeePrimeFallback is the CRM's manually entered
	// prime; it feeds the CA only when no line could be valorised.
	CeePrimeFallback        float64 `json:"ceePrimeFallback,omitempty"`
	TravauxNonSubventionnes float64 `json:"travauxNonSubventionnes,omitempty"`
	TravauxEnabled          bool    `json:"travauxEnabled,omitempty"`
	ProjectType             string  `json:"projectType,omitempty"`
	LaborCost               float64 `json:"laborCost,omitempty"`
	MaterialCost            float64 `json:"materialCost,omitempty"`
	Commission              float64 `json:"commission,omitempty"`
	AdditionalCostsHT       float64 `json:"additionalCostsHt,omitempty"`
	AdditionalCostsTTC      float64 `json:"additionalCostsTtc,omitempty"`
	SubcontractorCost       float64 `json:"subcontractorCost,omitempty"`

	// Insulation cost drivers
	SurfaceFactureeM2 float64 `json:"surfaceFactureeM2,omitempty"`
	MoHtPerM2         float64 `json:"moHtPerM2,omitempty"`
	MaterialTotalHT   float64 `json:"materialTotalHt,omitempty"`

	// Lighting cost drivers
	NbLuminaires                float64 `json:"nbLuminaires,omitempty"`
	CoutTotalMo                 float64 `json:"coutTotalMo,omitempty"`
	CoutTotalMateriauxEclairage float64 `json:"coutTotalMateriauxEclairage,omitempty"`

	// Subcontract estimate, computed when a rate is present
	SubcontractRate      any      `json:"subcontractRate,omitempty"`
	SubcontractUnitLabel string   `json:"subcontractUnitLabel,omitempty"`
	SubcontractBaseUnits *float64 `json:"subcontractBaseUnits,omitempty"`
}

// LineResult pairs an input line with its valorisation. A line the engine
// could not value has a nil Result and the reasons in Warnings.
type LineResult struct {
	Code     string               `json:"code"`
	Result   *valorisation.Result `json:"result,omitempty"`
	Warnings []string             `json:"warnings,omitempty"`
}

// ValorisationResponse is the lines-only view.
type ValorisationResponse struct {
	Lines                  []LineResult               `json:"lines"`
	Totals                 valorisation.ProjectTotals `json:"totals"`
	DelegatePriceEurPerMwh float64                    `json:"delegatePriceEurPerMwh"`
	Warnings               []string                   `json:"warnings,omitempty"`
}

// Response is the full compute result: valorisation, the project-level
// rentability view and the snapshot ready to persist.
type Response struct {
	ProjectID              string                         `json:"projectId,omitempty"`
	Category               rentability.Category           `json:"category"`
	Lines                  []LineResult                   `json:"lines"`
	Totals                 valorisation.ProjectTotals     `json:"totals"`
	Unified                rentability.UnifiedResult      `json:"unified"`
	Snapshot               *rentability.ProjectSnapshot   `json:"snapshot"`
	Subcontract            *rentability.SubcontractResult `json:"subcontract,omitempty"`
	DelegatePriceEurPerMwh float64                        `json:"delegatePriceEurPerMwh"`
	Warnings               []string                       `json:"warnings,omitempty"`
	ComputedAt             time.Time                      `json:"computedAt"`
}

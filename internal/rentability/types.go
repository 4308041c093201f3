package rentability

import "strings"

// Category is the closed set of works categories the engine knows.
// Persisted values are the lowercase French names.
type Category string

const (
	CategoryInsulation Category = "isolation"
	CategoryLighting   Category = "eclairage"
)

// ParseCategory maps a persisted category string onto the closed set.
// Matching folds case, accents and surrounding whitespace ("Éclairage"
// parses). Unknown values return ok=false, never a third category.
func ParseCategory(s string) (Category, bool) {
	switch foldCategory(s) {
	case "isolation":
		return CategoryInsulation, true
	case "eclairage":
		return CategoryLighting, true
	default:
		return "", false
	}
}

func foldCategory(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	replacer := strings.NewReplacer("é", "e", "è", "e", "ê", "e", "ë", "e")
	return replacer.Replace(s)
}

// UnitLabel returns the default payment unit for the category.
func (c Category) UnitLabel() string {
	if c == CategoryLighting {
		return "LED"
	}
	return "m²"
}

// TaxView selects the tax-exclusive or tax-inclusive variant of a
// category computation.
type TaxView string

const (
	ViewHT  TaxView = "ht"
	ViewTTC TaxView = "ttc"
)

// MeasurementMode is how a project quantifies its works.
type MeasurementMode string

const (
	ModeLuminaire MeasurementMode = "luminaire"
	ModeSurface   MeasurementMode = "surface"
)

// UnifiedInput carries the figures for the project-level rentability view.
// All amounts are euros; malformed upstream values must be sanitized by the
// caller before they reach the engine.
type UnifiedInput struct {
	MeasurementMode         MeasurementMode
	CeePrime                float64 // may be negative upstream; clamped in CA
	TravauxNonSubventionnes float64 // non-subsidized works revenue
	TravauxEnabled          bool
	ProjectType             string // "NA" disables the travaux revenue
	LaborCost               float64
	MaterialCost            float64
	Commission              float64
	AdditionalCostsTTC      float64
	SubcontractorCost       float64
	Units                   float64 // luminaires or m², per MeasurementMode
}

// UnifiedResult is the project-level rentability view.
type UnifiedResult struct {
	CA           float64 // revenue: clamped prime + eligible travaux
	RawCeePrime  float64 // unclamped prime, kept for display
	TotalCosts   float64
	MargeTotale  float64
	MargeRate    float64 // margeTotale/ca ratio, 0 when CA is 0
	MargePerUnit float64 // 0 when Units is 0
}

// CategoryInput carries the figures for a per-category computation.
// The HT and TTC views share every field except the additional-costs
// figure, selected by the TaxView.
type CategoryInput struct {
	Category Category
	CA       float64

	// Insulation cost drivers
	SurfaceFactureeM2 float64
	MoHtPerM2         float64
	MaterialTotalHT   float64

	// Lighting cost drivers
	NbLuminaires                float64
	CoutTotalMo                 float64
	CoutTotalMateriauxEclairage float64

	// Shared cost drivers
	CommissionHT         float64
	FraisAdditionnelsHT  float64
	FraisAdditionnelsTTC float64
}

// CategoryResult is one tax view of a category computation.
type CategoryResult struct {
	CA                float64
	CoutChantier      float64
	MargeTotale       float64
	MargeParUnite     float64
	FraisAdditionnels float64 // the figure the view used
}

// CategorySnapshot is the persisted per-category figure block. Field names
// are a storage contract shared with the CRM and must not change.
type CategorySnapshot struct {
	CA                float64 `json:"ca"`
	CoutChantier      float64 `json:"cout_chantier"`
	MargeTotale       float64 `json:"marge_totale"`
	MargeParUnite     float64 `json:"marge_par_unite"`
	FraisAdditionnels float64 `json:"frais_additionnels"`
}

// ProjectSnapshot is the persisted rentability snapshot of a project.
// The top-level TTC triplet repeats the TTC block verbatim; legacy CRM
// screens read those three fields directly.
type ProjectSnapshot struct {
	Category        Category         `json:"category"`
	HT              CategorySnapshot `json:"ht"`
	TTC             CategorySnapshot `json:"ttc"`
	CaTTC           float64          `json:"ca_ttc"`
	CoutChantierTTC float64          `json:"cout_chantier_ttc"`
	MargeTotaleTTC  float64          `json:"marge_totale_ttc"`
}

// SubcontractInput carries the figures for a subcontractor payment estimate.
type SubcontractInput struct {
	Category          Category
	UnitLabelOverride string   // replaces the category default when set
	BaseUnitsOverride *float64 // replaces the category quantity when set
	SurfaceM2         float64
	NbLuminaires      float64
	Rate              any // EUR per unit, tolerates localized strings
}

// SubcontractResult is a subcontractor payment estimate.
type SubcontractResult struct {
	UnitLabel     string
	BaseUnits     float64
	Rate          float64
	EstimatedCost float64
}

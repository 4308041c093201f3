package valorisation

// CatalogProduct is a regulatory referential entry for one standardized
// operation (e.g. BAT-EQ-127). KwhCumac maps a building type to the kWh
// cumac value per multiplier unit. Nil pointer fields mean "not configured"
// and fall back to the engine defaults.
type CatalogProduct struct {
	Code                  string             // standardized operation code
	Label                 string             // human-readable operation name
	KwhCumac              map[string]float64 // building type -> kWh cumac per unit
	MultiplierKey         string             // dynamic form field holding the quantity
	MultiplierLabel       string             // display label used as lookup fallback
	MultiplierCoefficient *float64           // scales the raw quantity, nil -> 1
	Bonification          *float64           // CEE bonus factor, nil -> 2
}

// ProductInput is one project line submitted for valorisation.
// DynamicParams carries the raw form fields of the line; values arrive
// untyped from the CRM (floats, ints or localized strings).
type ProductInput struct {
	Product       *CatalogProduct
	DynamicParams map[string]any
}

// Context carries the project-level parameters shared by every line.
type Context struct {
	BuildingType           string
	DelegatePriceEurPerMwh float64
	Coefficient            *float64 // project-level factor, nil -> 1
}

// Warnings flags missing data that prevented a line from being valorised.
// A flagged line yields a nil Result, never an error.
type Warnings struct {
	MissingDynamicParams bool `json:"missingDynamicParams"`
	MissingKwh           bool `json:"missingKwh"`
}

// Any reports whether at least one warning is set.
func (w Warnings) Any() bool {
	return w.MissingDynamicParams || w.MissingKwh
}

// Result holds the valorisation of a single line, including the resolved
// intermediate values for traceability.
type Result struct {
	Code            string  // operation code of the valorised product
	KwhCumac        float64 // resolved for the context building type
	Multiplier      float64 // raw quantity x multiplier coefficient
	Bonification    float64
	Coefficient     float64
	PerUnitMwhCumac float64
	TotalMwhCumac   float64
	PerUnitEur      float64
	TotalEur        float64
	PrimeEur        float64
}

// ProjectTotals aggregates line results. Lines that could not be valorised
// contribute zero; HasComputedTotals is false when no line computed at all.
type ProjectTotals struct {
	TotalMwhCumac     float64
	TotalEur          float64
	TotalPrimeEur     float64
	ComputedLines     int
	SkippedLines      int
	HasComputedTotals bool
}

// Config contains the engine defaults applied when referential data leaves
// a factor unset.
type Config struct {
	DefaultBonification float64 // applied when a product has no bonification
	DefaultCoefficient  float64 // applied when the context has no coefficient
}

// DefaultConfig returns the regulatory defaults.
func DefaultConfig() *Config {
	return &Config{
		DefaultBonification: 2,
		DefaultCoefficient:  1,
	}
}

// Validate checks config invariants.
func (c *Config) Validate() error {
	if c.DefaultBonification <= 0 {
		return ErrInvalidConfig{Field: "DefaultBonification", Reason: "must be positive"}
	}
	if c.DefaultCoefficient <= 0 {
		return ErrInvalidConfig{Field: "DefaultCoefficient", Reason: "must be positive"}
	}
	return nil
}

// ErrInvalidConfig is returned when the engine configuration is invalid.
type ErrInvalidConfig struct {
	Field  string
	Reason string
}

func (e ErrInvalidConfig) Error() string {
	return e.Field + ": " + e.Reason
}

// Package numeric provides tolerant numeric parsing for CRM-originated
// values. Form fields arrive as floats, ints or strings with French or
// English decimal separators; none of that may ever crash a computation.
package numeric

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Sanitize converts an arbitrary value to a float64, returning fallback for
// anything that does not represent a finite number. It never returns an
// error and never panics.
func Sanitize(value any, fallback float64) float64 {
	switch v := value.(type) {
	case nil:
		return fallback
	case float64:
		return finiteOr(v, fallback)
	case float32:
		return finiteOr(float64(v), fallback)
	case int:
		return float64(v)
	case int8:
		return float64(v)
	case int16:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	case uint8:
		return float64(v)
	case uint16:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	case json.Number:
		return SanitizeString(string(v), fallback)
	case string:
		return SanitizeString(v, fallback)
	case *float64:
		if v == nil {
			return fallback
		}
		return finiteOr(*v, fallback)
	case *string:
		if v == nil {
			return fallback
		}
		return SanitizeString(*v, fallback)
	default:
		return fallback
	}
}

// SanitizeString parses a numeric string accepting both "." and "," as
// decimal separator. Returns fallback for empty or non-numeric input.
func SanitizeString(s string, fallback float64) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}

	f, err := strconv.ParseFloat(normalizeSeparators(s), 64)
	if err != nil {
		return fallback
	}
	return finiteOr(f, fallback)
}

// Parse parses a localized decimal string strictly. Unlike Sanitize it
// reports failure instead of falling back, for import paths that reject bad
// rows rather than zero them. Grouping spaces (including NBSP) are ignored,
// so "1 234,56" parses as 1234.56.
func Parse(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, errors.New("empty numeric value")
	}

	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', ' ', ' ':
			return -1
		}
		return r
	}, trimmed)

	f, err := strconv.ParseFloat(normalizeSeparators(cleaned), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric value %q", s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite numeric value %q", s)
	}
	return f, nil
}

// normalizeSeparators rewrites a localized numeric string into ParseFloat
// form. When both "." and "," appear, the last one is the decimal separator
// and the other is thousands grouping.
func normalizeSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}
	return s
}

// AllowedVATRates lists the VAT rates accepted by the engine, in percent.
// 8.5 is the Reunion/overseas reduced rate used as the historical default.
var AllowedVATRates = []float64{0, 5.5, 8.5, 10, 20}

// DefaultVATRate is applied when a VAT rate is missing or not whitelisted.
const DefaultVATRate = 8.5

// NormalizeVATRate sanitizes a VAT rate and clamps it to the whitelist.
// Anything unparseable or off-list collapses to DefaultVATRate.
func NormalizeVATRate(value any) float64 {
	r := Sanitize(value, -1)
	for _, allowed := range AllowedVATRates {
		if r == allowed {
			return r
		}
	}
	return DefaultVATRate
}

// TTC converts a tax-exclusive amount to tax-inclusive at the given VAT
// rate (percent). TTC(100, 10) == 110.
func TTC(amountHT, tvaRate float64) float64 {
	return amountHT * (1 + tvaRate/100)
}

func finiteOr(f, fallback float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fallback
	}
	return f
}

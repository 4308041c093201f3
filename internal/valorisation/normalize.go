package valorisation

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics strips French accents so "Activités" matches "Activites".
// Ligatures fold to their two-letter forms.
func RemoveDiacritics(s string) string {
	replacer := strings.NewReplacer(
		"œ", "oe", "Œ", "Oe",
		"æ", "ae", "Æ", "Ae",
	)
	s = replacer.Replace(s)

	// NFD normalization + strip combining marks
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// FoldKey normalizes a lookup key for tolerant matching: trimmed,
// lowercased, accent-stripped, inner whitespace collapsed.
// "Bâtiment Tertiaire " and "batiment tertiaire" fold to the same key.
func FoldKey(s string) string {
	s = RemoveDiacritics(strings.TrimSpace(s))
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}

// lookupFolded finds a map entry whose key folds to the same value as key.
// Exact match is tried first to skip the fold on the common path.
func lookupFolded(m map[string]float64, key string) (float64, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	want := FoldKey(key)
	for k, v := range m {
		if FoldKey(k) == want {
			return v, true
		}
	}
	return 0, false
}

// paramFolded finds a dynamic param whose key folds to the same value as key.
func paramFolded(params map[string]any, key string) (any, bool) {
	if v, ok := params[key]; ok {
		return v, true
	}
	want := FoldKey(key)
	if want == "" {
		return nil, false
	}
	for k, v := range params {
		if FoldKey(k) == want {
			return v, true
		}
	}
	return nil, false
}

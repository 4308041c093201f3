package valorisation

import (
	"testing"
)

func TestRemoveDiacritics(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Bâtiment", "Batiment"},
		{"Activités tertiaires", "Activites tertiaires"},
		{"Éclairage", "Eclairage"},
		{"Chaufferie n°2", "Chaufferie n°2"},
		{"Œuvre", "Oeuvre"},
		{"forçage", "forcage"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := RemoveDiacritics(tt.input)
			if result != tt.expected {
				t.Errorf("RemoveDiacritics(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFoldKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Lowercases", "Bureaux", "bureaux"},
		{"Trims", "  Commerces  ", "commerces"},
		{"Strips accents", "Bâtiment Tertiaire", "batiment tertiaire"},
		{"Collapses whitespace", "Nombre  de   luminaires", "nombre de luminaires"},
		{"Empty", "", ""},
		{"Only spaces", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FoldKey(tt.input)
			if result != tt.expected {
				t.Errorf("FoldKey(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestLookupFolded(t *testing.T) {
	m := map[string]float64{
		"Bâtiment tertiaire": 600,
		"Bureaux":            1000,
	}

	if v, ok := lookupFolded(m, "Bureaux"); !ok || v != 1000 {
		t.Errorf("exact lookup = (%v, %v), want (1000, true)", v, ok)
	}
	if v, ok := lookupFolded(m, "batiment  TERTIAIRE "); !ok || v != 600 {
		t.Errorf("folded lookup = (%v, %v), want (600, true)", v, ok)
	}
	if _, ok := lookupFolded(m, "Entrepôts"); ok {
		t.Error("unknown key should not match")
	}
	if _, ok := lookupFolded(nil, "Bureaux"); ok {
		t.Error("nil map should not match")
	}
}

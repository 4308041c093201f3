// Package tabular maps rows of a tabular referential export onto normalized
// referential rows. CSV and XLSX files share the same column layouts; only
// the container format differs, so the header resolution and row mapping
// live here once.
package tabular

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/primelio/cee-service/internal/numeric"
	"github.com/primelio/cee-service/internal/types"
	"github.com/primelio/cee-service/internal/valorisation"
)

// coefficientAliases lists the accepted header spellings per coefficient
// field, folded form. Exports vary between the CRM's French labels and the
// snake_case API names.
var coefficientAliases = map[string][]string{
	"operationCode":   {"code", "code operation", "operation", "code fost"},
	"label":           {"libelle", "libelle operation", "intitule", "label"},
	"buildingType":    {"type batiment", "batiment", "type de batiment", "secteur", "building type"},
	"kwhCumac":        {"kwh cumac", "kwhcumac", "kwh"},
	"multiplierKey":   {"cle multiplicateur", "champ multiplicateur", "multiplier key"},
	"multiplierLabel": {"libelle multiplicateur", "multiplier label"},
	"coefficient":     {"coefficient", "coef"},
	"bonification":    {"bonification", "bonus"},
}

// delegateAliases lists the accepted header spellings per delegate field.
var delegateAliases = map[string][]string{
	"name":   {"delegataire", "nom", "name", "oblige"},
	"price":  {"prix mwh", "prix eur mwh", "prix", "price eur per mwh", "prix mwh cumac"},
	"active": {"actif", "active"},
}

// FoldHeader normalizes a header cell for alias comparison. Underscores and
// dashes count as spaces, so "code_operation" and "Code opération" fold to
// the same key.
func FoldHeader(s string) string {
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	return valorisation.FoldKey(s)
}

// DetectKind decides which referential layout a header row belongs to.
// A kWh cumac column marks a coefficient table; a name and price pair marks
// a delegate price list.
func DetectKind(headers []string) types.ReferentialKind {
	folded := make(map[string]bool, len(headers))
	for _, h := range headers {
		folded[FoldHeader(h)] = true
	}

	if hasAny(folded, coefficientAliases["kwhCumac"]) {
		return types.KindCoefficients
	}
	if hasAny(folded, delegateAliases["price"]) && hasAny(folded, delegateAliases["name"]) {
		return types.KindDelegates
	}
	return types.KindUnknown
}

func hasAny(folded map[string]bool, names []string) bool {
	for _, name := range names {
		if folded[name] {
			return true
		}
	}
	return false
}

// resolveColumns maps field names to column indices. The leftmost matching
// column wins per field.
func resolveColumns(headers []string, aliases map[string][]string) map[string]int {
	indices := make(map[string]int, len(aliases))
	for i, h := range headers {
		f := FoldHeader(h)
		for field, names := range aliases {
			if _, done := indices[field]; done {
				continue
			}
			for _, name := range names {
				if f == name {
					indices[field] = i
					break
				}
			}
		}
	}
	return indices
}

// NumberedRow is one data row with its 1-based position in the source file.
// Carrying the number explicitly keeps error reports pointing at real file
// lines even when the reader skipped blank lines.
type NumberedRow struct {
	Number int
	Cells  []string
}

// MapRows maps raw data rows onto normalized referential rows, numbering
// them sequentially from firstRowNumber.
func MapRows(headers []string, rows [][]string, firstRowNumber int) *types.ParseResult {
	numbered := make([]NumberedRow, len(rows))
	for i, r := range rows {
		numbered[i] = NumberedRow{Number: firstRowNumber + i, Cells: r}
	}
	return MapNumberedRows(headers, numbered)
}

// MapNumberedRows maps explicitly numbered data rows onto normalized
// referential rows.
func MapNumberedRows(headers []string, rows []NumberedRow) *types.ParseResult {
	result := &types.ParseResult{
		Rows:     make([]types.CoefficientRow, 0, len(rows)),
		Errors:   make([]types.ParseError, 0),
		Warnings: make([]types.ParseWarning, 0),
	}

	result.Kind = DetectKind(headers)
	if result.Kind == types.KindUnknown {
		result.Errors = append(result.Errors, types.ParseError{
			Message: fmt.Sprintf("unrecognized referential layout, headers: %s", strings.Join(headers, ", ")),
		})
		return result
	}

	switch result.Kind {
	case types.KindCoefficients:
		mapCoefficientRows(result, headers, rows)
	case types.KindDelegates:
		mapDelegateRows(result, headers, rows)
	}
	return result
}

func mapCoefficientRows(result *types.ParseResult, headers []string, rows []NumberedRow) {
	indices := resolveColumns(headers, coefficientAliases)

	for _, row := range rows {
		rowNumber := row.Number
		raw := row.Cells
		if isEmptyRow(raw) {
			continue
		}
		result.TotalRows++

		code := cell(raw, indices, "operationCode")
		if code == "" {
			addRowError(result, rowNumber, "operationCode", "missing operation code", raw)
			continue
		}
		buildingType := cell(raw, indices, "buildingType")
		if buildingType == "" {
			addRowError(result, rowNumber, "buildingType", "missing building type", raw)
			continue
		}
		kwhStr := cell(raw, indices, "kwhCumac")
		kwh, err := numeric.Parse(kwhStr)
		if err != nil {
			addRowError(result, rowNumber, "kwhCumac", "invalid kWh cumac value", raw)
			continue
		}

		entry := types.CoefficientRow{
			OperationCode: strings.ToUpper(code),
			BuildingType:  buildingType,
			KwhCumac:      kwh,
			RowNumber:     rowNumber,
			RawData:       marshalRaw(raw),
		}
		if v := cell(raw, indices, "label"); v != "" {
			entry.Label = types.StringPtr(v)
		}
		if v := cell(raw, indices, "multiplierKey"); v != "" {
			entry.MultiplierKey = types.StringPtr(v)
		}
		if v := cell(raw, indices, "multiplierLabel"); v != "" {
			entry.MultiplierLabel = types.StringPtr(v)
		}
		entry.MultiplierCoefficient = optionalNumber(result, raw, indices, "coefficient", rowNumber)
		entry.Bonification = optionalNumber(result, raw, indices, "bonification", rowNumber)

		result.Rows = append(result.Rows, entry)
	}
	result.ValidRows = len(result.Rows)
}

func mapDelegateRows(result *types.ParseResult, headers []string, rows []NumberedRow) {
	indices := resolveColumns(headers, delegateAliases)

	for _, row := range rows {
		rowNumber := row.Number
		raw := row.Cells
		if isEmptyRow(raw) {
			continue
		}
		result.TotalRows++

		name := cell(raw, indices, "name")
		if name == "" {
			addRowError(result, rowNumber, "name", "missing delegate name", raw)
			continue
		}
		priceStr := cell(raw, indices, "price")
		price, err := numeric.Parse(priceStr)
		if err != nil {
			addRowError(result, rowNumber, "price", "invalid delegate price", raw)
			continue
		}

		result.Delegates = append(result.Delegates, types.DelegateRow{
			Name:           name,
			PriceEurPerMwh: price,
			Active:         parseActive(result, cell(raw, indices, "active"), rowNumber),
			RowNumber:      rowNumber,
			RawData:        marshalRaw(raw),
		})
	}
	result.ValidRows = len(result.Delegates)
}

// parseActive interprets the optional active flag. Missing means active.
func parseActive(result *types.ParseResult, s string, rowNumber int) bool {
	if s == "" {
		return true
	}
	switch valorisation.FoldKey(s) {
	case "1", "true", "oui", "vrai", "actif", "x":
		return true
	case "0", "false", "non", "faux", "inactif":
		return false
	default:
		result.Warnings = append(result.Warnings, types.ParseWarning{
			RowNumber: types.IntPtr(rowNumber),
			Field:     types.StringPtr("active"),
			Message:   fmt.Sprintf("unrecognized active flag %q, treating as active", s),
		})
		return true
	}
}

// optionalNumber parses an optional numeric cell. Invalid values degrade to
// a warning and nil rather than rejecting the row.
func optionalNumber(result *types.ParseResult, raw []string, indices map[string]int, field string, rowNumber int) *float64 {
	s := cell(raw, indices, field)
	if s == "" {
		return nil
	}
	f, err := numeric.Parse(s)
	if err != nil {
		result.Warnings = append(result.Warnings, types.ParseWarning{
			RowNumber: types.IntPtr(rowNumber),
			Field:     types.StringPtr(field),
			Message:   fmt.Sprintf("invalid numeric value %q, ignoring", s),
		})
		return nil
	}
	return &f
}

func cell(raw []string, indices map[string]int, field string) string {
	idx, ok := indices[field]
	if !ok || idx < 0 || idx >= len(raw) {
		return ""
	}
	return strings.TrimSpace(raw[idx])
}

func addRowError(result *types.ParseResult, rowNumber int, field, message string, raw []string) {
	result.Errors = append(result.Errors, types.ParseError{
		RowNumber:     types.IntPtr(rowNumber),
		Field:         types.StringPtr(field),
		Message:       message,
		OriginalValue: types.StringPtr(marshalRaw(raw)),
	})
}

func isEmptyRow(raw []string) bool {
	for _, c := range raw {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func marshalRaw(raw []string) string {
	b, _ := json.Marshal(raw)
	return string(b)
}

package importer

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/primelio/cee-service/internal/database"
	"github.com/primelio/cee-service/internal/types"
	"github.com/primelio/cee-service/internal/valorisation"
)

// knownBuildingTypes maps folded building-type spellings to the canonical
// label stored in the referential. Exports disagree on accents and
// separators, so matching folds both.
var knownBuildingTypes = map[string]string{
	"bureaux":                 "Bureaux",
	"commerces":               "Commerces",
	"enseignement":            "Enseignement",
	"hotellerie restauration": "Hôtellerie - Restauration",
	"sante":                   "Santé",
	"autres secteurs":         "Autres secteurs",
	"batiment tertiaire":      "Bâtiment tertiaire",
	"maison individuelle":     "Maison individuelle",
	"appartement":             "Appartement",
}

var buildingTypeSeparators = strings.NewReplacer("-", " ", "/", " ")

func foldBuildingType(s string) string {
	return valorisation.FoldKey(buildingTypeSeparators.Replace(s))
}

// canonicalBuildingType returns the canonical label for a known building
// type. Unknown types come back trimmed with ok=false; they are kept so a
// new sector in the referential does not silently lose rows.
func canonicalBuildingType(raw string) (string, bool) {
	if canonical, ok := knownBuildingTypes[foldBuildingType(raw)]; ok {
		return canonical, true
	}
	return strings.Join(strings.Fields(raw), " "), false
}

// operationCodePattern matches CEE operation codes such as BAT-EQ-127 or
// AGRI-TH-104: sector, domain, fiche number.
var operationCodePattern = regexp.MustCompile(`^[A-Z]{2,5}-[A-Z]{2}-[0-9]{2,4}$`)

func validationIssue(severity types.ErrorSeverity, rowNumber int, field, message, original string) database.ImportRunError {
	issue := database.ImportRunError{
		ErrorType: string(types.ErrorTypeValidation),
		Severity:  string(severity),
		Message:   message,
	}
	if rowNumber > 0 {
		issue.RowNumber = types.IntPtr(rowNumber)
	}
	if field != "" {
		issue.Field = types.StringPtr(field)
	}
	if original != "" {
		issue.OriginalValue = types.StringPtr(original)
	}
	return issue
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// validateCoefficientRows applies the semantic checks the parser cannot:
// operation code shape, strictly positive kWh cumac, recognized building
// types. Rows failing a hard check are dropped; building types are
// rewritten to their canonical label when known.
func validateCoefficientRows(rows []types.CoefficientRow) ([]types.CoefficientRow, []database.ImportRunError) {
	valid := make([]types.CoefficientRow, 0, len(rows))
	var issues []database.ImportRunError

	for _, row := range rows {
		if !operationCodePattern.MatchString(row.OperationCode) {
			issues = append(issues, validationIssue(types.SeverityError, row.RowNumber, "operationCode",
				fmt.Sprintf("%q is not a CEE operation code", row.OperationCode), row.OperationCode))
			continue
		}
		if row.KwhCumac <= 0 {
			issues = append(issues, validationIssue(types.SeverityError, row.RowNumber, "kwhCumac",
				"kWh cumac must be strictly positive", formatFloat(row.KwhCumac)))
			continue
		}

		canonical, known := canonicalBuildingType(row.BuildingType)
		if !known {
			issues = append(issues, validationIssue(types.SeverityWarning, row.RowNumber, "buildingType",
				fmt.Sprintf("unknown building type %q, kept as is", canonical), row.BuildingType))
		}
		row.BuildingType = canonical

		if row.MultiplierCoefficient != nil && *row.MultiplierCoefficient <= 0 {
			issues = append(issues, validationIssue(types.SeverityWarning, row.RowNumber, "coefficient",
				"coefficient must be strictly positive, falling back to the default", formatFloat(*row.MultiplierCoefficient)))
			row.MultiplierCoefficient = nil
		}
		if row.Bonification != nil && *row.Bonification <= 0 {
			issues = append(issues, validationIssue(types.SeverityWarning, row.RowNumber, "bonification",
				"bonification must be strictly positive, falling back to the default", formatFloat(*row.Bonification)))
			row.Bonification = nil
		}

		valid = append(valid, row)
	}

	return valid, issues
}

// validateDelegateRows drops delegate rows without a usable price.
func validateDelegateRows(rows []types.DelegateRow) ([]types.DelegateRow, []database.ImportRunError) {
	valid := make([]types.DelegateRow, 0, len(rows))
	var issues []database.ImportRunError

	for _, row := range rows {
		row.Name = strings.Join(strings.Fields(row.Name), " ")
		if row.Name == "" {
			issues = append(issues, validationIssue(types.SeverityError, row.RowNumber, "name",
				"delegate name is empty", ""))
			continue
		}
		if row.PriceEurPerMwh <= 0 {
			issues = append(issues, validationIssue(types.SeverityError, row.RowNumber, "priceEurPerMwh",
				"delegate price must be strictly positive", formatFloat(row.PriceEurPerMwh)))
			continue
		}
		valid = append(valid, row)
	}

	return valid, issues
}

type productBuilder struct {
	product   *database.CatalogProduct
	keyByFold map[string]string
}

// groupProducts folds validated coefficient rows into one catalog product
// per operation code. The kWh table keys on building type; duplicate
// entries keep the last value. Multiplier configuration keeps the first
// value seen for the code.
func groupProducts(rows []types.CoefficientRow) ([]database.CatalogProduct, []database.ImportRunError) {
	builders := make(map[string]*productBuilder)
	var issues []database.ImportRunError

	for _, row := range rows {
		builder, ok := builders[row.OperationCode]
		if !ok {
			builder = &productBuilder{
				product: &database.CatalogProduct{
					Code:     row.OperationCode,
					KwhCumac: make(map[string]float64),
					Active:   true,
				},
				keyByFold: make(map[string]string),
			}
			builders[row.OperationCode] = builder
		}
		product := builder.product

		if product.Label == "" && row.Label != nil {
			product.Label = strings.TrimSpace(*row.Label)
		}
		if product.MultiplierKey == "" && row.MultiplierKey != nil {
			product.MultiplierKey = strings.TrimSpace(*row.MultiplierKey)
		}
		if product.MultiplierLabel == "" && row.MultiplierLabel != nil {
			product.MultiplierLabel = strings.TrimSpace(*row.MultiplierLabel)
		}
		if row.MultiplierCoefficient != nil {
			if product.MultiplierCoefficient == nil {
				product.MultiplierCoefficient = row.MultiplierCoefficient
			} else if *product.MultiplierCoefficient != *row.MultiplierCoefficient {
				issues = append(issues, validationIssue(types.SeverityWarning, row.RowNumber, "coefficient",
					fmt.Sprintf("conflicting coefficient for %s, keeping %s", row.OperationCode,
						formatFloat(*product.MultiplierCoefficient)), formatFloat(*row.MultiplierCoefficient)))
			}
		}
		if row.Bonification != nil {
			if product.Bonification == nil {
				product.Bonification = row.Bonification
			} else if *product.Bonification != *row.Bonification {
				issues = append(issues, validationIssue(types.SeverityWarning, row.RowNumber, "bonification",
					fmt.Sprintf("conflicting bonification for %s, keeping %s", row.OperationCode,
						formatFloat(*product.Bonification)), formatFloat(*row.Bonification)))
			}
		}

		fold := foldBuildingType(row.BuildingType)
		if previous, dup := builder.keyByFold[fold]; dup {
			issues = append(issues, validationIssue(types.SeverityWarning, row.RowNumber, "buildingType",
				fmt.Sprintf("duplicate entry for %s / %s, keeping the last value", row.OperationCode, row.BuildingType), ""))
			if previous != row.BuildingType {
				delete(product.KwhCumac, previous)
			}
		}
		builder.keyByFold[fold] = row.BuildingType
		product.KwhCumac[row.BuildingType] = row.KwhCumac
	}

	products := make([]database.CatalogProduct, 0, len(builders))
	for _, builder := range builders {
		products = append(products, *builder.product)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Code < products[j].Code })

	return products, issues
}

// groupDelegates dedupes validated delegate rows by folded name, last
// value wins, mirroring the upsert the persist phase runs.
func groupDelegates(rows []types.DelegateRow) ([]database.Delegate, []database.ImportRunError) {
	byFold := make(map[string]database.Delegate)
	nameByFold := make(map[string]string)
	var issues []database.ImportRunError

	for _, row := range rows {
		fold := valorisation.FoldKey(row.Name)
		if previous, dup := nameByFold[fold]; dup {
			issues = append(issues, validationIssue(types.SeverityWarning, row.RowNumber, "name",
				fmt.Sprintf("duplicate delegate %s, keeping the last price", previous), ""))
		}
		nameByFold[fold] = row.Name
		byFold[fold] = database.Delegate{
			Name:           row.Name,
			PriceEurPerMwh: row.PriceEurPerMwh,
			Active:         row.Active,
		}
	}

	delegates := make([]database.Delegate, 0, len(byFold))
	for _, delegate := range byFold {
		delegates = append(delegates, delegate)
	}
	sort.Slice(delegates, func(i, j int) bool { return delegates[i].Name < delegates[j].Name })

	return delegates, issues
}

// Package xlsx parses XLSX referential workbooks with excelize in front of
// the shared tabular row mapping.
package xlsx

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/primelio/cee-service/internal/parsers/tabular"
	"github.com/primelio/cee-service/internal/types"
)

// Parser is an XLSX referential parser.
type Parser struct {
	options Options
}

// NewParser creates an XLSX parser with the given options.
func NewParser(options Options) *Parser {
	if options.HasHeader && options.HeaderRowCount == 0 {
		options.HeaderRowCount = 1
	}
	return &Parser{options: options}
}

// Parse parses XLSX content into normalized referential rows. Container
// problems (corrupt workbook, missing sheet) fail hard; row problems are
// recorded in the result.
func (p *Parser) Parse(content []byte) (*types.ParseResult, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheetName, err := p.selectSheet(f)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read worksheet %q: %w", sheetName, err)
	}
	if len(rows) == 0 {
		return &types.ParseResult{Kind: types.KindUnknown}, nil
	}

	var headers []string
	dataStart := 0
	if p.options.HasHeader {
		headerIdx := p.options.HeaderRowCount - 1
		if headerIdx >= len(rows) {
			return &types.ParseResult{Kind: types.KindUnknown}, nil
		}
		headers = rows[headerIdx]
		dataStart = p.options.HeaderRowCount
	}

	// GetRows pads gaps, so sheet row numbers are positional
	result := tabular.MapRows(headers, rows[dataStart:], dataStart+1)

	log.Debug().
		Str("component", "xlsx_parser").
		Str("sheet", sheetName).
		Str("kind", string(result.Kind)).
		Int("total_rows", result.TotalRows).
		Int("valid_rows", result.ValidRows).
		Int("errors", len(result.Errors)).
		Msg("Parsed XLSX referential")

	return result, nil
}

// selectSheet selects the worksheet to parse.
func (p *Parser) selectSheet(f *excelize.File) (string, error) {
	sheetList := f.GetSheetList()
	if len(sheetList) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}

	if p.options.SheetNameOrIndex == nil {
		return sheetList[0], nil
	}

	switch v := p.options.SheetNameOrIndex.(type) {
	case int:
		if v < 0 || v >= len(sheetList) {
			return "", fmt.Errorf("sheet index %d not found, workbook has %d sheets", v, len(sheetList))
		}
		return sheetList[v], nil
	case string:
		for _, name := range sheetList {
			if name == v {
				return name, nil
			}
		}
		return "", fmt.Errorf("sheet %q not found, available sheets: %s", v, strings.Join(sheetList, ", "))
	default:
		return sheetList[0], nil
	}
}

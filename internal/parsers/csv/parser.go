// Package csv parses CSV referential exports: delimiter sniffing, charset
// decoding and quoted-field handling in front of the shared tabular row
// mapping.
package csv

import (
	stdcsv "encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/primelio/cee-service/internal/parsers/charset"
	"github.com/primelio/cee-service/internal/parsers/tabular"
	"github.com/primelio/cee-service/internal/types"
)

// Parser implements CSV parsing with encoding and delimiter detection.
type Parser struct {
	options Options
}

// NewParser creates a CSV parser with the given options.
func NewParser(options Options) *Parser {
	return &Parser{options: options}
}

// Parse parses CSV content into normalized referential rows.
func (p *Parser) Parse(content []byte) (*types.ParseResult, error) {
	opts := p.options

	if opts.Encoding == "" {
		opts.Encoding = charset.DetectEncoding(content)
	}
	decoded, err := charset.Decode(content, opts.Encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to decode content: %w", err)
	}

	if opts.Delimiter == "" {
		opts.Delimiter = DetectDelimiter(decoded)
	}

	reader := stdcsv.NewReader(strings.NewReader(decoded))
	reader.Comma = rune(opts.Delimiter[0])
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	// Read record by record to keep real file line numbers; ReadAll drops
	// blank lines and would shift the numbering.
	var rows []tabular.NumberedRow
	for {
		record, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("failed to parse CSV: %w", readErr)
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, tabular.NumberedRow{Number: line, Cells: record})
	}

	if len(rows) == 0 {
		return &types.ParseResult{Kind: types.KindUnknown}, nil
	}

	var headers []string
	if opts.HasHeader {
		headers = rows[0].Cells
		rows = rows[1:]
	}

	result := tabular.MapNumberedRows(headers, rows)

	log.Debug().
		Str("component", "csv_parser").
		Str("delimiter", string(opts.Delimiter)).
		Str("encoding", string(opts.Encoding)).
		Str("kind", string(result.Kind)).
		Int("total_rows", result.TotalRows).
		Int("valid_rows", result.ValidRows).
		Int("errors", len(result.Errors)).
		Msg("Parsed CSV referential")

	return result, nil
}

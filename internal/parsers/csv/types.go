package csv

import "github.com/primelio/cee-service/internal/parsers/charset"

// Delimiter represents supported CSV delimiters.
type Delimiter string

const (
	DelimiterComma     Delimiter = ","
	DelimiterSemicolon Delimiter = ";"
	DelimiterTab       Delimiter = "\t"
)

// Options represents CSV parser options. Zero-value Delimiter and Encoding
// mean auto-detect. Empty rows are always skipped.
type Options struct {
	Delimiter Delimiter        `json:"delimiter,omitempty"`
	Encoding  charset.Encoding `json:"encoding,omitempty"`
	HasHeader bool             `json:"hasHeader"`
}

// DefaultOptions returns the default CSV parser options: header row present,
// delimiter and encoding detected from content.
func DefaultOptions() Options {
	return Options{HasHeader: true}
}

package xlsx

// Options represents XLSX parser options.
type Options struct {
	// SheetNameOrIndex selects the worksheet: a string name, an int index,
	// or nil for the first sheet.
	SheetNameOrIndex any `json:"sheetNameOrIndex,omitempty"`

	HasHeader bool `json:"hasHeader"`

	// HeaderRowCount is the number of leading rows before data when
	// HasHeader is true. The last of them is the header row.
	HeaderRowCount int `json:"headerRowCount,omitempty"`
}

// DefaultOptions returns the default XLSX parser options: first sheet, one
// header row.
func DefaultOptions() Options {
	return Options{
		HasHeader:      true,
		HeaderRowCount: 1,
	}
}

// Package bulk implements the CSV and XLSX transfer paths: column-mapped
// import with per-row error capture, and fixed-order export.
package bulk

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyFile means the upload contained no header row at all.
var ErrEmptyFile = errors.New("file is empty")

// ErrNothingToExport means the filtered record set was empty, so no file
// is generated.
var ErrNothingToExport = errors.New("nothing to export")

// HeaderError reports which required columns the upload is missing.
type HeaderError struct {
	Missing []string
}

func (e *HeaderError) Error() string {
	return "missing required headers: " + strings.Join(e.Missing, ", ")
}

// TooManyRowsError rejects a file over the configured row cap before any
// row is imported.
type TooManyRowsError struct {
	Limit int
}

func (e *TooManyRowsError) Error() string {
	return fmt.Sprintf("file exceeds the maximum of %d data rows", e.Limit)
}

// RowError is one failed data row. Row numbers are 1-based counting the
// header, so the first data row is row 2, matching a spreadsheet's view.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportSummary is the outcome of one import run.
type ImportSummary struct {
	Imported int        `json:"imported"`
	Errors   []RowError `json:"errors"`
}

// RequiredHeaders are the columns an import file must carry. The
// remaining export columns are optional on import.
var RequiredHeaders = []string{
	"Make",
	"Model",
	"Serial Number",
	"Property Number",
	"Use Case",
	"Location",
}

// ExportHeaders is the fixed export column order.
var ExportHeaders = []string{
	"Make",
	"Model",
	"Serial Number",
	"Property Number",
	"Warranty End Date",
	"Excess Date",
	"Use Case",
	"Location",
	"On Site",
	"Description",
	"Assigned To",
	"Purchase Date",
	"Purchase Cost",
	"Vendor",
	"Status",
	"Created Date",
}

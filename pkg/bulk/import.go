package bulk

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v3"

	"asset-inventory-api/internal/models"
)

// ItemWriter is the single repository operation the import loop needs.
type ItemWriter interface {
	Add(ctx context.Context, p models.ItemPayload, actor models.Actor) (int64, error)
}

// LocationResolver maps a location name onto an id, creating the
// location when it does not exist yet.
type LocationResolver interface {
	ResolveByName(ctx context.Context, name string, actor models.Actor) (int64, error)
}

// Importer drives a column-mapped import: one repository add per data
// row, with row failures captured instead of aborting the run.
type Importer struct {
	Items     ItemWriter
	Locations LocationResolver
	MaxRows   int
	Aliases   map[string]string // defaults to the built-in table
}

func (im *Importer) aliases() map[string]string {
	if im.Aliases != nil {
		return im.Aliases
	}
	return defaultAliases
}

// ImportCSV reads a comma-delimited UTF-8 file with a header row.
func (im *Importer) ImportCSV(ctx context.Context, r io.Reader, actor models.Actor) (ImportSummary, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return ImportSummary{}, ErrEmptyFile
	}
	if err != nil {
		return ImportSummary{}, fmt.Errorf("read header row: %w", err)
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ImportSummary{}, fmt.Errorf("read data row: %w", err)
		}
		rows = append(rows, record)
		if im.MaxRows > 0 && len(rows) > im.MaxRows {
			return ImportSummary{}, &TooManyRowsError{Limit: im.MaxRows}
		}
	}

	return im.importRows(ctx, header, rows, actor)
}

// ImportXLSX reads the first sheet of a spreadsheet the same way
// ImportCSV reads a file: row one is the header, the rest is data.
func (im *Importer) ImportXLSX(ctx context.Context, r io.Reader, actor models.Actor) (ImportSummary, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("read spreadsheet: %w", err)
	}

	file, err := xlsx.OpenBinary(data)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("open spreadsheet: %w", err)
	}
	if len(file.Sheets) == 0 {
		return ImportSummary{}, ErrEmptyFile
	}
	sheet := file.Sheets[0]

	readRow := func(idx int) ([]string, bool) {
		row, err := sheet.Row(idx)
		if err != nil || row == nil {
			return nil, false
		}
		cells := make([]string, 0, sheet.MaxCol)
		for col := 0; col < sheet.MaxCol; col++ {
			cell := row.GetCell(col)
			if cell == nil {
				cells = append(cells, "")
				continue
			}
			cells = append(cells, strings.TrimSpace(cell.String()))
		}
		return cells, true
	}

	header, ok := readRow(0)
	if !ok || sheet.MaxRow == 0 {
		return ImportSummary{}, ErrEmptyFile
	}

	var rows [][]string
	for idx := 1; idx < sheet.MaxRow; idx++ {
		cells, ok := readRow(idx)
		if !ok {
			break
		}
		rows = append(rows, cells)
		if im.MaxRows > 0 && len(rows) > im.MaxRows {
			return ImportSummary{}, &TooManyRowsError{Limit: im.MaxRows}
		}
	}

	return im.importRows(ctx, header, rows, actor)
}

// importRows maps each data row onto a payload and adds it. Row numbers
// in errors count the header, so rows[0] is row 2.
func (im *Importer) importRows(ctx context.Context, header []string, rows [][]string, actor models.Actor) (ImportSummary, error) {
	summary := ImportSummary{Errors: []RowError{}}

	columns, err := im.mapHeader(header)
	if err != nil {
		return summary, err
	}

	for i, record := range rows {
		rowNum := i + 2

		cells := make(map[string]string, len(columns))
		blank := true
		for key, idx := range columns {
			if idx >= len(record) {
				continue
			}
			v := strings.TrimSpace(record[idx])
			if v != "" {
				blank = false
			}
			cells[key] = v
		}
		if blank {
			continue
		}

		if err := im.importRow(ctx, cells, actor); err != nil {
			summary.Errors = append(summary.Errors, RowError{Row: rowNum, Message: err.Error()})
			continue
		}
		summary.Imported++
	}

	return summary, nil
}

// mapHeader resolves header cells onto canonical column keys and checks
// that every required column is present.
func (im *Importer) mapHeader(header []string) (map[string]int, error) {
	aliases := im.aliases()
	columns := make(map[string]int)
	for idx, cell := range header {
		key, ok := aliases[normalizeHeader(cell)]
		if !ok {
			continue // unknown columns are ignored
		}
		if _, seen := columns[key]; !seen {
			columns[key] = idx
		}
	}

	var missing []string
	for _, required := range RequiredHeaders {
		if _, ok := columns[normalizeHeader(required)]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, &HeaderError{Missing: missing}
	}
	return columns, nil
}

func (im *Importer) importRow(ctx context.Context, cells map[string]string, actor models.Actor) error {
	payload := models.ItemPayload{
		Make:           cells[colMake],
		Model:          cells[colModel],
		SerialNumber:   cells[colSerialNumber],
		PropertyNumber: cells[colPropertyNumber],
		UseCase:        cells[colUseCase],
	}

	if name := cells[colLocation]; name != "" {
		locationID, err := im.Locations.ResolveByName(ctx, name, actor)
		if err != nil {
			return fmt.Errorf("resolve location %q: %w", name, err)
		}
		payload.LocationID = locationID
	}

	if v := cells[colOnSite]; v != "" {
		onSite, err := parseOnSite(v)
		if err != nil {
			return err
		}
		payload.OnSite = &onSite
	}
	if v := cells[colDescription]; v != "" {
		payload.Description = &v
	}
	if v := cells[colAssignedTo]; v != "" {
		payload.AssignedTo = &v
	}
	if v := cells[colPurchaseDate]; v != "" {
		payload.PurchaseDate = &v
	}
	if v := cells[colWarrantyEnd]; v != "" {
		payload.WarrantyEndDate = &v
	}
	if v := cells[colExcessDate]; v != "" {
		payload.ExcessDate = &v
	}
	if v := cells[colPurchaseCost]; v != "" {
		cost, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("invalid purchase cost %q", v)
		}
		payload.PurchaseCost = &cost
	}
	if v := cells[colVendor]; v != "" {
		payload.Vendor = &v
	}
	payload.Status = cells[colStatus]

	if _, err := im.Items.Add(ctx, payload, actor); err != nil {
		return err
	}
	return nil
}

func parseOnSite(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "yes", "y", "true", "1":
		return true, nil
	case "no", "n", "false", "0":
		return false, nil
	default:
		return false, errors.New("on site must be Yes or No")
	}
}

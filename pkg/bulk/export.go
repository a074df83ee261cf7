package bulk

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"asset-inventory-api/internal/inventory"
	"asset-inventory-api/internal/models"
)

// ItemExporter fetches the full filtered record set in search order,
// without pagination.
type ItemExporter interface {
	Export(ctx context.Context, f inventory.Filters, limit int) ([]models.InventoryItem, error)
}

// Exporter serializes filtered inventory records as CSV in the fixed
// column order.
type Exporter struct {
	Items   ItemExporter
	MaxRows int
}

// Write emits the header row and one line per record. When the filtered
// set is empty it returns ErrNothingToExport before writing anything.
func (ex *Exporter) Write(ctx context.Context, w io.Writer, f inventory.Filters) (int, error) {
	items, err := ex.Items.Export(ctx, f, ex.MaxRows)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, ErrNothingToExport
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeaders); err != nil {
		return 0, fmt.Errorf("write header row: %w", err)
	}
	for i := range items {
		if err := cw.Write(itemRecord(&items[i])); err != nil {
			return 0, fmt.Errorf("write data row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, err
	}
	return len(items), nil
}

// itemRecord renders one record in export column order. Absent optional
// fields become empty cells.
func itemRecord(it *models.InventoryItem) []string {
	onSite := "No"
	if it.OnSite {
		onSite = "Yes"
	}
	return []string{
		it.Make,
		it.Model,
		it.SerialNumber,
		it.PropertyNumber,
		dateCell(it.WarrantyEndDate),
		dateCell(it.ExcessDate),
		it.UseCase,
		strCell(it.LocationName),
		onSite,
		strCell(it.Description),
		strCell(it.AssignedTo),
		dateCell(it.PurchaseDate),
		costCell(it),
		strCell(it.Vendor),
		it.Status,
		it.CreatedAt.Format("2006-01-02"),
	}
}

func dateCell(d *models.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func strCell(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func costCell(it *models.InventoryItem) string {
	if it.PurchaseCost == nil {
		return ""
	}
	return it.PurchaseCost.StringFixed(2)
}

package bulk

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asset-inventory-api/internal/inventory"
	"asset-inventory-api/internal/models"
)

type fakeExporter struct {
	items []models.InventoryItem
	limit int
}

func (f *fakeExporter) Export(_ context.Context, _ inventory.Filters, limit int) ([]models.InventoryItem, error) {
	f.limit = limit
	return f.items, nil
}

func strptr(s string) *string { return &s }

func mustDate(t *testing.T, s string) *models.Date {
	t.Helper()
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return &d
}

func TestExportWritesFixedColumnOrder(t *testing.T) {
	cost := decimal.NewFromFloat(1299.9)
	created, err := time.Parse(time.RFC3339, "2023-08-01T10:30:00Z")
	require.NoError(t, err)

	exporter := &Exporter{
		MaxRows: 500,
		Items: &fakeExporter{items: []models.InventoryItem{
			{
				Make:            "Dell",
				Model:           "Latitude, 5440", // comma forces quoting
				SerialNumber:    "SN-1",
				PropertyNumber:  "PN-1",
				UseCase:         "Laptop",
				LocationName:    strptr("Main Office"),
				OnSite:          true,
				Description:     strptr(`has "spare" battery`),
				PurchaseDate:    mustDate(t, "2023-06-15"),
				WarrantyEndDate: mustDate(t, "2026-06-15"),
				PurchaseCost:    &cost,
				Vendor:          strptr("CDW"),
				Status:          "active",
				CreatedAt:       created,
			},
			{
				// Minimal record: optional fields render as empty cells.
				Make:           "HP",
				Model:          "EliteBook",
				SerialNumber:   "SN-2",
				PropertyNumber: "PN-2",
				UseCase:        "Laptop",
				OnSite:         false,
				Status:         "repair",
				CreatedAt:      created,
			},
		}},
	}

	var buf bytes.Buffer
	count, err := exporter.Write(context.Background(), &buf, inventory.Filters{})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, ExportHeaders, records[0])

	first := records[1]
	assert.Equal(t, []string{
		"Dell", "Latitude, 5440", "SN-1", "PN-1",
		"2026-06-15", "", "Laptop", "Main Office", "Yes",
		`has "spare" battery`, "", "2023-06-15", "1299.90", "CDW",
		"active", "2023-08-01",
	}, first)

	second := records[2]
	assert.Equal(t, "No", second[8])
	assert.Equal(t, "", second[7])  // location
	assert.Equal(t, "", second[12]) // cost
}

func TestExportNothingToExport(t *testing.T) {
	exporter := &Exporter{Items: &fakeExporter{}, MaxRows: 500}

	var buf bytes.Buffer
	_, err := exporter.Write(context.Background(), &buf, inventory.Filters{})

	assert.ErrorIs(t, err, ErrNothingToExport)
	assert.Zero(t, buf.Len(), "no partial output on empty result")
}

func TestExportPassesRowLimit(t *testing.T) {
	fake := &fakeExporter{items: []models.InventoryItem{{Make: "Dell", Status: "active"}}}
	exporter := &Exporter{Items: fake, MaxRows: 1234}

	var buf bytes.Buffer
	_, err := exporter.Write(context.Background(), &buf, inventory.Filters{})
	require.NoError(t, err)
	assert.Equal(t, 1234, fake.limit)
}

func TestExportImportRoundTrip(t *testing.T) {
	created := time.Now()
	cost := decimal.NewFromFloat(450)

	exporter := &Exporter{
		MaxRows: 100,
		Items: &fakeExporter{items: []models.InventoryItem{{
			Make:           "Cisco",
			Model:          "C9300",
			SerialNumber:   "SW-1",
			PropertyNumber: "PN-9",
			UseCase:        "Network Equipment",
			LocationName:   strptr("Server Room"),
			OnSite:         true,
			PurchaseCost:   &cost,
			Status:         "active",
			CreatedAt:      created,
		}}},
	}

	var buf bytes.Buffer
	_, err := exporter.Write(context.Background(), &buf, inventory.Filters{})
	require.NoError(t, err)

	im, items, _ := newImporter(100)
	summary, err := im.ImportCSV(context.Background(), &buf, models.Actor{})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Imported)
	require.Empty(t, summary.Errors)

	p := items.added[0]
	assert.Equal(t, "Cisco", p.Make)
	assert.Equal(t, "C9300", p.Model)
	assert.Equal(t, "SW-1", p.SerialNumber)
	assert.Equal(t, "Network Equipment", p.UseCase)
	require.NotNil(t, p.OnSite)
	assert.True(t, *p.OnSite)
	require.NotNil(t, p.PurchaseCost)
	assert.True(t, p.PurchaseCost.Equal(cost))
	assert.Equal(t, "active", p.Status)
}

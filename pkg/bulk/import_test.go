package bulk

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v3"

	"asset-inventory-api/internal/inventory"
	"asset-inventory-api/internal/models"
)

// fakeItems mimics the repository's validation behavior closely enough
// for the import loop: required make, duplicate serial numbers rejected.
type fakeItems struct {
	added []models.ItemPayload
}

func (f *fakeItems) Add(_ context.Context, p models.ItemPayload, _ models.Actor) (int64, error) {
	if strings.TrimSpace(p.Make) == "" {
		return 0, &inventory.ValidationError{Fields: map[string]string{
			"make": "field 'make' is required",
		}}
	}
	for _, existing := range f.added {
		if existing.SerialNumber == p.SerialNumber {
			return 0, &inventory.DuplicateKeyError{Field: "serial_number"}
		}
	}
	f.added = append(f.added, p)
	return int64(len(f.added)), nil
}

type fakeLocations struct {
	known    map[string]int64
	resolved []string
}

func (f *fakeLocations) ResolveByName(_ context.Context, name string, _ models.Actor) (int64, error) {
	f.resolved = append(f.resolved, name)
	if id, ok := f.known[name]; ok {
		return id, nil
	}
	if f.known == nil {
		f.known = map[string]int64{}
	}
	id := int64(len(f.known) + 1)
	f.known[name] = id
	return id, nil
}

func newImporter(maxRows int) (*Importer, *fakeItems, *fakeLocations) {
	items := &fakeItems{}
	locations := &fakeLocations{}
	return &Importer{Items: items, Locations: locations, MaxRows: maxRows}, items, locations
}

const csvHeader = "Make,Model,Serial Number,Property Number,Use Case,Location\n"

func TestImportCSVBlankMakeRowIsReportedNotFatal(t *testing.T) {
	im, items, _ := newImporter(100)

	file := csvHeader +
		",Latitude,SN-1,PN-1,Laptop,Main Office\n" +
		"Dell,Latitude,SN-2,PN-2,Laptop,Main Office\n" +
		"HP,EliteBook,SN-3,PN-3,Laptop,Main Office\n"

	summary, err := im.ImportCSV(context.Background(), strings.NewReader(file), models.Actor{})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Imported)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, 2, summary.Errors[0].Row)
	assert.Contains(t, summary.Errors[0].Message, "make")
	assert.Len(t, items.added, 2)
}

func TestImportCSVDuplicateRowContinues(t *testing.T) {
	im, items, _ := newImporter(100)

	file := csvHeader +
		"Dell,Latitude,SN-1,PN-1,Laptop,Main Office\n" +
		"Dell,Latitude,SN-1,PN-2,Laptop,Main Office\n" +
		"HP,EliteBook,SN-3,PN-3,Laptop,Main Office\n"

	summary, err := im.ImportCSV(context.Background(), strings.NewReader(file), models.Actor{})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Imported)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, 3, summary.Errors[0].Row)
	assert.Equal(t, "serial number already exists", summary.Errors[0].Message)
	assert.Len(t, items.added, 2)
}

func TestImportCSVMissingRequiredHeader(t *testing.T) {
	im, _, _ := newImporter(100)

	file := "Make,Model,Serial Number,Use Case,Location\n" +
		"Dell,Latitude,SN-1,Laptop,Main Office\n"

	_, err := im.ImportCSV(context.Background(), strings.NewReader(file), models.Actor{})

	var headerErr *HeaderError
	require.ErrorAs(t, err, &headerErr)
	assert.Equal(t, []string{"Property Number"}, headerErr.Missing)
}

func TestImportCSVEmptyFile(t *testing.T) {
	im, _, _ := newImporter(100)

	_, err := im.ImportCSV(context.Background(), strings.NewReader(""), models.Actor{})
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestImportCSVRowCap(t *testing.T) {
	im, items, _ := newImporter(2)

	file := csvHeader +
		"Dell,Latitude,SN-1,PN-1,Laptop,Main Office\n" +
		"Dell,Latitude,SN-2,PN-2,Laptop,Main Office\n" +
		"Dell,Latitude,SN-3,PN-3,Laptop,Main Office\n"

	_, err := im.ImportCSV(context.Background(), strings.NewReader(file), models.Actor{})

	var capErr *TooManyRowsError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 2, capErr.Limit)
	// Nothing imported when the file is over the cap.
	assert.Empty(t, items.added)
}

func TestImportCSVHeaderAliases(t *testing.T) {
	im, items, _ := newImporter(100)

	// Underscored and differently-spelled headers resolve to the same columns.
	file := "make,model,serial_number,Property_Number,USE CASE,Location Name\n" +
		"Dell,Latitude,SN-1,PN-1,Laptop,Main Office\n"

	summary, err := im.ImportCSV(context.Background(), strings.NewReader(file), models.Actor{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Imported)
	require.Len(t, items.added, 1)
	assert.Equal(t, "SN-1", items.added[0].SerialNumber)
	assert.Equal(t, "PN-1", items.added[0].PropertyNumber)
}

func TestImportCSVBlankRowSkippedButCounted(t *testing.T) {
	im, _, _ := newImporter(100)

	file := csvHeader +
		"Dell,Latitude,SN-1,PN-1,Laptop,Main Office\n" +
		",,,,,\n" +
		",EliteBook,SN-3,PN-3,Laptop,Main Office\n"

	summary, err := im.ImportCSV(context.Background(), strings.NewReader(file), models.Actor{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Imported)
	require.Len(t, summary.Errors, 1)
	// The blank row 3 is skipped silently; the bad row is still row 4.
	assert.Equal(t, 4, summary.Errors[0].Row)
}

func TestImportCSVResolvesLocationsByName(t *testing.T) {
	im, items, locations := newImporter(100)

	file := csvHeader +
		"Dell,Latitude,SN-1,PN-1,Laptop,Warehouse A\n" +
		"HP,EliteBook,SN-2,PN-2,Laptop,Warehouse A\n"

	summary, err := im.ImportCSV(context.Background(), strings.NewReader(file), models.Actor{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Imported)

	assert.Equal(t, []string{"Warehouse A", "Warehouse A"}, locations.resolved)
	require.Len(t, items.added, 2)
	assert.Equal(t, items.added[0].LocationID, items.added[1].LocationID)
}

func TestImportCSVOptionalColumns(t *testing.T) {
	im, items, _ := newImporter(100)

	file := "Make,Model,Serial Number,Property Number,Use Case,Location,On Site,Purchase Cost,Purchase Date\n" +
		"Dell,Latitude,SN-1,PN-1,Laptop,Main Office,No,1299.99,2023-06-15\n"

	summary, err := im.ImportCSV(context.Background(), strings.NewReader(file), models.Actor{})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Imported)

	p := items.added[0]
	require.NotNil(t, p.OnSite)
	assert.False(t, *p.OnSite)
	require.NotNil(t, p.PurchaseCost)
	assert.Equal(t, "1299.99", p.PurchaseCost.String())
	require.NotNil(t, p.PurchaseDate)
	assert.Equal(t, "2023-06-15", *p.PurchaseDate)
}

func TestImportCSVBadOptionalValuesAreRowErrors(t *testing.T) {
	im, _, _ := newImporter(100)

	file := "Make,Model,Serial Number,Property Number,Use Case,Location,On Site,Purchase Cost\n" +
		"Dell,Latitude,SN-1,PN-1,Laptop,Main Office,Perhaps,100\n" +
		"HP,EliteBook,SN-2,PN-2,Laptop,Main Office,Yes,cheap\n"

	summary, err := im.ImportCSV(context.Background(), strings.NewReader(file), models.Actor{})
	require.NoError(t, err)

	assert.Zero(t, summary.Imported)
	require.Len(t, summary.Errors, 2)
	assert.Contains(t, summary.Errors[0].Message, "on site")
	assert.Contains(t, summary.Errors[1].Message, "purchase cost")
}

func TestImportXLSX(t *testing.T) {
	im, items, _ := newImporter(100)

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Inventory")
	require.NoError(t, err)

	addRow := func(cells ...string) {
		row := sheet.AddRow()
		for _, c := range cells {
			row.AddCell().SetString(c)
		}
	}
	addRow("Make", "Model", "Serial Number", "Property Number", "Use Case", "Location")
	addRow("Dell", "Latitude", "SN-1", "PN-1", "Laptop", "Main Office")
	addRow("", "EliteBook", "SN-2", "PN-2", "Laptop", "Main Office")

	var buf strings.Builder
	require.NoError(t, file.Write(&buf))

	summary, err := im.ImportXLSX(context.Background(), strings.NewReader(buf.String()), models.Actor{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Imported)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, 3, summary.Errors[0].Row)
	assert.Len(t, items.added, 1)
}

package inventory

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiltersFromQuery(t *testing.T) {
	values := url.Values{}
	values.Set("make", " Dell ")
	values.Set("use_case", "Laptop")
	values.Set("location_id", "3")
	values.Set("on_site", "true")
	values.Set("min_cost", "100.50")
	values.Set("purchased_after", "2022-01-01")
	values.Set("warranty_expiring", "30")

	f := FiltersFromQuery(values)

	assert.Equal(t, "Dell", f.Make)
	assert.Equal(t, "Laptop", f.UseCase)
	assert.Equal(t, int64(3), f.LocationID)
	require.NotNil(t, f.OnSite)
	assert.True(t, *f.OnSite)
	require.NotNil(t, f.MinCost)
	assert.Equal(t, "100.5", f.MinCost.String())
	require.NotNil(t, f.PurchasedAfter)
	assert.Equal(t, "2022-01-01", f.PurchasedAfter.String())
	assert.Equal(t, 30, f.WarrantyExpiringDays)
}

func TestFiltersFromQueryIgnoresMalformedValues(t *testing.T) {
	values := url.Values{}
	values.Set("location_id", "abc")
	values.Set("on_site", "maybe")
	values.Set("min_cost", "lots")
	values.Set("purchased_after", "01/01/2022")
	values.Set("warranty_expiring", "-5")

	f := FiltersFromQuery(values)

	assert.Zero(t, f.LocationID)
	assert.Nil(t, f.OnSite)
	assert.Nil(t, f.MinCost)
	assert.Nil(t, f.PurchasedAfter)
	assert.Zero(t, f.WarrantyExpiringDays)
}

func TestWhereClausesAlwaysExcludeDeleted(t *testing.T) {
	args := []any{}
	clauses := Filters{}.whereClauses(&args)

	require.Len(t, clauses, 1)
	assert.Contains(t, clauses[0], "status <> 'deleted'")
	assert.Empty(t, args)
}

func TestWhereClausesBindEveryValue(t *testing.T) {
	onSite := true
	f := Filters{
		Make:       "dell",
		UseCase:    "Laptop",
		LocationID: 7,
		OnSite:     &onSite,
	}

	args := []any{}
	clauses := f.whereClauses(&args)

	// deleted guard + four bound filters
	require.Len(t, clauses, 5)
	require.Len(t, args, 4)

	joined := strings.Join(clauses, " AND ")
	assert.Contains(t, joined, "i.make ILIKE $1")
	assert.Contains(t, joined, "i.use_case = $2")
	assert.Contains(t, joined, "i.location_id = $3")
	assert.Contains(t, joined, "i.on_site = $4")
	assert.Equal(t, "%dell%", args[0])
}

func TestWhereClausesPlaceholdersContinueFromExistingArgs(t *testing.T) {
	args := []any{int64(99)} // caller already bound one parameter
	clauses := Filters{Status: "active"}.whereClauses(&args)

	joined := strings.Join(clauses, " AND ")
	assert.Contains(t, joined, "i.status = $2")
	assert.Len(t, args, 2)
}

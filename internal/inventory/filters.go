package inventory

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"asset-inventory-api/internal/models"
)

// Filters is the closed set of search criteria. Every value is bound as a
// query parameter; nothing user-controlled is ever spliced into SQL text.
type Filters struct {
	// Case-insensitive substring matches
	Make           string
	Model          string
	SerialNumber   string
	PropertyNumber string
	Description    string
	AssignedTo     string

	// Exact matches
	UseCase    string
	Status     string
	LocationID int64
	OnSite     *bool

	// Ranges
	MinCost         *decimal.Decimal
	MaxCost         *decimal.Decimal
	PurchasedAfter  *models.Date
	PurchasedBefore *models.Date

	// Relative-date thresholds
	WarrantyExpiringDays int
	WarrantyExpired      bool
}

// FiltersFromQuery maps query parameters onto the filter set. Values that
// fail to parse are ignored rather than erroring, so a mangled query
// string degrades to a broader search instead of a failure.
func FiltersFromQuery(values url.Values) Filters {
	f := Filters{
		Make:           strings.TrimSpace(values.Get("make")),
		Model:          strings.TrimSpace(values.Get("model")),
		SerialNumber:   strings.TrimSpace(values.Get("serial_number")),
		PropertyNumber: strings.TrimSpace(values.Get("property_number")),
		Description:    strings.TrimSpace(values.Get("description")),
		AssignedTo:     strings.TrimSpace(values.Get("assigned_to")),
		UseCase:        strings.TrimSpace(values.Get("use_case")),
		Status:         strings.TrimSpace(values.Get("status")),
	}

	if s := values.Get("location_id"); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil && v > 0 {
			f.LocationID = v
		}
	}
	if s := values.Get("on_site"); s != "" {
		if v, err := strconv.ParseBool(s); err == nil {
			f.OnSite = &v
		}
	}
	if s := values.Get("min_cost"); s != "" {
		if v, err := decimal.NewFromString(s); err == nil {
			f.MinCost = &v
		}
	}
	if s := values.Get("max_cost"); s != "" {
		if v, err := decimal.NewFromString(s); err == nil {
			f.MaxCost = &v
		}
	}
	if s := values.Get("purchased_after"); s != "" {
		if d, err := models.ParseDate(s); err == nil {
			f.PurchasedAfter = &d
		}
	}
	if s := values.Get("purchased_before"); s != "" {
		if d, err := models.ParseDate(s); err == nil {
			f.PurchasedBefore = &d
		}
	}
	if s := values.Get("warranty_expiring"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			f.WarrantyExpiringDays = v
		}
	}
	if s := values.Get("warranty_expired"); s != "" {
		if v, err := strconv.ParseBool(s); err == nil {
			f.WarrantyExpired = v
		}
	}

	return f
}

// whereClauses builds the parameterized WHERE fragments for the filter
// set. Soft-deleted rows are excluded from every search.
func (f Filters) whereClauses(args *[]any) []string {
	clauses := []string{"i.status <> '" + models.StatusDeleted + "'"}
	arg := len(*args) + 1

	bind := func(clause string, value any) {
		clauses = append(clauses, fmt.Sprintf(clause, arg))
		*args = append(*args, value)
		arg++
	}

	likeFields := []struct {
		column, value string
	}{
		{"i.make", f.Make},
		{"i.model", f.Model},
		{"i.serial_number", f.SerialNumber},
		{"i.property_number", f.PropertyNumber},
		{"i.description", f.Description},
		{"i.assigned_to", f.AssignedTo},
	}
	for _, lf := range likeFields {
		if lf.value != "" {
			bind(lf.column+" ILIKE $%d", "%"+lf.value+"%")
		}
	}

	if f.UseCase != "" {
		bind("i.use_case = $%d", f.UseCase)
	}
	if f.Status != "" {
		bind("i.status = $%d", f.Status)
	}
	if f.LocationID > 0 {
		bind("i.location_id = $%d", f.LocationID)
	}
	if f.OnSite != nil {
		bind("i.on_site = $%d", *f.OnSite)
	}
	if f.MinCost != nil {
		bind("i.purchase_cost >= $%d", f.MinCost.String())
	}
	if f.MaxCost != nil {
		bind("i.purchase_cost <= $%d", f.MaxCost.String())
	}
	if f.PurchasedAfter != nil {
		bind("i.purchase_date >= $%d", f.PurchasedAfter.Time)
	}
	if f.PurchasedBefore != nil {
		bind("i.purchase_date <= $%d", f.PurchasedBefore.Time)
	}
	if f.WarrantyExpiringDays > 0 {
		bind("i.warranty_end_date IS NOT NULL AND i.warranty_end_date <= CURRENT_DATE + $%d::int", f.WarrantyExpiringDays)
	}
	if f.WarrantyExpired {
		clauses = append(clauses, "i.warranty_end_date IS NOT NULL AND i.warranty_end_date < CURRENT_DATE")
	}

	return clauses
}

package inventory

import (
	"strings"

	"asset-inventory-api/internal/models"
)

// Validate checks one item payload and returns the complete field error
// map; an empty map means the payload is valid. It is pure: uniqueness
// against existing records is checked separately by the repository.
func Validate(p models.ItemPayload) map[string]string {
	errs := map[string]string{}

	required := []struct {
		field, value string
	}{
		{"make", p.Make},
		{"model", p.Model},
		{"serial_number", p.SerialNumber},
		{"property_number", p.PropertyNumber},
		{"use_case", p.UseCase},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs[r.field] = "field '" + r.field + "' is required"
		}
	}

	if p.LocationID <= 0 {
		errs["location_id"] = "field 'location_id' is required and must be a positive integer"
	}

	if p.UseCase != "" && !models.IsValidUseCase(p.UseCase) {
		errs["use_case"] = "invalid use case, allowed: " + strings.Join(models.ValidUseCases, ", ")
	}

	if p.Status != "" && !models.IsValidStatus(p.Status) {
		errs["status"] = "invalid status, allowed: " + strings.Join(models.ValidStatuses, ", ")
	}

	checkDate(errs, "warranty_end_date", p.WarrantyEndDate)
	checkDate(errs, "excess_date", p.ExcessDate)
	checkDate(errs, "purchase_date", p.PurchaseDate)

	if p.PurchaseCost != nil && p.PurchaseCost.IsNegative() {
		errs["purchase_cost"] = "purchase cost must not be negative"
	}

	return errs
}

func checkDate(errs map[string]string, field string, value *string) {
	if value == nil || *value == "" {
		return
	}
	if _, err := models.ParseDate(*value); err != nil {
		errs[field] = "invalid " + strings.ReplaceAll(field, "_", " ") + " (expected YYYY-MM-DD)"
	}
}

package inventory

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"asset-inventory-api/internal/models"
)

func validPayload() models.ItemPayload {
	return models.ItemPayload{
		Make:           "Dell",
		Model:          "Latitude 5440",
		SerialNumber:   "SN-001",
		PropertyNumber: "PN-001",
		UseCase:        "Laptop",
		LocationID:     1,
	}
}

func TestValidateAcceptsCompletePayload(t *testing.T) {
	assert.Empty(t, Validate(validPayload()))
}

func TestValidateRequiredFields(t *testing.T) {
	p := models.ItemPayload{}
	errs := Validate(p)

	for _, field := range []string{"make", "model", "serial_number", "property_number", "use_case", "location_id"} {
		assert.Contains(t, errs, field)
	}
}

func TestValidateWhitespaceOnlyIsMissing(t *testing.T) {
	p := validPayload()
	p.Make = "   "
	errs := Validate(p)
	assert.Contains(t, errs, "make")
}

func TestValidateUseCaseEnum(t *testing.T) {
	p := validPayload()
	p.UseCase = "Toaster"
	errs := Validate(p)
	assert.Contains(t, errs, "use_case")

	for _, uc := range models.ValidUseCases {
		p.UseCase = uc
		assert.NotContains(t, Validate(p), "use_case", "use case %q", uc)
	}
}

func TestValidateStatusEnum(t *testing.T) {
	p := validPayload()

	for _, status := range models.ValidStatuses {
		p.Status = status
		assert.NotContains(t, Validate(p), "status", "status %q", status)
	}

	// The terminal deleted marker is not accepted from callers.
	p.Status = models.StatusDeleted
	assert.Contains(t, Validate(p), "status")

	p.Status = "broken"
	assert.Contains(t, Validate(p), "status")
}

func TestValidateDates(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"valid", "2023-02-28", false},
		{"impossible day", "2023-02-30", true},
		{"us format", "02/30/2023", true},
		{"partial", "2023-02", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPayload()
			p.PurchaseDate = &tt.value
			p.WarrantyEndDate = &tt.value
			p.ExcessDate = &tt.value

			errs := Validate(p)
			if tt.wantErr {
				assert.Contains(t, errs, "purchase_date")
				assert.Contains(t, errs, "warranty_end_date")
				assert.Contains(t, errs, "excess_date")
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}

func TestValidateEmptyDateStringsAllowed(t *testing.T) {
	p := validPayload()
	empty := ""
	p.PurchaseDate = &empty
	assert.Empty(t, Validate(p))
}

func TestValidatePurchaseCost(t *testing.T) {
	p := validPayload()

	negative := decimal.NewFromFloat(-1.50)
	p.PurchaseCost = &negative
	assert.Contains(t, Validate(p), "purchase_cost")

	zero := decimal.Zero
	p.PurchaseCost = &zero
	assert.NotContains(t, Validate(p), "purchase_cost")

	positive := decimal.NewFromFloat(999.99)
	p.PurchaseCost = &positive
	assert.NotContains(t, Validate(p), "purchase_cost")
}

func TestValidateReportsAllErrorsAtOnce(t *testing.T) {
	p := models.ItemPayload{UseCase: "Nonsense"}
	bad := "13/13/2023"
	p.PurchaseDate = &bad

	errs := Validate(p)
	// Missing required fields, the bad enum and the bad date all land in
	// one map.
	assert.GreaterOrEqual(t, len(errs), 5)
}

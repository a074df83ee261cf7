package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ValidUseCases are the allowed values for an item's use_case field.
var ValidUseCases = []string{
	"Desktop",
	"Laptop",
	"Server",
	"Network Equipment",
	"Storage System",
	"Development",
}

// ValidStatuses are the allowed values for an item's status field.
// StatusDeleted is a terminal marker set by soft delete and is not
// accepted from callers.
var ValidStatuses = []string{"active", "retired", "excess", "repair"}

const (
	StatusActive  = "active"
	StatusDeleted = "deleted"
)

func IsValidUseCase(s string) bool {
	for _, v := range ValidUseCases {
		if v == s {
			return true
		}
	}
	return false
}

func IsValidStatus(s string) bool {
	for _, v := range ValidStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// InventoryItem is one tracked physical asset as read back from storage,
// including display-friendly denormalized fields from joined tables.
type InventoryItem struct {
	ID                int64            `json:"id"`
	Make              string           `json:"make"`
	Model             string           `json:"model"`
	SerialNumber      string           `json:"serial_number"`
	PropertyNumber    string           `json:"property_number"`
	UseCase           string           `json:"use_case"`
	LocationID        int64            `json:"location_id"`
	LocationName      *string          `json:"location_name,omitempty"`
	OnSite            bool             `json:"on_site"`
	Description       *string          `json:"description,omitempty"`
	AssignedTo        *string          `json:"assigned_to,omitempty"`
	PurchaseDate      *Date            `json:"purchase_date,omitempty"`
	WarrantyEndDate   *Date            `json:"warranty_end_date,omitempty"`
	ExcessDate        *Date            `json:"excess_date,omitempty"`
	PurchaseCost      *decimal.Decimal `json:"purchase_cost,omitempty"`
	Vendor            *string          `json:"vendor,omitempty"`
	Status            string           `json:"status"`
	CreatedBy         *int64           `json:"created_by,omitempty"`
	CreatedByUsername *string          `json:"created_by_username,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// ItemPayload is the caller-supplied field set for creating or updating an
// inventory item. Date fields stay strings until validated; the repository
// converts them after the payload passes validation.
type ItemPayload struct {
	Make            string           `json:"make"`
	Model           string           `json:"model"`
	SerialNumber    string           `json:"serial_number"`
	PropertyNumber  string           `json:"property_number"`
	UseCase         string           `json:"use_case"`
	LocationID      int64            `json:"location_id"`
	OnSite          *bool            `json:"on_site,omitempty"`
	Description     *string          `json:"description,omitempty"`
	AssignedTo      *string          `json:"assigned_to,omitempty"`
	PurchaseDate    *string          `json:"purchase_date,omitempty"`
	WarrantyEndDate *string          `json:"warranty_end_date,omitempty"`
	ExcessDate      *string          `json:"excess_date,omitempty"`
	PurchaseCost    *decimal.Decimal `json:"purchase_cost,omitempty"`
	Vendor          *string          `json:"vendor,omitempty"`
	Status          string           `json:"status,omitempty"`
}

// OnSiteOrDefault returns the on_site value, defaulting to true.
func (p ItemPayload) OnSiteOrDefault() bool {
	if p.OnSite == nil {
		return true
	}
	return *p.OnSite
}

// StatusOrDefault returns the status value, defaulting to active.
func (p ItemPayload) StatusOrDefault() string {
	if p.Status == "" {
		return StatusActive
	}
	return p.Status
}

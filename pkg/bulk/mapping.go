package bulk

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Canonical column keys. Incoming headers are normalized and resolved
// through the alias table onto these.
const (
	colMake           = "make"
	colModel          = "model"
	colSerialNumber   = "serial number"
	colPropertyNumber = "property number"
	colWarrantyEnd    = "warranty end date"
	colExcessDate     = "excess date"
	colUseCase        = "use case"
	colLocation       = "location"
	colOnSite         = "on site"
	colDescription    = "description"
	colAssignedTo     = "assigned to"
	colPurchaseDate   = "purchase date"
	colPurchaseCost   = "purchase cost"
	colVendor         = "vendor"
	colStatus         = "status"
)

// defaultAliases maps normalized header spellings onto canonical keys.
// Normalization already folds case and underscores, so "Serial_Number"
// and "serial number" arrive here identically.
var defaultAliases = map[string]string{
	"make":            colMake,
	"model":           colModel,
	"serial number":   colSerialNumber,
	"serial no":       colSerialNumber,
	"serial":          colSerialNumber,
	"property number": colPropertyNumber,
	"property no":     colPropertyNumber,
	"warranty end date": colWarrantyEnd,
	"warranty end":      colWarrantyEnd,
	"excess date":       colExcessDate,
	"use case":          colUseCase,
	"location":          colLocation,
	"location name":     colLocation,
	"on site":           colOnSite,
	"onsite":            colOnSite,
	"description":       colDescription,
	"assigned to":       colAssignedTo,
	"assignee":          colAssignedTo,
	"purchase date":     colPurchaseDate,
	"purchase cost":     colPurchaseCost,
	"cost":              colPurchaseCost,
	"vendor":            colVendor,
	"supplier":          colVendor,
	"status":            colStatus,
}

// aliasFile is the YAML shape for a custom alias table: canonical column
// name to a list of accepted spellings.
type aliasFile struct {
	Version int                 `yaml:"version"`
	Aliases map[string][]string `yaml:"aliases"`
}

// LoadAliases reads a YAML alias file and merges it over the defaults.
func LoadAliases(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alias file: %w", err)
	}

	var f aliasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse alias file: %w", err)
	}

	merged := make(map[string]string, len(defaultAliases))
	for k, v := range defaultAliases {
		merged[k] = v
	}
	for canonical, spellings := range f.Aliases {
		key := normalizeHeader(canonical)
		if _, known := defaultAliases[key]; !known {
			return nil, fmt.Errorf("unknown column %q in alias file", canonical)
		}
		target := defaultAliases[key]
		for _, spelling := range spellings {
			merged[normalizeHeader(spelling)] = target
		}
	}
	return merged, nil
}

// normalizeHeader folds a header cell for case-insensitive matching:
// lowercase, underscores to spaces, collapsed whitespace.
func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), " ")
}

// Package handlers holds the bulk transfer endpoints, which carry more
// request plumbing than the plain JSON CRUD handlers.
package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"asset-inventory-api/internal/audit"
	"asset-inventory-api/internal/auth"
	"asset-inventory-api/internal/config"
	"asset-inventory-api/internal/inventory"
	"asset-inventory-api/internal/models"
	"asset-inventory-api/pkg/bulk"
)

// TransfersHandler handles bulk import and export of inventory records
type TransfersHandler struct {
	Items     *inventory.Repository
	Locations *inventory.LocationStore
	Audit     *audit.Recorder
	DB        *sql.DB
	Cfg       *config.Config
	Log       *zap.SugaredLogger
}

// NewTransfersHandler creates a new transfers handler
func NewTransfersHandler(items *inventory.Repository, locations *inventory.LocationStore, rec *audit.Recorder, db *sql.DB, cfg *config.Config, log *zap.SugaredLogger) *TransfersHandler {
	return &TransfersHandler{
		Items:     items,
		Locations: locations,
		Audit:     rec,
		DB:        db,
		Cfg:       cfg,
		Log:       log,
	}
}

// Upload handles CSV and XLSX file uploads for inventory import
func (h *TransfersHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// Limit body size
	r.Body = http.MaxBytesReader(w, r.Body, h.Cfg.ImportMaxBytes)

	// Require multipart
	if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
		http.Error(w, "content-type must be multipart/form-data", http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(h.Cfg.ImportMaxBytes); err != nil {
		http.Error(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	importer := &bulk.Importer{
		Items:     h.Items,
		Locations: h.Locations,
		MaxRows:   h.Cfg.CSVMaxRows,
	}

	// Optional custom header alias table
	if mapping := r.FormValue("mapping"); mapping != "" {
		aliases, err := bulk.LoadAliases(mapping)
		if err != nil {
			http.Error(w, "invalid mapping: "+err.Error(), http.StatusBadRequest)
			return
		}
		importer.Aliases = aliases
	}

	actor := auth.ActorFromRequest(r)

	var summary bulk.ImportSummary
	var impErr error
	switch {
	case hasExtension(header, ".csv"):
		summary, impErr = importer.ImportCSV(r.Context(), file, actor)
	case hasExtension(header, ".xlsx"):
		summary, impErr = importer.ImportXLSX(r.Context(), file, actor)
	default:
		http.Error(w, "only .csv and .xlsx files are accepted", http.StatusBadRequest)
		return
	}

	if impErr != nil {
		var headerErr *bulk.HeaderError
		var capErr *bulk.TooManyRowsError
		switch {
		case errors.Is(impErr, bulk.ErrEmptyFile), errors.As(impErr, &headerErr), errors.As(impErr, &capErr):
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error": impErr.Error(),
			})
		default:
			h.Log.Errorw("import failed", "file", header.Filename, "error", impErr)
			writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"error": "import failed",
				"data":  summary, // might include partial results
			})
		}
		return
	}

	h.Audit.RecordBestEffort(r.Context(), h.DB,
		audit.Entry("inventory_items", 0, "import", nil, models.JSONB{
			"filename": header.Filename,
			"imported": summary.Imported,
			"errors":   len(summary.Errors),
		}, actor))

	writeJSON(w, http.StatusOK, summary)
}

// Download streams the filtered inventory as a CSV attachment
func (h *TransfersHandler) Download(w http.ResponseWriter, r *http.Request) {
	filters := inventory.FiltersFromQuery(r.URL.Query())

	exporter := &bulk.Exporter{
		Items:   h.Items,
		MaxRows: h.Cfg.ExportMaxRows,
	}

	// Buffer the file so an error mid-generation cannot produce a
	// half-written download.
	var buf bytes.Buffer
	count, err := exporter.Write(r.Context(), &buf, filters)
	if err != nil {
		if errors.Is(err, bulk.ErrNothingToExport) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "nothing to export"})
			return
		}
		h.Log.Errorw("export failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "export failed"})
		return
	}

	h.Audit.RecordBestEffort(r.Context(), h.DB,
		audit.Entry("inventory_items", 0, "export", nil, models.JSONB{
			"rows": count,
		}, auth.ActorFromRequest(r)))

	filename := fmt.Sprintf("inventory_export_%s.csv", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if _, err := buf.WriteTo(w); err != nil {
		h.Log.Warnw("export write aborted", "error", err)
	}
}

// hasExtension checks the uploaded filename's extension, case-insensitively
func hasExtension(h *multipart.FileHeader, ext string) bool {
	return strings.HasSuffix(strings.ToLower(h.Filename), ext)
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

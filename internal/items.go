package internal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"asset-inventory-api/internal/auth"
	"asset-inventory-api/internal/inventory"
	"asset-inventory-api/internal/models"
)

// withDBTimeout bounds a handler's storage work with the configured limit.
func (s *Server) withDBTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.Cfg.DBTimeout)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// writeRepoError maps repository errors onto HTTP responses: field-level
// validation failures become 400 with the field map, duplicates 409, and
// missing records 404. Everything else is a 500 with no detail leaked.
func (s *Server) writeRepoError(w http.ResponseWriter, err error) {
	var verr *inventory.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
		return
	}

	var dup *inventory.DuplicateKeyError
	if errors.As(err, &dup) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": dup.Error()})
		return
	}

	if errors.Is(err, inventory.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "record not found"})
		return
	}

	s.Log.Errorw("request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

// listItems handles filtered, paginated inventory search
func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withDBTimeout(r.Context())
	defer cancel()

	params := parsePageParams(r)
	filters := inventory.FiltersFromQuery(r.URL.Query())

	result, err := s.Items.Search(ctx, filters, params.page, params.perPage)
	if err != nil {
		s.writeRepoError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// getItem handles fetching a single inventory item
func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	ctx, cancel := s.withDBTimeout(r.Context())
	defer cancel()

	item, err := s.Items.GetByID(ctx, id)
	if err != nil {
		s.writeRepoError(w, err)
		return
	}
	if item == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "record not found"})
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// createItem handles inventory item creation
func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	var payload models.ItemPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	ctx, cancel := s.withDBTimeout(r.Context())
	defer cancel()

	id, err := s.Items.Add(ctx, payload, auth.ActorFromRequest(r))
	if err != nil {
		s.writeRepoError(w, err)
		return
	}

	item, err := s.Items.GetByID(ctx, id)
	if err != nil || item == nil {
		// Row was written; fall back to the id alone.
		writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

// updateItem handles full replacement of an inventory item's fields
func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	var payload models.ItemPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	ctx, cancel := s.withDBTimeout(r.Context())
	defer cancel()

	if err := s.Items.Update(ctx, id, payload, auth.ActorFromRequest(r)); err != nil {
		s.writeRepoError(w, err)
		return
	}

	item, err := s.Items.GetByID(ctx, id)
	if err != nil || item == nil {
		writeJSON(w, http.StatusOK, map[string]int64{"id": id})
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// deleteItem handles inventory item removal. ?soft=true retires the row
// in place instead of dropping it.
func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	soft := r.URL.Query().Get("soft") == "true"

	ctx, cancel := s.withDBTimeout(r.Context())
	defer cancel()

	if err := s.Items.Delete(ctx, id, soft, auth.ActorFromRequest(r)); err != nil {
		s.writeRepoError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package internal

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"asset-inventory-api/internal/auth"
)

type locationPayload struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// listLocations handles listing all locations
func (s *Server) listLocations(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withDBTimeout(r.Context())
	defer cancel()

	locations, err := s.Locations.List(ctx)
	if err != nil {
		s.writeRepoError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, locations)
}

// getLocation handles fetching a single location
func (s *Server) getLocation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid location ID"})
		return
	}

	ctx, cancel := s.withDBTimeout(r.Context())
	defer cancel()

	location, err := s.Locations.GetByID(ctx, id)
	if err != nil {
		s.writeRepoError(w, err)
		return
	}
	if location == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "record not found"})
		return
	}

	writeJSON(w, http.StatusOK, location)
}

// createLocation handles location creation
func (s *Server) createLocation(w http.ResponseWriter, r *http.Request) {
	var payload locationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	payload.Name = strings.TrimSpace(payload.Name)
	if payload.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	ctx, cancel := s.withDBTimeout(r.Context())
	defer cancel()

	id, err := s.Locations.Create(ctx, payload.Name, payload.Description, auth.ActorFromRequest(r))
	if err != nil {
		s.writeRepoError(w, err)
		return
	}

	location, err := s.Locations.GetByID(ctx, id)
	if err != nil || location == nil {
		writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
		return
	}

	writeJSON(w, http.StatusCreated, location)
}

// updateLocation handles location updates
func (s *Server) updateLocation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid location ID"})
		return
	}

	var payload locationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	payload.Name = strings.TrimSpace(payload.Name)
	if payload.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	active := true
	if payload.IsActive != nil {
		active = *payload.IsActive
	}

	ctx, cancel := s.withDBTimeout(r.Context())
	defer cancel()

	if err := s.Locations.Update(ctx, id, payload.Name, payload.Description, active, auth.ActorFromRequest(r)); err != nil {
		s.writeRepoError(w, err)
		return
	}

	location, err := s.Locations.GetByID(ctx, id)
	if err != nil || location == nil {
		writeJSON(w, http.StatusOK, map[string]int64{"id": id})
		return
	}

	writeJSON(w, http.StatusOK, location)
}

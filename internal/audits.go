package internal

import (
	"net/http"
)

// listAuditEntries handles paginated audit trail reads, newest first.
func (s *Server) listAuditEntries(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withDBTimeout(r.Context())
	defer cancel()

	params := parsePageParams(r)
	perPage := params.perPage
	if perPage <= 0 {
		perPage = 50
	}
	if perPage > s.Cfg.PerPageMax {
		perPage = s.Cfg.PerPageMax
	}

	entries, total, err := s.Audit.List(ctx, s.DB, params.page, perPage)
	if err != nil {
		s.writeRepoError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries":  entries,
		"total":    total,
		"page":     params.page,
		"per_page": perPage,
	})
}

package internal

import (
	"net/http"
	"strconv"
	"strings"
)

// pageParams holds common pagination parameters for list endpoints
type pageParams struct {
	page    int
	perPage int
}

// parsePageParams parses page and per_page from the request.
// Defaults: page=1, per_page=0 (callers apply their own default and cap).
func parsePageParams(r *http.Request) pageParams {
	values := r.URL.Query()

	page := 1
	if s := strings.TrimSpace(values.Get("page")); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			page = v
		}
	}

	perPage := 0
	if s := strings.TrimSpace(values.Get("per_page")); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			perPage = v
		}
	}

	return pageParams{page: page, perPage: perPage}
}

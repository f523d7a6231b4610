package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/stocktrail/stocktrail-backend/pkg/errors"
	"github.com/stocktrail/stocktrail-backend/pkg/pagination"
)

func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// ParsePageRequest reads the standard page/size/sortBy/sortDir query
// parameters. Size bounds are enforced here so an explicit size=0 never
// falls through to the default; page range and sort-field checks happen
// later against the endpoint's sort whitelist.
func ParsePageRequest(r *http.Request) (pagination.Request, error) {
	page := pagination.Request{
		SortBy:  strings.TrimSpace(r.URL.Query().Get("sortBy")),
		SortDir: strings.TrimSpace(r.URL.Query().Get("sortDir")),
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			return pagination.Request{}, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": "page"})
		}
		page.Page = value
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("size")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			return pagination.Request{}, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": "size"})
		}
		// An explicit non-positive size is an error, not a request for the
		// default page size.
		if value <= 0 || value > pagination.MaxSize {
			return pagination.Request{}, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": "size", "min": 1, "max": pagination.MaxSize})
		}
		page.Size = value
	}
	return page, nil
}

package api

import (
	"net/http"
	"strconv"
)

// paginationMeta holds pagination metadata for API responses.
type paginationMeta struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// parsePaginationParams reads ?offset=20&limit=10, falling back to
// defaultLimit when the limit is missing or above maxLimit.
func parsePaginationParams(r *http.Request, defaultLimit, maxLimit int) (int, int) {
	query := r.URL.Query()

	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}

	offset, _ := strconv.Atoi(query.Get("offset"))
	if offset < 0 {
		offset = 0
	}

	return limit, offset
}

// page cuts the window out of items.
func page[T any](items []T, limit, offset int) ([]T, paginationMeta) {
	meta := paginationMeta{Limit: limit, Offset: offset, Total: len(items)}
	if offset >= len(items) {
		return []T{}, meta
	}
	end := min(offset+limit, len(items))
	return items[offset:end], meta
}

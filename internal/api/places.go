package api

import (
	"net/http"
	"strconv"
)

// handleSearchLocation proxies the external place-search provider so the
// client never holds the provider API key.
func (h *Handler) handleSearchLocation(w http.ResponseWriter, r *http.Request) {
	if h.places == nil {
		writeError(w, http.StatusServiceUnavailable, "place search is not configured")
		return
	}

	q := r.URL.Query()
	query := q.Get("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	lat, errLat := strconv.ParseFloat(q.Get("latitude"), 64)
	lng, errLng := strconv.ParseFloat(q.Get("longitude"), 64)
	if errLat != nil || errLng != nil {
		writeError(w, http.StatusBadRequest, "latitude and longitude must be valid numbers")
		return
	}

	results, err := h.places.Search(r.Context(), query, lat, lng)
	if err != nil {
		writeError(w, http.StatusBadGateway, "place search failed")
		return
	}
	writeJSON(w, http.StatusOK, results)
}

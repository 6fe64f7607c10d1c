package api

import (
	"encoding/json"
	"net/http"
)

// handleDescribeImage captions a look for use as an album page overlay.
func handleDescribeImage(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Creative == nil {
			httpError(w, http.StatusNotImplemented, "api_error", "creative features not available")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req struct {
			ImageURL string `json:"imageUrl"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.ImageURL == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "imageUrl is required")
			return
		}

		caption, err := deps.Creative.DescribeImage(r.Context(), req.ImageURL)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "failed to describe image: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(caption)
	}
}

// handleSuggestVariations proposes restylings for a garment category,
// each carrying a ready-to-use editing prompt.
func handleSuggestVariations(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Creative == nil {
			httpError(w, http.StatusNotImplemented, "api_error", "creative features not available")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req struct {
			Category string `json:"category"`
			Count    int    `json:"count"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Category == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "category is required")
			return
		}
		if req.Count <= 0 {
			req.Count = 3
		}

		variations, err := deps.Creative.SuggestVariations(r.Context(), req.Category, req.Count)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "failed to suggest variations: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"variations": variations})
	}
}

// Package api exposes the studio over HTTP and MCP: portfolio CRUD,
// composite rendering, album build jobs with live progress, and zip
// export. Every route except /health requires bearer auth.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bananafashion/studio/internal/creative"
	"github.com/bananafashion/studio/internal/portfolio"
	"github.com/bananafashion/studio/internal/render"
)

const maxRequestBodySize = 32 << 20 // 32MB; items carry inline data URIs

// usageWarnFraction is the fill level above which usage responses set
// the warning flag.
const usageWarnFraction = 0.9

type AppDeps struct {
	Store    *portfolio.Store
	Renderer *render.Renderer
	Token    string
	Hub      *ProgressHub        // optional; if nil, album progress streaming is disabled
	Creative *creative.Extractor // optional; if nil, describe/variations are disabled
}

func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/portfolio", handleListPortfolio(deps))
		r.Post("/portfolio", handleAddPortfolio(deps))
		r.Delete("/portfolio", handleDeletePortfolio(deps))
		r.Delete("/portfolio/all", handleClearPortfolio(deps))
		r.Get("/portfolio/usage", handleUsage(deps))
		r.Put("/portfolio/limit", handleSetLimit(deps))
		r.Get("/portfolio/backup", handleBackup(deps))
		r.Post("/portfolio/restore", handleRestore(deps))

		r.Post("/composites/{layout}", handleComposite(deps))
		r.Post("/export/zip", handleExportZip(deps))

		r.Post("/creative/describe", handleDescribeImage(deps))
		r.Post("/creative/variations", handleSuggestVariations(deps))

		r.Post("/albums", handleEnqueueAlbum(deps))
		r.Get("/albums/{id}", handleAlbumStatus(deps))
		r.Get("/albums/{id}/progress", handleAlbumProgress(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleListPortfolio(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := deps.Store.GetAll()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list portfolio: %v", err)
			return
		}
		if items == nil {
			items = []portfolio.Item{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(items)
	}
}

func handleAddPortfolio(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var item portfolio.Item
		if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if item.Timestamp.IsZero() {
			item.Timestamp = time.Now().UTC()
		}

		if err := deps.Store.Add(item); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "failed to save item: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"id":     item.ID,
			"status": "saved",
		})
	}
}

func handleDeletePortfolio(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req struct {
			IDs []string `json:"ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if len(req.IDs) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "ids is required and must not be empty")
			return
		}

		deleted := 0
		for _, id := range req.IDs {
			err := deps.Store.Delete(id)
			if errors.Is(err, portfolio.ErrNotFound) {
				continue
			}
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to delete item %s: %v", id, err)
				return
			}
			deleted++
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"deleted": deleted})
	}
}

func handleClearPortfolio(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Store.Clear(); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to clear portfolio: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "cleared"})
	}
}

func handleUsage(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		used, err := deps.Store.TotalSize()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to compute usage: %v", err)
			return
		}
		limit, err := deps.Store.LimitBytes()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to read limit: %v", err)
			return
		}
		count, err := deps.Store.Count()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to count items: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"used_bytes":  used,
			"limit_bytes": limit,
			"item_count":  count,
			"warning":     float64(used) >= float64(limit)*usageWarnFraction,
		})
	}
}

func handleSetLimit(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			LimitMB int64 `json:"limit_mb"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.LimitMB <= 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "limit_mb must be positive")
			return
		}

		if err := deps.Store.SetLimitBytes(req.LimitMB << 20); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to set limit: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "updated"})
	}
}

func handleBackup(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf(
			`attachment; filename="portfolio_backup_%s.json"`,
			time.Now().UTC().Format("20060102150405"),
		))
		if err := deps.Store.WriteBackup(w); err != nil {
			// Headers are already out; nothing useful left to send.
			return
		}
	}
}

func handleRestore(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		restored, err := deps.Store.RestoreBackup(r.Body)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "failed to restore backup: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"restored": restored})
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

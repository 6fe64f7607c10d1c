package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bananafashion/studio/internal/export"
	"github.com/bananafashion/studio/internal/portfolio"
	"github.com/bananafashion/studio/internal/render"
	"github.com/bananafashion/studio/internal/transform"
)

// CompositeRequest covers all composite layouts; each layout reads the
// fields it needs and ignores the rest.
type CompositeRequest struct {
	Title  string `json:"title,omitempty"`
	Images []struct {
		URL   string `json:"url"`
		Style string `json:"style,omitempty"`
		Label string `json:"label,omitempty"`
	} `json:"images,omitempty"`
	URLs      []string `json:"urls,omitempty"`
	Final     string   `json:"final,omitempty"`
	Person    string   `json:"person,omitempty"`
	Items     []string `json:"items,omitempty"`
	Moodboard string   `json:"moodboard,omitempty"`
	Source    string   `json:"source,omitempty"`
}

func handleComposite(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req CompositeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		layout := chi.URLParam(r, "layout")
		var (
			jpeg []byte
			err  error
		)
		switch layout {
		case "grid":
			images := make([]render.GridImage, len(req.Images))
			for i, img := range req.Images {
				images[i] = render.GridImage{URL: img.URL, Style: img.Style}
			}
			jpeg, err = deps.Renderer.GridPage(r.Context(), images, req.Title)
		case "strip":
			jpeg, err = deps.Renderer.DynamicStrip(r.Context(), req.URLs)
		case "process":
			steps := make([]render.StepImage, len(req.Images))
			for i, img := range req.Images {
				steps[i] = render.StepImage{URL: img.URL, Label: img.Label}
			}
			jpeg, err = deps.Renderer.ProcessAlbum(r.Context(), req.Final, steps)
		case "composition":
			jpeg, err = deps.Renderer.CompositionAlbum(r.Context(), req.Final, req.Person, req.Items, req.Moodboard)
		case "boutique":
			jpeg, err = deps.Renderer.BoutiqueAlbum(r.Context(), req.URLs, req.Source, req.Title)
		default:
			httpError(w, http.StatusNotFound, "not_found", "unknown composite layout %q", layout)
			return
		}
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "failed to render %s: %v", layout, err)
			return
		}

		name := render.Filename(req.Title, time.Now().UTC())
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
		w.Write(jpeg)
	}
}

// promptPrefix keeps archive member names short.
func promptPrefix(prompt string) string {
	r := []rune(prompt)
	if len(r) > 20 {
		r = r[:20]
	}
	return string(r)
}

func handleExportZip(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			IDs []string `json:"ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		var items []portfolio.Item
		if len(req.IDs) == 0 {
			all, err := deps.Store.GetAll()
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to list portfolio: %v", err)
				return
			}
			items = all
		} else {
			for _, id := range req.IDs {
				item, err := deps.Store.Get(id)
				if errors.Is(err, portfolio.ErrNotFound) {
					httpError(w, http.StatusNotFound, "not_found", "item %s not found", id)
					return
				}
				if err != nil {
					httpError(w, http.StatusInternalServerError, "api_error", "failed to get item %s: %v", id, err)
					return
				}
				items = append(items, item)
			}
		}
		if len(items) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "nothing to export")
			return
		}

		entries := make([]export.Entry, 0, len(items))
		for _, item := range items {
			_, data, err := transform.DecodeDataURI(item.ImageURL)
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to decode item %s: %v", item.ID, err)
				return
			}
			entries = append(entries, export.Entry{
				Name: fmt.Sprintf("%s_%s_%s", item.Mode, promptPrefix(item.Prompt), item.ID),
				Data: data,
			})
		}

		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", fmt.Sprintf(
			`attachment; filename="portfolio_%s.zip"`,
			export.Timestamp(time.Now().UTC()),
		))
		if err := export.WriteZip(w, entries); err != nil {
			// Too late for a JSON error, the archive stream started.
			return
		}
	}
}

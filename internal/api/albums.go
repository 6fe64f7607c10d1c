package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/bananafashion/studio/internal/album"
	"github.com/bananafashion/studio/internal/portfolio"
	"github.com/bananafashion/studio/internal/studio"
)

// ProgressMsg is one progress update pushed over the websocket.
type ProgressMsg struct {
	JobID   string `json:"job_id"`
	Stage   string `json:"stage"`
	Percent int    `json:"percent"`
}

// ProgressHub fans album build progress out to websocket subscribers.
// It satisfies the worker's notifier interface.
type ProgressHub struct {
	mu   sync.Mutex
	subs map[string]map[chan ProgressMsg]struct{}
}

func NewProgressHub() *ProgressHub {
	return &ProgressHub{subs: make(map[string]map[chan ProgressMsg]struct{})}
}

// Notify broadcasts an update to all subscribers of jobID. Slow
// subscribers lose updates rather than blocking the worker.
func (h *ProgressHub) Notify(jobID, stage string, percent int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[jobID] {
		select {
		case ch <- ProgressMsg{JobID: jobID, Stage: stage, Percent: percent}:
		default:
		}
	}
}

// Subscribe registers a listener for jobID. The returned cancel func
// must be called when the listener is done.
func (h *ProgressHub) Subscribe(jobID string) (<-chan ProgressMsg, func()) {
	ch := make(chan ProgressMsg, 16)
	h.mu.Lock()
	if h.subs[jobID] == nil {
		h.subs[jobID] = make(map[chan ProgressMsg]struct{})
	}
	h.subs[jobID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs[jobID], ch)
		if len(h.subs[jobID]) == 0 {
			delete(h.subs, jobID)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

func handleEnqueueAlbum(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req album.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.CoverImageURL == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "coverImageUrl is required")
			return
		}

		job, err := studio.NewAlbumJob(req)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to create job: %v", err)
			return
		}
		if err := deps.Store.EnqueueJob(job); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to enqueue job: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"id":     job.ID,
			"status": "queued",
		})
	}
}

func handleAlbumStatus(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		job, err := deps.Store.GetJob(id)
		if errors.Is(err, portfolio.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "album job not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get job: %v", err)
			return
		}

		resp := map[string]any{
			"id":      job.ID,
			"status":  job.Status,
			"stage":   job.Stage,
			"percent": job.Percent,
		}
		if job.Status == "failed" {
			resp["error"] = job.LastError
		}
		if job.Status == "completed" && job.ResultJSON != "" {
			var result studio.AlbumResult
			if err := json.Unmarshal([]byte(job.ResultJSON), &result); err == nil {
				resp["path"] = result.Path
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Bearer auth already gates the route; the local UI connects from
	// arbitrary origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func handleAlbumProgress(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Hub == nil {
			httpError(w, http.StatusNotImplemented, "api_error", "progress streaming not available")
			return
		}

		id := chi.URLParam(r, "id")
		job, err := deps.Store.GetJob(id)
		if errors.Is(err, portfolio.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "album job not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get job: %v", err)
			return
		}

		updates, cancel := deps.Hub.Subscribe(id)
		defer cancel()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Re-read after subscribing. A job can reach a terminal state
		// in the gap before Subscribe, and that notification is gone.
		if job, err = deps.Store.GetJob(id); err != nil {
			return
		}

		// Send the current state first so late subscribers see where
		// the build stands.
		first := ProgressMsg{JobID: job.ID, Stage: job.Stage, Percent: job.Percent}
		if err := writeProgress(conn, first); err != nil {
			return
		}
		if job.Status == "completed" || job.Status == "failed" {
			return
		}

		for {
			select {
			case <-r.Context().Done():
				return
			case msg, ok := <-updates:
				if !ok {
					return
				}
				if err := writeProgress(conn, msg); err != nil {
					return
				}
				if msg.Percent >= 100 {
					return
				}
			}
		}
	}
}

func writeProgress(conn *websocket.Conn, msg ProgressMsg) error {
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(msg)
}

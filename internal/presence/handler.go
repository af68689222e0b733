package presence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jmylchreest/vodforge/internal/apperrors"
	"github.com/jmylchreest/vodforge/internal/playback"
)

// snapshotInterval is how often the realtime-analytics stream recomputes
// live viewer counts.
const snapshotInterval = 2 * time.Second

// Handler wires heartbeat ingestion and the realtime-analytics SSE stream
// on top of a Tracker.
type Handler struct {
	tracker *Tracker
}

// NewHandler creates a Handler.
func NewHandler(tracker *Tracker) *Handler {
	return &Handler{tracker: tracker}
}

// Register mounts the heartbeat endpoint and SSE stream on a chi router.
func (h *Handler) Register(router chi.Router) {
	router.Post("/api/videos/{id}/heartbeat", h.Heartbeat)
	router.Get("/api/analytics/realtime", h.HandleRealtimeSSE)
}

// Heartbeat records a viewer's presence for one video.
func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "id")
	if videoID == "" {
		http.Error(w, apperrors.ClientProtocol("", "video id is required").Error(), http.StatusBadRequest)
		return
	}

	clientIP := playback.ClientIP(r)
	userAgent := r.Header.Get("User-Agent")

	h.tracker.Heartbeat(videoID, clientIP, userAgent)
	w.WriteHeader(http.StatusOK)
}

// HandleRealtimeSSE streams {videoId: liveCount} snapshots every 2
// seconds until the client disconnects.
func (h *Handler) HandleRealtimeSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	ctx := r.Context()

	ticker := time.NewTicker(snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			counts := h.tracker.SnapshotAndEvict()
			data, err := json.Marshal(counts)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				slog.Debug("realtime analytics SSE write failed, client likely disconnected", "error", err)
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

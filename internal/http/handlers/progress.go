package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/jmylchreest/vodforge/internal/progress"
)

// Timing constants for the progress SSE stream, per the spec's exact
// contract: poll the registry every 500ms, give up after 60s if the
// uploadId never materializes, and linger 3s after a terminal frame so
// slow clients still observe it.
const (
	progressPollInterval    = 500 * time.Millisecond
	progressMaterializeWait = 60 * time.Second
	progressTerminalLinger  = 3 * time.Second
)

// ProgressHandler serves upload lifecycle state: a point-in-time lookup
// and an SSE stream of frames.
type ProgressHandler struct {
	registry *progress.Registry
}

// NewProgressHandler creates a new progress handler.
func NewProgressHandler(registry *progress.Registry) *ProgressHandler {
	return &ProgressHandler{registry: registry}
}

// GetProgressInput is the input for the point-in-time progress lookup.
type GetProgressInput struct {
	UploadID string `path:"uploadId"`
}

// GetProgressOutput is the output for the point-in-time progress lookup.
type GetProgressOutput struct {
	Body progress.Frame
}

// Register registers the non-streaming progress routes with the API.
func (h *ProgressHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getProgress",
		Method:      "GET",
		Path:        "/api/progress/{uploadId}/snapshot",
		Summary:     "Get current progress for an upload",
		Tags:        []string{"Progress"},
	}, h.GetProgress)
}

// GetProgress returns the current progress frame for an upload.
func (h *ProgressHandler) GetProgress(ctx context.Context, input *GetProgressInput) (*GetProgressOutput, error) {
	entry, ok := h.registry.Get(input.UploadID)
	if !ok {
		return nil, huma.Error404NotFound("upload not found")
	}
	return &GetProgressOutput{Body: entry.Frame(input.UploadID)}, nil
}

// RegisterSSE registers the SSE endpoint on a chi router. Huma has no
// native streaming support, so this is wired as a raw handler alongside
// the huma-registered operations, following the teacher's pattern.
func (h *ProgressHandler) RegisterSSE(router interface {
	Get(pattern string, handlerFn http.HandlerFunc)
}) {
	router.Get("/api/progress/{uploadId}", h.HandleSSE)
}

// HandleSSE streams progress.Frame JSON frames for the given uploadId.
// It polls the registry every 500ms. If the uploadId has never
// materialized after 60s it emits an error event and closes. Once a
// terminal frame is observed, it lingers 3s before closing so slow
// clients still receive it.
func (h *ProgressHandler) HandleSSE(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "uploadId")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	ctx := r.Context()

	ticker := time.NewTicker(progressPollInterval)
	defer ticker.Stop()

	deadline := time.NewTimer(progressMaterializeWait)
	defer deadline.Stop()

	var materialized bool
	var lastFrameJSON string
	var terminalSince time.Time

	writeFrame := func(entry progress.Entry) error {
		frame := entry.Frame(uploadID)
		data, err := json.Marshal(frame)
		if err != nil {
			return err
		}
		if string(data) == lastFrameJSON {
			return nil
		}
		lastFrameJSON = string(data)
		if _, err := fmt.Fprintf(w, "event: progress\ndata: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	for {
		select {
		case <-ctx.Done():
			return

		case <-deadline.C:
			if materialized {
				continue
			}
			fmt.Fprintf(w, "event: error\ndata: {\"error\":\"upload not found\"}\n\n")
			_ = rc.Flush()
			return

		case <-ticker.C:
			entry, ok := h.registry.Get(uploadID)
			if !ok {
				if materialized {
					// Entry was cleaned up; treat as a graceful close.
					return
				}
				continue
			}
			materialized = true

			if err := writeFrame(entry); err != nil {
				slog.Debug("progress SSE write failed, client likely disconnected", "error", err)
				return
			}

			if entry.Status.IsTerminal() {
				if terminalSince.IsZero() {
					terminalSince = time.Now()
				}
				if time.Since(terminalSince) >= progressTerminalLinger {
					return
				}
			}
		}
	}
}

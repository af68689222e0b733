package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/vodforge/internal/apperrors"
	"github.com/jmylchreest/vodforge/internal/ingest"
	"github.com/jmylchreest/vodforge/internal/progress"
)

// cancellableStages are the only progress stages an in-flight upload may
// be cancelled from; once transcoding starts, running FFmpeg subprocesses
// are allowed to finish.
var cancellableStages = map[string]bool{
	"Initializing upload":  true,
	"Queued for processing": true,
	"Receiving chunks":      true,
}

// QueueItem is one row of the queue listing.
type QueueItem struct {
	UploadID  string `json:"upload_id"`
	progress.Entry
}

// QueuesHandler serves the admin queue-listing and cancellation endpoints.
type QueuesHandler struct {
	progress *progress.Registry
	ingest   *ingest.Manager
}

// NewQueuesHandler creates a QueuesHandler.
func NewQueuesHandler(registry *progress.Registry, manager *ingest.Manager) *QueuesHandler {
	return &QueuesHandler{progress: registry, ingest: manager}
}

// Register registers the queue routes with the API, gated behind the
// admin credential.
func (h *QueuesHandler) Register(api huma.API, requireAdmin func(huma.Context, func(huma.Context))) {
	huma.Register(api, huma.Operation{
		OperationID: "listQueues",
		Method:      "GET",
		Path:        "/api/queues",
		Summary:     "List in-flight and recently finished uploads",
		Tags:        []string{"Queues"},
		Middlewares: huma.Middlewares{requireAdmin},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "cancelQueueItem",
		Method:      "POST",
		Path:        "/api/queues/{uploadId}/cancel",
		Summary:     "Cancel an upload that has not started transcoding",
		Tags:        []string{"Queues"},
		Middlewares: huma.Middlewares{requireAdmin},
	}, h.Cancel)
}

// ListOutput is the output for the queue listing.
type ListOutput struct {
	Body struct {
		Items          []QueueItem `json:"items"`
		ActiveCount    int         `json:"active_count"`
		CompletedCount int         `json:"completed_count"`
		FailedCount    int         `json:"failed_count"`
	}
}

// List returns every tracked upload in FIFO order, oldest first.
func (h *QueuesHandler) List(ctx context.Context, input *struct{}) (*ListOutput, error) {
	snapshot := h.progress.Snapshot()

	out := &ListOutput{}
	out.Body.Items = make([]QueueItem, 0, len(snapshot))
	for _, k := range snapshot {
		out.Body.Items = append(out.Body.Items, QueueItem{UploadID: k.UploadID, Entry: k.Entry})
		switch k.Entry.Status {
		case progress.StatusCompleted:
			out.Body.CompletedCount++
		case progress.StatusFailed:
			out.Body.FailedCount++
		default:
			out.Body.ActiveCount++
		}
	}
	return out, nil
}

// CancelInput is the input for cancelling one upload.
type CancelInput struct {
	UploadID string `path:"uploadId"`
}

// CancelOutput is the output for cancelling one upload.
type CancelOutput struct {
	Body struct {
		UploadID string `json:"uploadId"`
		Message  string `json:"message"`
	}
}

// Cancel cancels uploadId if it is still in a cancellable stage: status
// initializing, or one of the pre-transcode stages. Once transcoding is
// underway the job runs to completion and this returns 409.
func (h *QueuesHandler) Cancel(ctx context.Context, input *CancelInput) (*CancelOutput, error) {
	entry, ok := h.progress.Get(input.UploadID)
	if !ok {
		return nil, humaErr(apperrors.NotFound("unknown uploadId"))
	}

	if entry.Status != progress.StatusInitializing && !cancellableStages[entry.Stage] {
		return nil, huma.Error409Conflict("upload is no longer cancellable")
	}

	if err := h.ingest.CancelIfReassembling(input.UploadID); err != nil {
		return nil, humaErr(err)
	}

	h.progress.Upsert(input.UploadID, progress.Entry{
		Stage:     "Failed",
		VideoName: entry.VideoName,
		Status:    progress.StatusFailed,
		Error:     "Cancelled by user",
	})

	out := &CancelOutput{}
	out.Body.UploadID = input.UploadID
	out.Body.Message = "cancelled"
	return out, nil
}

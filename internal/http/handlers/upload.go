package handlers

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/jmylchreest/vodforge/internal/apperrors"
	"github.com/jmylchreest/vodforge/internal/ingest"
	"github.com/jmylchreest/vodforge/internal/pipeline"
	"github.com/jmylchreest/vodforge/internal/progress"
	"github.com/jmylchreest/vodforge/internal/storage"
)

// UploadHandler serves the three upload-admission endpoints: a
// single-shot upload, chunked upload, and finalize-after-chunking. All
// three return as soon as bytes are durably on scratch disk and metadata
// is parsed; the transcode/upload/persist pipeline runs detached and is
// observed only through the Progress Registry.
type UploadHandler struct {
	sandbox  *storage.Sandbox
	ingest   *ingest.Manager
	progress *progress.Registry
	pipeline *pipeline.Pipeline
}

// NewUploadHandler creates an UploadHandler.
func NewUploadHandler(sandbox *storage.Sandbox, manager *ingest.Manager, registry *progress.Registry, pl *pipeline.Pipeline) *UploadHandler {
	return &UploadHandler{sandbox: sandbox, ingest: manager, progress: registry, pipeline: pl}
}

// Register registers the upload routes with the API, each gated behind
// the admin credential.
func (h *UploadHandler) Register(api huma.API, requireAdmin func(huma.Context, func(huma.Context))) {
	huma.Register(api, huma.Operation{
		OperationID:      "upload",
		Method:           "POST",
		Path:             "/api/upload",
		Summary:          "Upload a source video in one shot",
		Tags:             []string{"Upload"},
		RequestBody:      &huma.RequestBody{Content: map[string]*huma.MediaType{"multipart/form-data": {}}},
		SkipValidateBody: true,
		Middlewares:      huma.Middlewares{requireAdmin},
	}, h.Upload)

	huma.Register(api, huma.Operation{
		OperationID:      "uploadChunk",
		Method:           "POST",
		Path:             "/api/upload/chunk",
		Summary:          "Upload one chunk of a chunked upload",
		Tags:             []string{"Upload"},
		RequestBody:      &huma.RequestBody{Content: map[string]*huma.MediaType{"multipart/form-data": {}}},
		SkipValidateBody: true,
		Middlewares:      huma.Middlewares{requireAdmin},
	}, h.UploadChunk)

	huma.Register(api, huma.Operation{
		OperationID: "finalizeUpload",
		Method:      "POST",
		Path:        "/api/upload/finalize",
		Summary:     "Finalize a chunked upload and start transcoding",
		Tags:        []string{"Upload"},
		Middlewares: huma.Middlewares{requireAdmin},
	}, h.Finalize)
}

// UploadInput is the input for a single-shot upload.
type UploadInput struct {
	RawBody multipart.Form
}

// UploadOutput is the output for a single-shot upload.
type UploadOutput struct {
	Body struct {
		UploadID string `json:"uploadId"`
		Message  string `json:"message"`
	}
}

// Upload accepts one complete source file and a name/tags pair in a
// single multipart request, skipping chunk reassembly entirely: the
// uploaded file is written straight to scratch disk under a freshly
// minted uploadId and the background pipeline is started immediately.
func (h *UploadHandler) Upload(ctx context.Context, input *UploadInput) (*UploadOutput, error) {
	files := input.RawBody.File["file"]
	if len(files) == 0 {
		return nil, humaErr(apperrors.ClientProtocol("file", "file is required"))
	}

	file, err := files[0].Open()
	if err != nil {
		return nil, humaErr(apperrors.ClientProtocol("file", "failed to open uploaded file"))
	}
	defer file.Close()

	name := firstValue(input.RawBody.Value["name"])
	if name == "" {
		return nil, humaErr(apperrors.ClientProtocol("name", "name is required"))
	}
	tags := ingest.ParseTags(firstValue(input.RawBody.Value["tags"]))

	uploadID := uuid.NewString()
	assembledRelPath := fmt.Sprintf("%s-%s", uploadID, files[0].Filename)
	writer, err := h.sandbox.OpenFile(assembledRelPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return nil, humaErr(apperrors.Internal(fmt.Errorf("creating upload file: %w", err)))
	}
	if _, err := io.Copy(writer, file); err != nil {
		writer.Close()
		return nil, humaErr(apperrors.Internal(fmt.Errorf("writing upload file: %w", err)))
	}
	writer.Close()

	assembledAbsPath, err := h.sandbox.ResolvePath(assembledRelPath)
	if err != nil {
		return nil, humaErr(apperrors.Internal(fmt.Errorf("resolving upload path: %w", err)))
	}

	h.progress.Upsert(uploadID, progress.Entry{
		Stage:     "Queued for processing",
		VideoName: name,
		Status:    progress.StatusInitializing,
	})

	go h.pipeline.Run(context.Background(), uploadID, ingest.Result{
		AssembledPath: assembledAbsPath,
		VideoName:     name,
		Tags:          tags,
	})

	out := &UploadOutput{}
	out.Body.UploadID = uploadID
	out.Body.Message = "upload accepted"
	return out, nil
}

// UploadChunkInput is the input for one chunk of a chunked upload.
type UploadChunkInput struct {
	UploadID string `header:"X-Upload-ID"`
	RawBody  multipart.Form
}

// UploadChunkOutput is the output for one chunk of a chunked upload.
type UploadChunkOutput struct {
	Body struct {
		UploadID   string `json:"uploadId"`
		ChunkIndex int    `json:"chunkIndex"`
		Received   bool   `json:"received"`
	}
}

// UploadChunk persists one numbered byte range of a chunked upload.
func (h *UploadHandler) UploadChunk(ctx context.Context, input *UploadChunkInput) (*UploadChunkOutput, error) {
	if input.UploadID == "" {
		return nil, humaErr(apperrors.ClientProtocol("X-Upload-ID", "X-Upload-ID header is required"))
	}

	chunks := input.RawBody.File["chunk"]
	if len(chunks) == 0 {
		return nil, humaErr(apperrors.ClientProtocol("chunk", "chunk is required"))
	}
	chunkFile, err := chunks[0].Open()
	if err != nil {
		return nil, humaErr(apperrors.ClientProtocol("chunk", "failed to open chunk"))
	}
	defer chunkFile.Close()
	data, err := io.ReadAll(chunkFile)
	if err != nil {
		return nil, humaErr(apperrors.ClientProtocol("chunk", "failed to read chunk"))
	}

	chunkIndex, err := parseIntField(input.RawBody.Value["chunk_index"])
	if err != nil {
		return nil, humaErr(apperrors.ClientProtocol("chunk_index", "chunk_index must be an integer"))
	}
	totalChunks, err := parseIntField(input.RawBody.Value["total_chunks"])
	if err != nil {
		return nil, humaErr(apperrors.ClientProtocol("total_chunks", "total_chunks must be an integer"))
	}
	fileName := firstValue(input.RawBody.Value["file_name"])

	if err := h.ingest.AcceptChunk(input.UploadID, chunkIndex, totalChunks, fileName, data); err != nil {
		return nil, humaErr(err)
	}

	out := &UploadChunkOutput{}
	out.Body.UploadID = input.UploadID
	out.Body.ChunkIndex = chunkIndex
	out.Body.Received = true
	return out, nil
}

// FinalizeInput is the input for finalizing a chunked upload.
type FinalizeInput struct {
	UploadID string `header:"X-Upload-ID"`
	Body     struct {
		Name string `json:"name"`
		Tags string `json:"tags,omitempty"`
	}
}

// FinalizeOutput is the output for finalizing a chunked upload.
type FinalizeOutput struct {
	Body struct {
		UploadID string `json:"uploadId"`
		Message  string `json:"message"`
	}
}

// Finalize concatenates all received chunks and starts the background
// transcode/upload/persist pipeline.
func (h *UploadHandler) Finalize(ctx context.Context, input *FinalizeInput) (*FinalizeOutput, error) {
	if input.UploadID == "" {
		return nil, humaErr(apperrors.ClientProtocol("X-Upload-ID", "X-Upload-ID header is required"))
	}
	if input.Body.Name == "" {
		return nil, humaErr(apperrors.ClientProtocol("name", "name is required"))
	}

	result, err := h.ingest.Finalize(input.UploadID, input.Body.Name, input.Body.Tags)
	if err != nil {
		return nil, humaErr(err)
	}

	go h.pipeline.Run(context.Background(), input.UploadID, result)

	out := &FinalizeOutput{}
	out.Body.UploadID = input.UploadID
	out.Body.Message = "finalized, processing started"
	return out, nil
}

func firstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func parseIntField(values []string) (int, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("missing value")
	}
	var n int
	if _, err := fmt.Sscanf(values[0], "%d", &n); err != nil {
		return 0, err
	}
	return n, nil
}

// humaErr maps an apperrors.Error onto the matching huma.ErrorXXX
// constructor, following the error taxonomy's Kind->HTTPStatus mapping.
func humaErr(err error) error {
	appErr, ok := apperrors.As(err)
	if !ok {
		return huma.Error500InternalServerError(err.Error())
	}
	switch appErr.HTTPStatus() {
	case 400:
		return huma.Error400BadRequest(appErr.Message)
	case 401:
		return huma.Error401Unauthorized(appErr.Message)
	case 403:
		return huma.Error403Forbidden(appErr.Message)
	case 404:
		return huma.Error404NotFound(appErr.Message)
	case 409:
		return huma.Error409Conflict(appErr.Message)
	default:
		return huma.Error500InternalServerError(appErr.Message)
	}
}

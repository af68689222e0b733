package handlers_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/vodforge/internal/http/handlers"
	"github.com/jmylchreest/vodforge/internal/ingest"
	"github.com/jmylchreest/vodforge/internal/pipeline"
	"github.com/jmylchreest/vodforge/internal/progress"
	"github.com/jmylchreest/vodforge/internal/storage"
)

func setupUploadRouter(t *testing.T) (*chi.Mux, *progress.Registry, *ingest.Manager) {
	t.Helper()
	dir := t.TempDir()
	sandbox, err := storage.NewSandbox(dir)
	require.NoError(t, err)

	registry := progress.NewRegistry()
	manager := ingest.New(sandbox, registry)
	pl := pipeline.New(sandbox, nil, nil, nil, registry, "libx264", "")
	handler := handlers.NewUploadHandler(sandbox, manager, registry, pl)

	router := chi.NewRouter()
	api := humachi.New(router, huma.DefaultConfig("Test API", "1.0.0"))
	handler.Register(api, noopRequireAdmin)
	return router, registry, manager
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName string, fileContent []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	if fileField != "" {
		part, err := writer.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = part.Write(fileContent)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadHandler_Upload_AcceptsSingleShotFile(t *testing.T) {
	router, registry, _ := setupUploadRouter(t)

	body, contentType := multipartBody(t, map[string]string{"name": "My Clip", "tags": "a,b"}, "file", "source.mp4", []byte("fake-bytes"))

	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "uploadId")

	// The synchronous handler writes an initial "Queued" entry before
	// spawning the background pipeline.
	snapshot := registry.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "My Clip", snapshot[0].Entry.VideoName)
}

func TestUploadHandler_Upload_RejectsMissingName(t *testing.T) {
	router, _, _ := setupUploadRouter(t)

	body, contentType := multipartBody(t, map[string]string{}, "file", "source.mp4", []byte("fake-bytes"))

	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadHandler_UploadChunk_RejectsMissingUploadIDHeader(t *testing.T) {
	router, _, _ := setupUploadRouter(t)

	body, contentType := multipartBody(t, map[string]string{"chunk_index": "0", "total_chunks": "1", "file_name": "a.mp4"}, "chunk", "chunk0", []byte("AAA"))

	req := httptest.NewRequest(http.MethodPost, "/api/upload/chunk", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadHandler_ChunkThenFinalize_Succeeds(t *testing.T) {
	router, _, manager := setupUploadRouter(t)

	chunks := []string{"AAA", "BB", "C"}
	for i, chunk := range chunks {
		body, contentType := multipartBody(t, map[string]string{
			"chunk_index":  itoa(i),
			"total_chunks": "3",
			"file_name":    "source.mp4",
		}, "chunk", "chunk", []byte(chunk))

		req := httptest.NewRequest(http.MethodPost, "/api/upload/chunk", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("X-Upload-ID", "U1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/upload/finalize", jsonBody(`{"name":"v","tags":"a,b"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Upload-ID", "U1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	_ = manager
}

func itoa(n int) string {
	return string(rune('0' + n))
}

func jsonBody(s string) *bytes.Reader {
	return bytes.NewReader([]byte(s))
}

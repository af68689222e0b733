package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/vodforge/internal/http/handlers"
	"github.com/jmylchreest/vodforge/internal/ingest"
	"github.com/jmylchreest/vodforge/internal/progress"
	"github.com/jmylchreest/vodforge/internal/storage"
)

func noopRequireAdmin(ctx huma.Context, next func(huma.Context)) { next(ctx) }

func setupQueuesRouter(t *testing.T) (*chi.Mux, *progress.Registry, *ingest.Manager) {
	t.Helper()
	dir := t.TempDir()
	sandbox, err := storage.NewSandbox(dir)
	require.NoError(t, err)

	registry := progress.NewRegistry()
	manager := ingest.New(sandbox, registry)
	handler := handlers.NewQueuesHandler(registry, manager)

	router := chi.NewRouter()
	api := humachi.New(router, huma.DefaultConfig("Test API", "1.0.0"))
	handler.Register(api, noopRequireAdmin)
	return router, registry, manager
}

func TestQueuesHandler_List_OrdersByCreatedAt(t *testing.T) {
	router, registry, _ := setupQueuesRouter(t)

	registry.Upsert("u1", progress.Entry{Stage: "Receiving chunks", Status: progress.StatusProcessing, CreatedAtMillis: 100})
	registry.Upsert("u3", progress.Entry{Stage: "Receiving chunks", Status: progress.StatusProcessing, CreatedAtMillis: 150})
	registry.Upsert("u2", progress.Entry{Stage: "Receiving chunks", Status: progress.StatusProcessing, CreatedAtMillis: 200})

	req := httptest.NewRequest(http.MethodGet, "/api/queues", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"upload_id":"u1"`)
	i1 := strings.Index(body, `"upload_id":"u1"`)
	i3 := strings.Index(body, `"upload_id":"u3"`)
	i2 := strings.Index(body, `"upload_id":"u2"`)
	assert.True(t, i1 >= 0 && i1 < i3 && i3 < i2, "items should be ordered u1, u3, u2 by createdAt")
}

func TestQueuesHandler_Cancel_UnknownUploadReturns404(t *testing.T) {
	router, _, _ := setupQueuesRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/queues/missing/cancel", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueuesHandler_Cancel_RejectsOnceTranscoding(t *testing.T) {
	router, registry, _ := setupQueuesRouter(t)

	registry.Upsert("u1", progress.Entry{Stage: "FFmpeg processing", Status: progress.StatusProcessing})

	req := httptest.NewRequest(http.MethodPost, "/api/queues/u1/cancel", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestQueuesHandler_Cancel_SucceedsWhileReceivingChunks(t *testing.T) {
	router, registry, _ := setupQueuesRouter(t)

	registry.Upsert("u1", progress.Entry{Stage: "Receiving chunks", Status: progress.StatusProcessing})

	req := httptest.NewRequest(http.MethodPost, "/api/queues/u1/cancel", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	entry, ok := registry.Get("u1")
	require.True(t, ok)
	assert.Equal(t, progress.StatusFailed, entry.Status)
	assert.Equal(t, "Cancelled by user", entry.Error)
}

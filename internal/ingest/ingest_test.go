package ingest

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/vodforge/internal/apperrors"
	"github.com/jmylchreest/vodforge/internal/progress"
	"github.com/jmylchreest/vodforge/internal/storage"
)

func newTestManager(t *testing.T) (*Manager, *progress.Registry) {
	t.Helper()
	dir := t.TempDir()
	sandbox, err := storage.NewSandbox(dir)
	require.NoError(t, err)
	registry := progress.NewRegistry()
	return New(sandbox, registry), registry
}

func TestChunkReassembly_ConcreteScenario(t *testing.T) {
	m, registry := newTestManager(t)

	require.NoError(t, m.AcceptChunk("U1", 0, 3, "v.mp4", []byte("AAA")))
	require.NoError(t, m.AcceptChunk("U1", 1, 3, "v.mp4", []byte("BB")))
	require.NoError(t, m.AcceptChunk("U1", 2, 3, "v.mp4", []byte("C")))

	entry, ok := registry.Get("U1")
	require.True(t, ok)
	assert.Equal(t, "Receiving chunks", entry.Stage)
	assert.Equal(t, 100, entry.Percentage)

	result, err := m.Finalize("U1", "v", "a,b")
	require.NoError(t, err)

	data, err := os.ReadFile(result.AssembledPath)
	require.NoError(t, err)
	assert.Equal(t, "AAABBC", string(data))
	assert.Equal(t, "v", result.VideoName)
	assert.Equal(t, []string{"a", "b"}, result.Tags)
}

func TestAcceptChunk_IdempotentRewrite(t *testing.T) {
	m, _ := newTestManager(t)

	require.NoError(t, m.AcceptChunk("U1", 0, 2, "v.mp4", []byte("AA")))
	require.NoError(t, m.AcceptChunk("U1", 0, 2, "v.mp4", []byte("AA")))
	require.NoError(t, m.AcceptChunk("U1", 1, 2, "v.mp4", []byte("BB")))

	result, err := m.Finalize("U1", "v", "")
	require.NoError(t, err)

	data, err := os.ReadFile(result.AssembledPath)
	require.NoError(t, err)
	assert.Equal(t, "AABB", string(data))
}

func TestAcceptChunk_RejectsOutOfRangeIndex(t *testing.T) {
	m, _ := newTestManager(t)

	err := m.AcceptChunk("U1", 5, 3, "v.mp4", []byte("x"))
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindClientProtocol, appErr.Kind)
}

func TestAcceptChunk_RejectsMismatchedMetadata(t *testing.T) {
	m, _ := newTestManager(t)

	require.NoError(t, m.AcceptChunk("U1", 0, 3, "v.mp4", []byte("A")))

	err := m.AcceptChunk("U1", 1, 5, "v.mp4", []byte("B"))
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindClientProtocol, appErr.Kind)

	err = m.AcceptChunk("U1", 1, 3, "other.mp4", []byte("B"))
	require.Error(t, err)
}

func TestFinalize_IncompleteUpload(t *testing.T) {
	m, _ := newTestManager(t)

	require.NoError(t, m.AcceptChunk("U1", 0, 2, "v.mp4", []byte("A")))

	_, err := m.Finalize("U1", "v", "")
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindIncompleteUpload, appErr.Kind)
}

func TestFinalize_UnknownUploadID(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Finalize("missing", "v", "")
	require.Error(t, err)
}

func TestCancelIfReassembling(t *testing.T) {
	m, _ := newTestManager(t)

	require.NoError(t, m.AcceptChunk("U1", 0, 2, "v.mp4", []byte("A")))
	require.NoError(t, m.CancelIfReassembling("U1"))

	_, err := m.Finalize("U1", "v", "")
	require.Error(t, err, "upload record should be gone after cancel")
}

func TestCancelIfReassembling_UnknownUploadIsNoop(t *testing.T) {
	m, _ := newTestManager(t)
	assert.NoError(t, m.CancelIfReassembling("missing"))
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty", "", nil},
		{"comma separated", "a,b,c", []string{"a", "b", "c"}},
		{"comma separated with spaces", "a, b ,c", []string{"a", "b", "c"}},
		{"json array", `["a","b"]`, []string{"a", "b"}},
		{"drops blank entries", "a,,b", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseTags(tt.input))
		})
	}
}

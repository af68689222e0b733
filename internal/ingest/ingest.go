// Package ingest implements the Chunk Reassembler: it accepts chunked
// uploads into a per-upload scratch directory, tracks which chunks have
// arrived, and concatenates them into a single file once complete.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jmylchreest/vodforge/internal/apperrors"
	"github.com/jmylchreest/vodforge/internal/progress"
	"github.com/jmylchreest/vodforge/internal/storage"
)

// record tracks one in-progress chunked upload.
type record struct {
	fileName    string
	totalChunks int
	received    []bool
}

func (r *record) receivedCount() int {
	n := 0
	for _, ok := range r.received {
		if ok {
			n++
		}
	}
	return n
}

func (r *record) allReceived() bool {
	for _, ok := range r.received {
		if !ok {
			return false
		}
	}
	return true
}

// Manager is the Chunk Reassembler. It owns no state beyond in-flight
// reassembly records; the chunks themselves live in the sandbox.
type Manager struct {
	sandbox  *storage.Sandbox
	progress *progress.Registry

	mu      sync.Mutex
	records map[string]*record
}

// New creates a Chunk Reassembler rooted at sandbox, reporting lifecycle
// state through registry.
func New(sandbox *storage.Sandbox, registry *progress.Registry) *Manager {
	return &Manager{
		sandbox:  sandbox,
		progress: registry,
		records:  make(map[string]*record),
	}
}

func chunkedDir(uploadID string) string {
	return fmt.Sprintf("chunked-%s", uploadID)
}

func chunkFileName(chunkIndex int) string {
	return fmt.Sprintf("chunk_%06d", chunkIndex)
}

// AcceptChunk persists bytes for one chunk of uploadId. On the first chunk
// seen for a given uploadId it initializes the reassembly record and an
// initial "Receiving chunks" ProgressEntry. Rewriting the same
// (uploadId, chunkIndex) is idempotent. Chunks whose totalChunks or
// fileName disagree with the record already on file are rejected.
func (m *Manager) AcceptChunk(uploadID string, chunkIndex, totalChunks int, fileName string, data []byte) error {
	if chunkIndex < 0 || totalChunks <= 0 || chunkIndex >= totalChunks {
		return apperrors.ClientProtocol("chunk_index", "chunk index out of range")
	}
	if fileName == "" {
		return apperrors.ClientProtocol("file_name", "file_name is required")
	}

	m.mu.Lock()
	rec, exists := m.records[uploadID]
	if !exists {
		rec = &record{
			fileName:    fileName,
			totalChunks: totalChunks,
			received:    make([]bool, totalChunks),
		}
		m.records[uploadID] = rec
	} else if rec.totalChunks != totalChunks || rec.fileName != fileName {
		m.mu.Unlock()
		return apperrors.ClientProtocol("total_chunks", "chunk metadata does not match the in-progress upload")
	}
	rec.received[chunkIndex] = true
	receivedCount := rec.receivedCount()
	total := rec.totalChunks
	m.mu.Unlock()

	chunkPath := fmt.Sprintf("%s/%s", chunkedDir(uploadID), chunkFileName(chunkIndex))
	if err := m.sandbox.WriteFile(chunkPath, data); err != nil {
		return apperrors.Internal(fmt.Errorf("writing chunk: %w", err))
	}

	percentage := receivedCount * 100 / total
	m.progress.Upsert(uploadID, progress.Entry{
		Stage:       "Receiving chunks",
		CurrentUnit: receivedCount,
		TotalUnits:  total,
		Percentage:  percentage,
		Status:      progress.StatusProcessing,
	})

	return nil
}

// Result is what Finalize hands back to the pipeline stage that follows
// reassembly.
type Result struct {
	AssembledPath string
	VideoName     string
	Tags          []string
}

// Finalize concatenates all chunks for uploadId, in ascending numeric
// order, into a single file, then removes the chunked scratch directory
// and the reassembly record. Fails with apperrors.IncompleteUpload if any
// chunk is still missing.
func (m *Manager) Finalize(uploadID, videoName, tagsCSV string) (Result, error) {
	m.mu.Lock()
	rec, ok := m.records[uploadID]
	if !ok {
		m.mu.Unlock()
		return Result{}, apperrors.ClientProtocol("upload_id", "unknown uploadId")
	}
	if !rec.allReceived() {
		m.mu.Unlock()
		return Result{}, apperrors.IncompleteUpload(fmt.Sprintf("%d/%d chunks received", rec.receivedCount(), rec.totalChunks))
	}
	fileName := rec.fileName
	totalChunks := rec.totalChunks
	m.mu.Unlock()

	m.progress.Upsert(uploadID, progress.Entry{
		Stage:      "Assembling file",
		Percentage: 0,
		Status:     progress.StatusProcessing,
	})

	assembledRelPath := fmt.Sprintf("%s-%s", uuid.NewString(), fileName)
	writer, err := m.sandbox.OpenFile(assembledRelPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return Result{}, apperrors.Internal(fmt.Errorf("creating assembled file: %w", err))
	}
	defer writer.Close()

	for i := 0; i < totalChunks; i++ {
		chunkPath := fmt.Sprintf("%s/%s", chunkedDir(uploadID), chunkFileName(i))
		data, err := m.sandbox.ReadFile(chunkPath)
		if err != nil {
			return Result{}, apperrors.Internal(fmt.Errorf("reading chunk %d: %w", i, err))
		}
		if _, err := writer.Write(data); err != nil {
			return Result{}, apperrors.Internal(fmt.Errorf("writing chunk %d to assembled file: %w", i, err))
		}
	}

	if err := m.sandbox.RemoveAll(chunkedDir(uploadID)); err != nil {
		return Result{}, apperrors.Internal(fmt.Errorf("removing chunked scratch directory: %w", err))
	}

	m.mu.Lock()
	delete(m.records, uploadID)
	m.mu.Unlock()

	assembledAbsPath, err := m.sandbox.ResolvePath(assembledRelPath)
	if err != nil {
		return Result{}, apperrors.Internal(fmt.Errorf("resolving assembled path: %w", err))
	}

	return Result{
		AssembledPath: assembledAbsPath,
		VideoName:     videoName,
		Tags:          ParseTags(tagsCSV),
	}, nil
}

// CancelIfReassembling removes the scratch directory and reassembly
// record for uploadId, if one exists. A no-op if uploadId is unknown.
func (m *Manager) CancelIfReassembling(uploadID string) error {
	m.mu.Lock()
	_, ok := m.records[uploadID]
	if ok {
		delete(m.records, uploadID)
	}
	m.mu.Unlock()

	if !ok {
		return nil
	}

	if err := m.sandbox.RemoveAll(chunkedDir(uploadID)); err != nil {
		return apperrors.Internal(fmt.Errorf("removing chunked scratch directory: %w", err))
	}
	return nil
}

// ParseTags parses a tags field that may be a JSON array (`["a","b"]`) or a
// comma-separated string (`a,b`). Blank entries are dropped.
func ParseTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	if strings.HasPrefix(raw, "[") {
		var tags []string
		if err := json.Unmarshal([]byte(raw), &tags); err == nil {
			return dropBlank(tags)
		}
	}

	return dropBlank(strings.Split(raw, ","))
}

func dropBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

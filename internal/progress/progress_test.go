package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_UpsertPreservesCreatedAt(t *testing.T) {
	r := NewRegistry()

	r.Upsert("u1", Entry{Stage: "Receiving chunks", Status: StatusInitializing})
	first, ok := r.Get("u1")
	require.True(t, ok)
	require.NotZero(t, first.CreatedAtMillis)

	r.Upsert("u1", Entry{Stage: "Probing", Status: StatusProcessing, CreatedAtMillis: 1})
	second, ok := r.Get("u1")
	require.True(t, ok)
	assert.Equal(t, first.CreatedAtMillis, second.CreatedAtMillis)
	assert.Equal(t, "Probing", second.Stage)
}

func TestRegistry_GetMissing(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_Delete(t *testing.T) {
	r := NewRegistry()
	r.Upsert("u1", Entry{Stage: "x", Status: StatusProcessing})
	r.Delete("u1")
	_, ok := r.Get("u1")
	assert.False(t, ok)
}

func TestRegistry_SnapshotOrderedByCreatedAt(t *testing.T) {
	r := NewRegistry()
	r.Upsert("first", Entry{Stage: "a", Status: StatusProcessing, CreatedAtMillis: 100})
	r.Upsert("second", Entry{Stage: "b", Status: StatusProcessing, CreatedAtMillis: 200})
	r.Upsert("third", Entry{Stage: "c", Status: StatusProcessing, CreatedAtMillis: 50})

	snap := r.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "third", snap[0].UploadID)
	assert.Equal(t, "first", snap[1].UploadID)
	assert.Equal(t, "second", snap[2].UploadID)
}

func TestRegistry_TerminalEntryCleanedUpAfterDelay(t *testing.T) {
	r := NewRegistry()
	r.entries["u1"] = Entry{Stage: "Completed", Status: StatusCompleted, CreatedAtMillis: 1}
	r.timers["u1"] = time.AfterFunc(10*time.Millisecond, func() {
		r.cleanupIfStillTerminal("u1", StatusCompleted)
	})

	_, ok := r.Get("u1")
	assert.True(t, ok)

	time.Sleep(30 * time.Millisecond)
	_, ok = r.Get("u1")
	assert.False(t, ok)
}

func TestRegistry_ReassignmentCancelsPendingCleanup(t *testing.T) {
	r := NewRegistry()
	r.Upsert("u1", Entry{Stage: "Completed", Status: StatusCompleted})

	// Reassign to a new terminal entry before the original cleanup fires;
	// Upsert stops the prior timer and schedules a fresh one.
	r.Upsert("u1", Entry{Stage: "Failed", Status: StatusFailed})

	entry, ok := r.Get("u1")
	require.True(t, ok)
	assert.Equal(t, StatusFailed, entry.Status)
}

func TestEntry_Frame(t *testing.T) {
	e := Entry{
		Stage:       "Upload to R2",
		CurrentUnit: 2,
		TotalUnits:  4,
		Percentage:  50,
		HumanDetail: "uploading segment_002.ts",
		Status:      StatusProcessing,
	}
	f := e.Frame("u1")
	assert.Equal(t, "Upload to R2", f.Stage)
	assert.Equal(t, 2, f.CurrentChunk)
	assert.Equal(t, 4, f.TotalChunks)
	assert.Nil(t, f.Result)

	done := Entry{Stage: "Completed", Status: StatusCompleted, Result: "https://example.com/player/u1"}
	f2 := done.Frame("u1")
	require.NotNil(t, f2.Result)
	assert.Equal(t, "u1", f2.Result.UploadID)
	assert.Equal(t, "https://example.com/player/u1", f2.Result.PlayerURL)
}

// Package progress tracks the observable lifecycle of uploads as they
// move through chunk reassembly, probing, transcoding and upload. It is
// read by SSE streamers and written by every pipeline stage.
package progress

import (
	"sort"
	"sync"
	"time"
)

// Status is the lifecycle status of an upload.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusProcessing   Status = "processing"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

// IsTerminal reports whether no further transitions are expected.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Entry is the observable state of one upload's lifecycle.
type Entry struct {
	Stage          string `json:"stage"`
	CurrentUnit    int    `json:"currentUnit"`
	TotalUnits     int    `json:"totalUnits"`
	Percentage     int    `json:"percentage"`
	HumanDetail    string `json:"humanDetail"`
	Status         Status `json:"status"`
	Result         string `json:"result,omitempty"`
	Error          string `json:"error,omitempty"`
	VideoName      string `json:"videoName,omitempty"`
	CreatedAtMillis int64 `json:"createdAtMillis"`
}

// clone returns a value copy; Entry has no reference fields so a plain
// copy is already a safe snapshot.
func (e Entry) clone() Entry { return e }

// terminalCleanupDelay is how long a terminal entry is retained so that
// slow SSE subscribers still observe the terminal frame.
const terminalCleanupDelay = 10 * time.Second

// Registry is a keyed mapping from uploadId to Entry with
// single-writer-multi-reader concurrency, guarded by a RWMutex per the
// teacher's progress service. All operations are infallible.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
	timers  map[string]*time.Timer
}

// NewRegistry creates an empty progress registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]Entry),
		timers:  make(map[string]*time.Timer),
	}
}

// Upsert writes entry for uploadId. createdAtMillis is monotonic: if a
// prior entry exists, its createdAtMillis is preserved regardless of what
// the caller passed in. Otherwise the incoming value is used, defaulting
// to now if zero. If the new status is terminal, a cleanup is scheduled
// after terminalCleanupDelay unless the entry is reassigned in the
// interim.
func (r *Registry) Upsert(uploadID string, entry Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prior, ok := r.entries[uploadID]; ok {
		entry.CreatedAtMillis = prior.CreatedAtMillis
	} else if entry.CreatedAtMillis == 0 {
		entry.CreatedAtMillis = time.Now().UnixMilli()
	}

	r.entries[uploadID] = entry

	if t, ok := r.timers[uploadID]; ok {
		t.Stop()
		delete(r.timers, uploadID)
	}

	if entry.Status.IsTerminal() {
		r.timers[uploadID] = time.AfterFunc(terminalCleanupDelay, func() {
			r.cleanupIfStillTerminal(uploadID, entry.Status)
		})
	}
}

// cleanupIfStillTerminal deletes uploadID only if its status has not
// moved on to some other terminal status since the timer was scheduled.
func (r *Registry) cleanupIfStillTerminal(uploadID string, scheduledFor Status) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.entries[uploadID]
	if !ok {
		return
	}
	if current.Status == scheduledFor {
		delete(r.entries, uploadID)
	}
	delete(r.timers, uploadID)
}

// Get returns a snapshot copy of the entry for uploadId, or false if
// none exists.
func (r *Registry) Get(uploadID string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[uploadID]
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

// Delete removes the entry for uploadId, if any.
func (r *Registry) Delete(uploadID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, uploadID)
	if t, ok := r.timers[uploadID]; ok {
		t.Stop()
		delete(r.timers, uploadID)
	}
}

// Result describes the outcome of a successfully completed upload.
type Result struct {
	PlayerURL string `json:"player_url"`
	UploadID  string `json:"upload_id"`
}

// Frame is the wire format emitted by the progress SSE stream: one JSON
// object per event.
type Frame struct {
	Stage        string  `json:"stage"`
	CurrentChunk int     `json:"current_chunk"`
	TotalChunks  int     `json:"total_chunks"`
	Percentage   int     `json:"percentage"`
	Details      string  `json:"details,omitempty"`
	Status       Status  `json:"status"`
	Result       *Result `json:"result,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// Frame converts an Entry into the SSE wire format for the given upload.
func (e Entry) Frame(uploadID string) Frame {
	f := Frame{
		Stage:        e.Stage,
		CurrentChunk: e.CurrentUnit,
		TotalChunks:  e.TotalUnits,
		Percentage:   e.Percentage,
		Details:      e.HumanDetail,
		Status:       e.Status,
		Error:        e.Error,
	}
	if e.Status == StatusCompleted && e.Result != "" {
		f.Result = &Result{PlayerURL: e.Result, UploadID: uploadID}
	}
	return f
}

// Keyed pairs an uploadId with its Entry, for ordered snapshot results.
type Keyed struct {
	UploadID string
	Entry    Entry
}

// Snapshot returns every entry sorted ascending by createdAtMillis
// (FIFO queue order).
func (r *Registry) Snapshot() []Keyed {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Keyed, 0, len(r.entries))
	for id, e := range r.entries {
		result = append(result, Keyed{UploadID: id, Entry: e.clone()})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Entry.CreatedAtMillis < result[j].Entry.CreatedAtMillis
	})
	return result
}

// Package presence implements the Presence Tracker: an in-memory,
// sliding-window record of which clients are actively watching which
// videos, driving the realtime-analytics SSE stream.
package presence

import (
	"sync"
	"time"
)

// viewerTimeout is how long a viewer is considered present without a
// fresh heartbeat.
const viewerTimeout = 30 * time.Second

// Tracker holds {videoId -> {viewerKey -> lastHeartbeat}} under a single
// mutex. All operations are O(videos*viewers) or better and safe for
// concurrent use.
type Tracker struct {
	mu      sync.Mutex
	viewers map[string]map[string]time.Time
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{viewers: make(map[string]map[string]time.Time)}
}

// Heartbeat upserts the last-seen time for (clientIP, userAgent) watching
// videoId. O(1).
func (t *Tracker) Heartbeat(videoID, clientIP, userAgent string) {
	t.HeartbeatAt(videoID, clientIP, userAgent, time.Now())
}

// HeartbeatAt is Heartbeat with an explicit timestamp, exposed for tests.
func (t *Tracker) HeartbeatAt(videoID, clientIP, userAgent string, at time.Time) {
	key := viewerKey(clientIP, userAgent)

	t.mu.Lock()
	defer t.mu.Unlock()

	video, ok := t.viewers[videoID]
	if !ok {
		video = make(map[string]time.Time)
		t.viewers[videoID] = video
	}
	video[key] = at
}

// SnapshotAndEvict drops viewers whose last heartbeat is viewerTimeout or
// more before now, drops videos whose viewer set becomes
// empty, and returns the live viewer count per remaining video. Intended
// to be called periodically (every 2s) by the realtime-analytics stream.
func (t *Tracker) SnapshotAndEvict() map[string]int {
	return t.snapshotAndEvictAt(time.Now())
}

func (t *Tracker) snapshotAndEvictAt(now time.Time) map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	counts := make(map[string]int)
	for videoID, video := range t.viewers {
		for key, lastSeen := range video {
			if now.Sub(lastSeen) >= viewerTimeout {
				delete(video, key)
			}
		}
		if len(video) == 0 {
			delete(t.viewers, videoID)
			continue
		}
		counts[videoID] = len(video)
	}
	return counts
}

func viewerKey(clientIP, userAgent string) string {
	return clientIP + "-" + userAgent
}

package ffprobe

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// skipIfNoFFprobe skips the test if ffprobe is not installed.
func skipIfNoFFprobe(t *testing.T) string {
	t.Helper()
	path, err := exec.LookPath("ffprobe")
	if err != nil {
		t.Skip("ffprobe not installed")
	}
	return path
}

// skipIfNoFFmpeg skips the test if ffmpeg is not installed.
func skipIfNoFFmpeg(t *testing.T) string {
	t.Helper()
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not installed")
	}
	return path
}

func TestGuessMimetype(t *testing.T) {
	tests := []struct {
		filename string
		expected string
	}{
		{"NotoSans.ttf", "font/ttf"},
		{"NotoSans.TTF", "font/ttf"},
		{"NotoSans.otf", "font/otf"},
		{"NotoSans.woff", "font/woff"},
		{"NotoSans.woff2", "font/woff2"},
		{"cover.jpg", "application/octet-stream"},
		{"noextension", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.expected, guessMimetype(tt.filename))
		})
	}
}

func TestProbeChapters_DropsMalformedTimes(t *testing.T) {
	result := chapterProbe{}
	result.Chapters = append(result.Chapters,
		struct {
			StartTime string `json:"start_time"`
			EndTime   string `json:"end_time"`
			Tags      struct {
				Title string `json:"title"`
			} `json:"tags"`
		}{StartTime: "0.0", EndTime: "60.0"},
	)
	result.Chapters[0].Tags.Title = "Intro"
	result.Chapters = append(result.Chapters,
		struct {
			StartTime string `json:"start_time"`
			EndTime   string `json:"end_time"`
			Tags      struct {
				Title string `json:"title"`
			} `json:"tags"`
		}{StartTime: "not-a-number", EndTime: "120.0"},
		struct {
			StartTime string `json:"start_time"`
			EndTime   string `json:"end_time"`
			Tags      struct {
				Title string `json:"title"`
			} `json:"tags"`
		}{StartTime: "60.0", EndTime: "60.0"},
		struct {
			StartTime string `json:"start_time"`
			EndTime   string `json:"end_time"`
			Tags      struct {
				Title string `json:"title"`
			} `json:"tags"`
		}{StartTime: "-5.0", EndTime: "10.0"},
	)

	out := filterValidChapters(result)
	require.Len(t, out, 1)
	assert.Equal(t, "Intro", out[0].Title)
}

func TestIntegration_ProbeMetadata(t *testing.T) {
	ffprobePath := skipIfNoFFprobe(t)
	ffmpegPath := skipIfNoFFmpeg(t)
	ctx := context.Background()

	testFile := t.TempDir() + "/test.mp4"
	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-y",
		"-f", "lavfi", "-i", "testsrc=duration=1:size=1280x720:rate=30",
		"-f", "lavfi", "-i", "sine=duration=1:frequency=440:sample_rate=48000",
		"-c:v", "libx264", "-preset", "ultrafast",
		"-c:a", "aac",
		testFile)
	if err := cmd.Run(); err != nil {
		t.Skipf("could not create test video: %v", err)
	}

	prober := New(ffprobePath, 10*time.Second)
	meta, err := prober.ProbeMetadata(ctx, testFile)
	require.NoError(t, err)
	assert.Equal(t, 720, meta.SourceHeight)
	assert.InDelta(t, 1.0, meta.DurationSeconds, 0.5)
}

func TestIntegration_ProbeSubtitles_EmptyWhenNone(t *testing.T) {
	ffprobePath := skipIfNoFFprobe(t)
	ffmpegPath := skipIfNoFFmpeg(t)
	ctx := context.Background()

	testFile := t.TempDir() + "/test.mp4"
	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-y",
		"-f", "lavfi", "-i", "testsrc=duration=1:size=320x240:rate=30",
		"-c:v", "libx264", "-preset", "ultrafast",
		testFile)
	if err := cmd.Run(); err != nil {
		t.Skipf("could not create test video: %v", err)
	}

	prober := New(ffprobePath, 10*time.Second)
	subs, err := prober.ProbeSubtitles(ctx, testFile)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestIntegration_ProbeChapters_EmptyWhenNone(t *testing.T) {
	ffprobePath := skipIfNoFFprobe(t)
	ffmpegPath := skipIfNoFFmpeg(t)
	ctx := context.Background()

	testFile := t.TempDir() + "/test.mp4"
	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-y",
		"-f", "lavfi", "-i", "testsrc=duration=1:size=320x240:rate=30",
		"-c:v", "libx264", "-preset", "ultrafast",
		testFile)
	if err := cmd.Run(); err != nil {
		t.Skipf("could not create test video: %v", err)
	}

	prober := New(ffprobePath, 10*time.Second)
	chapters, err := prober.ProbeChapters(ctx, testFile)
	require.NoError(t, err)
	assert.Empty(t, chapters)
}

func TestProbeMetadata_FailsOnMissingBinary(t *testing.T) {
	prober := New("/nonexistent/ffprobe", time.Second)
	_, err := prober.ProbeMetadata(context.Background(), "/nonexistent/file.mp4")
	require.Error(t, err)
}

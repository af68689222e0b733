package playback

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/vodforge/internal/models"
)

func TestBuildSubtitleConfigs_NamesAndDefault(t *testing.T) {
	subs := []models.Subtitle{
		{TrackIndex: 0, Codec: "subrip", Language: "en", IsDefault: false},
		{TrackIndex: 1, Codec: "ass", Title: "Commentary", IsDefault: true},
	}
	configs := buildSubtitleConfigs("v1", subs)
	require.Len(t, configs, 2)
	assert.Equal(t, "en", configs[0].Name)
	assert.Equal(t, "/api/videos/v1/subtitles/0.srt", configs[0].URL)
	assert.False(t, configs[0].Default)
	assert.Equal(t, "Commentary", configs[1].Name)
	assert.Equal(t, "/api/videos/v1/subtitles/1.ass", configs[1].URL)
	assert.True(t, configs[1].Default)
}

func TestBuildSubtitleConfigs_FallsBackToFirstWhenNoDefault(t *testing.T) {
	subs := []models.Subtitle{
		{TrackIndex: 0, Codec: "ass"},
		{TrackIndex: 1, Codec: "ass"},
	}
	configs := buildSubtitleConfigs("v1", subs)
	require.Len(t, configs, 2)
	assert.True(t, configs[0].Default)
	assert.False(t, configs[1].Default)
}

func TestBuildChapterConfigs_DropsInvalidRanges(t *testing.T) {
	chapters := []models.Chapter{
		{Ordinal: 0, StartSec: 0, EndSec: 10, Title: "Intro"},
		{Ordinal: 1, StartSec: 10, EndSec: 10, Title: "Zero length"},
		{Ordinal: 2, StartSec: -1, EndSec: 5, Title: "Negative start"},
	}
	configs := buildChapterConfigs(chapters)
	require.Len(t, configs, 1)
	assert.Equal(t, "Intro", configs[0].Title)
}

func TestRenderPlayerPage_EscapesTitleAndEmbedsJSON(t *testing.T) {
	video := &models.Video{
		ID:   "v1",
		Name: "<script>alert(1)</script>",
		Subtitles: []models.Subtitle{
			{TrackIndex: 0, Codec: "srt", Title: "Track \"one\"", IsDefault: true},
		},
	}
	html := renderPlayerPage("v1", video)
	assert.NotContains(t, html, "<script>alert(1)</script>")
	assert.Contains(t, html, "&lt;script&gt;")
	assert.Contains(t, html, `"Track \"one\""`)
	assert.True(t, strings.Contains(html, "/hls/v1/index.m3u8"))
}

func TestRenderPlayerPage_OmitsSubtitleBootstrapWhenNone(t *testing.T) {
	video := &models.Video{ID: "v2", Name: "Plain"}
	html := renderPlayerPage("v2", video)
	assert.NotContains(t, html, "JASSUB")
	assert.NotContains(t, html, "const subtitles")
}

package playback

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmylchreest/vodforge/internal/models"
)

// subtitleConfig is the shape embedded as a literal JS array for the
// player's subtitle menu.
type subtitleConfig struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Default bool   `json:"default"`
}

type chapterConfig struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Title string  `json:"title"`
}

// renderPlayerPage builds the full player HTML document for video,
// embedding its chapters, subtitle tracks, and font attachment URLs as
// JSON literals in a generated bootstrap script.
func renderPlayerPage(videoID string, video *models.Video) string {
	subtitles := buildSubtitleConfigs(videoID, video.Subtitles)
	fonts := buildFontURLs(videoID, video.Attachments)
	chapters := buildChapterConfigs(video.Chapters)

	hasSubtitles := len(subtitles) > 0
	hasMultipleSubtitles := len(subtitles) > 1
	hasFonts := len(fonts) > 0
	hasChapters := len(chapters) > 0

	var plugins []string
	plugins = append(plugins, `artplayerPluginHlsControl({
            quality: { control: true, setting: true, getName: (level) => level.height + 'P', title: 'Quality', auto: 'Auto' },
        })`)
	plugins = append(plugins, `artplayerPluginAutoThumbnail({ width: 160, number: 100 })`)
	if hasChapters {
		plugins = append(plugins, `artplayerPluginChapter({ chapters: chapters })`)
	}

	var scripts []string
	scripts = append(scripts,
		`<script src="https://cdn.jsdelivr.net/npm/hls.js/dist/hls.min.js"></script>`,
		`<script src="https://cdn.jsdelivr.net/npm/artplayer/dist/artplayer.min.js"></script>`,
		`<script src="https://cdn.jsdelivr.net/npm/artplayer-plugin-hls-control/dist/artplayer-plugin-hls-control.min.js"></script>`,
	)
	if hasSubtitles {
		scripts = append(scripts, `<script src="https://cdn.jsdelivr.net/npm/jassub/dist/jassub.umd.js"></script>`)
	}
	scripts = append(scripts, `<script src="https://cdn.jsdelivr.net/npm/artplayer-plugin-auto-thumbnail/dist/artplayer-plugin-auto-thumbnail.min.js"></script>`)
	if hasChapters {
		scripts = append(scripts, `<script src="https://cdn.jsdelivr.net/npm/artplayer-plugin-chapter/dist/artplayer-plugin-chapter.min.js"></script>`)
	}

	bootstrap := buildBootstrapScript(videoID, subtitles, fonts, chapters, hasFonts, hasMultipleSubtitles, strings.Join(plugins, ",\n            "))

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
    <style>
        body, html { margin: 0; padding: 0; width: 100%%; height: 100%%; background: #000; overflow: hidden; }
        #artplayer { width: 100%%; height: 100%%; position: relative; }
        #artplayer canvas { position: absolute; top: 0; left: 0; pointer-events: none; z-index: 10; }
    </style>
</head>
<body>
    <div id="artplayer"></div>
    %s
    <script>%s</script>
</body>
</html>`, htmlEscapeTitle(video.Name), strings.Join(scripts, "\n    "), bootstrap)
}

func buildSubtitleConfigs(videoID string, subs []models.Subtitle) []subtitleConfig {
	var defaultSeen bool
	configs := make([]subtitleConfig, 0, len(subs))
	for _, s := range subs {
		name := s.Title
		if name == "" {
			name = s.Language
		}
		if name == "" {
			name = fmt.Sprintf("Track %d", s.TrackIndex)
		}
		ext := subtitleExt(s.Codec)
		isDefault := s.IsDefault && !defaultSeen
		if isDefault {
			defaultSeen = true
		}
		configs = append(configs, subtitleConfig{
			Name:    name,
			URL:     fmt.Sprintf("/api/videos/%s/subtitles/%d.%s", videoID, s.TrackIndex, ext),
			Default: isDefault,
		})
	}
	if !defaultSeen && len(configs) > 0 {
		configs[0].Default = true
	}
	return configs
}

func subtitleExt(codec string) string {
	switch strings.ToLower(codec) {
	case "ass", "ssa":
		return "ass"
	case "subrip", "srt":
		return "srt"
	default:
		return "ass"
	}
}

func buildFontURLs(videoID string, attachments []models.Attachment) []string {
	urls := make([]string, 0, len(attachments))
	for _, a := range attachments {
		urls = append(urls, fmt.Sprintf("/api/videos/%s/attachments/%s", videoID, a.Filename))
	}
	return urls
}

func buildChapterConfigs(chapters []models.Chapter) []chapterConfig {
	configs := make([]chapterConfig, 0, len(chapters))
	for _, c := range chapters {
		if c.StartSec < 0 || c.EndSec <= c.StartSec {
			continue
		}
		configs = append(configs, chapterConfig{Start: c.StartSec, End: c.EndSec, Title: c.Title})
	}
	return configs
}

// buildBootstrapScript assembles the init JS. Every interpolated string
// goes through encoding/json.Marshal before reaching the script body, so
// no subtitle name, font filename, or chapter title can break out of its
// literal.
func buildBootstrapScript(videoID string, subtitles []subtitleConfig, fonts []string, chapters []chapterConfig, hasFonts, hasMultipleSubtitles bool, pluginsJS string) string {
	var b strings.Builder

	b.WriteString("let viewTracked = false;\nlet heartbeatStarted = false;\nlet art = null;\n")

	if len(subtitles) > 0 {
		data, _ := json.Marshal(subtitles)
		fmt.Fprintf(&b, "const subtitles = %s;\n", data)
	}
	if len(fonts) > 0 {
		data, _ := json.Marshal(fonts)
		fmt.Fprintf(&b, "const fonts = %s;\n", data)
	}
	if len(chapters) > 0 {
		data, _ := json.Marshal(chapters)
		fmt.Fprintf(&b, "const chapters = %s;\n", data)
	}

	fontsArray := "[]"
	if hasFonts {
		fontsArray = "fonts"
	}

	fmt.Fprintf(&b, `
function init() {
    let savedSettings = {};
    try { savedSettings = JSON.parse(localStorage.getItem('artplayer_settings')) || {}; } catch (e) {}
    const savedQualityLevel = savedSettings.qualityLevel;
    const savedPlaybackRate = savedSettings.playbackRate;

    art = new Artplayer({
        container: '#artplayer',
        url: '/hls/%s/index.m3u8',
        type: 'm3u8',
        autoplay: true,
        autoSize: false,
        loop: false,
        flip: true,
        playbackRate: true,
        aspectRatio: true,
        setting: true,
        hotkey: true,
        pip: true,
        mutex: true,
        fullscreen: true,
        fullscreenWeb: true,
        subtitleOffset: true,
        miniProgressBar: true,
        volume: 1,
        isLive: false,
        muted: false,
        theme: '#ff0000',
        lang: 'en',
        moreVideoAttr: { crossOrigin: 'anonymous' },
        plugins: [
            %s
        ],
        customType: {
            m3u8: function playM3u8(video, url, art) {
                if (Hls.isSupported()) {
                    if (art.hls) art.hls.destroy();
                    const hls = new Hls();
                    hls.loadSource(url);
                    hls.attachMedia(video);
                    art.hls = hls;
                    art.on('destroy', () => hls.destroy());
                    hls.on(Hls.Events.MANIFEST_PARSED, function() {
                        if (savedQualityLevel !== undefined && savedQualityLevel >= -1 && savedQualityLevel < hls.levels.length) {
                            hls.currentLevel = savedQualityLevel;
                        }
                    });
                    hls.on(Hls.Events.LEVEL_SWITCHED, function(event, data) {
                        art.storage.set('qualityLevel', data.level);
                    });
                } else if (video.canPlayType('application/vnd.apple.mpegurl')) {
                    video.src = url;
                } else {
                    art.notice.show = 'Unsupported playback format: m3u8';
                }
            },
        },
    });

    art.on('ready', function() {
        if (savedPlaybackRate && savedPlaybackRate !== 1) { art.playbackRate = savedPlaybackRate; }
    });
    art.on('video:ratechange', function() { art.storage.set('playbackRate', art.playbackRate); });
`, videoID, pluginsJS)

	if len(subtitles) > 0 {
		defaultURL := subtitles[0].URL
		for _, s := range subtitles {
			if s.Default {
				defaultURL = s.URL
				break
			}
		}
		defaultURLJSON, _ := json.Marshal(defaultURL)

		fmt.Fprintf(&b, `
    art.on('ready', function() {
        window.subtitlesEnabled = true;
        window.currentSubUrl = %s;

        function updateToggleButton() {
            const toggleEl = document.querySelector('.art-control-subtitle-toggle');
            if (toggleEl) { toggleEl.style.opacity = window.subtitlesEnabled ? '1' : '0.5'; }
        }

        try {
            window.jassub = new JASSUB({
                video: art.video,
                subUrl: window.currentSubUrl,
                workerUrl: '/jassub/jassub-worker.js',
                wasmUrl: '/jassub/jassub-worker.wasm',
                fonts: %s,
                fallbackFont: 'Arial',
            });
        } catch (e) { console.error('subtitle renderer init error', e); }

        art.controls.add({
            name: 'subtitle-toggle',
            position: 'right',
            index: 10,
            html: '<svg xmlns="http://www.w3.org/2000/svg" width="22" height="22" viewBox="0 0 24 24" fill="currentColor"><path d="M20 4H4c-1.1 0-2 .9-2 2v12c0 1.1.9 2 2 2h16c1.1 0 2-.9 2-2V6c0-1.1-.9-2-2-2zm0 14H4V6h16v12zM6 10h2v2H6zm0 4h8v2H6zm10 0h2v2h-2zm-6-4h8v2h-8z"/></svg>',
            tooltip: 'Toggle Subtitles',
            style: { color: '#fff' },
            click: function() {
                window.subtitlesEnabled = !window.subtitlesEnabled;
                updateToggleButton();
                if (window.jassub) {
                    if (window.subtitlesEnabled && window.currentSubUrl) { window.jassub.setTrackByUrl(window.currentSubUrl); }
                    else { window.jassub.freeTrack(); }
                }
            },
        });
`, defaultURLJSON, fontsArray)

		if hasMultipleSubtitles {
			b.WriteString(`
        art.setting.add({
            name: 'subtitle',
            html: 'Subtitle',
            tooltip: subtitles.find(s => s.default)?.name || subtitles[0]?.name || 'None',
            selector: [
                { html: 'Off', value: 'off' },
                ...subtitles.map(s => ({ html: s.name, url: s.url, default: s.default })),
            ],
            onSelect: function(item) {
                if (item.value === 'off') {
                    window.subtitlesEnabled = false;
                    updateToggleButton();
                    if (window.jassub) { window.jassub.freeTrack(); }
                } else if (item.url) {
                    window.subtitlesEnabled = true;
                    window.currentSubUrl = item.url;
                    updateToggleButton();
                    if (window.jassub) { window.jassub.setTrackByUrl(item.url); }
                }
                return item.html;
            },
        });
`)
		}

		b.WriteString("    });\n")
	}

	fmt.Fprintf(&b, `
    art.on('play', onFirstPlay);
    art.on('error', onError);
    window.art = art;
}

function onFirstPlay() {
    if (!viewTracked) {
        viewTracked = true;
        fetch('/api/videos/%s/view', { method: 'POST' });
    }
    if (!heartbeatStarted) {
        heartbeatStarted = true;
        startHeartbeat();
    }
}

function startHeartbeat() {
    fetch('/api/videos/%s/heartbeat', { method: 'POST' });
    setInterval(() => { fetch('/api/videos/%s/heartbeat', { method: 'POST' }); }, 10000);
}

function onError(error) { console.error('player error', error); }

document.addEventListener('DOMContentLoaded', init);
`, videoID, videoID, videoID)

	return b.String()
}

func htmlEscapeTitle(name string) string {
	replacer := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	if name == "" {
		return "Video Player"
	}
	return replacer.Replace(name)
}

// Package ffprobe implements the Media Prober: four independent,
// JSON-returning ffprobe invocations, each parsed into a typed descriptor.
// FFprobe is treated as the authoritative oracle for stream layout; this
// package never inspects container bytes itself.
package ffprobe

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/vodforge/internal/apperrors"
)

// Prober runs ffprobe against a local file path.
type Prober struct {
	ffprobePath string
	timeout     time.Duration
}

// New creates a Prober invoking the given ffprobe binary, bounding every
// call by timeout.
func New(ffprobePath string, timeout time.Duration) *Prober {
	return &Prober{ffprobePath: ffprobePath, timeout: timeout}
}

func (p *Prober) run(ctx context.Context, args []string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.ffprobePath, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		return apperrors.ProbeFailed(err, stderrTail(stderr.String()))
	}
	if err := json.Unmarshal(output, out); err != nil {
		return apperrors.ProbeFailed(err, "")
	}
	return nil
}

func stderrTail(s string) string {
	s = strings.TrimSpace(s)
	const maxLen = 2048
	if len(s) > maxLen {
		return s[len(s)-maxLen:]
	}
	return s
}

// Metadata is the result of probeMetadata.
type Metadata struct {
	SourceHeight    int
	DurationSeconds float64
}

type metadataProbe struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// ProbeMetadata returns the source height (of the first video stream) and
// the container duration in seconds. Fails with apperrors.ProbeFailed if
// ffprobe exits non-zero or the expected fields are absent.
func (p *Prober) ProbeMetadata(ctx context.Context, path string) (Metadata, error) {
	var result metadataProbe
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}
	if err := p.run(ctx, args, &result); err != nil {
		return Metadata{}, err
	}

	var sourceHeight int
	for _, s := range result.Streams {
		if s.CodecType == "video" {
			sourceHeight = s.Height
			break
		}
	}
	if sourceHeight == 0 {
		return Metadata{}, apperrors.ProbeFailed(fmt.Errorf("no video stream with a height found"), "")
	}

	duration, err := strconv.ParseFloat(result.Format.Duration, 64)
	if err != nil {
		return Metadata{}, apperrors.ProbeFailed(fmt.Errorf("parsing duration %q: %w", result.Format.Duration, err), "")
	}

	return Metadata{SourceHeight: sourceHeight, DurationSeconds: duration}, nil
}

// SubtitleStream describes one subtitle stream found in the source.
type SubtitleStream struct {
	SourceStreamIndex int
	Codec             string
	Language          string
	Title             string
	IsDefault         bool
	IsForced          bool
}

type subtitleProbe struct {
	Streams []struct {
		Index     int    `json:"index"`
		CodecName string `json:"codec_name"`
		Tags      struct {
			Language string `json:"language"`
			Title    string `json:"title"`
		} `json:"tags"`
		Disposition struct {
			Default int `json:"default"`
			Forced  int `json:"forced"`
		} `json:"disposition"`
	} `json:"streams"`
}

// ProbeSubtitles returns every subtitle stream in source-stream order. An
// empty list (never an error) means the source has no subtitle streams.
func (p *Prober) ProbeSubtitles(ctx context.Context, path string) ([]SubtitleStream, error) {
	var result subtitleProbe
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-select_streams", "s",
		"-show_entries", "stream=index,codec_name:stream_tags=language,title:stream_disposition=default,forced",
		path,
	}
	if err := p.run(ctx, args, &result); err != nil {
		return nil, err
	}

	streams := make([]SubtitleStream, 0, len(result.Streams))
	for _, s := range result.Streams {
		streams = append(streams, SubtitleStream{
			SourceStreamIndex: s.Index,
			Codec:             s.CodecName,
			Language:          s.Tags.Language,
			Title:             s.Tags.Title,
			IsDefault:         s.Disposition.Default != 0,
			IsForced:          s.Disposition.Forced != 0,
		})
	}
	return streams, nil
}

// AttachmentStream describes one attachment (e.g. an embedded font).
type AttachmentStream struct {
	SourceStreamIndex int
	Filename          string
	Mimetype          string
}

type attachmentProbe struct {
	Streams []struct {
		Index int `json:"index"`
		Tags  struct {
			Filename string `json:"filename"`
			Mimetype string `json:"mimetype"`
		} `json:"tags"`
	} `json:"streams"`
}

var extensionMimetypes = map[string]string{
	".ttf":   "font/ttf",
	".otf":   "font/otf",
	".woff":  "font/woff",
	".woff2": "font/woff2",
}

// ProbeAttachments returns every attachment stream in source-stream order.
// Mimetype is guessed from the filename extension when the container
// doesn't carry one.
func (p *Prober) ProbeAttachments(ctx context.Context, path string) ([]AttachmentStream, error) {
	var result attachmentProbe
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-select_streams", "t",
		"-show_entries", "stream=index:stream_tags=filename,mimetype",
		path,
	}
	if err := p.run(ctx, args, &result); err != nil {
		return nil, err
	}

	attachments := make([]AttachmentStream, 0, len(result.Streams))
	for _, s := range result.Streams {
		mimetype := s.Tags.Mimetype
		if mimetype == "" {
			mimetype = guessMimetype(s.Tags.Filename)
		}
		attachments = append(attachments, AttachmentStream{
			SourceStreamIndex: s.Index,
			Filename:          s.Tags.Filename,
			Mimetype:          mimetype,
		})
	}
	return attachments, nil
}

func guessMimetype(filename string) string {
	if mt, ok := extensionMimetypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return mt
	}
	return "application/octet-stream"
}

// ChapterMark describes one chapter marker.
type ChapterMark struct {
	StartSec float64
	EndSec   float64
	Title    string
}

type chapterProbe struct {
	Chapters []struct {
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
		Tags      struct {
			Title string `json:"title"`
		} `json:"tags"`
	} `json:"chapters"`
}

// ProbeChapters returns every chapter in source order. Chapters with
// malformed times are dropped silently; the absence of chapters is never
// an error.
func (p *Prober) ProbeChapters(ctx context.Context, path string) ([]ChapterMark, error) {
	var result chapterProbe
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_chapters",
		path,
	}
	if err := p.run(ctx, args, &result); err != nil {
		return nil, err
	}
	return filterValidChapters(result), nil
}

func filterValidChapters(result chapterProbe) []ChapterMark {
	chapters := make([]ChapterMark, 0, len(result.Chapters))
	for _, c := range result.Chapters {
		start, errStart := strconv.ParseFloat(c.StartTime, 64)
		end, errEnd := strconv.ParseFloat(c.EndTime, 64)
		if errStart != nil || errEnd != nil || end <= start || start < 0 {
			continue
		}
		chapters = append(chapters, ChapterMark{StartSec: start, EndSec: end, Title: c.Tags.Title})
	}
	return chapters
}

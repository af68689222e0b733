package transcode

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// extractSubtitles dumps every subtitle stream to its own file under
// outDir/subtitles. Per-item failures are not fatal to the job: a
// stream that fails to extract is simply omitted from the result.
func (o *Orchestrator) extractSubtitles(ctx context.Context, sourcePath, outDir string) []SubtitleArtifact {
	streams, err := o.prober.ProbeSubtitles(ctx, sourcePath)
	if err != nil || len(streams) == 0 {
		return nil
	}

	subtitlesDir := filepath.Join(outDir, "subtitles")
	if err := os.MkdirAll(subtitlesDir, 0o755); err != nil {
		return nil
	}

	var artifacts []SubtitleArtifact
	for trackIndex, s := range streams {
		ext := subtitleOutputExt(s.Codec)
		relPath := fmt.Sprintf("subtitles/track_%d.%s", trackIndex, ext)
		destPath := filepath.Join(outDir, relPath)

		subCtx, cancel := context.WithTimeout(ctx, o.timeout)
		cmd := exec.CommandContext(subCtx, o.ffmpegPath,
			"-hide_banner", "-loglevel", "error", "-y",
			"-i", sourcePath,
			"-map", fmt.Sprintf("0:%d", s.SourceStreamIndex),
			"-c:s", subtitleOutputCodec(ext),
			destPath,
		)
		err := cmd.Run()
		cancel()
		if err != nil {
			continue
		}

		artifacts = append(artifacts, SubtitleArtifact{
			TrackIndex: trackIndex,
			Codec:      s.Codec,
			Language:   s.Language,
			Title:      s.Title,
			IsDefault:  s.IsDefault,
			IsForced:   s.IsForced,
			RelPath:    relPath,
		})
	}
	return artifacts
}

// subtitleOutputExt picks the output container for a subtitle codec:
// ass/ssa passes through as ass, subrip/srt as srt, anything else is
// transcoded to ass.
func subtitleOutputExt(sourceCodec string) string {
	switch strings.ToLower(sourceCodec) {
	case "ass", "ssa":
		return "ass"
	case "subrip", "srt":
		return "srt"
	default:
		return "ass"
	}
}

func subtitleOutputCodec(ext string) string {
	if ext == "srt" {
		return "srt"
	}
	return "ass"
}

// extractAttachments dumps every attachment (font) stream into outDir/fonts
// using FFmpeg's -dump_attachment option, which writes each file using the
// container's own filename tag relative to the process's working
// directory. Failures are logged here and never fail the job.
func (o *Orchestrator) extractAttachments(ctx context.Context, sourcePath, outDir string) []AttachmentArtifact {
	attachments, err := o.prober.ProbeAttachments(ctx, sourcePath)
	if err != nil {
		slog.Warn("probing attachments failed", slog.String("source", sourcePath), slog.String("error", err.Error()))
		return nil
	}
	if len(attachments) == 0 {
		return nil
	}

	fontsDir := filepath.Join(outDir, "fonts")
	if err := os.MkdirAll(fontsDir, 0o755); err != nil {
		slog.Warn("creating fonts directory failed", slog.String("error", err.Error()))
		return nil
	}

	dumpCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	cmd := exec.CommandContext(dumpCtx, o.ffmpegPath,
		"-dump_attachment:t", "",
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", sourcePath,
		"-f", "null", "-",
	)
	cmd.Dir = fontsDir
	_ = cmd.Run() // ffmpeg exits non-zero when there's no real output stream; files are still dumped.

	var artifacts []AttachmentArtifact
	for _, a := range attachments {
		if a.Filename == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(fontsDir, a.Filename)); err != nil {
			slog.Warn("attachment was not extracted", slog.String("filename", a.Filename), slog.String("error", err.Error()))
			continue
		}
		artifacts = append(artifacts, AttachmentArtifact{
			Filename: a.Filename,
			Mimetype: a.Mimetype,
			RelPath:  "fonts/" + a.Filename,
		})
	}
	return artifacts
}

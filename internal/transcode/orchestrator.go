// Package transcode implements the Transcode Orchestrator: it turns one
// source media file into an HLS rendition ladder, a thumbnail, extracted
// subtitle tracks, dumped font attachments, and a master playlist.
package transcode

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/jmylchreest/vodforge/internal/apperrors"
	"github.com/jmylchreest/vodforge/internal/ffmpeg"
	"github.com/jmylchreest/vodforge/internal/ffprobe"
	"github.com/jmylchreest/vodforge/internal/progress"
)

const (
	gopSize          = 48
	hlsSegmentSeconds = 4
	audioBitrate     = "128k"
	audioChannels    = 2
)

// SubtitleArtifact describes one subtitle track extracted alongside the
// HLS renditions.
type SubtitleArtifact struct {
	TrackIndex int
	Codec      string
	Language   string
	Title      string
	IsDefault  bool
	IsForced   bool
	RelPath    string
}

// AttachmentArtifact describes one font/attachment dumped from the
// source container.
type AttachmentArtifact struct {
	Filename string
	Mimetype string
	RelPath  string
}

// Result is everything the orchestrator produced under outDir.
type Result struct {
	Variants           []VariantSpec
	MasterPlaylistPath string
	ThumbnailPath      string
	Subtitles          []SubtitleArtifact
	Attachments        []AttachmentArtifact
	Chapters           []ffprobe.ChapterMark
}

// Orchestrator runs the full per-upload transcode pipeline.
type Orchestrator struct {
	ffmpegPath string
	prober     *ffprobe.Prober
	sem        *semaphore.Weighted
	progress   *progress.Registry
	timeout    time.Duration
}

// New creates an Orchestrator. sem bounds the number of FFmpeg variant
// encodes that may run concurrently across all in-flight jobs.
func New(ffmpegPath string, prober *ffprobe.Prober, sem *semaphore.Weighted, registry *progress.Registry, timeout time.Duration) *Orchestrator {
	return &Orchestrator{
		ffmpegPath: ffmpegPath,
		prober:     prober,
		sem:        sem,
		progress:   registry,
		timeout:    timeout,
	}
}

// Transcode runs the full pipeline for one upload. outDir must already
// exist; its subdirectories (one per variant, subtitles/, fonts/) are
// created as needed.
func (o *Orchestrator) Transcode(ctx context.Context, uploadID, videoName, sourcePath, outDir, encoder string) (Result, error) {
	meta, err := o.prober.ProbeMetadata(ctx, sourcePath)
	if err != nil {
		return Result{}, err
	}

	variants, err := SelectVariants(meta.SourceHeight)
	if err != nil {
		return Result{}, err
	}

	family := ClassifyEncoder(encoder)

	thumbDone := make(chan error, 1)
	go func() {
		thumbDone <- o.generateThumbnail(ctx, sourcePath, outDir, family)
	}()

	total := len(variants)
	for i, v := range variants {
		o.reportProgress(uploadID, videoName, i, total, fmt.Sprintf("Encoding variant: %s", v.Label))

		if err := o.sem.Acquire(ctx, 1); err != nil {
			return Result{}, apperrors.Internal(fmt.Errorf("acquiring transcode semaphore: %w", err))
		}
		err := o.runVariant(ctx, sourcePath, outDir, v, family, encoder)
		o.sem.Release(1)
		if err != nil {
			return Result{}, err
		}

		o.reportProgress(uploadID, videoName, i+1, total, fmt.Sprintf("Encoded variant: %s", v.Label))
	}

	result := Result{Variants: variants}

	if err := <-thumbDone; err != nil {
		slog.Warn("thumbnail generation failed", slog.String("upload_id", uploadID), slog.String("error", err.Error()))
		result.ThumbnailPath = ""
	} else {
		result.ThumbnailPath = filepath.Join(outDir, "thumbnail.jpg")
	}

	result.Subtitles = o.extractSubtitles(ctx, sourcePath, outDir)
	result.Attachments = o.extractAttachments(ctx, sourcePath, outDir)
	result.Chapters, _ = o.prober.ProbeChapters(ctx, sourcePath)

	if err := writeMasterPlaylist(outDir, variants); err != nil {
		return Result{}, apperrors.Internal(fmt.Errorf("writing master playlist: %w", err))
	}
	result.MasterPlaylistPath = filepath.Join(outDir, "index.m3u8")

	return result, nil
}

func (o *Orchestrator) reportProgress(uploadID, videoName string, completed, total int, detail string) {
	o.progress.Upsert(uploadID, progress.Entry{
		Stage:       "FFmpeg processing",
		CurrentUnit: completed,
		TotalUnits:  total,
		HumanDetail: detail,
		VideoName:   videoName,
		Status:      progress.StatusProcessing,
	})
}

func (o *Orchestrator) runVariant(ctx context.Context, sourcePath, outDir string, v VariantSpec, family Family, encoder string) error {
	variantDir := filepath.Join(outDir, v.Label)
	if err := os.MkdirAll(variantDir, 0o755); err != nil {
		return apperrors.Internal(fmt.Errorf("creating variant directory: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	builder := ffmpeg.NewCommandBuilder(o.ffmpegPath).
		HideBanner().
		Overwrite()

	if hw := family.HWAccelFlag(); hw != "" {
		builder = builder.HWAccel(hw).HWAccelOutputFormat(family.HWAccelOutputFormat())
		if family == FamilyVAAPI {
			builder = builder.HWAccelDevice("/dev/dri/renderD128")
		}
	}

	targetBitrate := fmt.Sprintf("%dk", v.TargetBitrateKbps)
	maxrate := fmt.Sprintf("%dk", v.TargetBitrateKbps*3/2)
	bufsize := fmt.Sprintf("%dk", v.TargetBitrateKbps*2)

	outputArgs := append([]string{"-pix_fmt", family.PixFmt()}, family.EncoderArgs()...)
	outputArgs = append(outputArgs,
		"-maxrate", maxrate,
		"-bufsize", bufsize,
		"-g", fmt.Sprintf("%d", gopSize),
		"-keyint_min", fmt.Sprintf("%d", gopSize),
		"-sc_threshold", "0",
		"-force_key_frames", "expr:gte(t,n_forced*4)",
		"-sn",
		"-f", "hls",
		"-hls_time", fmt.Sprintf("%d", hlsSegmentSeconds),
		"-hls_playlist_type", "vod",
		"-hls_segment_type", "mpegts",
		"-hls_segment_filename", filepath.Join(variantDir, "segment_%03d.ts"),
	)

	cmd := builder.
		Input(sourcePath).
		VideoFilter(family.ScaleFilter(v.TargetHeight)).
		VideoCodec(encoder).
		VideoBitrate(targetBitrate).
		AudioCodec("aac").
		AudioBitrate(audioBitrate).
		AudioChannels(audioChannels).
		OutputArgs(outputArgs...).
		Output(filepath.Join(variantDir, "index.m3u8")).
		Build()

	if err := cmd.Run(ctx); err != nil {
		stderrTail := lastStderrLine(cmd.GetStderrLines())
		return apperrors.TranscodeFailed(v.Label, err, stderrTail)
	}
	return nil
}

func lastStderrLine(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}

// generateThumbnail extracts a single frame at t=0. Failure here is
// logged by the caller (via a nil thumbnail path) and never fails the
// job, per spec.
func (o *Orchestrator) generateThumbnail(ctx context.Context, sourcePath, outDir string, family Family) error {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	builder := ffmpeg.NewCommandBuilder(o.ffmpegPath).
		HideBanner().
		Overwrite().
		InputArgs("-ss", "0").
		Input(sourcePath)

	if filter := family.ThumbnailDownloadFilter(); filter != "" {
		builder = builder.VideoFilter(filter)
	}

	cmd := builder.
		OutputArgs("-vframes", "1").
		Output(filepath.Join(outDir, "thumbnail.jpg")).
		Build()

	return cmd.Run(ctx)
}

// Package pipeline wires the Chunk Reassembler's output to the Media
// Prober, Transcode Orchestrator and Artifact Uploader, and persists the
// result as relational rows. It is the background job spawned once an
// upload finalizes: client uploads finish synchronously, everything from
// probing onward runs detached and is observed only through the
// Progress Registry.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jmylchreest/vodforge/internal/apperrors"
	"github.com/jmylchreest/vodforge/internal/ingest"
	"github.com/jmylchreest/vodforge/internal/models"
	"github.com/jmylchreest/vodforge/internal/objectstore"
	"github.com/jmylchreest/vodforge/internal/progress"
	"github.com/jmylchreest/vodforge/internal/storage"
	"github.com/jmylchreest/vodforge/internal/transcode"
)

// Pipeline runs the full post-reassembly path for one upload.
type Pipeline struct {
	sandbox      *storage.Sandbox
	orchestrator *transcode.Orchestrator
	uploader     *objectstore.Uploader
	db           *gorm.DB
	progress     *progress.Registry
	encoder      string
	publicBaseURL string
}

// New creates a Pipeline. encoder selects the ffmpeg video codec (e.g.
// "libx264"); publicBaseURL, if set, is prefixed onto the generated
// player URL, otherwise a relative path is used.
func New(sandbox *storage.Sandbox, orchestrator *transcode.Orchestrator, uploader *objectstore.Uploader, db *gorm.DB, registry *progress.Registry, encoder, publicBaseURL string) *Pipeline {
	return &Pipeline{
		sandbox:       sandbox,
		orchestrator:  orchestrator,
		uploader:      uploader,
		db:            db,
		progress:      registry,
		encoder:       encoder,
		publicBaseURL: publicBaseURL,
	}
}

// Run executes probe, transcode, upload and persistence for one finalized
// upload, reporting terminal state (completed with a player URL, or
// failed with an error message) to the Progress Registry. It is intended
// to be invoked as "go pipeline.Run(...)" immediately after
// ingest.Manager.Finalize returns; the caller owns the ingest.Result's
// AssembledPath and is not expected to wait for this to return.
func (p *Pipeline) Run(ctx context.Context, uploadID string, reassembled ingest.Result) {
	defer func() {
		if r := recover(); r != nil {
			p.fail(uploadID, reassembled.VideoName, apperrors.Internal(fmt.Errorf("pipeline panic: %v", r)))
		}
	}()

	outDirRel := filepath.Join("output", uploadID)
	outDirAbs, err := p.sandbox.ResolvePath(outDirRel)
	if err != nil {
		p.fail(uploadID, reassembled.VideoName, apperrors.Internal(fmt.Errorf("resolving output directory: %w", err)))
		return
	}
	if err := os.MkdirAll(outDirAbs, 0o755); err != nil {
		p.fail(uploadID, reassembled.VideoName, apperrors.Internal(fmt.Errorf("creating output directory: %w", err)))
		return
	}
	defer os.RemoveAll(outDirAbs)
	defer os.Remove(reassembled.AssembledPath)

	result, err := p.orchestrator.Transcode(ctx, uploadID, reassembled.VideoName, reassembled.AssembledPath, outDirAbs, p.encoder)
	if err != nil {
		p.fail(uploadID, reassembled.VideoName, err)
		return
	}

	// The video ID is minted here, before upload, rather than left to
	// BeforeCreate: it is also the object-store key prefix, and must match
	// what playback looks objects up by, per SPEC_FULL.md §14.
	videoID := uuid.NewString()

	video := &models.Video{
		ID:          videoID,
		Name:        reassembled.VideoName,
		DurationSec: 0,
	}
	if err := video.SetTags(reassembled.Tags); err != nil {
		p.fail(uploadID, reassembled.VideoName, apperrors.Internal(fmt.Errorf("encoding tags: %w", err)))
		return
	}

	variantLabels := make([]string, 0, len(result.Variants))
	for _, v := range result.Variants {
		variantLabels = append(variantLabels, v.Label)
	}
	if err := video.SetAvailableResolutions(variantLabels); err != nil {
		p.fail(uploadID, reassembled.VideoName, apperrors.Internal(fmt.Errorf("encoding resolutions: %w", err)))
		return
	}

	keyPrefix := fmt.Sprintf("videos/%s/", videoID)
	masterKey, err := p.uploader.Upload(ctx, uploadID, reassembled.VideoName, outDirAbs, keyPrefix)
	if err != nil {
		p.fail(uploadID, reassembled.VideoName, err)
		return
	}
	video.Entrypoint = masterKey
	if result.ThumbnailPath != "" {
		video.ThumbnailKey = keyPrefix + "thumbnail.jpg"
	}

	if err := p.persist(video, result, keyPrefix); err != nil {
		p.fail(uploadID, reassembled.VideoName, err)
		return
	}

	p.progress.Upsert(uploadID, progress.Entry{
		Stage:       "Complete",
		Percentage:  100,
		VideoName:   reassembled.VideoName,
		Status:      progress.StatusCompleted,
		Result:      p.playerURL(video.ID),
		HumanDetail: "ready for playback",
	})
}

func (p *Pipeline) persist(video *models.Video, result transcode.Result, keyPrefix string) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(video).Error; err != nil {
			return apperrors.PersistenceFailed(fmt.Errorf("creating video: %w", err))
		}

		for _, s := range result.Subtitles {
			subtitle := &models.Subtitle{
				VideoID:    video.ID,
				TrackIndex: s.TrackIndex,
				Codec:      s.Codec,
				Language:   s.Language,
				Title:      s.Title,
				IsDefault:  s.IsDefault,
				IsForced:   s.IsForced,
				StorageKey: keyPrefix + s.RelPath,
			}
			if err := tx.Create(subtitle).Error; err != nil {
				return apperrors.PersistenceFailed(fmt.Errorf("creating subtitle: %w", err))
			}
		}

		for _, a := range result.Attachments {
			attachment := &models.Attachment{
				VideoID:    video.ID,
				Filename:   a.Filename,
				Mimetype:   a.Mimetype,
				StorageKey: keyPrefix + a.RelPath,
			}
			if err := tx.Create(attachment).Error; err != nil {
				return apperrors.PersistenceFailed(fmt.Errorf("creating attachment: %w", err))
			}
		}

		for i, c := range result.Chapters {
			chapter := &models.Chapter{
				VideoID:  video.ID,
				Ordinal:  i,
				StartSec: c.StartSec,
				EndSec:   c.EndSec,
				Title:    c.Title,
			}
			if err := tx.Create(chapter).Error; err != nil {
				return apperrors.PersistenceFailed(fmt.Errorf("creating chapter: %w", err))
			}
		}

		return nil
	})
}

func (p *Pipeline) fail(uploadID, videoName string, err error) {
	p.progress.Upsert(uploadID, progress.Entry{
		Stage:     "Failed",
		VideoName: videoName,
		Status:    progress.StatusFailed,
		Error:     err.Error(),
	})
}

func (p *Pipeline) playerURL(videoID string) string {
	path := fmt.Sprintf("/player/%s", videoID)
	if p.publicBaseURL == "" {
		return path
	}
	return p.publicBaseURL + path
}

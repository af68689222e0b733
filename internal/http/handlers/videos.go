package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"gorm.io/gorm"

	"github.com/jmylchreest/vodforge/internal/models"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// VideoSummary is one row of the video listing.
type VideoSummary struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	Tags                 []string `json:"tags"`
	DurationSec          int      `json:"duration"`
	AvailableResolutions []string `json:"available_resolutions"`
	ThumbnailKey         string   `json:"thumbnail_key"`
	Entrypoint           string   `json:"entrypoint"`
}

func videoToSummary(v models.Video) VideoSummary {
	return VideoSummary{
		ID:                   v.ID,
		Name:                 v.Name,
		Tags:                 v.Tags(),
		DurationSec:          v.DurationSec,
		AvailableResolutions: v.AvailableResolutions(),
		ThumbnailKey:         v.ThumbnailKey,
		Entrypoint:           v.Entrypoint,
	}
}

// AnalyticsHistoryPoint is one sample of view counts over time, sourced
// from the analytics warehouse.
type AnalyticsHistoryPoint struct {
	Timestamp time.Time `json:"timestamp"`
	ViewCount int64     `json:"view_count"`
}

// VideoAnalytics is per-video view/watch-time detail, sourced from the
// analytics warehouse.
type VideoAnalytics struct {
	VideoID      string `json:"video_id"`
	TotalViews   int64  `json:"total_views"`
	UniqueViewers int64 `json:"unique_viewers"`
}

// AnalyticsWarehouse is the external, durable store that per-video detail
// and view history are read from. Realtime presence (internal/presence)
// needs no such store; only the history/detail endpoints below do. No
// implementation ships in this repo: it is an external collaborator
// reached over whatever wire protocol the deployment's warehouse speaks.
type AnalyticsWarehouse interface {
	VideoStats(ctx context.Context, videoID string) (VideoAnalytics, error)
	History(ctx context.Context, since time.Time) ([]AnalyticsHistoryPoint, error)
	RecordView(ctx context.Context, videoID string) error
}

// VideosHandler serves the admin video catalog listing/search endpoint
// and the optional analytics-warehouse pass-throughs.
type VideosHandler struct {
	db        *gorm.DB
	warehouse AnalyticsWarehouse // nil unless the caller supplies one; serve always passes nil
}

// NewVideosHandler creates a VideosHandler. warehouse may be nil; when
// nil, the analytics detail/history endpoints respond 501.
func NewVideosHandler(db *gorm.DB, warehouse AnalyticsWarehouse) *VideosHandler {
	return &VideosHandler{db: db, warehouse: warehouse}
}

// Register registers the video-catalog and analytics-detail routes.
// ListVideos is admin-gated; the analytics endpoints are public per the
// routes table, matching heartbeat/realtime.
func (h *VideosHandler) Register(api huma.API, requireAdmin func(huma.Context, func(huma.Context))) {
	huma.Register(api, huma.Operation{
		OperationID: "listVideos",
		Method:      "GET",
		Path:        "/api/videos",
		Summary:     "List and search the video catalog",
		Tags:        []string{"Videos"},
		Middlewares: huma.Middlewares{requireAdmin},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "analyticsVideos",
		Method:      "GET",
		Path:        "/api/analytics/videos",
		Summary:     "Per-video view analytics",
		Tags:        []string{"Analytics"},
	}, h.AnalyticsVideoStats)

	huma.Register(api, huma.Operation{
		OperationID: "analyticsHistory",
		Method:      "GET",
		Path:        "/api/analytics/history",
		Summary:     "View-count history",
		Tags:        []string{"Analytics"},
	}, h.AnalyticsHistory)

	huma.Register(api, huma.Operation{
		OperationID: "recordView",
		Method:      "POST",
		Path:        "/api/videos/{id}/view",
		Summary:     "Record a first-play view, best-effort",
		Tags:        []string{"Analytics"},
	}, h.RecordView)
}

// ListInput is the input for listing/searching videos.
type ListInput struct {
	Page     int    `query:"page" default:"1"`
	PageSize int    `query:"page_size" default:"20"`
	Name     string `query:"name"`
	Tag      string `query:"tag"`
}

// ListOutputVideos is the output for listing/searching videos.
type ListOutputVideos struct {
	Body struct {
		Items      []VideoSummary `json:"items"`
		Page       int            `json:"page"`
		PageSize   int            `json:"page_size"`
		TotalCount int64          `json:"total_count"`
	}
}

// List returns a paginated, optionally name/tag-filtered slice of the
// video catalog. Matching is parameterized LIKE on name and the
// serialized tags column; no manual SQL string interpolation is ever
// performed.
func (h *VideosHandler) List(ctx context.Context, input *ListInput) (*ListOutputVideos, error) {
	page := input.Page
	if page < 1 {
		page = 1
	}
	pageSize := input.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	query := h.db.WithContext(ctx).Model(&models.Video{})
	if input.Name != "" {
		query = query.Where("name LIKE ?", "%"+input.Name+"%")
	}
	if input.Tag != "" {
		query = query.Where("tags LIKE ?", "%\""+input.Tag+"\"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, dbErr(err)
	}

	var videos []models.Video
	if err := query.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&videos).Error; err != nil {
		return nil, dbErr(err)
	}

	out := &ListOutputVideos{}
	out.Body.Page = page
	out.Body.PageSize = pageSize
	out.Body.TotalCount = total
	out.Body.Items = make([]VideoSummary, 0, len(videos))
	for _, v := range videos {
		out.Body.Items = append(out.Body.Items, videoToSummary(v))
	}
	return out, nil
}

// AnalyticsVideoStatsInput is the input for per-video analytics detail.
type AnalyticsVideoStatsInput struct {
	VideoID string `query:"video_id"`
}

// AnalyticsVideoStatsOutput is the output for per-video analytics detail.
type AnalyticsVideoStatsOutput struct {
	Body VideoAnalytics
}

// AnalyticsVideoStats proxies to the analytics warehouse, or 501s if none
// is configured.
func (h *VideosHandler) AnalyticsVideoStats(ctx context.Context, input *AnalyticsVideoStatsInput) (*AnalyticsVideoStatsOutput, error) {
	if h.warehouse == nil {
		return nil, huma.Error501NotImplemented("no analytics warehouse configured")
	}
	stats, err := h.warehouse.VideoStats(ctx, input.VideoID)
	if err != nil {
		return nil, huma.Error500InternalServerError("analytics warehouse query failed", err)
	}
	return &AnalyticsVideoStatsOutput{Body: stats}, nil
}

// AnalyticsHistoryInput is the input for view-count history.
type AnalyticsHistoryInput struct {
	SinceHours int `query:"since_hours" default:"24"`
}

// AnalyticsHistoryOutput is the output for view-count history.
type AnalyticsHistoryOutput struct {
	Body struct {
		Points []AnalyticsHistoryPoint `json:"points"`
	}
}

// AnalyticsHistory proxies to the analytics warehouse, or 501s if none is
// configured.
func (h *VideosHandler) AnalyticsHistory(ctx context.Context, input *AnalyticsHistoryInput) (*AnalyticsHistoryOutput, error) {
	if h.warehouse == nil {
		return nil, huma.Error501NotImplemented("no analytics warehouse configured")
	}
	since := time.Now().Add(-time.Duration(input.SinceHours) * time.Hour)
	points, err := h.warehouse.History(ctx, since)
	if err != nil {
		return nil, huma.Error500InternalServerError("analytics warehouse query failed", err)
	}
	out := &AnalyticsHistoryOutput{}
	out.Body.Points = points
	return out, nil
}

// RecordViewInput is the input for the first-play view-tracking beacon.
type RecordViewInput struct {
	VideoID string `path:"id"`
}

// RecordViewOutput is the (always 200) output for the view beacon.
type RecordViewOutput struct {
	Body struct {
		Recorded bool `json:"recorded"`
	}
}

// RecordView is a best-effort beacon fired by the player on the first
// "play" event. A missing or failing warehouse never surfaces as an
// error to the client: view tracking is not allowed to affect playback.
func (h *VideosHandler) RecordView(ctx context.Context, input *RecordViewInput) (*RecordViewOutput, error) {
	out := &RecordViewOutput{}
	if h.warehouse == nil {
		return out, nil
	}
	if err := h.warehouse.RecordView(ctx, input.VideoID); err != nil {
		slog.Warn("analytics warehouse view insert failed, ignoring", "video_id", input.VideoID, "error", err)
		return out, nil
	}
	out.Body.Recorded = true
	return out, nil
}

func dbErr(err error) error {
	return huma.Error500InternalServerError("database query failed", err)
}

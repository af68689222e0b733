package models

import (
	"time"

	"gorm.io/gorm"
)

// Subtitle represents one subtitle track extracted from a video's source
// streams. TrackIndex is 0-based within the per-video subtitle set, not
// the source container's stream index.
type Subtitle struct {
	ID uint `gorm:"primarykey" json:"id"`

	VideoID string `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_video_track,priority:1" json:"video_id"`

	TrackIndex int `gorm:"not null;uniqueIndex:idx_video_track,priority:2" json:"track_index"`

	Codec    string `gorm:"size:32;not null" json:"codec"`
	Language string `gorm:"size:16" json:"language,omitempty"`
	Title    string `gorm:"size:255" json:"title,omitempty"`

	IsDefault bool `gorm:"default:false" json:"is_default"`
	IsForced  bool `gorm:"default:false" json:"is_forced"`

	StorageKey string `gorm:"not null;size:1024" json:"storage_key"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Video *Video `gorm:"foreignKey:VideoID" json:"-"`
}

// TableName returns the table name for Subtitle.
func (Subtitle) TableName() string {
	return "subtitles"
}

// Validate performs basic validation on the subtitle track.
func (s *Subtitle) Validate() error {
	if s.VideoID == "" {
		return ErrVideoIDRequired
	}
	if s.TrackIndex < 0 {
		return ErrTrackIndexInvalid
	}
	if s.StorageKey == "" {
		return ErrStorageKeyRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the subtitle.
func (s *Subtitle) BeforeCreate(tx *gorm.DB) error {
	return s.Validate()
}

// BeforeUpdate is a GORM hook that validates the subtitle before update.
func (s *Subtitle) BeforeUpdate(tx *gorm.DB) error {
	return s.Validate()
}

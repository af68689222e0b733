package models

import (
	"time"

	"gorm.io/gorm"
)

// Chapter represents one chapter marker probed from a video's source
// container. Ordinals are dense from 0 within a video; density is enforced
// by the prober that writes the full set, not by this model in isolation.
type Chapter struct {
	ID uint `gorm:"primarykey" json:"id"`

	VideoID string `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_video_ordinal,priority:1" json:"video_id"`

	Ordinal int `gorm:"not null;uniqueIndex:idx_video_ordinal,priority:2" json:"ordinal"`

	StartSec float64 `gorm:"not null" json:"start_sec"`
	EndSec   float64 `gorm:"not null" json:"end_sec"`
	Title    string  `gorm:"size:512" json:"title,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Video *Video `gorm:"foreignKey:VideoID" json:"-"`
}

// TableName returns the table name for Chapter.
func (Chapter) TableName() string {
	return "chapters"
}

// Validate performs basic validation on the chapter.
func (c *Chapter) Validate() error {
	if c.VideoID == "" {
		return ErrVideoIDRequired
	}
	if c.Ordinal < 0 {
		return ErrOrdinalInvalid
	}
	if c.StartSec < 0 || c.EndSec <= c.StartSec {
		return ErrInvalidTimeRange
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the chapter.
func (c *Chapter) BeforeCreate(tx *gorm.DB) error {
	return c.Validate()
}

// BeforeUpdate is a GORM hook that validates the chapter before update.
func (c *Chapter) BeforeUpdate(tx *gorm.DB) error {
	return c.Validate()
}

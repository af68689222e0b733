package models

import (
	"time"

	"gorm.io/gorm"
)

// Attachment represents a non-audiovisual asset extracted from a video's
// source container, such as an embedded font.
type Attachment struct {
	ID uint `gorm:"primarykey" json:"id"`

	VideoID string `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_video_filename,priority:1" json:"video_id"`

	Filename string `gorm:"not null;size:512;uniqueIndex:idx_video_filename,priority:2" json:"filename"`
	Mimetype string `gorm:"size:128" json:"mimetype,omitempty"`

	StorageKey string `gorm:"not null;size:1024" json:"storage_key"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Video *Video `gorm:"foreignKey:VideoID" json:"-"`
}

// TableName returns the table name for Attachment.
func (Attachment) TableName() string {
	return "attachments"
}

// Validate performs basic validation on the attachment.
func (a *Attachment) Validate() error {
	if a.VideoID == "" {
		return ErrVideoIDRequired
	}
	if a.Filename == "" {
		return ErrFilenameRequired
	}
	if a.StorageKey == "" {
		return ErrStorageKeyRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the attachment.
func (a *Attachment) BeforeCreate(tx *gorm.DB) error {
	return a.Validate()
}

// BeforeUpdate is a GORM hook that validates the attachment before update.
func (a *Attachment) BeforeUpdate(tx *gorm.DB) error {
	return a.Validate()
}

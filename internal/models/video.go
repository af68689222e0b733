package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Video represents one ingested, transcoded asset. It does not embed
// BaseModel: its identifier is the externally-visible
// UUID minted at upload time, not a ULID assigned on insert.
type Video struct {
	ID string `gorm:"primarykey;type:varchar(36)" json:"id"`

	// Name is the display title, editable independently of the original
	// uploaded filename.
	Name string `gorm:"not null;size:512;index" json:"name"`

	// TagsJSON stores the tag list as a JSON array, matching the source
	// format's serde_json::to_string(tags) convention. Use Tags()/SetTags.
	TagsJSON string `gorm:"column:tags;type:text" json:"-"`

	// AvailableResolutionsJSON stores the variant labels actually produced
	// (a subset of the fixed ladder, per the source-height invariant).
	AvailableResolutionsJSON string `gorm:"column:available_resolutions;type:text" json:"-"`

	// DurationSec is the duration of the source, in whole seconds. The
	// upload pipeline stores 0 here; it does not record the probed duration.
	DurationSec int `gorm:"column:duration;not null;default:0" json:"duration"`

	// ThumbnailKey is the object store key of the generated poster frame.
	ThumbnailKey string `gorm:"size:1024" json:"thumbnail_key"`

	// Entrypoint is the object store key of the master HLS playlist.
	Entrypoint string `gorm:"not null;size:1024" json:"entrypoint"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Subtitles   []Subtitle   `gorm:"foreignKey:VideoID" json:"subtitles,omitempty"`
	Attachments []Attachment `gorm:"foreignKey:VideoID" json:"attachments,omitempty"`
	Chapters    []Chapter    `gorm:"foreignKey:VideoID" json:"chapters,omitempty"`
}

// TableName returns the table name for Video.
func (Video) TableName() string {
	return "videos"
}

// Tags parses TagsJSON into a string slice. An empty or malformed column
// yields an empty slice rather than an error, since tags are cosmetic.
func (v *Video) Tags() []string {
	return decodeStringSlice(v.TagsJSON)
}

// SetTags serializes tags into TagsJSON.
func (v *Video) SetTags(tags []string) error {
	encoded, err := encodeStringSlice(tags)
	if err != nil {
		return err
	}
	v.TagsJSON = encoded
	return nil
}

// AvailableResolutions parses AvailableResolutionsJSON into a string slice.
func (v *Video) AvailableResolutions() []string {
	return decodeStringSlice(v.AvailableResolutionsJSON)
}

// SetAvailableResolutions serializes the produced variant labels.
func (v *Video) SetAvailableResolutions(labels []string) error {
	encoded, err := encodeStringSlice(labels)
	if err != nil {
		return err
	}
	v.AvailableResolutionsJSON = encoded
	return nil
}

func decodeStringSlice(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func encodeStringSlice(in []string) (string, error) {
	if in == nil {
		in = []string{}
	}
	data, err := json.Marshal(in)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Validate performs basic validation on the video.
func (v *Video) Validate() error {
	if v.Name == "" {
		return ErrNameRequired
	}
	if v.Entrypoint == "" {
		return ErrFilePathRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that mints a UUID if not already set and
// validates the video.
func (v *Video) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return v.Validate()
}

// BeforeUpdate is a GORM hook that validates the video before update.
func (v *Video) BeforeUpdate(tx *gorm.DB) error {
	return v.Validate()
}

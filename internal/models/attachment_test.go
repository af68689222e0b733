package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttachment_Validate(t *testing.T) {
	tests := []struct {
		name       string
		attachment Attachment
		wantErr    error
	}{
		{
			"valid",
			Attachment{VideoID: "v1", Filename: "font.ttf", StorageKey: "videos/v1/attachments/font.ttf"},
			nil,
		},
		{"missing video id", Attachment{Filename: "font.ttf", StorageKey: "k"}, ErrVideoIDRequired},
		{"missing filename", Attachment{VideoID: "v1", StorageKey: "k"}, ErrFilenameRequired},
		{"missing storage key", Attachment{VideoID: "v1", Filename: "font.ttf"}, ErrStorageKeyRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.attachment.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestAttachment_TableName(t *testing.T) {
	assert.Equal(t, "attachments", Attachment{}.TableName())
}

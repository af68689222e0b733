package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubtitle_Validate(t *testing.T) {
	tests := []struct {
		name     string
		subtitle Subtitle
		wantErr  error
	}{
		{
			"valid",
			Subtitle{VideoID: "v1", TrackIndex: 0, StorageKey: "videos/v1/subs/0.vtt"},
			nil,
		},
		{
			"missing video id",
			Subtitle{TrackIndex: 0, StorageKey: "k"},
			ErrVideoIDRequired,
		},
		{
			"negative track index",
			Subtitle{VideoID: "v1", TrackIndex: -1, StorageKey: "k"},
			ErrTrackIndexInvalid,
		},
		{
			"missing storage key",
			Subtitle{VideoID: "v1", TrackIndex: 0},
			ErrStorageKeyRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.subtitle.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestSubtitle_TableName(t *testing.T) {
	assert.Equal(t, "subtitles", Subtitle{}.TableName())
}

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVideo_TagsRoundtrip(t *testing.T) {
	v := &Video{}
	assert.Nil(t, v.Tags(), "unset TagsJSON should decode to nil")

	err := v.SetTags([]string{"nature", "4k"})
	require.NoError(t, err)
	assert.Equal(t, []string{"nature", "4k"}, v.Tags())
}

func TestVideo_Tags_MalformedJSON(t *testing.T) {
	v := &Video{TagsJSON: "not json"}
	assert.Nil(t, v.Tags())
}

func TestVideo_AvailableResolutionsRoundtrip(t *testing.T) {
	v := &Video{}
	err := v.SetAvailableResolutions([]string{"480p", "720p"})
	require.NoError(t, err)
	assert.Equal(t, []string{"480p", "720p"}, v.AvailableResolutions())
}

func TestVideo_Validate(t *testing.T) {
	tests := []struct {
		name    string
		video   Video
		wantErr error
	}{
		{"valid", Video{Name: "clip", Entrypoint: "videos/x/master.m3u8"}, nil},
		{"missing name", Video{Entrypoint: "videos/x/master.m3u8"}, ErrNameRequired},
		{"missing entrypoint", Video{Name: "clip"}, ErrFilePathRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.video.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestVideo_BeforeCreate_MintsUUID(t *testing.T) {
	v := &Video{Name: "clip", Entrypoint: "videos/x/master.m3u8"}
	require.NoError(t, v.BeforeCreate(nil))
	assert.NotEmpty(t, v.ID)
	assert.Len(t, v.ID, 36)
}

func TestVideo_BeforeCreate_PreservesExistingID(t *testing.T) {
	v := &Video{ID: "fixed-id", Name: "clip", Entrypoint: "videos/x/master.m3u8"}
	require.NoError(t, v.BeforeCreate(nil))
	assert.Equal(t, "fixed-id", v.ID)
}

func TestVideo_TableName(t *testing.T) {
	assert.Equal(t, "videos", Video{}.TableName())
}

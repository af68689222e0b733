package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChapter_Validate(t *testing.T) {
	tests := []struct {
		name    string
		chapter Chapter
		wantErr error
	}{
		{"valid", Chapter{VideoID: "v1", Ordinal: 0, StartSec: 0, EndSec: 120}, nil},
		{"missing video id", Chapter{Ordinal: 0, StartSec: 0, EndSec: 120}, ErrVideoIDRequired},
		{"negative ordinal", Chapter{VideoID: "v1", Ordinal: -1, StartSec: 0, EndSec: 120}, ErrOrdinalInvalid},
		{"end equals start", Chapter{VideoID: "v1", Ordinal: 0, StartSec: 10, EndSec: 10}, ErrInvalidTimeRange},
		{"end before start", Chapter{VideoID: "v1", Ordinal: 0, StartSec: 10, EndSec: 5}, ErrInvalidTimeRange},
		{"negative start", Chapter{VideoID: "v1", Ordinal: 0, StartSec: -1, EndSec: 5}, ErrInvalidTimeRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.chapter.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestChapter_TableName(t *testing.T) {
	assert.Equal(t, "chapters", Chapter{}.TableName())
}

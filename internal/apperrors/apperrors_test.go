package apperrors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_HTTPStatus(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected int
	}{
		{KindClientProtocol, http.StatusBadRequest},
		{KindIncompleteUpload, http.StatusBadRequest},
		{KindAuth, http.StatusUnauthorized},
		{KindAuthz, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindProbeFailed, http.StatusUnprocessableEntity},
		{KindTranscodeFailed, http.StatusUnprocessableEntity},
		{KindNoMasterPlaylist, http.StatusUnprocessableEntity},
		{KindObjectStorePut, http.StatusUnprocessableEntity},
		{KindPersistenceFailed, http.StatusUnprocessableEntity},
		{KindSourceTooSmall, http.StatusUnprocessableEntity},
		{KindInternal, http.StatusInternalServerError},
		{Kind("unknown"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.kind.HTTPStatus())
		})
	}
}

func TestClientProtocol(t *testing.T) {
	err := ClientProtocol("chunk_index", "chunk index out of range")
	assert.Equal(t, KindClientProtocol, err.Kind)
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus())
	assert.Contains(t, err.Error(), "chunk index out of range")
	assert.Contains(t, err.Error(), "field=chunk_index")
}

func TestSourceTooSmall(t *testing.T) {
	err := SourceTooSmall(400)
	assert.Equal(t, KindSourceTooSmall, err.Kind)
	assert.Contains(t, err.Error(), "400p")
}

func TestTranscodeFailed_CarriesVariantAndStderr(t *testing.T) {
	cause := errors.New("exit status 1")
	err := TranscodeFailed("720p", cause, "Unknown encoder 'h264_nvenc'")
	assert.Equal(t, "720p", err.VariantLabel)
	assert.Equal(t, "Unknown encoder 'h264_nvenc'", err.StderrTail)
	assert.Contains(t, err.Error(), "variant=720p")
	assert.Contains(t, err.Error(), "exit status 1")
}

func TestObjectStorePut_CarriesKey(t *testing.T) {
	err := ObjectStorePut("videos/v1/master.m3u8", errors.New("connection reset"))
	assert.Equal(t, "videos/v1/master.m3u8", err.Key)
	assert.Contains(t, err.Error(), "key=videos/v1/master.m3u8")
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Internal(cause)
	assert.ErrorIs(t, err, cause)
}

func TestAs(t *testing.T) {
	t.Run("matches an apperrors.Error", func(t *testing.T) {
		original := NotFound("upload not found")
		wrapped := errors.New("wrapping: " + original.Error())
		_, ok := As(wrapped)
		assert.False(t, ok, "a plain errors.New should not be extractable")

		appErr, ok := As(original)
		require.True(t, ok)
		assert.Equal(t, KindNotFound, appErr.Kind)
	})
}

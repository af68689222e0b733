package playback

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
)

func TestRequiresToken(t *testing.T) {
	assert.True(t, requiresToken("index.m3u8"))
	assert.True(t, requiresToken("segment_000.ts"))
	assert.False(t, requiresToken("thumbnail.jpg"))
	assert.False(t, requiresToken("thumbnail.jpeg"))
}

func TestContentTypeForFile(t *testing.T) {
	assert.Equal(t, "application/vnd.apple.mpegurl", contentTypeForFile("index.m3u8"))
	assert.Equal(t, "video/mp2t", contentTypeForFile("segment_000.ts"))
	assert.Equal(t, "image/jpeg", contentTypeForFile("thumbnail.jpg"))
	assert.Equal(t, "image/jpeg", contentTypeForFile("thumbnail.jpeg"))
	assert.Equal(t, "application/octet-stream", contentTypeForFile("unknown.bin"))
}

func TestIsNotFound_DetectsMinioNoSuchKey(t *testing.T) {
	err := minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}
	assert.True(t, isNotFound(err))
}

func TestIsNotFound_FalseForOtherErrors(t *testing.T) {
	assert.False(t, isNotFound(assertErr{}))
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func TestCookieSameSiteAndSecure(t *testing.T) {
	httpsReq := httptest.NewRequest(http.MethodGet, "/player/v1", nil)
	httpsReq.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, http.SameSiteNoneMode, cookieSameSite(httpsReq))
	assert.True(t, isHTTPS(httpsReq))

	httpReq := httptest.NewRequest(http.MethodGet, "/player/v1", nil)
	assert.Equal(t, http.SameSiteLaxMode, cookieSameSite(httpReq))
	assert.False(t, isHTTPS(httpReq))
}

// Package playback implements the Playback Authorizer: it issues and
// verifies HMAC tokens binding a video's playback to the requesting
// client, serves the player page, and proxies HLS segments from the
// object store.
package playback

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// payloadDelimiter separates the four fields of a token payload. Colons
// and pipes both appear in real User-Agent strings, so the ASCII Unit
// Separator is used instead.
const payloadDelimiter = "\x1F"

// defaultTokenTTL is used when AuthConfig.TokenTTL is zero.
const defaultTokenTTL = time.Hour

// Authorizer issues and verifies playback tokens bound to
// (videoId, clientIP, userAgent).
type Authorizer struct {
	secret []byte
	ttl    time.Duration
}

// NewAuthorizer creates an Authorizer with the given HMAC secret. ttl <= 0
// falls back to defaultTokenTTL.
func NewAuthorizer(secret string, ttl time.Duration) *Authorizer {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &Authorizer{secret: []byte(secret), ttl: ttl}
}

// IssueToken returns "{expirySec}:{hex(HMAC-SHA256)}" bound to the given
// video, client IP and user agent, valid for the authorizer's TTL.
func (a *Authorizer) IssueToken(videoID, clientIP, userAgent string) string {
	expiry := time.Now().Add(a.ttl).Unix()
	mac := a.sign(videoID, expiry, clientIP, userAgent)
	return fmt.Sprintf("%d:%s", expiry, hex.EncodeToString(mac))
}

// VerifyToken reports whether token was issued for (videoId, clientIP,
// userAgent) and has not expired. Any parse failure yields false.
func (a *Authorizer) VerifyToken(videoID, token, clientIP, userAgent string) bool {
	parts := strings.SplitN(token, ":", 2)
	if len(parts) != 2 {
		return false
	}

	expiry, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return false
	}
	if time.Now().Unix() > expiry {
		return false
	}

	provided, err := hex.DecodeString(parts[1])
	if err != nil {
		return false
	}

	expected := a.sign(videoID, expiry, clientIP, userAgent)
	return subtle.ConstantTimeCompare(expected, provided) == 1
}

func (a *Authorizer) sign(videoID string, expiry int64, clientIP, userAgent string) []byte {
	payload := strings.Join([]string{
		videoID,
		strconv.FormatInt(expiry, 10),
		clientIP,
		userAgent,
	}, payloadDelimiter)

	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}

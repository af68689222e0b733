package playback

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/minio/minio-go/v7"

	"github.com/jmylchreest/vodforge/internal/apperrors"
	"github.com/jmylchreest/vodforge/internal/database"
	"github.com/jmylchreest/vodforge/internal/models"
	"github.com/jmylchreest/vodforge/internal/objectstore"
)

// Handler serves the player page and proxies HLS/subtitle/attachment
// bytes from the object store, gating HLS manifests and segments behind
// a playback token.
type Handler struct {
	db         *database.DB
	store      *objectstore.Client
	authorizer *Authorizer
}

// NewHandler creates a Handler.
func NewHandler(db *database.DB, store *objectstore.Client, authorizer *Authorizer) *Handler {
	return &Handler{db: db, store: store, authorizer: authorizer}
}

// Register mounts the player page and HLS/subtitle/attachment routes on a
// chi router. These are raw routes, not Huma operations: the player page
// returns HTML with a Set-Cookie header and the proxy routes stream
// arbitrary binary bodies, neither of which fits Huma's typed JSON model.
func (h *Handler) Register(router chi.Router) {
	router.Get("/player/{id}", h.ServePlayer)
	router.Get("/hls/{id}/*", h.ServeHLSFile)
	router.Get("/api/videos/{id}/subtitles/{trackIndexExt}", h.ServeSubtitle)
	router.Get("/api/videos/{id}/attachments/{filename}", h.ServeAttachment)
}

func (h *Handler) loadVideo(id string) (*models.Video, error) {
	var video models.Video
	err := h.db.Preload("Subtitles").Preload("Attachments").Preload("Chapters").
		First(&video, "id = ?", id).Error
	if err != nil {
		return nil, apperrors.NotFound(fmt.Sprintf("video %q not found", id))
	}
	return &video, nil
}

// ServePlayer issues a playback token, sets it as a cookie, and returns
// the player HTML page.
func (h *Handler) ServePlayer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	video, err := h.loadVideo(id)
	if err != nil {
		writeAppError(w, err)
		return
	}

	clientIP := ClientIP(r)
	userAgent := r.Header.Get("User-Agent")
	token := h.authorizer.IssueToken(id, clientIP, userAgent)

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   int(h.authorizer.ttl.Seconds()),
		SameSite: cookieSameSite(r),
		Secure:   isHTTPS(r),
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(renderPlayerPage(id, video)))
}

func isHTTPS(r *http.Request) bool {
	return r.Header.Get("X-Forwarded-Proto") == "https"
}

func cookieSameSite(r *http.Request) http.SameSite {
	if isHTTPS(r) {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// ServeHLSFile proxies one object from the store. file is the wildcard
// remainder of the path, e.g. "index.m3u8" or "480p/segment_001.ts" —
// variant playlists and segments live one directory below the master
// playlist, so a single path segment isn't enough to address them.
// Manifests (.m3u8) and segments (.ts) require a valid token cookie bound
// to (id, clientIP, userAgent); thumbnails do not.
func (h *Handler) ServeHLSFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	file := chi.URLParam(r, "*")

	if requiresToken(file) {
		cookie, err := r.Cookie("token")
		token := ""
		if err == nil {
			token = cookie.Value
		}
		clientIP := ClientIP(r)
		userAgent := r.Header.Get("User-Agent")
		if !h.authorizer.VerifyToken(id, token, clientIP, userAgent) {
			writeAppError(w, apperrors.Authz("invalid or expired playback token"))
			return
		}
	}

	key := "videos/" + id + "/" + file
	h.proxyObject(w, r, key, contentTypeForFile(file))
}

// ServeSubtitle proxies one extracted subtitle track. pathSegment is
// "{trackIndex}.{ext}"; these endpoints are authenticated separately from
// the HLS token per the spec's API-brokered exemption, so no token check
// happens here.
func (h *Handler) ServeSubtitle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pathSegment := chi.URLParam(r, "trackIndexExt")

	video, err := h.loadVideo(id)
	if err != nil {
		writeAppError(w, err)
		return
	}

	dot := strings.LastIndex(pathSegment, ".")
	if dot == -1 {
		writeAppError(w, apperrors.NotFound("subtitle track not found"))
		return
	}
	trackIndex := pathSegment[:dot]

	for _, sub := range video.Subtitles {
		if fmt.Sprint(sub.TrackIndex) == trackIndex {
			h.proxyObject(w, r, sub.StorageKey, "text/plain; charset=utf-8")
			return
		}
	}
	writeAppError(w, apperrors.NotFound("subtitle track not found"))
}

// ServeAttachment proxies one dumped font attachment by filename.
func (h *Handler) ServeAttachment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	filename := chi.URLParam(r, "filename")

	video, err := h.loadVideo(id)
	if err != nil {
		writeAppError(w, err)
		return
	}

	for _, att := range video.Attachments {
		if att.Filename == filename {
			contentType := att.Mimetype
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			h.proxyObject(w, r, att.StorageKey, contentType)
			return
		}
	}
	writeAppError(w, apperrors.NotFound("attachment not found"))
}

func (h *Handler) proxyObject(w http.ResponseWriter, r *http.Request, key, contentType string) {
	obj, err := h.store.Get(r.Context(), key)
	if err != nil {
		if isNotFound(err) {
			writeAppError(w, apperrors.NotFound(fmt.Sprintf("object %q not found", key)))
			return
		}
		writeAppError(w, apperrors.Internal(err))
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, obj)
}

func isNotFound(err error) bool {
	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) {
		return minioErr.Code == "NoSuchKey" || minioErr.StatusCode == http.StatusNotFound
	}
	return false
}

// requiresToken reports whether file is an HLS manifest or segment,
// which must be gated by a playback token. Thumbnails are not gated.
func requiresToken(file string) bool {
	return strings.HasSuffix(file, ".m3u8") || strings.HasSuffix(file, ".ts")
}

func contentTypeForFile(file string) string {
	switch {
	case strings.HasSuffix(file, ".m3u8"):
		return "application/vnd.apple.mpegurl"
	case strings.HasSuffix(file, ".ts"):
		return "video/mp2t"
	case strings.HasSuffix(file, ".jpg"), strings.HasSuffix(file, ".jpeg"):
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

func writeAppError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.Internal(err)
	}
	http.Error(w, appErr.Message, appErr.HTTPStatus())
}

// Package apperrors defines the kind-based error taxonomy shared across the
// upload, probe, transcode, upload-to-object-store and playback paths. Each
// error carries a Kind that maps directly to an HTTP status, so handlers
// never need a type switch to decide how to respond.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies a category of failure, independent of where it occurred.
type Kind string

const (
	KindClientProtocol    Kind = "client_protocol_error"
	KindAuth              Kind = "auth_error"
	KindAuthz             Kind = "authz_error"
	KindNotFound          Kind = "not_found_error"
	KindProbeFailed       Kind = "probe_failed"
	KindTranscodeFailed   Kind = "transcode_failed"
	KindNoMasterPlaylist  Kind = "no_master_playlist"
	KindObjectStorePut    Kind = "object_store_put_failed"
	KindPersistenceFailed Kind = "persistence_failed"
	KindSourceTooSmall    Kind = "source_too_small"
	KindIncompleteUpload  Kind = "incomplete_upload"
	KindInternal          Kind = "internal"
)

// HTTPStatus returns the status code a handler should respond with for this
// kind. Kinds that only ever surface as a terminal ProgressEntry (ProbeFailed,
// TranscodeFailed, NoMasterPlaylist, ObjectStorePutFailed, PersistenceFailed)
// still get a status here for completeness and for any synchronous caller
// that surfaces them directly (e.g. a synchronous probe-only endpoint).
func (k Kind) HTTPStatus() int {
	switch k {
	case KindClientProtocol, KindIncompleteUpload:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindAuthz:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindProbeFailed, KindTranscodeFailed, KindNoMasterPlaylist,
		KindObjectStorePut, KindPersistenceFailed, KindSourceTooSmall:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Error is the concrete error type carrying a Kind plus structured context.
// Field is populated for client-facing validation failures; VariantLabel and
// StderrTail for transcode/probe failures; Key for object-store failures.
type Error struct {
	Kind         Kind
	Message      string
	Field        string
	VariantLabel string
	StderrTail   string
	Key          string
	Cause        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field=%s)", msg, e.Field)
	}
	if e.VariantLabel != "" {
		msg = fmt.Sprintf("%s (variant=%s)", msg, e.VariantLabel)
	}
	if e.Key != "" {
		msg = fmt.Sprintf("%s (key=%s)", msg, e.Key)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the HTTP status implied by this error's kind.
func (e *Error) HTTPStatus() int {
	return e.Kind.HTTPStatus()
}

func newErr(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// ClientProtocol reports malformed multipart, a missing required field, a
// bad chunk index, or an unknown uploadId on finalize.
func ClientProtocol(field, message string) *Error {
	return &Error{Kind: KindClientProtocol, Message: message, Field: field}
}

// Auth reports a missing or invalid admin credential on a protected endpoint.
func Auth(message string) *Error {
	return newErr(KindAuth, message)
}

// Authz reports a missing/invalid/expired playback token, or a cancel
// request against a job whose stage is no longer cancellable.
func Authz(message string) *Error {
	return newErr(KindAuthz, message)
}

// NotFound reports an unknown uploadId on cancel, or an unknown videoId on
// metadata fetch.
func NotFound(message string) *Error {
	return newErr(KindNotFound, message)
}

// ProbeFailed reports an ffprobe invocation that failed or returned
// unparseable output.
func ProbeFailed(cause error, stderrTail string) *Error {
	return &Error{Kind: KindProbeFailed, Message: "media probe failed", Cause: cause, StderrTail: stderrTail}
}

// TranscodeFailed reports an ffmpeg invocation that failed for a variant.
func TranscodeFailed(variantLabel string, cause error, stderrTail string) *Error {
	return &Error{Kind: KindTranscodeFailed, Message: "transcode failed", VariantLabel: variantLabel, Cause: cause, StderrTail: stderrTail}
}

// NoMasterPlaylist reports that the transcode ran but no master playlist
// was produced (every variant failed, or the ladder selected zero variants
// after the source-height check already passed).
func NoMasterPlaylist(cause error) *Error {
	return &Error{Kind: KindNoMasterPlaylist, Message: "no master playlist produced", Cause: cause}
}

// ObjectStorePut reports a failed upload of an artifact to the object store.
func ObjectStorePut(key string, cause error) *Error {
	return &Error{Kind: KindObjectStorePut, Message: "object store put failed", Key: key, Cause: cause}
}

// PersistenceFailed reports a failed database write for the finalized video
// record or its child rows.
func PersistenceFailed(cause error) *Error {
	return &Error{Kind: KindPersistenceFailed, Message: "persistence failed", Cause: cause}
}

// SourceTooSmall reports that the source height is below the smallest
// variant in the ladder, so no variant could be selected.
func SourceTooSmall(sourceHeight int) *Error {
	return &Error{Kind: KindSourceTooSmall, Message: fmt.Sprintf("source height %dp is below the smallest variant in the ladder", sourceHeight)}
}

// IncompleteUpload reports a finalize call before all chunks of the upload
// have been received.
func IncompleteUpload(message string) *Error {
	return newErr(KindIncompleteUpload, message)
}

// Internal wraps an unexpected error for logging and a generic 500 response.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Cause: cause}
}

// As is a convenience wrapper around errors.As for extracting an *Error.
func As(err error) (*Error, bool) {
	var appErr *Error
	ok := errors.As(err, &appErr)
	return appErr, ok
}

package models

import (
	"errors"
	"fmt"
)

// ErrValidation represents a validation error with field and message.
type ErrValidation struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ErrValidation) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// Common validation errors for models.
var (
	// ErrNameRequired indicates a required name field is empty.
	ErrNameRequired = errors.New("name is required")

	// ErrVideoIDRequired indicates a required video ID field is empty.
	ErrVideoIDRequired = errors.New("video_id is required")

	// ErrStorageKeyRequired indicates a required object store key is empty.
	ErrStorageKeyRequired = errors.New("storage_key is required")

	// ErrFilenameRequired indicates a required filename field is empty.
	ErrFilenameRequired = errors.New("filename is required")

	// ErrTrackIndexInvalid indicates a subtitle track index is negative.
	ErrTrackIndexInvalid = errors.New("track_index must be >= 0")

	// ErrOrdinalInvalid indicates a chapter ordinal is negative.
	ErrOrdinalInvalid = errors.New("ordinal must be >= 0")

	// ErrInvalidTimeRange indicates a chapter's start_sec is negative or its
	// end_sec is not after start_sec.
	ErrInvalidTimeRange = errors.New("end_sec must be greater than start_sec")

	// ErrFilePathRequired indicates a required file path field is empty.
	ErrFilePathRequired = errors.New("file_path is required")
)

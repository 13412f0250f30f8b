package apperrors

import (
	"fmt"
	"strings"
)

// ErrNotFound represents an error when a requested resource is not found.
type ErrNotFound struct {
	Resource string
	ID       interface{}
}

// Error implements the error interface.
func (e *ErrNotFound) Error() string {
	if e.ID != nil {
		return fmt.Sprintf("%s with ID %v not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is allows for error checking with errors.Is().
func (e *ErrNotFound) Is(target error) bool {
	_, ok := target.(*ErrNotFound)
	return ok
}

// NewNotFoundError creates a new ErrNotFound.
func NewNotFoundError(resource string, id interface{}) *ErrNotFound {
	return &ErrNotFound{
		Resource: resource,
		ID:       id,
	}
}

// ErrTranscriptsDisabled is returned when the video exists but has no caption tracks at all.
type ErrTranscriptsDisabled struct {
	VideoID string
}

// Error implements the error interface.
func (e *ErrTranscriptsDisabled) Error() string {
	return fmt.Sprintf("subtitles are disabled for video %s", e.VideoID)
}

// Is allows for error checking with errors.Is().
func (e *ErrTranscriptsDisabled) Is(target error) bool {
	_, ok := target.(*ErrTranscriptsDisabled)
	return ok
}

// ErrNoTranscriptFound is returned when none of the requested language codes match an available track.
type ErrNoTranscriptFound struct {
	VideoID   string
	Languages []string
	Available []string
}

// Error implements the error interface.
func (e *ErrNoTranscriptFound) Error() string {
	msg := fmt.Sprintf("no transcript found for video %s in languages [%s]", e.VideoID, strings.Join(e.Languages, ", "))
	if len(e.Available) > 0 {
		msg += fmt.Sprintf(" (available: %s)", strings.Join(e.Available, ", "))
	}
	return msg
}

// Is allows for error checking with errors.Is().
func (e *ErrNoTranscriptFound) Is(target error) bool {
	_, ok := target.(*ErrNoTranscriptFound)
	return ok
}

// NewNoTranscriptFoundError creates an ErrNoTranscriptFound.
func NewNoTranscriptFoundError(videoID string, languages, available []string) *ErrNoTranscriptFound {
	return &ErrNoTranscriptFound{
		VideoID:   videoID,
		Languages: languages,
		Available: available,
	}
}

// ErrVideoUnavailable is returned when the provider reports the video does not exist.
type ErrVideoUnavailable struct {
	VideoID string
}

// Error implements the error interface.
func (e *ErrVideoUnavailable) Error() string {
	return fmt.Sprintf("video %s is no longer available", e.VideoID)
}

// Is allows for error checking with errors.Is().
func (e *ErrVideoUnavailable) Is(target error) bool {
	_, ok := target.(*ErrVideoUnavailable)
	return ok
}

// ErrVideoUnplayable is returned when the video exists but cannot be played (age gate, region lock, ...).
type ErrVideoUnplayable struct {
	VideoID string
	Reason  string
}

// Error implements the error interface.
func (e *ErrVideoUnplayable) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("video %s is unplayable", e.VideoID)
	}
	return fmt.Sprintf("video %s is unplayable: %s", e.VideoID, e.Reason)
}

// Is allows for error checking with errors.Is().
func (e *ErrVideoUnplayable) Is(target error) bool {
	_, ok := target.(*ErrVideoUnplayable)
	return ok
}

// ErrRequestBlocked is returned when the provider answers with a bot check or a captcha.
type ErrRequestBlocked struct {
	VideoID string
}

// Error implements the error interface.
func (e *ErrRequestBlocked) Error() string {
	return fmt.Sprintf("requests for video %s are blocked by the provider (bot check or captcha)", e.VideoID)
}

// Is allows for error checking with errors.Is().
func (e *ErrRequestBlocked) Is(target error) bool {
	_, ok := target.(*ErrRequestBlocked)
	return ok
}

// ErrTooManyRequests is returned on HTTP 429.
type ErrTooManyRequests struct {
	URL string
}

// Error implements the error interface.
func (e *ErrTooManyRequests) Error() string {
	return fmt.Sprintf("too many requests to %s", e.URL)
}

// Is allows for error checking with errors.Is().
func (e *ErrTooManyRequests) Is(target error) bool {
	_, ok := target.(*ErrTooManyRequests)
	return ok
}

// ErrInvalidVideoID is returned when a full URL was passed instead of a bare video ID.
type ErrInvalidVideoID struct {
	VideoID string
}

// Error implements the error interface.
func (e *ErrInvalidVideoID) Error() string {
	return fmt.Sprintf("%q is not a video ID; pass the ID only, e.g. \"dQw4w9WgXcQ\" instead of a watch URL", e.VideoID)
}

// Is allows for error checking with errors.Is().
func (e *ErrInvalidVideoID) Is(target error) bool {
	_, ok := target.(*ErrInvalidVideoID)
	return ok
}

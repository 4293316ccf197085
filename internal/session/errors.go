package session

import (
	"errors"

	"github.com/rbright/voicepad/internal/recognizer"
)

var (
	// ErrCapabilityUnavailable indicates no recognizer is wired; start stays disabled.
	ErrCapabilityUnavailable = errors.New("speech recognition is not available")
	// ErrPermissionDenied indicates the microphone check failed.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrNoContent indicates copy or save was attempted on an empty transcript.
	ErrNoContent = errors.New("no transcript content")
	// ErrAlreadyRecording indicates start was requested while a stream is active.
	ErrAlreadyRecording = errors.New("already recording")
	// ErrInvalidSetting indicates an unknown key or malformed value.
	ErrInvalidSetting = errors.New("invalid setting")
	// ErrNotRunning indicates the controller loop is not running.
	ErrNotRunning = errors.New("session controller is not running")
)

// NoContentError carries the status message shown for an empty transcript.
type NoContentError struct {
	Message string
}

func (e *NoContentError) Error() string {
	return e.Message
}

func (e *NoContentError) Is(target error) bool {
	return target == ErrNoContent
}

// RecognitionError is the last stream failure reported by the recognizer.
type RecognitionError struct {
	Code    recognizer.ErrorCode
	Message string
}

func (e *RecognitionError) Error() string {
	return e.Message
}

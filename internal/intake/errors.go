package intake

import (
	"errors"
	"fmt"
)

var (
	// ErrLocationRequired is returned when voice capture starts without an area.
	ErrLocationRequired = errors.New("location required")

	// ErrPhotoRequired is returned by Finalize when the issue needs evidence and
	// no accepted image verdict is attached.
	ErrPhotoRequired = errors.New("photo required")

	// ErrNoVoice is returned by Finalize before any transcript was captured.
	ErrNoVoice = errors.New("voice description required")

	// ErrAlreadyGenerated is returned when Finalize runs on a completed session.
	ErrAlreadyGenerated = errors.New("complaint already generated")

	// ErrCapabilityUnavailable marks an adapter that is disabled or whose
	// circuit is open.
	ErrCapabilityUnavailable = errors.New("capability unavailable")
)

// TranscriptionReason classifies speech-to-text failures.
type TranscriptionReason string

const (
	TranscriptionTimeout            TranscriptionReason = "timeout"
	TranscriptionUnrecognized       TranscriptionReason = "unrecognized"
	TranscriptionServiceUnavailable TranscriptionReason = "service_unavailable"
)

var transcriptionMessages = map[TranscriptionReason]string{
	TranscriptionTimeout:            "Error: No speech detected (Timeout)",
	TranscriptionUnrecognized:       "Voice not understood",
	TranscriptionServiceUnavailable: "Speech service not available",
}

// TranscriptionError is a terminal failure of the voice step. Error returns the
// citizen-facing message.
type TranscriptionError struct {
	Reason TranscriptionReason
	Err    error
}

func (e *TranscriptionError) Error() string {
	if msg, ok := transcriptionMessages[e.Reason]; ok {
		return msg
	}
	return transcriptionMessages[TranscriptionServiceUnavailable]
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// NewTranscriptionError builds a TranscriptionError for reason wrapping cause.
func NewTranscriptionError(reason TranscriptionReason, cause error) *TranscriptionError {
	return &TranscriptionError{Reason: reason, Err: cause}
}

// MismatchError is the soft rejection emitted when voice and image disagree.
// The session stays open so the citizen can attach another image.
type MismatchError struct {
	VoiceIssue IssueType
	ImageIssue IssueType
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("Your voice describes '%s', but the image shows '%s'. Please upload a relevant image.",
		e.VoiceIssue, e.ImageIssue)
}

// Stage identifies a pipeline step in errors, logs, and metrics.
type Stage string

const (
	StageTranscription Stage = "transcription"
	StageImage         Stage = "image"
	StageConsistency   Stage = "consistency"
	StageEvidence      Stage = "evidence"
	StageGeneration    Stage = "generation"
)

var errEmptyComplaint = errors.New("intake: empty complaint from writer")

// StageError wraps an unexpected failure with the stage it happened in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("intake: %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

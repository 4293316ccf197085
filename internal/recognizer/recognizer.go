// Package recognizer defines the streaming speech-recognition capability the
// session controller drives, plus the event vocabulary a backend reports.
package recognizer

import (
	"context"
	"errors"
)

// ErrAlreadyStarted is returned when Start is called while a stream is active.
var ErrAlreadyStarted = errors.New("recognizer already started")

// Options configure one recognition stream.
type Options struct {
	Language       string
	Continuous     bool
	InterimResults bool
}

// Recognizer is a start/stop speech engine. Start returns once the request is
// accepted; the stream outcome arrives on Events. Every stream that Start
// accepts ends with exactly one Ended event.
type Recognizer interface {
	Start(ctx context.Context, opts Options) error
	Stop() error
	Events() <-chan Event
}

// ErrorCode identifies the class of a stream failure.
type ErrorCode string

const (
	CodeNoSpeech     ErrorCode = "no-speech"
	CodeAudioCapture ErrorCode = "audio-capture"
	CodeNotAllowed   ErrorCode = "not-allowed"
	CodeNetwork      ErrorCode = "network"
	CodeOther        ErrorCode = "other"
)

// Event is one of Started, Result, Error or Ended.
type Event interface {
	isEvent()
}

// Started reports that audio is flowing to the engine.
type Started struct{}

// Segment is one recognized span. Final segments will not be revised.
type Segment struct {
	Final      bool
	Transcript string
}

// Result carries the segments that changed, starting at result index Index.
type Result struct {
	Index    int
	Segments []Segment
}

// Error reports a stream failure. An Ended event still follows.
type Error struct {
	Code   ErrorCode
	Detail string
}

// Ended reports that the stream is over.
type Ended struct{}

func (Started) isEvent() {}
func (Result) isEvent()  {}
func (Error) isEvent()   {}
func (Ended) isEvent()   {}

// Split concatenates finalized and interim segment text in order, without
// separators.
func (r Result) Split() (final string, interim string) {
	for _, seg := range r.Segments {
		if seg.Final {
			final += seg.Transcript
		} else {
			interim += seg.Transcript
		}
	}
	return final, interim
}

func (e Error) Error() string {
	if e.Detail == "" {
		return "speech recognition error: " + string(e.Code)
	}
	return "speech recognition error: " + string(e.Code) + ": " + e.Detail
}

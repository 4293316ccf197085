package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rbright/voicepad/internal/store"
)

// ActionGetFeedback tags every feedback request.
const ActionGetFeedback = "getGeminiFeedback"

// MsgNoTranscript is shown when feedback is requested before anything was dictated.
const MsgNoTranscript = "No transcription available."

// ErrNoTranscript indicates the persisted transcript is blank.
var ErrNoTranscript = errors.New("no transcription available")

// Request asks for feedback on Text with free-form Context.
type Request struct {
	Action  string `json:"action"`
	Text    string `json:"text"`
	Context string `json:"context"`
}

// Response carries the raw reply text.
type Response struct {
	Feedback string `json:"feedback"`
}

// Service produces feedback for a transcript.
type Service interface {
	Feedback(context.Context, Request) (Response, error)
}

// ServiceFunc adapts a function to Service.
type ServiceFunc func(context.Context, Request) (Response, error)

func (f ServiceFunc) Feedback(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// Result is a parsed reply plus the raw text it came from.
type Result struct {
	Raw      string
	Sections Sections
}

// Fetch reads the persisted transcript, requests feedback and parses it.
func Fetch(ctx context.Context, local store.Store, svc Service, note string) (Result, error) {
	text, err := store.GetString(ctx, local, store.KeyTranscript)
	if err != nil {
		return Result{}, fmt.Errorf("read transcript: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrNoTranscript
	}
	if svc == nil {
		return Result{}, errors.New("feedback service is not configured")
	}

	resp, err := svc.Feedback(ctx, Request{Action: ActionGetFeedback, Text: text, Context: note})
	if err != nil {
		return Result{}, fmt.Errorf("request feedback: %w", err)
	}
	return Result{Raw: resp.Feedback, Sections: Parse(resp.Feedback)}, nil
}

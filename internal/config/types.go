// Package config resolves, parses, validates, and defaults voicepad configuration.
package config

import (
	"os"
	"strings"
	"time"
)

// Config is the fully materialized runtime configuration.
type Config struct {
	Recognizer RecognizerConfig
	Audio      AudioConfig
	Defaults   DefaultsConfig
	Status     StatusConfig
	Transcript TranscriptConfig
	Clipboard  CommandConfig
	Export     ExportConfig
	Feedback   FeedbackConfig
	Popup      PopupConfig
	Notify     NotifyConfig
	Cues       CuesConfig
}

// RecognizerConfig selects the streaming speech endpoint.
type RecognizerConfig struct {
	Endpoint          string
	Model             string
	APIKeyEnv         string
	NoSpeechTimeoutMS int
	FinalizeTimeoutMS int
}

// APIKey reads the recognizer key from the configured environment variable.
func (r RecognizerConfig) APIKey() string {
	return envValue(r.APIKeyEnv)
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// DefaultsConfig seeds settings before anything is persisted.
type DefaultsConfig struct {
	Language    string
	Continuous  bool
	Punctuation bool
}

// StatusConfig controls how long transient statuses stay visible.
type StatusConfig struct {
	ErrorMS   int
	SuccessMS int
	RestartMS int
}

// Durations converts the millisecond values.
func (s StatusConfig) Durations() (errorStatus, successStatus, restart time.Duration) {
	return ms(s.ErrorMS), ms(s.SuccessMS), ms(s.RestartMS)
}

// TranscriptConfig controls transcript restoration on open.
type TranscriptConfig struct {
	Restore bool
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// ExportConfig sets where saved transcripts go. Empty means the downloads dir.
type ExportConfig struct {
	Dir string
}

// FeedbackConfig selects and configures the feedback service.
type FeedbackConfig struct {
	Backend   string
	GRPC      string
	Listen    string
	TimeoutMS int
	OpenAI    OpenAIConfig
}

// OpenAIConfig targets an OpenAI-compatible chat completion API.
type OpenAIConfig struct {
	BaseURL   string
	Model     string
	APIKeyEnv string
}

// APIKey reads the generator key from the configured environment variable.
func (o OpenAIConfig) APIKey() string {
	return envValue(o.APIKeyEnv)
}

// PopupConfig controls the local web popup.
type PopupConfig struct {
	Addr string
}

// NotifyConfig controls desktop notifications of status messages.
type NotifyConfig struct {
	Enable    bool
	AppName   string
	TimeoutMS int
}

// CuesConfig controls the audible recording cues. Empty files use the
// built-in tones.
type CuesConfig struct {
	Enable    bool
	StartFile string
	StopFile  string
	ErrorFile string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

// Feedback backends.
const (
	BackendGRPC   = "grpc"
	BackendOpenAI = "openai"
)

func envValue(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(name))
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// Package deepgram streams microphone PCM to a Deepgram-compatible live
// transcription websocket and reports recognizer events.
package deepgram

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rbright/voicepad/internal/recognizer"
)

const (
	// DefaultEndpoint is the hosted live transcription endpoint.
	DefaultEndpoint = "wss://api.deepgram.com/v1/listen"
	// DefaultModel is used when Config.Model is empty.
	DefaultModel = "nova-3"

	sampleRate = 16000
	channels   = 1

	defaultNoSpeechTimeout = 8 * time.Second
	defaultFinalizeTimeout = 2 * time.Second
	defaultDialTimeout     = 5 * time.Second
)

// Config controls one Recognizer.
type Config struct {
	Endpoint        string
	Model           string
	APIKey          string
	NoSpeechTimeout time.Duration
	FinalizeTimeout time.Duration
	DialTimeout     time.Duration
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.Endpoint) == "" {
		c.Endpoint = DefaultEndpoint
	}
	if strings.TrimSpace(c.Model) == "" {
		c.Model = DefaultModel
	}
	if c.NoSpeechTimeout <= 0 {
		c.NoSpeechTimeout = defaultNoSpeechTimeout
	}
	if c.FinalizeTimeout <= 0 {
		c.FinalizeTimeout = defaultFinalizeTimeout
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = defaultDialTimeout
	}
	return c
}

// listenURL builds the streaming URL for one set of options.
func listenURL(cfg Config, opts recognizer.Options) (string, error) {
	endpoint, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return "", fmt.Errorf("parse deepgram endpoint %q: %w", cfg.Endpoint, err)
	}
	switch endpoint.Scheme {
	case "ws", "wss":
	case "http":
		endpoint.Scheme = "ws"
	case "https":
		endpoint.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported deepgram endpoint scheme %q", endpoint.Scheme)
	}

	q := endpoint.Query()
	q.Set("model", cfg.Model)
	q.Set("encoding", "linear16")
	q.Set("sample_rate", fmt.Sprintf("%d", sampleRate))
	q.Set("channels", fmt.Sprintf("%d", channels))
	q.Set("punctuate", "false")
	q.Set("interim_results", fmt.Sprintf("%t", opts.InterimResults))
	if lang := strings.TrimSpace(opts.Language); lang != "" {
		q.Set("language", lang)
	}
	endpoint.RawQuery = q.Encode()
	return endpoint.String(), nil
}

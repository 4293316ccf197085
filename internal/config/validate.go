package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	endpoint, err := url.Parse(strings.TrimSpace(cfg.Recognizer.Endpoint))
	if err != nil || endpoint.Host == "" {
		return nil, fmt.Errorf("recognizer.endpoint must be an absolute URL")
	}
	switch endpoint.Scheme {
	case "wss", "https":
	case "ws", "http":
		if !isLoopbackHost(endpoint.Hostname()) {
			warnings = append(warnings, Warning{Message: fmt.Sprintf("recognizer.endpoint %q is unencrypted; audio and the api key travel in clear text", cfg.Recognizer.Endpoint)})
		}
	default:
		return nil, fmt.Errorf("recognizer.endpoint scheme must be one of: wss, ws, https, http")
	}
	if strings.TrimSpace(cfg.Recognizer.APIKeyEnv) == "" {
		return nil, fmt.Errorf("recognizer.api_key_env must not be empty")
	}
	if cfg.Recognizer.NoSpeechTimeoutMS <= 0 {
		return nil, fmt.Errorf("recognizer.no_speech_timeout_ms must be > 0")
	}
	if cfg.Recognizer.FinalizeTimeoutMS <= 0 {
		return nil, fmt.Errorf("recognizer.finalize_timeout_ms must be > 0")
	}

	if strings.TrimSpace(cfg.Defaults.Language) == "" {
		return nil, fmt.Errorf("defaults.language must not be empty")
	}

	if cfg.Status.ErrorMS <= 0 {
		return nil, fmt.Errorf("status.error_ms must be > 0")
	}
	if cfg.Status.SuccessMS <= 0 {
		return nil, fmt.Errorf("status.success_ms must be > 0")
	}
	if cfg.Status.RestartMS < 0 {
		return nil, fmt.Errorf("status.restart_ms must be >= 0")
	}

	if strings.TrimSpace(cfg.Clipboard.Raw) != "" && len(cfg.Clipboard.Argv) == 0 {
		return nil, fmt.Errorf("clipboard_cmd is configured but empty")
	}

	switch cfg.Feedback.Backend {
	case BackendGRPC:
		if strings.TrimSpace(cfg.Feedback.GRPC) == "" {
			return nil, fmt.Errorf("feedback.grpc must not be empty when feedback.backend=grpc")
		}
	case BackendOpenAI:
		if strings.TrimSpace(cfg.Feedback.OpenAI.BaseURL) == "" {
			return nil, fmt.Errorf("feedback.openai.base_url must not be empty when feedback.backend=openai")
		}
		if strings.TrimSpace(cfg.Feedback.OpenAI.APIKeyEnv) == "" {
			return nil, fmt.Errorf("feedback.openai.api_key_env must not be empty when feedback.backend=openai")
		}
	default:
		return nil, fmt.Errorf("feedback.backend must be one of: grpc, openai")
	}
	if cfg.Feedback.TimeoutMS <= 0 {
		return nil, fmt.Errorf("feedback.timeout_ms must be > 0")
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(cfg.Popup.Addr))
	if err != nil {
		return nil, fmt.Errorf("popup.addr must be host:port: %w", err)
	}
	if !isLoopbackHost(host) {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("popup.addr %q is reachable beyond this machine; the popup has no authentication", cfg.Popup.Addr)})
	}

	if cfg.Notify.Enable && strings.TrimSpace(cfg.Notify.AppName) == "" {
		return nil, fmt.Errorf("notify.app_name must not be empty when notify.enable=true")
	}
	if cfg.Notify.TimeoutMS < 0 {
		return nil, fmt.Errorf("notify.timeout_ms must be >= 0")
	}

	return warnings, nil
}

func isLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

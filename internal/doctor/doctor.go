// Package doctor runs runtime readiness diagnostics for config, tools, audio, and remote services.
package doctor

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"google.golang.org/grpc"

	"github.com/rbright/voicepad/internal/audio"
	"github.com/rbright/voicepad/internal/config"
	"github.com/rbright/voicepad/internal/feedback"
	"github.com/rbright/voicepad/internal/ipc"
)

const probeTimeout = 2 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{}

	message := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		message = fmt.Sprintf("using defaults (%q not found)", cfg.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: message})

	checks = append(checks, checkSocketPath())

	checks = append(checks, checkClipboard(cfg.Config.Clipboard))
	checks = append(checks, checkAudioSelection(ctx, cfg.Config))
	if cues := cfg.Config.Cues; cues.Enable && (cues.StartFile != "" || cues.StopFile != "" || cues.ErrorFile != "") {
		checks = append(checks, checkBinary("pw-play", "cue files play through pw-play"))
	}

	recognizer := cfg.Config.Recognizer
	checks = append(checks, checkEnv(recognizer.APIKeyEnv, func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "recognizer api key is set", "recognizer api key is empty; dictation is unavailable"))
	checks = append(checks, checkReachable(ctx, "recognizer.endpoint", recognizer.Endpoint))

	checks = append(checks, checkFeedback(ctx, cfg.Config.Feedback)...)

	return Report{Checks: checks}
}

// checkSocketPath reports where the popup socket lives. A missing
// XDG_RUNTIME_DIR only moves it under the temp dir.
func checkSocketPath() Check {
	path, err := ipc.RuntimeSocketPath()
	if err != nil {
		return Check{Name: "XDG_RUNTIME_DIR", Pass: false, Message: err.Error()}
	}
	message := "popup socket at " + path
	if strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR")) == "" {
		message += " (XDG_RUNTIME_DIR is empty; using the temp dir)"
	}
	return Check{Name: "XDG_RUNTIME_DIR", Pass: true, Message: message}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkClipboard validates the configured command or the native clipboard fallback.
func checkClipboard(cmd config.CommandConfig) Check {
	if len(cmd.Argv) > 0 {
		return checkCommand(cmd.Argv, "clipboard_cmd")
	}
	if clipboard.Unsupported {
		return Check{Name: "clipboard", Pass: false, Message: "no native clipboard tool found (install wl-clipboard, xclip, or xsel)"}
	}
	return Check{Name: "clipboard", Pass: true, Message: "native clipboard available"}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkReachable dials the host behind an http(s)/ws(s) URL.
func checkReachable(ctx context.Context, name string, raw string) Check {
	address, err := dialAddress(raw)
	if err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}

	dialer := net.Dialer{Timeout: probeTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("dial %s failed: %v", address, err)}
	}
	_ = conn.Close()
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("reachable at %s", address)}
}

// checkFeedback probes whichever feedback backend is configured.
func checkFeedback(ctx context.Context, cfg config.FeedbackConfig) []Check {
	switch cfg.Backend {
	case config.BackendOpenAI:
		return []Check{
			checkEnv(cfg.OpenAI.APIKeyEnv, func(v string) bool {
				return strings.TrimSpace(v) != ""
			}, "feedback api key is set", "feedback api key is empty"),
			checkReachable(ctx, "feedback.openai", cfg.OpenAI.BaseURL),
		}
	default:
		return []Check{checkGRPCReady(ctx, cfg.GRPC)}
	}
}

// checkGRPCReady waits for the feedback gRPC connection to become ready.
func checkGRPCReady(ctx context.Context, endpoint string, opts ...grpc.DialOption) Check {
	client, err := feedback.DialGRPC(ctx, feedback.GRPCConfig{Endpoint: endpoint, DialTimeout: probeTimeout}, opts...)
	if err != nil {
		return Check{Name: "feedback.grpc", Pass: false, Message: err.Error()}
	}
	_ = client.Close()
	return Check{Name: "feedback.grpc", Pass: true, Message: fmt.Sprintf("ready at %s", endpoint)}
}

func dialAddress(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("endpoint is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %v", raw, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("endpoint %q has no host", raw)
	}
	if u.Port() != "" {
		return u.Host, nil
	}
	switch u.Scheme {
	case "http", "ws":
		return net.JoinHostPort(u.Hostname(), "80"), nil
	case "https", "wss":
		return net.JoinHostPort(u.Hostname(), "443"), nil
	default:
		return "", fmt.Errorf("endpoint %q has unsupported scheme %q", raw, u.Scheme)
	}
}

package doctor

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rbright/voicepad/internal/config"
	"github.com/rbright/voicepad/internal/feedback"
	"github.com/rbright/voicepad/internal/logging"
	"github.com/stretchr/testify/require"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestReportOKAllPassing(t *testing.T) {
	report := Report{Checks: []Check{{Name: "one", Pass: true}, {Name: "two", Pass: true}}}
	require.True(t, report.OK())
}

func TestCheckEnv(t *testing.T) {
	t.Setenv("TEST_DOCTOR_ENV", "secret")

	check := checkEnv(
		"TEST_DOCTOR_ENV",
		func(v string) bool { return strings.TrimSpace(v) != "" },
		"looks good",
		"unexpected",
	)

	require.True(t, check.Pass)
	require.Equal(t, "looks good", check.Message)
}

func TestCheckCommandEmpty(t *testing.T) {
	check := checkCommand(nil, "clipboard_cmd")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "command is empty")
}

func TestCheckBinaryFound(t *testing.T) {
	check := checkBinary("sh", "shell available")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "shell available")
}

func TestCheckBinaryMissing(t *testing.T) {
	check := checkBinary("definitely-not-a-real-binary", "unused")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "binary not found")
}

func TestCheckClipboardUsesConfiguredCommand(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "fake-copy")
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/usr/bin/env sh\nexit 0\n"), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))

	check := checkClipboard(config.CommandConfig{Raw: "fake-copy --trim", Argv: []string{"fake-copy", "--trim"}})
	require.True(t, check.Pass)
	require.Equal(t, "fake-copy", check.Name)
	require.Contains(t, check.Message, "clipboard_cmd command is available")
}

func TestCheckClipboardNativeFallbackNamesClipboard(t *testing.T) {
	check := checkClipboard(config.CommandConfig{})
	require.Equal(t, "clipboard", check.Name)
}

func TestDialAddress(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr string
	}{
		{name: "wss default port", raw: "wss://api.deepgram.com/v1/listen", want: "api.deepgram.com:443"},
		{name: "https default port", raw: "https://api.openai.com/v1", want: "api.openai.com:443"},
		{name: "ws default port", raw: "ws://localhost/v1/listen", want: "localhost:80"},
		{name: "explicit port", raw: "http://127.0.0.1:8080/v1", want: "127.0.0.1:8080"},
		{name: "empty", raw: " ", wantErr: "endpoint is empty"},
		{name: "no host", raw: "/v1/listen", wantErr: "has no host"},
		{name: "bad scheme", raw: "ftp://example.com", wantErr: "unsupported scheme"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := dialAddress(tc.raw)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestCheckReachableSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	check := checkReachable(context.Background(), "recognizer.endpoint", server.URL+"/v1/listen")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "reachable at")
}

func TestCheckReachableFailure(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	address := listener.Addr().String()
	require.NoError(t, listener.Close())

	check := checkReachable(context.Background(), "recognizer.endpoint", "ws://"+address+"/v1/listen")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "dial "+address+" failed")
}

func TestCheckGRPCReadySuccess(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	svc := feedback.ServiceFunc(func(context.Context, feedback.Request) (feedback.Response, error) {
		return feedback.Response{Feedback: "Summary: ok"}, nil
	})
	go func() { done <- feedback.Serve(ctx, listener, svc, logging.Discard()) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
	})

	check := checkGRPCReady(context.Background(), listener.Addr().String())
	require.True(t, check.Pass, check.Message)
	require.Contains(t, check.Message, "ready at")
}

func TestCheckGRPCReadyEmptyEndpoint(t *testing.T) {
	check := checkGRPCReady(context.Background(), "")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "feedback endpoint is empty")
}

func TestCheckFeedbackOpenAIChecksKeyAndBaseURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	t.Setenv("VOICEPAD_TEST_OPENAI_KEY", "")

	cfg := config.Default().Feedback
	cfg.Backend = config.BackendOpenAI
	cfg.OpenAI.APIKeyEnv = "VOICEPAD_TEST_OPENAI_KEY"
	cfg.OpenAI.BaseURL = server.URL + "/v1"

	checks := checkFeedback(context.Background(), cfg)
	require.Len(t, checks, 2)
	require.False(t, checks[0].Pass)
	require.Equal(t, "feedback api key is empty", checks[0].Message)
	require.True(t, checks[1].Pass)
	require.Equal(t, "feedback.openai", checks[1].Name)
}

func TestCheckAudioSelectionFailureWithInvalidPulseServer(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	check := checkAudioSelection(context.Background(), config.Default())
	require.False(t, check.Pass)
	require.Contains(t, check.Name, "audio.device")
}

func TestRunReportsMissingRecognizerKey(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	t.Setenv("VOICEPAD_TEST_DEEPGRAM_KEY", "")

	cfg := config.Default()
	cfg.Recognizer.APIKeyEnv = "VOICEPAD_TEST_DEEPGRAM_KEY"
	cfg.Recognizer.Endpoint = "ws://127.0.0.1:1/v1/listen"
	cfg.Feedback.GRPC = "127.0.0.1:1"

	report := Run(context.Background(), config.Loaded{Path: "/tmp/config.jsonc", Config: cfg})
	require.False(t, report.OK())

	var sawKey, sawConfig bool
	for _, check := range report.Checks {
		switch check.Name {
		case "VOICEPAD_TEST_DEEPGRAM_KEY":
			sawKey = true
			require.False(t, check.Pass)
		case "config":
			sawConfig = true
			require.Contains(t, check.Message, "using defaults")
		}
	}
	require.True(t, sawKey)
	require.True(t, sawConfig)
}

func TestRunChecksPwPlayOnlyForCueFiles(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	names := func(cfg config.Config) []string {
		report := Run(context.Background(), config.Loaded{Path: "/tmp/config.jsonc", Exists: true, Config: cfg})
		var out []string
		for _, check := range report.Checks {
			out = append(out, check.Name)
		}
		return out
	}

	cfg := config.Default()
	cfg.Recognizer.Endpoint = "ws://127.0.0.1:1/v1/listen"
	cfg.Feedback.GRPC = "127.0.0.1:1"
	cfg.Cues.Enable = true
	require.NotContains(t, names(cfg), "pw-play")

	cfg.Cues.StopFile = "/tmp/stop.wav"
	require.Contains(t, names(cfg), "pw-play")
}

func TestCheckSocketPath(t *testing.T) {
	runtimeDir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", runtimeDir)
	check := checkSocketPath()
	require.True(t, check.Pass)
	require.Equal(t, "popup socket at "+filepath.Join(runtimeDir, "voicepad.sock"), check.Message)

	t.Setenv("XDG_RUNTIME_DIR", "")
	check = checkSocketPath()
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "using the temp dir")
}

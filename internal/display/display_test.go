package display

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/voicepad/internal/session"
)

func TestTerminalPrintsChangesOnly(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf)

	term.ShowStatus(session.Status{Text: session.MsgReady, Kind: session.StatusReady})
	term.ShowStatus(session.Status{Text: session.MsgReady, Kind: session.StatusReady})
	term.ShowTranscript(session.View{})
	term.ShowTranscript(session.View{Transcript: "Hello \x1b[2Jworld.", Interim: "next"})
	term.ShowControls(session.Controls{StartEnabled: false, StopEnabled: true})
	term.ShowSettings(session.DefaultSettings())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Equal(t, []string{
		"● Ready to transcribe",
		"Your transcribed text will appear here...",
		"Hello world.",
		"next",
		"[stop]",
		"language=en-US continuous=false punctuation=true",
	}, lines)
}

func TestTerminalControlsHint(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf)
	term.ShowControls(session.Controls{StartEnabled: true})
	term.ShowControls(session.Controls{})
	require.Equal(t, "[start]\n[unavailable]\n", buf.String())
}

type recorded struct {
	calls []string
}

func (r *recorded) ShowTranscript(v session.View) { r.calls = append(r.calls, "transcript:"+v.Transcript) }
func (r *recorded) ShowStatus(s session.Status) { r.calls = append(r.calls, "status:"+s.Text) }
func (r *recorded) ShowControls(session.Controls) { r.calls = append(r.calls, "controls") }
func (r *recorded) ShowSettings(s session.Settings) { r.calls = append(r.calls, "settings:"+s.Language) }

func TestMultiFansOut(t *testing.T) {
	a, b := &recorded{}, &recorded{}
	m := Multi{a, b}
	m.ShowTranscript(session.View{Transcript: "x"})
	m.ShowStatus(session.Status{Text: "s"})
	m.ShowControls(session.Controls{})
	m.ShowSettings(session.Settings{Language: "fr-FR"})

	want := []string{"transcript:x", "status:s", "controls", "settings:fr-FR"}
	require.Equal(t, want, a.calls)
	require.Equal(t, want, b.calls)
}

func TestDesktopNotifierReplacesAndDismisses(t *testing.T) {
	type call struct {
		replaceID uint32
		summary   string
	}
	var notified []call
	var dismissed []uint32

	n := NewDesktopNotifier("", 0, nil)
	n.notify = func(_ context.Context, appName string, replaceID uint32, summary string, timeoutMS int) (uint32, error) {
		require.Equal(t, "voicepad", appName)
		require.Equal(t, 3000, timeoutMS)
		notified = append(notified, call{replaceID: replaceID, summary: summary})
		return 7, nil
	}
	n.dismiss = func(_ context.Context, id uint32) error {
		dismissed = append(dismissed, id)
		return nil
	}

	n.ShowStatus(session.Status{Text: session.MsgReady, Kind: session.StatusReady})
	n.ShowStatus(session.Status{Text: session.MsgRecording, Kind: session.StatusRecording})
	n.ShowStatus(session.Status{Text: session.MsgNoSpeech, Kind: session.StatusError})
	n.ShowStatus(session.Status{Text: session.MsgReady, Kind: session.StatusReady})
	n.Close()

	require.Equal(t, []call{
		{replaceID: 0, summary: session.MsgRecording},
		{replaceID: 7, summary: session.MsgNoSpeech},
	}, notified)
	require.Equal(t, []uint32{7}, dismissed)
}

func TestDesktopNotifierToleratesFailures(t *testing.T) {
	n := NewDesktopNotifier("app", 100, nil)
	n.notify = func(context.Context, string, uint32, string, int) (uint32, error) {
		return 0, errors.New("no bus")
	}
	n.dismiss = func(context.Context, uint32) error {
		t.Fatal("dismiss without an active notification")
		return nil
	}
	n.ShowStatus(session.Status{Text: "x", Kind: session.StatusError})
	n.ShowStatus(session.Status{Text: session.MsgReady, Kind: session.StatusReady})
	n.Close()
}

func TestDesktopNotifyUsesBusctl(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	installBusctlStub(t, `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
if [[ "${6:-}" == "Notify" ]]; then
  echo 'u 42'
fi
`)

	id, err := desktopNotify(context.Background(), "voicepad", 0, "Recording...", 1500)
	require.NoError(t, err)
	require.Equal(t, uint32(42), id)
	require.NoError(t, desktopDismiss(context.Background(), id))

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "Notify susssasa{sv}i voicepad 0  Recording...  0 0 1500")
	require.True(t, strings.HasSuffix(lines[1], "CloseNotification u 42"))
}

func TestDesktopNotifyRejectsInvalidResponse(t *testing.T) {
	installBusctlStub(t, `echo 'garbage'`)
	_, err := desktopNotify(context.Background(), "voicepad", 0, "x", 1)
	require.ErrorContains(t, err, "invalid response")
}

func TestDesktopNotifyReportsCommandOutput(t *testing.T) {
	installBusctlStub(t, `echo 'no session bus' >&2; exit 1`)
	_, err := desktopNotify(context.Background(), "voicepad", 0, "x", 1)
	require.ErrorContains(t, err, "no session bus")
}

func installBusctlStub(t *testing.T, body string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "busctl")
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + strings.TrimSpace(body) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}

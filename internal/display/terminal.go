// Package display renders controller output on a terminal and as desktop
// notifications.
package display

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/rbright/voicepad/internal/render"
	"github.com/rbright/voicepad/internal/session"
)

var (
	statusStyles = map[session.StatusKind]lipgloss.Style{
		session.StatusReady:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		session.StatusRecording: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		session.StatusError:     lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		session.StatusSuccess:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	}
	transcriptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	placeholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	hintStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
)

// Terminal prints controller output as plain lines on a writer.
type Terminal struct {
	mu   sync.Mutex
	w    io.Writer
	last map[string]string
}

// NewTerminal writes to w.
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w, last: make(map[string]string)}
}

func (t *Terminal) ShowTranscript(v session.View) {
	text := render.TranscriptText(v)
	style := transcriptStyle
	if v.Empty() {
		style = placeholderStyle
	}
	t.print("transcript", renderLines(style, text))
}

func (t *Terminal) ShowStatus(s session.Status) {
	style, ok := statusStyles[s.Kind]
	if !ok {
		style = statusStyles[session.StatusReady]
	}
	t.print("status", style.Render("● "+ansi.Strip(s.Text)))
}

func (t *Terminal) ShowControls(c session.Controls) {
	hint := "[start]"
	switch {
	case c.StopEnabled:
		hint = "[stop]"
	case !c.StartEnabled:
		hint = "[unavailable]"
	}
	t.print("controls", hintStyle.Render(hint))
}

func (t *Terminal) ShowSettings(s session.Settings) {
	t.print("settings", hintStyle.Render(ansi.Strip(s.String())))
}

// renderLines styles each line on its own so lipgloss does not pad them to a
// common width.
func renderLines(style lipgloss.Style, text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = style.Render(line)
	}
	return strings.Join(lines, "\n")
}

// print writes line unless it repeats the previous output for the same slot.
func (t *Terminal) print(slot string, line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last[slot] == line {
		return
	}
	t.last[slot] = line
	_, _ = fmt.Fprintln(t.w, line)
}

package display

import "github.com/rbright/voicepad/internal/session"

// Multi fans every call out to each display in order.
type Multi []session.Display

func (m Multi) ShowTranscript(v session.View) {
	for _, d := range m {
		d.ShowTranscript(v)
	}
}

func (m Multi) ShowStatus(s session.Status) {
	for _, d := range m {
		d.ShowStatus(s)
	}
}

func (m Multi) ShowControls(c session.Controls) {
	for _, d := range m {
		d.ShowControls(c)
	}
}

func (m Multi) ShowSettings(s session.Settings) {
	for _, d := range m {
		d.ShowSettings(s)
	}
}

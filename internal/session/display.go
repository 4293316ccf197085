package session

// View is the transcript area: committed text plus the transient interim line.
type View struct {
	Transcript string `json:"transcript"`
	Interim    string `json:"interim"`
}

// Empty reports whether the placeholder should be shown.
func (v View) Empty() bool {
	return v.Transcript == "" && v.Interim == ""
}

// Controls are the enabled states of the start and stop buttons.
type Controls struct {
	StartEnabled bool `json:"start_enabled"`
	StopEnabled  bool `json:"stop_enabled"`
}

// Display renders controller output. Calls arrive on the controller goroutine
// and must not block.
type Display interface {
	ShowTranscript(View)
	ShowStatus(Status)
	ShowControls(Controls)
	ShowSettings(Settings)
}

type noopDisplay struct{}

func (noopDisplay) ShowTranscript(View)   {}
func (noopDisplay) ShowStatus(Status)     {}
func (noopDisplay) ShowControls(Controls) {}
func (noopDisplay) ShowSettings(Settings) {}

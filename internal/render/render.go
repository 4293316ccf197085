// Package render turns transcript views and feedback sections into display
// markup. Every piece of dictated or remote text is escaped.
package render

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/rbright/voicepad/internal/feedback"
	"github.com/rbright/voicepad/internal/session"
)

const Placeholder = "Your transcribed text will appear here..."

// Section placeholders shown when feedback is missing a part.
const (
	NoSummary     = "No summary provided."
	NoStrengths   = "No strengths detected."
	NoSuggestions = "No suggestions provided."
	NoScore       = "No score."
)

var transcriptTemplate = template.Must(template.New("transcript").Parse(
	`{{if .Empty}}<p class="placeholder">` + Placeholder + `</p>` +
		`{{else}}{{with .Transcript}}<div class="transcription-text">{{.}}</div>{{end}}` +
		`{{with .Interim}}<div class="interim-text">{{.}}</div>{{end}}{{end}}`,
))

var cardTemplate = template.Must(template.New("card").Parse(`{{range .}}<div class="feedback-section feedback-{{.Class}}">
  <span class="feedback-title">{{.Title}}</span>
  <div class="feedback-body">{{if .Text}}{{.Text}}{{else}}<em>{{.Placeholder}}</em>{{end}}</div>
</div>
{{end}}`))

type cardSection struct {
	Class       string
	Title       string
	Text        string
	Placeholder string
}

func cardSections(s feedback.Sections) []cardSection {
	return []cardSection{
		{Class: "summary", Title: "📋 Summary", Text: s.Summary, Placeholder: NoSummary},
		{Class: "strengths", Title: "✅ Strengths", Text: s.Strengths, Placeholder: NoStrengths},
		{Class: "suggestions", Title: "🛠️ Suggestions", Text: s.Suggestions, Placeholder: NoSuggestions},
		{Class: "score", Title: "📈 Score", Text: s.Score, Placeholder: NoScore},
	}
}

// TranscriptHTML renders the transcript area.
func TranscriptHTML(v session.View) string {
	return execute(transcriptTemplate, v)
}

// FeedbackCardHTML renders the four feedback sections.
func FeedbackCardHTML(s feedback.Sections) string {
	return execute(cardTemplate, cardSections(s))
}

// TranscriptText renders the transcript for a terminal, with escape
// sequences removed so dictated text cannot drive the terminal.
func TranscriptText(v session.View) string {
	if v.Empty() {
		return Placeholder
	}
	var b strings.Builder
	b.WriteString(ansi.Strip(v.Transcript))
	if v.Interim != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(ansi.Strip(v.Interim))
	}
	return b.String()
}

// FeedbackCardText renders feedback sections as plain terminal text.
func FeedbackCardText(s feedback.Sections) string {
	var b strings.Builder
	for i, section := range cardSections(s) {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(section.Title)
		b.WriteString("\n")
		text := strings.TrimSpace(ansi.Strip(section.Text))
		if text == "" {
			text = section.Placeholder
		}
		b.WriteString(text)
	}
	return b.String()
}

func execute(t *template.Template, data any) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		// The templates are static and only read strings.
		panic(err)
	}
	return buf.String()
}

// Package feedback requests coaching feedback on a transcript from a remote
// service and splits the reply into labelled sections.
package feedback

import (
	"regexp"
	"strings"
)

// Sections are the four parts of a feedback reply. Any may be empty.
type Sections struct {
	Summary     string `json:"summary"`
	Strengths   string `json:"strengths"`
	Suggestions string `json:"suggestions"`
	Score       string `json:"score"`
}

// Empty reports whether no section has content.
func (s Sections) Empty() bool {
	return s.Summary == "" && s.Strengths == "" && s.Suggestions == "" && s.Score == ""
}

// section captures from the first label match up to the first stop match
// after it, or to the end of the text when stop is nil or absent.
type section struct {
	label *regexp.Regexp
	stop  *regexp.Regexp
}

var (
	summarySection = section{
		label: regexp.MustCompile(`(?i)(?:Summary|Message|Overview)[:\n]+`),
		stop:  regexp.MustCompile(`(?i)Strengths|Suggestions|Score`),
	}
	strengthsSection = section{
		label: regexp.MustCompile(`(?i)(?:Strengths|Positives|Good)[:\n]+`),
		stop:  regexp.MustCompile(`(?i)Suggestions|Score`),
	}
	suggestionsSection = section{
		label: regexp.MustCompile(`(?i)(?:Suggestions|Improvements|To improve)[:\n]+`),
		stop:  regexp.MustCompile(`(?i)Score`),
	}
	scorePattern = regexp.MustCompile(`(?i)(?:Score|Communication score|Rating)[:\n ]+([0-9./\- ]{1,6})`)
)

func (s section) find(raw string) string {
	loc := s.label.FindStringIndex(raw)
	if loc == nil {
		return ""
	}
	rest := raw[loc[1]:]
	if stop := s.stop.FindStringIndex(rest); stop != nil {
		rest = rest[:stop[0]]
	}
	return strings.TrimSpace(rest)
}

// Parse splits raw into sections. Each section is matched independently and
// the first match wins. When nothing matches, the whole trimmed input becomes
// the summary.
func Parse(raw string) Sections {
	out := Sections{
		Summary:     summarySection.find(raw),
		Strengths:   strengthsSection.find(raw),
		Suggestions: suggestionsSection.find(raw),
	}
	if m := scorePattern.FindStringSubmatch(raw); m != nil {
		out.Score = strings.TrimSpace(m[1])
	}
	if out.Empty() {
		out.Summary = strings.TrimSpace(raw)
	}
	return out
}

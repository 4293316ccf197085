package feedback

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Sections
	}{
		{
			name: "summary and score",
			raw:  "Summary: Good job\nScore: 8/10",
			want: Sections{Summary: "Good job", Score: "8/10"},
		},
		{
			name: "all four sections",
			raw: "Summary: Clear update on the release.\n" +
				"Strengths: Concise and specific.\n" +
				"Suggestions: Slow down at the end.\n" +
				"Score: 7/10",
			want: Sections{
				Summary:     "Clear update on the release.",
				Strengths:   "Concise and specific.",
				Suggestions: "Slow down at the end.",
				Score:       "7/10",
			},
		},
		{
			name: "alternate labels and newlines",
			raw:  "OVERVIEW\nA short pitch.\nStrengths:\nEnergy.\nSuggestions:\nFewer fillers.\nRating: 9/10",
			want: Sections{
				Summary:     "A short pitch.",
				Strengths:   "Energy.",
				Suggestions: "Fewer fillers.\nRating: 9/10",
				Score:       "9/10",
			},
		},
		{
			name: "positives label",
			raw:  "Positives: steady pace\nScore: 6",
			want: Sections{Strengths: "steady pace", Score: "6"},
		},
		{
			name: "unstructured prose becomes summary",
			raw:  "  You spoke clearly, nice work overall.  \n",
			want: Sections{Summary: "You spoke clearly, nice work overall."},
		},
		{
			name: "empty input",
			raw:  "   ",
			want: Sections{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Parse(tc.raw))
		})
	}
}

func TestParseScoreStopsAtNonScoreCharacters(t *testing.T) {
	got := Parse("Score: 8/10 because the pacing was good")
	require.Equal(t, "8/10", got.Score)
}

func TestSectionsEmpty(t *testing.T) {
	require.True(t, Sections{}.Empty())
	require.False(t, Sections{Score: "1"}.Empty())
}

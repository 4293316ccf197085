package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergeSettingsOverlaysPresentFields(t *testing.T) {
	base := DefaultSettings()

	merged, err := mergeSettings(base, json.RawMessage(`{"continuous":true,"theme":"dark"}`))
	require.NoError(t, err)
	require.Equal(t, Settings{Language: "en-US", Continuous: true, Punctuation: true}, merged)

	merged, err = mergeSettings(base, json.RawMessage(`{"language":"  ","punctuation":false}`))
	require.NoError(t, err)
	require.Equal(t, Settings{Language: "en-US", Punctuation: false}, merged)

	merged, err = mergeSettings(base, nil)
	require.NoError(t, err)
	require.Equal(t, base, merged)

	merged, err = mergeSettings(base, json.RawMessage(`null`))
	require.NoError(t, err)
	require.Equal(t, base, merged)

	_, err = mergeSettings(base, json.RawMessage(`[1,2]`))
	require.Error(t, err)
}

func TestApplySetting(t *testing.T) {
	s := DefaultSettings()

	next, err := applySetting(s, "Language", " ja-JP ")
	require.NoError(t, err)
	require.Equal(t, "ja-JP", next.Language)

	for _, value := range []string{"on", "yes", "true", "1"} {
		next, err = applySetting(s, "continuous", value)
		require.NoError(t, err)
		require.True(t, next.Continuous, value)
	}
	for _, value := range []string{"off", "no", "false", "0"} {
		next, err = applySetting(s, "punctuation", value)
		require.NoError(t, err)
		require.False(t, next.Punctuation, value)
	}

	_, err = applySetting(s, "continuous", "maybe")
	require.ErrorIs(t, err, ErrInvalidSetting)
	_, err = applySetting(s, "lang", "")
	require.ErrorIs(t, err, ErrInvalidSetting)
	_, err = applySetting(s, "speed", "2")
	require.ErrorIs(t, err, ErrInvalidSetting)
}

func TestSettingsString(t *testing.T) {
	require.Equal(t, "language=en-US continuous=false punctuation=true", DefaultSettings().String())
}

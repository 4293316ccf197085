package display

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rbright/voicepad/internal/session"
	"github.com/stretchr/testify/require"
)

func TestCueSamplesPresent(t *testing.T) {
	require.NotEmpty(t, cueSamples(cueStart))
	require.NotEmpty(t, cueSamples(cueStop))
	require.NotEmpty(t, cueSamples(cueError))
	require.Empty(t, cueSamples(cueKind(0)))
}

func TestSynthesizeToneDuration(t *testing.T) {
	got := synthesizeTone(toneSpec{frequencyHz: 440, duration: 100 * time.Millisecond, volume: 0.2})
	require.Len(t, got, samplesForDuration(100*time.Millisecond))
	require.Zero(t, got[0])
	require.Zero(t, got[len(got)-1])
}

func TestSynthesizeToneInvalidSpecReturnsEmpty(t *testing.T) {
	require.Empty(t, synthesizeTone(toneSpec{frequencyHz: 0, duration: 100 * time.Millisecond, volume: 0.2}))
	require.Empty(t, synthesizeTone(toneSpec{frequencyHz: 440, duration: 0, volume: 0.2}))
	require.Empty(t, synthesizeTone(toneSpec{frequencyHz: 440, duration: 100 * time.Millisecond, volume: 0}))
}

func TestSynthesizeCueAddsGapBetweenTones(t *testing.T) {
	tone := toneSpec{frequencyHz: 440, duration: 50 * time.Millisecond, volume: 0.2}
	got := synthesizeCue([]toneSpec{tone, tone})
	want := 2*samplesForDuration(50*time.Millisecond) + samplesForDuration(22*time.Millisecond)
	require.Len(t, got, want)
	require.Empty(t, synthesizeCue(nil))
}

func TestSamplesForDuration(t *testing.T) {
	require.Equal(t, 0, samplesForDuration(0))
	require.Equal(t, 400, samplesForDuration(25*time.Millisecond))
}

func TestEmitCueRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := emitCue(ctx, cueStart, "")
	require.True(t, errors.Is(err, context.Canceled))
}

func TestExpandUserPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.Equal(t, filepath.Join(home, "sounds", "stop.wav"), expandUserPath(" ~/sounds/stop.wav "))
	require.Equal(t, home, expandUserPath("~"))
	require.Equal(t, "/abs/cue.wav", expandUserPath("/abs/cue.wav"))
	require.Empty(t, expandUserPath(""))
}

func TestCueFilesPath(t *testing.T) {
	files := CueFiles{Start: "/a.wav", Stop: "/b.wav", Error: "/c.wav"}
	require.Equal(t, "/a.wav", files.path(cueStart))
	require.Equal(t, "/b.wav", files.path(cueStop))
	require.Equal(t, "/c.wav", files.path(cueError))
}

func TestPlayCueFileMissing(t *testing.T) {
	err := playCueFile(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
	require.Error(t, err)
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestCuesFollowRecordingTransitions(t *testing.T) {
	var mu sync.Mutex
	var played []string
	cues := NewCues(CueFiles{Stop: "/stop.wav"}, nil)
	cues.play = func(_ context.Context, kind cueKind, path string) error {
		mu.Lock()
		defer mu.Unlock()
		played = append(played, kind.String()+":"+path)
		return nil
	}

	for _, s := range []session.Status{
		{Text: session.MsgReady, Kind: session.StatusReady},
		{Text: session.MsgRecording, Kind: session.StatusRecording},
		{Text: session.MsgRecording, Kind: session.StatusRecording},
		{Text: session.MsgReady, Kind: session.StatusReady},
		{Text: session.MsgCopied, Kind: session.StatusSuccess},
		{Text: session.MsgRecording, Kind: session.StatusRecording},
		{Text: session.MsgNoSpeech, Kind: session.StatusError},
		{Text: session.MsgReady, Kind: session.StatusReady},
	} {
		cues.ShowStatus(s)
	}
	cues.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"start:", "stop:/stop.wav", "start:", "error:"}, played)
}

func TestCuesCloseWithoutStatusReturns(t *testing.T) {
	cues := NewCues(CueFiles{}, nil)
	done := make(chan struct{})
	go func() {
		cues.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("close blocked")
	}
}

package display

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jfreymuth/pulse"

	"github.com/rbright/voicepad/internal/session"
)

type cueKind int

const (
	cueStart cueKind = iota + 1
	cueStop
	cueError
)

func (k cueKind) String() string {
	switch k {
	case cueStart:
		return "start"
	case cueStop:
		return "stop"
	case cueError:
		return "error"
	default:
		return "unknown"
	}
}

const (
	cueSampleRate = 16000
	cueTimeout    = 4 * time.Second
)

type toneSpec struct {
	frequencyHz float64
	duration    time.Duration
	volume      float64
}

var (
	startCuePCM = synthesizeCue([]toneSpec{
		{frequencyHz: 880, duration: 70 * time.Millisecond, volume: 0.18},
		{frequencyHz: 1175, duration: 70 * time.Millisecond, volume: 0.18},
	})
	stopCuePCM = synthesizeCue([]toneSpec{
		{frequencyHz: 740, duration: 65 * time.Millisecond, volume: 0.18},
		{frequencyHz: 988, duration: 90 * time.Millisecond, volume: 0.18},
	})
	errorCuePCM = synthesizeCue([]toneSpec{
		{frequencyHz: 480, duration: 75 * time.Millisecond, volume: 0.18},
		{frequencyHz: 360, duration: 90 * time.Millisecond, volume: 0.18},
	})
)

// CueFiles overrides the built-in tones with sound files played by pw-play.
type CueFiles struct {
	Start string
	Stop  string
	Error string
}

func (f CueFiles) path(kind cueKind) string {
	switch kind {
	case cueStart:
		return expandUserPath(f.Start)
	case cueStop:
		return expandUserPath(f.Stop)
	case cueError:
		return expandUserPath(f.Error)
	default:
		return ""
	}
}

// Cues plays a short sound when recording starts, stops, or fails. Only
// ShowStatus does anything.
type Cues struct {
	files  CueFiles
	logger *slog.Logger
	play   func(ctx context.Context, kind cueKind, path string) error

	start     sync.Once
	stop      sync.Once
	pending   chan cueKind
	done      chan struct{}
	recording bool
}

// NewCues returns a cue player that overrides built-in tones with files.
func NewCues(files CueFiles, logger *slog.Logger) *Cues {
	return &Cues{
		files:   files,
		logger:  logger,
		play:    emitCue,
		pending: make(chan cueKind, 4),
		done:    make(chan struct{}),
	}
}

func (c *Cues) ShowTranscript(session.View)   {}
func (c *Cues) ShowControls(session.Controls) {}
func (c *Cues) ShowSettings(session.Settings) {}

// ShowStatus maps status transitions to cues. It must be called from a single
// goroutine, which the session controller guarantees.
func (c *Cues) ShowStatus(s session.Status) {
	switch {
	case s.Kind == session.StatusRecording:
		if c.recording {
			return
		}
		c.recording = true
		c.enqueue(cueStart)
	case s.Kind == session.StatusError:
		c.recording = false
		c.enqueue(cueError)
	case c.recording:
		c.recording = false
		c.enqueue(cueStop)
	}
}

// Close plays queued cues and stops the worker.
func (c *Cues) Close() {
	c.start.Do(func() { go c.run() })
	c.stop.Do(func() { close(c.pending) })
	<-c.done
}

func (c *Cues) enqueue(kind cueKind) {
	c.start.Do(func() { go c.run() })
	select {
	case c.pending <- kind:
	default:
		if c.logger != nil {
			c.logger.Debug("cue dropped", "cue", kind.String())
		}
	}
}

func (c *Cues) run() {
	defer close(c.done)
	for kind := range c.pending {
		ctx, cancel := context.WithTimeout(context.Background(), cueTimeout)
		err := c.play(ctx, kind, c.files.path(kind))
		cancel()
		if err != nil && c.logger != nil {
			c.logger.Debug("cue playback failed", "cue", kind.String(), "error", err.Error())
		}
	}
}

// emitCue plays the configured file, falling back to the built-in tone.
func emitCue(ctx context.Context, kind cueKind, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path != "" {
		if err := playCueFile(ctx, path); err == nil {
			return nil
		}
	}

	samples := cueSamples(kind)
	if len(samples) == 0 {
		return nil
	}
	return playSynthCue(samples)
}

func expandUserPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw != "~" && !strings.HasPrefix(raw, "~/") {
		return raw
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return raw
	}
	return filepath.Join(home, strings.TrimPrefix(raw, "~"))
}

func playCueFile(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("stat cue file %q: %w", path, err)
	}
	cmd := exec.CommandContext(ctx, "pw-play", "--media-role", "Notification", path)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("play cue file %q: %w", path, err)
	}
	return nil
}

func playSynthCue(samples []int16) error {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("voicepad"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	cursor := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if cursor >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(
		reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueSampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("voicepad cue"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play cue stream: %w", err)
	}
	return nil
}

func cueSamples(kind cueKind) []int16 {
	switch kind {
	case cueStart:
		return startCuePCM
	case cueStop:
		return stopCuePCM
	case cueError:
		return errorCuePCM
	default:
		return nil
	}
}

// synthesizeCue joins tones with a short silence between them.
func synthesizeCue(parts []toneSpec) []int16 {
	gap := make([]int16, samplesForDuration(22*time.Millisecond))
	var pcm []int16
	for i, part := range parts {
		if i > 0 {
			pcm = append(pcm, gap...)
		}
		pcm = append(pcm, synthesizeTone(part)...)
	}
	return pcm
}

// synthesizeTone renders a sine with a linear attack and release of at most 5ms.
func synthesizeTone(spec toneSpec) []int16 {
	n := samplesForDuration(spec.duration)
	if n <= 0 || spec.frequencyHz <= 0 || spec.volume <= 0 {
		return nil
	}

	ramp := min(max(n/10, 1), cueSampleRate/200)
	pcm := make([]int16, n)
	for i := range n {
		envelope := min(1.0, float64(i)/float64(ramp), float64(n-i-1)/float64(ramp))
		t := float64(i) / cueSampleRate
		sample := math.Sin(2 * math.Pi * spec.frequencyHz * t)
		pcm[i] = int16(math.Round(sample * spec.volume * envelope * 32767))
	}
	return pcm
}

func samplesForDuration(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}

package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/voicepad/internal/recognizer"
	"github.com/rbright/voicepad/internal/store"
)

var fixedNow = time.Date(2026, 10, 14, 9, 30, 5, 0, time.UTC)

type fakeRecognizer struct {
	events   chan recognizer.Event
	startErr error

	mu     sync.Mutex
	starts []recognizer.Options
	stops  atomic.Int32
}

func newFakeRecognizer() *fakeRecognizer {
	return &fakeRecognizer{events: make(chan recognizer.Event, 16)}
}

func (f *fakeRecognizer) Start(_ context.Context, opts recognizer.Options) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, opts)
	return f.startErr
}

func (f *fakeRecognizer) Stop() error {
	f.stops.Add(1)
	return nil
}

func (f *fakeRecognizer) Events() <-chan recognizer.Event {
	return f.events
}

func (f *fakeRecognizer) emit(ev recognizer.Event) {
	f.events <- ev
}

func (f *fakeRecognizer) startCalls() []recognizer.Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recognizer.Options(nil), f.starts...)
}

type fakeMicrophone struct {
	err    error
	checks atomic.Int32
}

func (f *fakeMicrophone) CheckMicrophone(context.Context) error {
	f.checks.Add(1)
	return f.err
}

type fakeClipboard struct {
	err error

	mu   sync.Mutex
	text string
}

func (f *fakeClipboard) Copy(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text = text
	return f.err
}

func (f *fakeClipboard) copied() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text
}

type fakeExporter struct {
	err error

	mu   sync.Mutex
	name string
	text string
}

func (f *fakeExporter) Export(_ context.Context, name string, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.name = name
	f.text = text
	if f.err != nil {
		return "", f.err
	}
	return "/tmp/exports/" + name, nil
}

type recordingDisplay struct {
	mu       sync.Mutex
	views    []View
	statuses []Status
	controls []Controls
	settings []Settings
}

func (d *recordingDisplay) ShowTranscript(v View) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.views = append(d.views, v)
}

func (d *recordingDisplay) ShowStatus(s Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.statuses = append(d.statuses, s)
}

func (d *recordingDisplay) ShowControls(c Controls) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.controls = append(d.controls, c)
}

func (d *recordingDisplay) ShowSettings(s Settings) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.settings = append(d.settings, s)
}

func (d *recordingDisplay) lastView() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.views) == 0 {
		return View{}
	}
	return d.views[len(d.views)-1]
}

func (d *recordingDisplay) statusTexts() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.statuses))
	for _, s := range d.statuses {
		out = append(out, s.Text)
	}
	return out
}

type harness struct {
	ctrl    *Controller
	rec     *fakeRecognizer
	mic     *fakeMicrophone
	clip    *fakeClipboard
	exp     *fakeExporter
	display *recordingDisplay
	sync    *store.Memory
	local   *store.Memory
}

type harnessOption func(*testing.T, *harness, *Config)

func withoutRecognizer() harnessOption {
	return func(_ *testing.T, _ *harness, cfg *Config) { cfg.Recognizer = nil }
}

func withSettings(s Settings) harnessOption {
	return func(_ *testing.T, _ *harness, cfg *Config) { cfg.Defaults = &s }
}

func withConfig(fn func(*Config)) harnessOption {
	return func(_ *testing.T, _ *harness, cfg *Config) { fn(cfg) }
}

func withSyncValues(values map[string]any) harnessOption {
	return func(t *testing.T, h *harness, _ *Config) { seedValues(t, h.sync, values) }
}

func withLocalValues(values map[string]any) harnessOption {
	return func(t *testing.T, h *harness, _ *Config) { seedValues(t, h.local, values) }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	h := &harness{
		rec:     newFakeRecognizer(),
		mic:     &fakeMicrophone{},
		clip:    &fakeClipboard{},
		exp:     &fakeExporter{},
		display: &recordingDisplay{},
		sync:    store.NewMemory(),
		local:   store.NewMemory(),
	}
	cfg := Config{
		Recognizer: h.rec,
		Microphone: h.mic,
		Clipboard:  h.clip,
		Exporter:   h.exp,
		Display:    h.display,
		Sync:       h.sync,
		Local:      h.local,
		Timing: Timing{
			ErrorStatus:   150 * time.Millisecond,
			SuccessStatus: 100 * time.Millisecond,
			Restart:       10 * time.Millisecond,
		},
		Now: func() time.Time { return fixedNow },
	}
	for _, opt := range opts {
		opt(t, h, &cfg)
	}
	h.ctrl = NewController(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.ctrl.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return h
}

func seedValues(t *testing.T, s store.Store, values map[string]any) {
	t.Helper()
	rec, err := store.Values(values)
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), rec))
}

func waitFor(t *testing.T, ctrl *Controller, desc string, ok func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	var snap Snapshot
	for time.Now().Before(deadline) {
		var err error
		snap, err = ctrl.Snapshot(context.Background())
		require.NoError(t, err)
		if ok(snap) {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s; last snapshot %+v", desc, snap)
	return snap
}

func (h *harness) startRecording(t *testing.T) {
	t.Helper()
	require.NoError(t, h.ctrl.Start(context.Background()))
	h.rec.emit(recognizer.Started{})
	waitFor(t, h.ctrl, "recording", func(s Snapshot) bool { return s.State == "recording" })
}

func (h *harness) final(text string) {
	h.rec.emit(recognizer.Result{Segments: []recognizer.Segment{{Final: true, Transcript: text}}})
}

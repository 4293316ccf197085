// Package session owns the transcription popup: recording lifecycle,
// accumulated transcript, settings and the transient status line.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/rbright/voicepad/internal/fsm"
	"github.com/rbright/voicepad/internal/recognizer"
	"github.com/rbright/voicepad/internal/store"
)

const storeTimeout = 2 * time.Second

// Microphone checks that capture is permitted before a stream starts.
type Microphone interface {
	CheckMicrophone(context.Context) error
}

// Clipboard places plain text on the system clipboard.
type Clipboard interface {
	Copy(context.Context, string) error
}

// Exporter writes the transcript as a named plain-text file and returns its path.
type Exporter interface {
	Export(ctx context.Context, name string, text string) (string, error)
}

// Timing holds the status and restart delays.
type Timing struct {
	ErrorStatus   time.Duration
	SuccessStatus time.Duration
	Restart       time.Duration
}

// DefaultTiming returns the stock delays: errors revert after 3s, successes
// after 2s, continuous mode restarts after 100ms.
func DefaultTiming() Timing {
	return Timing{
		ErrorStatus:   3 * time.Second,
		SuccessStatus: 2 * time.Second,
		Restart:       100 * time.Millisecond,
	}
}

// Config wires a Controller. Nil collaborators fall back to safe defaults:
// no recognizer disables start, nil stores keep state in memory.
type Config struct {
	Logger     *slog.Logger
	Recognizer recognizer.Recognizer
	Microphone Microphone
	Clipboard  Clipboard
	Exporter   Exporter
	Display    Display
	Sync       store.Store
	Local      store.Store
	Defaults   *Settings
	Timing     Timing
	Restore    bool
	Now        func() time.Time
	// OnClose handles the "close" command. Nil rejects it.
	OnClose func()
}

// Controller serializes every mutation onto the goroutine running Run.
type Controller struct {
	logger  *slog.Logger
	rec     recognizer.Recognizer
	mic     Microphone
	clip    Clipboard
	exp     Exporter
	display Display
	sync    store.Store
	local   store.Store
	timing  Timing
	restore bool
	now     func() time.Time
	onClose func()

	queue   chan func()
	done    chan struct{}
	running atomic.Bool

	// Fields below are owned by the Run goroutine.
	runCtx         context.Context
	state          fsm.State
	settings       Settings
	transcript     string
	interim        string
	status         Status
	controls       Controls
	shouldContinue bool
	lastErr        error
}

// NewController constructs a controller; call Run to start it.
func NewController(cfg Config) *Controller {
	settings := DefaultSettings()
	if cfg.Defaults != nil {
		settings = *cfg.Defaults
	}
	timing := cfg.Timing
	defaults := DefaultTiming()
	if timing.ErrorStatus <= 0 {
		timing.ErrorStatus = defaults.ErrorStatus
	}
	if timing.SuccessStatus <= 0 {
		timing.SuccessStatus = defaults.SuccessStatus
	}
	if timing.Restart <= 0 {
		timing.Restart = defaults.Restart
	}

	c := &Controller{
		logger:   cfg.Logger,
		rec:      cfg.Recognizer,
		mic:      cfg.Microphone,
		clip:     cfg.Clipboard,
		exp:      cfg.Exporter,
		display:  cfg.Display,
		sync:     cfg.Sync,
		local:    cfg.Local,
		timing:   timing,
		restore:  cfg.Restore,
		now:      cfg.Now,
		onClose:  cfg.OnClose,
		queue:    make(chan func(), 64),
		done:     make(chan struct{}),
		state:    fsm.StateIdle,
		settings: settings,
	}
	if c.display == nil {
		c.display = noopDisplay{}
	}
	if c.sync == nil {
		c.sync = store.NewMemory()
	}
	if c.local == nil {
		c.local = store.NewMemory()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Run loads persisted state and processes commands, recognizer events and
// timers until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errors.New("session controller already running")
	}
	defer close(c.done)

	c.runCtx = ctx
	c.initialize()

	var events <-chan recognizer.Event
	if c.rec != nil {
		events = c.rec.Events()
	}

	for {
		select {
		case <-ctx.Done():
			if c.rec != nil {
				_ = c.rec.Stop()
			}
			return nil
		case task := <-c.queue:
			task()
		case ev := <-events:
			c.onEvent(ev)
		}
	}
}

// Done is closed after Run returns.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

func (c *Controller) initialize() {
	c.loadSettings()
	if c.restore {
		ctx, cancel := context.WithTimeout(c.runCtx, storeTimeout)
		text, err := store.GetString(ctx, c.local, store.KeyTranscript)
		cancel()
		if err != nil {
			c.logWarn("restore transcript failed", "error", err.Error())
		} else if text != "" {
			c.transcript = text
		}
	}

	c.setControls(Controls{StartEnabled: c.rec != nil})
	c.display.ShowSettings(c.settings)
	c.renderTranscript()
	if c.rec == nil {
		c.showError(MsgUnsupported)
		return
	}
	c.setStatus(Status{Text: MsgReady, Kind: StatusReady})
}

// call runs fn on the loop goroutine and waits for it to finish.
func (c *Controller) call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		fn()
	}

	select {
	case c.queue <- task:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrNotRunning
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrNotRunning
		}
	}
}

// post enqueues fn from a timer or helper goroutine.
func (c *Controller) post(fn func()) {
	select {
	case c.queue <- fn:
	case <-c.done:
	}
}

// after posts fn once d elapses. Timers are never cancelled; callbacks
// re-check state when they run.
func (c *Controller) after(d time.Duration, fn func()) {
	time.AfterFunc(d, func() { c.post(fn) })
}

func (c *Controller) transition(event fsm.Event) error {
	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

func (c *Controller) setStatus(s Status) {
	c.status = s
	c.display.ShowStatus(s)
}

func (c *Controller) setControls(ctrl Controls) {
	c.controls = ctrl
	c.display.ShowControls(ctrl)
}

func (c *Controller) renderTranscript() {
	c.display.ShowTranscript(View{Transcript: c.transcript, Interim: c.interim})
}

// showError shows msg and reverts to ready after the error delay unless recording.
func (c *Controller) showError(msg string) {
	c.setStatus(Status{Text: msg, Kind: StatusError})
	c.after(c.timing.ErrorStatus, c.revertStatus)
}

func (c *Controller) showSuccess(msg string) {
	c.setStatus(Status{Text: msg, Kind: StatusSuccess})
	c.after(c.timing.SuccessStatus, c.revertStatus)
}

func (c *Controller) revertStatus() {
	if c.state == fsm.StateRecording {
		return
	}
	c.setStatus(Status{Text: MsgReady, Kind: StatusReady})
}

// fail enters the error cooldown and schedules its exit.
func (c *Controller) fail(msg string) {
	if err := c.transition(fsm.EventFail); err != nil {
		c.logWarn("fail transition rejected", "state", string(c.state), "error", err.Error())
	}
	c.showError(msg)
	c.after(c.timing.ErrorStatus, c.endCooldown)
}

func (c *Controller) endCooldown() {
	if c.state != fsm.StateCooldown {
		return
	}
	if err := c.transition(fsm.EventReset); err != nil {
		c.logWarn("cooldown reset rejected", "error", err.Error())
	}
}

func (c *Controller) storeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.runCtx, storeTimeout)
}

func (c *Controller) logWarn(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Warn(msg, args...)
}

func (c *Controller) logInfo(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Info(msg, args...)
}

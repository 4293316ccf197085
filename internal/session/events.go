package session

import (
	"fmt"
	"strings"

	"github.com/rbright/voicepad/internal/fsm"
	"github.com/rbright/voicepad/internal/recognizer"
	"github.com/rbright/voicepad/internal/transcript"
)

func (c *Controller) onEvent(ev recognizer.Event) {
	switch ev := ev.(type) {
	case recognizer.Started:
		c.onStarted()
	case recognizer.Result:
		c.onResult(ev)
	case recognizer.Error:
		c.onError(ev)
	case recognizer.Ended:
		c.onEnded()
	default:
		c.logWarn("unknown recognizer event", "type", fmt.Sprintf("%T", ev))
	}
}

func (c *Controller) onStarted() {
	if err := c.transition(fsm.EventStarted); err != nil {
		c.logWarn("started transition rejected", "error", err.Error())
		return
	}
	c.lastErr = nil
	c.setStatus(Status{Text: MsgRecording, Kind: StatusRecording})
	c.setControls(Controls{StartEnabled: false, StopEnabled: true})
}

func (c *Controller) onResult(ev recognizer.Result) {
	final, interim := ev.Split()
	if strings.TrimSpace(final) != "" {
		c.transcript = transcript.Append(c.transcript, final, c.settings.Punctuation)
		c.persistTranscript()
	}
	c.interim = interim
	c.renderTranscript()
}

func (c *Controller) onError(ev recognizer.Error) {
	msg := ErrorMessage(ev.Code)
	c.lastErr = &RecognitionError{Code: ev.Code, Message: msg}
	c.logWarn("speech recognition error", "code", string(ev.Code), "detail", ev.Detail)

	c.fail(msg)
	c.shouldContinue = false
	if err := c.rec.Stop(); err != nil {
		c.logWarn("recognizer stop failed", "error", err.Error())
	}
}

func (c *Controller) onEnded() {
	cooling := c.state == fsm.StateCooldown
	if err := c.transition(fsm.EventEnded); err != nil {
		c.logWarn("ended transition rejected", "error", err.Error())
	}

	if c.interim != "" {
		c.interim = ""
		c.renderTranscript()
	}
	c.setControls(Controls{StartEnabled: true, StopEnabled: false})
	if !cooling {
		c.setStatus(Status{Text: MsgReady, Kind: StatusReady})
	}

	if c.settings.Continuous && c.shouldContinue {
		c.after(c.timing.Restart, c.autoRestart)
	}
}

// autoRestart is best-effort; a failed restart is logged and abandoned.
func (c *Controller) autoRestart() {
	if !c.shouldContinue {
		return
	}
	ctx := c.runCtx
	go func() {
		if err := c.Start(ctx); err != nil {
			c.logWarn("continuous restart failed", "error", err.Error())
		}
	}()
}

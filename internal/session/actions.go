package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/rbright/voicepad/internal/fsm"
	"github.com/rbright/voicepad/internal/recognizer"
	"github.com/rbright/voicepad/internal/store"
	"github.com/rbright/voicepad/internal/transcript"
)

var (
	errNoClipboard = errors.New("clipboard is not configured")
	errNoExporter  = errors.New("file export is not configured")
)

// Snapshot is a consistent copy of controller state.
type Snapshot struct {
	State      fsm.State
	Settings   Settings
	Transcript string
	Interim    string
	Status     Status
	Controls   Controls
	Available  bool
	LastError  error
}

// Snapshot returns the current state.
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := c.call(ctx, func() {
		snap = Snapshot{
			State:      c.state,
			Settings:   c.settings,
			Transcript: c.transcript,
			Interim:    c.interim,
			Status:     c.status,
			Controls:   c.controls,
			Available:  c.rec != nil,
			LastError:  c.lastErr,
		}
	})
	return snap, err
}

// Start checks the microphone and asks the recognizer to begin. Recording
// begins when the recognizer reports Started.
func (c *Controller) Start(ctx context.Context) error {
	if c.rec == nil {
		return ErrCapabilityUnavailable
	}

	var recording bool
	if err := c.call(ctx, func() { recording = c.state == fsm.StateRecording }); err != nil {
		return err
	}
	if recording {
		return ErrAlreadyRecording
	}

	var micErr error
	if c.mic != nil {
		micErr = c.mic.CheckMicrophone(ctx)
	}

	var result error
	if err := c.call(ctx, func() { result = c.beginRecognition(micErr) }); err != nil {
		return err
	}
	return result
}

func (c *Controller) beginRecognition(micErr error) error {
	if micErr != nil {
		c.fail(MsgMicrophoneFailed)
		return fmt.Errorf("%w: %v", ErrPermissionDenied, micErr)
	}
	if c.state == fsm.StateRecording {
		return ErrAlreadyRecording
	}

	c.shouldContinue = c.settings.Continuous
	err := c.rec.Start(c.runCtx, recognizer.Options{
		Language:       c.settings.Language,
		Continuous:     c.settings.Continuous,
		InterimResults: true,
	})
	switch {
	case errors.Is(err, recognizer.ErrAlreadyStarted):
		return ErrAlreadyRecording
	case err != nil:
		c.shouldContinue = false
		c.fail(MsgMicrophoneFailed)
		return fmt.Errorf("start recognizer: %w", err)
	}
	c.logInfo("recognition requested", "language", c.settings.Language, "continuous", c.settings.Continuous)
	return nil
}

// Stop ends recording and suppresses continuous restart. It is a no-op
// unless recording.
func (c *Controller) Stop(ctx context.Context) error {
	_, err := c.stop(ctx)
	return err
}

func (c *Controller) stop(ctx context.Context) (bool, error) {
	var stopped bool
	err := c.call(ctx, func() {
		if c.state != fsm.StateRecording {
			return
		}
		c.shouldContinue = false
		if err := c.rec.Stop(); err != nil {
			c.logWarn("recognizer stop failed", "error", err.Error())
		}
		stopped = true
	})
	return stopped, err
}

// Clear empties the transcript and persists the empty value.
func (c *Controller) Clear(ctx context.Context) error {
	return c.call(ctx, func() {
		c.transcript = ""
		c.interim = ""
		c.persistTranscript()
		c.renderTranscript()
	})
}

// Copy places the transcript on the clipboard.
func (c *Controller) Copy(ctx context.Context) error {
	text, err := c.contentFor(ctx, MsgNoTextToCopy)
	if err != nil {
		return err
	}

	copyErr := errNoClipboard
	if c.clip != nil {
		copyErr = c.clip.Copy(ctx, text)
	}

	if err := c.call(ctx, func() {
		if copyErr != nil {
			c.logWarn("copy failed", "error", copyErr.Error())
			c.showError(MsgCopyFailed)
			return
		}
		c.showSuccess(MsgCopied)
	}); err != nil {
		return err
	}
	if copyErr != nil {
		return fmt.Errorf("%s: %w", MsgCopyFailed, copyErr)
	}
	return nil
}

// SaveToFile exports the transcript under a timestamped name.
func (c *Controller) SaveToFile(ctx context.Context) (string, error) {
	text, err := c.contentFor(ctx, MsgNoTextToSave)
	if err != nil {
		return "", err
	}

	name := transcript.ExportFilename(c.now())
	path, saveErr := "", errNoExporter
	if c.exp != nil {
		path, saveErr = c.exp.Export(ctx, name, text)
	}

	if err := c.call(ctx, func() {
		if saveErr != nil {
			c.logWarn("save failed", "error", saveErr.Error())
			c.showError(MsgSaveFailed)
			return
		}
		c.logInfo("transcript saved", "path", path)
		c.showSuccess(MsgSaved)
	}); err != nil {
		return "", err
	}
	if saveErr != nil {
		return "", fmt.Errorf("%s: %w", MsgSaveFailed, saveErr)
	}
	return path, nil
}

// contentFor returns the transcript or shows msg and fails when it is empty.
func (c *Controller) contentFor(ctx context.Context, msg string) (string, error) {
	var text string
	if err := c.call(ctx, func() {
		text = c.transcript
		if text == "" {
			c.showError(msg)
		}
	}); err != nil {
		return "", err
	}
	if text == "" {
		return "", &NoContentError{Message: msg}
	}
	return text, nil
}

// SetLanguage changes the recognition locale used by the next stream.
func (c *Controller) SetLanguage(ctx context.Context, language string) error {
	_, err := c.UpdateSetting(ctx, "language", language)
	return err
}

// SetContinuous toggles automatic restart after each end of speech.
func (c *Controller) SetContinuous(ctx context.Context, on bool) error {
	_, err := c.UpdateSetting(ctx, "continuous", fmt.Sprintf("%t", on))
	return err
}

// SetPunctuation toggles auto-punctuation of finalized segments.
func (c *Controller) SetPunctuation(ctx context.Context, on bool) error {
	_, err := c.UpdateSetting(ctx, "punctuation", fmt.Sprintf("%t", on))
	return err
}

// UpdateSetting applies one key=value change and persists all settings.
func (c *Controller) UpdateSetting(ctx context.Context, key string, value string) (Settings, error) {
	var (
		updated Settings
		result  error
	)
	err := c.call(ctx, func() {
		next, err := applySetting(c.settings, key, value)
		if err != nil {
			result = err
			return
		}
		c.settings = next
		updated = next
		c.persistSettings()
		c.display.ShowSettings(c.settings)
	})
	if err != nil {
		return Settings{}, err
	}
	return updated, result
}

// ReloadSettings re-reads persisted settings, e.g. after another process wrote them.
func (c *Controller) ReloadSettings(ctx context.Context) error {
	return c.call(ctx, func() {
		c.loadSettings()
		c.display.ShowSettings(c.settings)
	})
}

func (c *Controller) loadSettings() {
	ctx, cancel := c.storeContext()
	defer cancel()

	rec, err := c.sync.Get(ctx, store.KeySettings)
	if err != nil {
		c.logWarn("load settings failed", "error", err.Error())
		return
	}
	merged, err := mergeSettings(c.settings, rec[store.KeySettings])
	if err != nil {
		c.logWarn("load settings failed", "error", err.Error())
		return
	}
	c.settings = merged
}

func (c *Controller) persistSettings() {
	rec, err := store.Values(map[string]any{store.KeySettings: c.settings})
	if err == nil {
		ctx, cancel := c.storeContext()
		err = c.sync.Set(ctx, rec)
		cancel()
	}
	if err != nil {
		c.logWarn("persist settings failed", "error", err.Error())
	}
}

func (c *Controller) persistTranscript() {
	rec, err := store.Values(map[string]any{
		store.KeyTranscript: c.transcript,
		store.KeyUpdated:    c.now().UnixMilli(),
	})
	if err == nil {
		ctx, cancel := c.storeContext()
		err = c.local.Set(ctx, rec)
		cancel()
	}
	if err != nil {
		c.logWarn("persist transcript failed", "error", err.Error())
	}
}

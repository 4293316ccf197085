package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/rbright/voicepad/internal/audio"
	"github.com/rbright/voicepad/internal/cli"
	"github.com/rbright/voicepad/internal/config"
	"github.com/rbright/voicepad/internal/deepgram"
	"github.com/rbright/voicepad/internal/display"
	"github.com/rbright/voicepad/internal/feedback"
	"github.com/rbright/voicepad/internal/ipc"
	"github.com/rbright/voicepad/internal/output"
	"github.com/rbright/voicepad/internal/popup"
	"github.com/rbright/voicepad/internal/recognizer"
	"github.com/rbright/voicepad/internal/session"
	"github.com/rbright/voicepad/internal/store"
)

const popupShutdownWait = 3 * time.Second

// commandOwner opens the popup and holds the session until it is closed.
func (r Runner) commandOwner(ctx context.Context, parsed cli.Parsed, cfg config.Config, logger *slog.Logger, web bool) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	logger = logger.With("session_id", uuid.NewString())

	syncStore, localStore, err := store.Open()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	ownerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sessionCfg := r.sessionConfig(cfg, logger)
	source := audio.NewSource(cfg.Audio.Input, cfg.Audio.Fallback, logger)
	if sessionCfg.Microphone == nil {
		sessionCfg.Microphone = source
	}
	rec, warning := r.newRecognizer(cfg, source, logger)
	if warning != "" {
		fmt.Fprintf(r.Stderr, "warning: %s\n", warning)
		logger.Warn(warning)
	}
	sessionCfg.Recognizer = rec
	sessionCfg.Sync = syncStore
	sessionCfg.Local = localStore
	sessionCfg.OnClose = cancel

	var displays display.Multi
	var hub *popup.Hub
	if web {
		hub = popup.NewHub(logger)
		displays = append(displays, hub)
	} else {
		displays = append(displays, display.NewTerminal(r.Stdout))
	}
	var notifier *display.DesktopNotifier
	if cfg.Notify.Enable {
		notifier = display.NewDesktopNotifier(cfg.Notify.AppName, cfg.Notify.TimeoutMS, logger)
		displays = append(displays, notifier)
	}
	var cues *display.Cues
	if cfg.Cues.Enable {
		cues = display.NewCues(display.CueFiles{
			Start: cfg.Cues.StartFile,
			Stop:  cfg.Cues.StopFile,
			Error: cfg.Cues.ErrorFile,
		}, logger)
		displays = append(displays, cues)
	}
	sessionCfg.Display = displays

	controller := session.NewController(sessionCfg)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(ownerCtx, listener, controller)
	}()

	go func() {
		err := syncStore.Watch(ownerCtx, func() {
			if err := controller.ReloadSettings(ownerCtx); err != nil && ownerCtx.Err() == nil {
				logger.Warn("reload settings failed", "error", err.Error())
			}
		})
		if err != nil && ownerCtx.Err() == nil {
			logger.Warn("settings watch stopped", "error", err.Error())
		}
	}()

	var popupDone <-chan error
	if web {
		addr := parsed.Addr
		if addr == "" {
			addr = cfg.Popup.Addr
		}
		server := popup.New(popup.Config{
			Hub:        hub,
			Controller: controller,
			Feedback:   r.popupFeedback(cfg, localStore, logger),
			Logger:     logger,
		})
		bound, done, err := server.Listen(ownerCtx, addr)
		if err != nil {
			cancel()
			<-serverErrCh
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		popupDone = done
		fmt.Fprintf(r.Stdout, "popup: http://%s/\n", bound.String())
		logger.Info("popup listening", "addr", bound.String())
	}

	if parsed.Start {
		go func() {
			if err := controller.Start(ownerCtx); err != nil && ownerCtx.Err() == nil {
				logger.Warn("start on open failed", "error", err.Error())
			}
		}()
	}

	runErr := controller.Run(ownerCtx)
	cancel()
	if notifier != nil {
		notifier.Close()
	}
	if cues != nil {
		cues.Close()
	}

	exitCode := 0
	if runErr != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", runErr)
		exitCode = 1
	}
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		exitCode = 1
	}
	if popupDone != nil {
		select {
		case err := <-popupDone:
			if err != nil {
				logger.Warn("popup server stopped", "error", err.Error())
			}
		case <-time.After(popupShutdownWait):
			logger.Warn("popup server shutdown timed out")
		}
	}

	logger.Info("popup closed")
	return exitCode
}

// sessionConfig wires the collaborators shared by the owner and headless paths.
func (r Runner) sessionConfig(cfg config.Config, logger *slog.Logger) session.Config {
	errorStatus, successStatus, restart := cfg.Status.Durations()
	defaults := session.Settings{
		Language:    cfg.Defaults.Language,
		Continuous:  cfg.Defaults.Continuous,
		Punctuation: cfg.Defaults.Punctuation,
	}

	clip := r.Clipboard
	if clip == nil {
		clip = output.NewClipboard(cfg.Clipboard.Argv, logger)
	}

	return session.Config{
		Logger:     logger,
		Microphone: r.Microphone,
		Clipboard:  clip,
		Exporter:   output.FileExporter{Dir: cfg.Export.Dir},
		Defaults:   &defaults,
		Timing: session.Timing{
			ErrorStatus:   errorStatus,
			SuccessStatus: successStatus,
			Restart:       restart,
		},
		Restore: cfg.Transcript.Restore,
	}
}

// newRecognizer returns nil with a warning when no API key is configured.
func (r Runner) newRecognizer(cfg config.Config, source *audio.Source, logger *slog.Logger) (recognizer.Recognizer, string) {
	if r.Recognizer != nil {
		return r.Recognizer, ""
	}

	key := cfg.Recognizer.APIKey()
	if key == "" {
		return nil, fmt.Sprintf("%s is not set; speech recognition is unavailable", cfg.Recognizer.APIKeyEnv)
	}

	open := deepgram.SourceFunc(func(ctx context.Context) (deepgram.AudioStream, error) {
		capture, err := source.Open(ctx)
		if err != nil {
			return nil, err
		}
		return capture, nil
	})
	return deepgram.New(deepgram.Config{
		Endpoint:        cfg.Recognizer.Endpoint,
		Model:           cfg.Recognizer.Model,
		APIKey:          key,
		NoSpeechTimeout: time.Duration(cfg.Recognizer.NoSpeechTimeoutMS) * time.Millisecond,
		FinalizeTimeout: time.Duration(cfg.Recognizer.FinalizeTimeoutMS) * time.Millisecond,
	}, open, logger), ""
}

// popupFeedback serves the popup's feedback button from the persisted transcript.
func (r Runner) popupFeedback(cfg config.Config, local store.Store, logger *slog.Logger) popup.FeedbackFunc {
	svc := r.feedbackClient(cfg.Feedback)
	return func(ctx context.Context, note string) (feedback.Result, error) {
		result, err := feedback.Fetch(ctx, local, svc, note)
		if err != nil && !errors.Is(err, feedback.ErrNoTranscript) {
			logger.Warn("feedback request failed", "error", err.Error())
		}
		return result, err
	}
}

// Package app dispatches parsed voicepad commands to the popup owner, the
// headless session, or the standalone tools.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/rbright/voicepad/internal/cli"
	"github.com/rbright/voicepad/internal/config"
	"github.com/rbright/voicepad/internal/doctor"
	"github.com/rbright/voicepad/internal/feedback"
	"github.com/rbright/voicepad/internal/logging"
	"github.com/rbright/voicepad/internal/recognizer"
	"github.com/rbright/voicepad/internal/session"
	"github.com/rbright/voicepad/internal/version"
)

// Runner executes one command line. The optional collaborators replace the
// live recognizer, microphone check, clipboard and feedback service.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	Recognizer recognizer.Recognizer
	Microphone session.Microphone
	Clipboard  session.Clipboard
	Feedback   feedback.Service
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("voicepad"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("voicepad"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}
	if cfgLoaded.EnvFile != "" {
		logger.Debug("env file loaded", "path", cfgLoaded.EnvFile)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	cfg := cfgLoaded.Config
	switch parsed.Command {
	case cli.CommandOpen:
		return r.commandOwner(ctx, parsed, cfg, logger, false)
	case cli.CommandPopup:
		return r.commandOwner(ctx, parsed, cfg, logger, true)
	case cli.CommandStart:
		return r.forwardOrFail(ctx, "start")
	case cli.CommandStop:
		return r.forwardOrFail(ctx, "stop")
	case cli.CommandClose:
		return r.forwardOrFail(ctx, "close")
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandClear:
		return r.commandButton(ctx, cfg, logger, "clear")
	case cli.CommandCopy:
		return r.commandButton(ctx, cfg, logger, "copy")
	case cli.CommandSave:
		return r.commandButton(ctx, cfg, logger, "save")
	case cli.CommandTranscript:
		return r.commandButton(ctx, cfg, logger, "transcript")
	case cli.CommandSettings:
		if len(parsed.Args) == 2 {
			return r.commandButton(ctx, cfg, logger, "set", parsed.Args...)
		}
		return r.commandButton(ctx, cfg, logger, "settings")
	case cli.CommandFeedback:
		return r.commandFeedback(ctx, parsed, cfg, logger)
	case cli.CommandServeFeedback:
		return r.commandServeFeedback(ctx, parsed, cfg, logger)
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx, cfg.Audio)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

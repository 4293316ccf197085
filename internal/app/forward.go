package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rbright/voicepad/internal/config"
	"github.com/rbright/voicepad/internal/ipc"
	"github.com/rbright/voicepad/internal/session"
	"github.com/rbright/voicepad/internal/store"
)

const (
	// statusTimeout keeps status snappy when a dead owner leaves the socket behind.
	statusTimeout = 220 * time.Millisecond
	// actionTimeout covers clipboard and export work done by the owner.
	actionTimeout = 5 * time.Second
)

func forwardTimeout(command string) time.Duration {
	if command == "status" {
		return statusTimeout
	}
	return actionTimeout
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, "status")
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if resp.State == "" {
			resp.State = "idle"
		}
		fmt.Fprintln(r.Stdout, resp.State)
		if resp.Message != "" {
			fmt.Fprintln(r.Stdout, resp.Message)
		}
		return 0
	}

	fmt.Fprintln(r.Stdout, "idle")
	return 0
}

// forwardOrFail sends commands that only make sense while a popup is open.
func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no active voicepad session\n")
		return 1
	}
	return r.printResponse(resp, err)
}

// commandButton forwards to the open popup, or applies the command to the
// persisted transcript and settings when no popup is open.
func (r Runner) commandButton(ctx context.Context, cfg config.Config, logger *slog.Logger, command string, args ...string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err == nil {
		resp, handled, forwardErr := tryForward(ctx, socketPath, command, args...)
		if handled {
			return r.printResponse(resp, forwardErr)
		}
	}

	logger.Debug("no popup open; running headless", "command", command)
	resp, err := r.runHeadless(ctx, cfg, logger, ipc.Request{Command: command, Args: args})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return r.printResponse(resp, nil)
}

// runHeadless serves one request from a controller that never records.
func (r Runner) runHeadless(ctx context.Context, cfg config.Config, logger *slog.Logger, req ipc.Request) (ipc.Response, error) {
	syncStore, localStore, err := store.Open()
	if err != nil {
		return ipc.Response{}, err
	}

	sessionCfg := r.sessionConfig(cfg, logger)
	sessionCfg.Sync = syncStore
	sessionCfg.Local = localStore
	sessionCfg.Restore = true
	controller := session.NewController(sessionCfg)

	runCtx, cancel := context.WithCancel(ctx)
	go func() { _ = controller.Run(runCtx) }()
	defer func() {
		cancel()
		<-controller.Done()
	}()

	return controller.Handle(runCtx, req), nil
}

func (r Runner) printResponse(resp ipc.Response, err error) int {
	if err == nil && !resp.OK && resp.Error != "" {
		err = errors.New(resp.Error)
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// tryForward reports handled=false only when no owner is listening.
func tryForward(ctx context.Context, socketPath string, command string, args ...string) (ipc.Response, bool, error) {
	resp, err := ipc.Call(ctx, socketPath, forwardTimeout(command), command, args...)
	if err == nil {
		return resp, true, nil
	}

	var remote *ipc.RemoteError
	if errors.As(err, &remote) {
		return resp, true, err
	}
	if ipc.IsNoOwner(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}

package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/rbright/voicepad/internal/ipc"
)

// Handle serves popup button commands forwarded over IPC.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case "status":
		snap, err := c.Snapshot(ctx)
		if err != nil {
			return failure("", err)
		}
		return ipc.Response{OK: true, State: string(snap.State), Message: snap.Status.Text}
	case "start":
		return c.respond(ctx, c.Start(ctx), "start requested")
	case "stop":
		stopped, err := c.stop(ctx)
		msg := "not recording"
		if stopped {
			msg = "stop requested"
		}
		return c.respond(ctx, err, msg)
	case "clear":
		return c.respond(ctx, c.Clear(ctx), "transcript cleared")
	case "copy":
		return c.respond(ctx, c.Copy(ctx), MsgCopied)
	case "save":
		path, err := c.SaveToFile(ctx)
		return c.respond(ctx, err, path)
	case "transcript":
		snap, err := c.Snapshot(ctx)
		if err != nil {
			return failure("", err)
		}
		return ipc.Response{OK: true, State: string(snap.State), Message: snap.Transcript}
	case "settings":
		snap, err := c.Snapshot(ctx)
		if err != nil {
			return failure("", err)
		}
		return ipc.Response{OK: true, State: string(snap.State), Message: snap.Settings.String()}
	case "set":
		if len(req.Args) != 2 {
			return c.respond(ctx, fmt.Errorf("%w: usage: set <key> <value>", ErrInvalidSetting), "")
		}
		updated, err := c.UpdateSetting(ctx, req.Args[0], req.Args[1])
		return c.respond(ctx, err, updated.String())
	case "close":
		if c.onClose == nil {
			return c.respond(ctx, fmt.Errorf("close is not supported without an open popup"), "")
		}
		c.onClose()
		return c.respond(ctx, nil, "closing")
	default:
		return c.respond(ctx, fmt.Errorf("unknown command: %s", strings.TrimSpace(req.Command)), "")
	}
}

func (c *Controller) respond(ctx context.Context, err error, msg string) ipc.Response {
	state := ""
	if snap, snapErr := c.Snapshot(ctx); snapErr == nil {
		state = string(snap.State)
	}
	if err != nil {
		return failure(state, err)
	}
	return ipc.Response{OK: true, State: state, Message: msg}
}

func failure(state string, err error) ipc.Response {
	return ipc.Response{OK: false, State: state, Error: err.Error()}
}

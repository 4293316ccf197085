package display

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rbright/voicepad/internal/session"
)

const (
	defaultNotifyAppName = "voicepad"
	notifyTimeout        = 400 * time.Millisecond
)

type notifyFunc func(ctx context.Context, appName string, replaceID uint32, summary string, timeoutMS int) (uint32, error)
type dismissFunc func(ctx context.Context, id uint32) error

// DesktopNotifier mirrors status changes as replaceable freedesktop
// notifications. Dispatch happens on a worker goroutine in arrival order.
type DesktopNotifier struct {
	appName   string
	timeoutMS int
	logger    *slog.Logger

	notify  notifyFunc
	dismiss dismissFunc

	start   sync.Once
	stop    sync.Once
	pending chan session.Status
	done    chan struct{}
	id      uint32
}

// NewDesktopNotifier sends notifications as appName that expire after timeoutMS.
func NewDesktopNotifier(appName string, timeoutMS int, logger *slog.Logger) *DesktopNotifier {
	appName = strings.TrimSpace(appName)
	if appName == "" {
		appName = defaultNotifyAppName
	}
	if timeoutMS <= 0 {
		timeoutMS = 3000
	}
	return &DesktopNotifier{
		appName:   appName,
		timeoutMS: timeoutMS,
		logger:    logger,
		notify:    desktopNotify,
		dismiss:   desktopDismiss,
		pending:   make(chan session.Status, 16),
		done:      make(chan struct{}),
	}
}

func (d *DesktopNotifier) ShowTranscript(session.View)   {}
func (d *DesktopNotifier) ShowControls(session.Controls) {}
func (d *DesktopNotifier) ShowSettings(session.Settings) {}

// ShowStatus queues a notification for recording, error and success messages
// and a dismissal when the status returns to ready. Statuses arriving while
// the queue is full are dropped.
func (d *DesktopNotifier) ShowStatus(s session.Status) {
	d.start.Do(func() { go d.run() })
	select {
	case d.pending <- s:
	default:
		if d.logger != nil {
			d.logger.Debug("desktop notification dropped", "status", s.Text)
		}
	}
}

// Close flushes queued notifications and stops the worker.
func (d *DesktopNotifier) Close() {
	d.start.Do(func() { go d.run() })
	d.stop.Do(func() { close(d.pending) })
	<-d.done
}

func (d *DesktopNotifier) run() {
	defer close(d.done)
	for s := range d.pending {
		d.dispatch(s)
	}
}

func (d *DesktopNotifier) dispatch(s session.Status) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if s.Kind == session.StatusReady {
		if d.id == 0 {
			return
		}
		id := d.id
		d.id = 0
		d.log("desktop dismiss failed", d.dismiss(ctx, id))
		return
	}
	id, err := d.notify(ctx, d.appName, d.id, s.Text, d.timeoutMS)
	if err != nil {
		d.log("desktop notify failed", err)
		return
	}
	d.id = id
}

func (d *DesktopNotifier) log(msg string, err error) {
	if d.logger == nil || err == nil {
		return
	}
	d.logger.Debug(msg, "error", err.Error())
}

// desktopNotify sends a freedesktop notification over DBus via busctl.
// It returns the notification ID assigned by the server.
func desktopNotify(ctx context.Context, appName string, replaceID uint32, summary string, timeoutMS int) (uint32, error) {
	args := []string{
		"--user",
		"call",
		"org.freedesktop.Notifications",
		"/org/freedesktop/Notifications",
		"org.freedesktop.Notifications",
		"Notify",
		"susssasa{sv}i",
		appName,
		fmt.Sprintf("%d", replaceID),
		"",
		summary,
		"",
		"0", // actions array length
		"0", // hints map length
		fmt.Sprintf("%d", timeoutMS),
	}

	out, err := exec.CommandContext(ctx, "busctl", args...).CombinedOutput()
	if err != nil {
		return 0, commandError("desktop notify", err, out)
	}

	fields := strings.Fields(strings.TrimSpace(string(out)))
	if len(fields) < 2 || fields[0] != "u" {
		return 0, fmt.Errorf("desktop notify invalid response: %q", strings.TrimSpace(string(out)))
	}

	value, parseErr := strconv.ParseUint(fields[1], 10, 32)
	if parseErr != nil {
		return 0, fmt.Errorf("desktop notify parse id %q: %w", fields[1], parseErr)
	}
	return uint32(value), nil
}

// desktopDismiss requests explicit close by notification ID.
func desktopDismiss(ctx context.Context, id uint32) error {
	args := []string{
		"--user",
		"call",
		"org.freedesktop.Notifications",
		"/org/freedesktop/Notifications",
		"org.freedesktop.Notifications",
		"CloseNotification",
		"u",
		fmt.Sprintf("%d", id),
	}

	out, err := exec.CommandContext(ctx, "busctl", args...).CombinedOutput()
	if err != nil {
		return commandError("desktop dismiss", err, out)
	}
	return nil
}

func commandError(op string, err error, out []byte) error {
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return fmt.Errorf("%s failed: %w", op, err)
	}
	return fmt.Errorf("%s failed: %w (%s)", op, err, trimmed)
}

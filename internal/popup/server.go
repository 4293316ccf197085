// Package popup serves the dictation popup as a local web page with a live
// websocket channel to the session controller.
package popup

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/rbright/voicepad/internal/feedback"
	"github.com/rbright/voicepad/internal/session"
	"github.com/rbright/voicepad/internal/transcript"
)

//go:embed static/index.html
var static embed.FS

const (
	// DefaultAddr binds the popup to loopback only.
	DefaultAddr = "127.0.0.1:7373"

	actionTimeout   = 30 * time.Second
	shutdownTimeout = 2 * time.Second
)

// MsgFeedbackFailed is shown when the feedback request fails.
const MsgFeedbackFailed = "Failed to get feedback. Please try again."

// Controller is the session surface the popup drives.
type Controller interface {
	Start(context.Context) error
	Stop(context.Context) error
	Clear(context.Context) error
	Copy(context.Context) error
	SaveToFile(context.Context) (string, error)
	UpdateSetting(ctx context.Context, key string, value string) (session.Settings, error)
	Snapshot(context.Context) (session.Snapshot, error)
}

// FeedbackFunc requests feedback on the persisted transcript.
type FeedbackFunc func(ctx context.Context, note string) (feedback.Result, error)

// Action is one button press or settings change sent by the page.
type Action struct {
	Action  string `json:"action"`
	Context string `json:"context,omitempty"`
	Key     string `json:"key,omitempty"`
	Value   string `json:"value,omitempty"`
}

// Config wires a popup server.
type Config struct {
	Hub        *Hub
	Controller Controller
	Feedback   FeedbackFunc
	Logger     *slog.Logger
	Now        func() time.Time
}

// Server is the fiber application behind the popup.
type Server struct {
	app      *fiber.App
	hub      *Hub
	ctrl     Controller
	feedback FeedbackFunc
	logger   *slog.Logger
	now      func() time.Time
}

// New builds the routes.
func New(cfg Config) *Server {
	s := &Server{
		hub:      cfg.Hub,
		ctrl:     cfg.Controller,
		feedback: cfg.Feedback,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
	if s.hub == nil {
		s.hub = NewHub(cfg.Logger)
	}
	if s.now == nil {
		s.now = time.Now
	}

	app := fiber.New(fiber.Config{
		AppName:               "voicepad",
		DisableStartupMessage: true,
	})
	app.Get("/", s.index)
	app.Get("/download", s.download)
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(s.serveWS))
	s.app = app
	return s
}

// App exposes the fiber app for in-process tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Hub returns the display hub the server pushes through.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Listen binds addr and returns the bound address. Serving stops when ctx is
// cancelled; the returned channel yields the serve result.
func (s *Server) Listen(ctx context.Context, addr string) (net.Addr, <-chan error, error) {
	if strings.TrimSpace(addr) == "" {
		addr = DefaultAddr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen popup %s: %w", addr, err)
	}

	done := make(chan error, 1)
	go func() { done <- s.app.Listener(ln) }()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
			s.logWarn("popup shutdown failed", "error", err.Error())
		}
	}()
	return ln.Addr(), done, nil
}

func (s *Server) index(c *fiber.Ctx) error {
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		return err
	}
	c.Type("html", "utf-8")
	return c.Send(page)
}

func (s *Server) download(c *fiber.Ctx) error {
	snap, err := s.ctrl.Snapshot(c.UserContext())
	if err != nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
	if strings.TrimSpace(snap.Transcript) == "" {
		return fiber.NewError(fiber.StatusNotFound, session.MsgNoTextToSave)
	}
	c.Attachment(transcript.ExportFilename(s.now()))
	c.Type("txt", "utf-8")
	return c.SendString(snap.Transcript)
}

func (s *Server) serveWS(conn *websocket.Conn) {
	cl := s.hub.attach()
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for m := range cl.send {
			if err := conn.WriteJSON(m); err != nil {
				return
			}
		}
	}()

	for {
		var action Action
		if err := conn.ReadJSON(&action); err != nil {
			break
		}
		s.dispatch(action)
	}

	s.hub.detach(cl)
	<-writerDone
}

func (s *Server) dispatch(a Action) {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	var err error
	switch strings.ToLower(strings.TrimSpace(a.Action)) {
	case "start":
		err = s.ctrl.Start(ctx)
	case "stop":
		err = s.ctrl.Stop(ctx)
	case "clear":
		err = s.ctrl.Clear(ctx)
	case "copy":
		err = s.ctrl.Copy(ctx)
	case "save":
		_, err = s.ctrl.SaveToFile(ctx)
	case "settings":
		_, err = s.ctrl.UpdateSetting(ctx, a.Key, a.Value)
	case "feedback":
		s.requestFeedback(ctx, a.Context)
	default:
		err = fmt.Errorf("unknown action %q", a.Action)
	}
	if err != nil {
		s.logWarn("popup action failed", "action", a.Action, "error", err.Error())
	}
}

func (s *Server) requestFeedback(ctx context.Context, note string) {
	if s.feedback == nil {
		s.hub.ShowFeedbackMessage(MsgFeedbackFailed)
		return
	}
	result, err := s.feedback(ctx, note)
	switch {
	case errors.Is(err, feedback.ErrNoTranscript):
		s.hub.ShowFeedbackMessage(feedback.MsgNoTranscript)
	case err != nil:
		s.logWarn("feedback request failed", "error", err.Error())
		s.hub.ShowFeedbackMessage(MsgFeedbackFailed)
	default:
		s.hub.ShowFeedback(result.Sections)
	}
}

func (s *Server) logWarn(msg string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Warn(msg, args...)
}

package popup

import (
	"log/slog"
	"sync"

	"github.com/rbright/voicepad/internal/feedback"
	"github.com/rbright/voicepad/internal/render"
	"github.com/rbright/voicepad/internal/session"
)

// Message types pushed to the page.
const (
	TypeTranscript = "transcript"
	TypeStatus     = "status"
	TypeControls   = "controls"
	TypeSettings   = "settings"
	TypeFeedback   = "feedback"
)

// replayOrder is the order a newly connected page receives the last state.
var replayOrder = []string{TypeSettings, TypeControls, TypeStatus, TypeTranscript, TypeFeedback}

const clientBuffer = 64

// Message is one display update. HTML fields are already escaped.
type Message struct {
	Type     string            `json:"type"`
	HTML     string            `json:"html,omitempty"`
	Text     string            `json:"text,omitempty"`
	Status   *session.Status   `json:"status,omitempty"`
	Controls *session.Controls `json:"controls,omitempty"`
	Settings *session.Settings `json:"settings,omitempty"`
}

type client struct {
	send chan Message
}

// Hub fans display updates out to connected pages and remembers the latest
// message of each type for late joiners. It never blocks the caller; a page
// that falls behind misses updates.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	last    map[string]Message
}

// NewHub constructs an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
		last:    make(map[string]Message),
	}
}

func (h *Hub) ShowTranscript(v session.View) {
	h.broadcast(Message{Type: TypeTranscript, HTML: render.TranscriptHTML(v)})
}

func (h *Hub) ShowStatus(s session.Status) {
	h.broadcast(Message{Type: TypeStatus, Status: &s})
}

func (h *Hub) ShowControls(c session.Controls) {
	h.broadcast(Message{Type: TypeControls, Controls: &c})
}

func (h *Hub) ShowSettings(s session.Settings) {
	h.broadcast(Message{Type: TypeSettings, Settings: &s})
}

// ShowFeedback renders parsed feedback as a card.
func (h *Hub) ShowFeedback(s feedback.Sections) {
	h.broadcast(Message{Type: TypeFeedback, HTML: render.FeedbackCardHTML(s)})
}

// ShowFeedbackMessage replaces the feedback area with a plain message.
func (h *Hub) ShowFeedbackMessage(text string) {
	h.broadcast(Message{Type: TypeFeedback, Text: text})
}

// Clients reports how many pages are attached.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcast(m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last[m.Type] = m
	for c := range h.clients {
		select {
		case c.send <- m:
		default:
			if h.logger != nil {
				h.logger.Debug("popup client lagging; update dropped", "type", m.Type)
			}
		}
	}
}

// attach registers a client and queues the replay of the latest state.
func (h *Hub) attach() *client {
	c := &client{send: make(chan Message, clientBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, kind := range replayOrder {
		if m, ok := h.last[kind]; ok {
			c.send <- m
		}
	}
	h.clients[c] = struct{}{}
	return c
}

func (h *Hub) detach(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

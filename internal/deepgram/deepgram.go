package deepgram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rbright/voicepad/internal/recognizer"
	"github.com/rbright/voicepad/internal/version"
)

var (
	// ErrMissingAPIKey indicates the recognizer has no credential to dial with.
	ErrMissingAPIKey = errors.New("deepgram api key is empty")
	// ErrNoAudioSource indicates no capture source was wired.
	ErrNoAudioSource = errors.New("deepgram audio source is not configured")
)

// AudioStream is a running capture. Stop closes Chunks and is idempotent.
type AudioStream interface {
	Chunks() <-chan []byte
	Stop() error
}

// AudioSource opens 16 kHz mono s16le capture streams.
type AudioSource interface {
	Open(ctx context.Context) (AudioStream, error)
}

// SourceFunc adapts a function to AudioSource.
type SourceFunc func(ctx context.Context) (AudioStream, error)

func (f SourceFunc) Open(ctx context.Context) (AudioStream, error) {
	return f(ctx)
}

// Recognizer implements recognizer.Recognizer for one stream at a time.
type Recognizer struct {
	cfg    Config
	source AudioSource
	dialer *websocket.Dialer
	logger *slog.Logger
	events chan recognizer.Event

	mu     sync.Mutex
	active *stream
}

// New constructs a recognizer that captures from source.
func New(cfg Config, source AudioSource, logger *slog.Logger) *Recognizer {
	cfg = cfg.withDefaults()
	return &Recognizer{
		cfg:    cfg,
		source: source,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.DialTimeout,
		},
		logger: logger,
		events: make(chan recognizer.Event, 64),
	}
}

// Events returns the shared event channel for all streams.
func (r *Recognizer) Events() <-chan recognizer.Event {
	return r.events
}

// Start dials a new stream in the background. ctx bounds the whole stream.
func (r *Recognizer) Start(ctx context.Context, opts recognizer.Options) error {
	if r.source == nil {
		return ErrNoAudioSource
	}
	if strings.TrimSpace(r.cfg.APIKey) == "" {
		return ErrMissingAPIKey
	}
	target, err := listenURL(r.cfg, opts)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		return recognizer.ErrAlreadyStarted
	}

	streamCtx, cancel := context.WithCancel(ctx)
	s := &stream{
		r:      r,
		parent: ctx,
		ctx:    streamCtx,
		cancel: cancel,
		opts:   opts,
		target: target,
	}
	r.active = s
	go s.run()
	return nil
}

// Stop asks the active stream to finalize. It returns immediately; Ended
// follows once the server has flushed or the finalize timeout elapses.
func (r *Recognizer) Stop() error {
	r.mu.Lock()
	s := r.active
	r.mu.Unlock()
	if s == nil {
		return nil
	}
	s.requestStop()
	return nil
}

func (r *Recognizer) release(s *stream) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == s {
		r.active = nil
	}
}

func (r *Recognizer) logDebug(msg string, args ...any) {
	if r.logger == nil {
		return
	}
	r.logger.Debug(msg, args...)
}

func (r *Recognizer) logWarn(msg string, args ...any) {
	if r.logger == nil {
		return
	}
	r.logger.Warn(msg, args...)
}

// stream is one dial -> capture -> finalize lifecycle. Only run emits events.
type stream struct {
	r      *Recognizer
	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc
	opts   recognizer.Options
	target string

	mu       sync.Mutex
	stopping bool
	audio    AudioStream

	writeMu sync.Mutex
	conn    *websocket.Conn

	heard    atomic.Bool
	noSpeech atomic.Bool
}

func (s *stream) run() {
	defer s.finish()

	conn, err := s.dial()
	if err != nil {
		if !s.isStopping() {
			s.emit(errorEvent(err))
		}
		return
	}
	defer conn.Close()
	s.conn = conn

	go func() {
		<-s.ctx.Done()
		_ = conn.Close()
	}()

	if s.isStopping() {
		return
	}

	audio, err := s.r.source.Open(s.ctx)
	if err != nil {
		s.emit(recognizer.Error{Code: recognizer.CodeAudioCapture, Detail: err.Error()})
		return
	}
	s.mu.Lock()
	s.audio = audio
	stopping := s.stopping
	s.mu.Unlock()
	if stopping {
		_ = audio.Stop()
	}

	s.r.logDebug("deepgram stream started", "language", s.opts.Language, "continuous", s.opts.Continuous)
	s.emit(recognizer.Started{})

	silence := time.AfterFunc(s.r.cfg.NoSpeechTimeout, func() {
		if s.heard.Load() {
			return
		}
		s.noSpeech.Store(true)
		s.requestStop()
	})
	defer silence.Stop()

	sendErr := make(chan error, 1)
	go s.pump(audio, sendErr)

	readErr := s.readLoop(conn)
	_ = audio.Stop()

	switch {
	case s.noSpeech.Load():
		s.emit(recognizer.Error{Code: recognizer.CodeNoSpeech})
	case readErr != nil && !s.isStopping():
		detail := readErr.Error()
		select {
		case err := <-sendErr:
			if err != nil {
				detail = fmt.Sprintf("send audio: %v", err)
			}
		default:
		}
		s.emit(recognizer.Error{Code: recognizer.CodeNetwork, Detail: detail})
	}
}

func (s *stream) finish() {
	s.cancel()
	s.r.release(s)
	s.r.logDebug("deepgram stream ended")
	s.emit(recognizer.Ended{})
}

func (s *stream) dial() (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Token "+s.r.cfg.APIKey)
	header.Set("User-Agent", version.UserAgent())

	conn, resp, err := s.r.dialer.DialContext(s.ctx, s.target, header)
	if err == nil {
		return conn, nil
	}

	code := recognizer.CodeNetwork
	detail := err.Error()
	if resp != nil {
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			code = recognizer.CodeNotAllowed
		}
		detail = fmt.Sprintf("%v (%s)", err, resp.Status)
	}
	return nil, recognizer.Error{Code: code, Detail: detail}
}

// pump forwards capture chunks and asks the server to finalize when capture ends.
func (s *stream) pump(audio AudioStream, sendErr chan<- error) {
	for chunk := range audio.Chunks() {
		if len(chunk) == 0 {
			continue
		}
		if err := s.write(websocket.BinaryMessage, chunk); err != nil {
			sendErr <- err
			_ = audio.Stop()
			s.cancel()
			return
		}
	}
	if err := s.write(websocket.TextMessage, closeStreamMessage); err != nil {
		sendErr <- err
	}
}

func (s *stream) readLoop(conn *websocket.Conn) error {
	index := 0
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}
		if msgType != websocket.TextMessage {
			continue
		}

		u, ok, err := decodeUpdate(data)
		if err != nil {
			s.r.logWarn("decode deepgram message", "error", err.Error())
			continue
		}
		if !ok {
			continue
		}
		if u.Transcript != "" {
			s.heard.Store(true)
		}

		s.emit(recognizer.Result{
			Index:    index,
			Segments: []recognizer.Segment{{Final: u.IsFinal, Transcript: u.Transcript}},
		})
		if u.IsFinal && u.Transcript != "" {
			index++
		}
		if !s.opts.Continuous && u.SpeechFinal && s.heard.Load() {
			s.requestStop()
		}
	}
}

func (s *stream) write(messageType int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.conn == nil {
		return errors.New("deepgram connection is not open")
	}
	return s.conn.WriteMessage(messageType, data)
}

// requestStop ends capture so pump sends CloseStream, then bounds the wait.
func (s *stream) requestStop() {
	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	audio := s.audio
	s.mu.Unlock()

	if audio != nil {
		_ = audio.Stop()
	}
	time.AfterFunc(s.r.cfg.FinalizeTimeout, s.cancel)
}

func (s *stream) isStopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopping
}

func (s *stream) emit(ev recognizer.Event) {
	select {
	case s.r.events <- ev:
	case <-s.parent.Done():
	}
}

func errorEvent(err error) recognizer.Error {
	var rerr recognizer.Error
	if errors.As(err, &rerr) {
		return rerr
	}
	return recognizer.Error{Code: recognizer.CodeOther, Detail: err.Error()}
}

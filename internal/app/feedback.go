package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"

	"github.com/rbright/voicepad/internal/cli"
	"github.com/rbright/voicepad/internal/config"
	"github.com/rbright/voicepad/internal/feedback"
	"github.com/rbright/voicepad/internal/render"
	"github.com/rbright/voicepad/internal/store"
	"github.com/rbright/voicepad/internal/version"
)

// dialingService connects to the configured backend for each request, so a
// backend that is down only fails the request that needed it.
type dialingService struct {
	cfg  config.FeedbackConfig
	dial func(context.Context, config.FeedbackConfig) (feedback.Service, func(), error)
}

func (d dialingService) Feedback(ctx context.Context, req feedback.Request) (feedback.Response, error) {
	svc, closeFn, err := d.dial(ctx, d.cfg)
	if err != nil {
		return feedback.Response{}, err
	}
	defer closeFn()
	return svc.Feedback(ctx, req)
}

// feedbackClient returns the injected service or one that dials per request.
func (r Runner) feedbackClient(cfg config.FeedbackConfig) feedback.Service {
	if r.Feedback != nil {
		return r.Feedback
	}
	return dialingService{cfg: cfg, dial: dialFeedback}
}

func dialFeedback(ctx context.Context, cfg config.FeedbackConfig) (feedback.Service, func(), error) {
	switch cfg.Backend {
	case config.BackendOpenAI:
		generator, err := newGenerator(cfg)
		if err != nil {
			return nil, nil, err
		}
		return generator, func() {}, nil
	default:
		client, err := feedback.DialGRPC(ctx, feedback.GRPCConfig{
			Endpoint:    cfg.GRPC,
			CallTimeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		}, grpc.WithUserAgent(version.UserAgent()))
		if err != nil {
			return nil, nil, err
		}
		return client, func() { _ = client.Close() }, nil
	}
}

func newGenerator(cfg config.FeedbackConfig) (*feedback.OpenAI, error) {
	generator, err := feedback.NewOpenAI(feedback.OpenAIConfig{
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.Model,
		APIKey:  cfg.OpenAI.APIKey(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set %s)", err, cfg.OpenAI.APIKeyEnv)
	}
	return generator, nil
}

func (r Runner) commandFeedback(ctx context.Context, parsed cli.Parsed, cfg config.Config, logger *slog.Logger) int {
	_, localStore, err := store.Open()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	if cfg.Feedback.TimeoutMS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Feedback.TimeoutMS)*time.Millisecond)
		defer cancel()
	}

	result, err := feedback.Fetch(ctx, localStore, r.feedbackClient(cfg.Feedback), parsed.Context)
	if err != nil {
		if errors.Is(err, feedback.ErrNoTranscript) {
			fmt.Fprintf(r.Stderr, "error: %s\n", feedback.MsgNoTranscript)
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("feedback failed", "error", err.Error())
		return 1
	}

	logger.Info("feedback received", "backend", cfg.Feedback.Backend, "raw_length", len(result.Raw))
	if parsed.HTML {
		fmt.Fprintln(r.Stdout, render.FeedbackCardHTML(result.Sections))
		return 0
	}
	fmt.Fprintln(r.Stdout, render.FeedbackCardText(result.Sections))
	return 0
}

// commandServeFeedback exposes the configured generator over gRPC.
func (r Runner) commandServeFeedback(ctx context.Context, parsed cli.Parsed, cfg config.Config, logger *slog.Logger) int {
	svc := r.Feedback
	if svc == nil {
		generator, err := newGenerator(cfg.Feedback)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		svc = generator
	}

	addr := parsed.Addr
	if addr == "" {
		addr = cfg.Feedback.Listen
	}
	fmt.Fprintf(r.Stdout, "serving feedback on %s\n", addr)
	if err := feedback.ListenAndServe(ctx, addr, svc, logger); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

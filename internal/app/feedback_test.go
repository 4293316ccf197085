package app

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rbright/voicepad/internal/config"
	"github.com/rbright/voicepad/internal/feedback"
	"github.com/stretchr/testify/require"
)

func TestRunnerFeedbackWithoutTranscript(t *testing.T) {
	paths := setupRunnerEnv(t)

	var calls atomic.Int32
	svc := feedback.ServiceFunc(func(context.Context, feedback.Request) (feedback.Response, error) {
		calls.Add(1)
		return feedback.Response{}, nil
	})

	var stderr bytes.Buffer
	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &stderr, Feedback: svc}
	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "feedback"})
	require.Equal(t, 1, exitCode)
	require.Equal(t, "error: "+feedback.MsgNoTranscript+"\n", stderr.String())
	require.Zero(t, calls.Load())
}

func TestRunnerFeedbackPrintsCard(t *testing.T) {
	paths := setupRunnerEnv(t)
	seedTranscript(t, "so um I think we should ship it")

	var got feedback.Request
	svc := feedback.ServiceFunc(func(_ context.Context, req feedback.Request) (feedback.Response, error) {
		got = req
		return feedback.Response{Feedback: "Summary: Clear ask.\nStrengths: Direct.\nSuggestions: Drop the fillers.\nScore: 7/10"}, nil
	})

	var stdout bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &bytes.Buffer{}, Feedback: svc}
	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "feedback", "--context", "standup"})
	require.Equal(t, 0, exitCode)

	require.Equal(t, feedback.ActionGetFeedback, got.Action)
	require.Equal(t, "so um I think we should ship it", got.Text)
	require.Equal(t, "standup", got.Context)

	out := stdout.String()
	require.Contains(t, out, "Clear ask.")
	require.Contains(t, out, "Drop the fillers.")
	require.Contains(t, out, "7/10")
	require.NotContains(t, out, "<div")
}

func TestRunnerFeedbackHTMLEscapesReply(t *testing.T) {
	paths := setupRunnerEnv(t)
	seedTranscript(t, "hello")

	svc := feedback.ServiceFunc(func(context.Context, feedback.Request) (feedback.Response, error) {
		return feedback.Response{Feedback: "Summary: <b>bold</b>"}, nil
	})

	var stdout bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &bytes.Buffer{}, Feedback: svc}
	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "feedback", "--html"})
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "&lt;b&gt;bold&lt;/b&gt;")
}

func TestRunnerFeedbackServiceFailure(t *testing.T) {
	paths := setupRunnerEnv(t)
	seedTranscript(t, "hello")

	svc := feedback.ServiceFunc(func(context.Context, feedback.Request) (feedback.Response, error) {
		return feedback.Response{}, errors.New("backend down")
	})

	var stderr bytes.Buffer
	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &stderr, Feedback: svc}
	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "feedback"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "backend down")
}

func TestRunnerServeFeedbackRequiresAPIKey(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stderr bytes.Buffer
	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &stderr}
	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "serve-feedback"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "feedback api key is empty")
	require.Contains(t, stderr.String(), "OPENAI_API_KEY")
}

func TestRunnerServeFeedbackStopsOnCancel(t *testing.T) {
	paths := setupRunnerEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := feedback.ServiceFunc(func(context.Context, feedback.Request) (feedback.Response, error) {
		return feedback.Response{Feedback: "Summary: ok"}, nil
	})
	var stdout bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &bytes.Buffer{}, Feedback: svc}
	exitCode := runner.Execute(ctx, []string{"--config", paths.configPath, "serve-feedback", "--addr", "127.0.0.1:0"})
	require.Equal(t, 0, exitCode)
	require.Equal(t, "serving feedback on 127.0.0.1:0\n", stdout.String())
}

func TestDialingServiceDialsPerRequest(t *testing.T) {
	var dials, closes atomic.Int32
	svc := dialingService{
		cfg: config.Default().Feedback,
		dial: func(context.Context, config.FeedbackConfig) (feedback.Service, func(), error) {
			dials.Add(1)
			inner := feedback.ServiceFunc(func(_ context.Context, req feedback.Request) (feedback.Response, error) {
				return feedback.Response{Feedback: "Summary: " + req.Text}, nil
			})
			return inner, func() { closes.Add(1) }, nil
		},
	}

	for range 2 {
		resp, err := svc.Feedback(context.Background(), feedback.Request{Text: "hi"})
		require.NoError(t, err)
		require.Equal(t, "Summary: hi", resp.Feedback)
	}
	require.Equal(t, int32(2), dials.Load())
	require.Equal(t, int32(2), closes.Load())
}

func TestDialingServiceReportsDialFailure(t *testing.T) {
	svc := dialingService{
		cfg: config.Default().Feedback,
		dial: func(context.Context, config.FeedbackConfig) (feedback.Service, func(), error) {
			return nil, nil, errors.New("connection refused")
		},
	}

	_, err := svc.Feedback(context.Background(), feedback.Request{Text: "hi"})
	require.EqualError(t, err, "connection refused")
}

func TestDialFeedbackOpenAIRequiresKey(t *testing.T) {
	t.Setenv("VOICEPAD_TEST_FEEDBACK_KEY", "")
	cfg := config.Default().Feedback
	cfg.Backend = config.BackendOpenAI
	cfg.OpenAI.APIKeyEnv = "VOICEPAD_TEST_FEEDBACK_KEY"

	_, _, err := dialFeedback(context.Background(), cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "VOICEPAD_TEST_FEEDBACK_KEY")
}

func TestFeedbackClientPrefersInjectedService(t *testing.T) {
	injected := feedback.ServiceFunc(func(context.Context, feedback.Request) (feedback.Response, error) {
		return feedback.Response{Feedback: "injected"}, nil
	})
	runner := Runner{Feedback: injected}

	resp, err := runner.feedbackClient(config.Default().Feedback).Feedback(context.Background(), feedback.Request{})
	require.NoError(t, err)
	require.Equal(t, "injected", resp.Feedback)

	_, ok := Runner{}.feedbackClient(config.Default().Feedback).(dialingService)
	require.True(t, ok)
}

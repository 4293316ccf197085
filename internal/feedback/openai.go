package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = openai.GPT4oMini

const coachingPrompt = `You are a communication coach. Review the dictated transcript and reply in exactly four labelled sections:
Summary: one or two sentences on what the speaker communicated.
Strengths: what worked well.
Suggestions: concrete ways to improve clarity and delivery.
Score: a communication score from 1 to 10 written as N/10.
Use plain text only.`

// OpenAIConfig selects an OpenAI-compatible chat completion endpoint.
type OpenAIConfig struct {
	BaseURL string
	Model   string
	APIKey  string
}

// OpenAI generates feedback with a chat completion model.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI builds a generator. BaseURL may point at any OpenAI-compatible API.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("feedback api key is empty")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = strings.TrimRight(base, "/")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAI{client: openai.NewClientWithConfig(clientCfg), model: model}, nil
}

// Feedback asks the model to coach the transcript in req.
func (o *OpenAI) Feedback(ctx context.Context, req Request) (Response, error) {
	user := "Transcript:\n" + req.Text
	if note := strings.TrimSpace(req.Context); note != "" {
		user = "Context: " + note + "\n\n" + user
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: coachingPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return Response{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, errors.New("chat completion returned no choices")
	}
	return Response{Feedback: resp.Choices[0].Message.Content}, nil
}

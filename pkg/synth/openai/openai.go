// Package openai implements pkg/synth's Synthesizer with OpenAI chat completions.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/danielpid/dynamic-rag/pkg/synth"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = "gpt-3.5-turbo"

// Config holds configuration for the OpenAI synthesizer.
type Config struct {
	APIKey string

	// BaseURL overrides the API endpoint, e.g. for Azure or a proxy.
	BaseURL string

	// Model defaults to DefaultModel.
	Model string

	// HTTPClient defaults to an otelhttp-instrumented client.
	HTTPClient *http.Client
}

// Synthesizer answers questions with OpenAI chat completions.
type Synthesizer struct {
	client openai.Client
	model  string
}

// NewSynthesizer creates an OpenAI synthesizer.
func NewSynthesizer(c Config) (*Synthesizer, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	model := c.Model
	if model == "" {
		model = DefaultModel
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   2 * time.Minute,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(c.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if c.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(c.BaseURL))
	}

	return &Synthesizer{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

// Synthesize sends one chat completion request at temperature 0.
func (s *Synthesizer) Synthesize(ctx context.Context, question, passages string) (string, error) {
	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(synth.SystemPrompt),
			openai.UserMessage(synth.UserPrompt(question, passages)),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("%w: openai chat completion: %w", synth.ErrSynthesis, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai returned no choices", synth.ErrSynthesis)
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", fmt.Errorf("%w: openai returned an empty answer", synth.ErrSynthesis)
	}
	return answer, nil
}

// Close is a no-op.
func (s *Synthesizer) Close() error {
	return nil
}

var _ synth.Synthesizer = (*Synthesizer)(nil)

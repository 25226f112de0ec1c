// Package ollama implements pkg/synth's Synthesizer with Ollama's chat API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/danielpid/dynamic-rag/pkg/synth"
)

const (
	// DefaultModel is the chat model used when none is configured.
	DefaultModel = "llama3.2"

	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error"`
}

// Config holds configuration for the Ollama synthesizer.
type Config struct {
	BaseURL string
	Model   string
}

// Synthesizer answers questions with a local Ollama model.
type Synthesizer struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewSynthesizer creates an Ollama synthesizer.
func NewSynthesizer(c Config) (*Synthesizer, error) {
	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := c.Model
	if model == "" {
		model = DefaultModel
	}

	return &Synthesizer{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout:   2 * time.Minute,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

// Synthesize sends one non-streaming chat request at temperature 0.
func (s *Synthesizer) Synthesize(ctx context.Context, question, passages string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: synth.SystemPrompt},
			{Role: "user", Content: synth.UserPrompt(question, passages)},
		},
		Stream:  false,
		Options: chatOptions{Temperature: 0},
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal ollama request: %v", synth.ErrSynthesis, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: create ollama request: %v", synth.ErrSynthesis, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: send ollama request: %w", synth.ErrSynthesis, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: ollama status %d: %s", synth.ErrSynthesis, resp.StatusCode, string(body))
	}

	var response chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("%w: decode ollama response: %v", synth.ErrSynthesis, err)
	}
	if response.Error != "" {
		return "", fmt.Errorf("%w: ollama error: %s", synth.ErrSynthesis, response.Error)
	}

	answer := strings.TrimSpace(response.Message.Content)
	if answer == "" {
		return "", fmt.Errorf("%w: ollama returned an empty answer", synth.ErrSynthesis)
	}
	return answer, nil
}

// Close is a no-op.
func (s *Synthesizer) Close() error {
	return nil
}

var _ synth.Synthesizer = (*Synthesizer)(nil)

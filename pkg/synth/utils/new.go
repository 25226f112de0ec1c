// Package synthutils builds a synth.Synthesizer from configuration.
package synthutils

import (
	"fmt"

	"github.com/danielpid/dynamic-rag/pkg/synth"
	"github.com/danielpid/dynamic-rag/pkg/synth/ollama"
	"github.com/danielpid/dynamic-rag/pkg/synth/openai"
)

type NewSynthesizerOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string
}

func NewSynthesizer(o *NewSynthesizerOpts) (synth.Synthesizer, error) {
	switch o.ProviderType {
	case "openai":
		return openai.NewSynthesizer(openai.Config{
			APIKey:  o.APIKey,
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	case "ollama":
		return ollama.NewSynthesizer(ollama.Config{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", o.ProviderType)
	}
}

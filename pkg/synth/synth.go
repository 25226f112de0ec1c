// Package synth turns a question and retrieved context into an answer with
// an LLM.
package synth

import (
	"context"
	"errors"
	"strings"
)

// ErrSynthesis is returned when the LLM call fails or returns nothing.
var ErrSynthesis = errors.New("answer synthesis failed")

// Synthesizer generates an answer grounded in the provided context.
// Implementations call the model at temperature 0 and never retry.
type Synthesizer interface {
	Synthesize(ctx context.Context, question, passages string) (string, error)

	Close() error
}

// SystemPrompt instructs the model to stay within the supplied context.
const SystemPrompt = `You are an expert Q&A system that is trusted around the world.
Always answer the query using the provided context information, and not prior knowledge.
Never directly reference the given context in your answer.
If the context is empty or does not contain the answer, say that you do not have relevant information to answer the question.`

// UserPrompt renders the question and retrieved passages into the user message.
func UserPrompt(question, passages string) string {
	var b strings.Builder
	b.WriteString("Context information is below.\n")
	b.WriteString("---------------------\n")
	if strings.TrimSpace(passages) == "" {
		b.WriteString("(no relevant passages were found)\n")
	} else {
		b.WriteString(passages)
		if !strings.HasSuffix(passages, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("---------------------\n")
	b.WriteString("Given the context information and not prior knowledge, answer the query.\n")
	b.WriteString("Query: ")
	b.WriteString(question)
	b.WriteString("\nAnswer: ")
	return b.String()
}

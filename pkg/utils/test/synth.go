package testutils

import (
	"context"
	"sync"
)

// MockSynthesizer answers with a fixed string, or echoes the passages it was
// given when Answer is empty.
type MockSynthesizer struct {
	Answer string

	// Err, when set, is returned by every call.
	Err error

	mu        sync.Mutex
	calls     int
	questions []string
	passages  []string
}

func (m *MockSynthesizer) Synthesize(ctx context.Context, question, passages string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.questions = append(m.questions, question)
	m.passages = append(m.passages, passages)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Err != nil {
		return "", m.Err
	}
	if m.Answer != "" {
		return m.Answer, nil
	}
	if passages == "" {
		return "I do not have relevant information to answer the question.", nil
	}
	return passages, nil
}

// Calls returns the number of Synthesize invocations.
func (m *MockSynthesizer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastPassages returns the context passed to the most recent call.
func (m *MockSynthesizer) LastPassages() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.passages) == 0 {
		return ""
	}
	return m.passages[len(m.passages)-1]
}

func (m *MockSynthesizer) Close() error {
	return nil
}

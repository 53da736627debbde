package ai

import (
	"context"
	"errors"
	"sync"

	"github.com/tidwall/gjson"
)

// MockCall records one call made to MockLLM.
type MockCall struct {
	Prompt string
	System string
}

type mockReply struct {
	text string
	err  error
}

// MockLLM is a scripted LLMService for testing. Queued replies are returned
// in order; once the queue is drained, Fallback is used (or an error when
// Fallback is nil).
type MockLLM struct {
	mu       sync.Mutex
	queue    []mockReply
	calls    []MockCall
	Fallback func(prompt, system string) (string, error)
}

// NewMockLLM creates a MockLLM that answers with replies in order.
func NewMockLLM(replies ...string) *MockLLM {
	m := &MockLLM{}
	for _, r := range replies {
		m.Reply(r)
	}
	return m
}

// Reply queues a text reply.
func (m *MockLLM) Reply(text string) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, mockReply{text: text})
	return m
}

// Fail queues a call failure.
func (m *MockLLM) Fail(err error) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, mockReply{err: err})
	return m
}

// Calls returns the calls made so far.
func (m *MockLLM) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// Complete returns the next scripted reply.
func (m *MockLLM) Complete(ctx context.Context, prompt, system string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Prompt: prompt, System: system})
	if len(m.queue) > 0 {
		next := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		return next.text, next.err
	}
	fallback := m.Fallback
	m.mu.Unlock()

	if fallback != nil {
		return fallback(prompt, system)
	}
	return "", errors.New("mock llm: no scripted reply")
}

// CompleteJSON returns the next scripted reply parsed as a JSON object.
func (m *MockLLM) CompleteJSON(ctx context.Context, prompt, system string) (gjson.Result, error) {
	text, err := m.Complete(ctx, prompt, system)
	if err != nil {
		return gjson.Result{}, err
	}
	return ParseJSONObject(text)
}

var _ LLMService = (*MockLLM)(nil)

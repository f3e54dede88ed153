package workers

import (
	"context"
	"fmt"
	"strings"

	"github.com/svala-ai/svala/core/llm"
)

// ProviderAgent backs a worker with a hosted model. It satisfies Agent with
// a plain request/response exchange; Stream wraps the full reply in a
// single chunk.
type ProviderAgent struct {
	provider     llm.Provider
	systemPrompt string
}

// NewProviderAgent wraps a model provider as a worker agent.
func NewProviderAgent(provider llm.Provider, systemPrompt string) *ProviderAgent {
	return &ProviderAgent{provider: provider, systemPrompt: systemPrompt}
}

func (a *ProviderAgent) Invoke(ctx context.Context, req Request) (*Response, error) {
	text, err := a.provider.Invoke(ctx, a.systemPrompt, buildUserMessage(req))
	if err != nil {
		return nil, fmt.Errorf("agent invoke: %w", err)
	}
	return &Response{Text: text, Done: true}, nil
}

func (a *ProviderAgent) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	ch := make(chan Chunk, 1)
	go func() {
		defer close(ch)
		text, err := a.provider.Invoke(ctx, a.systemPrompt, buildUserMessage(req))
		if err != nil {
			ch <- Chunk{Err: err}
			return
		}
		ch <- Chunk{Text: text}
	}()
	return ch, nil
}

func buildUserMessage(req Request) string {
	var b strings.Builder

	if len(req.ToolIDs) > 0 {
		b.WriteString("Available tools: ")
		b.WriteString(strings.Join(req.ToolIDs, ", "))
		b.WriteString("\n\n")
	}
	for _, turn := range req.History {
		b.WriteString(turn.Role)
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}
	b.WriteString(req.Query)

	return b.String()
}

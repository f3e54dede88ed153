package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/svala-ai/svala/core/workers"
)

// ErrUnknownTool marks a call to a tool with no registered handler.
var ErrUnknownTool = errors.New("unknown tool")

// ToolHandler executes one tool call.
type ToolHandler func(ctx context.Context, call workers.ToolCall) (string, error)

// ExecutorRegistry maps tool ids to their handlers. Tool backends register
// themselves at startup; the supervisor only sees the ToolExecutor surface.
type ExecutorRegistry struct {
	mu       sync.RWMutex
	handlers map[string]ToolHandler
}

// NewExecutorRegistry creates an empty registry.
func NewExecutorRegistry() *ExecutorRegistry {
	return &ExecutorRegistry{handlers: make(map[string]ToolHandler)}
}

// Register binds a handler to a tool id, replacing any previous binding.
func (r *ExecutorRegistry) Register(toolID string, handler ToolHandler) {
	r.mu.Lock()
	r.handlers[toolID] = handler
	r.mu.Unlock()
}

// Execute runs the registered handler for the call's tool.
func (r *ExecutorRegistry) Execute(ctx context.Context, call workers.ToolCall) (string, error) {
	r.mu.RLock()
	handler := r.handlers[call.ToolID]
	r.mu.RUnlock()

	if handler == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, call.ToolID)
	}
	return handler(ctx, call)
}

// ToolIDs returns the registered tool ids, sorted.
func (r *ExecutorRegistry) ToolIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.handlers))
	for id := range r.handlers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

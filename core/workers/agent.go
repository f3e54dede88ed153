// Package workers manages the pool of agent workers the dispatcher hands
// queries to. Workers are declared in configuration but constructed lazily,
// once, on first use.
package workers

import (
	"context"
	"encoding/json"
	"time"
)

// Request is one unit of work handed to an agent.
type Request struct {
	SessionID string            `json:"session_id"`
	Query     string            `json:"query"`
	ToolIDs   []string          `json:"tool_ids"`
	History   []Turn            `json:"history,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Turn is one prior exchange in the request's history, including tool
// results fed back during a dispatch loop.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolCall is an agent's request to run one tool.
type ToolCall struct {
	ID        string          `json:"id"`
	ToolID    string          `json:"tool_id"`
	Arguments json.RawMessage `json:"arguments"`
}

// Response is an agent's reply: final text, a set of tool calls to run
// before continuing, or both.
type Response struct {
	Text      string     `json:"text"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Done      bool       `json:"done"`
}

// Chunk is one streamed fragment of a response.
type Chunk struct {
	Text string
	Err  error
}

// Agent is the unit of execution behind a worker. Invoke blocks for the
// full response; Stream delivers it incrementally and closes the channel
// when the response ends.
type Agent interface {
	Invoke(ctx context.Context, req Request) (*Response, error)
	Stream(ctx context.Context, req Request) (<-chan Chunk, error)
}

// Handle is a constructed worker: the agent plus the configuration
// snapshot it was built from.
type Handle struct {
	Name             string
	Agent            Agent
	AvailableToolIDs []string
	CreatedAt        time.Time
}

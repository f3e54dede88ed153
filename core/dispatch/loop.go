package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/svala-ai/svala/core/workers"
)

// ErrLoopDetected marks an agent stuck issuing the same tool call.
var ErrLoopDetected = errors.New("tool call loop detected")

// ErrMaxSteps marks a dispatch that exhausted its step budget.
var ErrMaxSteps = errors.New("max dispatch steps exceeded")

// runLoop drives the agent until it produces a final reply: invoke, run the
// requested tools, feed the results back, repeat. Bounded by the step
// budget and by repeated-call detection.
func (s *Supervisor) runLoop(ctx context.Context, handle *workers.Handle, req Request, toolIDs []string) (string, int, error) {
	agentReq := workers.Request{
		SessionID: req.SessionID,
		Query:     req.Query,
		ToolIDs:   toolIDs,
	}

	var lastSignature string
	var repeats int

	for step := 1; ; step++ {
		if step > s.config.MaxSteps {
			return "", step - 1, fmt.Errorf("%w after %d steps", ErrMaxSteps, s.config.MaxSteps)
		}

		resp, err := handle.Agent.Invoke(ctx, agentReq)
		if err != nil {
			return "", step, err
		}

		if len(resp.ToolCalls) == 0 || resp.Done {
			return resp.Text, step, nil
		}

		sig := callSignature(resp.ToolCalls)
		if sig == lastSignature {
			repeats++
			if repeats >= s.config.MaxRepeatedCalls {
				return "", step, fmt.Errorf("%w: %s repeated %d times", ErrLoopDetected, sig, repeats+1)
			}
		} else {
			lastSignature = sig
			repeats = 0
		}

		for _, call := range resp.ToolCalls {
			output, execErr := s.executeTool(ctx, req.Query, call)
			agentReq.History = append(agentReq.History, workers.Turn{
				Role:    "tool",
				Content: output,
			})
			if execErr != nil {
				s.logger.Warn("tool call failed",
					"tool", call.ToolID,
					"step", step,
					"error", execErr,
				)
			}
		}
	}
}

// executeTool runs one tool call and records its outcome as retrieval
// feedback. Tool failures are fed back to the agent, not returned.
func (s *Supervisor) executeTool(ctx context.Context, query string, call workers.ToolCall) (string, error) {
	if s.executor == nil {
		return fmt.Sprintf("tool %s is not available", call.ToolID), errors.New("no tool executor")
	}

	output, err := s.executor.Execute(ctx, call)

	if s.retriever != nil {
		if ferr := s.retriever.RecordOutcome(ctx, query, call.ToolID, err == nil); ferr != nil {
			s.logger.Warn("feedback record failed", "tool", call.ToolID, "error", ferr)
		}
	}

	if err != nil {
		return fmt.Sprintf("tool %s failed: %v", call.ToolID, err), err
	}
	return output, nil
}

// callSignature canonicalizes a batch of tool calls for loop detection.
func callSignature(calls []workers.ToolCall) string {
	sig := ""
	for _, c := range calls {
		sig += c.ToolID + "(" + string(c.Arguments) + ");"
	}
	return sig
}

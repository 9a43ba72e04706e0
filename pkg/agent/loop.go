// Package agent drives the bounded tool-calling exchange between the
// chat-completion provider and the tool dispatcher.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"

	"sheetgrid-be/pkg/llm"
	"sheetgrid-be/pkg/tools"
)

// Loop states. Transitions: Idle -> AwaitingModel on send,
// AwaitingModel -> ExecutingTools when the model requests tools,
// ExecutingTools -> AwaitingModel for the follow-up round, and back to
// Idle when the model returns a plain answer or the run ends.
type State int32

const (
	StateIdle State = iota
	StateAwaitingModel
	StateExecutingTools
)

func (s State) String() string {
	switch s {
	case StateAwaitingModel:
		return "AWAITING_MODEL"
	case StateExecutingTools:
		return "EXECUTING_TOOLS"
	default:
		return "IDLE"
	}
}

// ToolDispatcher executes one named tool call and returns its result as
// text. Implementations must never return errors across this boundary;
// failures are encoded in the result text.
type ToolDispatcher interface {
	Dispatch(ctx context.Context, name string, rawArgs json.RawMessage) string
	Catalogue() []tools.Descriptor
}

// ToolStep records one executed tool call for callers that surface an
// execution trace.
type ToolStep struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
	Result    string `json:"result"`
}

// Result is the outcome of one full exchange.
type Result struct {
	Reply  string
	Steps  []ToolStep
	Rounds int
	// Transcript holds every message appended during the run, in order:
	// assistant tool requests, tool results, and the final answer.
	Transcript []llm.Message
}

type Loop struct {
	provider   llm.LLMProvider
	dispatcher ToolDispatcher
	maxRounds  int
	state      atomic.Int32
	logger     *log.Logger
}

const defaultMaxRounds = 8

func NewLoop(provider llm.LLMProvider, dispatcher ToolDispatcher, maxRounds int, logger *log.Logger) *Loop {
	if maxRounds <= 0 {
		maxRounds = defaultMaxRounds
	}
	return &Loop{
		provider:   provider,
		dispatcher: dispatcher,
		maxRounds:  maxRounds,
		logger:     logger,
	}
}

// State reports the loop's current position in the exchange.
func (l *Loop) State() State {
	return State(l.state.Load())
}

func (l *Loop) setState(s State) {
	l.state.Store(int32(s))
}

// Run executes one exchange: send history plus the tool catalogue,
// execute any requested tool calls sequentially, feed results back, and
// repeat until the model answers in plain text or the round limit is
// reached. Cancellation aborts without appending anything; the returned
// error is the context's error and carries no transcript.
func (l *Loop) Run(ctx context.Context, history []llm.Message, opts ...llm.Option) (*Result, error) {
	defer l.setState(StateIdle)

	catalogue := l.toolDefinitions()
	msgs := make([]llm.Message, len(history))
	copy(msgs, history)

	result := &Result{}

	for round := 0; round < l.maxRounds; round++ {
		l.setState(StateAwaitingModel)
		turn, err := l.provider.ChatWithTools(ctx, msgs, catalogue, opts...)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		result.Rounds = round + 1

		if len(turn.ToolCalls) == 0 {
			final := llm.Message{Role: "assistant", Content: turn.Content}
			result.Reply = turn.Content
			result.Transcript = append(result.Transcript, final)
			return result, nil
		}

		// Tool calls run sequentially in the order received: later calls
		// may depend on the side effects of earlier ones.
		l.setState(StateExecutingTools)
		assistantMsg := llm.Message{
			Role:      "assistant",
			Content:   turn.Content,
			ToolCalls: turn.ToolCalls,
		}
		toolMsgs := make([]llm.Message, 0, len(turn.ToolCalls))
		for _, call := range turn.ToolCalls {
			out := l.dispatcher.Dispatch(ctx, call.Name, json.RawMessage(call.Arguments))
			if l.logger != nil {
				l.logger.Printf("[TOOL] %s(%s) -> %s", call.Name, call.Arguments, out)
			}
			result.Steps = append(result.Steps, ToolStep{
				Name:      call.Name,
				Arguments: call.Arguments,
				Result:    out,
			})
			toolMsgs = append(toolMsgs, llm.Message{
				Role:       "tool",
				Content:    out,
				ToolCallId: call.Id,
			})
		}

		// Cancellation after tools ran but before the follow-up: skip
		// the follow-up entirely, append nothing.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		msgs = append(msgs, assistantMsg)
		msgs = append(msgs, toolMsgs...)
		result.Transcript = append(result.Transcript, assistantMsg)
		result.Transcript = append(result.Transcript, toolMsgs...)
	}

	return nil, fmt.Errorf("tool round limit (%d) reached without a final answer", l.maxRounds)
}

func (l *Loop) toolDefinitions() []llm.ToolDefinition {
	catalogue := l.dispatcher.Catalogue()
	defs := make([]llm.ToolDefinition, 0, len(catalogue))
	for _, d := range catalogue {
		defs = append(defs, llm.ToolDefinition{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Parameters,
		})
	}
	return defs
}

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"sheetgrid-be/pkg/llm"
	"sheetgrid-be/pkg/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider replays a fixed sequence of model turns.
type scriptedProvider struct {
	turns []*llm.ChatResult
	calls int
	errAt int // 1-based call index that fails, 0 disables
	err   error

	lastHistory []llm.Message
	lastTools   []llm.ToolDefinition
}

func (s *scriptedProvider) ChatWithTools(ctx context.Context, history []llm.Message, defs []llm.ToolDefinition, opts ...llm.Option) (*llm.ChatResult, error) {
	s.calls++
	s.lastHistory = history
	s.lastTools = defs
	if s.errAt != 0 && s.calls == s.errAt {
		return nil, s.err
	}
	if s.calls > len(s.turns) {
		return nil, fmt.Errorf("unexpected call %d", s.calls)
	}
	return s.turns[s.calls-1], nil
}

func (s *scriptedProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	res, err := s.ChatWithTools(ctx, history, nil, opts...)
	if err != nil {
		return "", err
	}
	return res.Content, nil
}

func (s *scriptedProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return s.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}})
}

// recordingDispatcher returns canned results and records calls.
type recordingDispatcher struct {
	results map[string]string
	calls   []string
	cancel  context.CancelFunc // when set, fires during the first dispatch
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, name string, rawArgs json.RawMessage) string {
	d.calls = append(d.calls, name)
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if out, ok := d.results[name]; ok {
		return out
	}
	return `{"error":"unknown tool: ` + name + `"}`
}

func (d *recordingDispatcher) Catalogue() []tools.Descriptor {
	return []tools.Descriptor{{Name: "set_cell_value", Description: "write a cell"}}
}

func TestRunPlainAnswer(t *testing.T) {
	provider := &scriptedProvider{turns: []*llm.ChatResult{
		{Content: "Nothing to change."},
	}}
	dispatcher := &recordingDispatcher{}
	loop := NewLoop(provider, dispatcher, 0, nil)

	res, err := loop.Run(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)

	assert.Equal(t, "Nothing to change.", res.Reply)
	assert.Equal(t, 1, res.Rounds)
	assert.Empty(t, res.Steps)
	require.Len(t, res.Transcript, 1)
	assert.Equal(t, "assistant", res.Transcript[0].Role)
	assert.Empty(t, dispatcher.calls)
	assert.Equal(t, StateIdle, loop.State())
}

func TestRunToolRoundThenAnswer(t *testing.T) {
	provider := &scriptedProvider{turns: []*llm.ChatResult{
		{ToolCalls: []llm.ToolCall{{Id: "call_1", Name: "set_cell_value", Arguments: `{"row":0,"col":0,"value":42}`}}},
		{Content: "Set A1 to 42."},
	}}
	dispatcher := &recordingDispatcher{results: map[string]string{
		"set_cell_value": `{"success":true,"cell":"A1"}`,
	}}
	loop := NewLoop(provider, dispatcher, 0, nil)

	res, err := loop.Run(context.Background(), []llm.Message{{Role: "user", Content: "set A1 to 42"}})
	require.NoError(t, err)

	assert.Equal(t, "Set A1 to 42.", res.Reply)
	assert.Equal(t, 2, res.Rounds)
	assert.Equal(t, []string{"set_cell_value"}, dispatcher.calls)

	require.Len(t, res.Steps, 1)
	assert.Equal(t, "set_cell_value", res.Steps[0].Name)
	assert.Equal(t, `{"success":true,"cell":"A1"}`, res.Steps[0].Result)

	// Transcript: assistant tool request, tool result, final answer.
	require.Len(t, res.Transcript, 3)
	assert.Equal(t, "assistant", res.Transcript[0].Role)
	assert.Equal(t, "tool", res.Transcript[1].Role)
	assert.Equal(t, "call_1", res.Transcript[1].ToolCallId)
	assert.Equal(t, "assistant", res.Transcript[2].Role)

	// The follow-up request carried the tool result back to the model.
	require.Len(t, provider.lastHistory, 3)
	assert.Equal(t, "tool", provider.lastHistory[2].Role)

	// The catalogue was presented as tool definitions.
	require.Len(t, provider.lastTools, 1)
	assert.Equal(t, "set_cell_value", provider.lastTools[0].Name)
}

func TestRunSequentialToolsInOrder(t *testing.T) {
	provider := &scriptedProvider{turns: []*llm.ChatResult{
		{ToolCalls: []llm.ToolCall{
			{Id: "c1", Name: "set_cell_value", Arguments: `{"row":1}`},
			{Id: "c2", Name: "set_cell_value", Arguments: `{"row":2}`},
		}},
		{Content: "Both done."},
	}}
	dispatcher := &recordingDispatcher{results: map[string]string{"set_cell_value": `{"success":true}`}}
	loop := NewLoop(provider, dispatcher, 0, nil)

	res, err := loop.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"set_cell_value", "set_cell_value"}, dispatcher.calls)
	require.Len(t, res.Steps, 2)
	assert.Equal(t, `{"row":1}`, res.Steps[0].Arguments)
	assert.Equal(t, `{"row":2}`, res.Steps[1].Arguments)
}

func TestRunCancelledBeforeFirstTurn(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := &scriptedProvider{errAt: 1, err: errors.New("request aborted")}
	loop := NewLoop(provider, &recordingDispatcher{}, 0, nil)

	res, err := loop.Run(ctx, nil)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunCancelledDuringTools(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	provider := &scriptedProvider{turns: []*llm.ChatResult{
		{ToolCalls: []llm.ToolCall{{Id: "c1", Name: "set_cell_value", Arguments: `{}`}}},
	}}
	dispatcher := &recordingDispatcher{
		results: map[string]string{"set_cell_value": `{"success":true}`},
		cancel:  cancel,
	}
	loop := NewLoop(provider, dispatcher, 0, nil)

	res, err := loop.Run(ctx, nil)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
	// No follow-up call went out after the cancel.
	assert.Equal(t, 1, provider.calls)
}

func TestRunRoundLimit(t *testing.T) {
	// The model never stops asking for tools.
	endless := &llm.ChatResult{ToolCalls: []llm.ToolCall{{Id: "c", Name: "set_cell_value", Arguments: `{}`}}}
	provider := &scriptedProvider{turns: []*llm.ChatResult{endless, endless, endless}}
	dispatcher := &recordingDispatcher{results: map[string]string{"set_cell_value": `{"success":true}`}}
	loop := NewLoop(provider, dispatcher, 3, nil)

	res, err := loop.Run(context.Background(), nil)
	assert.Nil(t, res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "round limit")
	assert.Equal(t, 3, provider.calls)
}

func TestProviderErrorPassesThrough(t *testing.T) {
	provider := &scriptedProvider{errAt: 1, err: errors.New("upstream 500")}
	loop := NewLoop(provider, &recordingDispatcher{}, 0, nil)

	_, err := loop.Run(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream 500")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "IDLE", StateIdle.String())
	assert.Equal(t, "AWAITING_MODEL", StateAwaitingModel.String())
	assert.Equal(t, "EXECUTING_TOOLS", StateExecutingTools.String())
}

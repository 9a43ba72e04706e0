package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role       string // "user", "assistant", "system", "tool"
	Content    string
	ToolCallId string     // set on tool-result messages
	ToolCalls  []ToolCall // set on assistant messages that requested tools
}

// ToolCall is a tool invocation requested by the model. Arguments is the
// raw JSON string exactly as the provider returned it.
type ToolCall struct {
	Id        string
	Name      string
	Arguments string
}

// ToolDefinition describes one callable tool in the catalogue sent to the
// model. Parameters is a JSON-schema object.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// ChatResult is one model turn: plain content, tool calls, or both.
type ChatResult struct {
	Content   string
	ToolCalls []ToolCall
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response text
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// ChatWithTools sends the history plus a tool catalogue and returns
	// the model's content and any requested tool calls
	ChatWithTools(ctx context.Context, history []Message, tools []ToolDefinition, options ...Option) (*ChatResult, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}

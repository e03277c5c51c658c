// Package llm defines the provider-agnostic types for decision-model
// interactions. Concrete providers live under pkg/llm.
package llm

import (
	"context"

	"github.com/pkg/errors"

	tooltypes "github.com/jingkaihe/skillet/pkg/types/tools"
)

// Role values for conversation messages
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message represents a generic message in a conversation
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // set on assistant messages that requested tools
	ToolCallID string     `json:"tool_call_id,omitempty"` // set on tool-result messages
	ToolName   string     `json:"tool_name,omitempty"`
}

// ToolCall represents a tool invocation requested by the decision model
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // raw JSON object
}

// Response is the normalized response shape from any provider.
//
// Content is deliberately untyped: providers are not contractually stable
// about whether they hand back a plain string, a sequence of typed content
// blocks, or something else entirely. Callers must pass it through
// normalize.Text before showing it to a human.
type Response struct {
	Content   any
	ToolCalls []ToolCall
	Usage     Usage
}

// Model is the decision-model boundary: a single synchronous
// request/response call with tool-calling support.
type Model interface {
	Complete(ctx context.Context, systemPrompt string, messages []Message, tools []tooltypes.Tool) (Response, error)
}

// ErrNoCredentials is wrapped by providers when the API key is absent so that
// callers can distinguish a misconfiguration from a transient failure.
var ErrNoCredentials = errors.New("no API credentials configured")

// IsCredentialError reports whether err stems from missing credentials
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrNoCredentials)
}

// Package tools defines the capability interface every invokable tool
// implements and the structured result shape fed back to the decision model.
package tools

import (
	"context"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Tool is a single named, synchronously invokable capability. The catalog is
// the only place a tool is looked up by name.
type Tool interface {
	Name() string
	Description() string
	GenerateSchema() *jsonschema.Schema
	ValidateInput(arguments string) error
	Execute(ctx context.Context, arguments string) ToolResult
}

// ToolResult carries either a result payload or a structured error string.
// Tool failures never surface as Go errors to the agent loop; they degrade
// into the Error field so the model can recover within the same run.
type ToolResult struct {
	Result string `json:"result"`
	Error  string `json:"error"`
}

// IsError reports whether the invocation failed
func (r ToolResult) IsError() bool {
	return r.Error != ""
}

// String renders the result in the delimited form appended to conversation history
func (r ToolResult) String() string {
	out := ""
	if r.Error != "" {
		out = fmt.Sprintf("<error>\n%s\n</error>\n", r.Error)
	}
	if r.Result != "" {
		out += fmt.Sprintf("<result>\n%s\n</result>\n", r.Result)
	}
	return out
}

// ErrorResult builds a ToolResult carrying a structured error message
func ErrorResult(format string, args ...any) ToolResult {
	return ToolResult{Error: fmt.Sprintf(format, args...)}
}

package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillet/pkg/logger"
	tooltypes "github.com/jingkaihe/skillet/pkg/types/tools"
)

// DynamicTool wraps a persisted tool definition as an invokable tool. The
// implementation script receives the input value as its final argument and
// reports its result on stdout.
type DynamicTool struct {
	def Definition
}

// DynamicInput is the input schema shared by all dynamic tools
type DynamicInput struct {
	InputValue string `json:"input_value" jsonschema:"description=The input to pass to the skill implementation"`
}

// NewDynamicTool wraps a definition
func NewDynamicTool(def Definition) *DynamicTool {
	return &DynamicTool{def: def}
}

// Name returns the tool name
func (t *DynamicTool) Name() string {
	return t.def.Name
}

// Description returns the tool description
func (t *DynamicTool) Description() string {
	return t.def.Description
}

// GenerateSchema generates the JSON schema for the tool's input
func (t *DynamicTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[DynamicInput]()
}

// ValidateInput validates the input parameters
func (t *DynamicTool) ValidateInput(arguments string) error {
	var input DynamicInput
	if err := json.Unmarshal([]byte(arguments), &input); err != nil {
		return errors.Wrap(err, "invalid input")
	}
	if input.InputValue == "" {
		return errors.New("input_value is required")
	}
	return nil
}

// Execute runs the implementation command. Non-zero exit and timeouts come
// back as structured errors carrying the script's stderr.
func (t *DynamicTool) Execute(ctx context.Context, arguments string) tooltypes.ToolResult {
	var input DynamicInput
	if err := json.Unmarshal([]byte(arguments), &input); err != nil {
		return tooltypes.ErrorResult("invalid input: %v", err)
	}

	// the definition is shared across concurrent runs; never append into its
	// Command backing array
	args := make([]string, 0, len(t.def.Command))
	args = append(args, t.def.Command[1:]...)
	args = append(args, input.InputValue)
	cmd := exec.CommandContext(ctx, t.def.Command[0], args...)
	cmd.Dir = t.def.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.G(ctx).WithField("tool", t.def.Name).WithField("command", strings.Join(t.def.Command, " ")).Debug("running dynamic tool")

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return tooltypes.ErrorResult("tool %s timed out", t.def.Name)
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return tooltypes.ErrorResult("tool %s failed: %s", t.def.Name, detail)
	}

	return tooltypes.ToolResult{Result: strings.TrimSpace(stdout.String())}
}

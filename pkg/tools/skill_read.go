package tools

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillet/pkg/skills"
	tooltypes "github.com/jingkaihe/skillet/pkg/types/tools"
)

// ReadSkillInstructionsToolName is referenced by the agent loop to record
// which skill a run selected.
const ReadSkillInstructionsToolName = "read_skill_instructions"

// ReadSkillInstructionsTool loads the full SKILL.md workflow body for a
// skill. The decision model must call it before any skill-specific tool.
type ReadSkillInstructionsTool struct {
	loader *skills.Loader
}

// ReadSkillInstructionsInput is the tool's input schema
type ReadSkillInstructionsInput struct {
	SkillName string `json:"skill_name" jsonschema:"description=Exact skill name from the available skills list"`
}

// NewReadSkillInstructionsTool creates the tool backed by the given loader
func NewReadSkillInstructionsTool(loader *skills.Loader) *ReadSkillInstructionsTool {
	return &ReadSkillInstructionsTool{loader: loader}
}

// Name returns the tool name
func (t *ReadSkillInstructionsTool) Name() string {
	return ReadSkillInstructionsToolName
}

// Description returns the tool description
func (t *ReadSkillInstructionsTool) Description() string {
	return "Read the full workflow instructions for a skill before executing it. Must be called once, before any skill-specific tool, so the workflow is known."
}

// GenerateSchema generates the JSON schema for the tool's input
func (t *ReadSkillInstructionsTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[ReadSkillInstructionsInput]()
}

// ValidateInput validates the input parameters
func (t *ReadSkillInstructionsTool) ValidateInput(arguments string) error {
	var input ReadSkillInstructionsInput
	if err := json.Unmarshal([]byte(arguments), &input); err != nil {
		return errors.Wrap(err, "invalid input")
	}
	if input.SkillName == "" {
		return errors.New("skill_name is required")
	}
	return nil
}

// Execute loads a fresh registry and returns the skill's workflow body.
// An unknown name yields a correction message listing every known skill, as
// a normal result the model can act on.
func (t *ReadSkillInstructionsTool) Execute(ctx context.Context, arguments string) tooltypes.ToolResult {
	var input ReadSkillInstructionsInput
	if err := json.Unmarshal([]byte(arguments), &input); err != nil {
		return tooltypes.ErrorResult("invalid input: %v", err)
	}

	reg := t.loader.Load(ctx)
	instructions, ok := reg.Instructions(input.SkillName)
	if !ok {
		return tooltypes.ToolResult{Result: reg.CorrectionFor(input.SkillName)}
	}
	return tooltypes.ToolResult{Result: instructions}
}

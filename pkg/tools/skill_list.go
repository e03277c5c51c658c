package tools

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillet/pkg/skills"
	tooltypes "github.com/jingkaihe/skillet/pkg/types/tools"
)

// ListSkillsToolName is the registered name of the skill-listing tool
const ListSkillsToolName = "list_skills"

// ListSkillsTool renders a numbered Markdown listing of every available
// skill. The agent's list-skills fast path produces the same content.
type ListSkillsTool struct {
	loader *skills.Loader
}

// ListSkillsInput is the (empty) input schema
type ListSkillsInput struct{}

// NewListSkillsTool creates the tool backed by the given loader
func NewListSkillsTool(loader *skills.Loader) *ListSkillsTool {
	return &ListSkillsTool{loader: loader}
}

// Name returns the tool name
func (t *ListSkillsTool) Name() string {
	return ListSkillsToolName
}

// Description returns the tool description
func (t *ListSkillsTool) Description() string {
	return "Return a numbered Markdown list of every available skill. Call this when the user asks what skills or capabilities exist."
}

// GenerateSchema generates the JSON schema for the tool's input
func (t *ListSkillsTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[ListSkillsInput]()
}

// ValidateInput validates the input parameters
func (t *ListSkillsTool) ValidateInput(arguments string) error {
	if arguments == "" {
		return nil
	}
	var input ListSkillsInput
	if err := json.Unmarshal([]byte(arguments), &input); err != nil {
		return errors.Wrap(err, "invalid input")
	}
	return nil
}

// Execute renders the listing from a fresh registry scan
func (t *ListSkillsTool) Execute(ctx context.Context, _ string) tooltypes.ToolResult {
	return tooltypes.ToolResult{Result: t.loader.Load(ctx).FormatListing()}
}

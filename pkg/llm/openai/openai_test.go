package openai

import (
	"context"
	"testing"

	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillet/pkg/tools"
	tooltypes "github.com/jingkaihe/skillet/pkg/types/tools"
)

type schemaTool struct {
	name   string
	schema *jsonschema.Schema
}

func (t *schemaTool) Name() string                       { return t.name }
func (t *schemaTool) Description() string                { return "tool " + t.name }
func (t *schemaTool) GenerateSchema() *jsonschema.Schema { return t.schema }
func (t *schemaTool) ValidateInput(string) error         { return nil }
func (t *schemaTool) Execute(context.Context, string) tooltypes.ToolResult {
	return tooltypes.ToolResult{}
}

type lookupInput struct {
	Query string `json:"query" jsonschema:"description=The search query"`
}

func TestToOpenAITools(t *testing.T) {
	tool := &schemaTool{name: "lookup", schema: tools.GenerateSchema[lookupInput]()}

	converted := toOpenAITools(context.Background(), []tooltypes.Tool{tool})
	require.Len(t, converted, 1)

	fn := converted[0].Function
	assert.Equal(t, "lookup", fn.Name)

	params, ok := fn.Parameters.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "object", params["type"])

	props, ok := params["properties"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, props, "query")
}

func TestToOpenAIToolsUnencodableSchema(t *testing.T) {
	// func values cannot be marshaled, forcing the schema round-trip to fail
	broken := &schemaTool{name: "broken", schema: &jsonschema.Schema{
		Type:   "object",
		Extras: map[string]any{"bad": func() {}},
	}}

	converted := toOpenAITools(context.Background(), []tooltypes.Tool{broken})
	require.Len(t, converted, 1)

	// the tool is still sent, with an unconstrained parameter object
	params, ok := converted[0].Function.Parameters.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"type": "object"}, params)
}

package tools

import (
	"context"
	"testing"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tooltypes "github.com/jingkaihe/skillet/pkg/types/tools"
)

type fakeTool struct {
	name    string
	execute func(ctx context.Context, arguments string) tooltypes.ToolResult
}

func (t *fakeTool) Name() string        { return t.name }
func (t *fakeTool) Description() string { return "fake tool " + t.name }

func (t *fakeTool) GenerateSchema() *jsonschema.Schema { return GenerateSchema[struct{}]() }
func (t *fakeTool) ValidateInput(string) error         { return nil }
func (t *fakeTool) Execute(ctx context.Context, arguments string) tooltypes.ToolResult {
	if t.execute != nil {
		return t.execute(ctx, arguments)
	}
	return tooltypes.ToolResult{Result: "ok"}
}

func staticBuild(toolSet ...tooltypes.Tool) BuildFunc {
	return func(context.Context) []tooltypes.Tool { return toolSet }
}

func TestCatalogRun(t *testing.T) {
	ctx := context.Background()
	catalog := NewCatalog(ctx, staticBuild(&fakeTool{name: "echo"}))

	result := catalog.Snapshot().Run(ctx, "echo", "{}")
	assert.False(t, result.IsError())
	assert.Equal(t, "ok", result.Result)
}

func TestCatalogRunUnknownTool(t *testing.T) {
	ctx := context.Background()
	catalog := NewCatalog(ctx, staticBuild())

	result := catalog.Snapshot().Run(ctx, "missing", "{}")
	require.True(t, result.IsError())
	assert.Contains(t, result.Error, "unknown tool: missing")
}

func TestCatalogRunRecoversPanic(t *testing.T) {
	ctx := context.Background()
	catalog := NewCatalog(ctx, staticBuild(&fakeTool{
		name: "boom",
		execute: func(context.Context, string) tooltypes.ToolResult {
			panic("exploded")
		},
	}))

	result := catalog.Snapshot().Run(ctx, "boom", "{}")
	require.True(t, result.IsError())
	assert.Contains(t, result.Error, "panicked")
}

func TestCatalogRunTimeout(t *testing.T) {
	ctx := context.Background()
	catalog := NewCatalog(ctx, staticBuild(&fakeTool{
		name: "slow",
		execute: func(ctx context.Context, _ string) tooltypes.ToolResult {
			<-ctx.Done()
			return tooltypes.ToolResult{Result: "finished anyway"}
		},
	}), WithToolTimeout(20*time.Millisecond))

	start := time.Now()
	result := catalog.Snapshot().Run(ctx, "slow", "{}")
	require.True(t, result.IsError())
	assert.Contains(t, result.Error, "timed out")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCatalogReloadSwapsAtomically(t *testing.T) {
	ctx := context.Background()

	toolSet := []tooltypes.Tool{&fakeTool{name: "first"}}
	catalog := NewCatalog(ctx, func(context.Context) []tooltypes.Tool { return toolSet })

	before := catalog.Snapshot()
	assert.Equal(t, []string{"first"}, before.Names())

	toolSet = []tooltypes.Tool{&fakeTool{name: "first"}, &fakeTool{name: "second"}}
	catalog.Reload(ctx)

	// the old snapshot is insulated from the reload
	assert.Equal(t, []string{"first"}, before.Names())
	assert.Equal(t, []string{"first", "second"}, catalog.Snapshot().Names())
	assert.True(t, catalog.Has("second"))
}

func TestCatalogReloadDropsDuplicateNames(t *testing.T) {
	ctx := context.Background()
	catalog := NewCatalog(ctx, staticBuild(
		&fakeTool{name: "dup"},
		&fakeTool{name: "dup"},
	))

	assert.Equal(t, []string{"dup"}, catalog.Names())
}

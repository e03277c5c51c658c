package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillet/pkg/skills"
)

func writeSkill(t *testing.T, root, name, description, body string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	content := "---\nname: " + name + "\ndescription: " + description + "\n---\n\n" + body
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(content), 0o644))
}

func TestReadSkillInstructions(t *testing.T) {
	tmpDir := t.TempDir()
	writeSkill(t, tmpDir, "youtube-transcript", "Extract video transcripts", "# Workflow\nStep 1: extract.\n")
	tool := NewReadSkillInstructionsTool(skills.NewLoader(tmpDir))

	t.Run("known skill", func(t *testing.T) {
		result := tool.Execute(context.Background(), `{"skill_name": "youtube-transcript"}`)
		require.False(t, result.IsError())
		assert.Contains(t, result.Result, "# Workflow")
	})

	t.Run("unknown skill returns correction", func(t *testing.T) {
		result := tool.Execute(context.Background(), `{"skill_name": "nope"}`)
		require.False(t, result.IsError())
		assert.Contains(t, result.Result, "'nope' not found")
		assert.Contains(t, result.Result, "youtube-transcript")
	})

	t.Run("sees freshly authored skills", func(t *testing.T) {
		writeSkill(t, tmpDir, "new-skill", "Just created", "# New workflow\n")
		result := tool.Execute(context.Background(), `{"skill_name": "new-skill"}`)
		require.False(t, result.IsError())
		assert.Contains(t, result.Result, "# New workflow")
	})

	t.Run("validation", func(t *testing.T) {
		assert.Error(t, tool.ValidateInput(`{}`))
		assert.Error(t, tool.ValidateInput(`not json`))
		assert.NoError(t, tool.ValidateInput(`{"skill_name": "x"}`))
	})
}

func TestListSkills(t *testing.T) {
	tmpDir := t.TempDir()
	writeSkill(t, tmpDir, "alpha", "Does alpha things. And more.", "Body.\n")
	writeSkill(t, tmpDir, "beta", "Does beta things", "Body.\n")
	tool := NewListSkillsTool(skills.NewLoader(tmpDir))

	result := tool.Execute(context.Background(), "")
	require.False(t, result.IsError())
	assert.Contains(t, result.Result, "Alpha")
	assert.Contains(t, result.Result, "Beta")
	assert.Contains(t, result.Result, "1.")
	assert.Contains(t, result.Result, "2.")
}

func TestDefaultBuildIncludesDynamicTools(t *testing.T) {
	tmpDir := t.TempDir()
	ctx := context.Background()
	loader := skills.NewLoader(tmpDir)
	store := NewStore(tmpDir)

	catalog := NewCatalog(ctx, DefaultBuild(loader, store))
	assert.ElementsMatch(t, []string{
		ReadSkillInstructionsToolName,
		ListSkillsToolName,
		ExtractTranscriptToolName,
		WebScrapeToolName,
	}, catalog.Names())

	added, err := store.Append(ctx, Definition{
		Name:        "pdf-summarizer-tool",
		Description: "Summarizes PDFs",
		Command:     []string{"python3", "summarize.py"},
	})
	require.NoError(t, err)
	require.True(t, added)

	// not visible until reload
	assert.False(t, catalog.Has("pdf-summarizer-tool"))
	catalog.Reload(ctx)
	assert.True(t, catalog.Has("pdf-summarizer-tool"))
}

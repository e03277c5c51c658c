package authoring

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillet/pkg/skills"
	"github.com/jingkaihe/skillet/pkg/tools"
	llmtypes "github.com/jingkaihe/skillet/pkg/types/llm"
	tooltypes "github.com/jingkaihe/skillet/pkg/types/tools"
)

type stubModel struct {
	responses []string
	err       error
	calls     int
}

func (m *stubModel) Complete(_ context.Context, _ string, _ []llmtypes.Message, _ []tooltypes.Tool) (llmtypes.Response, error) {
	m.calls++
	if m.err != nil {
		return llmtypes.Response{}, m.err
	}
	content := m.responses[len(m.responses)-1]
	if m.calls <= len(m.responses) {
		content = m.responses[m.calls-1]
	}
	return llmtypes.Response{
		Content: content,
		Usage:   llmtypes.Usage{InputTokens: 10, OutputTokens: 5},
	}, nil
}

const briefJSON = `{
  "skill_name": "pdf-summarizer",
  "one_liner": "Summarizes PDF documents",
  "what_it_does": "Extracts text from PDF files and produces a concise summary",
  "trigger_phrases": ["summarize this pdf", "pdf summary"],
  "input_type": "path or URL of a PDF",
  "output_type": "plain-text summary",
  "suggested_test_query": "Can you summarize this PDF for me?"
}`

const skillDoc = "```markdown\n---\nname: pdf-summarizer\ndescription: Summarizes PDF documents. Use when the user provides a PDF.\n---\n\n# PDF Summarizer\n\n## Workflow\nStep 1: extract text.\nStep 2: summarize.\n```"

const scriptCode = "```python\nimport json, sys\n\ndef run_pdf_summarizer(input_value):\n    return {\"success\": True, \"summary\": input_value}\n\nif __name__ == \"__main__\":\n    print(json.dumps(run_pdf_summarizer(sys.argv[-1])))\n```"

const routingVerdict = `{"needs_skill": true, "skill_name": "pdf-summarizer", "confidence": 0.9, "reasoning": "query asks for a PDF summary"}`

func newFixture(t *testing.T, model llmtypes.Model) (*Creator, *skills.Loader, *tools.Store, *tools.Catalog) {
	t.Helper()
	skillsDir := t.TempDir()
	loader := skills.NewLoader(skillsDir)
	store := tools.NewStore(t.TempDir())
	catalog := tools.NewCatalog(context.Background(), tools.DefaultBuild(loader, store))
	return NewCreator(model, loader, store, catalog), loader, store, catalog
}

func TestCreateSkillFullPipeline(t *testing.T) {
	ctx := context.Background()
	model := &stubModel{responses: []string{briefJSON, skillDoc, scriptCode, routingVerdict}}
	creator, loader, store, catalog := newFixture(t, model)

	result, err := creator.CreateSkill(ctx, "summarize PDF documents")
	require.NoError(t, err)

	assert.Equal(t, "pdf-summarizer", result.SkillName)
	assert.True(t, result.Registered)
	assert.True(t, result.RoutingSelfTestPassed)
	assert.Contains(t, result.RoutingReport, "pdf-summarizer")
	assert.NotContains(t, result.SkillDoc, "```")
	assert.NotContains(t, result.Script, "```")
	assert.Equal(t, 60, result.Usage.TotalTokens())

	// skill document on disk and loadable
	registry := loader.Load(ctx)
	instructions, ok := registry.Instructions("pdf-summarizer")
	require.True(t, ok)
	assert.Contains(t, instructions, "## Workflow")

	// script on disk
	script, err := os.ReadFile(filepath.Join(result.SkillDir, "scripts", "pdf_summarizer.py"))
	require.NoError(t, err)
	assert.Contains(t, string(script), "run_pdf_summarizer")

	// dynamic tool registered and live
	defs := store.Load(ctx)
	require.Len(t, defs, 1)
	assert.Equal(t, "pdf-summarizer-tool", defs[0].Name)
	assert.True(t, catalog.Has("pdf-summarizer-tool"))
}

func TestCreateSkillRecreateBacksUpAndStaysRegistered(t *testing.T) {
	ctx := context.Background()
	model := &stubModel{responses: []string{briefJSON, skillDoc, scriptCode, routingVerdict}}
	creator, _, store, _ := newFixture(t, model)

	first, err := creator.CreateSkill(ctx, "summarize PDF documents")
	require.NoError(t, err)

	model.calls = 0
	second, err := creator.CreateSkill(ctx, "summarize PDF documents")
	require.NoError(t, err)

	assert.True(t, second.Registered, "re-creating the same slug stays registered")
	assert.Len(t, store.Load(ctx), 1)

	_, err = os.Stat(first.SkillDir + "_backup")
	assert.NoError(t, err, "previous version is kept as a backup")
}

func TestCreateSkillBriefFallback(t *testing.T) {
	ctx := context.Background()
	model := &stubModel{responses: []string{"not json at all", skillDoc, scriptCode, routingVerdict}}
	creator, _, _, _ := newFixture(t, model)

	result, err := creator.CreateSkill(ctx, "Summarize PDF documents!")
	require.NoError(t, err)
	assert.Equal(t, "summarize-pdf-documents", result.SkillName)
}

func TestCreateSkillModelFailure(t *testing.T) {
	ctx := context.Background()
	model := &stubModel{err: errors.New("quota exceeded")}
	creator, _, _, _ := newFixture(t, model)

	_, err := creator.CreateSkill(ctx, "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to build skill brief")
}

func TestCreateSkillEmptyDescription(t *testing.T) {
	creator, _, _, _ := newFixture(t, &stubModel{})
	_, err := creator.CreateSkill(context.Background(), "   ")
	require.Error(t, err)
}

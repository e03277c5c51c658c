package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type texterContent struct {
	text string
}

func (t texterContent) TextContent() string { return t.text }

func TestTextPlainStringPassthrough(t *testing.T) {
	assert.Equal(t, "hello world", Text("hello world"))
	assert.Equal(t, "trimmed", Text("  trimmed \n"))
	assert.Equal(t, "", Text(nil))
}

func TestTextBlockSequence(t *testing.T) {
	content := []any{
		map[string]any{"type": "text", "text": "first part"},
		map[string]any{"type": "signature", "data": "aGVsbG8="},
		map[string]any{"type": "text", "text": "second part"},
	}

	got := Text(content)
	assert.Equal(t, "first part\nsecond part", got)
	assert.NotContains(t, got, "aGVsbG8=")
}

func TestTextBlockWithoutTypeTag(t *testing.T) {
	content := []any{
		map[string]any{"text": "untagged block"},
		"bare string block",
	}
	assert.Equal(t, "untagged block\nbare string block", Text(content))
}

func TestTextStringifiedBlockList(t *testing.T) {
	raw := `[{"type":"text","text":"recovered"},{"type":"blob","data":"xx"}]`
	assert.Equal(t, "recovered", Text(raw))
}

func TestTextTexter(t *testing.T) {
	assert.Equal(t, "from accessor", Text(texterContent{text: " from accessor "}))
}

func TestTextSingleBlockMap(t *testing.T) {
	assert.Equal(t, "just text", Text(map[string]any{"type": "text", "text": "just text"}))
}

func TestTextUnrecognizedShapeDegrades(t *testing.T) {
	type opaque struct {
		A int
		B string
	}

	got := Text(opaque{A: 1, B: "x"})
	assert.NotContains(t, got, "{")
	assert.NotContains(t, got, "}")
}

func TestTextTruncatesExtras(t *testing.T) {
	raw := "the useful answer', 'extras': {'signature': 'deadbeef'}"
	got := Text(raw)
	assert.Contains(t, got, "the useful answer")
	assert.NotContains(t, got, "deadbeef")
}

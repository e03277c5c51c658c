// Package normalize extracts plain human-readable text from the
// heterogeneous content shapes a decision model may return: a plain string,
// an ordered sequence of typed content blocks, or an opaque value exposing a
// text accessor. Providers are not contractually stable about which shape
// they use, so every model response passes through here before it reaches a
// human or the conversation history.
package normalize

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Texter is implemented by content values that carry their own plain-text
// representation.
type Texter interface {
	TextContent() string
}

// markers that precede non-text payloads (signatures, base64 blobs) appended
// by some providers to a stringified response
var extrasMarkers = []string{
	"', 'extras':",
	", 'extras':",
	"\"extras\":",
	"extras=",
}

// Text extracts only the human-readable text from content. It never returns
// a raw brace- or bracket-delimited dump when any text-bearing sub-part can
// be found; with no text at all it degrades to a best-effort string with
// trailing metadata truncated away.
func Text(content any) string {
	switch c := content.(type) {
	case nil:
		return ""
	case string:
		return normalizeString(c)
	case []any:
		return joinBlocks(c)
	case []map[string]any:
		blocks := make([]any, len(c))
		for i, b := range c {
			blocks[i] = b
		}
		return joinBlocks(blocks)
	case map[string]any:
		if text := textFromBlock(c); text != "" {
			return strings.TrimSpace(text)
		}
		return fallback(c)
	case Texter:
		return strings.TrimSpace(c.TextContent())
	default:
		return fallback(c)
	}
}

func normalizeString(s string) string {
	text := strings.TrimSpace(s)

	// A stringified block list is still structural; try to recover the text parts.
	if strings.HasPrefix(text, "[{") {
		var blocks []any
		if err := json.Unmarshal([]byte(text), &blocks); err == nil {
			if joined := joinBlocks(blocks); joined != "" {
				return joined
			}
		}
	}
	for _, marker := range extrasMarkers {
		if idx := strings.Index(text, marker); idx >= 0 {
			text = strings.TrimSpace(text[:idx])
		}
	}
	return text
}

func joinBlocks(blocks []any) string {
	var parts []string
	for _, block := range blocks {
		switch b := block.(type) {
		case string:
			parts = append(parts, b)
		case map[string]any:
			if text := textFromBlock(b); text != "" {
				parts = append(parts, text)
			}
		case Texter:
			parts = append(parts, b.TextContent())
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// textFromBlock pulls the text out of one typed content block. Non-text
// blocks (tool-use payloads, binary blobs, signatures) yield nothing.
func textFromBlock(block map[string]any) string {
	if blockType, ok := block["type"].(string); ok && blockType != "" && blockType != "text" {
		return ""
	}
	if text, ok := block["text"].(string); ok {
		return text
	}
	if content, ok := block["content"].(string); ok {
		return content
	}
	return ""
}

func fallback(content any) string {
	raw := fmt.Sprintf("%v", content)
	for _, marker := range extrasMarkers {
		if idx := strings.Index(raw, marker); idx >= 0 {
			raw = raw[:idx]
		}
	}
	return strings.TrimSpace(strings.Trim(raw, "[]{}'"))
}

package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Example Article</title></head>
<body>
  <h1>Main Heading</h1>
  <article>
    <h2>Section One</h2>
    <p>First paragraph of the article.</p>
    <p>Second paragraph with details.</p>
  </article>
</body>
</html>`

func TestWebScrapeExecute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(samplePage))
	}))
	defer server.Close()

	tool := NewWebScrapeToolWithClient(server.Client())

	t.Run("extracts title headers and text", func(t *testing.T) {
		result := tool.Execute(context.Background(), `{"url": "`+server.URL+`/article"}`)
		require.False(t, result.IsError())

		payload := gjson.Parse(result.Result)
		assert.True(t, payload.Get("success").Bool())
		assert.Equal(t, "Example Article", payload.Get("title").String())
		assert.Contains(t, payload.Get("headers").String(), "Main Heading")
		assert.Contains(t, payload.Get("headers").String(), "Section One")
		assert.Contains(t, payload.Get("text").String(), "First paragraph of the article.")
		// article paragraphs are matched by two selectors but reported once
		assert.Equal(t, 1, countOccurrences(payload.Get("text").String(), "First paragraph of the article."))
	})

	t.Run("non-200 status", func(t *testing.T) {
		result := tool.Execute(context.Background(), `{"url": "`+server.URL+`/missing"}`)
		require.False(t, result.IsError())

		payload := gjson.Parse(result.Result)
		assert.False(t, payload.Get("success").Bool())
		assert.Contains(t, payload.Get("error").String(), "404")
	})
}

func countOccurrences(haystack, needle string) int {
	count := 0
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			count++
		}
	}
	return count
}

func TestWebScrapeValidation(t *testing.T) {
	tool := NewWebScrapeTool()
	assert.Error(t, tool.ValidateInput(`{}`))
	assert.Error(t, tool.ValidateInput(`{"url": "ftp://example.com"}`))
	assert.NoError(t, tool.ValidateInput(`{"url": "https://example.com"}`))
}

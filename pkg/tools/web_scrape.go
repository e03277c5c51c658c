package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	tooltypes "github.com/jingkaihe/skillet/pkg/types/tools"
)

// WebScrapeToolName is the registered name of the page-scraping tool
const WebScrapeToolName = "web_scrape"

const maxScrapedChars = 10000

// WebScrapeTool fetches a web page and extracts its title, headers and main
// text content.
type WebScrapeTool struct {
	client *http.Client
}

// WebScrapeInput is the tool's input schema
type WebScrapeInput struct {
	URL string `json:"url" jsonschema:"description=Full http or https URL of the page to scrape"`
}

// ScrapeResult is the JSON shape returned to the decision model
type ScrapeResult struct {
	Success   bool     `json:"success"`
	URL       string   `json:"url"`
	Title     string   `json:"title,omitempty"`
	Headers   []string `json:"headers,omitempty"`
	Text      string   `json:"text,omitempty"`
	Truncated bool     `json:"truncated,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// NewWebScrapeTool creates the tool with a default HTTP client
func NewWebScrapeTool() *WebScrapeTool {
	return &WebScrapeTool{client: &http.Client{Timeout: 30 * time.Second}}
}

// NewWebScrapeToolWithClient creates the tool with a custom client, used by tests
func NewWebScrapeToolWithClient(client *http.Client) *WebScrapeTool {
	return &WebScrapeTool{client: client}
}

// Name returns the tool name
func (t *WebScrapeTool) Name() string {
	return WebScrapeToolName
}

// Description returns the tool description
func (t *WebScrapeTool) Description() string {
	return "Fetch a web page and extract its title, headers and main text content. Use when the user wants the content of a specific URL."
}

// GenerateSchema generates the JSON schema for the tool's input
func (t *WebScrapeTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[WebScrapeInput]()
}

// ValidateInput validates the input parameters
func (t *WebScrapeTool) ValidateInput(arguments string) error {
	var input WebScrapeInput
	if err := json.Unmarshal([]byte(arguments), &input); err != nil {
		return errors.Wrap(err, "invalid input")
	}
	if input.URL == "" {
		return errors.New("url is required")
	}
	parsed, err := url.Parse(input.URL)
	if err != nil {
		return errors.Wrap(err, "invalid url")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.Errorf("unsupported URL scheme: %s", parsed.Scheme)
	}
	return nil
}

// Execute fetches and parses the page
func (t *WebScrapeTool) Execute(ctx context.Context, arguments string) tooltypes.ToolResult {
	var input WebScrapeInput
	if err := json.Unmarshal([]byte(arguments), &input); err != nil {
		return tooltypes.ErrorResult("invalid input: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, input.URL, nil)
	if err != nil {
		return tooltypes.ErrorResult("failed to build request: %v", err)
	}
	req.Header.Set("User-Agent", "skillet/1.0")

	resp, err := t.client.Do(req)
	if err != nil {
		return tooltypes.ErrorResult("fetch failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return marshalScrapeResult(ScrapeResult{
			URL:   input.URL,
			Error: errors.Errorf("page returned status %d", resp.StatusCode).Error(),
		})
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return tooltypes.ErrorResult("failed to parse HTML: %v", err)
	}

	result := ScrapeResult{
		Success: true,
		URL:     input.URL,
		Title:   strings.TrimSpace(doc.Find("title").First().Text()),
	}

	doc.Find("h1, h2, h3").Each(func(_ int, sel *goquery.Selection) {
		if header := strings.TrimSpace(sel.Text()); header != "" {
			result.Headers = append(result.Headers, header)
		}
	})

	var paragraphs []string
	doc.Find("article p, main p, p").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	result.Text = strings.Join(dedupeStrings(paragraphs), "\n\n")
	if len(result.Text) > maxScrapedChars {
		result.Text = truncateOnRuneBoundary(result.Text, maxScrapedChars) + "\n\n[... truncated ...]"
		result.Truncated = true
	}

	return marshalScrapeResult(result)
}

func dedupeStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0]
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func marshalScrapeResult(result ScrapeResult) tooltypes.ToolResult {
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return tooltypes.ErrorResult("failed to encode scrape result: %v", err)
	}
	return tooltypes.ToolResult{Result: string(payload)}
}

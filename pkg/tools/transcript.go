package tools

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	tooltypes "github.com/jingkaihe/skillet/pkg/types/tools"
)

// ExtractTranscriptToolName is the registered name of the transcript tool
const ExtractTranscriptToolName = "extract_transcript"

const (
	defaultTimedTextEndpoint = "https://video.google.com/timedtext"
	maxTranscriptChars       = 12000
)

var (
	bareVideoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	videoURLPatterns   = []*regexp.Regexp{
		regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/|youtube\.com/shorts/)([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`youtube\.com/watch\?.*v=([A-Za-z0-9_-]{11})`),
	}
)

// ExtractTranscriptTool fetches the caption track of a YouTube video through
// the timedtext endpoint and returns it as a JSON payload.
type ExtractTranscriptTool struct {
	endpoint string
	client   *http.Client
}

// ExtractTranscriptInput is the tool's input schema
type ExtractTranscriptInput struct {
	VideoURLOrID string `json:"video_url_or_id" jsonschema:"description=Full YouTube URL or 11-character video ID"`
	Languages    string `json:"languages,omitempty" jsonschema:"description=Comma-separated language codes to try in order e.g. 'en,es,fr'"`
}

// TranscriptResult is the JSON shape returned to the decision model
type TranscriptResult struct {
	Success    bool   `json:"success"`
	VideoID    string `json:"video_id"`
	Language   string `json:"language,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Segments   int    `json:"segments,omitempty"`
	Truncated  bool   `json:"truncated,omitempty"`
	Error      string `json:"error,omitempty"`
}

type timedTextDocument struct {
	Texts []timedTextSegment `xml:"text"`
}

type timedTextSegment struct {
	Start string `xml:"start,attr"`
	Body  string `xml:",chardata"`
}

// NewExtractTranscriptTool creates the tool with the public endpoint
func NewExtractTranscriptTool() *ExtractTranscriptTool {
	return &ExtractTranscriptTool{
		endpoint: defaultTimedTextEndpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// NewExtractTranscriptToolWithEndpoint creates the tool against a custom
// timedtext endpoint, used by tests.
func NewExtractTranscriptToolWithEndpoint(endpoint string, client *http.Client) *ExtractTranscriptTool {
	return &ExtractTranscriptTool{endpoint: endpoint, client: client}
}

// Name returns the tool name
func (t *ExtractTranscriptTool) Name() string {
	return ExtractTranscriptToolName
}

// Description returns the tool description
func (t *ExtractTranscriptTool) Description() string {
	return "Extract the transcript from a YouTube video. Use when the user provides a YouTube URL or video ID and wants the transcript, a summary, or any content derived from the video."
}

// GenerateSchema generates the JSON schema for the tool's input
func (t *ExtractTranscriptTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[ExtractTranscriptInput]()
}

// ValidateInput validates the input parameters
func (t *ExtractTranscriptTool) ValidateInput(arguments string) error {
	var input ExtractTranscriptInput
	if err := json.Unmarshal([]byte(arguments), &input); err != nil {
		return errors.Wrap(err, "invalid input")
	}
	if input.VideoURLOrID == "" {
		return errors.New("video_url_or_id is required")
	}
	return nil
}

// Execute fetches the transcript. External failures come back inside the
// JSON payload so the model can explain them, not as run-fatal errors.
func (t *ExtractTranscriptTool) Execute(ctx context.Context, arguments string) tooltypes.ToolResult {
	var input ExtractTranscriptInput
	if err := json.Unmarshal([]byte(arguments), &input); err != nil {
		return tooltypes.ErrorResult("invalid input: %v", err)
	}

	videoID := ExtractVideoID(input.VideoURLOrID)
	if videoID == "" {
		return marshalTranscriptResult(TranscriptResult{
			Error: "could not extract video ID from: " + input.VideoURLOrID,
		})
	}

	languages := []string{"en"}
	if input.Languages != "" {
		languages = languages[:0]
		for _, lang := range strings.Split(input.Languages, ",") {
			if lang = strings.TrimSpace(lang); lang != "" {
				languages = append(languages, lang)
			}
		}
	}

	for _, lang := range languages {
		transcript, segments, err := t.fetchTrack(ctx, videoID, lang)
		if err != nil {
			return tooltypes.ErrorResult("transcript fetch failed: %v", err)
		}
		if transcript == "" {
			continue
		}

		result := TranscriptResult{
			Success:    true,
			VideoID:    videoID,
			Language:   lang,
			Transcript: transcript,
			Segments:   segments,
		}
		if len(result.Transcript) > maxTranscriptChars {
			result.Transcript = truncateOnRuneBoundary(result.Transcript, maxTranscriptChars) + "\n\n[... truncated ...]"
			result.Truncated = true
		}
		return marshalTranscriptResult(result)
	}

	return marshalTranscriptResult(TranscriptResult{
		VideoID: videoID,
		Error:   "no transcript available for languages: " + strings.Join(languages, ", "),
	})
}

func (t *ExtractTranscriptTool) fetchTrack(ctx context.Context, videoID, lang string) (string, int, error) {
	endpoint := t.endpoint + "?" + url.Values{"lang": {lang}, "v": {videoID}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", 0, errors.Wrap(err, "failed to build request")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", 0, errors.Wrap(err, "timedtext request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, errors.Errorf("timedtext returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", 0, errors.Wrap(err, "failed to read timedtext body")
	}
	if len(body) == 0 {
		// the endpoint answers 200 with an empty body when no track exists
		return "", 0, nil
	}

	var doc timedTextDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return "", 0, errors.Wrap(err, "failed to parse timedtext XML")
	}

	var parts []string
	for _, segment := range doc.Texts {
		text := strings.TrimSpace(html.UnescapeString(segment.Body))
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), len(doc.Texts), nil
}

// ExtractVideoID pulls the 11-character video ID out of the common YouTube
// URL shapes, or returns the input when it already is a bare ID.
func ExtractVideoID(urlOrID string) string {
	if bareVideoIDPattern.MatchString(urlOrID) {
		return urlOrID
	}
	for _, pattern := range videoURLPatterns {
		if m := pattern.FindStringSubmatch(urlOrID); m != nil {
			return m[1]
		}
	}
	return ""
}

// truncateOnRuneBoundary cuts s to at most max bytes without splitting a
// UTF-8 sequence.
func truncateOnRuneBoundary(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func marshalTranscriptResult(result TranscriptResult) tooltypes.ToolResult {
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return tooltypes.ErrorResult("failed to encode transcript result: %v", err)
	}
	return tooltypes.ToolResult{Result: string(payload)}
}

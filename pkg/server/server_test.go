package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillet/pkg/agent"
	"github.com/jingkaihe/skillet/pkg/authoring"
	"github.com/jingkaihe/skillet/pkg/skills"
	llmtypes "github.com/jingkaihe/skillet/pkg/types/llm"
)

type stubRunner struct {
	result  agent.Result
	err     error
	reloads int
}

func (r *stubRunner) RunQuery(context.Context, string) (agent.Result, error) {
	return r.result, r.err
}

func (r *stubRunner) ReloadTools(context.Context) {
	r.reloads++
}

type stubCreator struct {
	result *authoring.Result
	err    error
}

func (c *stubCreator) CreateSkill(context.Context, string) (*authoring.Result, error) {
	return c.result, c.err
}

func newTestServer(t *testing.T, runner *stubRunner, creator *stubCreator) *Server {
	t.Helper()
	skillsDir := t.TempDir()
	dir := filepath.Join(skillsDir, "youtube-transcript")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	doc := "---\nname: youtube-transcript\ndescription: Extract transcripts\n---\n\nBody.\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(doc), 0o644))
	return New(runner, creator, skills.NewLoader(skillsDir))
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t, &stubRunner{}, &stubCreator{})

	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"status":"ok"`)
}

func TestQueryEndpoint(t *testing.T) {
	runner := &stubRunner{result: agent.Result{
		Response:      "done",
		SelectedSkill: "youtube-transcript",
		ToolsCalled:   []string{"extract_transcript"},
	}}
	server := newTestServer(t, runner, &stubCreator{})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"query": "transcribe this video"}`))
	server.Handler().ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)

	var result agent.Result
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &result))
	assert.Equal(t, "done", result.Response)
	assert.Equal(t, "youtube-transcript", result.SelectedSkill)
}

func TestQueryEndpointValidation(t *testing.T) {
	server := newTestServer(t, &stubRunner{}, &stubCreator{})

	for _, body := range []string{``, `{}`, `{"query": ""}`, `not json`} {
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body))
		server.Handler().ServeHTTP(recorder, request)
		assert.Equal(t, http.StatusBadRequest, recorder.Code, "body: %q", body)
	}
}

func TestQueryEndpointErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"credentials", errors.Wrap(llmtypes.ErrNoCredentials, "anthropic"), http.StatusServiceUnavailable, "credentials"},
		{"turn limit", errors.Wrap(agent.ErrTurnLimit, "no final answer after 8 turns"), http.StatusUnprocessableEntity, "turn_limit"},
		{"upstream", errors.New("connection reset"), http.StatusBadGateway, "upstream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(t, &stubRunner{err: tt.err}, &stubCreator{})

			recorder := httptest.NewRecorder()
			request := httptest.NewRequest(http.MethodPost, "/api/query",
				strings.NewReader(`{"query": "q"}`))
			server.Handler().ServeHTTP(recorder, request)

			assert.Equal(t, tt.status, recorder.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
			assert.Equal(t, tt.kind, resp.Kind)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestListSkillsEndpoint(t *testing.T) {
	server := newTestServer(t, &stubRunner{}, &stubCreator{})

	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/skills", nil))

	require.Equal(t, http.StatusOK, recorder.Code)

	var summaries []skillSummary
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "youtube-transcript", summaries[0].Name)
	assert.Equal(t, "Extract transcripts", summaries[0].Description)
}

func TestCreateSkillEndpoint(t *testing.T) {
	creator := &stubCreator{result: &authoring.Result{
		SkillName:             "pdf-summarizer",
		Registered:            true,
		RoutingSelfTestPassed: true,
	}}
	server := newTestServer(t, &stubRunner{}, creator)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/api/skills",
		strings.NewReader(`{"description": "summarize PDFs"}`))
	server.Handler().ServeHTTP(recorder, request)

	require.Equal(t, http.StatusCreated, recorder.Code)

	var result authoring.Result
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &result))
	assert.Equal(t, "pdf-summarizer", result.SkillName)
	assert.True(t, result.Registered)
}

func TestReloadToolsEndpoint(t *testing.T) {
	runner := &stubRunner{}
	server := newTestServer(t, runner, &stubCreator{})

	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/tools/reload", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, 1, runner.reloads)
}

func TestMethodNotAllowed(t *testing.T) {
	server := newTestServer(t, &stubRunner{}, &stubCreator{})

	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodDelete, "/api/query", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, recorder.Code)
}

// Package server exposes the agent over a small JSON HTTP API
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillet/pkg/agent"
	"github.com/jingkaihe/skillet/pkg/authoring"
	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/skills"
	llmtypes "github.com/jingkaihe/skillet/pkg/types/llm"
	"github.com/jingkaihe/skillet/pkg/version"
)

// QueryRunner is the slice of the agent the server needs
type QueryRunner interface {
	RunQuery(ctx context.Context, query string) (agent.Result, error)
	ReloadTools(ctx context.Context)
}

// SkillCreator is the slice of the authoring pipeline the server needs
type SkillCreator interface {
	CreateSkill(ctx context.Context, description string) (*authoring.Result, error)
}

// Server handles the HTTP API
type Server struct {
	runner  QueryRunner
	creator SkillCreator
	loader  *skills.Loader
	router  *mux.Router
}

type queryRequest struct {
	Query string `json:"query"`
}

type createSkillRequest struct {
	Description string `json:"description"`
}

type skillSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// New creates the server and registers its routes
func New(runner QueryRunner, creator SkillCreator, loader *skills.Loader) *Server {
	s := &Server{
		runner:  runner,
		creator: creator,
		loader:  loader,
		router:  mux.NewRouter(),
	}

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/query", s.handleQuery).Methods(http.MethodPost)
	s.router.HandleFunc("/api/skills", s.handleListSkills).Methods(http.MethodGet)
	s.router.HandleFunc("/api/skills", s.handleCreateSkill).Methods(http.MethodPost)
	s.router.HandleFunc("/api/tools/reload", s.handleReloadTools).Methods(http.MethodPost)
	return s
}

// Handler returns the route handler, used directly by tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe runs the server until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // agent runs can be slow
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logger.G(ctx).WithField("addr", addr).Info("starting API server")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server failed")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Get().Version,
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "a non-empty query field is required", Kind: "bad_request"})
		return
	}

	result, err := s.runner.RunQuery(r.Context(), req.Query)
	if err != nil {
		logger.G(r.Context()).WithError(err).Error("query run failed")
		switch {
		case llmtypes.IsCredentialError(err):
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error(), Kind: "credentials"})
		case errors.Is(err, agent.ErrTurnLimit):
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Kind: "turn_limit"})
		default:
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error(), Kind: "upstream"})
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListSkills(w http.ResponseWriter, r *http.Request) {
	registry := s.loader.Load(r.Context())
	summaries := make([]skillSummary, 0, registry.Len())
	for _, skill := range registry.All() {
		summaries = append(summaries, skillSummary{Name: skill.Name, Description: skill.Description})
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleCreateSkill(w http.ResponseWriter, r *http.Request) {
	var req createSkillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Description == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "a non-empty description field is required", Kind: "bad_request"})
		return
	}

	result, err := s.creator.CreateSkill(r.Context(), req.Description)
	if err != nil {
		logger.G(r.Context()).WithError(err).Error("skill creation failed")
		if llmtypes.IsCredentialError(err) {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error(), Kind: "credentials"})
			return
		}
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error(), Kind: "upstream"})
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleReloadTools(w http.ResponseWriter, r *http.Request) {
	s.runner.ReloadTools(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

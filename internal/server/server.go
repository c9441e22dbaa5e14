package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/graph"
	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
	errx "github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/core/error"
	logx "github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Agent is the workflow surface exposed over HTTP.
type Agent interface {
	Run(ctx context.Context, threadID, message string, catalog *model.Catalog, opts ...graph.RunOption) (*graph.TurnResult, error)
	Resume(ctx context.Context, threadID string, opts ...graph.RunOption) (*graph.TurnResult, error)
	State(ctx context.Context, threadID string) (*model.SessionState, error)
	History(ctx context.Context, threadID string) ([]model.CheckpointRecord, error)
	Reset(ctx context.Context, threadID string) error
}

type Server struct {
	agent   Agent
	catalog *model.Catalog
}

// NewHandler builds the router. catalog is used for turns that do not carry
// their own; gatherer may be nil to disable /metrics.
func NewHandler(agent Agent, catalog *model.Catalog, gatherer prometheus.Gatherer) http.Handler {
	s := &Server{agent: agent, catalog: catalog}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1/threads/{threadID}", func(r chi.Router) {
		r.Get("/", s.getThread)
		r.Delete("/", s.deleteThread)
		r.Post("/turns", s.postTurn)
		r.Post("/resume", s.postResume)
		r.Get("/checkpoints", s.getCheckpoints)
	})
	return r
}

type turnRequest struct {
	Message string         `json:"message"`
	Catalog *model.Catalog `json:"catalog,omitempty"`
}

func (s *Server) postTurn(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")

	var body turnRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, errx.Validation("invalid request body: %v", err))
		return
	}
	catalog := body.Catalog
	if catalog == nil {
		catalog = s.catalog
	}

	run := func(ctx context.Context, opts ...graph.RunOption) (*graph.TurnResult, error) {
		return s.agent.Run(ctx, threadID, body.Message, catalog, opts...)
	}
	if wantsStream(r) {
		s.stream(w, r, run)
		return
	}
	res, err := run(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) postResume(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")
	run := func(ctx context.Context, opts ...graph.RunOption) (*graph.TurnResult, error) {
		return s.agent.Resume(ctx, threadID, opts...)
	}
	if wantsStream(r) {
		s.stream(w, r, run)
		return
	}
	res, err := run(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// threadView is the public summary of a thread checkpoint.
type threadView struct {
	ThreadID         string             `json:"thread_id"`
	TurnID           string             `json:"turn_id,omitempty"`
	Stage            model.Stage        `json:"stage"`
	CurrentStep      model.Step         `json:"current_step,omitempty"`
	InFlight         bool               `json:"in_flight"`
	IterationCount   int                `json:"iteration_count"`
	MaxIterations    int                `json:"max_iterations"`
	OriginalQuestion string             `json:"original_question,omitempty"`
	FinalAnswer      string             `json:"final_answer,omitempty"`
	SourcesDetailed  []model.Provenance `json:"sources_detailed"`
	Messages         []messageView      `json:"messages"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

type messageView struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (s *Server) getThread(w http.ResponseWriter, r *http.Request) {
	st, err := s.agent.State(r.Context(), chi.URLParam(r, "threadID"))
	if err != nil {
		writeError(w, err)
		return
	}
	view := threadView{
		ThreadID:         st.ThreadID,
		TurnID:           st.TurnID,
		Stage:            st.Stage,
		CurrentStep:      st.CurrentStep,
		InFlight:         st.InFlight(),
		IterationCount:   st.IterationCount,
		MaxIterations:    st.MaxIterations,
		OriginalQuestion: st.OriginalQuestion,
		FinalAnswer:      st.FinalAnswer,
		SourcesDetailed:  st.SourcesDetailed,
		Messages:         make([]messageView, 0, len(st.ConversationHistory)),
		UpdatedAt:        st.UpdatedAt,
	}
	for _, m := range st.ConversationHistory {
		if m != nil {
			view.Messages = append(view.Messages, messageView{Role: string(m.Role), Content: m.Content})
		}
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) getCheckpoints(w http.ResponseWriter, r *http.Request) {
	records, err := s.agent.History(r.Context(), chi.URLParam(r, "threadID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []model.CheckpointRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"checkpoints": records})
}

func (s *Server) deleteThread(w http.ResponseWriter, r *http.Request) {
	if err := s.agent.Reset(r.Context(), chi.URLParam(r, "threadID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- helpers ---

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	status := errx.StatusOf(err)
	if status >= http.StatusInternalServerError {
		logx.Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, errorBody{Error: errx.MessageOf(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Warn().Err(err).Msg("response encode failed")
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logx.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}

package graph

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/graph/nodes"
	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/graph/observers"
	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
	errx "github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/core/error"
	logx "github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/pkg/logger"
)

const (
	tracerName     = "github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/graph"
	maxQuestionLen = 4000
)

// Stages binds one node to each working stage of the FSM.
type Stages struct {
	Planner     nodes.Node
	Executor    nodes.Node
	Evaluator   nodes.Node
	Synthesizer nodes.Node
}

func (s Stages) node(stage model.Stage) nodes.Node {
	switch stage {
	case model.StagePlanning:
		return s.Planner
	case model.StageExecuting:
		return s.Executor
	case model.StageEvaluating:
		return s.Evaluator
	case model.StageSynthesizing:
		return s.Synthesizer
	}
	return nil
}

type EngineConfig struct {
	Store  model.CheckpointStore
	Locker model.ThreadLocker
	Stages Stages

	MaxIterations int
	// TransitionBudget caps transitions per call; 0 derives it from MaxIterations.
	TransitionBudget int

	Metrics *observers.Metrics
	Tracer  trace.Tracer
}

// Engine drives turns through the planning loop and checkpoints the session
// state after every stage.
type Engine struct {
	store            model.CheckpointStore
	locker           model.ThreadLocker
	stages           Stages
	maxIterations    int
	transitionBudget int
	metrics          *observers.Metrics
	tracer           trace.Tracer

	newTurnID func() string
	now       func() time.Time
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("checkpoint store is nil")
	}
	if cfg.Locker == nil {
		return nil, fmt.Errorf("thread locker is nil")
	}
	for _, st := range []model.Stage{model.StagePlanning, model.StageExecuting, model.StageEvaluating, model.StageSynthesizing} {
		if cfg.Stages.node(st) == nil {
			return nil, fmt.Errorf("no node for stage %s", st)
		}
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = model.DefaultMaxIterations
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(tracerName)
	}
	return &Engine{
		store:            cfg.Store,
		locker:           cfg.Locker,
		stages:           cfg.Stages,
		maxIterations:    cfg.MaxIterations,
		transitionBudget: cfg.TransitionBudget,
		metrics:          cfg.Metrics,
		tracer:           cfg.Tracer,
		newTurnID:        func() string { return uuid.NewString() },
		now:              func() time.Time { return time.Now().UTC() },
	}, nil
}

// TurnResult is what a caller receives for a completed turn.
type TurnResult struct {
	ThreadID    string             `json:"thread_id"`
	TurnID      string             `json:"turn_id"`
	Answer      string             `json:"answer"`
	Sources     []model.Provenance `json:"sources"`
	SourcesUsed []model.ToolName   `json:"sources_used"`
	Iterations  int                `json:"iterations"`
	Steps       []model.Step       `json:"steps"`
	CostUSD     float64            `json:"cost_usd"`
	Resumed     bool               `json:"resumed"`
}

type runOptions struct {
	progress model.ProgressFunc
}

type RunOption func(*runOptions)

// WithProgress registers a listener for the progress events of the call.
func WithProgress(fn model.ProgressFunc) RunOption {
	return func(o *runOptions) { o.progress = fn }
}

// Run submits a user message on a thread and drives the turn to completion.
// When the thread holds an unfinished turn for the same message, that turn
// is resumed from its last checkpoint instead of being restarted.
func (e *Engine) Run(ctx context.Context, threadID, message string, catalog *model.Catalog, opts ...RunOption) (*TurnResult, error) {
	threadID = strings.TrimSpace(threadID)
	message = strings.TrimSpace(message)
	if err := validateRequest(threadID, message, catalog); err != nil {
		return nil, err
	}

	unlock, err := e.locker.Lock(ctx, threadID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	state, err := e.store.Load(ctx, threadID)
	switch {
	case errors.Is(err, errx.ErrThreadNotFound):
		state = model.NewSessionState(threadID, e.maxIterations)
	case err != nil:
		return nil, err
	}

	resumed := state.InFlight() && state.OriginalQuestion == message
	if resumed {
		state.Catalog = catalog
		logx.Info().
			Str("thread_id", threadID).
			Str("turn_id", state.TurnID).
			Str("stage", state.Stage.String()).
			Msg("resuming unfinished turn")
	} else {
		if state.InFlight() {
			logx.Warn().
				Str("thread_id", threadID).
				Str("turn_id", state.TurnID).
				Msg("abandoning unfinished turn for a new question")
		}
		state.MaxIterations = e.maxIterations
		state.BeginTurn(e.newTurnID(), message, catalog)
		if err := e.checkpoint(ctx, state); err != nil {
			return nil, err
		}
	}
	return e.execute(ctx, state, resumed, opts)
}

// Resume continues the unfinished turn of a thread.
func (e *Engine) Resume(ctx context.Context, threadID string, opts ...RunOption) (*TurnResult, error) {
	threadID = strings.TrimSpace(threadID)
	if threadID == "" {
		return nil, errx.Validation("thread id is required")
	}
	unlock, err := e.locker.Lock(ctx, threadID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	state, err := e.store.Load(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if !state.InFlight() {
		return nil, errx.New(errx.ErrNoPendingTurn, http.StatusConflict, "thread has no unfinished turn")
	}
	return e.execute(ctx, state, true, opts)
}

// State returns the last checkpoint of a thread.
func (e *Engine) State(ctx context.Context, threadID string) (*model.SessionState, error) {
	return e.store.Load(ctx, threadID)
}

// History returns the stage journal of a thread.
func (e *Engine) History(ctx context.Context, threadID string) ([]model.CheckpointRecord, error) {
	return e.store.History(ctx, threadID)
}

// Reset forgets a thread.
func (e *Engine) Reset(ctx context.Context, threadID string) error {
	unlock, err := e.locker.Lock(ctx, threadID)
	if err != nil {
		return err
	}
	defer unlock()
	return e.store.Delete(ctx, threadID)
}

func (e *Engine) execute(ctx context.Context, state *model.SessionState, resumed bool, opts []RunOption) (*TurnResult, error) {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}

	ctx, span := e.tracer.Start(ctx, "turn", trace.WithAttributes(
		attribute.String("thread_id", state.ThreadID),
		attribute.String("turn_id", state.TurnID),
		attribute.Bool("resumed", resumed),
	))
	defer span.End()

	var steps []model.Step
	ctx = observers.WithProgress(ctx, func(ev model.ProgressEvent) {
		steps = append(steps, ev.Step)
		if o.progress != nil {
			o.progress(ev)
		}
	})

	start := time.Now()
	err := e.drive(ctx, state)
	e.metrics.ObserveTurn(state.IterationCount, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logx.Error().Err(err).
			Str("thread_id", state.ThreadID).
			Str("turn_id", state.TurnID).
			Str("stage", state.Stage.String()).
			Msg("turn failed")
		return nil, err
	}

	logx.Info().
		Str("thread_id", state.ThreadID).
		Str("turn_id", state.TurnID).
		Int("iterations", state.IterationCount).
		Int("sources", len(state.SourcesDetailed)).
		Float64("cost_usd", state.TotalCostUSD).
		Dur("elapsed", time.Since(start)).
		Msg("turn completed")

	sources := make([]model.Provenance, len(state.SourcesDetailed))
	copy(sources, state.SourcesDetailed)
	used := make([]model.ToolName, len(state.SourcesUsed))
	copy(used, state.SourcesUsed)
	return &TurnResult{
		ThreadID:    state.ThreadID,
		TurnID:      state.TurnID,
		Answer:      state.FinalAnswer,
		Sources:     sources,
		SourcesUsed: used,
		Iterations:  state.IterationCount,
		Steps:       steps,
		CostUSD:     state.TotalCostUSD,
		Resumed:     resumed,
	}, nil
}

// drive runs stages until Done. The in-memory state is only persisted after
// a stage succeeds, so a failure leaves the last completed stage durable.
func (e *Engine) drive(ctx context.Context, s *model.SessionState) error {
	budget := e.transitionBudget
	if budget <= 0 {
		budget = TransitionBudget(s.MaxIterations)
	}

	for transitions := 0; s.Stage != model.StageDone; transitions++ {
		if transitions >= budget {
			return errx.New(fmt.Errorf("%w: %d transitions", errx.ErrTransitionBudget, budget), http.StatusInternalServerError, errx.SystemErrorMessage)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		stage := s.Stage
		if err := s.Validate(stage); err != nil {
			return errx.New(fmt.Errorf("before %s: %w", stage, err), http.StatusInternalServerError, errx.InvalidStateMessage)
		}

		if err := e.runStage(ctx, stage, s); err != nil {
			return err
		}

		next, err := Transition(stage, s.EvaluatorDecision, s.IterationCount, s.MaxIterations)
		if err != nil {
			return errx.New(err, http.StatusInternalServerError, errx.InvalidStateMessage)
		}
		s.Stage = next
		if err := e.checkpoint(ctx, s); err != nil {
			return err
		}

		observers.ReportProgress(ctx, model.ProgressEvent{
			ThreadID:  s.ThreadID,
			TurnID:    s.TurnID,
			Stage:     next,
			Step:      s.CurrentStep,
			Iteration: s.IterationCount,
			At:        e.now(),
		})
	}
	return nil
}

func (e *Engine) runStage(ctx context.Context, stage model.Stage, s *model.SessionState) error {
	ctx, span := e.tracer.Start(ctx, "stage."+stage.String(), trace.WithAttributes(
		attribute.String("thread_id", s.ThreadID),
		attribute.Int("iteration", s.IterationCount),
	))
	defer span.End()

	start := time.Now()
	err := e.stages.node(stage)(ctx, s)
	elapsed := time.Since(start)
	e.metrics.ObserveStage(stage, elapsed, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetAttributes(attribute.String("current_step", string(s.CurrentStep)))

	logx.Debug().
		Str("thread_id", s.ThreadID).
		Str("stage", stage.String()).
		Int("iteration", s.IterationCount).
		Dur("elapsed", elapsed).
		Msg("stage completed")
	return nil
}

func (e *Engine) checkpoint(ctx context.Context, s *model.SessionState) error {
	s.UpdatedAt = e.now()
	if err := e.store.Save(ctx, s.ThreadID, s); err != nil {
		return fmt.Errorf("checkpoint %s: %w", s.Stage, err)
	}
	return nil
}

func validateRequest(threadID, message string, catalog *model.Catalog) error {
	if threadID == "" {
		return errx.Validation("thread id is required")
	}
	if message == "" {
		return errx.Validation("question must not be empty")
	}
	if !utf8.ValidString(message) {
		return errx.Validation("question is not valid UTF-8")
	}
	if n := utf8.RuneCountInString(message); n > maxQuestionLen {
		return errx.Validation("question is too long (%d characters, max %d)", n, maxQuestionLen)
	}
	if catalog == nil {
		return errx.Validation("catalog is required")
	}
	if err := catalog.Validate(); err != nil {
		return errx.Validation("invalid catalog: %v", err)
	}
	return nil
}

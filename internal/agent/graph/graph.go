package graph

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/graph/conversations"
	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/graph/nodes"
	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/graph/observers"
	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/graph/tools"
	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
	logx "github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/pkg/logger"
)

// Config holds everything needed to compose the agent end-to-end.
// This is a convenience layer over EngineConfig that also constructs the
// chat models, the tool adapters and the stage nodes.
type Config struct {
	APIKey        string
	BaseURL       string
	DecisionModel model.DecisionModelConfig
	ResponseModel model.ResponseModelConfig
	Prompt        model.PromptConfig
	Agent         model.AgentConfig
	Tools         model.ToolsConfig

	Store      model.CheckpointStore
	Locker     model.ThreadLocker
	Databases  tools.DBResolver
	HTTPClient *http.Client
	Metrics    *observers.Metrics
}

// Deciders are the pluggable decision functions of the three reasoning stages.
type Deciders struct {
	Planner     nodes.Planner
	Evaluator   nodes.Evaluator
	Synthesizer nodes.Synthesizer
}

// NewStages builds the four stage nodes around deciders and tools.
func NewStages(d Deciders, ts nodes.Toolset, agent model.AgentConfig, metrics *observers.Metrics) Stages {
	return Stages{
		Planner: nodes.NewPlannerNode(d.Planner),
		Executor: nodes.NewExecutorNode(nodes.ExecutorConfig{
			Tools:   ts,
			Timeout: agent.ToolTimeout,
			Metrics: metrics,
		}),
		Evaluator: nodes.NewEvaluatorNode(d.Evaluator),
		Synthesizer: nodes.NewSynthesizerNode(d.Synthesizer, nodes.SynthesizerConfig{
			MaxResultChars: agent.MaxToolResultChars,
			Window:         conversations.NewWindow(agent.HistoryTurns),
		}),
	}
}

// BuildAgent wires Gemini chat models, the four tool adapters and the
// checkpointing engine.
func BuildAgent(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.Store == nil || cfg.Locker == nil {
		return nil, fmt.Errorf("checkpoint store and thread locker are required")
	}

	cms, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		DecisionConfig: &cfg.DecisionModel,
		RespConfig:     &cfg.ResponseModel,
	})
	if err != nil {
		return nil, err
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	ts := nodes.Toolset{
		OMDB: tools.NewOMDBTool(httpClient, cfg.Tools.OMDB.BaseURL, cfg.Tools.OMDB.APIKey),
		Web:  tools.NewWebSearchTool(httpClient, cfg.Tools.Web.Endpoint, cfg.Tools.Web.UserAgent, cfg.Tools.Web.MaxResults),
	}
	if cfg.Databases != nil {
		ts.SQL = tools.NewSQLTool(cfg.Databases, cfg.Tools.SQL.MaxRows)
		ts.Semantic = tools.NewSemanticTool(
			tools.NewGeminiEmbedder(cms.Client, cfg.Tools.Semantic.EmbeddingModel, cfg.Tools.Semantic.Dimensions),
			tools.NewPGVectorIndex(cfg.Databases, cfg.Tools.Semantic.Database, cfg.Tools.Semantic.Table),
			cfg.Tools.Semantic.MaxLimit,
		)
	} else {
		logx.Warn().Msg("no database resolver configured, sql and semantic tools disabled")
	}

	window := conversations.NewWindow(cfg.Agent.HistoryTurns)
	deciders := Deciders{
		Planner:     nodes.NewLLMPlanner(cms.Decision, cms.DecisionModelName, cfg.Prompt, window),
		Evaluator:   nodes.NewLLMEvaluator(cms.Decision, cms.DecisionModelName, cfg.Prompt, cfg.Agent.MaxToolResultChars),
		Synthesizer: nodes.NewLLMSynthesizer(cms.Response, cms.ResponseModelName, cfg.Prompt),
	}

	engine, err := NewEngine(EngineConfig{
		Store:            cfg.Store,
		Locker:           cfg.Locker,
		Stages:           NewStages(deciders, ts, cfg.Agent, cfg.Metrics),
		MaxIterations:    cfg.Agent.MaxIterations,
		TransitionBudget: cfg.Agent.TransitionBudget,
		Metrics:          cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().
		Str("decision_model", cms.DecisionModelName).
		Str("response_model", cms.ResponseModelName).
		Int("max_iterations", cfg.Agent.MaxIterations).
		Msg("agent built successfully")
	return engine, nil
}

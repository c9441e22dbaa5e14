package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"google.golang.org/genai"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
	logx "github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey         string
	BaseURL        string
	DecisionConfig *model.DecisionModelConfig
	RespConfig     *model.ResponseModelConfig
}

// ChatModels holds the decision (planner, evaluator) and response chat models.
// Client is shared with the embedder of the semantic tool.
type ChatModels struct {
	Client            *genai.Client
	Decision          *gemini.ChatModel
	Response          *gemini.ChatModel
	DecisionModelName string
	ResponseModelName string
}

// NewChatModels creates both chat models with the given configuration
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	if config.DecisionConfig == nil || config.RespConfig == nil {
		return nil, fmt.Errorf("chat model config is incomplete")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	// Planner and evaluator share the decision model
	chatModelDecision, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.DecisionConfig.Model,
		Temperature: &config.DecisionConfig.Temperature,
		MaxTokens:   &config.DecisionConfig.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(config.DecisionConfig.ThinkingBudget),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating decision model")
		return nil, fmt.Errorf("error creating decision model: %w", err)
	}

	// Create Response Chat Model
	chatModelResponse, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.RespConfig.Model,
		Temperature: &config.RespConfig.Temperature,
		MaxTokens:   &config.RespConfig.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(config.RespConfig.ThinkingBudget),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Response model")
		return nil, fmt.Errorf("error creating Response model: %w", err)
	}

	return &ChatModels{
		Client:            client,
		Decision:          chatModelDecision,
		Response:          chatModelResponse,
		DecisionModelName: config.DecisionConfig.Model,
		ResponseModelName: config.RespConfig.Model,
	}, nil
}

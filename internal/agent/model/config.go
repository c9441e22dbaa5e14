package model

import "time"

// ================ Config ================
type AgentConfig struct {
	MaxIterations      int           `envconfig:"AGENT_MAX_ITERATIONS" default:"2"`
	ToolTimeout        time.Duration `envconfig:"AGENT_TOOL_TIMEOUT" default:"20s"`
	HistoryTurns       int           `envconfig:"AGENT_HISTORY_TURNS" default:"6"`
	MaxToolResultChars int           `envconfig:"AGENT_MAX_TOOL_RESULT_CHARS" default:"3000"`
	// TransitionBudget caps FSM transitions per call; 0 derives it from MaxIterations.
	TransitionBudget int `envconfig:"AGENT_TRANSITION_BUDGET" default:"0"`
}

type CheckpointConfig struct {
	Backend    string `envconfig:"CHECKPOINT_BACKEND" default:"redis"` // redis | memory
	TTL        string `envconfig:"CHECKPOINT_TTL" default:"24h"`
	JournalLen int64  `envconfig:"CHECKPOINT_JOURNAL_LEN" default:"200"`
	LockTTL    string `envconfig:"CHECKPOINT_LOCK_TTL" default:"5m"`
}

type DecisionModelConfig struct {
	Model          string  `envconfig:"DECISION_MODEL" default:"gemini-2.5-flash"`
	MaxTokens      int     `envconfig:"DECISION_MAX_TOKENS" default:"2000"`
	Temperature    float32 `envconfig:"DECISION_TEMPERATURE" default:"0.1"`
	ThinkingBudget int32   `envconfig:"DECISION_THINKING_BUDGET" default:"1024"`
}

type ResponseModelConfig struct {
	Model          string  `envconfig:"RESPONSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens      int     `envconfig:"RESPONSE_MAX_TOKENS" default:"2000"`
	Temperature    float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.4"`
	ThinkingBudget int32   `envconfig:"RESPONSE_THINKING_BUDGET" default:"512"`
}

type PromptConfig struct {
	AssistantName string `envconfig:"PROMPT_ASSISTANT_NAME" default:"Albert Query"`
	Language      string `envconfig:"PROMPT_LANGUAGE" default:"French"`
	Domain        string `envconfig:"PROMPT_DOMAIN" default:"movies"`
}

type ToolsConfig struct {
	SQL struct {
		MaxRows int `envconfig:"SQL_MAX_ROWS" default:"200"`
	}
	Semantic struct {
		Database       string `envconfig:"SEMANTIC_DATABASE" default:"movies"`
		Table          string `envconfig:"SEMANTIC_TABLE" default:"movie_embeddings"`
		EmbeddingModel string `envconfig:"SEMANTIC_EMBEDDING_MODEL" default:"gemini-embedding-001"`
		Dimensions     int32  `envconfig:"SEMANTIC_DIMENSIONS" default:"768"`
		DefaultLimit   int    `envconfig:"SEMANTIC_DEFAULT_LIMIT" default:"5"`
		MaxLimit       int    `envconfig:"SEMANTIC_MAX_LIMIT" default:"20"`
	}
	OMDB struct {
		APIKey  string `envconfig:"OMDB_API_KEY"`
		BaseURL string `envconfig:"OMDB_BASE_URL" default:"https://www.omdbapi.com/"`
	}
	Web struct {
		Endpoint   string `envconfig:"WEB_SEARCH_ENDPOINT" default:"https://html.duckduckgo.com/html/"`
		MaxResults int    `envconfig:"WEB_SEARCH_MAX_RESULTS" default:"5"`
		UserAgent  string `envconfig:"WEB_SEARCH_USER_AGENT" default:"Mozilla/5.0 (compatible; AlbertQuery/1.0)"`
	}
}

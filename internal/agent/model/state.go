package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
)

// DefaultMaxIterations bounds the planner/executor/evaluator loop of one turn.
const DefaultMaxIterations = 2

// SessionState is the record threaded through every stage of a run and
// checkpointed between stages. It is owned by exactly one run at a time.
type SessionState struct {
	ThreadID string `json:"thread_id"`
	TurnID   string `json:"turn_id"`

	ConversationHistory []*schema.Message `json:"conversation_history"`
	OriginalQuestion    string            `json:"original_question"`
	Catalog             *Catalog          `json:"catalog,omitempty"`

	IterationCount int `json:"iteration_count"`
	MaxIterations  int `json:"max_iterations"`

	ExecutionPlan   *ExecutionPlan           `json:"execution_plan,omitempty"`
	ToolResults     map[ToolName]*ToolResult `json:"tool_results"`
	PreviousPlans   []ExecutionPlan          `json:"previous_plans"`
	PreviousResults []ResultSnapshot         `json:"previous_results"`

	EvaluatorDecision   Decision `json:"evaluator_decision,omitempty"`
	EvaluatorReasoning  string   `json:"evaluator_reasoning,omitempty"`
	EvaluatorConfidence float64  `json:"evaluator_confidence"`
	ReplanInstructions  string   `json:"replan_instructions,omitempty"`

	SourcesUsed     []ToolName   `json:"sources_used"`
	SourcesDetailed []Provenance `json:"sources_detailed"`

	CurrentStep Step   `json:"current_step,omitempty"`
	Stage       Stage  `json:"stage"`
	FinalAnswer string `json:"final_answer,omitempty"`

	// Accumulated LLM cost (USD) of the current turn.
	TotalCostUSD float64   `json:"total_cost_usd"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewSessionState returns the state of a thread that has not run any turn yet.
func NewSessionState(threadID string, maxIterations int) *SessionState {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &SessionState{
		ThreadID:            threadID,
		ConversationHistory: []*schema.Message{},
		MaxIterations:       maxIterations,
		ToolResults:         map[ToolName]*ToolResult{},
		PreviousPlans:       []ExecutionPlan{},
		PreviousResults:     []ResultSnapshot{},
		SourcesUsed:         []ToolName{},
		SourcesDetailed:     []Provenance{},
		Stage:               StageDone,
	}
}

// BeginTurn appends the user question to the history and resets every
// per-turn field. History is the only thing carried across turns.
func (s *SessionState) BeginTurn(turnID, question string, catalog *Catalog) {
	s.TurnID = turnID
	s.OriginalQuestion = question
	s.Catalog = catalog
	s.ConversationHistory = append(s.ConversationHistory, schema.UserMessage(question))

	s.IterationCount = 0
	s.ExecutionPlan = nil
	s.ToolResults = map[ToolName]*ToolResult{}
	s.PreviousPlans = []ExecutionPlan{}
	s.PreviousResults = []ResultSnapshot{}
	s.EvaluatorDecision = ""
	s.EvaluatorReasoning = ""
	s.EvaluatorConfidence = 0
	s.ReplanInstructions = ""
	s.SourcesUsed = []ToolName{}
	s.SourcesDetailed = []Provenance{}
	s.CurrentStep = ""
	s.FinalAnswer = ""
	s.TotalCostUSD = 0
	s.Stage = StagePlanning
}

// InFlight reports whether a turn was started but not completed.
func (s *SessionState) InFlight() bool {
	return s.Stage.Valid() && s.Stage != StageDone && s.OriginalQuestion != ""
}

// MarkSourceUsed records tool in SourcesUsed once per turn.
func (s *SessionState) MarkSourceUsed(tool ToolName) {
	for _, t := range s.SourcesUsed {
		if t == tool {
			return
		}
	}
	s.SourcesUsed = append(s.SourcesUsed, tool)
}

// AppendProvenance adds a provenance record. Records are never rewritten.
func (s *SessionState) AppendProvenance(p Provenance) {
	s.SourcesDetailed = append(s.SourcesDetailed, p)
}

// AddUsage accumulates the cost of a decision call.
func (s *SessionState) AddUsage(u *Usage) {
	if u != nil {
		s.TotalCostUSD += u.CostUSD
	}
}

// Clone returns a deep copy through the checkpoint encoding.
func (s *SessionState) Clone() (*SessionState, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var out SessionState
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Validate checks the invariants required before stage runs.
func (s *SessionState) Validate(stage Stage) error {
	if s == nil {
		return fmt.Errorf("session state is nil")
	}
	if strings.TrimSpace(s.ThreadID) == "" {
		return fmt.Errorf("session state has no thread id")
	}
	if s.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be positive, got %d", s.MaxIterations)
	}
	if s.IterationCount < 0 || s.IterationCount > s.MaxIterations {
		return fmt.Errorf("iteration_count %d outside [0, %d]", s.IterationCount, s.MaxIterations)
	}
	if s.EvaluatorConfidence < 0 || s.EvaluatorConfidence > 1 {
		return fmt.Errorf("evaluator_confidence %.2f outside [0, 1]", s.EvaluatorConfidence)
	}
	if stage != StageDone && strings.TrimSpace(s.OriginalQuestion) == "" {
		return fmt.Errorf("stage %s requires an original question", stage)
	}

	switch stage {
	case StagePlanning:
		if s.IterationCount >= s.MaxIterations {
			return fmt.Errorf("planning requested with exhausted iteration budget (%d/%d)", s.IterationCount, s.MaxIterations)
		}
	case StageExecuting:
		if s.ExecutionPlan == nil {
			return fmt.Errorf("executing requires an execution plan")
		}
		if s.IterationCount < 1 {
			return fmt.Errorf("executing before any planning iteration")
		}
	case StageEvaluating:
		if s.ExecutionPlan == nil || s.ToolResults == nil {
			return fmt.Errorf("evaluating requires a plan and tool results")
		}
	case StageSynthesizing:
		if s.ToolResults == nil {
			return fmt.Errorf("synthesizing requires tool results")
		}
		if s.EvaluatorDecision != "" && s.EvaluatorDecision != DecisionFinish && s.EvaluatorDecision != DecisionReplan {
			return fmt.Errorf("unexpected evaluator decision %q", s.EvaluatorDecision)
		}
	case StageDone:
	default:
		return fmt.Errorf("unknown stage %s", stage)
	}
	return nil
}

// LastAssistantMessage returns the content of the most recent assistant message.
func (s *SessionState) LastAssistantMessage() string {
	for i := len(s.ConversationHistory) - 1; i >= 0; i-- {
		if m := s.ConversationHistory[i]; m != nil && m.Role == schema.Assistant {
			return m.Content
		}
	}
	return ""
}

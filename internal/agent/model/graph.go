package model

import (
	"fmt"
	"strings"
	"time"
)

// Stage is a state of the workflow FSM.
type Stage uint8

const (
	StagePlanning Stage = iota + 1
	StageExecuting
	StageEvaluating
	StageSynthesizing
	StageDone
)

var stageNames = map[Stage]string{
	StagePlanning:     "planning",
	StageExecuting:    "executing",
	StageEvaluating:   "evaluating",
	StageSynthesizing: "synthesizing",
	StageDone:         "done",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", uint8(s))
}

// Valid reports whether s is one of the declared stages.
func (s Stage) Valid() bool {
	_, ok := stageNames[s]
	return ok
}

func (s Stage) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid stage %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Stage) UnmarshalText(b []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(b)))
	for stage, name := range stageNames {
		if name == v {
			*s = stage
			return nil
		}
	}
	return fmt.Errorf("unknown stage %q", v)
}

// Step is the progress tag exposed to observers. It never drives control flow.
type Step string

const (
	StepPlanned          Step = "planned"
	StepSQLExecuted      Step = "sql_executed"
	StepSemanticExecuted Step = "semantic_executed"
	StepOMDBExecuted     Step = "omdb_executed"
	StepWebExecuted      Step = "web_executed"
	StepComplete         Step = "complete"
)

// Decision is the evaluator's routing verdict.
type Decision string

const (
	DecisionReplan Decision = "replan"
	DecisionFinish Decision = "finish"
)

// ParseDecision normalizes a raw decision. Unknown values report ok=false
// and map to DecisionFinish.
func ParseDecision(raw string) (Decision, bool) {
	switch Decision(strings.ToLower(strings.TrimSpace(raw))) {
	case DecisionReplan:
		return DecisionReplan, true
	case DecisionFinish:
		return DecisionFinish, true
	default:
		return DecisionFinish, false
	}
}

// Evaluation is the output of an evaluator decision function.
type Evaluation struct {
	Decision           Decision `json:"decision"`
	Reasoning          string   `json:"reasoning"`
	Confidence         float64  `json:"confidence"`
	ReplanInstructions string   `json:"replan_instructions,omitempty"`
	Usage              *Usage   `json:"-"`
}

// ProgressEvent is emitted after each stage transition and each tool completion.
type ProgressEvent struct {
	ThreadID  string    `json:"thread_id"`
	TurnID    string    `json:"turn_id"`
	Stage     Stage     `json:"stage"`
	Step      Step      `json:"current_step"`
	Tool      ToolName  `json:"tool,omitempty"`
	Iteration int       `json:"iteration"`
	At        time.Time `json:"at"`
}

// ProgressFunc receives progress events. It is called synchronously from the run.
type ProgressFunc func(ProgressEvent)

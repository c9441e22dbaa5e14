package parsers

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
	errx "github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/core/error"
	logx "github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/pkg/logger"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen  = 64 * 1024 // 64KB
	maxFieldLen    = 8 * 1024  // 8KB per string field
	maxErrSnippet  = 200       // limit error snippet size
	maxSemanticLim = 50
)

// rawPlan accepts loosely typed model output: booleans may come as strings
// and limits as strings or floats.
type rawPlan struct {
	Reasoning     string          `json:"reasoning"`
	ResolvedQuery string          `json:"resolved_query"`
	NeedsSQL      json.RawMessage `json:"needs_sql"`
	NeedsSemantic json.RawMessage `json:"needs_semantic"`
	NeedsOMDB     json.RawMessage `json:"needs_omdb"`
	NeedsWeb      json.RawMessage `json:"needs_web"`
	SQLQuery      string          `json:"sql_query"`
	SQLDatabase   string          `json:"sql_database"`
	SemanticQuery string          `json:"semantic_query"`
	SemanticLimit json.RawMessage `json:"semantic_limit"`
	OMDBQuery     string          `json:"omdb_query"`
	WebQuery      string          `json:"web_query"`
}

type rawEvaluation struct {
	Decision           string          `json:"decision"`
	Reasoning          string          `json:"reasoning"`
	Confidence         json.RawMessage `json:"confidence"`
	ReplanInstructions string          `json:"replan_instructions"`
}

// ParsePlan decodes the planner output into an execution plan.
// A tool flagged without its mandatory query is unflagged.
func ParsePlan(content string) (plan *model.ExecutionPlan, err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "plan_parser").Msgf("panic recovered: %v", r)
			err = errx.New(fmt.Errorf("plan parser panic"), http.StatusInternalServerError, errx.SystemErrorMessage)
			plan = nil
		}
	}()

	obj, err := extractObject(content)
	if err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	var raw rawPlan
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return nil, fmt.Errorf("parse plan: %w (%s)", err, safeSnippet(obj))
	}

	plan = &model.ExecutionPlan{
		Reasoning:     clip(raw.Reasoning),
		ResolvedQuery: clip(raw.ResolvedQuery),
		NeedsSQL:      parseBool(raw.NeedsSQL),
		NeedsSemantic: parseBool(raw.NeedsSemantic),
		NeedsOMDB:     parseBool(raw.NeedsOMDB),
		NeedsWeb:      parseBool(raw.NeedsWeb),
		SQLQuery:      clip(raw.SQLQuery),
		SQLDatabase:   clip(raw.SQLDatabase),
		SemanticQuery: clip(raw.SemanticQuery),
		SemanticLimit: parseLimit(raw.SemanticLimit),
		OMDBQuery:     clip(raw.OMDBQuery),
		WebQuery:      clip(raw.WebQuery),
	}
	if plan.NeedsSQL && strings.TrimSpace(plan.SQLQuery) == "" {
		logx.Warn().Str("component", "plan_parser").Msg("sql flagged without query, unflagging")
		plan.NeedsSQL = false
	}
	if plan.NeedsOMDB && strings.TrimSpace(plan.OMDBQuery) == "" {
		logx.Warn().Str("component", "plan_parser").Msg("omdb flagged without lookup key, unflagging")
		plan.NeedsOMDB = false
	}
	return plan, nil
}

// ParseEvaluation decodes the evaluator output. An unknown decision is
// reported through ok=false and mapped to finish.
func ParseEvaluation(content string) (eval *model.Evaluation, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "evaluation_parser").Msgf("panic recovered: %v", r)
			err = errx.New(fmt.Errorf("evaluation parser panic"), http.StatusInternalServerError, errx.SystemErrorMessage)
			eval, ok = nil, false
		}
	}()

	obj, err := extractObject(content)
	if err != nil {
		return nil, false, fmt.Errorf("parse evaluation: %w", err)
	}
	var raw rawEvaluation
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return nil, false, fmt.Errorf("parse evaluation: %w (%s)", err, safeSnippet(obj))
	}

	decision, ok := model.ParseDecision(raw.Decision)
	eval = &model.Evaluation{
		Decision:           decision,
		Reasoning:          clip(raw.Reasoning),
		Confidence:         parseConfidence(raw.Confidence),
		ReplanInstructions: clip(raw.ReplanInstructions),
	}
	if decision != model.DecisionReplan {
		eval.ReplanInstructions = ""
	}
	return eval, ok, nil
}

// --- helpers ---

// extractObject strips code fences and returns the outermost JSON object.
func extractObject(content string) (string, error) {
	if len(content) > maxContentLen {
		logx.Warn().
			Str("component", "decision_parser").
			Int("max_len", maxContentLen).
			Int("orig_len", len(content)).
			Msg("content truncated due to size limit")
		content = content[:maxContentLen]
	}
	if !utf8.ValidString(content) {
		content = strings.ToValidUTF8(content, "")
	}
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", fmt.Errorf("no json object in model output: %q", safeSnippet(s))
	}
	return s[start : end+1], nil
}

func parseBool(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, err := strconv.ParseBool(strings.TrimSpace(s))
		return err == nil && v
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f != 0
	}
	return false
}

func parseNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		f = v
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// parseLimit returns 0 for missing or invalid limits so defaults apply later.
func parseLimit(raw json.RawMessage) int {
	f, ok := parseNumber(raw)
	if !ok || f < 1 {
		return 0
	}
	if f > maxSemanticLim {
		return maxSemanticLim
	}
	return int(f)
}

// parseConfidence clamps into [0, 1].
func parseConfidence(raw json.RawMessage) float64 {
	f, ok := parseNumber(raw)
	if !ok {
		return 0
	}
	return math.Min(1, math.Max(0, f))
}

func clip(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxFieldLen {
		return s
	}
	cut := maxFieldLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet]
}

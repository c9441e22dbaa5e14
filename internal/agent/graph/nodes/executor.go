package nodes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/graph/observers"
	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
	errx "github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/core/error"
	logx "github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/pkg/logger"
)

const (
	DefaultToolTimeout = 20 * time.Second
	tracerName         = "github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/graph/nodes"
)

type ExecutorConfig struct {
	Tools   Toolset
	Timeout time.Duration
	Metrics *observers.Metrics
}

type completion struct {
	tool    model.ToolName
	res     model.ToolResult
	elapsed time.Duration
}

// NewExecutorNode calls every flagged tool concurrently and applies the
// results in the order they complete. A failing or slow tool only affects
// its own entry.
func NewExecutorNode(cfg ExecutorConfig) Node {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultToolTimeout
	}
	return func(ctx context.Context, s *model.SessionState) error {
		plan := s.ExecutionPlan
		flagged := plan.Tools()
		results := make(map[model.ToolName]*model.ToolResult, len(flagged))

		done := make(chan completion, len(flagged))
		g, gctx := errgroup.WithContext(ctx)
		for _, tool := range flagged {
			g.Go(func() error {
				start := time.Now()
				res := invokeWithTimeout(gctx, cfg, tool, plan, s.Catalog)
				done <- completion{tool: tool, res: res, elapsed: time.Since(start)}
				return nil
			})
		}
		go func() {
			_ = g.Wait()
			close(done)
		}()

		for c := range done {
			res := c.res
			results[c.tool] = &res
			s.MarkSourceUsed(c.tool)
			s.AppendProvenance(provenanceFor(c.tool, plan, res))
			s.CurrentStep = c.tool.ExecutedStep()
			cfg.Metrics.ObserveTool(c.tool, c.elapsed, res)

			ev := logx.Debug()
			if res.Failed() {
				ev = logx.Warn().Str("error", res.Error)
			}
			ev.Str("thread_id", s.ThreadID).
				Str("tool", string(c.tool)).
				Int("count", res.Count).
				Dur("elapsed", c.elapsed).
				Msg("tool completed")

			observers.ReportProgress(ctx, model.ProgressEvent{
				ThreadID:  s.ThreadID,
				TurnID:    s.TurnID,
				Stage:     model.StageExecuting,
				Step:      s.CurrentStep,
				Tool:      c.tool,
				Iteration: s.IterationCount,
				At:        time.Now().UTC(),
			})
		}

		s.ToolResults = results
		s.PreviousResults = append(s.PreviousResults, model.ResultSnapshot{
			Iteration: s.IterationCount,
			Results:   results,
		})
		if err := ctx.Err(); err != nil {
			return err
		}
		return checkEncodable(flagged, results)
	}
}

// checkEncodable rejects results that cannot be checkpointed or handed to the
// synthesizer, such as a NaN aggregate.
func checkEncodable(order []model.ToolName, results map[model.ToolName]*model.ToolResult) error {
	for _, tool := range order {
		res := results[tool]
		if res == nil {
			continue
		}
		if _, err := json.Marshal(res); err != nil {
			return errx.Serialization(fmt.Errorf("serialize %s result: %w", tool, err))
		}
	}
	return nil
}

// invokeWithTimeout runs one adapter under its own deadline. Timeouts and
// panics are reported as failed results.
func invokeWithTimeout(ctx context.Context, cfg ExecutorConfig, tool model.ToolName, plan *model.ExecutionPlan, catalog *model.Catalog) model.ToolResult {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "tool."+string(tool), trace.WithAttributes(
		attribute.String("tool", string(tool)),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	ctx = observers.ToolStart(ctx, tool, toolArgs(tool, plan))

	out := make(chan model.ToolResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logx.Error().Str("component", "executor").Str("tool", string(tool)).Msgf("panic recovered: %v", r)
				out <- model.FailedToolResult(fmt.Sprintf("%s tool failed unexpectedly", tool))
			}
		}()
		out <- cfg.Tools.call(ctx, tool, plan, catalog)
	}()

	var res model.ToolResult
	select {
	case res = <-out:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			res = model.FailedToolResult(fmt.Sprintf("%s tool timed out after %s", tool, cfg.Timeout))
		} else {
			res = model.FailedToolResult(fmt.Sprintf("%s tool cancelled", tool))
		}
	}
	if res.Failed() {
		res.Results = []any{}
		res.Count = 0
		span.SetStatus(codes.Error, res.Error)
	}
	span.SetAttributes(attribute.Int("count", res.Count))
	observers.ToolEnd(ctx, res)
	return res
}

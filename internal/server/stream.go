package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/graph"
	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
	errx "github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/core/error"
	logx "github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/pkg/logger"
)

type runFunc func(ctx context.Context, opts ...graph.RunOption) (*graph.TurnResult, error)

func wantsStream(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

// stream runs the turn and writes progress events, then one result or error
// event. Events are written from the run goroutine, which is the handler's.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, run runFunc) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, errx.New(fmt.Errorf("response writer cannot flush"), http.StatusInternalServerError, "streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	send := func(event string, v any) {
		b, err := json.Marshal(v)
		if err != nil {
			logx.Warn().Err(err).Str("event", event).Msg("sse encode failed")
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b)
		flusher.Flush()
	}

	res, err := run(r.Context(), graph.WithProgress(func(ev model.ProgressEvent) {
		send("progress", ev)
	}))
	if err != nil {
		status := errx.StatusOf(err)
		if status >= http.StatusInternalServerError {
			logx.Error().Err(err).Msg("streamed turn failed")
		}
		send("error", map[string]any{"status": status, "error": errx.MessageOf(err)})
		return
	}
	send("result", res)
}

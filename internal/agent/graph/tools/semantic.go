package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"google.golang.org/genai"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
	errx "github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/core/error"
	logx "github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/pkg/logger"
)

const (
	defaultSemanticMaxLimit = 20
	semanticTaskType        = "RETRIEVAL_QUERY"
)

// Document is one nearest-neighbour match of a semantic search.
type Document struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type VectorIndex interface {
	Nearest(ctx context.Context, vector []float32, limit int) ([]Document, error)
	Collection() string
}

// SemanticTool embeds the query and searches the vector index.
type SemanticTool struct {
	embedder Embedder
	index    VectorIndex
	maxLimit int
}

func NewSemanticTool(embedder Embedder, index VectorIndex, maxLimit int) *SemanticTool {
	if maxLimit <= 0 {
		maxLimit = defaultSemanticMaxLimit
	}
	return &SemanticTool{embedder: embedder, index: index, maxLimit: maxLimit}
}

func (t *SemanticTool) Search(ctx context.Context, query string, limit int) (res model.ToolResult) {
	defer recoverTool(model.ToolSemantic, &res)

	query = strings.TrimSpace(query)
	if query == "" {
		return model.FailedToolResult("empty semantic query")
	}
	if t.embedder == nil || t.index == nil {
		return model.FailedToolResult("semantic search backend is not configured")
	}
	if limit <= 0 {
		limit = model.DefaultSemanticLimit
	}
	if limit > t.maxLimit {
		limit = t.maxLimit
	}

	vec, err := t.embedder.Embed(ctx, query)
	if err != nil {
		logx.Warn().Err(err).Str("tool", string(model.ToolSemantic)).Msg("embedding failed")
		return model.FailedToolResult(fmt.Sprintf("semantic search failed: %s", ctxError(ctx, err)))
	}
	docs, err := t.index.Nearest(ctx, vec, limit)
	if err != nil {
		logx.Warn().Err(err).Str("tool", string(model.ToolSemantic)).Msg("vector search failed")
		return model.FailedToolResult(fmt.Sprintf("semantic search failed: %s", ctxError(ctx, err)))
	}
	if docs == nil {
		docs = []Document{}
	}

	logx.Debug().Str("tool", string(model.ToolSemantic)).Int("limit", limit).Int("matches", len(docs)).Msg("semantic search done")

	res = model.NewToolResult(docs, len(docs))
	res.Source = &model.Provenance{Name: t.index.Collection(), Details: fmt.Sprintf("%d matches", len(docs))}
	return res
}

// ===================================
// Gemini embeddings
// ===================================

type GeminiEmbedder struct {
	client     *genai.Client
	model      string
	dimensions int32
}

func NewGeminiEmbedder(client *genai.Client, model string, dimensions int32) *GeminiEmbedder {
	return &GeminiEmbedder{client: client, model: model, dimensions: dimensions}
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	cfg := &genai.EmbedContentConfig{TaskType: semanticTaskType}
	if e.dimensions > 0 {
		dims := e.dimensions
		cfg.OutputDimensionality = &dims
	}
	resp, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), cfg)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("embed content: empty embedding")
	}
	return resp.Embeddings[0].Values, nil
}

// ===================================
// pgvector index
// ===================================

// PGVectorIndex queries a table with columns id, title, content and a
// pgvector column embedding, ordered by cosine distance.
type PGVectorIndex struct {
	dbs      DBResolver
	database string
	table    string
}

func NewPGVectorIndex(dbs DBResolver, database, table string) *PGVectorIndex {
	return &PGVectorIndex{dbs: dbs, database: database, table: table}
}

func (p *PGVectorIndex) Collection() string {
	return p.table
}

func (p *PGVectorIndex) Nearest(ctx context.Context, vector []float32, limit int) ([]Document, error) {
	db, err := p.dbs.DB(ctx, p.database)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(
		`SELECT id::text, COALESCE(title, ''), COALESCE(content, ''), 1 - (embedding <=> $1::vector) AS score
		 FROM %s ORDER BY embedding <=> $1::vector LIMIT $2`,
		pq.QuoteIdentifier(p.table),
	)
	rows, err := db.QueryContext(ctx, q, VectorLiteral(vector), limit)
	if err != nil {
		return nil, errx.WrapPostgres(fmt.Errorf("nearest neighbours: %w", err))
	}
	defer rows.Close()

	docs := make([]Document, 0, limit)
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Title, &d.Content, &d.Score); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// VectorLiteral renders v in pgvector text form, e.g. [0.1,0.2].
func VectorLiteral(v []float32) string {
	var b strings.Builder
	b.Grow(len(v)*8 + 2)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

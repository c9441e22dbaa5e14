package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
	logx "github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/pkg/logger"
)

var imdbIDPattern = regexp.MustCompile(`^tt\d{5,}$`)

// OMDBRecord is the subset of the OMDB payload surfaced to the synthesizer.
type OMDBRecord struct {
	Title      string       `json:"Title"`
	Year       string       `json:"Year"`
	Rated      string       `json:"Rated,omitempty"`
	Released   string       `json:"Released,omitempty"`
	Runtime    string       `json:"Runtime,omitempty"`
	Genre      string       `json:"Genre,omitempty"`
	Director   string       `json:"Director,omitempty"`
	Writer     string       `json:"Writer,omitempty"`
	Actors     string       `json:"Actors,omitempty"`
	Plot       string       `json:"Plot,omitempty"`
	Language   string       `json:"Language,omitempty"`
	Country    string       `json:"Country,omitempty"`
	Awards     string       `json:"Awards,omitempty"`
	Ratings    []OMDBRating `json:"Ratings,omitempty"`
	Metascore  string       `json:"Metascore,omitempty"`
	IMDBRating string       `json:"imdbRating,omitempty"`
	IMDBID     string       `json:"imdbID"`
	BoxOffice  string       `json:"BoxOffice,omitempty"`
}

type OMDBRating struct {
	Source string `json:"Source"`
	Value  string `json:"Value"`
}

type omdbResponse struct {
	OMDBRecord
	Response string `json:"Response"`
	Error    string `json:"Error"`
}

// OMDBTool looks up one movie by title or IMDb id.
type OMDBTool struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewOMDBTool(client *http.Client, baseURL, apiKey string) *OMDBTool {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &OMDBTool{client: client, baseURL: baseURL, apiKey: apiKey}
}

func (t *OMDBTool) Lookup(ctx context.Context, key string) (res model.ToolResult) {
	defer recoverTool(model.ToolOMDB, &res)

	key = strings.TrimSpace(key)
	if key == "" {
		return model.FailedToolResult("empty OMDB lookup key")
	}
	if t.apiKey == "" {
		return model.FailedToolResult("OMDB API key is not configured")
	}

	u, err := url.Parse(t.baseURL)
	if err != nil {
		return model.FailedToolResult(fmt.Sprintf("invalid OMDB base url: %v", err))
	}
	q := u.Query()
	q.Set("apikey", t.apiKey)
	if imdbIDPattern.MatchString(key) {
		q.Set("i", key)
	} else {
		q.Set("t", key)
	}
	q.Set("plot", "short")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return model.FailedToolResult(err.Error())
	}
	resp, err := t.client.Do(req)
	if err != nil {
		logx.Warn().Err(err).Str("tool", string(model.ToolOMDB)).Str("key", key).Msg("omdb request failed")
		return model.FailedToolResult(fmt.Sprintf("OMDB request failed: %s", ctxError(ctx, err)))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return model.FailedToolResult(fmt.Sprintf("OMDB request failed: %s", ctxError(ctx, err)))
	}
	if resp.StatusCode != http.StatusOK {
		return model.FailedToolResult(fmt.Sprintf("OMDB returned status %d", resp.StatusCode))
	}

	var payload omdbResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return model.FailedToolResult(fmt.Sprintf("invalid OMDB response: %v", err))
	}
	if !strings.EqualFold(payload.Response, "True") {
		msg := payload.Error
		if msg == "" {
			msg = "movie not found"
		}
		return model.FailedToolResult(fmt.Sprintf("OMDB: %s", msg))
	}

	rec := payload.OMDBRecord
	logx.Debug().Str("tool", string(model.ToolOMDB)).Str("title", rec.Title).Str("imdb_id", rec.IMDBID).Msg("omdb lookup done")

	name := rec.Title
	if name == "" {
		name = key
	}
	res = model.NewToolResult(rec, 1)
	res.Source = &model.Provenance{Name: name}
	if rec.IMDBID != "" {
		res.Source.URL = "https://www.imdb.com/title/" + rec.IMDBID + "/"
	}
	return res
}

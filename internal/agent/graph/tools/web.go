package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
	logx "github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/pkg/logger"
)

const (
	defaultWebMaxResults = 5
	webSourceName        = "Web search"
)

// Snippet is one organic web search result.
type Snippet struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// WebSearchTool scrapes the DuckDuckGo HTML endpoint.
type WebSearchTool struct {
	client     *http.Client
	endpoint   string
	userAgent  string
	maxResults int
}

func NewWebSearchTool(client *http.Client, endpoint, userAgent string, maxResults int) *WebSearchTool {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if maxResults <= 0 {
		maxResults = defaultWebMaxResults
	}
	return &WebSearchTool{client: client, endpoint: endpoint, userAgent: userAgent, maxResults: maxResults}
}

func (t *WebSearchTool) Search(ctx context.Context, query string) (res model.ToolResult) {
	defer recoverTool(model.ToolWeb, &res)

	query = strings.TrimSpace(query)
	if query == "" {
		return model.FailedToolResult("empty web query")
	}

	form := url.Values{}
	form.Set("q", query)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return model.FailedToolResult(err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		logx.Warn().Err(err).Str("tool", string(model.ToolWeb)).Msg("web search request failed")
		return model.FailedToolResult(fmt.Sprintf("web search failed: %s", ctxError(ctx, err)))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return model.FailedToolResult(fmt.Sprintf("web search returned status %d", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return model.FailedToolResult(fmt.Sprintf("web search failed: %s", ctxError(ctx, err)))
	}
	snippets := parseResults(doc, t.maxResults)

	logx.Debug().Str("tool", string(model.ToolWeb)).Int("results", len(snippets)).Msg("web search done")

	res = model.NewToolResult(snippets, len(snippets))
	res.Source = &model.Provenance{Name: webSourceName, Details: fmt.Sprintf("%d results", len(snippets))}
	if len(snippets) > 0 {
		res.Source.URL = snippets[0].URL
	}
	return res
}

func parseResults(doc *goquery.Document, max int) []Snippet {
	out := make([]Snippet, 0, max)
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.HasClass("result--ad") {
			return true
		}
		link := s.Find(".result__a").First()
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		if title == "" || href == "" {
			return true
		}
		out = append(out, Snippet{
			Title:   title,
			URL:     resolveLink(href),
			Snippet: strings.TrimSpace(s.Find(".result__snippet").First().Text()),
		})
		return len(out) < max
	})
	return out
}

// resolveLink unwraps DuckDuckGo redirect links (/l/?uddg=<target>).
func resolveLink(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

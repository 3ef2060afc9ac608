package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chative/market-research/internal/agent/model"
	errx "github.com/chative/market-research/internal/core/error"
	"github.com/chative/market-research/internal/httputil"
	logx "github.com/chative/market-research/pkg/logger"
)

// ===================================
// Serper web search
// ===================================

const (
	DefaultSerperBaseURL = "https://google.serper.dev"
	defaultSearchResults = 10
	maxSearchResults     = 20
)

type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num,omitempty"`
}

type serperResponse struct {
	Organic []struct {
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
		Position int    `json:"position"`
	} `json:"organic"`
}

// SerperSearcher queries the Serper Google search API.
type SerperSearcher struct {
	apiKey     string
	baseURL    string
	maxResults int
	client     *http.Client
}

// SerperConfig configures a SerperSearcher.
type SerperConfig struct {
	APIKey     string
	BaseURL    string
	MaxResults int
	Timeout    time.Duration
	Client     *http.Client
}

func NewSerperSearcher(cfg SerperConfig) *SerperSearcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultSerperBaseURL
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = defaultSearchResults
	}
	if cfg.MaxResults > maxSearchResults {
		cfg.MaxResults = maxSearchResults
	}
	if cfg.Client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		cfg.Client = &http.Client{Timeout: timeout}
	}
	return &SerperSearcher{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxResults: cfg.MaxResults,
		client:     cfg.Client,
	}
}

// Search returns organic results for query. Every failure is a tool error.
func (s *SerperSearcher) Search(ctx context.Context, query string) ([]model.SourceSnippet, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errx.Tool(fmt.Errorf("query is required"))
	}
	if s.apiKey == "" {
		return nil, errx.Tool(fmt.Errorf("SERPER_API_KEY is not set"))
	}

	body, err := json.Marshal(serperRequest{Q: query, Num: s.maxResults})
	if err != nil {
		return nil, errx.Tool(fmt.Errorf("marshal search request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, errx.Tool(fmt.Errorf("build search request: %w", err))
	}
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := httputil.DoWithRetry(ctx, s.client, req, 0)
	if err != nil {
		return nil, errx.Tool(fmt.Errorf("search %q: %w", query, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errx.Tool(fmt.Errorf("search %q: status %d: %s", query, resp.StatusCode, strings.TrimSpace(string(b))))
	}

	var out serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errx.Tool(fmt.Errorf("decode search response: %w", err))
	}

	results := make([]model.SourceSnippet, 0, len(out.Organic))
	for _, o := range out.Organic {
		if o.Link == "" {
			continue
		}
		results = append(results, model.SourceSnippet{Title: o.Title, URL: o.Link, Snippet: o.Snippet})
		if len(results) == s.maxResults {
			break
		}
	}
	logx.Debug().Str("query", query).Int("results", len(results)).Msg("Search completed")
	return results, nil
}

var _ model.Searcher = (*SerperSearcher)(nil)

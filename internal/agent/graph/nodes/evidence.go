package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/chative/market-research/internal/agent/graph/parsers"
	"github.com/chative/market-research/internal/agent/graph/tools"
	"github.com/chative/market-research/internal/agent/model"
	logx "github.com/chative/market-research/pkg/logger"
)

const excerptChars = 1500

// EvidenceGatherer runs the secondary searches and scrapes of the verify stage.
// Tool failures are logged and skipped.
type EvidenceGatherer struct {
	Searcher   model.Searcher
	Scraper    model.Scraper
	MaxQueries int
	MaxScrapes int
	Parallel   int
}

type refinedParams struct {
	RefinedQuery string   `json:"refined_query"`
	Keywords     []string `json:"keywords"`
}

// VerifyQueries picks search queries from the refine stage output, falling
// back to the raw query.
func VerifyQueries(refined, query string, max int) []string {
	if max <= 0 {
		max = 3
	}
	var p refinedParams
	if obj := parsers.ExtractJSONObject(refined); obj != "" {
		if err := json.Unmarshal([]byte(obj), &p); err != nil {
			logx.Debug().Err(err).Msg("Refined parameters are not valid JSON; searching the raw query")
		}
	}

	seen := map[string]bool{}
	var out []string
	add := func(q string) {
		q = strings.TrimSpace(q)
		if q == "" || seen[strings.ToLower(q)] || len(out) >= max {
			return
		}
		seen[strings.ToLower(q)] = true
		out = append(out, q)
	}
	for _, k := range p.Keywords {
		add(k)
	}
	if len(out) == 0 {
		add(p.RefinedQuery)
		add(query)
	}
	return out
}

// Gather searches every query, scrapes the top result pages and renders the
// findings as plain text. It returns "" when nothing was found.
func (g *EvidenceGatherer) Gather(ctx context.Context, queries []string) string {
	if g == nil || (g.Searcher == nil && g.Scraper == nil) || len(queries) == 0 {
		return ""
	}
	limit := g.Parallel
	if limit <= 0 {
		limit = 4
	}

	hits := make([][]model.SourceSnippet, len(queries))
	if g.Searcher != nil {
		var eg errgroup.Group
		eg.SetLimit(limit)
		for i, q := range queries {
			eg.Go(func() error {
				res, err := g.Searcher.Search(ctx, q)
				if err != nil {
					logx.Warn().Err(err).Str("query", q).Msg("Verification search failed")
					return nil
				}
				hits[i] = res
				return nil
			})
		}
		eg.Wait()
	}

	var snippets []model.SourceSnippet
	seen := map[string]bool{}
	for _, res := range hits {
		for _, h := range res {
			if seen[h.URL] {
				continue
			}
			seen[h.URL] = true
			snippets = append(snippets, h)
		}
	}

	var urls []string
	for _, s := range snippets {
		if len(urls) >= g.MaxScrapes {
			break
		}
		urls = append(urls, s.URL)
	}

	pages := make([]string, len(urls))
	if g.Scraper != nil && len(urls) > 0 {
		var eg errgroup.Group
		eg.SetLimit(limit)
		for i, u := range urls {
			eg.Go(func() error {
				text, err := g.Scraper.Scrape(ctx, u)
				if err != nil {
					logx.Warn().Err(err).Str("url", u).Msg("Verification scrape failed")
					return nil
				}
				pages[i] = text
				return nil
			})
		}
		eg.Wait()
	}

	return renderEvidence(snippets, urls, pages)
}

func renderEvidence(snippets []model.SourceSnippet, urls, pages []string) string {
	var b strings.Builder
	if len(snippets) > 0 {
		b.WriteString("Search results:\n")
		for i, s := range snippets {
			fmt.Fprintf(&b, "[%d] %s - %s\n", i+1, s.Title, s.URL)
			if s.Snippet != "" {
				b.WriteString(s.Snippet)
				b.WriteByte('\n')
			}
		}
	}
	for i, text := range pages {
		if strings.TrimSpace(text) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "Page excerpt from %s:\n%s\n", urls[i], tools.Truncate(text, excerptChars))
	}
	return strings.TrimSpace(b.String())
}

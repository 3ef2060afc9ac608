package nodes

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chative/market-research/internal/agent/model"
)

func TestVerifyQueries(t *testing.T) {
	tests := []struct {
		name    string
		refined string
		max     int
		want    []string
	}{
		{
			name:    "keywords from refined json",
			refined: "Here you go:\n```json\n{\"refined_query\": \"ev market\", \"keywords\": [\"ev sales\", \"EV Sales\", \"charging\", \"batteries\"]}\n```",
			max:     2,
			want:    []string{"ev sales", "charging"},
		},
		{
			name:    "refined query without keywords",
			refined: `{"refined_query": "electric vehicles 2024"}`,
			max:     3,
			want:    []string{"electric vehicles 2024", "EV market"},
		},
		{
			name:    "not json",
			refined: "no structured output",
			max:     0,
			want:    []string{"EV market"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifyQueries(tt.refined, "EV market", tt.max))
		})
	}
}

type stubSearcher struct {
	calls atomic.Int32
	fail  string
}

func (s *stubSearcher) Search(_ context.Context, q string) ([]model.SourceSnippet, error) {
	s.calls.Add(1)
	if q == s.fail {
		return nil, errors.New("quota exceeded")
	}
	return []model.SourceSnippet{
		{Title: "Shared", URL: "https://example.com/shared", Snippet: "common"},
		{Title: "Only " + q, URL: "https://example.com/" + q},
	}, nil
}

type stubScraper struct{ fail bool }

func (s stubScraper) Scrape(_ context.Context, url string) (string, error) {
	if s.fail {
		return "", errors.New("blocked")
	}
	return strings.Repeat("x", 2000) + " " + url, nil
}

func TestEvidenceGatherer(t *testing.T) {
	searcher := &stubSearcher{fail: "c"}
	g := &EvidenceGatherer{Searcher: searcher, Scraper: stubScraper{}, MaxQueries: 3, MaxScrapes: 1, Parallel: 2}

	out := g.Gather(context.Background(), []string{"a", "b", "c"})
	assert.Equal(t, int32(3), searcher.calls.Load())
	assert.Equal(t, 1, strings.Count(out, "https://example.com/shared\n"), "duplicate urls are merged")
	assert.Contains(t, out, "Only a")
	assert.Contains(t, out, "Only b")
	assert.NotContains(t, out, "Only c")
	assert.Contains(t, out, "Page excerpt from https://example.com/shared")
	assert.Contains(t, out, "...[Content truncated due to length]")
}

func TestEvidenceGathererDegrades(t *testing.T) {
	var nilGatherer *EvidenceGatherer
	assert.Empty(t, nilGatherer.Gather(context.Background(), []string{"a"}))

	g := &EvidenceGatherer{Searcher: &stubSearcher{fail: "a"}, Scraper: stubScraper{fail: true}, MaxScrapes: 2}
	assert.Empty(t, g.Gather(context.Background(), []string{"a"}))

	out := (&EvidenceGatherer{Searcher: &stubSearcher{}, Scraper: stubScraper{fail: true}, MaxScrapes: 2}).
		Gather(context.Background(), []string{"a"})
	assert.Contains(t, out, "Search results:")
	assert.NotContains(t, out, "Page excerpt")
}

package model

import "context"

// SourceSnippet is one search hit.
type SourceSnippet struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Generator is the opaque text generation capability. roleContext describes the
// persona the model should adopt for this call.
type Generator interface {
	Generate(ctx context.Context, prompt, roleContext string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt, roleContext string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt, roleContext string) (string, error) {
	return f(ctx, prompt, roleContext)
}

// Searcher queries the web. Failures are tool errors and never fatal to a run.
type Searcher interface {
	Search(ctx context.Context, query string) ([]SourceSnippet, error)
}

// Scraper fetches the readable text of a page.
type Scraper interface {
	Scrape(ctx context.Context, url string) (string, error)
}

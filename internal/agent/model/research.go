package model

import (
	"context"
	"fmt"
	"strings"
	"time"

	errx "github.com/chative/market-research/internal/core/error"
)

// Depth controls how exhaustive a research run is.
type Depth string

const (
	DepthBasic    Depth = "basic"
	DepthStandard Depth = "standard"
	DepthDetailed Depth = "detailed"
)

// InputType distinguishes company research from generic topic research.
type InputType string

const (
	InputTopic   InputType = "topic"
	InputCompany InputType = "company"
)

// ResearchParameters describe one research request. A value is built once and
// not modified while a pipeline run uses it.
type ResearchParameters struct {
	Query     string    `json:"query" yaml:"query"`
	Depth     Depth     `json:"depth" yaml:"depth"`
	Location  string    `json:"location" yaml:"location"`
	TimeFrame string    `json:"time_frame" yaml:"time_frame"`
	InputType InputType `json:"input_type" yaml:"input_type"`
}

// ParameterDefaults fill in optional ResearchParameters fields.
type ParameterDefaults struct {
	Depth     Depth
	Location  string
	TimeFrame string
}

// ParametersFromQuery builds parameters with defaults. A query ending with
// " company" is researched as a company.
func ParametersFromQuery(query string, d ParameterDefaults) ResearchParameters {
	query = strings.TrimSpace(query)
	p := ResearchParameters{
		Query:     query,
		Depth:     d.Depth,
		Location:  d.Location,
		TimeFrame: d.TimeFrame,
		InputType: InputTopic,
	}
	if strings.HasSuffix(strings.ToLower(query), " company") {
		p.InputType = InputCompany
	}
	return p.WithDefaults()
}

// WithDefaults returns a copy with empty optional fields set to the standard defaults.
func (p ResearchParameters) WithDefaults() ResearchParameters {
	if p.Depth == "" {
		p.Depth = DepthDetailed
	}
	if p.Location == "" {
		p.Location = "global"
	}
	if p.TimeFrame == "" {
		p.TimeFrame = "2 years"
	}
	if p.InputType == "" {
		p.InputType = InputTopic
	}
	return p
}

// Validate fails fast on a missing query or out-of-range enums.
func (p ResearchParameters) Validate() error {
	if strings.TrimSpace(p.Query) == "" {
		return errx.Validation("research query is required")
	}
	switch p.Depth {
	case DepthBasic, DepthStandard, DepthDetailed:
	default:
		return errx.Validation(fmt.Sprintf("unsupported depth %q", p.Depth))
	}
	switch p.InputType {
	case InputTopic, InputCompany:
	default:
		return errx.Validation(fmt.Sprintf("unsupported input type %q", p.InputType))
	}
	return nil
}

// IsCompany reports whether the subject is a company.
func (p ResearchParameters) IsCompany() bool {
	return p.InputType == InputCompany
}

// StatusError marks an error-shaped ResearchResult.
const StatusError = "error"

// ResultMetadata annotates a research result for later debugging.
type ResultMetadata struct {
	ResearchID  string    `json:"research_id" yaml:"research_id"`
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp"`
	ElapsedTime float64   `json:"elapsed_time" yaml:"elapsed_time"`
	Model       string    `json:"model,omitempty" yaml:"model,omitempty"`
	Status      string    `json:"status,omitempty" yaml:"status,omitempty"`
}

// ResearchResult is the outcome of one pipeline run. On failure only Query,
// Parameters, Error and Metadata are set.
type ResearchResult struct {
	Query         string             `json:"query" yaml:"query"`
	Parameters    ResearchParameters `json:"parameters" yaml:"parameters"`
	RawData       string             `json:"raw_data,omitempty" yaml:"raw_data,omitempty"`
	Analysis      string             `json:"analysis,omitempty" yaml:"analysis,omitempty"`
	Verified      string             `json:"verified,omitempty" yaml:"verified,omitempty"`
	FinalReport   string             `json:"final_report,omitempty" yaml:"final_report,omitempty"`
	ResultSummary string             `json:"result_summary,omitempty" yaml:"result_summary,omitempty"`
	Error         string             `json:"error,omitempty" yaml:"error,omitempty"`
	Metadata      ResultMetadata     `json:"metadata" yaml:"metadata"`
}

// IsError reports whether the run failed.
func (r ResearchResult) IsError() bool {
	return r.Metadata.Status == StatusError
}

// ResultStore is the durable, write-once store for research results.
type ResultStore interface {
	// Save persists the result under researchID. A second save returns errx.ErrAlreadyExists.
	Save(ctx context.Context, researchID string, result ResearchResult) error

	// Load returns a stored result or errx.ErrNotFound.
	Load(ctx context.Context, researchID string) (ResearchResult, error)

	// List returns up to limit results, newest first.
	List(ctx context.Context, limit int) ([]ResultSummary, error)
}

// ResultSummary is a listing row of a stored result.
type ResultSummary struct {
	ResearchID string    `json:"research_id" yaml:"research_id"`
	Query      string    `json:"query" yaml:"query"`
	Status     string    `json:"status" yaml:"status"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
}

// CacheStore holds intermediate pipeline artifacts. Implementations sanitize keys
// and must accept concurrent writes under distinct keys.
type CacheStore interface {
	Put(ctx context.Context, key, value string) error
	// Get returns an errx cache-miss error when the key is absent.
	Get(ctx context.Context, key string) (string, error)
}

package model

import "time"

// ================ Config ================
type GenerationModelConfig struct {
	Model       string  `envconfig:"GENERATION_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"GENERATION_MAX_TOKENS" default:"8000"`
	Temperature float32 `envconfig:"GENERATION_TEMPERATURE" default:"0.7"`
	// ThinkingBudget of 0 disables model thinking.
	ThinkingBudget int32 `envconfig:"GENERATION_THINKING_BUDGET" default:"0"`
}

type DialogConfig struct {
	HistoryTurns int           `envconfig:"DIALOG_HISTORY_TURNS" default:"3"`
	SessionTTL   time.Duration `envconfig:"DIALOG_SESSION_TTL" default:"24h"`
}

type ResearchConfig struct {
	DefaultDepth     string `envconfig:"RESEARCH_DEFAULT_DEPTH" default:"detailed"`
	DefaultLocation  string `envconfig:"RESEARCH_DEFAULT_LOCATION" default:"global"`
	DefaultTimeFrame string `envconfig:"RESEARCH_DEFAULT_TIME_FRAME" default:"2 years"`
	VerifyQueries    int    `envconfig:"RESEARCH_VERIFY_QUERIES" default:"3"`
	VerifyScrapes    int    `envconfig:"RESEARCH_VERIFY_SCRAPES" default:"2"`
	VerifyParallel   int    `envconfig:"RESEARCH_VERIFY_PARALLELISM" default:"4"`
}

// Defaults converts the configured defaults into ParameterDefaults.
func (c ResearchConfig) Defaults() ParameterDefaults {
	return ParameterDefaults{
		Depth:     Depth(c.DefaultDepth),
		Location:  c.DefaultLocation,
		TimeFrame: c.DefaultTimeFrame,
	}
}

type StorageConfig struct {
	CacheBackend string        `envconfig:"CACHE_BACKEND" default:"file"`
	CacheTTL     time.Duration `envconfig:"CACHE_TTL" default:"168h"`
	DataDir      string        `envconfig:"DATA_DIR" default:"./data"`
	ResultStore  string        `envconfig:"RESULT_STORE" default:"sqlite"`
	SessionStore string        `envconfig:"SESSION_STORE" default:"memory"`
}

type ToolsConfig struct {
	SerperAPIKey  string        `envconfig:"SERPER_API_KEY"`
	SerperBaseURL string        `envconfig:"SERPER_BASE_URL" default:"https://google.serper.dev"`
	SearchResults int           `envconfig:"SEARCH_MAX_RESULTS" default:"10"`
	ScrapeBackend string        `envconfig:"SCRAPE_BACKEND" default:"http"`
	ScrapeMaxChar int           `envconfig:"SCRAPE_MAX_CHARS" default:"8000"`
	ScrapeTimeout time.Duration `envconfig:"SCRAPE_TIMEOUT" default:"30s"`
}

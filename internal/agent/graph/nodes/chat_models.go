package nodes

import (
	"context"
	"fmt"
	"strings"
	"sync"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/chative/market-research/internal/agent/model"
	errx "github.com/chative/market-research/internal/core/error"
	logx "github.com/chative/market-research/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey     string
	BaseURL    string
	Generation *model.GenerationModelConfig
}

// NewChatModel creates the Gemini chat model used for every generation call.
func NewChatModel(ctx context.Context, config ChatModelConfig) (*gemini.ChatModel, error) {
	if config.Generation == nil {
		return nil, errx.Validation("generation model config is nil")
	}
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, errx.Validation("GEMINI_API_KEY is required")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	gen := config.Generation
	thinking := &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(gen.ThinkingBudget)}
	if gen.ThinkingBudget > 0 {
		thinking.IncludeThoughts = true
	}

	chatModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:         client,
		Model:          gen.Model,
		Temperature:    &gen.Temperature,
		MaxTokens:      &gen.MaxTokens,
		ThinkingConfig: thinking,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating generation model")
		return nil, fmt.Errorf("error creating generation model: %w", err)
	}
	return chatModel, nil
}

// ChatGenerator adapts an Eino chat model to model.Generator and keeps a
// running usage total.
type ChatGenerator struct {
	chat      einomodel.BaseChatModel
	modelName string

	mu    sync.Mutex
	total model.Usage
}

// NewChatGenerator wraps chat. modelName is used for pricing.
func NewChatGenerator(chat einomodel.BaseChatModel, modelName string) *ChatGenerator {
	return &ChatGenerator{chat: chat, modelName: modelName, total: model.Usage{Model: modelName}}
}

// Generate sends roleContext as the system message and prompt as the user message.
func (g *ChatGenerator) Generate(ctx context.Context, prompt, roleContext string) (string, error) {
	msgs := make([]*schema.Message, 0, 2)
	if roleContext != "" {
		msgs = append(msgs, schema.SystemMessage(roleContext))
	}
	msgs = append(msgs, schema.UserMessage(prompt))

	out, err := g.chat.Generate(ctx, msgs)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", errx.Generation(err)
	}
	if out == nil {
		return "", errx.Generation(fmt.Errorf("model returned no message"))
	}
	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		g.record(out.ResponseMeta.Usage)
	}
	return out.Content, nil
}

func (g *ChatGenerator) record(u *schema.TokenUsage) {
	usage := model.ComputeUsage(g.modelName, u)

	g.mu.Lock()
	g.total.PromptTokens += usage.PromptTokens
	g.total.CompletionTokens += usage.CompletionTokens
	g.total.TotalTokens += usage.TotalTokens
	g.total.InputCostUSD += usage.InputCostUSD
	g.total.OutputCostUSD += usage.OutputCostUSD
	g.total.TotalCostUSD += usage.TotalCostUSD
	running := g.total.TotalCostUSD
	g.mu.Unlock()

	logx.Debug().
		Str("model", g.modelName).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Int("total_tokens", usage.TotalTokens).
		Float64("total_cost_usd", usage.TotalCostUSD).
		Float64("running_cost_usd", running).
		Msg("LLM usage")
}

// Usage returns the accumulated usage since construction.
func (g *ChatGenerator) Usage() model.Usage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.total
}

// ModelName is the configured model identifier.
func (g *ChatGenerator) ModelName() string {
	return g.modelName
}

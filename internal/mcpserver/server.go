// Package mcpserver exposes the research assistant as MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/chative/market-research/internal/agent/assistant"
	"github.com/chative/market-research/internal/agent/model"
	errx "github.com/chative/market-research/internal/core/error"
	logx "github.com/chative/market-research/pkg/logger"
)

// Assistant is the part of assistant.Service the tools call.
type Assistant interface {
	Handle(ctx context.Context, sessionID, utterance string) (assistant.Turn, error)
	Research(ctx context.Context, params model.ResearchParameters) (*assistant.ResearchOutcome, error)
	Result(ctx context.Context, researchID string) (*assistant.ResearchOutcome, error)
	Results(ctx context.Context, limit int) ([]model.ResultSummary, error)
	Reset(ctx context.Context, sessionID string) error
}

var _ Assistant = (*assistant.Service)(nil)

// Tools holds the handlers registered on the server.
type Tools struct {
	Assistant Assistant
	Defaults  model.ParameterDefaults
}

// --- Input types ---

type ResearchInput struct {
	Query     string `json:"query" jsonschema:"Topic or company to research"`
	Depth     string `json:"depth,omitempty" jsonschema:"basic, standard or detailed"`
	Location  string `json:"location,omitempty" jsonschema:"Geographic focus, e.g. global"`
	TimeFrame string `json:"time_frame,omitempty" jsonschema:"Time window, e.g. 2 years"`
	InputType string `json:"input_type,omitempty" jsonschema:"topic or company"`
}

type ChatInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"Conversation id; omit to start a new one"`
	Message   string `json:"message" jsonschema:"User message"`
}

type GetResultInput struct {
	ResearchID string `json:"research_id" jsonschema:"Id returned by a research run"`
}

type ListResultsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of results, newest first"`
}

type ResetInput struct {
	SessionID string `json:"session_id" jsonschema:"Conversation id to reset"`
}

// New creates the MCP server with every tool registered.
func New(t *Tools, version string) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "market-research",
		Version: version,
	}, nil)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "research",
		Description: "Run the full research pipeline on a topic or company and return the report",
	}, t.Research)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "chat",
		Description: "Send a message to the research assistant within a conversation",
	}, t.Chat)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_result",
		Description: "Load a stored research result by id",
	}, t.GetResult)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_results",
		Description: "List stored research results, newest first",
	}, t.ListResults)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "reset_session",
		Description: "Clear a conversation while keeping its id",
	}, t.ResetSession)

	return srv
}

// --- Handlers ---

func (t *Tools) Research(ctx context.Context, _ *mcp.CallToolRequest, in ResearchInput) (*mcp.CallToolResult, any, error) {
	params := model.ParametersFromQuery(in.Query, t.Defaults)
	if in.Depth != "" {
		params.Depth = model.Depth(in.Depth)
	}
	if in.Location != "" {
		params.Location = in.Location
	}
	if in.TimeFrame != "" {
		params.TimeFrame = in.TimeFrame
	}
	if in.InputType != "" {
		params.InputType = model.InputType(in.InputType)
	}

	out, err := t.Assistant.Research(ctx, params)
	if err != nil {
		return toolFailure(err), nil, nil
	}
	if out.Result.IsError() {
		return toolError("Research %s failed: %s", out.Result.Metadata.ResearchID, out.Result.Error), nil, nil
	}
	return toolJSON(out)
}

func (t *Tools) Chat(ctx context.Context, _ *mcp.CallToolRequest, in ChatInput) (*mcp.CallToolResult, any, error) {
	turn, err := t.Assistant.Handle(ctx, in.SessionID, in.Message)
	if err != nil {
		return toolFailure(err), nil, nil
	}
	return toolJSON(turn)
}

func (t *Tools) GetResult(ctx context.Context, _ *mcp.CallToolRequest, in GetResultInput) (*mcp.CallToolResult, any, error) {
	out, err := t.Assistant.Result(ctx, in.ResearchID)
	if errors.Is(err, errx.ErrNotFound) {
		return toolError("No research result with id %q", in.ResearchID), nil, nil
	}
	if err != nil {
		return toolFailure(err), nil, nil
	}
	return toolJSON(out)
}

func (t *Tools) ListResults(ctx context.Context, _ *mcp.CallToolRequest, in ListResultsInput) (*mcp.CallToolResult, any, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = 20
	}
	list, err := t.Assistant.Results(ctx, limit)
	if err != nil {
		return toolFailure(err), nil, nil
	}
	return toolJSON(map[string]any{"results": list})
}

func (t *Tools) ResetSession(ctx context.Context, _ *mcp.CallToolRequest, in ResetInput) (*mcp.CallToolResult, any, error) {
	if in.SessionID == "" {
		return toolError("session_id is required"), nil, nil
	}
	if err := t.Assistant.Reset(ctx, in.SessionID); err != nil {
		return toolFailure(err), nil, nil
	}
	return toolJSON(map[string]string{"session_id": in.SessionID, "status": "reset"})
}

// --- Helpers ---

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func toolFailure(err error) *mcp.CallToolResult {
	if errx.IsKind(err, errx.KindValidation) {
		return toolError("Invalid request: %v", err)
	}
	logx.Error().Err(err).Msg("Tool call failed")
	return toolError("%s: %v", errx.SystemErrorMessage, err)
}

func toolJSON(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError("Failed to marshal result: %v", err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

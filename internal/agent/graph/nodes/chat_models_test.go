package nodes

import (
	"context"
	"errors"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chative/market-research/internal/agent/model"
	errx "github.com/chative/market-research/internal/core/error"
)

type fakeChat struct {
	reply *schema.Message
	err   error
	got   []*schema.Message
}

func (f *fakeChat) Generate(_ context.Context, in []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	f.got = in
	return f.reply, f.err
}

func (f *fakeChat) Stream(context.Context, []*schema.Message, ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func TestChatGeneratorSendsRoleAndPrompt(t *testing.T) {
	chat := &fakeChat{reply: &schema.Message{
		Role:    schema.Assistant,
		Content: "answer",
		ResponseMeta: &schema.ResponseMeta{Usage: &schema.TokenUsage{
			PromptTokens: 1_000_000, CompletionTokens: 1_000_000, TotalTokens: 2_000_000,
		}},
	}}
	g := NewChatGenerator(chat, "gemini-2.5-flash")

	out, err := g.Generate(context.Background(), "question", RoleContext(RoleAnalyst))
	require.NoError(t, err)
	assert.Equal(t, "answer", out)

	require.Len(t, chat.got, 2)
	assert.Equal(t, schema.System, chat.got[0].Role)
	assert.Contains(t, chat.got[0].Content, "Data Analyst")
	assert.Equal(t, schema.User, chat.got[1].Role)
	assert.Equal(t, "question", chat.got[1].Content)

	u := g.Usage()
	assert.Equal(t, 2_000_000, u.TotalTokens)
	assert.InDelta(t, 2.80, u.TotalCostUSD, 1e-9)
}

func TestChatGeneratorOmitsEmptyRole(t *testing.T) {
	chat := &fakeChat{reply: schema.AssistantMessage("ok", nil)}
	_, err := NewChatGenerator(chat, "m").Generate(context.Background(), "p", "")
	require.NoError(t, err)
	require.Len(t, chat.got, 1)
}

func TestChatGeneratorWrapsErrors(t *testing.T) {
	chat := &fakeChat{err: errors.New("quota exceeded")}
	_, err := NewChatGenerator(chat, "m").Generate(context.Background(), "p", "r")
	require.Error(t, err)
	assert.True(t, errx.IsKind(err, errx.KindGeneration))

	chat = &fakeChat{}
	_, err = NewChatGenerator(chat, "m").Generate(context.Background(), "p", "r")
	assert.True(t, errx.IsKind(err, errx.KindGeneration))
}

func TestChatGeneratorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	chat := &fakeChat{err: errors.New("transport closed")}
	_, err := NewChatGenerator(chat, "m").Generate(ctx, "p", "r")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewChatModelValidates(t *testing.T) {
	_, err := NewChatModel(context.Background(), ChatModelConfig{})
	assert.True(t, errx.IsKind(err, errx.KindValidation))

	_, err = NewChatModel(context.Background(), ChatModelConfig{Generation: &model.GenerationModelConfig{Model: "m"}})
	assert.True(t, errx.IsKind(err, errx.KindValidation))
}

func TestRoleContextFallsBack(t *testing.T) {
	assert.Equal(t, RoleContext(RoleDialog), RoleContext("nobody"))
	assert.Contains(t, RoleContext(RoleVerifier), "Fact Checker")
	assert.Contains(t, RoleContext(RoleWriter), "Content Strategist")
	assert.Contains(t, RoleContext(RoleResearcher), "Research Specialist")
}

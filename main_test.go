package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/chative/market-research/internal/agent/assistant"
	"github.com/chative/market-research/internal/agent/dialog"
	"github.com/chative/market-research/internal/agent/graph/conversations"
	"github.com/chative/market-research/internal/agent/intent"
	"github.com/chative/market-research/internal/agent/model"
	"github.com/chative/market-research/internal/repo"
)

const testReport = `# Report
## Executive Summary
Demand is rising.
## Risks
- Supply`

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("RESULT_STORE", "file")
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "key", cfg.APIKey)
	assert.Equal(t, "file", cfg.Storage.ResultStore)
	assert.Equal(t, "file", cfg.Storage.CacheBackend)
	assert.Equal(t, "gemini-2.5-flash", cfg.Generation.Model)
	assert.Equal(t, 3, cfg.Dialog.HistoryTurns)
	assert.Equal(t, 24*time.Hour, cfg.Dialog.SessionTTL)
	assert.Equal(t, model.DepthDetailed, cfg.Research.Defaults().Depth)
}

func TestNewAppRequiresAPIKey(t *testing.T) {
	_, err := newApp(context.Background(), &AppConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestOpenResultStoreRejectsUnknownBackend(t *testing.T) {
	cfg := &AppConfig{Storage: model.StorageConfig{ResultStore: "postgres", DataDir: t.TempDir()}}
	_, err := newStoreApp(context.Background(), cfg)
	assert.ErrorContains(t, err, "unknown RESULT_STORE")
}

func TestParseFormat(t *testing.T) {
	f, err := parseFormat(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, formatJSON, f)
	_, err = parseFormat("xml")
	assert.Error(t, err)
}

func sampleResult() model.ResearchResult {
	return model.ResearchResult{
		Query:         "EV market",
		Parameters:    model.ResearchParameters{Query: "EV market"}.WithDefaults(),
		FinalReport:   testReport,
		ResultSummary: "Demand is rising.",
		Metadata:      model.ResultMetadata{ResearchID: "r-1", Timestamp: time.Now().UTC()},
	}
}

func TestWriteOutcomeFormats(t *testing.T) {
	out := assistant.NewOutcome(sampleResult())

	var text bytes.Buffer
	require.NoError(t, writeOutcome(&text, "text", out))
	assert.Contains(t, text.String(), "Research r-1: EV market")
	assert.Contains(t, text.String(), "Summary:\nDemand is rising.")
	assert.Contains(t, text.String(), "## risks\n- Supply")

	var js bytes.Buffer
	require.NoError(t, writeOutcome(&js, "json", out))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, "Demand is rising.", decoded["summary"])
	assert.Contains(t, decoded["sections"], "executive summary")

	var ym bytes.Buffer
	require.NoError(t, writeOutcome(&ym, "yaml", out))
	var node map[string]any
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &node))
	assert.Equal(t, "Demand is rising.", node["summary"])
	sections, ok := node["sections"].([]any)
	require.True(t, ok)
	assert.Len(t, sections, 2)
}

func TestWriteOutcomeError(t *testing.T) {
	r := model.ResearchResult{Query: "q", Error: "boom", Metadata: model.ResultMetadata{ResearchID: "r-2", Status: model.StatusError}}
	var buf bytes.Buffer
	require.NoError(t, writeOutcome(&buf, "text", assistant.NewOutcome(r)))
	assert.Contains(t, buf.String(), "Status: error\nError: boom")
}

func TestWriteSummaries(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSummaries(&buf, "text", nil))
	assert.Equal(t, "No research results yet.\n", buf.String())

	buf.Reset()
	list := []model.ResultSummary{{ResearchID: "r-1", Query: "EV market", Status: "success", CreatedAt: time.Now()}}
	require.NoError(t, writeSummaries(&buf, "text", list))
	assert.Contains(t, buf.String(), "r-1  EV market")
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestShowAndListCommands(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RESULT_STORE", "sqlite")
	t.Setenv("DATA_DIR", dir)
	t.Setenv("LOG_LEVEL", "error")

	store, err := repo.NewSQLiteResultStore(context.Background(), filepath.Join(dir, "research.db"))
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), "r-1", sampleResult()))
	require.NoError(t, store.Close())

	out, err := runCLI(t, "show", "r-1", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"research_id": "r-1"`)

	out, err = runCLI(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "r-1")
	assert.Contains(t, out, "EV market")

	_, err = runCLI(t, "show", "missing")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)
}

func TestRejectsUnknownFormat(t *testing.T) {
	_, err := runCLI(t, "list", "--format", "xml")
	assert.ErrorContains(t, err, "unknown output format")
}

type cannedResearcher struct{}

func (cannedResearcher) Run(_ context.Context, p model.ResearchParameters) (model.ResearchResult, error) {
	r := sampleResult()
	r.Query = p.Query
	return r, nil
}

func TestChatLoop(t *testing.T) {
	store, err := repo.NewFileResultStore(t.TempDir())
	require.NoError(t, err)
	svc, err := assistant.New(assistant.Config{
		Coordinator: dialog.NewCoordinator(intent.NewClassifier(nil, 0), nil, 0),
		Sessions:    conversations.NewSessionManager(repo.NewMemorySessionRepository()),
		Researcher:  cannedResearcher{},
		Store:       store,
	})
	require.NoError(t, err)

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	cmd.SetIn(strings.NewReader("hello\n\nresearch the EV market\nquit\nhello\n"))
	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, chatLoop(cmd, &app{assistant: svc}, "text", "s1"))
	text := out.String()
	assert.Contains(t, text, "Research r-1")
	assert.Contains(t, text, "Demand is rising.")
	assert.Equal(t, 1, strings.Count(text, "Research r-1"), "input after quit is ignored")
}

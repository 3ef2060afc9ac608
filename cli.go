package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/chative/market-research/internal/agent/assistant"
	"github.com/chative/market-research/internal/agent/model"
	"github.com/chative/market-research/internal/mcpserver"
	logx "github.com/chative/market-research/pkg/logger"
)

type rootOptions struct {
	envFile string
	format  string
	cfg     *AppConfig
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "market-research",
		Short: "Conversational market research assistant",
		Long: `market-research runs a five-stage research pipeline (refine, research,
analyze, verify, synthesize) on a topic or company and keeps every report in a
durable result store. The chat command wraps the pipeline in a conversation
that classifies each message and answers follow-up questions.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := parseFormat(opts.format); err != nil {
				return err
			}
			cfg, err := loadConfig(opts.envFile)
			if err != nil {
				return err
			}
			initLogger(cfg)
			opts.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().StringVarP(&opts.format, "format", "f", "text", "output format: text, json or yaml")

	root.AddCommand(
		newResearchCmd(opts),
		newChatCmd(opts),
		newShowCmd(opts),
		newListCmd(opts),
		newServeMCPCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newResearchCmd(opts *rootOptions) *cobra.Command {
	var depth, location, timeFrame, inputType string
	cmd := &cobra.Command{
		Use:   "research <query>",
		Short: "Run the research pipeline on a topic or company",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			params := model.ParametersFromQuery(strings.Join(args, " "), opts.cfg.Research.Defaults())
			if depth != "" {
				params.Depth = model.Depth(depth)
			}
			if location != "" {
				params.Location = location
			}
			if timeFrame != "" {
				params.TimeFrame = timeFrame
			}
			if inputType != "" {
				params.InputType = model.InputType(inputType)
			}

			out, err := a.assistant.Research(ctx, params)
			if err != nil {
				return err
			}
			u := a.generator.Usage()
			logx.Info().
				Int("prompt_tokens", u.PromptTokens).
				Int("completion_tokens", u.CompletionTokens).
				Float64("cost_usd", u.TotalCostUSD).
				Msg("Token usage")

			if err := writeOutcome(cmd.OutOrStdout(), opts.format, out); err != nil {
				return err
			}
			if out.Result.IsError() {
				return fmt.Errorf("research %s failed", out.Result.Metadata.ResearchID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&depth, "depth", "", "research depth: basic, standard or detailed")
	cmd.Flags().StringVar(&location, "location", "", "geographic focus")
	cmd.Flags().StringVar(&timeFrame, "time-frame", "", "time window, e.g. \"2 years\"")
	cmd.Flags().StringVar(&inputType, "input-type", "", "topic or company (default: company when the query ends with \"company\")")
	return cmd
}

func newChatCmd(opts *rootOptions) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the research assistant",
		Long:  `Reads one message per line from stdin. Type "exit" or "quit" to leave.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return chatLoop(cmd, a, opts.format, sessionID)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id to resume (default: new session)")
	return cmd
}

func chatLoop(cmd *cobra.Command, a *app, format, sessionID string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			fmt.Fprint(out, "> ")
			continue
		case "exit", "quit":
			return nil
		}

		turn, err := a.assistant.Handle(ctx, sessionID, line)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintln(out, "Error:", err)
			fmt.Fprint(out, "> ")
			continue
		}
		sessionID = turn.SessionID
		if err := writeTurn(out, format, turn); err != nil {
			return err
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <research-id>",
		Short: "Print a stored research result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newStoreApp(ctx, opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.store.Load(ctx, args[0])
			if err != nil {
				return err
			}
			return writeOutcome(cmd.OutOrStdout(), opts.format, assistant.NewOutcome(result))
		},
	}
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored research results, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newStoreApp(ctx, opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			list, err := a.store.List(ctx, limit)
			if err != nil {
				return err
			}
			return writeSummaries(cmd.OutOrStdout(), opts.format, list)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of results")
	return cmd
}

func newServeMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve-mcp",
		Short: "Serve the assistant as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := mcpserver.New(&mcpserver.Tools{
				Assistant: a.assistant,
				Defaults:  opts.cfg.Research.Defaults(),
			}, version)
			logx.Info().Str("version", version).Msg("MCP server starting (stdio)")
			return srv.Run(ctx, &mcp.StdioTransport{})
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

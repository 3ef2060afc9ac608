package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/chative/market-research/internal/agent/assistant"
	"github.com/chative/market-research/internal/agent/model"
)

type outputFormat string

const (
	formatText outputFormat = "text"
	formatJSON outputFormat = "json"
	formatYAML outputFormat = "yaml"
)

func parseFormat(s string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case formatText, formatJSON, formatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use text, json or yaml)", s)
	}
}

// writeStructured encodes v as JSON or YAML. It reports false for text.
func writeStructured(w io.Writer, format string, v any) (bool, error) {
	f, err := parseFormat(format)
	if err != nil {
		return false, err
	}
	switch f {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	}
	return false, nil
}

func writeOutcome(w io.Writer, format string, out *assistant.ResearchOutcome) error {
	if done, err := writeStructured(w, format, out); done || err != nil {
		return err
	}
	r := out.Result
	fmt.Fprintf(w, "Research %s: %s\n", r.Metadata.ResearchID, r.Query)
	if r.IsError() {
		fmt.Fprintf(w, "Status: error\nError: %s\n", r.Error)
		return nil
	}
	fmt.Fprintf(w, "Depth: %s | Location: %s | Time frame: %s | Type: %s | %.1fs\n\n",
		r.Parameters.Depth, r.Parameters.Location, r.Parameters.TimeFrame, r.Parameters.InputType, r.Metadata.ElapsedTime)
	if out.Summary != "" {
		fmt.Fprintf(w, "Summary:\n%s\n\n", out.Summary)
	}
	if out.Sections != nil && out.Sections.Len() > 0 {
		_, err := io.WriteString(w, out.Sections.Markdown())
		return err
	}
	_, err := fmt.Fprintln(w, r.FinalReport)
	return err
}

func writeTurn(w io.Writer, format string, turn assistant.Turn) error {
	if done, err := writeStructured(w, format, turn); done || err != nil {
		return err
	}
	fmt.Fprintln(w, turn.Reply)
	if turn.Research != nil {
		fmt.Fprintln(w)
		return writeOutcome(w, format, turn.Research)
	}
	return nil
}

func writeSummaries(w io.Writer, format string, list []model.ResultSummary) error {
	if done, err := writeStructured(w, format, list); done || err != nil {
		return err
	}
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "No research results yet.")
		return err
	}
	for _, s := range list {
		fmt.Fprintf(w, "%s  %-7s  %s  %s\n", s.CreatedAt.Local().Format("2006-01-02 15:04"), s.Status, s.ResearchID, s.Query)
	}
	return nil
}

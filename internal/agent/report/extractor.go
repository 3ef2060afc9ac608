// Package report turns markdown-like research reports into structured sections.
package report

import (
	"fmt"
	"strings"
)

// Extract splits a report into sections in a single pass over its lines.
//
// Blank lines are skipped and the "# " title is dropped. A "## " heading commits
// the open section (if it has content) and opens a new one named by the rest of
// the line, lower-cased. "### " headings stay inside the current section as a
// bold marker line. Content before the first "## " belongs to "overview".
//
// A repeated heading name never merges with or overwrites the earlier section:
// the later one is stored as "name (2)", "name (3)" and so on.
func Extract(report string) *Sections {
	out := newSections()
	current := DefaultSection
	var content []string

	commit := func() {
		if len(content) == 0 {
			return
		}
		out.set(uniqueName(out, current), content)
		content = nil
	}

	for _, raw := range strings.Split(report, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "# "):
			continue
		case strings.HasPrefix(line, "## "):
			commit()
			current = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "## ")))
		case strings.HasPrefix(line, "### "):
			content = append(content, "**"+strings.TrimSpace(strings.TrimPrefix(line, "### "))+"**")
		default:
			content = append(content, line)
		}
	}
	commit()
	return out
}

func uniqueName(s *Sections, name string) string {
	if !s.has(name) {
		return name
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", name, n)
		if !s.has(candidate) {
			return candidate
		}
	}
}

// Summary returns up to n lines suitable for a short spoken summary: the
// executive summary when present, otherwise the first section.
func Summary(s *Sections, n int) string {
	if lines, ok := s.Get("executive summary"); ok {
		return strings.Join(head(lines, n), "\n")
	}
	if _, lines, ok := s.First(); ok {
		return strings.Join(head(lines, n), "\n")
	}
	return ""
}

func head(lines []string, n int) []string {
	if n < len(lines) {
		return lines[:n]
	}
	return lines
}

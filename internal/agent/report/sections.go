package report

import (
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// DefaultSection collects content seen before the first "## " heading.
const DefaultSection = "overview"

// Sections is an ordered mapping of lower-cased section name to content lines.
// Iteration order is the order in which sections first appeared.
type Sections struct {
	m *orderedmap.OrderedMap[string, []string]
}

func newSections() *Sections {
	return &Sections{m: orderedmap.New[string, []string]()}
}

// Len returns the number of sections.
func (s *Sections) Len() int {
	if s == nil || s.m == nil {
		return 0
	}
	return s.m.Len()
}

// Names returns section names in first-seen order.
func (s *Sections) Names() []string {
	names := make([]string, 0, s.Len())
	if s.Len() == 0 {
		return names
	}
	for pair := s.m.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Get returns the lines of a section.
func (s *Sections) Get(name string) ([]string, bool) {
	if s.Len() == 0 {
		return nil, false
	}
	return s.m.Get(name)
}

// First returns the first section.
func (s *Sections) First() (string, []string, bool) {
	if s.Len() == 0 {
		return "", nil, false
	}
	p := s.m.Oldest()
	return p.Key, p.Value, true
}

// Each calls fn for every section in order.
func (s *Sections) Each(fn func(name string, lines []string)) {
	if s.Len() == 0 {
		return
	}
	for pair := s.m.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

// MarshalJSON renders the sections as a JSON object preserving order.
func (s *Sections) MarshalJSON() ([]byte, error) {
	if s.Len() == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(s.m)
}

// MarshalYAML renders the sections as an ordered list of single-key mappings.
func (s *Sections) MarshalYAML() (any, error) {
	out := make([]map[string][]string, 0, s.Len())
	s.Each(func(name string, lines []string) {
		out = append(out, map[string][]string{name: lines})
	})
	return out, nil
}

// Markdown serialises the sections back into report form, one "## " heading each.
func (s *Sections) Markdown() string {
	var b []byte
	s.Each(func(name string, lines []string) {
		b = append(b, "## "...)
		b = append(b, name...)
		b = append(b, '\n')
		for _, l := range lines {
			b = append(b, l...)
			b = append(b, '\n')
		}
	})
	return string(b)
}

func (s *Sections) set(name string, lines []string) {
	s.m.Set(name, lines)
}

func (s *Sections) has(name string) bool {
	_, ok := s.m.Get(name)
	return ok
}

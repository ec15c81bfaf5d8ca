package intent

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Domains used by the built-in handlers.
const (
	DomainCalendar     = "calendar"
	DomainConversation = "conversation"
)

// Target is something an intent can address by name.
type Target struct {
	ID      string
	Name    string
	Aliases []string
	Domain  string
}

// Matcher resolves spoken names to targets. Names compare after NFKC
// normalization, case folding and whitespace collapsing.
type Matcher struct {
	targets []Target
	keys    [][]string
}

// NewMatcher indexes targets in order; earlier targets win ties.
func NewMatcher(targets ...Target) *Matcher {
	m := &Matcher{}
	for _, t := range targets {
		m.Add(t)
	}
	return m
}

// Add registers another target.
func (m *Matcher) Add(t Target) {
	keys := []string{normalizeName(t.Name)}
	for _, a := range t.Aliases {
		keys = append(keys, normalizeName(a))
	}
	m.targets = append(m.targets, t)
	m.keys = append(m.keys, keys)
}

// Match returns the first target in domain whose name or alias equals name.
func (m *Matcher) Match(name, domain string) (Target, bool) {
	want := normalizeName(name)
	if want == "" {
		return Target{}, false
	}
	for i, t := range m.targets {
		if t.Domain != domain {
			continue
		}
		for _, k := range m.keys[i] {
			if k == want {
				return t, true
			}
		}
	}
	return Target{}, false
}

// Targets returns the registered targets of domain.
func (m *Matcher) Targets(domain string) []Target {
	var out []Target
	for _, t := range m.targets {
		if t.Domain == domain {
			out = append(out, t)
		}
	}
	return out
}

func normalizeName(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

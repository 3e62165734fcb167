package policy

import (
	"strings"

	"github.com/IGLOU-EU/go-wildcard/v2"
)

// Suppressor drops findings whose identity matches one of the configured patterns.
// Patterns follow go-wildcard syntax ("*" any run, "?" zero or one rune, "." exactly
// one rune) and are matched case-insensitively.
type Suppressor struct {
	patterns []string
}

// NewSuppressor builds a Suppressor, ignoring blank patterns.
func NewSuppressor(patterns []string) *Suppressor {
	s := &Suppressor{}
	for _, pattern := range patterns {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern != "" {
			s.patterns = append(s.patterns, pattern)
		}
	}
	return s
}

// Match returns the first pattern matching identity.
func (s *Suppressor) Match(identity string) (string, bool) {
	if s == nil || len(s.patterns) == 0 {
		return "", false
	}
	identity = strings.ToLower(strings.TrimSpace(identity))
	for _, pattern := range s.patterns {
		if wildcard.Match(pattern, identity) {
			return pattern, true
		}
	}
	return "", false
}

// Len returns the number of active patterns.
func (s *Suppressor) Len() int {
	if s == nil {
		return 0
	}
	return len(s.patterns)
}

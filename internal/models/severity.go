package models

import (
	"fmt"
	"strings"
)

// Severity is the scanner-reported severity of a finding.
type Severity string

const (
	SeverityUnknown  Severity = ""
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns an integer rank for comparison (Low=1, Critical=4, unknown=0).
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

func (s Severity) String() string {
	return string(s)
}

// AtLeast reports whether s ranks at or above min. Unknown severities never qualify.
func (s Severity) AtLeast(min Severity) bool {
	rank := s.Rank()
	return rank > 0 && rank >= min.Rank()
}

// ParseSeverity parses a configured severity case-insensitively. Only the four
// scale names are accepted.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	case "critical":
		return SeverityCritical, nil
	default:
		return SeverityUnknown, fmt.Errorf("invalid severity %q: expected low, medium, high or critical", s)
	}
}

// NormalizeSeverity maps scanner-reported values onto the scale, returning
// SeverityUnknown for anything outside it. Scanners say "moderate" for medium.
func NormalizeSeverity(s string) Severity {
	if strings.EqualFold(strings.TrimSpace(s), "moderate") {
		return SeverityMedium
	}
	sev, err := ParseSeverity(s)
	if err != nil {
		return SeverityUnknown
	}
	return sev
}

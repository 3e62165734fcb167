package models

import (
	"errors"
	"strings"
)

// SourceKind identifies which scanner format produced a record.
type SourceKind string

const (
	SourceZap            SourceKind = "zap"
	SourceSnykOpenSource SourceKind = "snyk-open-source"
	SourceSnykContainer  SourceKind = "snyk-container"
	SourceSnykIaC        SourceKind = "snyk-iac"
)

// Vulnerability is the scanner-agnostic representation of one finding.
type Vulnerability struct {
	// Identity is the dedup and tracker search key.
	Identity    string     `json:"identity"`
	Summary     string     `json:"summary"`
	Description string     `json:"description"`
	Severity    Severity   `json:"severity,omitempty"`
	RiskCode    int        `json:"riskCode,omitempty"`
	Source      SourceKind `json:"source"`

	// Open-source findings only.
	Package        string   `json:"package,omitempty"`
	CurrentVersion string   `json:"currentVersion,omitempty"`
	FixedVersions  []string `json:"fixedVersions,omitempty"`

	// IaC findings only.
	FilePath string `json:"filePath,omitempty"`
}

var (
	errMissingIdentity    = errors.New("vulnerability has no identity")
	errMissingSummary     = errors.New("vulnerability has no summary")
	errMissingDescription = errors.New("vulnerability has no description")
)

// Validate checks the fields every ticket needs.
func (v Vulnerability) Validate() error {
	switch {
	case strings.TrimSpace(v.Identity) == "":
		return errMissingIdentity
	case strings.TrimSpace(v.Summary) == "":
		return errMissingSummary
	case strings.TrimSpace(v.Description) == "":
		return errMissingDescription
	}
	return nil
}

// HasFix reports whether the scanner offered at least one fixed version.
func (v Vulnerability) HasFix() bool {
	for _, fixed := range v.FixedVersions {
		if strings.TrimSpace(fixed) != "" {
			return true
		}
	}
	return false
}

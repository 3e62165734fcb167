package snyk

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	internalerrors "github.com/rcourtman/scanticket/internal/errors"
	"github.com/rcourtman/scanticket/internal/models"
	"github.com/rcourtman/scanticket/internal/policy"
)

type iacTarget struct {
	TargetFile     string     `json:"targetFile"`
	TargetFilePath string     `json:"targetFilePath"`
	Issues         []iacIssue `json:"infrastructureAsCodeIssues"`
}

type iacIssue struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Severity       string         `json:"severity"`
	Issue          string         `json:"issue"`
	Impact         string         `json:"impact"`
	Resolve        string         `json:"resolve"`
	IaCDescription iacDescription `json:"iacDescription"`
	LineNumber     *int           `json:"lineNumber"`
	Documentation  string         `json:"documentation"`
}

type iacDescription struct {
	Issue   string `json:"issue"`
	Impact  string `json:"impact"`
	Resolve string `json:"resolve"`
}

func (t iacTarget) filePath() string {
	if path := strings.TrimSpace(t.TargetFilePath); path != "" {
		return path
	}
	return strings.TrimSpace(t.TargetFile)
}

func decodeIaCTargets(raw []byte) ([]iacTarget, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var target iacTarget
		if err := json.Unmarshal(raw, &target); err != nil {
			return nil, internalerrors.Parse("parse_snyk", fmt.Errorf("decode iac report: %w", err))
		}
		return []iacTarget{target}, nil
	}

	var targets []iacTarget
	if err := json.Unmarshal(raw, &targets); err != nil {
		return nil, internalerrors.Parse("parse_snyk", fmt.Errorf("decode iac report: %w", err))
	}
	return targets, nil
}

func (r *Result) addIaCIssues(target iacTarget, opts Options) {
	filePath := target.filePath()
	for _, issue := range target.Issues {
		r.Examined++
		severity := models.NormalizeSeverity(issue.Severity)
		if !policy.MeetsSeverity(severity, opts.MinSeverity) {
			continue
		}

		r.Records = append(r.Records, models.Vulnerability{
			Identity:    issue.Title,
			Summary:     issue.Title,
			Description: renderIaCDescription(issue, filePath),
			Severity:    severity,
			Source:      models.SourceSnykIaC,
			FilePath:    filePath,
		})
	}
}

// renderIaCDescription builds the ticket body for an IaC issue. Sections appear in a
// fixed order and are left out entirely when their value is absent.
func renderIaCDescription(issue iacIssue, filePath string) string {
	lineNumber := ""
	if issue.LineNumber != nil && *issue.LineNumber >= 0 {
		lineNumber = strconv.Itoa(*issue.LineNumber)
	}

	sections := []struct {
		label string
		value string
	}{
		{"Issue", firstNonEmpty(issue.Issue, issue.IaCDescription.Issue)},
		{"Impact", firstNonEmpty(issue.Impact, issue.IaCDescription.Impact)},
		{"Resolve", firstNonEmpty(issue.Resolve, issue.IaCDescription.Resolve)},
		{"File", filePath},
		{"Line Number", lineNumber},
		{"Documentation", strings.TrimSpace(issue.Documentation)},
	}

	rendered := make([]string, 0, len(sections))
	for _, section := range sections {
		if section.value == "" {
			continue
		}
		rendered = append(rendered, section.label+": "+section.value)
	}
	return strings.Join(rendered, "\n\n")
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}

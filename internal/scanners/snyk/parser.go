package snyk

import (
	"encoding/json"
	"fmt"
	"strings"

	internalerrors "github.com/rcourtman/scanticket/internal/errors"
	"github.com/rcourtman/scanticket/internal/models"
	"github.com/rcourtman/scanticket/internal/policy"
)

type snykVulnerability struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    string   `json:"severity"`
	PackageName string   `json:"packageName"`
	Version     string   `json:"version"`
	FixedIn     []string `json:"fixedIn"`
}

type snykProject struct {
	ProjectName     string              `json:"projectName"`
	Vulnerabilities []snykVulnerability `json:"vulnerabilities"`
}

type snykContainer struct {
	Vulnerabilities []snykVulnerability `json:"vulnerabilities"`
	Applications    []struct {
		Vulnerabilities []snykVulnerability `json:"vulnerabilities"`
	} `json:"applications"`
}

// Options controls which findings survive parsing.
type Options struct {
	// MinSeverity drops findings ranked below it. SeverityUnknown disables the cutoff.
	MinSeverity models.Severity
}

// Result is the outcome of parsing one Snyk report.
type Result struct {
	Variant  Variant
	Records  []models.Vulnerability
	Examined int
}

// Parse classifies a Snyk report and converts it into canonical records.
func Parse(raw []byte, opts Options) (*Result, error) {
	variant, err := Classify(raw)
	if err != nil {
		return nil, err
	}

	result := &Result{Variant: variant}
	switch variant {
	case VariantOpenSource:
		var projects []snykProject
		if err := json.Unmarshal(raw, &projects); err != nil {
			return nil, internalerrors.Parse("parse_snyk", fmt.Errorf("decode open-source report: %w", err))
		}
		for _, project := range projects {
			result.addVulnerabilities(project.Vulnerabilities, models.SourceSnykOpenSource, opts)
		}
	case VariantContainer:
		var container snykContainer
		if err := json.Unmarshal(raw, &container); err != nil {
			return nil, internalerrors.Parse("parse_snyk", fmt.Errorf("decode container report: %w", err))
		}
		result.addVulnerabilities(container.Vulnerabilities, models.SourceSnykContainer, opts)
		for _, app := range container.Applications {
			result.addVulnerabilities(app.Vulnerabilities, models.SourceSnykContainer, opts)
		}
	case VariantIaC:
		targets, err := decodeIaCTargets(raw)
		if err != nil {
			return nil, err
		}
		for _, target := range targets {
			result.addIaCIssues(target, opts)
		}
	}

	return result, nil
}

func (r *Result) addVulnerabilities(vulns []snykVulnerability, source models.SourceKind, opts Options) {
	for _, vuln := range vulns {
		r.Examined++
		severity := models.NormalizeSeverity(vuln.Severity)
		if !policy.MeetsSeverity(severity, opts.MinSeverity) {
			continue
		}

		description := vuln.Description
		if strings.TrimSpace(description) == "" {
			description = vuln.Title
		}

		r.Records = append(r.Records, models.Vulnerability{
			Identity:       vuln.Title,
			Summary:        vuln.Title,
			Description:    description,
			Severity:       severity,
			Source:         source,
			Package:        vuln.PackageName,
			CurrentVersion: vuln.Version,
			FixedVersions:  vuln.FixedIn,
		})
	}
}

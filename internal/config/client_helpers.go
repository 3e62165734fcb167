package config

import (
	"github.com/rcourtman/scanticket/internal/scanners"
	"github.com/rcourtman/scanticket/internal/ticket"
	"github.com/rcourtman/scanticket/pkg/jira"
)

// JiraClientConfig creates a jira.ClientConfig from the run configuration.
func (c *Config) JiraClientConfig() jira.ClientConfig {
	return jira.ClientConfig{
		Host:        c.JiraHost,
		Username:    c.JiraUsername,
		Token:       c.JiraToken,
		Enterprise:  c.Enterprise,
		Fingerprint: c.Fingerprint,
		VerifySSL:   c.VerifySSL,
		Timeout:     c.Timeout,
	}
}

// TicketSettings returns the values shared by every ticket in the run.
func (c *Config) TicketSettings() ticket.Settings {
	return ticket.Settings{
		ProjectKey:   c.ProjectKey,
		IssueType:    c.IssueType,
		TitlePrefix:  c.TitlePrefix,
		Labels:       c.Labels,
		Enterprise:   c.Enterprise,
		CustomFields: c.CustomFields,
	}
}

// ScannerOptions returns the adapter-level filters.
func (c *Config) ScannerOptions() scanners.Options {
	return scanners.Options{
		ZapRiskThreshold: c.ZapRiskThreshold,
		MinSeverity:      c.MinSeverity,
	}
}

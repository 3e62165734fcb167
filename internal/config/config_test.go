package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalerrors "github.com/rcourtman/scanticket/internal/errors"
	"github.com/rcourtman/scanticket/internal/models"
)

func baseInputs() map[string]string {
	return map[string]string{
		InputJiraHost:       "https://example.atlassian.net",
		InputJiraToken:      "token",
		InputJiraUsername:   "bot@example.com",
		InputJiraProjectKey: "SEC",
		InputJiraIssueType:  "Bug",
		InputScanType:       "zap",
		InputScanOutputPath: "report.json",
	}
}

func loadWith(t *testing.T, overrides map[string]string) (*Config, error) {
	t.Helper()
	inputs := baseInputs()
	for k, v := range overrides {
		inputs[k] = v
	}
	return Load(MapLookup(inputs))
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadWith(t, nil)
	require.NoError(t, err)

	assert.Equal(t, "zap", cfg.ScanType)
	assert.False(t, cfg.Enterprise)
	assert.True(t, cfg.VerifySSL)
	assert.True(t, cfg.AttachReport)
	assert.False(t, cfg.DryRun)
	assert.False(t, cfg.AbortOnTrackerError)
	assert.Equal(t, 0, cfg.ZapRiskThreshold)
	assert.Equal(t, models.SeverityUnknown, cfg.MinSeverity)
	assert.Equal(t, 60, cfg.SearchWindowDays)
	assert.Equal(t, []string{"Closed", "Cancelled"}, cfg.ExcludedStatuses)
	assert.Equal(t, DefaultJiraTimeout, cfg.Timeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "auto", cfg.LogFormat)
	assert.Empty(t, cfg.Labels)
	assert.Nil(t, cfg.CustomFields)
}

func TestLoadParsesInputs(t *testing.T) {
	cfg, err := loadWith(t, map[string]string{
		InputScanType:            "SNYK",
		InputJiraEnterprise:      "TRUE",
		InputJiraUsername:        "",
		InputJiraLabels:          "security, snyk,,security",
		InputCustomFields:        `{"customfield_10010":"team-a","priority":{"name":"High"}}`,
		InputMinSeverity:         "High",
		InputZapRiskCode:         "2",
		InputMajorVersionOnly:    "yes",
		InputSearchWindowDays:    "30",
		InputExcludedStatuses:    "Done, Won't Fix",
		InputSuppress:            "Cookie*, *: staging.example.com",
		InputAttachReport:        "false",
		InputDryRun:              "1",
		InputAbortOnTrackerError: "true",
		InputJiraVerifySSL:       "false",
		InputJiraTimeout:         "90",
		InputLogLevel:            "DEBUG",
		InputLogFormat:           "json",
	})
	require.NoError(t, err)

	assert.Equal(t, "snyk", cfg.ScanType)
	assert.True(t, cfg.Enterprise)
	assert.Equal(t, []string{"security", "snyk"}, cfg.Labels)
	assert.Equal(t, "team-a", cfg.CustomFields["customfield_10010"])
	assert.Equal(t, map[string]any{"name": "High"}, cfg.CustomFields["priority"])
	assert.Equal(t, models.SeverityHigh, cfg.MinSeverity)
	assert.Equal(t, 2, cfg.ZapRiskThreshold)
	assert.True(t, cfg.MajorVersionOnly)
	assert.Equal(t, 30, cfg.SearchWindowDays)
	assert.Equal(t, []string{"Done", "Won't Fix"}, cfg.ExcludedStatuses)
	assert.Equal(t, []string{"Cookie*", "*: staging.example.com"}, cfg.Suppress)
	assert.False(t, cfg.AttachReport)
	assert.True(t, cfg.DryRun)
	assert.True(t, cfg.AbortOnTrackerError)
	assert.False(t, cfg.VerifySSL)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]string
		wantExit  int
	}{
		{"unsupported scan type", map[string]string{InputScanType: "trivy"}, internalerrors.ExitScanType},
		{"missing scan type", map[string]string{InputScanType: ""}, internalerrors.ExitScanType},
		{"scan type checked before required inputs", map[string]string{InputScanType: "trivy", InputJiraHost: ""}, internalerrors.ExitScanType},
		{"invalid severity", map[string]string{InputMinSeverity: "severe"}, internalerrors.ExitConfiguration},
		{"invalid enterprise flag", map[string]string{InputJiraEnterprise: "yes"}, internalerrors.ExitConfiguration},
		{"invalid custom fields", map[string]string{InputCustomFields: `["not","an","object"]`}, internalerrors.ExitConfiguration},
		{"invalid risk code", map[string]string{InputZapRiskCode: "high"}, internalerrors.ExitConfiguration},
		{"negative risk code", map[string]string{InputZapRiskCode: "-1"}, internalerrors.ExitConfiguration},
		{"invalid window", map[string]string{InputSearchWindowDays: "sixty"}, internalerrors.ExitConfiguration},
		{"invalid timeout", map[string]string{InputJiraTimeout: "soon"}, internalerrors.ExitConfiguration},
		{"timeout too short", map[string]string{InputJiraTimeout: "10ms"}, internalerrors.ExitConfiguration},
		{"invalid log format", map[string]string{InputLogFormat: "xml"}, internalerrors.ExitConfiguration},
		{"missing host", map[string]string{InputJiraHost: ""}, internalerrors.ExitConfiguration},
		{"missing report path", map[string]string{InputScanOutputPath: " "}, internalerrors.ExitConfiguration},
		{"cloud without username", map[string]string{InputJiraUsername: ""}, internalerrors.ExitConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadWith(t, tt.overrides)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, internalerrors.ExitCode(err))
		})
	}
}

func TestChainPrecedence(t *testing.T) {
	env := map[string]string{
		"INPUT_JIRA-HOST":        "https://from-input.example.com",
		"JIRA_HOST":              "https://from-env.example.com",
		"JIRA_PROJECT_KEY":       "ENV",
		"INPUT_JIRA-PROJECT-KEY": "",
	}
	getenv := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	flags := MapLookup(map[string]string{InputJiraIssueType: "Task"})

	lookup := Chain(flags, ActionInputs(getenv), EnvVars(getenv))

	host, ok := lookup(InputJiraHost)
	assert.True(t, ok)
	assert.Equal(t, "https://from-input.example.com", host)

	// Blank action inputs fall through to the plain variable.
	project, ok := lookup(InputJiraProjectKey)
	assert.True(t, ok)
	assert.Equal(t, "ENV", project)

	issueType, ok := lookup(InputJiraIssueType)
	assert.True(t, ok)
	assert.Equal(t, "Task", issueType)

	_, ok = lookup(InputAssignee)
	assert.False(t, ok)

	// Flags win over both environment sources.
	lookup = Chain(MapLookup(map[string]string{InputJiraHost: "https://flag.example.com"}), ActionInputs(getenv), EnvVars(getenv))
	host, _ = lookup(InputJiraHost)
	assert.Equal(t, "https://flag.example.com", host)
}

func TestLoadFromProcessEnvironment(t *testing.T) {
	t.Setenv("INPUT_SCAN-TYPE", "snyk")
	t.Setenv("JIRA_HOST", "https://jira.internal")
	t.Setenv("JIRA_TOKEN", "pat")
	t.Setenv("IS_JIRA_ENTERPRISE", "true")
	t.Setenv("JIRA_PROJECT_KEY", "OPS")
	t.Setenv("JIRA_ISSUE_TYPE", "Task")
	t.Setenv("SCAN_OUTPUT_PATH", "snyk.json")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "snyk", cfg.ScanType)
	assert.True(t, cfg.Enterprise)
	assert.Equal(t, "OPS", cfg.ProjectKey)
}

func TestLoadAcceptsUnderscoreEnterpriseInput(t *testing.T) {
	t.Setenv("INPUT_SCAN-TYPE", "zap")
	t.Setenv("INPUT_JIRA-HOST", "https://jira.internal")
	t.Setenv("INPUT_JIRA-TOKEN", "pat")
	t.Setenv("INPUT_IS_JIRA_ENTERPRISE", "true")
	t.Setenv("INPUT_JIRA-PROJECT-KEY", "OPS")
	t.Setenv("INPUT_JIRA-ISSUE-TYPE", "Task")
	t.Setenv("INPUT_SCAN-OUTPUT-PATH", "zap.json")
	t.Setenv("IS_JIRA_ENTERPRISE", "")
	t.Setenv("INPUT_IS-JIRA-ENTERPRISE", "")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.True(t, cfg.Enterprise)

	cfg, err = loadWith(t, map[string]string{legacyInputJiraEnterprise: "true", InputJiraUsername: ""})
	require.NoError(t, err)
	assert.True(t, cfg.Enterprise)

	cfg, err = loadWith(t, map[string]string{legacyInputJiraEnterprise: "true", InputJiraEnterprise: "false"})
	require.NoError(t, err)
	assert.False(t, cfg.Enterprise)
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "ASSIGN_JIRA_TICKET_TO", EnvName(InputAssignee))
	assert.Equal(t, "IS_JIRA_ENTERPRISE", EnvName(InputJiraEnterprise))
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "ci.env")
	require.NoError(t, os.WriteFile(envFile, []byte("SCANTICKET_TEST_VALUE=from-file\n"), 0o600))

	// godotenv.Load sets os env vars directly, bypassing t.Setenv cleanup
	t.Cleanup(func() { os.Unsetenv("SCANTICKET_TEST_VALUE") })

	require.NoError(t, LoadEnvFile(envFile, true))
	assert.Equal(t, "from-file", os.Getenv("SCANTICKET_TEST_VALUE"))

	missing := filepath.Join(dir, "missing.env")
	assert.NoError(t, LoadEnvFile(missing, false))

	err := LoadEnvFile(missing, true)
	require.Error(t, err)
	assert.Equal(t, internalerrors.ExitConfiguration, internalerrors.ExitCode(err))
}

func TestHelpersMirrorConfig(t *testing.T) {
	cfg, err := loadWith(t, map[string]string{
		InputJiraLabels:  "a,b",
		InputZapRiskCode: "3",
	})
	require.NoError(t, err)

	jiraCfg := cfg.JiraClientConfig()
	assert.Equal(t, cfg.JiraHost, jiraCfg.Host)
	assert.Equal(t, cfg.JiraUsername, jiraCfg.Username)
	assert.Equal(t, cfg.Timeout, jiraCfg.Timeout)

	settings := cfg.TicketSettings()
	assert.Equal(t, "SEC", settings.ProjectKey)
	assert.Equal(t, []string{"a", "b"}, settings.Labels)

	assert.Equal(t, 3, cfg.ScannerOptions().ZapRiskThreshold)
}

func TestInputsCoverEveryName(t *testing.T) {
	seen := map[string]bool{}
	for _, input := range Inputs {
		assert.False(t, seen[input.Name], "duplicate input %s", input.Name)
		seen[input.Name] = true
		assert.NotEmpty(t, input.Usage)
	}
	assert.Len(t, Inputs, 27)
}

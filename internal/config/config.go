// Package config resolves the run configuration from CLI flags, GitHub Actions
// inputs and environment variables, in that order of precedence.
package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	internalerrors "github.com/rcourtman/scanticket/internal/errors"
	"github.com/rcourtman/scanticket/internal/models"
	"github.com/rcourtman/scanticket/internal/scanners"
	"github.com/rcourtman/scanticket/internal/ticket"
	"github.com/rcourtman/scanticket/internal/utils"
)

// Input names. Each is also a CLI flag, an INPUT_<NAME> action input and a
// <NAME_WITH_UNDERSCORES> environment variable.
const (
	InputJiraHost            = "jira-host"
	InputJiraToken           = "jira-token"
	InputJiraUsername        = "jira-username"
	InputJiraEnterprise      = "is-jira-enterprise"
	InputJiraProjectKey      = "jira-project-key"
	InputJiraIssueType       = "jira-issue-type"
	InputJiraTitlePrefix     = "jira-title-prefix"
	InputJiraLabels          = "jira-labels"
	InputAssignee            = "assign-jira-ticket-to"
	InputCustomFields        = "jira-custom-field-key-value"
	InputScanType            = "scan-type"
	InputMinSeverity         = "min-severity"
	InputZapRiskCode         = "zap-risk-code"
	InputMajorVersionOnly    = "major-version-only"
	InputScanOutputPath      = "scan-output-path"
	InputSearchWindowDays    = "search-window-days"
	InputExcludedStatuses    = "excluded-statuses"
	InputSuppress            = "suppress"
	InputAttachReport        = "attach-report"
	InputDryRun              = "dry-run"
	InputAbortOnTrackerError = "abort-on-tracker-error"
	InputJiraVerifySSL       = "jira-verify-ssl"
	InputJiraFingerprint     = "jira-fingerprint"
	InputJiraTimeout         = "jira-timeout"
	InputLogLevel            = "log-level"
	InputLogFormat           = "log-format"
	InputPushgatewayURL      = "pushgateway-url"

	// Older workflows spell the enterprise input with underscores.
	legacyInputJiraEnterprise = "is_jira_enterprise"
)

// Input documents one recognised input for flag registration and help output.
type Input struct {
	Name  string
	Usage string
}

// Inputs lists every recognised input in help order.
var Inputs = []Input{
	{InputJiraHost, "Jira base URL, e.g. https://example.atlassian.net"},
	{InputJiraToken, "Jira API token (cloud) or personal access token (enterprise)"},
	{InputJiraUsername, "Jira username for cloud basic auth"},
	{InputJiraEnterprise, "true for Jira Server/Data Center (bearer auth, username assignees)"},
	{InputJiraProjectKey, "project key tickets are created in"},
	{InputJiraIssueType, "issue type name, e.g. Bug"},
	{InputJiraTitlePrefix, "text prepended to every ticket summary"},
	{InputJiraLabels, "comma separated labels"},
	{InputAssignee, "username (enterprise) or account ID (cloud) to assign tickets to"},
	{InputCustomFields, "JSON object merged into the ticket fields"},
	{InputScanType, "report format: zap or snyk"},
	{InputMinSeverity, "lowest Snyk severity to report: low, medium, high or critical"},
	{InputZapRiskCode, "lowest ZAP riskcode to report (inclusive)"},
	{InputMajorVersionOnly, "only report open-source findings fixed by a major upgrade"},
	{InputScanOutputPath, "path to the scanner JSON report"},
	{InputSearchWindowDays, "only treat tickets created in the last N days as duplicates (0 disables)"},
	{InputExcludedStatuses, "comma separated statuses that do not count as open"},
	{InputSuppress, "comma separated wildcard patterns of identities to ignore"},
	{InputAttachReport, "attach the report file to created tickets"},
	{InputDryRun, "search but do not create tickets"},
	{InputAbortOnTrackerError, "stop at the first tracker error instead of continuing"},
	{InputJiraVerifySSL, "verify the Jira TLS certificate"},
	{InputJiraFingerprint, "pin the Jira TLS certificate to this SHA256 fingerprint"},
	{InputJiraTimeout, "per-request Jira timeout, e.g. 60s"},
	{InputLogLevel, "debug, info, warn or error"},
	{InputLogFormat, "auto, json or console"},
	{InputPushgatewayURL, "Prometheus Pushgateway URL for run metrics"},
}

const (
	DefaultJiraTimeout = 60 * time.Second
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "auto"
)

// Config is built once per run and treated as read-only afterwards.
type Config struct {
	// Tracker
	JiraHost     string
	JiraToken    string
	JiraUsername string
	Enterprise   bool
	VerifySSL    bool
	Fingerprint  string
	Timeout      time.Duration

	// Ticket contents
	ProjectKey   string
	IssueType    string
	TitlePrefix  string
	Labels       []string
	Assignee     string
	CustomFields map[string]any

	// Report and filtering
	ScanType         string
	ReportPath       string
	MinSeverity      models.Severity
	ZapRiskThreshold int
	MajorVersionOnly bool
	Suppress         []string

	// Duplicate search
	SearchWindowDays int
	ExcludedStatuses []string

	// Run behaviour
	AttachReport        bool
	DryRun              bool
	AbortOnTrackerError bool

	// Observability
	LogLevel       string
	LogFormat      string
	PushgatewayURL string
}

// Load builds a Config from lookup. The scan type is checked first so an
// unsupported scanner is reported as such even when other inputs are missing.
func Load(lookup Lookup) (*Config, error) {
	if lookup == nil {
		lookup = Chain(ActionInputs(nil), EnvVars(nil))
	}
	get := func(name string) string {
		value, _ := lookup(name)
		return strings.TrimSpace(value)
	}

	scanType := strings.ToLower(get(InputScanType))
	if !scanners.Supported(scanType) {
		return nil, internalerrors.ScanType(scanType)
	}

	cfg := &Config{
		JiraHost:         get(InputJiraHost),
		JiraToken:        get(InputJiraToken),
		JiraUsername:     get(InputJiraUsername),
		Fingerprint:      get(InputJiraFingerprint),
		ProjectKey:       get(InputJiraProjectKey),
		IssueType:        get(InputJiraIssueType),
		TitlePrefix:      get(InputJiraTitlePrefix),
		Labels:           ticket.ParseLabels(get(InputJiraLabels)),
		Assignee:         get(InputAssignee),
		ScanType:         scanType,
		ReportPath:       get(InputScanOutputPath),
		Suppress:         utils.SplitList(get(InputSuppress)),
		SearchWindowDays: ticket.DefaultSearchWindowDays,
		ExcludedStatuses: append([]string(nil), ticket.DefaultExcludedStatuses...),
		Timeout:          DefaultJiraTimeout,
		LogLevel:         DefaultLogLevel,
		LogFormat:        DefaultLogFormat,
		PushgatewayURL:   get(InputPushgatewayURL),
	}

	enterprise := get(InputJiraEnterprise)
	if enterprise == "" {
		enterprise = get(legacyInputJiraEnterprise)
	}

	var err error
	if cfg.Enterprise, err = parseStrictBool(InputJiraEnterprise, enterprise); err != nil {
		return nil, err
	}

	cfg.MajorVersionOnly = boolOr(get(InputMajorVersionOnly), false)
	cfg.AttachReport = boolOr(get(InputAttachReport), true)
	cfg.DryRun = boolOr(get(InputDryRun), false)
	cfg.AbortOnTrackerError = boolOr(get(InputAbortOnTrackerError), false)
	cfg.VerifySSL = boolOr(get(InputJiraVerifySSL), true)

	if raw := get(InputMinSeverity); raw != "" {
		if cfg.MinSeverity, err = models.ParseSeverity(raw); err != nil {
			return nil, internalerrors.Configuration("load_config", err)
		}
	}

	if raw := get(InputZapRiskCode); raw != "" {
		code, convErr := strconv.Atoi(raw)
		if convErr != nil || code < 0 {
			return nil, internalerrors.Configurationf("load_config", "invalid %s %q: expected a non-negative integer", InputZapRiskCode, raw)
		}
		cfg.ZapRiskThreshold = code
	}

	if raw := get(InputCustomFields); raw != "" {
		if err := json.Unmarshal([]byte(raw), &cfg.CustomFields); err != nil {
			return nil, internalerrors.Configuration("load_config", fmt.Errorf("invalid %s: expected a JSON object: %w", InputCustomFields, err))
		}
	}

	if raw := get(InputSearchWindowDays); raw != "" {
		days, convErr := strconv.Atoi(raw)
		if convErr != nil || days < 0 {
			return nil, internalerrors.Configurationf("load_config", "invalid %s %q: expected a non-negative integer", InputSearchWindowDays, raw)
		}
		cfg.SearchWindowDays = days
	}

	if raw := get(InputExcludedStatuses); raw != "" {
		cfg.ExcludedStatuses = utils.SplitList(raw)
	}

	if raw := get(InputJiraTimeout); raw != "" {
		if cfg.Timeout, err = parseTimeout(raw); err != nil {
			return nil, err
		}
	}

	if raw := get(InputLogLevel); raw != "" {
		cfg.LogLevel = strings.ToLower(raw)
	}
	if raw := get(InputLogFormat); raw != "" {
		cfg.LogFormat = strings.ToLower(raw)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required inputs and cross-field rules.
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{InputJiraHost, c.JiraHost},
		{InputJiraToken, c.JiraToken},
		{InputJiraProjectKey, c.ProjectKey},
		{InputJiraIssueType, c.IssueType},
		{InputScanOutputPath, c.ReportPath},
	}
	for _, input := range required {
		if input.value == "" {
			return internalerrors.Configurationf("validate_config", "missing required input %s (env %s)", input.name, EnvName(input.name))
		}
	}

	if !c.Enterprise && c.JiraUsername == "" {
		return internalerrors.Configurationf("validate_config", "%s is required for Jira Cloud; set %s=true for token-only enterprise auth", InputJiraUsername, InputJiraEnterprise)
	}

	switch c.LogFormat {
	case "auto", "json", "console":
	default:
		return internalerrors.Configurationf("validate_config", "invalid %s %q: expected auto, json or console", InputLogFormat, c.LogFormat)
	}

	if c.Timeout < time.Second {
		return internalerrors.Configurationf("validate_config", "%s must be at least 1s", InputJiraTimeout)
	}
	return nil
}

func parseStrictBool(name, raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "", "false":
		return false, nil
	case "true":
		return true, nil
	default:
		return false, internalerrors.Configurationf("load_config", "invalid %s %q: expected true or false", name, raw)
	}
}

func boolOr(raw string, def bool) bool {
	if raw == "" {
		return def
	}
	return utils.ParseBool(raw)
}

// parseTimeout accepts a Go duration ("90s") or a bare number of seconds.
func parseTimeout(raw string) (time.Duration, error) {
	if seconds, err := strconv.Atoi(raw); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, internalerrors.Configurationf("load_config", "invalid %s %q: %v", InputJiraTimeout, raw, err)
	}
	return d, nil
}

// Package ticket turns canonical findings into tracker issue payloads.
package ticket

import (
	"maps"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/rcourtman/scanticket/internal/models"
	"github.com/rcourtman/scanticket/internal/utils"
)

// Jira rejects summaries longer than this many characters.
const maxSummaryLength = 255

// Settings are the per-run values every ticket shares.
type Settings struct {
	ProjectKey   string
	IssueType    string
	TitlePrefix  string
	Labels       []string
	Enterprise   bool
	CustomFields map[string]any
}

// AssigneeRef is the user reference placed on a ticket. A nil Value leaves the
// ticket unassigned but still sends the field.
type AssigneeRef struct {
	Key   string
	Value *string
}

// Draft is a ticket ready to be sent to the tracker.
type Draft struct {
	ProjectKey   string
	Summary      string
	Description  string
	IssueType    string
	Assignee     AssigneeRef
	Labels       []string
	CustomFields map[string]any
}

// ParseLabels splits a comma separated label list into a de-duplicated set,
// keeping first-seen order.
func ParseLabels(raw string) []string {
	return lo.Uniq(utils.SplitList(raw))
}

// AssigneeKey is the user reference field name for the tracker dialect.
func AssigneeKey(enterprise bool) string {
	if enterprise {
		return "name"
	}
	return "accountId"
}

// Assemble builds the draft for a finding. An empty assignee leaves the ticket unassigned.
func Assemble(record models.Vulnerability, settings Settings, assignee string) Draft {
	ref := AssigneeRef{Key: AssigneeKey(settings.Enterprise)}
	if assignee != "" {
		ref.Value = &assignee
	}

	return Draft{
		ProjectKey:   settings.ProjectKey,
		Summary:      BuildSummary(settings.TitlePrefix, record.Summary),
		Description:  record.Description,
		IssueType:    settings.IssueType,
		Assignee:     ref,
		Labels:       append([]string(nil), settings.Labels...),
		CustomFields: maps.Clone(settings.CustomFields),
	}
}

// BuildSummary joins the prefix and summary with a single space.
func BuildSummary(prefix, summary string) string {
	prefix = strings.TrimSpace(prefix)
	summary = strings.TrimSpace(summary)

	out := summary
	if prefix != "" {
		out = prefix + " " + summary
	}
	if utf8.RuneCountInString(out) > maxSummaryLength {
		out = string([]rune(out)[:maxSummaryLength])
	}
	return out
}

// Fields renders the "fields" object of a create-issue request. Custom fields
// are applied last and replace any computed field with the same key.
func (d Draft) Fields() map[string]any {
	var assignee any
	if d.Assignee.Value != nil {
		assignee = *d.Assignee.Value
	}

	labels := d.Labels
	if labels == nil {
		labels = []string{}
	}

	fields := map[string]any{
		"project":     map[string]any{"key": d.ProjectKey},
		"summary":     d.Summary,
		"description": d.Description,
		"issuetype":   map[string]any{"name": d.IssueType},
		"assignee":    map[string]any{d.Assignee.Key: assignee},
		"labels":      labels,
	}
	maps.Copy(fields, d.CustomFields)
	return fields
}

package ticket

import (
	"fmt"
	"strings"
)

// DefaultSearchWindowDays bounds the duplicate search to recently created issues.
const DefaultSearchWindowDays = 60

// DefaultExcludedStatuses are the statuses of tickets that no longer count as open.
var DefaultExcludedStatuses = []string{"Closed", "Cancelled"}

var jqlEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// SearchQuery renders the JQL used to look for an open ticket for identity.
// A non-positive window drops the created clause; no statuses drops the status clause.
func SearchQuery(projectKey, identity string, windowDays int, excludedStatuses []string) string {
	clauses := []string{
		fmt.Sprintf(`project = %s`, quote(projectKey)),
		fmt.Sprintf(`summary ~ %s`, quote(identity)),
	}
	if windowDays > 0 {
		clauses = append(clauses, fmt.Sprintf(`created >= startOfDay("-%dd")`, windowDays))
	}

	quoted := make([]string, 0, len(excludedStatuses))
	for _, status := range excludedStatuses {
		if status = strings.TrimSpace(status); status != "" {
			quoted = append(quoted, quote(status))
		}
	}
	if len(quoted) > 0 {
		clauses = append(clauses, fmt.Sprintf(`status NOT IN (%s)`, strings.Join(quoted, ", ")))
	}

	return strings.Join(clauses, " AND ")
}

func quote(value string) string {
	return `"` + jqlEscaper.Replace(value) + `"`
}

package policy

import "github.com/rcourtman/scanticket/internal/models"

// MeetsSeverity reports whether a finding passes the minimum-severity cutoff.
// An unset cutoff admits everything, including findings without a severity.
func MeetsSeverity(severity, cutoff models.Severity) bool {
	if cutoff == models.SeverityUnknown {
		return true
	}
	return severity.AtLeast(cutoff)
}

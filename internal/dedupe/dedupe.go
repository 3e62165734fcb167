// Package dedupe collapses findings that share an identity within one run.
package dedupe

import (
	"github.com/samber/lo"

	"github.com/rcourtman/scanticket/internal/models"
)

// ByIdentity keeps the first record for each distinct identity, in order of first occurrence.
func ByIdentity(records []models.Vulnerability) []models.Vulnerability {
	if len(records) == 0 {
		return nil
	}
	return lo.UniqBy(records, func(v models.Vulnerability) string {
		return v.Identity
	})
}

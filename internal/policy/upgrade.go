package policy

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rcourtman/scanticket/internal/models"
	"github.com/rcourtman/scanticket/internal/utils"
)

// Pre-compiled so the per-finding checks do not recompile it.
var versionShapeRe = regexp.MustCompile(`^(\d+)\.\d+\.\d+`)

// UpgradeDecision explains why a finding passed or failed the major-only gate.
type UpgradeDecision struct {
	Allowed   bool
	Candidate string
	Reason    string
}

// IsMajorUpgrade reports whether candidate bumps the leading version component of current.
// Both values must look like N.N.N (an optional "v" prefix and any suffix are tolerated).
func IsMajorUpgrade(current, candidate string) bool {
	currentMajor, ok := leadingComponent(current)
	if !ok {
		return false
	}
	candidateMajor, ok := leadingComponent(candidate)
	if !ok {
		return false
	}
	return candidateMajor > currentMajor
}

// BestFixVersion picks the first entry of the fix versions sorted descending as strings.
// This is not semantic-version ordering: "9.0.0" sorts above "10.0.0".
func BestFixVersion(fixed []string) (string, bool) {
	candidates := make([]string, 0, len(fixed))
	for _, version := range fixed {
		if version = strings.TrimSpace(version); version != "" {
			candidates = append(candidates, version)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Sort(sort.Reverse(sort.StringSlice(candidates)))
	return candidates[0], true
}

// EvaluateMajorOnly applies the major-only gate to a finding. Only Snyk open-source
// findings carry versions; every other source passes untouched.
func EvaluateMajorOnly(v models.Vulnerability) UpgradeDecision {
	if v.Source != models.SourceSnykOpenSource {
		return UpgradeDecision{Allowed: true, Reason: "not an open-source finding"}
	}

	if !v.HasFix() {
		return UpgradeDecision{Reason: "no fixed version available"}
	}
	candidate, _ := BestFixVersion(v.FixedVersions)
	if !IsMajorUpgrade(v.CurrentVersion, candidate) {
		return UpgradeDecision{Candidate: candidate, Reason: "fix is not a major version upgrade"}
	}
	return UpgradeDecision{Allowed: true, Candidate: candidate, Reason: "major version upgrade"}
}

func leadingComponent(version string) (int, bool) {
	matches := versionShapeRe.FindStringSubmatch(utils.NormalizeVersion(version))
	if len(matches) == 0 {
		return 0, false
	}
	major, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, false
	}
	return major, true
}

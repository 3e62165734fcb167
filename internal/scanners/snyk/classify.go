package snyk

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	internalerrors "github.com/rcourtman/scanticket/internal/errors"
)

// Variant is the Snyk report sub-format detected from the top-level JSON shape.
type Variant string

const (
	VariantOpenSource Variant = "open-source"
	VariantContainer  Variant = "container"
	VariantIaC        Variant = "iac"
)

const (
	keyVulnerabilities = "vulnerabilities"
	keyIaCIssues       = "infrastructureAsCodeIssues"
)

var (
	errEmptyReport    = errors.New("report is empty")
	errUnknownShape   = errors.New("unrecognised snyk report shape")
	errMixedArray     = errors.New("report mixes open-source and infrastructure-as-code projects")
	errUnexpectedJSON = errors.New("report must be a JSON object or array")
)

// Classify inspects the top-level shape of a Snyk report.
//
//	[{vulnerabilities: ...}, ...]             open-source (one entry per project)
//	[{infrastructureAsCodeIssues: ...}, ...]  iac (one entry per target file)
//	{vulnerabilities: ..., applications: ...} container
//	{infrastructureAsCodeIssues: ...}         iac (single target)
//	[]                                        open-source, nothing to report
func Classify(raw []byte) (Variant, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", internalerrors.Parse("classify_snyk", errEmptyReport)
	}

	switch trimmed[0] {
	case '[':
		var elements []map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &elements); err != nil {
			return "", internalerrors.Parse("classify_snyk", fmt.Errorf("invalid snyk json: %w", err))
		}
		return classifyArray(elements)
	case '{':
		var object map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &object); err != nil {
			return "", internalerrors.Parse("classify_snyk", fmt.Errorf("invalid snyk json: %w", err))
		}
		switch {
		case has(object, keyIaCIssues):
			return VariantIaC, nil
		case has(object, keyVulnerabilities):
			return VariantContainer, nil
		default:
			return "", internalerrors.Parse("classify_snyk", errUnknownShape)
		}
	default:
		return "", internalerrors.Parse("classify_snyk", errUnexpectedJSON)
	}
}

func classifyArray(elements []map[string]json.RawMessage) (Variant, error) {
	if len(elements) == 0 {
		return VariantOpenSource, nil
	}

	var variant Variant
	for i, element := range elements {
		var current Variant
		// IaC projects also carry an empty vulnerabilities list, so check them first.
		switch {
		case has(element, keyIaCIssues):
			current = VariantIaC
		case has(element, keyVulnerabilities):
			current = VariantOpenSource
		default:
			return "", internalerrors.Parse("classify_snyk", fmt.Errorf("%w: element %d", errUnknownShape, i))
		}

		if variant == "" {
			variant = current
			continue
		}
		if variant != current {
			return "", internalerrors.Parse("classify_snyk", errMixedArray)
		}
	}
	return variant, nil
}

func has(object map[string]json.RawMessage, key string) bool {
	value, ok := object[key]
	return ok && !bytes.Equal(bytes.TrimSpace(value), []byte("null"))
}

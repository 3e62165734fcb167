// Package scanners selects the report adapter for a scan type.
package scanners

import (
	"strings"

	internalerrors "github.com/rcourtman/scanticket/internal/errors"
	"github.com/rcourtman/scanticket/internal/models"
	"github.com/rcourtman/scanticket/internal/scanners/snyk"
	"github.com/rcourtman/scanticket/internal/scanners/zap"
)

// Supported scan types.
const (
	TypeZap  = "zap"
	TypeSnyk = "snyk"
)

// Options carries the adapter-level filters from configuration.
type Options struct {
	ZapRiskThreshold int
	MinSeverity      models.Severity
}

// Result is the adapter output in a scanner-independent form.
type Result struct {
	Records  []models.Vulnerability
	Examined int
	// Variant names the detected report format, e.g. "zap" or "snyk/iac".
	Variant string
}

// Supported reports whether scanType names a known adapter.
func Supported(scanType string) bool {
	switch normalize(scanType) {
	case TypeZap, TypeSnyk:
		return true
	default:
		return false
	}
}

// Parse dispatches raw to the adapter for scanType.
func Parse(scanType string, raw []byte, opts Options) (*Result, error) {
	switch normalize(scanType) {
	case TypeZap:
		res, err := zap.Parse(raw, opts.ZapRiskThreshold)
		if err != nil {
			return nil, err
		}
		return &Result{Records: res.Records, Examined: res.Examined, Variant: TypeZap}, nil
	case TypeSnyk:
		res, err := snyk.Parse(raw, snyk.Options{MinSeverity: opts.MinSeverity})
		if err != nil {
			return nil, err
		}
		return &Result{Records: res.Records, Examined: res.Examined, Variant: TypeSnyk + "/" + string(res.Variant)}, nil
	default:
		return nil, internalerrors.ScanType(scanType)
	}
}

func normalize(scanType string) string {
	return strings.ToLower(strings.TrimSpace(scanType))
}

package scanners

import (
	"testing"

	internalerrors "github.com/rcourtman/scanticket/internal/errors"
	"github.com/rcourtman/scanticket/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDispatchesZap(t *testing.T) {
	raw := []byte(`{"site":[{"@host":"example.com","alerts":[
		{"name":"Low","riskcode":"1","desc":"d","solution":"s","instances":[]},
		{"name":"High","riskcode":"3","desc":"d","solution":"s","instances":[]}
	]}]}`)

	result, err := Parse("ZAP", raw, Options{ZapRiskThreshold: 2})
	require.NoError(t, err)
	assert.Equal(t, "zap", result.Variant)
	assert.Equal(t, 2, result.Examined)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "High: example.com", result.Records[0].Identity)
}

func TestParseDispatchesSnyk(t *testing.T) {
	raw := []byte(`{"vulnerabilities":[{"title":"CVE","description":"d","severity":"medium"}]}`)

	result, err := Parse(" snyk ", raw, Options{MinSeverity: models.SeverityLow})
	require.NoError(t, err)
	assert.Equal(t, "snyk/container", result.Variant)
	require.Len(t, result.Records, 1)
}

func TestParseUnknownScanType(t *testing.T) {
	_, err := Parse("trivy", []byte(`{}`), Options{})
	require.Error(t, err)
	assert.True(t, internalerrors.IsKind(err, internalerrors.KindScanType))
	assert.Equal(t, internalerrors.ExitScanType, internalerrors.ExitCode(err))

	assert.False(t, Supported("trivy"))
	assert.True(t, Supported("Snyk"))
}

func TestParsePropagatesParseErrors(t *testing.T) {
	_, err := Parse("zap", []byte(`not json`), Options{})
	require.Error(t, err)
	assert.Equal(t, internalerrors.ExitParse, internalerrors.ExitCode(err))
}

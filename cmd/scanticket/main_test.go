package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	internalerrors "github.com/rcourtman/scanticket/internal/errors"
)

const zapFixture = "../../internal/scanners/zap/testdata/zap_report.json"

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// isolateEnv blanks inputs the host environment might carry.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"JIRA_HOST", "JIRA_TOKEN", "JIRA_USERNAME", "SCAN_TYPE", "INPUT_SCAN-TYPE", "INPUT_JIRA-HOST"} {
		t.Setenv(name, "")
	}
}

func baseArgs(host string) []string {
	return []string{
		"--jira-host", host,
		"--jira-token", "secret",
		"--jira-username", "bot@example.com",
		"--jira-project-key", "SEC",
		"--jira-issue-type", "Bug",
		"--scan-output-path", zapFixture,
		"--env-file", filepath.Join("testdata", "missing.env"),
		"--log-format", "json",
	}
}

func TestVersionCommand(t *testing.T) {
	code, stdout, _ := runCLI(t, "version")
	assert.Equal(t, internalerrors.ExitOK, code)
	assert.Contains(t, stdout, "scanticket "+Version)
}

func TestUnsupportedScanTypeExitCode(t *testing.T) {
	isolateEnv(t)
	code, _, stderr := runCLI(t, "--scan-type", "trivy")
	assert.Equal(t, internalerrors.ExitScanType, code)
	assert.Contains(t, stderr, "trivy")
}

func TestMissingHostExitCode(t *testing.T) {
	isolateEnv(t)
	code, _, stderr := runCLI(t, "run", "--scan-type", "zap", "--jira-token", "secret")
	assert.Equal(t, internalerrors.ExitConfiguration, code)
	assert.Contains(t, stderr, "jira-host")
}

func TestUnknownFlagExitCode(t *testing.T) {
	code, _, _ := runCLI(t, "--no-such-flag")
	assert.Equal(t, internalerrors.ExitConfiguration, code)
}

func TestMissingExplicitEnvFile(t *testing.T) {
	isolateEnv(t)
	args := append([]string{"--scan-type", "zap"}, baseArgs("jira.example.com")...)
	code, _, _ := runCLI(t, args...)
	assert.Equal(t, internalerrors.ExitConfiguration, code)
}

func TestRunCreatesTicketsAgainstServer(t *testing.T) {
	isolateEnv(t)

	var mu sync.Mutex
	var created, attached int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case r.URL.Path == "/rest/api/2/search":
			fmt.Fprint(w, `{"total":0,"issues":[]}`)
		case r.URL.Path == "/rest/api/2/issue" && r.Method == http.MethodPost:
			created++
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{"id":"%d","key":"SEC-%d"}`, created, created)
		case strings.HasSuffix(r.URL.Path, "/attachments"):
			attached++
			fmt.Fprint(w, `[]`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	args := baseArgs(server.URL)
	// Drop the explicit env file so the default lookup applies.
	args = args[:len(args)-4]
	args = append(args, "--log-format", "json", "--log-level", "debug", "--scan-type", "zap", "--zap-risk-code", "3")

	code, _, stderr := runCLI(t, append([]string{"run"}, args...)...)
	assert.Equal(t, internalerrors.ExitOK, code, stderr)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, attached)
	assert.Contains(t, stderr, "Scan ticket run finished")
	assert.Contains(t, stderr, "Run metrics")
	assert.Contains(t, stderr, "scanticket_tickets_total{outcome=created}")
}

func TestRunReportsTrackerFailure(t *testing.T) {
	isolateEnv(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	args := baseArgs(server.URL)
	args = args[:len(args)-4]
	args = append(args, "--scan-type", "zap", "--zap-risk-code", "3")

	code, _, _ := runCLI(t, args...)
	assert.Equal(t, internalerrors.ExitTracker, code)
}

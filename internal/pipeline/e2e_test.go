package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcourtman/scanticket/pkg/jira"
)

// fakeJira is a minimal Jira REST v2 server recording the requests it receives.
type fakeJira struct {
	mu       sync.Mutex
	requests []string
	created  []map[string]any
	open     map[string]bool // summaries with an open ticket
}

func (f *fakeJira) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)

	switch {
	case r.URL.Path == "/rest/api/2/search":
		jql := r.URL.Query().Get("jql")
		for summary := range f.open {
			if strings.Contains(jql, `summary ~ "`+summary+`"`) {
				fmt.Fprint(w, `{"total":1,"issues":[{"key":"SEC-1","fields":{"status":{"name":"To Do"}}}]}`)
				return
			}
		}
		fmt.Fprint(w, `{"total":0,"issues":[]}`)
	case r.URL.Path == "/rest/api/2/user":
		w.WriteHeader(http.StatusNotFound)
	case r.URL.Path == "/rest/api/2/issue" && r.Method == http.MethodPost:
		var payload struct {
			Fields map[string]any `json:"fields"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.created = append(f.created, payload.Fields)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"id":"%d","key":"SEC-%d","self":"x"}`, 100+len(f.created), 100+len(f.created))
	case r.Method == http.MethodPost && filepath.Base(r.URL.Path) == "attachments":
		if r.Header.Get("X-Atlassian-Token") != "no-check" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprint(w, `[]`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestEndToEndAgainstJiraServer(t *testing.T) {
	server := &fakeJira{open: map[string]bool{"Prototype Pollution": true}}
	srv := httptest.NewServer(server)
	defer srv.Close()

	reportPath := filepath.Join(t.TempDir(), "snyk.json")
	require.NoError(t, os.WriteFile(reportPath, []byte(snykReport), 0o600))

	cfg := testConfig("snyk")
	cfg.JiraHost = srv.URL
	cfg.ReportPath = reportPath
	cfg.Assignee = "ghost"
	cfg.CustomFields = map[string]any{"customfield_10010": "appsec"}

	client, err := jira.NewClient(cfg.JiraClientConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	summary, err := New(cfg, client).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"Prototype Pollution"}, summary.Existing)
	assert.Equal(t, []string{"SEC-101", "SEC-102"}, summary.Created)
	assert.Zero(t, summary.AttachmentFailures)

	require.Len(t, server.created, 2)
	first := server.created[0]
	assert.Equal(t, "[Scan] Regular Expression Denial of Service", first["summary"])
	assert.Equal(t, map[string]any{"accountId": nil}, first["assignee"])
	assert.Equal(t, "appsec", first["customfield_10010"])
	assert.Equal(t, []any{"security"}, first["labels"])

	assert.Contains(t, server.requests, "POST /rest/api/2/issue/SEC-101/attachments")
}

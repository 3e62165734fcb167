package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	internalerrors "github.com/rcourtman/scanticket/internal/errors"
	"github.com/rcourtman/scanticket/pkg/tlsutil"
)

const apiPath = "/rest/api/2"

// Client talks to the Jira REST API v2. Cloud deployments authenticate with
// HTTP Basic (username + API token); enterprise (Server/Data Center) deployments
// use a personal access token sent as a Bearer token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	config     ClientConfig
}

type ClientConfig struct {
	Host        string
	Username    string
	Token       string
	Enterprise  bool
	Fingerprint string
	VerifySSL   bool
	Timeout     time.Duration
}

// Issue is the subset of a search hit the pipeline reports on.
type Issue struct {
	ID     string `json:"id"`
	Key    string `json:"key"`
	Self   string `json:"self"`
	Fields struct {
		Summary string `json:"summary"`
		Status  struct {
			Name string `json:"name"`
		} `json:"status"`
	} `json:"fields"`
}

type searchResponse struct {
	Total  int     `json:"total"`
	Issues []Issue `json:"issues"`
}

// CreatedIssue is the body of a 201 response to issue creation.
type CreatedIssue struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Self string `json:"self"`
}

func NewClient(cfg ClientConfig) (*Client, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return nil, internalerrors.Configurationf("new_jira_client", "jira host is required")
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, internalerrors.Configurationf("new_jira_client", "jira token is required")
	}
	if !cfg.Enterprise && strings.TrimSpace(cfg.Username) == "" {
		return nil, internalerrors.Configurationf("new_jira_client", "jira username is required for cloud authentication")
	}

	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	if strings.HasPrefix(host, "http://") {
		log.Warn().Str("host", host).Msg("Using HTTP for Jira connection - credentials are sent in clear text")
	}
	if _, err := url.Parse(host); err != nil {
		return nil, internalerrors.Configuration("new_jira_client", fmt.Errorf("invalid jira host: %w", err))
	}

	httpClient := tlsutil.NewHTTPClient(tlsutil.ClientOptions{
		VerifySSL:   cfg.VerifySSL,
		Fingerprint: cfg.Fingerprint,
		Timeout:     cfg.Timeout,
	})
	if cfg.Enterprise {
		httpClient = &http.Client{
			Timeout: httpClient.Timeout,
			Transport: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"}),
				Base:   httpClient.Transport,
			},
		}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(host, "/") + apiPath,
		httpClient: httpClient,
		config:     cfg,
	}, nil
}

// Enterprise reports which dialect the client speaks.
func (c *Client) Enterprise() bool {
	return c.config.Enterprise
}

func (c *Client) newRequest(ctx context.Context, method, path string, params url.Values, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}

	if params != nil {
		req.URL.RawQuery = params.Encode()
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if !c.config.Enterprise {
		req.SetBasicAuth(c.config.Username, c.config.Token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("%w: %w", internalerrors.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %w", internalerrors.ErrConnectionFailed, err)
	}
	return resp, nil
}

func (c *Client) request(ctx context.Context, method, path string, params url.Values, body io.Reader, contentType string) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, path, params, body, contentType)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

// UserExists looks a user up by username (enterprise) or account ID (cloud).
// A 404 is a definite "no"; any other non-200 outcome is returned as a lookup error.
func (c *Client) UserExists(ctx context.Context, id string) (bool, error) {
	params := url.Values{}
	if c.config.Enterprise {
		params.Set("username", id)
	} else {
		params.Set("accountId", id)
	}

	resp, err := c.request(ctx, http.MethodGet, "/user", params, nil, "")
	if err != nil {
		return false, internalerrors.New(internalerrors.KindLookup, "lookup_user", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return true, nil
	case http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		lookupErr := internalerrors.UnexpectedStatus("lookup_user", resp.StatusCode, string(body))
		lookupErr.Kind = internalerrors.KindLookup
		return false, lookupErr
	}
}

// SearchIssues runs a JQL query and returns the matching issues.
func (c *Client) SearchIssues(ctx context.Context, jql string) ([]Issue, error) {
	params := url.Values{}
	params.Set("jql", jql)
	params.Set("maxResults", "1")
	params.Set("fields", "summary,status")

	resp, err := c.request(ctx, http.MethodGet, "/search", params, nil, "")
	if err != nil {
		return nil, internalerrors.Tracker("search_issues", err, 0)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, internalerrors.UnexpectedStatus("search_issues", resp.StatusCode, string(body))
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, internalerrors.Tracker("search_issues", fmt.Errorf("failed to decode response: %w", err), resp.StatusCode)
	}
	return result.Issues, nil
}

// CreateIssue posts {"fields": fields} and expects 201 Created.
func (c *Client) CreateIssue(ctx context.Context, fields map[string]any) (*CreatedIssue, error) {
	payload, err := json.Marshal(map[string]any{"fields": fields})
	if err != nil {
		return nil, internalerrors.New(internalerrors.KindInternal, "create_issue", fmt.Errorf("encode issue: %w", err))
	}

	resp, err := c.request(ctx, http.MethodPost, "/issue", nil, bytes.NewReader(payload), "application/json")
	if err != nil {
		return nil, internalerrors.Tracker("create_issue", err, 0)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, internalerrors.UnexpectedStatus("create_issue", resp.StatusCode, string(body))
	}

	var created CreatedIssue
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, internalerrors.Tracker("create_issue", fmt.Errorf("failed to decode response: %w", err), resp.StatusCode)
	}
	return &created, nil
}

// AddAttachment uploads content as a multipart "file" part on the given issue.
func (c *Client) AddAttachment(ctx context.Context, issueKey, filename string, content io.Reader) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return internalerrors.New(internalerrors.KindAttachment, "add_attachment", err).WithIdentity(issueKey)
	}
	if _, err := io.Copy(part, content); err != nil {
		return internalerrors.New(internalerrors.KindAttachment, "add_attachment", fmt.Errorf("read attachment: %w", err)).WithIdentity(issueKey)
	}
	if err := writer.Close(); err != nil {
		return internalerrors.New(internalerrors.KindAttachment, "add_attachment", err).WithIdentity(issueKey)
	}

	path := "/issue/" + url.PathEscape(issueKey) + "/attachments"
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, &buf, writer.FormDataContentType())
	if err != nil {
		return internalerrors.New(internalerrors.KindAttachment, "add_attachment", err).WithIdentity(issueKey)
	}
	req.Header.Set("X-Atlassian-Token", "no-check")

	resp, err := c.do(req)
	if err != nil {
		return internalerrors.New(internalerrors.KindAttachment, "add_attachment", err).WithIdentity(issueKey)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		attachErr := internalerrors.UnexpectedStatus("add_attachment", resp.StatusCode, string(body)).WithIdentity(issueKey)
		attachErr.Kind = internalerrors.KindAttachment
		return attachErr
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// String hides credentials when the client is logged.
func (c *Client) String() string {
	return "jira(" + c.baseURL + ", enterprise=" + strconv.FormatBool(c.config.Enterprise) + ")"
}

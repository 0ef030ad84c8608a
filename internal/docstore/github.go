package docstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultGitHubAPI = "https://api.github.com"

type GitHubConfig struct {
	BaseURL string // defaults to the public API
	Owner   string
	Repo    string
	Path    string
	Branch  string
	Token   string
	// Message is the commit message for writes.
	Message string
}

// GitHub stores the document as a file in a repository through the contents
// API. The blob sha is the version token.
type GitHub struct {
	cfg    GitHubConfig
	client *http.Client
}

func NewGitHub(cfg GitHubConfig, client *http.Client) *GitHub {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGitHubAPI
	}
	if cfg.Message == "" {
		cfg.Message = "Update " + cfg.Path
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &GitHub{cfg: cfg, client: client}
}

type contentsResponse struct {
	SHA      string `json:"sha"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type putResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

func (g *GitHub) contentsURL() string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		strings.TrimRight(g.cfg.BaseURL, "/"),
		url.PathEscape(g.cfg.Owner), url.PathEscape(g.cfg.Repo), g.cfg.Path)
}

func (g *GitHub) newRequest(ctx context.Context, method, u string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if g.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.Token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (g *GitHub) Read(ctx context.Context) (Revision, error) {
	u := g.contentsURL()
	if g.cfg.Branch != "" {
		u += "?ref=" + url.QueryEscape(g.cfg.Branch)
	}
	req, err := g.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Revision{}, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return Revision{}, fmt.Errorf("github get contents: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Revision{}, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return Revision{}, statusError("get contents", resp)
	}

	var cr contentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return Revision{}, fmt.Errorf("decode contents response: %w", err)
	}
	if cr.Encoding != "" && cr.Encoding != "base64" {
		return Revision{}, fmt.Errorf("github: unsupported content encoding %q", cr.Encoding)
	}
	content, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(cr.Content, "\n", ""))
	if err != nil {
		return Revision{}, fmt.Errorf("decode content: %w", err)
	}
	return Revision{Content: content, Version: cr.SHA}, nil
}

func (g *GitHub) Write(ctx context.Context, content []byte, expectedVersion string) (string, error) {
	body, err := json.Marshal(putRequest{
		Message: g.cfg.Message,
		Content: base64.StdEncoding.EncodeToString(content),
		SHA:     expectedVersion,
		Branch:  g.cfg.Branch,
	})
	if err != nil {
		return "", fmt.Errorf("encode put request: %w", err)
	}
	req, err := g.newRequest(ctx, http.MethodPut, g.contentsURL(), bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("github put contents: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusConflict, http.StatusUnprocessableEntity:
		// 409 for a sha mismatch, 422 when the file exists but no sha was sent.
		return "", fmt.Errorf("github put contents: %w", ErrStale)
	default:
		return "", statusError("put contents", resp)
	}

	var pr putResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return "", fmt.Errorf("decode put response: %w", err)
	}
	return pr.Content.SHA, nil
}

func statusError(op string, resp *http.Response) error {
	var body struct {
		Message string `json:"message"`
	}
	json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)
	if body.Message != "" {
		return fmt.Errorf("github %s: %s: %s", op, resp.Status, body.Message)
	}
	return fmt.Errorf("github %s: %s", op, resp.Status)
}

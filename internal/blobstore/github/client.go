// Package github stores the profile document on GitHub, either as a file in
// a Gist or as a file in a repository (contents API).
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/neubio/neubio/internal/blobstore"
	"github.com/neubio/neubio/pkg/apperrors"
)

const (
	DefaultAPIURL = "https://api.github.com"
	userAgent     = "neubio"
	apiVersion    = "2022-11-28"
)

const (
	DefaultBranch        = "main"
	DefaultCommitMessage = "Update profile data via neubio"
	DefaultDescription   = "neubio profile data"
	DefaultRepoName      = "neubio-data"
)

// Options are shared by both GitHub backends.
type Options struct {
	APIURL string
	// Timeout for each request; zero means none.
	Timeout time.Duration
	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client

	// Private creates secret gists and private repositories.
	Private bool
	// Description of created gists.
	Description string

	// Contents API only.
	Branch        string
	CommitMessage string
	RepoName      string
}

func (o Options) withDefaults() Options {
	if o.Description == "" {
		o.Description = DefaultDescription
	}
	if o.Branch == "" {
		o.Branch = DefaultBranch
	}
	if o.CommitMessage == "" {
		o.CommitMessage = DefaultCommitMessage
	}
	if o.RepoName == "" {
		o.RepoName = DefaultRepoName
	}
	return o
}

type client struct {
	base  string
	token string
	http  *http.Client
}

func newClient(token string, opts Options) *client {
	base := strings.TrimRight(opts.APIURL, "/")
	if base == "" {
		base = DefaultAPIURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &client{base: base, token: token, http: hc}
}

// apiError is GitHub's error body.
type apiError struct {
	Message string `json:"message"`
}

// do sends one request and decodes a JSON response into out (when non-nil).
// Reads carry a cache buster. The response header is returned for callers
// that inspect it (scopes).
func (c *client) do(ctx context.Context, op, method, path string, query url.Values, body, out interface{}) (http.Header, error) {
	if query == nil {
		query = url.Values{}
	}
	if method == http.MethodGet {
		query.Set("t", blobstore.CacheBuster())
	}
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.Validation, op, "encode request")
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Validation, op, "build request")
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Cache-Control", "no-cache")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Unavailable, op, "")
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.Header, apperrors.Wrap(err, apperrors.Unavailable, op, "read response")
	}

	if kind := statusKind(resp.StatusCode, data); kind != "" {
		var ae apiError
		_ = json.Unmarshal(data, &ae)
		detail := ae.Message
		if detail == "" {
			detail = http.StatusText(resp.StatusCode)
		}
		return resp.Header, apperrors.Newf(kind, op, "%s %s: %d %s", method, path, resp.StatusCode, detail)
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.Header, apperrors.Wrap(err, apperrors.Unavailable, op, "decode response")
		}
	}
	return resp.Header, nil
}

// statusKind maps a status to a kind. GitHub answers a stale sha on the
// contents API with 409, or with 422 "... does not match ...".
func statusKind(status int, body []byte) apperrors.Kind {
	if status == http.StatusUnprocessableEntity {
		var ae apiError
		if json.Unmarshal(body, &ae) == nil && strings.Contains(ae.Message, "does not match") {
			return apperrors.Conflict
		}
	}
	return apperrors.FromStatus(status)
}

// splitRepo parses "owner/repo".
func splitRepo(container string) (string, string, error) {
	owner, repo, ok := strings.Cut(container, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", apperrors.Newf(apperrors.Validation, "container", "want owner/repo, got %q", container)
	}
	return owner, repo, nil
}

func requireToken(token, op string) error {
	if token == "" {
		return apperrors.New(apperrors.Unauthorized, op, "no credential")
	}
	return nil
}

var errNoContainer = errors.New("container id is empty")

func requireContainer(container, op string) error {
	if container == "" {
		return apperrors.Wrap(errNoContainer, apperrors.Validation, op, "")
	}
	return nil
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}

func contentsPath(owner, repo, path string) string {
	return fmt.Sprintf("/repos/%s/%s/contents/%s", url.PathEscape(owner), url.PathEscape(repo), escapePath(path))
}

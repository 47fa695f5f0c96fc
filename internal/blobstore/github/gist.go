package github

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/neubio/neubio/internal/blobstore"
	"github.com/neubio/neubio/pkg/apperrors"
)

// GistStore keeps the document as one file of a Gist. The container is the
// gist id and the revision is the latest history version.
//
// The Gist API has no conditional update, so a non-empty expected revision
// is compared against a fresh read right before the PATCH.
type GistStore struct {
	c    *client
	opts Options
}

var (
	_ blobstore.Store = (*GistStore)(nil)
)

func NewGistStore(token string, opts Options) *GistStore {
	return &GistStore{c: newClient(token, opts), opts: opts.withDefaults()}
}

// GistFactory returns a blobstore.Factory building gist stores.
func GistFactory(opts Options) blobstore.Factory {
	return func(credential string) blobstore.Store { return NewGistStore(credential, opts) }
}

type gistFile struct {
	Filename  string `json:"filename,omitempty"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated,omitempty"`
	RawURL    string `json:"raw_url,omitempty"`
}

type gist struct {
	ID      string              `json:"id"`
	Files   map[string]gistFile `json:"files"`
	History []struct {
		Version string `json:"version"`
	} `json:"history"`
}

func (g *gist) revision() blobstore.Revision {
	if len(g.History) == 0 {
		return ""
	}
	return blobstore.Revision(g.History[0].Version)
}

func (s *GistStore) get(ctx context.Context, op, id string) (*gist, error) {
	if err := requireContainer(id, op); err != nil {
		return nil, err
	}
	var g gist
	if _, err := s.c.do(ctx, op, http.MethodGet, "/gists/"+id, nil, nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *GistStore) ReadBlob(ctx context.Context, container, name string) (blobstore.Blob, error) {
	g, err := s.get(ctx, "read", container)
	if err != nil {
		return blobstore.Blob{}, err
	}
	f, ok := g.Files[name]
	if !ok {
		return blobstore.Blob{}, apperrors.Newf(apperrors.NotFound, "read", "gist %s has no file %s", container, name)
	}
	content := []byte(f.Content)
	if f.Truncated && f.RawURL != "" {
		if content, err = s.raw(ctx, f.RawURL); err != nil {
			return blobstore.Blob{}, err
		}
	}
	return blobstore.Blob{Content: content, Revision: g.revision()}, nil
}

// raw fetches a truncated file body.
func (s *GistStore) raw(ctx context.Context, rawURL string) ([]byte, error) {
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL+sep+"t="+blobstore.CacheBuster(), nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Validation, "read", "raw url")
	}
	req.Header.Set("Cache-Control", "no-cache")
	resp, err := s.c.http.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Unavailable, "read", "raw content")
	}
	defer resp.Body.Close()
	if kind := apperrors.FromStatus(resp.StatusCode); kind != "" {
		return nil, apperrors.Newf(kind, "read", "raw content: %d", resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Unavailable, "read", "raw content")
	}
	return b, nil
}

func (s *GistStore) WriteBlob(ctx context.Context, container, name string, content []byte, expected blobstore.Revision) (blobstore.Revision, error) {
	if err := requireToken(s.c.token, "write"); err != nil {
		return "", err
	}
	cur, err := s.get(ctx, "write", container)
	if err != nil {
		return "", err
	}
	if expected != "" && cur.revision() != expected {
		return "", apperrors.Newf(apperrors.Conflict, "write", "expected revision %s, gist is at %s", expected, cur.revision())
	}

	body := map[string]interface{}{
		"files": map[string]gistFile{name: {Content: string(content)}},
	}
	var out gist
	if _, err := s.c.do(ctx, "write", http.MethodPatch, "/gists/"+container, nil, body, &out); err != nil {
		return "", err
	}
	return out.revision(), nil
}

func (s *GistStore) CreateContainer(ctx context.Context, name string, content []byte) (string, error) {
	if err := requireToken(s.c.token, "create"); err != nil {
		return "", err
	}
	body := map[string]interface{}{
		"description": s.opts.Description,
		"public":      !s.opts.Private,
		"files":       map[string]gistFile{name: {Content: string(content)}},
	}
	var out gist
	if _, err := s.c.do(ctx, "create", http.MethodPost, "/gists", nil, body, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", apperrors.New(apperrors.Unavailable, "create", "gist id missing from response")
	}
	return out.ID, nil
}

// Verify reads the authenticated user. Classic tokens list their scopes in
// X-OAuth-Scopes and must carry "gist"; fine-grained tokens send no header.
func (s *GistStore) Verify(ctx context.Context, _ string) error {
	if err := requireToken(s.c.token, "verify"); err != nil {
		return err
	}
	h, err := s.c.do(ctx, "verify", http.MethodGet, "/user", nil, nil, nil)
	if err != nil {
		return err
	}
	if scopes, ok := h["X-Oauth-Scopes"]; ok && !hasScope(strings.Join(scopes, ","), "gist") {
		return apperrors.New(apperrors.Unauthorized, "verify", "token lacks the gist scope")
	}
	return nil
}

func hasScope(header, want string) bool {
	for _, s := range strings.Split(header, ",") {
		if strings.TrimSpace(s) == want {
			return true
		}
	}
	return false
}

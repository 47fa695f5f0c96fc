package github

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/neubio/neubio/internal/blobstore"
	"github.com/neubio/neubio/pkg/apperrors"
)

// ContentsStore keeps the document as a file in a repository. The container
// is "owner/repo" and the revision is the file's blob sha, which GitHub
// checks on every PUT.
type ContentsStore struct {
	c    *client
	opts Options
}

var (
	_ blobstore.Store         = (*ContentsStore)(nil)
	_ blobstore.AssetUploader = (*ContentsStore)(nil)
)

func NewContentsStore(token string, opts Options) *ContentsStore {
	return &ContentsStore{c: newClient(token, opts), opts: opts.withDefaults()}
}

// ContentsFactory returns a blobstore.Factory building repository stores.
func ContentsFactory(opts Options) blobstore.Factory {
	return func(credential string) blobstore.Store { return NewContentsStore(credential, opts) }
}

type contentFile struct {
	SHA         string `json:"sha"`
	Content     string `json:"content"`
	Encoding    string `json:"encoding"`
	DownloadURL string `json:"download_url"`
}

type putResponse struct {
	Content contentFile `json:"content"`
}

func (s *ContentsStore) get(ctx context.Context, op, container, path string) (*contentFile, error) {
	owner, repo, err := splitRepo(container)
	if err != nil {
		return nil, err
	}
	var f contentFile
	q := url.Values{"ref": {s.opts.Branch}}
	if _, err := s.c.do(ctx, op, http.MethodGet, contentsPath(owner, repo, path), q, nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *ContentsStore) ReadBlob(ctx context.Context, container, name string) (blobstore.Blob, error) {
	f, err := s.get(ctx, "read", container, name)
	if err != nil {
		return blobstore.Blob{}, err
	}
	if f.Encoding != "" && f.Encoding != "base64" {
		return blobstore.Blob{}, apperrors.Newf(apperrors.Unavailable, "read", "unexpected encoding %q", f.Encoding)
	}
	content, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(f.Content, "\n", ""))
	if err != nil {
		return blobstore.Blob{}, apperrors.Wrap(err, apperrors.Unavailable, "read", "decode content")
	}
	return blobstore.Blob{Content: content, Revision: blobstore.Revision(f.SHA)}, nil
}

func (s *ContentsStore) WriteBlob(ctx context.Context, container, name string, content []byte, expected blobstore.Revision) (blobstore.Revision, error) {
	f, err := s.put(ctx, "write", container, name, content, expected)
	if err != nil {
		return "", err
	}
	return blobstore.Revision(f.SHA), nil
}

// put writes path. An empty expected sha is discovered with a GET; a
// missing file is created.
func (s *ContentsStore) put(ctx context.Context, op, container, path string, content []byte, expected blobstore.Revision) (*contentFile, error) {
	if err := requireToken(s.c.token, op); err != nil {
		return nil, err
	}
	owner, repo, err := splitRepo(container)
	if err != nil {
		return nil, err
	}
	sha := string(expected)
	if sha == "" {
		cur, err := s.get(ctx, op, container, path)
		switch {
		case err == nil:
			sha = cur.SHA
		case !apperrors.IsKind(err, apperrors.NotFound):
			return nil, err
		}
	}

	body := map[string]string{
		"message": s.opts.CommitMessage,
		"content": base64.StdEncoding.EncodeToString(content),
		"branch":  s.opts.Branch,
	}
	if sha != "" {
		body["sha"] = sha
	}
	var out putResponse
	if _, err := s.c.do(ctx, op, http.MethodPut, contentsPath(owner, repo, path), nil, body, &out); err != nil {
		return nil, err
	}
	return &out.Content, nil
}

type repoInfo struct {
	FullName    string `json:"full_name"`
	Permissions struct {
		Push bool `json:"push"`
	} `json:"permissions"`
}

// CreateContainer creates the configured repository under the token's user
// and commits the first version of the blob.
func (s *ContentsStore) CreateContainer(ctx context.Context, name string, content []byte) (string, error) {
	if err := requireToken(s.c.token, "create"); err != nil {
		return "", err
	}
	body := map[string]interface{}{
		"name":        s.opts.RepoName,
		"description": s.opts.Description,
		"private":     s.opts.Private,
		"auto_init":   true,
	}
	var info repoInfo
	if _, err := s.c.do(ctx, "create", http.MethodPost, "/user/repos", nil, body, &info); err != nil {
		return "", err
	}
	if info.FullName == "" {
		return "", apperrors.New(apperrors.Unavailable, "create", "repository name missing from response")
	}
	if _, err := s.put(ctx, "create", info.FullName, name, content, ""); err != nil {
		return "", err
	}
	return info.FullName, nil
}

// Verify reads the repository and requires push permission. Without a
// container it only checks that the token authenticates.
func (s *ContentsStore) Verify(ctx context.Context, container string) error {
	if err := requireToken(s.c.token, "verify"); err != nil {
		return err
	}
	if container == "" {
		_, err := s.c.do(ctx, "verify", http.MethodGet, "/user", nil, nil, nil)
		return err
	}
	owner, repo, err := splitRepo(container)
	if err != nil {
		return err
	}
	var info repoInfo
	if _, err := s.c.do(ctx, "verify", http.MethodGet, "/repos/"+url.PathEscape(owner)+"/"+url.PathEscape(repo), nil, nil, &info); err != nil {
		return err
	}
	if !info.Permissions.Push {
		return apperrors.Newf(apperrors.Unauthorized, "verify", "token cannot push to %s", container)
	}
	return nil
}

// UploadAsset commits an image under images/ and returns its download URL.
func (s *ContentsStore) UploadAsset(ctx context.Context, container, name string, content []byte) (string, error) {
	if !strings.HasPrefix(mimetype.Detect(content).String(), "image/") {
		return "", apperrors.New(apperrors.Validation, "upload", "asset is not an image")
	}
	f, err := s.put(ctx, "upload", container, "images/"+name, content, "")
	if err != nil {
		return "", err
	}
	return f.DownloadURL, nil
}

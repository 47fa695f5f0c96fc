package syncer

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/neubio/neubio/internal/blobstore"
	"github.com/neubio/neubio/internal/document"
	"github.com/neubio/neubio/pkg/apperrors"
)

// Snapshotter supplies the bootstrap document used when no remote copy can
// be read.
type Snapshotter interface {
	Load(ctx context.Context) ([]byte, error)
}

// Snapshot loads the bootstrap document from a URL, else a file, else the
// built-in seed.
type Snapshot struct {
	URL        string
	Path       string
	HTTPClient *http.Client
}

func (s Snapshot) Load(ctx context.Context) ([]byte, error) {
	switch {
	case s.URL != "":
		return s.fetch(ctx)
	case s.Path != "":
		b, err := os.ReadFile(s.Path)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.NotFound, "snapshot", s.Path)
		}
		return b, nil
	}
	return document.DefaultSeed(), nil
}

func (s Snapshot) fetch(ctx context.Context) ([]byte, error) {
	u, err := url.Parse(s.URL)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Validation, "snapshot", "bad url")
	}
	q := u.Query()
	q.Set("t", blobstore.CacheBuster())
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Validation, "snapshot", "")
	}
	req.Header.Set("Cache-Control", "no-cache")
	hc := s.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Unavailable, "snapshot", "")
	}
	defer resp.Body.Close()
	if kind := apperrors.FromStatus(resp.StatusCode); kind != "" {
		return nil, apperrors.Newf(kind, "snapshot", "GET %s: %d", s.URL, resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Unavailable, "snapshot", "")
	}
	return b, nil
}

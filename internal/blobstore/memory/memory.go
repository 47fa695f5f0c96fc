// Package memory is an in-process blob store for development and tests.
// Revisions are the hex sha256 of the content.
package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/neubio/neubio/internal/blobstore"
	"github.com/neubio/neubio/pkg/apperrors"
)

// Backend holds the containers. Every credential sees the same data.
type Backend struct {
	mu          sync.Mutex
	containers  map[string]map[string]blobstore.Blob
	token       string
	next        int
	unavailable bool
}

// New returns an empty backend. When token is non-empty only that
// credential may write or verify; otherwise any non-empty credential may.
func New(token string) *Backend {
	return &Backend{containers: make(map[string]map[string]blobstore.Blob), token: token}
}

// Factory returns a blobstore.Factory bound to this backend.
func (b *Backend) Factory() blobstore.Factory {
	return func(credential string) blobstore.Store { return b.Store(credential) }
}

func (b *Backend) Store(credential string) *Store {
	return &Store{b: b, credential: credential}
}

// SetUnavailable makes every call fail with Unavailable, simulating an outage.
func (b *Backend) SetUnavailable(down bool) {
	b.mu.Lock()
	b.unavailable = down
	b.mu.Unlock()
}

// Put seeds a blob directly, bypassing credentials.
func (b *Backend) Put(container, name string, content []byte) blobstore.Revision {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.put(container, name, content)
}

func (b *Backend) put(container, name string, content []byte) blobstore.Revision {
	c, ok := b.containers[container]
	if !ok {
		c = make(map[string]blobstore.Blob)
		b.containers[container] = c
	}
	rev := revisionOf(content)
	c[name] = blobstore.Blob{Content: append([]byte(nil), content...), Revision: rev}
	return rev
}

func revisionOf(content []byte) blobstore.Revision {
	sum := sha256.Sum256(content)
	return blobstore.Revision(hex.EncodeToString(sum[:]))
}

// Store is one credential's view of a Backend.
type Store struct {
	b          *Backend
	credential string
}

var _ blobstore.Store = (*Store)(nil)

func (s *Store) authorize(op string) error {
	if s.b.unavailable {
		return apperrors.New(apperrors.Unavailable, op, "memory backend is down")
	}
	if s.credential == "" || (s.b.token != "" && s.credential != s.b.token) {
		return apperrors.New(apperrors.Unauthorized, op, "bad credentials")
	}
	return nil
}

func (s *Store) ReadBlob(_ context.Context, container, name string) (blobstore.Blob, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if s.b.unavailable {
		return blobstore.Blob{}, apperrors.New(apperrors.Unavailable, "read", "memory backend is down")
	}
	blob, ok := s.b.containers[container][name]
	if !ok {
		return blobstore.Blob{}, apperrors.Newf(apperrors.NotFound, "read", "%s/%s", container, name)
	}
	return blobstore.Blob{Content: append([]byte(nil), blob.Content...), Revision: blob.Revision}, nil
}

func (s *Store) WriteBlob(_ context.Context, container, name string, content []byte, expected blobstore.Revision) (blobstore.Revision, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.authorize("write"); err != nil {
		return "", err
	}
	c, ok := s.b.containers[container]
	if !ok {
		return "", apperrors.Newf(apperrors.NotFound, "write", "container %s", container)
	}
	if cur, ok := c[name]; ok && expected != "" && cur.Revision != expected {
		return "", apperrors.Newf(apperrors.Conflict, "write", "expected revision %s, remote is at %s", expected, cur.Revision)
	}
	return s.b.put(container, name, content), nil
}

func (s *Store) CreateContainer(_ context.Context, name string, content []byte) (string, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.authorize("create"); err != nil {
		return "", err
	}
	s.b.next++
	id := fmt.Sprintf("mem-%d", s.b.next)
	s.b.put(id, name, content)
	return id, nil
}

func (s *Store) Verify(_ context.Context, container string) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.authorize("verify"); err != nil {
		return err
	}
	if container != "" {
		if _, ok := s.b.containers[container]; !ok {
			return apperrors.Newf(apperrors.NotFound, "verify", "container %s", container)
		}
	}
	return nil
}

// UploadAsset stores the asset next to the document and returns a mem:// URL.
func (s *Store) UploadAsset(_ context.Context, container, name string, content []byte) (string, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.authorize("upload"); err != nil {
		return "", err
	}
	s.b.put(container, "images/"+name, content)
	return "mem://" + container + "/images/" + name, nil
}

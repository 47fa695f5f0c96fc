// Package blobstore defines the remote persistence contract for the profile
// document: one named blob inside a container, read and written whole.
//
// Implementations map remote failures onto apperrors kinds:
// 401/403 Unauthorized, 404 NotFound, stale revision Conflict,
// network and 5xx Unavailable. None of them retry.
package blobstore

import (
	"context"
	"strconv"
	"time"
)

// Revision is the opaque version tag returned by every read and write.
type Revision string

// Blob is the remote content together with the revision it was read at.
type Blob struct {
	Content  []byte
	Revision Revision
}

// Store is a remote blob store bound to one credential.
type Store interface {
	// ReadBlob fetches the current content bypassing intermediate caches.
	ReadBlob(ctx context.Context, container, name string) (Blob, error)
	// WriteBlob replaces the blob. A non-empty expected revision that no
	// longer matches fails with Conflict. An empty expected revision reads
	// the current one first and writes against it; another writer landing
	// between the two calls is overwritten.
	WriteBlob(ctx context.Context, container, name string, content []byte, expected Revision) (Revision, error)
	// CreateContainer allocates a new container holding one blob and
	// returns its id.
	CreateContainer(ctx context.Context, name string, content []byte) (string, error)
	// Verify performs one authenticated read that proves the credential
	// works and carries the scope needed to write. container may be empty.
	Verify(ctx context.Context, container string) error
}

// AssetUploader is implemented by backends that can host image assets.
type AssetUploader interface {
	UploadAsset(ctx context.Context, container, name string, content []byte) (url string, err error)
}

// Factory builds a Store for a credential. An empty credential yields an
// anonymous client, good enough for reads of public containers.
type Factory func(credential string) Store

// CacheBuster returns a query value that defeats HTTP caches.
func CacheBuster() string {
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}

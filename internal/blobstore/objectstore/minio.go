// Package objectstore keeps the document in an S3-compatible bucket.
// The container is the bucket name and the revision is the object ETag.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/neubio/neubio/internal/blobstore"
	"github.com/neubio/neubio/pkg/apperrors"
)

// Store is a thin wrapper around the minio client.
type Store struct {
	client *minio.Client
	cfg    Config
	anon   bool
}

var (
	_ blobstore.Store         = (*Store)(nil)
	_ blobstore.AssetUploader = (*Store)(nil)
)

// New builds a client. No request is made until the first call.
// credential may be "ACCESS_KEY:SECRET_KEY" to override the configured keys.
func New(cfg Config, credential string) (*Store, error) {
	cfg = cfg.withDefaults()
	if cfg.Endpoint == "" {
		return nil, errors.New("minio config missing")
	}
	access, secret := cfg.AccessKey, cfg.SecretKey
	if a, s, ok := strings.Cut(credential, ":"); ok {
		access, secret = a, s
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}
	return &Store{client: mc, cfg: cfg, anon: access == ""}, nil
}

// Factory returns a blobstore.Factory. A bad endpoint surfaces on every call.
func Factory(cfg Config) blobstore.Factory {
	return func(credential string) blobstore.Store {
		s, err := New(cfg, credential)
		if err != nil {
			return broken{err: apperrors.Wrap(err, apperrors.Validation, "objectstore", "")}
		}
		return s
	}
}

func (s *Store) ReadBlob(ctx context.Context, container, name string) (blobstore.Blob, error) {
	obj, err := s.client.GetObject(ctx, container, name, minio.GetObjectOptions{})
	if err != nil {
		return blobstore.Blob{}, toAppError(err, "read")
	}
	defer obj.Close()
	info, err := obj.Stat()
	if err != nil {
		return blobstore.Blob{}, toAppError(err, "read")
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return blobstore.Blob{}, toAppError(err, "read")
	}
	return blobstore.Blob{Content: data, Revision: blobstore.Revision(info.ETag)}, nil
}

// WriteBlob compares the current ETag with expected right before the put.
// The compare and the put are two requests.
func (s *Store) WriteBlob(ctx context.Context, container, name string, content []byte, expected blobstore.Revision) (blobstore.Revision, error) {
	if s.anon {
		return "", apperrors.New(apperrors.Unauthorized, "write", "no credential")
	}
	if expected != "" {
		info, err := s.client.StatObject(ctx, container, name, minio.StatObjectOptions{})
		if err != nil && !apperrors.IsKind(toAppError(err, "write"), apperrors.NotFound) {
			return "", toAppError(err, "write")
		}
		if err == nil && blobstore.Revision(info.ETag) != expected {
			return "", apperrors.Newf(apperrors.Conflict, "write", "expected revision %s, object is at %s", expected, info.ETag)
		}
	}
	return s.put(ctx, "write", container, name, content, "application/json")
}

func (s *Store) put(ctx context.Context, op, bucket, key string, content []byte, contentType string) (blobstore.Revision, error) {
	info, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: contentType, CacheControl: "no-cache"})
	if err != nil {
		return "", toAppError(err, op)
	}
	return blobstore.Revision(info.ETag), nil
}

// CreateContainer makes the configured bucket (idempotent) and writes the
// first version of the blob.
func (s *Store) CreateContainer(ctx context.Context, name string, content []byte) (string, error) {
	if s.anon {
		return "", apperrors.New(apperrors.Unauthorized, "create", "no credential")
	}
	if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
		// ignore "already exists" style errors
		exist, xerr := s.client.BucketExists(ctx, s.cfg.Bucket)
		if xerr != nil || !exist {
			return "", toAppError(err, "create")
		}
	}
	if _, err := s.put(ctx, "create", s.cfg.Bucket, name, content, "application/json"); err != nil {
		return "", err
	}
	return s.cfg.Bucket, nil
}

func (s *Store) Verify(ctx context.Context, container string) error {
	if s.anon {
		return apperrors.New(apperrors.Unauthorized, "verify", "no credential")
	}
	if container == "" {
		container = s.cfg.Bucket
	}
	exist, err := s.client.BucketExists(ctx, container)
	if err != nil {
		return toAppError(err, "verify")
	}
	if !exist {
		return apperrors.Newf(apperrors.NotFound, "verify", "bucket %s", container)
	}
	return nil
}

// UploadAsset stores an image under images/ and returns a presigned GET URL.
func (s *Store) UploadAsset(ctx context.Context, container, name string, content []byte) (string, error) {
	mt := mimetype.Detect(content)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", apperrors.New(apperrors.Validation, "upload", "asset is not an image")
	}
	key := "images/" + name
	if _, err := s.put(ctx, "upload", container, key, content, mt.String()); err != nil {
		return "", err
	}
	u, err := s.client.PresignedGetObject(ctx, container, key, s.cfg.AssetURLExpiry, nil)
	if err != nil {
		return "", toAppError(err, "upload")
	}
	return u.String(), nil
}

// toAppError maps minio errors onto kinds. Responses without a status are
// transport failures.
func toAppError(err error, op string) error {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket":
		return apperrors.Wrap(err, apperrors.NotFound, op, "")
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return apperrors.Wrap(err, apperrors.Unauthorized, op, "")
	case "PreconditionFailed":
		return apperrors.Wrap(err, apperrors.Conflict, op, "")
	}
	if resp.StatusCode != 0 {
		if kind := apperrors.FromStatus(resp.StatusCode); kind != "" {
			return apperrors.Wrap(err, kind, op, "")
		}
	}
	return apperrors.Wrap(err, apperrors.Unavailable, op, "")
}

// broken is returned by Factory when the client cannot be built.
type broken struct{ err error }

func (b broken) ReadBlob(context.Context, string, string) (blobstore.Blob, error) {
	return blobstore.Blob{}, b.err
}
func (b broken) WriteBlob(context.Context, string, string, []byte, blobstore.Revision) (blobstore.Revision, error) {
	return "", b.err
}
func (b broken) CreateContainer(context.Context, string, []byte) (string, error) { return "", b.err }
func (b broken) Verify(context.Context, string) error                          { return b.err }

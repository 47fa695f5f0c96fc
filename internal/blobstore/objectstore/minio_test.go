package objectstore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/neubio/neubio/internal/blobstore"
	"github.com/neubio/neubio/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToAppError(t *testing.T) {
	cases := map[string]struct {
		err  error
		want apperrors.Kind
	}{
		"missing key":    {minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}, apperrors.NotFound},
		"missing bucket": {minio.ErrorResponse{Code: "NoSuchBucket", StatusCode: 404}, apperrors.NotFound},
		"denied":         {minio.ErrorResponse{Code: "AccessDenied", StatusCode: 403}, apperrors.Unauthorized},
		"precondition":   {minio.ErrorResponse{Code: "PreconditionFailed", StatusCode: 412}, apperrors.Conflict},
		"server":         {minio.ErrorResponse{Code: "InternalError", StatusCode: 500}, apperrors.Unavailable},
		"transport":      {errors.New("dial tcp: refused"), apperrors.Unavailable},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, apperrors.KindOf(toAppError(tc.err, "read")))
		})
	}
}

func TestNewRequiresEndpoint(t *testing.T) {
	_, err := New(Config{}, "")
	require.Error(t, err)

	s := Factory(Config{})("")
	_, err = s.ReadBlob(context.Background(), "b", "k")
	assert.Equal(t, apperrors.Validation, apperrors.KindOf(err))
}

func TestCredentialOverride(t *testing.T) {
	s, err := New(Config{Endpoint: "localhost:9000"}, "")
	require.NoError(t, err)
	assert.True(t, s.anon)

	s, err = New(Config{Endpoint: "localhost:9000"}, "AKIA:secret")
	require.NoError(t, err)
	assert.False(t, s.anon)
	assert.Equal(t, DefaultBucket, s.cfg.Bucket)
	assert.Equal(t, maxPresignedAge, s.cfg.AssetURLExpiry)
}

func TestAnonymousWritesRejected(t *testing.T) {
	s, err := New(Config{Endpoint: "localhost:9000"}, "")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.WriteBlob(ctx, "b", "k", []byte("{}"), "")
	assert.Equal(t, apperrors.Unauthorized, apperrors.KindOf(err))
	_, err = s.CreateContainer(ctx, "k", []byte("{}"))
	assert.Equal(t, apperrors.Unauthorized, apperrors.KindOf(err))
	assert.Equal(t, apperrors.Unauthorized, apperrors.KindOf(s.Verify(ctx, "")))
}

func TestReadMissingObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message><Key>data.json</Key><BucketName>neubio</BucketName></Error>`))
	}))
	defer srv.Close()

	s, err := New(Config{Endpoint: strings.TrimPrefix(srv.URL, "http://")}, "AKIA:secret")
	require.NoError(t, err)
	_, err = s.ReadBlob(context.Background(), "neubio", "data.json")
	assert.Equal(t, apperrors.NotFound, apperrors.KindOf(err))
}

// fakeS3 serves one object path-style and bumps its ETag on every PUT.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	etags   map[string]string
	puts    int
	seq     int
}

func newFakeS3(t *testing.T) (*fakeS3, *Store) {
	t.Helper()
	f := &fakeS3{objects: map[string][]byte{}, etags: map[string]string{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	s, err := New(Config{Endpoint: strings.TrimPrefix(srv.URL, "http://")}, "AKIA:secret")
	require.NoError(t, err)
	return f, s
}

func (f *fakeS3) seed(path string, body []byte) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.objects[path] = body
	f.etags[path] = "etag-" + strconv.Itoa(f.seq)
	return f.etags[path]
}

func (f *fakeS3) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.puts++
		f.seq++
		f.objects[r.URL.Path] = body
		f.etags[r.URL.Path] = "etag-" + strconv.Itoa(f.seq)
		w.Header().Set("ETag", `"`+f.etags[r.URL.Path]+`"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet, http.MethodHead:
		body, ok := f.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			if r.Method == http.MethodGet {
				_, _ = w.Write([]byte(`<Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`))
			}
			return
		}
		w.Header().Set("ETag", `"`+f.etags[r.URL.Path]+`"`)
		w.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(body)
		}
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestReadReturnsContentAndETag(t *testing.T) {
	f, s := newFakeS3(t)
	etag := f.seed("/neubio/data.json", []byte(`{"profile":{"name":"S3"}}`))

	blob, err := s.ReadBlob(context.Background(), "neubio", "data.json")
	require.NoError(t, err)
	assert.Equal(t, `{"profile":{"name":"S3"}}`, string(blob.Content))
	assert.Equal(t, etag, string(blob.Revision))
}

func TestWriteWithStaleETagConflicts(t *testing.T) {
	f, s := newFakeS3(t)
	f.seed("/neubio/data.json", []byte(`{}`))
	f.seed("/neubio/data.json", []byte(`{"v":2}`))

	_, err := s.WriteBlob(context.Background(), "neubio", "data.json", []byte(`{"v":3}`), "etag-1")
	assert.Equal(t, apperrors.Conflict, apperrors.KindOf(err))
	assert.Zero(t, f.putCount())
}

func TestWriteWithCurrentETag(t *testing.T) {
	f, s := newFakeS3(t)
	current := f.seed("/neubio/data.json", []byte(`{}`))
	ctx := context.Background()

	rev, err := s.WriteBlob(ctx, "neubio", "data.json", []byte(`{"v":2}`), blobstore.Revision(current))
	require.NoError(t, err)
	assert.Equal(t, 1, f.putCount())
	assert.NotEqual(t, current, string(rev))

	blob, err := s.ReadBlob(ctx, "neubio", "data.json")
	require.NoError(t, err)
	assert.Equal(t, rev, blob.Revision)

	// the old revision is now stale
	_, err = s.WriteBlob(ctx, "neubio", "data.json", []byte(`{"v":3}`), blobstore.Revision(current))
	assert.Equal(t, apperrors.Conflict, apperrors.KindOf(err))
	assert.Equal(t, 1, f.putCount())
}

func TestWriteToMissingObjectCreatesIt(t *testing.T) {
	f, s := newFakeS3(t)
	rev, err := s.WriteBlob(context.Background(), "neubio", "data.json", []byte(`{}`), "etag-0")
	require.NoError(t, err)
	assert.NotEmpty(t, rev)
	assert.Equal(t, 1, f.putCount())
}

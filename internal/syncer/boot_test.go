package syncer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/neubio/neubio/internal/blobstore"
	"github.com/neubio/neubio/internal/blobstore/github"
	"github.com/neubio/neubio/internal/blobstore/memory"
	"github.com/neubio/neubio/internal/document"
	"github.com/neubio/neubio/internal/document/store"
	"github.com/neubio/neubio/internal/history"
	"github.com/neubio/neubio/internal/sessions"
	"github.com/neubio/neubio/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rejectingStore refuses every read as a revoked credential would.
type rejectingStore struct {
	blobstore.Store
}

func (rejectingStore) ReadBlob(context.Context, string, string) (blobstore.Blob, error) {
	return blobstore.Blob{}, apperrors.New(apperrors.Unauthorized, "read", "bad credentials")
}

func TestBootRetriesAnonymouslyWhenCredentialRejected(t *testing.T) {
	// public gist: anonymous reads work, the stored token is revoked
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
			return
		}
		assert.Equal(t, "/gists/g1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "g1",
			"files":   map[string]interface{}{DefaultBlobName: map[string]string{"content": `{"profile":{"name":"Public"}}`}},
			"history": []map[string]string{{"version": "v1"}},
		})
	}))
	defer srv.Close()

	r := newRig(t, github.GistFactory(github.Options{APIURL: srv.URL}), Config{Container: "g1"})
	ctx := context.Background()
	require.NoError(t, r.sess.SaveVerifiedCredential(ctx, "revoked"))

	res, err := r.ctl.Boot(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceRemote, res.Source)
	assert.Equal(t, "v1", res.Revision)
	assert.Equal(t, "Public", r.store.Snapshot().Profile.Name)

	// pull takes the same anonymous retry
	rev, err := r.ctl.Pull(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, blobstore.Revision("v1"), rev)
}

func TestBootFallsBackWhenEveryReadIsRejected(t *testing.T) {
	backend := memory.New(token)
	backend.Put("private", DefaultBlobName, []byte(`{"profile":{"name":"Hidden"}}`))
	factory := func(cred string) blobstore.Store { return rejectingStore{Store: backend.Store(cred)} }
	r := newRig(t, factory, Config{Container: "private"})
	require.NoError(t, r.sess.SaveVerifiedCredential(context.Background(), "expired"))

	res, err := r.ctl.Boot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceSnapshot, res.Source)
	assert.Equal(t, document.Default().Profile, r.store.Snapshot().Profile)
}

type brokenSnapshot struct{}

func (brokenSnapshot) Load(context.Context) ([]byte, error) { return []byte(`"not an object"`), nil }

func TestBootSnapshotAfterFailedBoot(t *testing.T) {
	backend := memory.New(token)
	backend.Put("c1", DefaultBlobName, []byte(`[1,2,3]`))
	r := newRig(t, backend.Factory(), Config{Container: "c1"})
	ctx := context.Background()

	_, err := r.ctl.Boot(ctx)
	require.Error(t, err)
	assert.Equal(t, apperrors.Validation, apperrors.KindOf(err))

	res, err := r.ctl.BootSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceSnapshot, res.Source)
	assert.Equal(t, document.Default().Admin, r.store.Snapshot().Admin)
	st, err := r.ctl.Status(ctx)
	require.NoError(t, err)
	assert.Empty(t, st.Revision)
}

func TestBootSnapshotUsesSeedWhenSnapshotIsBroken(t *testing.T) {
	st := store.New(nil)
	sess := sessions.NewService(sessions.NewMemoryRepository())
	ctl := New(st, sess, memory.New(token).Factory(), brokenSnapshot{}, history.NewMemoryRepo(0), Config{})

	_, err := ctl.Boot(context.Background())
	require.Error(t, err)

	_, err = ctl.BootSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, document.Default().Profile, st.Snapshot().Profile)
}

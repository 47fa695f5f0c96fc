// Package syncer moves the profile document between the local store and the
// remote blob store. Every remote operation is triggered explicitly.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/neubio/neubio/internal/blobstore"
	"github.com/neubio/neubio/internal/document"
	"github.com/neubio/neubio/internal/document/store"
	"github.com/neubio/neubio/internal/history"
	"github.com/neubio/neubio/internal/sessions"
	"github.com/neubio/neubio/pkg/apperrors"
	"github.com/neubio/neubio/pkg/logger"
	"github.com/neubio/neubio/pkg/metrics"
)

// State of the controller. Only Idle accepts a new operation.
type State int

const (
	Idle State = iota
	Loading
	Saving
	Verifying
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Saving:
		return "saving"
	case Verifying:
		return "verifying"
	}
	return "idle"
}

// ErrBusy rejects a trigger while another operation is outstanding. It does
// not lock the document: edits still land during a push.
var ErrBusy = errors.New("sync: another operation is in progress")

const DefaultBlobName = "data.json"

// Config names where the document lives.
type Config struct {
	// Backend is a label stored with history entries (gist, repo, minio, memory).
	Backend string
	// BlobName is the file name inside the container.
	BlobName string
	// Container is used when no container id was persisted yet.
	Container string
}

type Controller struct {
	store    *store.Store
	sessions *sessions.Service
	factory  blobstore.Factory
	snapshot Snapshotter
	history  history.Repository
	cfg      Config

	mu       sync.Mutex
	state    State
	revision blobstore.Revision
}

// New wires a controller. hist may be nil.
func New(st *store.Store, sess *sessions.Service, factory blobstore.Factory, snap Snapshotter, hist history.Repository, cfg Config) *Controller {
	if cfg.BlobName == "" {
		cfg.BlobName = DefaultBlobName
	}
	if snap == nil {
		snap = Snapshot{}
	}
	return &Controller{store: st, sessions: sess, factory: factory, snapshot: snap, history: hist, cfg: cfg}
}

// Status is a point-in-time view for the admin API.
type Status struct {
	State     string `json:"state"`
	Revision  string `json:"revision"`
	Container string `json:"container"`
	BlobName  string `json:"blobName"`
	Backend   string `json:"backend"`
}

func (c *Controller) Status(ctx context.Context) (Status, error) {
	container, err := c.container(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		State:     c.state.String(),
		Revision:  string(c.revision),
		Container: container,
		BlobName:  c.cfg.BlobName,
		Backend:   c.cfg.Backend,
	}, err
}

func (c *Controller) begin(s State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Idle {
		return ErrBusy
	}
	c.state = s
	return nil
}

func (c *Controller) end() {
	c.mu.Lock()
	c.state = Idle
	c.mu.Unlock()
}

func (c *Controller) setRevision(r blobstore.Revision) {
	c.mu.Lock()
	c.revision = r
	c.mu.Unlock()
}

func (c *Controller) lastRevision() blobstore.Revision {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.revision
}

func (c *Controller) container(ctx context.Context) (string, error) {
	id, err := c.sessions.ContainerID(ctx)
	if err != nil {
		return "", fmt.Errorf("load container id: %w", err)
	}
	if id == "" {
		id = c.cfg.Container
	}
	return id, nil
}

// readRemote reads the blob with the saved credential. A credential the
// remote rejects is retried anonymously, since reads never need one.
func (c *Controller) readRemote(ctx context.Context, container string) (blobstore.Blob, error) {
	token, _, err := c.sessions.Credential(ctx)
	if err != nil {
		return blobstore.Blob{}, fmt.Errorf("load credential: %w", err)
	}
	blob, err := c.factory(token).ReadBlob(ctx, container, c.cfg.BlobName)
	if token != "" && apperrors.IsKind(err, apperrors.Unauthorized) {
		logger.Warnf("read: stored credential rejected, retrying anonymously: %v", err)
		blob, err = c.factory("").ReadBlob(ctx, container, c.cfg.BlobName)
	}
	return blob, err
}

// writer returns a store bound to a verified credential.
func (c *Controller) writer(ctx context.Context, op string) (blobstore.Store, error) {
	token, verified, err := c.sessions.Credential(ctx)
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	if token == "" || !verified {
		return nil, apperrors.New(apperrors.Unauthorized, op, "no verified credential")
	}
	return c.factory(token), nil
}

func (c *Controller) observe(op string, started time.Time, err error) {
	result := "ok"
	if err != nil {
		result = string(apperrors.KindOf(err))
		if result == "" {
			result = "error"
		}
	}
	metrics.ObserveSync(op, result, started)
}

func (c *Controller) record(ctx context.Context, op, container string, rev blobstore.Revision, size int) {
	if c.history == nil {
		return
	}
	e := &history.Entry{Op: op, Backend: c.cfg.Backend, Container: container, Revision: string(rev), Bytes: size}
	if err := c.history.Record(ctx, e); err != nil {
		logger.Warnf("history record %s failed: %v", op, err)
	}
}

// BootResult tells where the boot document came from.
type BootResult struct {
	Source   string `json:"source"`
	Revision string `json:"revision"`
}

const (
	SourceRemote   = "remote"
	SourceSnapshot = "snapshot"
)

// Boot loads the document into the store. A missing, unreachable or
// unreadable (rejected even anonymously) remote falls back to the bootstrap
// snapshot; any other failure leaves the store untouched and is returned.
func (c *Controller) Boot(ctx context.Context) (res BootResult, err error) {
	if err := c.begin(Loading); err != nil {
		return res, err
	}
	defer c.end()
	started := time.Now()
	defer func() { c.observe("boot", started, err) }()

	container, err := c.container(ctx)
	if err != nil {
		return res, err
	}

	var blob blobstore.Blob
	res.Source = SourceSnapshot
	if container != "" {
		blob, err = c.readRemote(ctx, container)
		switch {
		case err == nil:
			res.Source = SourceRemote
		case apperrors.IsKind(err, apperrors.NotFound), apperrors.IsKind(err, apperrors.Unavailable),
			apperrors.IsKind(err, apperrors.Unauthorized):
			logger.Warnf("boot: remote read failed, using snapshot: %v", err)
		default:
			return res, err
		}
	}

	if res.Source == SourceSnapshot {
		data, err := c.snapshot.Load(ctx)
		if err != nil {
			return res, err
		}
		blob = blobstore.Blob{Content: data}
	}

	doc, err := document.Decode(blob.Content)
	if err != nil {
		return res, err
	}
	c.store.Replace(doc)
	c.setRevision(blob.Revision)
	res.Revision = string(blob.Revision)
	logger.Infof("boot: loaded document from %s (revision %q)", res.Source, res.Revision)
	return res, nil
}

// BootSnapshot loads the bootstrap snapshot, or the built-in seed when the
// snapshot cannot be loaded or decoded. It is the last resort after a failed
// Boot and only fails with ErrBusy.
func (c *Controller) BootSnapshot(ctx context.Context) (BootResult, error) {
	if err := c.begin(Loading); err != nil {
		return BootResult{}, err
	}
	defer c.end()

	doc, err := c.loadSnapshot(ctx)
	if err != nil {
		logger.Warnf("boot: snapshot unusable, using built-in seed: %v", err)
		doc = document.Default()
	}
	c.store.Replace(doc)
	c.setRevision("")
	return BootResult{Source: SourceSnapshot}, nil
}

func (c *Controller) loadSnapshot(ctx context.Context) (*document.Document, error) {
	data, err := c.snapshot.Load(ctx)
	if err != nil {
		return nil, err
	}
	return document.Decode(data)
}

// PushResult describes a completed push.
type PushResult struct {
	Container string `json:"container"`
	Revision  string `json:"revision"`
	Created   bool   `json:"created"`
}

// Push writes the whole document. The write is conditional on the last
// revision seen unless force is set, in which case the remote revision is
// discovered right before writing. With no container yet, one is created.
// Failures leave the document and the known revision untouched.
func (c *Controller) Push(ctx context.Context, force bool) (res PushResult, err error) {
	if err := c.begin(Saving); err != nil {
		return res, err
	}
	defer c.end()
	started := time.Now()
	defer func() { c.observe("push", started, err) }()

	wr, err := c.writer(ctx, "push")
	if err != nil {
		return res, err
	}
	data, err := document.Encode(c.store.Snapshot())
	if err != nil {
		return res, apperrors.Wrap(err, apperrors.Validation, "push", "encode document")
	}
	container, err := c.container(ctx)
	if err != nil {
		return res, err
	}

	if container == "" {
		id, err := c.create(ctx, wr, data)
		if err != nil {
			return res, err
		}
		return PushResult{Container: id, Created: true}, nil
	}

	expected := c.lastRevision()
	if force {
		expected = ""
	}
	rev, err := wr.WriteBlob(ctx, container, c.cfg.BlobName, data, expected)
	if err != nil {
		return res, err
	}
	c.setRevision(rev)
	c.record(ctx, history.OpPush, container, rev, len(data))
	logger.Infof("push: wrote %d bytes to %s (revision %q)", len(data), container, rev)
	return PushResult{Container: container, Revision: string(rev)}, nil
}

// Pull replaces the local document with the remote one. Unsaved local edits
// are lost, so the caller must confirm.
func (c *Controller) Pull(ctx context.Context, confirmed bool) (rev blobstore.Revision, err error) {
	if !confirmed {
		return "", apperrors.New(apperrors.Validation, "pull", "pull overwrites local edits and must be confirmed")
	}
	if err := c.begin(Loading); err != nil {
		return "", err
	}
	defer c.end()
	started := time.Now()
	defer func() { c.observe("pull", started, err) }()

	container, err := c.container(ctx)
	if err != nil {
		return "", err
	}
	if container == "" {
		return "", apperrors.New(apperrors.NotFound, "pull", "no container configured")
	}
	blob, err := c.readRemote(ctx, container)
	if err != nil {
		return "", err
	}
	doc, err := document.Decode(blob.Content)
	if err != nil {
		return "", err
	}
	c.store.Replace(doc)
	c.setRevision(blob.Revision)
	c.record(ctx, history.OpPull, container, blob.Revision, len(blob.Content))
	logger.Infof("pull: loaded %d bytes from %s (revision %q)", len(blob.Content), container, blob.Revision)
	return blob.Revision, nil
}

// VerifyCredential checks token against the remote and persists it only
// when the check passes.
func (c *Controller) VerifyCredential(ctx context.Context, token string) (err error) {
	if token == "" {
		return apperrors.New(apperrors.Validation, "verify", "token is empty")
	}
	if err := c.begin(Verifying); err != nil {
		return err
	}
	defer c.end()
	started := time.Now()
	defer func() { c.observe("verify", started, err) }()

	container, err := c.container(ctx)
	if err != nil {
		return err
	}
	if err := c.factory(token).Verify(ctx, container); err != nil {
		return err
	}
	if err := c.sessions.SaveVerifiedCredential(ctx, token); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	logger.Infof("verify: credential accepted")
	return nil
}

// ForgetCredential drops the stored token.
func (c *Controller) ForgetCredential(ctx context.Context) error {
	if err := c.begin(Verifying); err != nil {
		return err
	}
	defer c.end()
	return c.sessions.ClearCredential(ctx)
}

// CreateContainer allocates a new container holding the current document
// and makes it the active one.
func (c *Controller) CreateContainer(ctx context.Context) (id string, err error) {
	if err := c.begin(Saving); err != nil {
		return "", err
	}
	defer c.end()
	started := time.Now()
	defer func() { c.observe("create", started, err) }()

	wr, err := c.writer(ctx, "create")
	if err != nil {
		return "", err
	}
	data, err := document.Encode(c.store.Snapshot())
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.Validation, "create", "encode document")
	}
	return c.create(ctx, wr, data)
}

func (c *Controller) create(ctx context.Context, wr blobstore.Store, data []byte) (string, error) {
	id, err := wr.CreateContainer(ctx, c.cfg.BlobName, data)
	if err != nil {
		return "", err
	}
	if err := c.sessions.SetContainerID(ctx, id); err != nil {
		return "", fmt.Errorf("save container id: %w", err)
	}
	// the create response carries no revision; the next push discovers it
	c.setRevision("")
	c.record(ctx, history.OpCreate, id, "", len(data))
	logger.Infof("create: new container %s", id)
	return id, nil
}

// UseContainer points the controller at an existing container. The next
// push discovers its revision, so pull first to avoid overwriting it.
func (c *Controller) UseContainer(ctx context.Context, id string) error {
	if err := c.begin(Loading); err != nil {
		return err
	}
	defer c.end()
	if err := c.sessions.SetContainerID(ctx, id); err != nil {
		return fmt.Errorf("save container id: %w", err)
	}
	c.setRevision("")
	return nil
}

// UploadAsset stores an image in the active container when the backend
// can host assets, and returns its URL.
func (c *Controller) UploadAsset(ctx context.Context, name string, content []byte) (u string, err error) {
	if name == "" || len(content) == 0 {
		return "", apperrors.New(apperrors.Validation, "upload", "name and content are required")
	}
	if err := c.begin(Saving); err != nil {
		return "", err
	}
	defer c.end()
	started := time.Now()
	defer func() { c.observe("upload", started, err) }()

	wr, err := c.writer(ctx, "upload")
	if err != nil {
		return "", err
	}
	up, ok := wr.(blobstore.AssetUploader)
	if !ok {
		return "", apperrors.Newf(apperrors.Validation, "upload", "backend %s cannot host assets", c.cfg.Backend)
	}
	container, err := c.container(ctx)
	if err != nil {
		return "", err
	}
	if container == "" {
		return "", apperrors.New(apperrors.NotFound, "upload", "no container configured")
	}
	return up.UploadAsset(ctx, container, name, content)
}

package handlers

import (
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/neubio/neubio/internal/bio"
	"github.com/neubio/neubio/internal/document"
	"github.com/neubio/neubio/internal/document/store"
	"github.com/neubio/neubio/internal/history"
	"github.com/neubio/neubio/internal/sessions"
	"github.com/neubio/neubio/internal/syncer"
	"github.com/neubio/neubio/pkg/apperrors"
)

// MaxAssetBytes bounds a single uploaded image.
const MaxAssetBytes = 5 << 20

// SyncHandler exposes the explicit remote operations.
type SyncHandler struct {
	ctrl     *syncer.Controller
	sessions *sessions.Service
	store    *store.Store
	history  history.Repository
	rewriter bio.Rewriter
}

func NewSyncHandler(ctrl *syncer.Controller, sess *sessions.Service, st *store.Store, hist history.Repository, rw bio.Rewriter) *SyncHandler {
	return &SyncHandler{ctrl: ctrl, sessions: sess, store: st, history: hist, rewriter: rw}
}

// Status reports the controller state together with the persisted client
// state. The credential itself is never echoed.
func (h *SyncHandler) Status(c *gin.Context) {
	ctx := c.Request.Context()
	st, err := h.ctrl.Status(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	sess, err := h.sessions.State(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sync": st, "session": sess})
}

func (h *SyncHandler) SaveToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.ctrl.VerifyCredential(c.Request.Context(), req.Token); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": true})
}

func (h *SyncHandler) ForgetToken(c *gin.Context) {
	if err := h.ctrl.ForgetCredential(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Container creates a new container from the current document, or points
// the controller at an existing one when an id is given.
func (h *SyncHandler) Container(c *gin.Context) {
	var req struct {
		ID string `json:"id"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	ctx := c.Request.Context()
	if req.ID != "" {
		if err := h.ctrl.UseContainer(ctx, req.ID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"container": req.ID, "created": false})
		return
	}
	id, err := h.ctrl.CreateContainer(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"container": id, "created": true})
}

// Push writes the local document. ?force=true drops the revision check.
func (h *SyncHandler) Push(c *gin.Context) {
	force, _ := strconv.ParseBool(c.Query("force"))
	res, err := h.ctrl.Push(c.Request.Context(), force)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Pull replaces the local document; ?confirm=true is required.
func (h *SyncHandler) Pull(c *gin.Context) {
	confirmed, _ := strconv.ParseBool(c.Query("confirm"))
	rev, err := h.ctrl.Pull(c.Request.Context(), confirmed)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"revision": rev})
}

func (h *SyncHandler) History(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		badRequest(c, "limit must be a positive integer")
		return
	}
	entries, err := h.history.List(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if entries == nil {
		entries = []*history.Entry{}
	}
	c.JSON(http.StatusOK, entries)
}

func (h *SyncHandler) HistoryEntry(c *gin.Context) {
	e, err := h.history.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// UploadAsset accepts a multipart "file" field and returns the hosted URL.
func (h *SyncHandler) UploadAsset(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "multipart field \"file\" is required")
		return
	}
	if fh.Size > MaxAssetBytes {
		badRequest(c, "file is too large")
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	defer f.Close()
	content, err := io.ReadAll(io.LimitReader(f, MaxAssetBytes+1))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	raw := fh.Filename
	if n := c.PostForm("name"); n != "" {
		raw = n
	}
	name, err := assetName(raw)
	if err != nil {
		respondError(c, err)
		return
	}
	u, err := h.ctrl.UploadAsset(c.Request.Context(), name, content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": u})
}

// assetName keeps the last path element of raw. Names that reduce to a
// directory reference are rejected.
func assetName(raw string) (string, error) {
	name := path.Base(strings.ReplaceAll(raw, "\\", "/"))
	switch name {
	case "", ".", "..", "/":
		return "", apperrors.Newf(apperrors.Validation, "upload", "invalid asset name %q", raw)
	}
	return name, nil
}

// RewriteBio asks the model for a polished title. With ?apply=true the
// result is written into the local profile.
func (h *SyncHandler) RewriteBio(c *gin.Context) {
	if h.rewriter == nil {
		respondError(c, apperrors.New(apperrors.Unavailable, "rewrite", "bio rewriting is not configured"))
		return
	}
	var name, title string
	h.store.Read(func(d *document.Document) { name, title = d.Profile.Name, d.Profile.Title })
	var req struct {
		Title string `json:"title"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	if req.Title != "" {
		title = req.Title
	}
	out, err := h.rewriter.Rewrite(c.Request.Context(), name, title)
	if err != nil {
		respondError(c, err)
		return
	}
	if apply, _ := strconv.ParseBool(c.Query("apply")); apply {
		_ = h.store.Update(func(d *document.Document) error {
			d.Profile.Title = out
			return nil
		})
	}
	c.JSON(http.StatusOK, gin.H{"title": out})
}

package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/neubio/neubio/internal/auth"
	"github.com/neubio/neubio/internal/document"
	"github.com/neubio/neubio/internal/document/store"
	"github.com/neubio/neubio/pkg/apperrors"
)

// DocumentHandler applies admin edits to the local document. Edits never
// touch the remote; they reach it with the next push.
type DocumentHandler struct {
	store *store.Store
	gate  *auth.Gate
}

func NewDocumentHandler(st *store.Store, g *auth.Gate) *DocumentHandler {
	return &DocumentHandler{store: st, gate: g}
}

// Profile serves the public view of the document.
func (h *DocumentHandler) Profile(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Snapshot().Public())
}

// Document serves the full document to the admin, digest included.
func (h *DocumentHandler) Document(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Snapshot())
}

// readBody returns the raw JSON body. Handlers decode it over a copy of the
// current value so omitted fields keep their value.
func readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, err.Error())
		return nil, false
	}
	if len(body) == 0 {
		badRequest(c, "request body is empty")
		return nil, false
	}
	return body, true
}

func patch[T any](body []byte, cur T) (T, error) {
	if err := json.Unmarshal(body, &cur); err != nil {
		return cur, apperrors.Wrap(err, apperrors.Validation, "patch", "invalid JSON body")
	}
	return cur, nil
}

func (h *DocumentHandler) UpdateProfile(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	var out document.Profile
	err := h.store.Update(func(d *document.Document) error {
		p, err := patch(body, d.Profile)
		if err != nil {
			return err
		}
		d.Profile, out = p, p
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *DocumentHandler) UpdateTheme(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	var out document.Theme
	err := h.store.Update(func(d *document.Document) error {
		t, err := patch(body, d.Theme)
		if err != nil {
			return err
		}
		d.Theme, out = t, t
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *DocumentHandler) UpdateSections(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	var out document.Sections
	err := h.store.Update(func(d *document.Document) error {
		s, err := patch(body, d.Sections)
		if err != nil {
			return err
		}
		d.Sections, out = s, s
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// ChangePassword stores the digest of the new password locally.
func (h *DocumentHandler) ChangePassword(c *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.gate.ChangePassword(req.Password); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type moveRequest struct {
	Index *int `json:"index" binding:"required"`
}

func (h *DocumentHandler) CreateSocial(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	s := document.NewSocial()
	if len(body) > 0 {
		if s, err = patch(body, s); err != nil {
			respondError(c, err)
			return
		}
	}
	// ids are always server-assigned so they stay unique
	s.ID = document.NewID()
	_ = h.store.Update(func(d *document.Document) error {
		s = d.AddSocial(s)
		return nil
	})
	c.JSON(http.StatusCreated, s)
}

func (h *DocumentHandler) UpdateSocial(c *gin.Context) {
	id := c.Param("id")
	body, ok := readBody(c)
	if !ok {
		return
	}
	var out document.Social
	err := h.store.Update(func(d *document.Document) error {
		cur, err := d.Social(id)
		if err != nil {
			return err
		}
		next, err := patch(body, *cur)
		if err != nil {
			return err
		}
		next.ID = id
		*cur, out = next, next
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *DocumentHandler) DeleteSocial(c *gin.Context) {
	id := c.Param("id")
	if err := h.store.Update(func(d *document.Document) error { return d.RemoveSocial(id) }); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *DocumentHandler) MoveSocial(c *gin.Context) {
	id := c.Param("id")
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	var order []string
	err := h.store.Update(func(d *document.Document) error {
		if err := d.MoveSocial(id, *req.Index); err != nil {
			return err
		}
		for _, s := range d.Socials {
			order = append(order, s.ID)
		}
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *DocumentHandler) CreateProject(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	p := document.NewProject()
	if len(body) > 0 {
		if p, err = patch(body, p); err != nil {
			respondError(c, err)
			return
		}
	}
	p.ID = document.NewID()
	_ = h.store.Update(func(d *document.Document) error {
		p = d.AddProject(p)
		return nil
	})
	c.JSON(http.StatusCreated, p)
}

func (h *DocumentHandler) UpdateProject(c *gin.Context) {
	id := c.Param("id")
	body, ok := readBody(c)
	if !ok {
		return
	}
	var out document.Project
	err := h.store.Update(func(d *document.Document) error {
		cur, err := d.Project(id)
		if err != nil {
			return err
		}
		next, err := patch(body, *cur)
		if err != nil {
			return err
		}
		next.ID = id
		*cur, out = next, next
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *DocumentHandler) DeleteProject(c *gin.Context) {
	id := c.Param("id")
	if err := h.store.Update(func(d *document.Document) error { return d.RemoveProject(id) }); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *DocumentHandler) MoveProject(c *gin.Context) {
	id := c.Param("id")
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	var order []string
	err := h.store.Update(func(d *document.Document) error {
		if err := d.MoveProject(id, *req.Index); err != nil {
			return err
		}
		for _, p := range d.Projects {
			order = append(order, p.ID)
		}
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

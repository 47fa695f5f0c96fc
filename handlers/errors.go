package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/neubio/neubio/internal/document"
	"github.com/neubio/neubio/internal/history"
	"github.com/neubio/neubio/internal/syncer"
	"github.com/neubio/neubio/pkg/apperrors"
	"github.com/neubio/neubio/pkg/logger"
)

// respondError writes {"error": kind, "details": detail} with the status
// matching the error kind.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, syncer.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "busy", "details": err.Error()})
		return
	case errors.Is(err, document.ErrNotFound), errors.Is(err, history.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": string(apperrors.NotFound), "details": err.Error()})
		return
	}
	kind := apperrors.KindOf(err)
	status := apperrors.HTTPStatus(kind)
	if kind == "" {
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"error": "internal", "details": err.Error()})
		return
	}
	c.JSON(status, gin.H{"error": string(kind), "details": apperrors.DetailOf(err)})
}

func badRequest(c *gin.Context, details string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": string(apperrors.Validation), "details": details})
}

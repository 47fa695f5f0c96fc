package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neubio/neubio/internal/auth"
	"github.com/neubio/neubio/internal/bio"
	"github.com/neubio/neubio/internal/document/store"
	"github.com/neubio/neubio/internal/history"
	"github.com/neubio/neubio/internal/sessions"
	"github.com/neubio/neubio/internal/syncer"
	"github.com/neubio/neubio/internal/tokens"
	"github.com/neubio/neubio/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadyCheck reports whether one dependency can serve requests.
type ReadyCheck func(ctx context.Context) error

// Deps is everything the HTTP API needs. Rewriter may be nil; LoginLimiter
// defaults to no limit.
type Deps struct {
	Store        *store.Store
	Sessions     *sessions.Service
	Gate         *auth.Gate
	Issuer       *tokens.Issuer
	Controller   *syncer.Controller
	History      history.Repository
	Rewriter     bio.Rewriter
	LoginLimiter gin.HandlerFunc
	Ready        map[string]ReadyCheck
}

var startTime = time.Now()

// Register mounts every route on r.
func Register(r *gin.Engine, d Deps) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", readyHandler(d.Ready))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	RegisterSwagger(r)

	docs := NewDocumentHandler(d.Store, d.Gate)
	r.GET("/api/profile", docs.Profile)

	authH := NewAuthHandler(d.Gate, d.Issuer)
	limiter := d.LoginLimiter
	if limiter == nil {
		limiter = func(c *gin.Context) { c.Next() }
	}
	r.POST("/admin/login", limiter, authH.Login)
	r.POST("/admin/logout", middleware.AuthMiddleware(d.Issuer), authH.Logout)

	admin := r.Group("/admin", middleware.AuthMiddleware(d.Issuer), middleware.RequireActive(d.Gate))
	admin.GET("/document", docs.Document)
	admin.PUT("/profile", docs.UpdateProfile)
	admin.PUT("/theme", docs.UpdateTheme)
	admin.PUT("/sections", docs.UpdateSections)
	admin.POST("/password", docs.ChangePassword)

	admin.POST("/socials", docs.CreateSocial)
	admin.PATCH("/socials/:id", docs.UpdateSocial)
	admin.DELETE("/socials/:id", docs.DeleteSocial)
	admin.POST("/socials/:id/move", docs.MoveSocial)

	admin.POST("/projects", docs.CreateProject)
	admin.PATCH("/projects/:id", docs.UpdateProject)
	admin.DELETE("/projects/:id", docs.DeleteProject)
	admin.POST("/projects/:id/move", docs.MoveProject)

	syncH := NewSyncHandler(d.Controller, d.Sessions, d.Store, d.History, d.Rewriter)
	admin.GET("/status", syncH.Status)
	admin.POST("/token", syncH.SaveToken)
	admin.DELETE("/token", syncH.ForgetToken)
	admin.POST("/container", syncH.Container)
	admin.POST("/push", syncH.Push)
	admin.POST("/pull", syncH.Pull)
	admin.GET("/history", syncH.History)
	admin.GET("/history/:id", syncH.HistoryEntry)
	admin.POST("/assets", syncH.UploadAsset)
	admin.POST("/bio", syncH.RewriteBio)
}

// readyHandler answers 200 only when every check passes.
func readyHandler(checks map[string]ReadyCheck) gin.HandlerFunc {
	names := make([]string, 0, len(checks))
	for n := range checks {
		names = append(names, n)
	}
	sort.Strings(names)
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		ready := true
		deps := map[string]bool{}
		for _, n := range names {
			ok := checks[n](ctx) == nil
			deps[n] = ok
			ready = ready && ok
		}
		status, label := http.StatusOK, "ready"
		if !ready {
			status, label = http.StatusServiceUnavailable, "not_ready"
		}
		c.JSON(status, gin.H{"status": label, "deps": deps, "uptime": time.Since(startTime).String()})
	}
}

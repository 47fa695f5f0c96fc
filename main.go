package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neubio/neubio/handlers"
	"github.com/neubio/neubio/internal/app"
	"github.com/neubio/neubio/internal/auth"
	"github.com/neubio/neubio/internal/bio"
	"github.com/neubio/neubio/internal/config"
	"github.com/neubio/neubio/internal/document"
	"github.com/neubio/neubio/internal/document/store"
	"github.com/neubio/neubio/internal/tokens"
	"github.com/neubio/neubio/pkg/logger"
	"github.com/neubio/neubio/pkg/metrics"
	"github.com/neubio/neubio/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// initialize logging (can be controlled with LOG_LEVEL env: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)
	if cfg.Log.File != "" {
		logger.InitFile(cfg.Log.File, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups)
	}
	logger.Infof("config loaded: backend=%s mongo=%v redis=%v", cfg.Blob.Backend, cfg.MongoDB.URI != "", cfg.Redis.Host != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := app.Redis(ctx, cfg)
	if rdb != nil {
		defer rdb.Close()
	}
	sess, blacklist := app.Sessions(rdb, cfg)

	mongoClient := app.Mongo(ctx, cfg)
	if mongoClient != nil {
		defer func() { _ = mongoClient.Disconnect(context.Background()) }()
	}
	hist := app.History(ctx, mongoClient, cfg)

	st := store.New(nil)
	st.Subscribe(func(_ *document.Document) { logger.Debugf("document changed") })
	ctrl, err := app.Controller(cfg, st, sess, hist)
	if err != nil {
		logger.Fatalf("failed to build sync controller: %v", err)
	}
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	// a saved GITHUB_TOKEN is verified once so a fresh deployment can push
	if cfg.GitHub.Token != "" {
		if err := ctrl.VerifyCredential(ctx, cfg.GitHub.Token); err != nil {
			logger.Warnf("GITHUB_TOKEN rejected: %v", err)
		}
	}
	res, err := ctrl.Boot(ctx)
	if err != nil {
		logger.Errorf("boot from remote failed, serving the bootstrap snapshot: %v", err)
		if res, err = ctrl.BootSnapshot(ctx); err != nil {
			logger.Errorf("boot snapshot: %v", err)
		}
	}
	logger.Infof("document loaded from %s (revision %q)", res.Source, res.Revision)

	var rewriter bio.Rewriter
	if cfg.Anthropic.APIKey != "" {
		rewriter = bio.NewAnthropic(cfg.Anthropic.APIKey, cfg.Anthropic.Model)
	}

	gate := auth.NewGate(st, sess)
	issuer := tokens.NewIssuer(app.JWTSecret(cfg), cfg.JWT.AccessTokenTTL, blacklist)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	// Lightweight CORS middleware: the editor UI may be served from another origin.
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	})
	r.Use(gin.LoggerWithWriter(logger.Output()), gin.Recovery())

	ready := map[string]handlers.ReadyCheck{}
	if rdb != nil {
		ready["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	if mongoClient != nil {
		ready["mongodb"] = func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) }
	}

	handlers.Register(r, handlers.Deps{
		Store:        st,
		Sessions:     sess,
		Gate:         gate,
		Issuer:       issuer,
		Controller:   ctrl,
		History:      hist,
		Rewriter:     rewriter,
		LoginLimiter: middleware.RedisRateLimitMiddleware(rdb, "login", cfg.RateLimit.LoginRPS, cfg.RateLimit.LoginBurst, cfg.RateLimit.Window),
		Ready:        ready,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("Starting neubio on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

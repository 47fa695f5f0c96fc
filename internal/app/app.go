// Package app wires configuration to the concrete backends. The server and
// the CLI share it so both see the same persisted state.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/neubio/neubio/internal/blobstore"
	"github.com/neubio/neubio/internal/blobstore/github"
	"github.com/neubio/neubio/internal/blobstore/memory"
	"github.com/neubio/neubio/internal/blobstore/objectstore"
	"github.com/neubio/neubio/internal/config"
	"github.com/neubio/neubio/internal/database"
	"github.com/neubio/neubio/internal/document/store"
	"github.com/neubio/neubio/internal/history"
	"github.com/neubio/neubio/internal/sessions"
	"github.com/neubio/neubio/internal/syncer"
	"github.com/neubio/neubio/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

const mongoAttempts = 5

// BlobFactory returns the credential-scoped store constructor for the
// configured backend.
func BlobFactory(cfg *config.Config) (blobstore.Factory, error) {
	gh := github.Options{
		APIURL:        cfg.GitHub.APIURL,
		Timeout:       cfg.Server.HTTPTimeout,
		Private:       cfg.GitHub.Private,
		Branch:        cfg.GitHub.Branch,
		CommitMessage: cfg.GitHub.CommitMessage,
		RepoName:      cfg.GitHub.RepoName,
	}
	switch cfg.Blob.Backend {
	case config.BackendGist:
		return github.GistFactory(gh), nil
	case config.BackendRepo:
		return github.ContentsFactory(gh), nil
	case config.BackendMinIO:
		return objectstore.Factory(objectstore.Config{
			Endpoint:       cfg.MinIO.Endpoint,
			AccessKey:      cfg.MinIO.AccessKey,
			SecretKey:      cfg.MinIO.SecretKey,
			UseSSL:         cfg.MinIO.UseSSL,
			Bucket:         cfg.MinIO.Bucket,
			Region:         cfg.MinIO.Region,
			AssetURLExpiry: cfg.MinIO.AssetURLExpiry,
		}), nil
	case config.BackendMemory:
		return memory.New("").Factory(), nil
	}
	return nil, fmt.Errorf("unknown blob backend %q", cfg.Blob.Backend)
}

// Redis connects when REDIS_HOST is set. A failed ping is logged and
// yields nil so callers fall back to in-process state.
func Redis(ctx context.Context, cfg *config.Config) *redis.Client {
	addr := cfg.Redis.Addr()
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warnf("failed to connect to Redis (%s): %v", addr, err)
		_ = client.Close()
		return nil
	}
	logger.Infof("connected to Redis: %s", addr)
	return client
}

// Sessions persists client state in Redis when available, else in memory.
func Sessions(rdb *redis.Client, cfg *config.Config) (*sessions.Service, sessions.Blacklist) {
	if rdb != nil {
		return sessions.NewService(sessions.NewRedisRepository(rdb, cfg.Redis.Prefix)), sessions.NewRedisBlacklist(rdb)
	}
	logger.Warnf("Redis not configured: client state is kept in memory and lost on restart")
	return sessions.NewService(sessions.NewMemoryRepository()), sessions.NewMemoryBlacklist()
}

// Mongo connects when MONGODB_URI is set, retrying with backoff.
func Mongo(ctx context.Context, cfg *config.Config) *mongo.Client {
	if cfg.MongoDB.URI == "" {
		return nil
	}
	client, err := database.ConnectWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, mongoAttempts)
	if err != nil {
		logger.Warnf("could not connect to MongoDB after %d attempts: %v", mongoAttempts, err)
		return nil
	}
	return client
}

// History records operations in MongoDB when available, else in memory.
func History(ctx context.Context, client *mongo.Client, cfg *config.Config) history.Repository {
	if client != nil {
		repo, err := history.NewMongoRepo(ctx, client.Database(cfg.MongoDB.Database).Collection(history.Collection))
		if err == nil {
			return repo
		}
		logger.Warnf("history: falling back to memory: %v", err)
	}
	return history.NewMemoryRepo(history.DefaultCapacity)
}

// Controller builds the sync controller over st.
func Controller(cfg *config.Config, st *store.Store, sess *sessions.Service, hist history.Repository) (*syncer.Controller, error) {
	factory, err := BlobFactory(cfg)
	if err != nil {
		return nil, err
	}
	snap := syncer.Snapshot{
		URL:        cfg.Bootstrap.URL,
		Path:       cfg.Bootstrap.Path,
		HTTPClient: &http.Client{Timeout: cfg.Server.HTTPTimeout},
	}
	return syncer.New(st, sess, factory, snap, hist, syncer.Config{
		Backend:   cfg.Blob.Backend,
		BlobName:  cfg.Blob.Name,
		Container: cfg.Blob.Container,
	}), nil
}

// JWTSecret returns the configured secret, or a random one that only lives
// as long as the process.
func JWTSecret(cfg *config.Config) string {
	if cfg.JWT.Secret != "" {
		return cfg.JWT.Secret
	}
	logger.Warnf("JWT_SECRET not set: using an ephemeral secret, tokens die with the process")
	return uuid.NewString() + uuid.NewString()
}

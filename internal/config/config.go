package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Blob backends.
const (
	BackendGist   = "gist"
	BackendRepo   = "repo"
	BackendMinIO  = "minio"
	BackendMemory = "memory"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Blob      BlobConfig
	GitHub    GitHubConfig
	MinIO     MinIOConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Bootstrap BootstrapConfig
	Anthropic AnthropicConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// HTTPTimeout bounds outbound remote calls; zero means none.
	HTTPTimeout time.Duration
}

type BlobConfig struct {
	Backend   string
	Container string
	Name      string
}

type GitHubConfig struct {
	APIURL        string
	Token         string
	Branch        string
	CommitMessage string
	RepoName      string
	Private       bool
}

type MinIOConfig struct {
	Endpoint       string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
	Bucket         string
	Region         string
	AssetURLExpiry time.Duration
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Prefix   string
}

// Addr returns host:port, or "" when Redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return net.JoinHostPort(r.Host, r.Port)
}

type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
}

type RateLimitConfig struct {
	LoginRPS   float64
	LoginBurst int
	Window     time.Duration
}

type BootstrapConfig struct {
	URL  string
	Path string
}

type AnthropicConfig struct {
	APIKey string
	Model  string
}

type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("HTTP_TIMEOUT", 30)
	v.SetDefault("BLOB_BACKEND", BackendMemory)
	v.SetDefault("BLOB_NAME", "data.json")
	v.SetDefault("GITHUB_API_URL", "https://api.github.com")
	v.SetDefault("GITHUB_BRANCH", "main")
	v.SetDefault("GITHUB_COMMIT_MESSAGE", "Update profile data via neubio")
	v.SetDefault("GITHUB_REPO_NAME", "neubio-data")
	v.SetDefault("MINIO_BUCKET", "neubio")
	v.SetDefault("MINIO_REGION", "us-east-1")
	v.SetDefault("MINIO_ASSET_URL_EXPIRY", 168)
	v.SetDefault("MONGODB_DATABASE", "neubio")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PREFIX", "neubio:state:")
	v.SetDefault("JWT_ACCESS_TOKEN_TTL", 60)
	v.SetDefault("RATE_LIMIT_LOGIN_RPS", 0.2)
	v.SetDefault("RATE_LIMIT_LOGIN_BURST", 5)
	v.SetDefault("RATE_LIMIT_WINDOW", 60)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_MAX_SIZE_MB", 10)
	v.SetDefault("LOG_MAX_BACKUPS", 3)

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			HTTPTimeout:  time.Duration(v.GetInt("HTTP_TIMEOUT")) * time.Second,
		},
		Blob: BlobConfig{
			Backend:   v.GetString("BLOB_BACKEND"),
			Container: v.GetString("BLOB_CONTAINER"),
			Name:      v.GetString("BLOB_NAME"),
		},
		GitHub: GitHubConfig{
			APIURL:        v.GetString("GITHUB_API_URL"),
			Token:         os.Getenv("GITHUB_TOKEN"),
			Branch:        v.GetString("GITHUB_BRANCH"),
			CommitMessage: v.GetString("GITHUB_COMMIT_MESSAGE"),
			RepoName:      v.GetString("GITHUB_REPO_NAME"),
			Private:       v.GetBool("GITHUB_PRIVATE"),
		},
		MinIO: MinIOConfig{
			Endpoint:       v.GetString("MINIO_ENDPOINT"),
			AccessKey:      v.GetString("MINIO_ACCESS_KEY"),
			SecretKey:      os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:         v.GetBool("MINIO_USE_SSL"),
			Bucket:         v.GetString("MINIO_BUCKET"),
			Region:         v.GetString("MINIO_REGION"),
			AssetURLExpiry: time.Duration(v.GetInt("MINIO_ASSET_URL_EXPIRY")) * time.Hour,
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			Prefix:   v.GetString("REDIS_PREFIX"),
		},
		JWT: JWTConfig{
			Secret:         os.Getenv("JWT_SECRET"),
			AccessTokenTTL: time.Duration(v.GetInt("JWT_ACCESS_TOKEN_TTL")) * time.Minute,
		},
		RateLimit: RateLimitConfig{
			LoginRPS:   v.GetFloat64("RATE_LIMIT_LOGIN_RPS"),
			LoginBurst: v.GetInt("RATE_LIMIT_LOGIN_BURST"),
			Window:     time.Duration(v.GetInt("RATE_LIMIT_WINDOW")) * time.Second,
		},
		Bootstrap: BootstrapConfig{
			URL:  v.GetString("BOOTSTRAP_URL"),
			Path: v.GetString("BOOTSTRAP_PATH"),
		},
		Anthropic: AnthropicConfig{
			APIKey: os.Getenv("ANTHROPIC_API_KEY"),
			Model:  v.GetString("ANTHROPIC_MODEL"),
		},
		Log: LogConfig{
			Level:      v.GetString("LOG_LEVEL"),
			File:       v.GetString("LOG_FILE"),
			MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
			MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.Blob.Backend {
	case BackendGist, BackendRepo, BackendMemory:
	case BackendMinIO:
		if c.MinIO.Endpoint == "" {
			return fmt.Errorf("config: MINIO_ENDPOINT is required for the minio backend")
		}
	default:
		return fmt.Errorf("config: unknown BLOB_BACKEND %q", c.Blob.Backend)
	}
	if c.Blob.Name == "" {
		return fmt.Errorf("config: BLOB_NAME must not be empty")
	}
	if c.JWT.AccessTokenTTL <= 0 {
		return fmt.Errorf("config: JWT_ACCESS_TOKEN_TTL must be positive")
	}
	return nil
}

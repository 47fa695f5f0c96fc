package objectstore

import "time"

// Config holds the S3/MinIO connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string
	// AssetURLExpiry bounds presigned asset links (S3 caps them at 7 days).
	AssetURLExpiry time.Duration
}

const (
	DefaultBucket   = "neubio"
	DefaultRegion   = "us-east-1"
	maxPresignedAge = 7 * 24 * time.Hour
)

func (c Config) withDefaults() Config {
	if c.Bucket == "" {
		c.Bucket = DefaultBucket
	}
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.AssetURLExpiry <= 0 || c.AssetURLExpiry > maxPresignedAge {
		c.AssetURLExpiry = maxPresignedAge
	}
	return c
}

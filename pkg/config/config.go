// Package config loads this service's configuration from an optional
// TOML file (env-expanded, mirroring the teacher's serve.NewExpandReader)
// plus the handful of environment variables spec.md calls out by name.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/antgroup/gitsync/modules/objstore"
	"github.com/antgroup/gitsync/modules/streamio"
)

const (
	DefaultListen       = "127.0.0.1:8080"
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 5 * time.Minute
	DefaultIdleTimeout  = 2 * time.Minute

	envSecret             = "INTERNAL_SHARED_SECRET"
	envReposBucket        = "R2_REPOS_BUCKET"
	envFileTransferBucket = "R2_FILE_TRANSFER_BUCKET"

	maxConfigFileSize = 4 << 20
)

// Duration lets a TOML value like "30s" decode straight into a
// time.Duration.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// Config is the full process configuration: the shared-secret auth
// token, the two object-store buckets (repo storage and file transfer),
// and the HTTP server's listen address and timeouts.
type Config struct {
	Secret             string                `toml:"secret,omitempty"`
	Listen             string                `toml:"listen,omitempty"`
	ReadTimeout        Duration              `toml:"read_timeout,omitempty"`
	WriteTimeout       Duration              `toml:"write_timeout,omitempty"`
	IdleTimeout        Duration              `toml:"idle_timeout,omitempty"`
	ReposBucket        objstore.BucketConfig `toml:"repos_bucket,omitempty"`
	FileTransferBucket objstore.BucketConfig `toml:"file_transfer_bucket,omitempty"`
}

// Load reads file (if non-empty) as an env-expanded TOML document into a
// Config seeded with defaults, then overlays the environment variables
// spec.md's §6 names explicitly: a non-empty INTERNAL_SHARED_SECRET wins
// over a TOML-configured secret, and non-empty R2_REPOS_BUCKET /
// R2_FILE_TRANSFER_BUCKET values override just the bucket name (endpoint and credentials still come
// from the TOML file, since R2 has no env-var convention for those).
func Load(file string) (*Config, error) {
	cfg := &Config{
		Listen:       DefaultListen,
		ReadTimeout:  Duration{DefaultReadTimeout},
		WriteTimeout: Duration{DefaultWriteTimeout},
		IdleTimeout:  Duration{DefaultIdleTimeout},
	}

	if file != "" {
		if err := decodeFile(file, cfg); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", file, err)
		}
	}

	if secret := os.Getenv(envSecret); secret != "" {
		cfg.Secret = secret
	}
	if bucket := os.Getenv(envReposBucket); bucket != "" {
		cfg.ReposBucket.Bucket = bucket
	}
	if bucket := os.Getenv(envFileTransferBucket); bucket != "" {
		cfg.FileTransferBucket.Bucket = bucket
	}

	return cfg, nil
}

func decodeFile(file string, cfg *Config) error {
	fd, err := os.Open(file)
	if err != nil {
		return err
	}
	defer fd.Close()

	raw, err := streamio.GrowReadMax(fd, maxConfigFileSize, 4096)
	if err != nil {
		return err
	}

	_, err = toml.Decode(os.ExpandEnv(string(raw)), cfg)
	return err
}

// ErrMissingBuckets is returned by Validate when either R2 bucket name is
// unset, mirroring spec.md §6's 500 missing_r2_buckets error code.
var ErrMissingBuckets = errors.New("config: repos bucket and file transfer bucket must both be configured")

// ErrMissingSecret is returned by Validate when no shared secret is
// configured; per spec.md §6, a missing secret denies all requests
// rather than allowing unauthenticated access.
var ErrMissingSecret = errors.New("config: no shared secret configured")

// Validate checks that the configuration is complete enough to serve
// requests.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Secret) == "" {
		return ErrMissingSecret
	}
	if strings.TrimSpace(c.ReposBucket.Bucket) == "" || strings.TrimSpace(c.FileTransferBucket.Bucket) == "" {
		return ErrMissingBuckets
	}
	return nil
}

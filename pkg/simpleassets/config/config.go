// Package config builds a simpleassets.Service from declarative
// configuration: backend selectors resolved once at construction time, with
// defaults, a YAML file layer, and environment overrides.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-assets/pkg/simpleassets"
	memoryrepo "github.com/tendant/simple-assets/pkg/simpleassets/repo/memory"
	postgresrepo "github.com/tendant/simple-assets/pkg/simpleassets/repo/postgres"
	sqliterepo "github.com/tendant/simple-assets/pkg/simpleassets/repo/sqlite"
	fsstorage "github.com/tendant/simple-assets/pkg/simpleassets/storage/fs"
	memorystorage "github.com/tendant/simple-assets/pkg/simpleassets/storage/memory"
	s3storage "github.com/tendant/simple-assets/pkg/simpleassets/storage/s3"
)

// Option applies configuration on top of the defaults.
type Option func(*Config) error

// Load constructs a Config by applying the supplied options over library
// defaults and validating the result.
func Load(opts ...Option) (*Config, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() Config {
	return Config{
		Expression: ExpressionConfig{
			NamePattern:  simpleassets.DefaultNamePattern,
			Opening:      simpleassets.DefaultOpeningMarker,
			Closing:      simpleassets.DefaultClosingMarker,
			IgnoreSpaces: true,
		},
		Constraints: ConstraintsConfig{
			Capacity:  simpleassets.DefaultCapacity,
			MaxSizeKB: simpleassets.DefaultMaxFileSizeKB,
		},
		Database: DatabaseConfig{Type: "memory"},
		Storage:  StorageConfig{Type: "memory"},
	}
}

// Config is the full tenant-asset service configuration.
type Config struct {
	Expression  ExpressionConfig  `yaml:"expression"`
	Constraints ConstraintsConfig `yaml:"constraints"`
	Database    DatabaseConfig    `yaml:"database"`
	Storage     StorageConfig     `yaml:"storage"`
}

// ExpressionConfig is the tenant-class name expression configuration.
type ExpressionConfig struct {
	NamePattern  string `yaml:"name_pattern"`
	Opening      string `yaml:"opening"`
	Closing      string `yaml:"closing"`
	IgnoreSpaces bool   `yaml:"ignore_spaces"`
}

// ConstraintsConfig is the global constraint profile plus per-tenant
// overrides keyed by tenant id.
type ConstraintsConfig struct {
	Capacity  int                               `yaml:"capacity"`
	MaxSizeKB int                               `yaml:"max_size_kb"`
	Overrides map[int64]simpleassets.Constraint `yaml:"overrides"`
}

// DatabaseConfig selects the metadata backend.
type DatabaseConfig struct {
	Type string `yaml:"type"` // "memory", "sqlite", "postgres"
	Path string `yaml:"path"` // sqlite file path
	URL  string `yaml:"url"`  // postgres connection string
}

// StorageConfig selects the blob backend.
type StorageConfig struct {
	Type      string   `yaml:"type"`      // "memory", "fs", "s3"
	Directory string   `yaml:"directory"` // fs storage root
	S3        S3Config `yaml:"s3"`
}

// S3Config configures the S3 blob backend.
type S3Config struct {
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Endpoint        string `yaml:"endpoint"`
	UsePathStyle    bool   `yaml:"use_path_style"`
	CreateBucket    bool   `yaml:"create_bucket"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "memory":
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("database.path is required when using sqlite")
		}
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("database.url is required when using postgres")
		}
	default:
		return fmt.Errorf("database.type must be 'memory', 'sqlite' or 'postgres', got %q", c.Database.Type)
	}

	switch c.Storage.Type {
	case "memory":
	case "fs":
		if c.Storage.Directory == "" {
			return errors.New("storage.directory is required when using fs")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return errors.New("storage.s3.bucket is required when using s3")
		}
	default:
		return fmt.Errorf("storage.type must be 'memory', 'fs' or 's3', got %q", c.Storage.Type)
	}

	if c.Constraints.MaxSizeKB <= 0 {
		return errors.New("constraints.max_size_kb must be positive")
	}
	if c.Constraints.Capacity < simpleassets.CapacityUnlimited {
		return errors.New("constraints.capacity must be -1 (unlimited) or non-negative")
	}

	return nil
}

// BuildMetadataStore constructs the configured metadata backend.
func (c *Config) BuildMetadataStore(ctx context.Context) (simpleassets.MetadataStore, error) {
	switch c.Database.Type {
	case "memory":
		var opts []memoryrepo.Option
		if c.Expression.IgnoreSpaces {
			opts = append(opts, memoryrepo.WithIgnoreSpaces())
		}
		return memoryrepo.New(opts...), nil

	case "sqlite":
		var opts []sqliterepo.Option
		if c.Expression.IgnoreSpaces {
			opts = append(opts, sqliterepo.WithIgnoreSpaces())
		}
		return sqliterepo.Open(c.Database.Path, opts...)

	case "postgres":
		pool, err := pgxpool.New(ctx, c.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		var opts []postgresrepo.Option
		if c.Expression.IgnoreSpaces {
			opts = append(opts, postgresrepo.WithIgnoreSpaces())
		}
		store := postgresrepo.NewWithPool(pool, opts...)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown database type %q", c.Database.Type)
	}
}

// BuildBlobStore constructs the configured blob backend.
func (c *Config) BuildBlobStore(logger *slog.Logger) (simpleassets.BlobStore, error) {
	switch c.Storage.Type {
	case "memory":
		return memorystorage.New(), nil

	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir: c.Storage.Directory,
			Logger:  logger,
		})

	case "s3":
		return s3storage.New(s3storage.Config{
			Region:                 c.Storage.S3.Region,
			Bucket:                 c.Storage.S3.Bucket,
			AccessKeyID:            c.Storage.S3.AccessKeyID,
			SecretAccessKey:        c.Storage.S3.SecretAccessKey,
			Endpoint:               c.Storage.S3.Endpoint,
			UsePathStyle:           c.Storage.S3.UsePathStyle,
			CreateBucketIfNotExist: c.Storage.S3.CreateBucket,
		})

	default:
		return nil, fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}
}

// BuildService wires the configured backends and policies into a Service.
func (c *Config) BuildService(ctx context.Context, logger *slog.Logger) (simpleassets.Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	metadata, err := c.BuildMetadataStore(ctx)
	if err != nil {
		return nil, err
	}

	blobs, err := c.BuildBlobStore(logger)
	if err != nil {
		return nil, err
	}

	namePolicy, err := simpleassets.NewNamePolicy(simpleassets.NamePolicyConfig{
		Pattern:      c.Expression.NamePattern,
		Opening:      c.Expression.Opening,
		Closing:      c.Expression.Closing,
		IgnoreSpaces: c.Expression.IgnoreSpaces,
	})
	if err != nil {
		return nil, err
	}

	constraints := simpleassets.NewConstraintPolicy(simpleassets.Constraint{
		Capacity:      c.Constraints.Capacity,
		MaxFileSizeKB: c.Constraints.MaxSizeKB,
	}, c.Constraints.Overrides)

	return simpleassets.New(
		simpleassets.WithMetadataStore(metadata),
		simpleassets.WithBlobStore(blobs),
		simpleassets.WithNamePolicy(namePolicy),
		simpleassets.WithConstraintPolicy(constraints),
		simpleassets.WithLogger(logger),
	)
}

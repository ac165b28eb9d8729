package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// WithFile loads configuration from a YAML file. Missing keys keep their
// current values.
func WithFile(path string) Option {
	return func(c *Config) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}
		return nil
	}
}

// WithDatabase selects the metadata backend programmatically.
func WithDatabase(dbType, target string) Option {
	return func(c *Config) error {
		c.Database.Type = dbType
		switch dbType {
		case "sqlite":
			c.Database.Path = target
		case "postgres":
			c.Database.URL = target
		}
		return nil
	}
}

// WithStorage selects the blob backend programmatically.
func WithStorage(storageType, directory string) Option {
	return func(c *Config) error {
		c.Storage.Type = storageType
		c.Storage.Directory = directory
		return nil
	}
}

// WithEnv applies environment variable overrides using the provided prefix.
//
// Database:
//
//	DATABASE_TYPE - "memory", "sqlite" or "postgres"
//	DATABASE_PATH - sqlite file path
//	DATABASE_URL  - postgres connection string
//
// Storage:
//
//	STORAGE_TYPE - "memory", "fs" or "s3"
//	STORAGE_DIR  - fs storage root
//	S3_REGION, S3_BUCKET, S3_ACCESS_KEY_ID, S3_SECRET_ACCESS_KEY,
//	S3_ENDPOINT, S3_USE_PATH_STYLE, S3_CREATE_BUCKET
//
// Expression and constraints:
//
//	NAME_PATTERN, OPENING_MARKER, CLOSING_MARKER, IGNORE_SPACES
//	DEFAULT_CAPACITY, DEFAULT_MAX_SIZE_KB
func WithEnv(prefix string) Option {
	return func(c *Config) error {
		setString(prefix, "DATABASE_TYPE", &c.Database.Type)
		setString(prefix, "DATABASE_PATH", &c.Database.Path)
		setString(prefix, "DATABASE_URL", &c.Database.URL)

		setString(prefix, "STORAGE_TYPE", &c.Storage.Type)
		setString(prefix, "STORAGE_DIR", &c.Storage.Directory)
		setString(prefix, "S3_REGION", &c.Storage.S3.Region)
		setString(prefix, "S3_BUCKET", &c.Storage.S3.Bucket)
		setString(prefix, "S3_ACCESS_KEY_ID", &c.Storage.S3.AccessKeyID)
		setString(prefix, "S3_SECRET_ACCESS_KEY", &c.Storage.S3.SecretAccessKey)
		setString(prefix, "S3_ENDPOINT", &c.Storage.S3.Endpoint)
		if err := setBool(prefix, "S3_USE_PATH_STYLE", &c.Storage.S3.UsePathStyle); err != nil {
			return err
		}
		if err := setBool(prefix, "S3_CREATE_BUCKET", &c.Storage.S3.CreateBucket); err != nil {
			return err
		}

		setString(prefix, "NAME_PATTERN", &c.Expression.NamePattern)
		setString(prefix, "OPENING_MARKER", &c.Expression.Opening)
		setString(prefix, "CLOSING_MARKER", &c.Expression.Closing)
		if err := setBool(prefix, "IGNORE_SPACES", &c.Expression.IgnoreSpaces); err != nil {
			return err
		}
		if err := setInt(prefix, "DEFAULT_CAPACITY", &c.Constraints.Capacity); err != nil {
			return err
		}
		if err := setInt(prefix, "DEFAULT_MAX_SIZE_KB", &c.Constraints.MaxSizeKB); err != nil {
			return err
		}

		return nil
	}
}

func lookupEnv(prefix, key string) (string, bool) {
	if prefix != "" {
		key = prefix + key
	}
	return os.LookupEnv(key)
}

func setString(prefix, key string, dst *string) {
	if v, ok := lookupEnv(prefix, key); ok && v != "" {
		*dst = v
	}
}

func setBool(prefix, key string, dst *bool) error {
	v, ok := lookupEnv(prefix, key)
	if !ok || v == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*dst = parsed
	return nil
}

func setInt(prefix, key string, dst *int) error {
	v, ok := lookupEnv(prefix, key)
	if !ok || v == "" {
		return nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*dst = parsed
	return nil
}

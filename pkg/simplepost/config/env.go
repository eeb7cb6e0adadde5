package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// WithEnv reads the environment into the configuration using the struct tags on
// ServerConfig. Variables that are set override earlier options; tag defaults only
// fill fields that are still empty.
//
// Environment variables:
//
//	PORT, ENVIRONMENT, LOG_LEVEL
//	RECORD_STORE_URL  - memory | badger:///path | badger://memory | postgres://... | dynamodb://TABLE?region=
//	CONTENT_STORE_URL - memory:// | file:///path | s3://bucket?region=&endpoint= | minio://host:port/bucket?ssl=
//	TABLE_NAME        - dynamodb table, used when RECORD_STORE_URL is unset
//	CONTENT_BUCKET    - s3 bucket, used when CONTENT_STORE_URL is unset
//	AWS_REGION, AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY
//	MINIO_ACCESS_KEY_ID, MINIO_SECRET_ACCESS_KEY
//	DB_SCHEMA, MIGRATE_SCHEMA
func WithEnv() Option {
	return func(c *ServerConfig) error {
		if err := cleanenv.ReadEnv(c); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		applyCompat(c)
		return nil
	}
}

func applyCompat(c *ServerConfig) {
	if c.RecordStoreURL == "" {
		if c.TableName != "" {
			c.RecordStoreURL = "dynamodb://" + c.TableName
		} else {
			c.RecordStoreURL = "memory"
		}
	}
	if c.ContentStoreURL == "" {
		if c.ContentBucket != "" {
			c.ContentStoreURL = "s3://" + c.ContentBucket
		} else {
			c.ContentStoreURL = "memory://"
		}
	}
}

// WithRecordStoreURL sets the record store location
func WithRecordStoreURL(raw string) Option {
	return func(c *ServerConfig) error {
		c.RecordStoreURL = raw
		return nil
	}
}

// WithContentStoreURL sets the content store location
func WithContentStoreURL(raw string) Option {
	return func(c *ServerConfig) error {
		c.ContentStoreURL = raw
		return nil
	}
}

// WithPort sets the listen port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the runtime environment
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		c.Environment = env
		return nil
	}
}

// WithLogLevel sets the log level (debug, info, warn, error)
func WithLogLevel(level string) Option {
	return func(c *ServerConfig) error {
		c.LogLevel = level
		return nil
	}
}

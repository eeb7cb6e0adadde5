package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-post/pkg/simplepost"
	memorycontent "github.com/tendant/simple-post/pkg/simplepost/contentstore/memory"
	fscontent "github.com/tendant/simple-post/pkg/simplepost/contentstore/fs"
	miniocontent "github.com/tendant/simple-post/pkg/simplepost/contentstore/minio"
	s3content "github.com/tendant/simple-post/pkg/simplepost/contentstore/s3"
	badgerrecords "github.com/tendant/simple-post/pkg/simplepost/recordstore/badger"
	dynamorecords "github.com/tendant/simple-post/pkg/simplepost/recordstore/dynamodb"
	memoryrecords "github.com/tendant/simple-post/pkg/simplepost/recordstore/memory"
	pgrecords "github.com/tendant/simple-post/pkg/simplepost/recordstore/postgres"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
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

func defaults() ServerConfig {
	return ServerConfig{
		Port:        "8080",
		Environment: "development",
		LogLevel:    "info",
		AWSRegion:   "us-east-1",
	}
}

// ServerConfig represents server configuration for the simple-post service
type ServerConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"` // development, production, testing
	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`

	// Record store (empty means memory): memory, badger:///path, badger://memory, postgres://..., dynamodb://TABLE
	RecordStoreURL string `env:"RECORD_STORE_URL"`
	DBSchema       string `env:"DB_SCHEMA"`                          // Postgres search_path
	MigrateSchema  bool   `env:"MIGRATE_SCHEMA" env-default:"false"` // Create the records table on startup

	// Content store (empty means memory): memory://, file:///path, s3://bucket, minio://host:port/bucket
	ContentStoreURL string `env:"CONTENT_STORE_URL"`

	// Names used by earlier deployments, honored when the URLs above are unset
	TableName     string `env:"TABLE_NAME"`
	ContentBucket string `env:"CONTENT_BUCKET"`

	AWSRegion          string `env:"AWS_REGION" env-default:"us-east-1"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`

	MinioAccessKeyID     string `env:"MINIO_ACCESS_KEY_ID" env-default:"minioadmin"`
	MinioSecretAccessKey string `env:"MINIO_SECRET_ACCESS_KEY" env-default:"minioadmin"`
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if _, err := c.SlogLevel(); err != nil {
		return err
	}

	rs, err := parseStoreURL(c.RecordStoreURL)
	if err != nil {
		return fmt.Errorf("invalid record store url: %w", err)
	}
	switch rs.Scheme {
	case "memory":
	case "badger":
		if rs.Host != "memory" && rs.Path == "" {
			return errors.New("badger record store requires a path or badger://memory")
		}
	case "postgres", "postgresql":
	case "dynamodb":
		if rs.Host == "" {
			return errors.New("dynamodb record store requires a table name")
		}
	default:
		return fmt.Errorf("unsupported record store type: %s", rs.Scheme)
	}

	cs, err := parseStoreURL(c.ContentStoreURL)
	if err != nil {
		return fmt.Errorf("invalid content store url: %w", err)
	}
	switch cs.Scheme {
	case "memory":
	case "file":
		if filePath(c.ContentStoreURL) == "" {
			return errors.New("filesystem path cannot be empty in content store url")
		}
	case "s3":
		if cs.Host == "" {
			return errors.New("s3 content store requires a bucket name")
		}
	case "minio":
		if cs.Host == "" || minioBucket(cs) == "" {
			return errors.New("minio content store requires host:port/bucket")
		}
	default:
		return fmt.Errorf("unsupported content store type: %s", cs.Scheme)
	}

	return nil
}

// SlogLevel parses LogLevel
func (c *ServerConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// BuildService creates a Service from the server configuration. The returned cleanup
// function releases connections and files held by the stores.
func (c *ServerConfig) BuildService(ctx context.Context, extra ...simplepost.Option) (simplepost.Service, func(), error) {
	records, closeRecords, err := c.BuildRecordStore(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build record store: %w", err)
	}

	contents, err := c.BuildContentStore(ctx)
	if err != nil {
		closeRecords()
		return nil, nil, fmt.Errorf("failed to build content store: %w", err)
	}

	options := []simplepost.Option{
		simplepost.WithRecordStore(records),
		simplepost.WithContentStore(contents),
	}
	options = append(options, extra...)

	svc, err := simplepost.New(options...)
	if err != nil {
		closeRecords()
		return nil, nil, err
	}
	return svc, closeRecords, nil
}

// BuildRecordStore creates the RecordStore named by RecordStoreURL
func (c *ServerConfig) BuildRecordStore(ctx context.Context) (simplepost.RecordStore, func(), error) {
	noop := func() {}

	u, err := parseStoreURL(c.RecordStoreURL)
	if err != nil {
		return nil, nil, err
	}

	switch u.Scheme {
	case "memory":
		return memoryrecords.New(), noop, nil

	case "badger":
		cfg := badgerrecords.Config{Path: u.Path}
		if u.Host == "memory" {
			cfg = badgerrecords.InMemoryConfig()
		}
		cfg.SyncWrites = queryBool(u, "sync", false)
		store, err := badgerrecords.Open(cfg)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil

	case "postgres", "postgresql":
		pool, err := c.openPostgres(ctx)
		if err != nil {
			return nil, nil, err
		}
		store := pgrecords.NewWithPool(pool)
		if c.MigrateSchema {
			if err := store.Migrate(ctx); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		return store, pool.Close, nil

	case "dynamodb":
		store, err := dynamorecords.NewFromConfig(dynamorecords.Config{
			Table:           u.Host,
			Region:          queryString(u, "region", c.AWSRegion),
			Endpoint:        queryString(u, "endpoint", ""),
			AccessKeyID:     c.AWSAccessKeyID,
			SecretAccessKey: c.AWSSecretAccessKey,
			ConsistentRead:  queryBool(u, "consistent", false),
		})
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil

	default:
		return nil, nil, fmt.Errorf("unsupported record store type: %s", u.Scheme)
	}
}

func (c *ServerConfig) openPostgres(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(c.RecordStoreURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RECORD_STORE_URL: %w", err)
	}
	if schema := c.DBSchema; schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", pgx.Identifier{schema}.Sanitize()))
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return pool, nil
}

// BuildContentStore creates the ContentStore named by ContentStoreURL
func (c *ServerConfig) BuildContentStore(ctx context.Context) (simplepost.ContentStore, error) {
	u, err := parseStoreURL(c.ContentStoreURL)
	if err != nil {
		return nil, err
	}

	switch u.Scheme {
	case "memory":
		return memorycontent.New(), nil

	case "file":
		return fscontent.New(fscontent.Config{BaseDir: filePath(c.ContentStoreURL)})

	case "s3":
		return s3content.New(s3content.Config{
			Bucket:                 u.Host,
			Region:                 queryString(u, "region", c.AWSRegion),
			Endpoint:               queryString(u, "endpoint", ""),
			UsePathStyle:           queryBool(u, "path_style", false),
			AccessKeyID:            c.AWSAccessKeyID,
			SecretAccessKey:        c.AWSSecretAccessKey,
			EnableSSE:              queryBool(u, "sse", false),
			SSEAlgorithm:           queryString(u, "sse_algorithm", "AES256"),
			SSEKMSKeyID:            queryString(u, "sse_kms_key_id", ""),
			CreateBucketIfNotExist: queryBool(u, "create_bucket", false),
		})

	case "minio":
		return miniocontent.NewFromConfig(ctx, miniocontent.Config{
			Endpoint:               u.Host,
			Bucket:                 minioBucket(u),
			UseSSL:                 queryBool(u, "ssl", false),
			Region:                 queryString(u, "region", ""),
			AccessKeyID:            c.MinioAccessKeyID,
			SecretAccessKey:        c.MinioSecretAccessKey,
			CreateBucketIfNotExist: queryBool(u, "create_bucket", false),
		})

	default:
		return nil, fmt.Errorf("unsupported content store type: %s", u.Scheme)
	}
}

// parseStoreURL accepts bare scheme names such as "memory" as well as full URLs
func parseStoreURL(raw string) (*url.URL, error) {
	if raw == "" || raw == "memory" {
		return &url.URL{Scheme: "memory"}, nil
	}
	if !strings.Contains(raw, "://") {
		return nil, fmt.Errorf("unsupported store url format: %s", raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// filePath keeps relative paths such as file://./data intact
func filePath(raw string) string {
	path, _, _ := strings.Cut(strings.TrimPrefix(raw, "file://"), "?")
	return path
}

func minioBucket(u *url.URL) string {
	bucket, _, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	return bucket
}

func queryString(u *url.URL, key, defaultValue string) string {
	if v := u.Query().Get(key); v != "" {
		return v
	}
	return defaultValue
}

func queryBool(u *url.URL, key string, defaultValue bool) bool {
	if v := u.Query().Get(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

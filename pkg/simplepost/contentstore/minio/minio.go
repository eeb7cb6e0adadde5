// Package minio stores post content in a MinIO or other S3-compatible bucket through the
// minio-go client.
package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/tendant/simple-post/pkg/simplepost"
	"github.com/tendant/simple-post/pkg/simplepost/contentkey"
)

// Config options for the MinIO backend
type Config struct {
	Endpoint        string // host:port, without scheme
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Region          string
	Bucket          string
	ContentType     string // Content type written on objects (default: text/markdown)

	CreateBucketIfNotExist bool

	KeyGenerator contentkey.Generator // Optional, defaults to git-like sharding
}

var _ simplepost.ContentStore = (*Backend)(nil)

// Backend stores content objects in a bucket
type Backend struct {
	client      *minio.Client
	bucket      string
	contentType string
	keys        contentkey.Generator
}

// New wraps an existing client
func New(client *minio.Client, bucket string) *Backend {
	return &Backend{
		client:      client,
		bucket:      bucket,
		contentType: simplepost.ContentTypeMarkdown,
		keys:        contentkey.NewGitLikeGenerator(),
	}
}

// NewFromConfig creates a client from config and wraps it
func NewFromConfig(ctx context.Context, config Config) (*Backend, error) {
	if config.Endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
		Region: config.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	backend := New(client, config.Bucket)
	if config.ContentType != "" {
		backend.contentType = config.ContentType
	}
	if config.KeyGenerator != nil {
		backend.keys = config.KeyGenerator
	}

	if config.CreateBucketIfNotExist {
		exists, err := client.BucketExists(ctx, config.Bucket)
		if err != nil {
			return nil, fmt.Errorf("failed to check bucket: %w", err)
		}
		if !exists {
			err = client.MakeBucket(ctx, config.Bucket, minio.MakeBucketOptions{Region: config.Region})
			if err != nil {
				return nil, fmt.Errorf("failed to create bucket: %w", err)
			}
		}
	}

	return backend, nil
}

// Resolve downloads the object behind ptr
func (b *Backend) Resolve(ctx context.Context, ptr simplepost.Pointer) ([]byte, error) {
	if ptr.IsEmpty() {
		return nil, nil
	}

	obj, err := b.client.GetObject(ctx, b.bucket, string(ptr), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer obj.Close()

	// GetObject is lazy, the first read reports a missing key
	data, err := io.ReadAll(obj)
	if isNotFound(err) {
		return nil, simplepost.ErrContentNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}

// Store uploads content under a new key
func (b *Backend) Store(ctx context.Context, content []byte) (simplepost.Pointer, error) {
	key := b.keys.GenerateKey(uuid.New())

	_, err := b.client.PutObject(ctx, b.bucket, key, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: b.contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object: %w", err)
	}
	return simplepost.Pointer(key), nil
}

// Exists reports whether the object behind ptr exists and is non-empty
func (b *Backend) Exists(ctx context.Context, ptr simplepost.Pointer) (bool, error) {
	if ptr.IsEmpty() {
		return false, nil
	}

	info, err := b.client.StatObject(ctx, b.bucket, string(ptr), minio.StatObjectOptions{})
	if isNotFound(err) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("failed to stat object: %w", err)
	}
	return info.Size > 0, nil
}

// Delete removes the object behind ptr
func (b *Backend) Delete(ctx context.Context, ptr simplepost.Pointer) error {
	_, err := b.client.StatObject(ctx, b.bucket, string(ptr), minio.StatObjectOptions{})
	if isNotFound(err) {
		return simplepost.ErrContentNotFound
	} else if err != nil {
		return err
	}

	return b.client.RemoveObject(ctx, b.bucket, string(ptr), minio.RemoveObjectOptions{})
}

func isNotFound(err error) bool {
	return err != nil && minio.ToErrorResponse(err).StatusCode == http.StatusNotFound
}

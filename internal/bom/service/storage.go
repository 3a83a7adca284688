package service

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/replaysMike/Binner-sub003/internal/config"
)

// ExportArchiver stores a copy of every exported BOM.
type ExportArchiver interface {
	Archive(ctx context.Context, objectName, contentType string, data []byte) error
}

// NewMinIOArchiver connects to MinIO. It returns nil when no endpoint is configured.
func NewMinIOArchiver(cfg config.MinIOConfig) (*MinIOArchiver, error) {
	if cfg.Endpoint == "" {
		return nil, nil
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &MinIOArchiver{client: client, bucket: cfg.Bucket}, nil
}

// MinIOArchiver archives exports to a MinIO bucket, creating it on first use.
type MinIOArchiver struct {
	client *minio.Client
	bucket string

	once      sync.Once
	bucketErr error
}

func (a *MinIOArchiver) ensureBucket(ctx context.Context) error {
	a.once.Do(func() {
		exists, err := a.client.BucketExists(ctx, a.bucket)
		if err != nil {
			a.bucketErr = fmt.Errorf("check bucket %s: %w", a.bucket, err)
			return
		}
		if !exists {
			if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
				a.bucketErr = fmt.Errorf("create bucket %s: %w", a.bucket, err)
			}
		}
	})
	return a.bucketErr
}

func (a *MinIOArchiver) Archive(ctx context.Context, objectName, contentType string, data []byte) error {
	if err := a.ensureBucket(ctx); err != nil {
		return err
	}
	_, err := a.client.PutObject(ctx, a.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", objectName, err)
	}
	return nil
}

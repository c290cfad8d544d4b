// internal/storage/minio.go
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"pharmaguard-back/internal/config"
)

// Archive keeps a durable object-store copy of uploaded VCF files. The
// authoritative payload lives in the record row; the archive is optional
// and only active when MinIO is configured.
type Archive struct {
	client *minio.Client
	bucket string
}

// NewArchive connects to MinIO and ensures the bucket exists. Returns nil
// without error when MinIO is not configured.
func NewArchive(ctx context.Context, cfg config.MinIOConfig) (*Archive, error) {
	if !cfg.Configured() {
		return nil, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Archive{client: client, bucket: cfg.Bucket}, nil
}

// StoreVCF archives the raw upload under patients/<patientID>/<filename>.
func (a *Archive) StoreVCF(ctx context.Context, patientID, filename string, data []byte) (string, error) {
	objectName := fmt.Sprintf("patients/%s/%s", patientID, filename)

	_, err := a.client.PutObject(ctx, a.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "text/plain",
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive VCF: %w", err)
	}
	return objectName, nil
}

// FetchVCF streams an archived object back.
func (a *Archive) FetchVCF(ctx context.Context, objectName string) (io.ReadCloser, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get archived VCF: %w", err)
	}
	return obj, nil
}

// RemoveVCF deletes an archived object.
func (a *Archive) RemoveVCF(ctx context.Context, objectName string) error {
	if err := a.client.RemoveObject(ctx, a.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove archived VCF: %w", err)
	}
	return nil
}

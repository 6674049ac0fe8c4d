package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/andresuchdata/stockplanner/internal/config"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStorage captures the operations used to fetch input workbooks and
// publish exports.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	GetObject(ctx context.Context, key string) ([]byte, error)
	UploadObject(ctx context.Context, key string, data []byte, contentType string) error
	Close() error
}

// NewFromConfig builds the configured backend. It returns nil and no error
// when no driver is set.
func NewFromConfig(ctx context.Context, cfg config.StorageConfig, log zerolog.Logger) (ObjectStorage, error) {
	switch cfg.Driver {
	case "":
		return nil, nil
	case "s3", "minio":
		c, err := NewS3Client(cfg.S3)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "sftp":
		c, err := DialSFTP(ctx, cfg.SFTP, log)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// ExportKey is where a run's export file is published.
func ExportKey(prefix, runID, fileName string) string {
	return path.Join(strings.Trim(prefix, "/"), runID, path.Base(fileName))
}

// ParseS3URL splits "s3://bucket/key". ok is false for anything else.
func ParseS3URL(raw string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(raw, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

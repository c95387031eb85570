package persistence

import (
	"context"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/pkg/errors"
)

// MinioBackend persists records as small objects in a bucket. Useful when
// the cache index should survive host restarts without a database, e.g.
// in shared object storage next to the images themselves.
type MinioBackend struct {
	client *minio.Client
	bucket string
}

func NewMinioBackend(client *minio.Client, bucket string) *MinioBackend {
	return &MinioBackend{
		client: client,
		bucket: bucket,
	}
}

func (mb *MinioBackend) Name() string {
	return "MINIO"
}

func (mb *MinioBackend) GetItem(ctx context.Context, key string) (string, bool, error) {
	object, err := mb.client.GetObject(ctx, mb.bucket, objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return "", false, errors.Wrapf(err, "failed to get record %s from MinIO", key)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return "", false, nil
		}
		return "", false, errors.Wrapf(err, "failed to read record %s from MinIO", key)
	}
	return string(data), true, nil
}

func (mb *MinioBackend) SetItem(ctx context.Context, key string, value string) error {
	reader := strings.NewReader(value)
	_, err := mb.client.PutObject(ctx, mb.bucket, objectName(key), reader, int64(reader.Len()),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return errors.Wrapf(err, "failed to store record %s in MinIO", key)
	}
	return nil
}

func (mb *MinioBackend) RemoveItem(ctx context.Context, key string) error {
	err := mb.client.RemoveObject(ctx, mb.bucket, objectName(key), minio.RemoveObjectOptions{})
	if err != nil {
		return errors.Wrapf(err, "failed to remove record %s from MinIO", key)
	}
	return nil
}

func objectName(key string) string {
	return strings.ReplaceAll(key, ":", "/") + ".json"
}

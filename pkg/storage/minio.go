package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrObjectTooLarge = errors.New("object exceeds size limit")
)

// Options locates the bucket holding encrypted sticker packs.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// ConnectMinIO connects and makes sure the sticker bucket exists. The bucket stays
// private: pack contents are only readable through this service.
func ConnectMinIO(opts Options) (*minio.Client, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bucket := opts.Bucket
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
		log.Info().Str("bucket", bucket).Msg("Created MinIO bucket")
	}

	log.Info().Str("endpoint", opts.Endpoint).Str("bucket", bucket).Msg("Connected to MinIO")

	return client, nil
}

// ReadObject downloads an object fully, refusing anything above limit bytes.
func ReadObject(ctx context.Context, client *minio.Client, bucket, objectName string, limit int64) ([]byte, error) {
	obj, err := client.GetObject(ctx, bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateError(err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, translateError(err)
	}
	if info.Size > limit {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrObjectTooLarge, objectName, info.Size)
	}

	data, err := io.ReadAll(io.LimitReader(obj, limit+1))
	if err != nil {
		return nil, translateError(err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s", ErrObjectTooLarge, objectName)
	}
	return data, nil
}

func translateError(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w: %w", ErrObjectNotFound, err)
	}
	return err
}

package storage

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"hermannm.dev/datasetquery/config"
	"hermannm.dev/wrap"
)

// ErrObjectNotFound is returned when no object exists under the requested key.
var ErrObjectNotFound = errors.New("object not found")

// Client stores uploaded datasets in a single bucket of S3-compatible object storage (DigitalOcean
// Spaces in production).
type Client struct {
	mc     *minio.Client
	bucket string
}

func NewClient(config config.Spaces) (*Client, error) {
	mc, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, wrap.Error(err, "failed to create object storage client")
	}

	return &Client{mc: mc, bucket: config.Bucket}, nil
}

// Download reads the full object under the given key. Returns ErrObjectNotFound (wrapped) if the
// key does not exist.
func (client *Client) Download(ctx context.Context, key string) ([]byte, error) {
	object, err := client.mc.GetObject(ctx, client.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, client.downloadError(err, key)
	}
	defer object.Close()

	// GetObject is lazy, so a missing key only surfaces on the first read
	data, err := io.ReadAll(object)
	if err != nil {
		return nil, client.downloadError(err, key)
	}

	return data, nil
}

func (client *Client) downloadError(err error, key string) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		err = ErrObjectNotFound
	}
	return wrap.Errorf(err, "failed to download '%s' from bucket '%s'", key, client.bucket)
}

func (client *Client) Upload(
	ctx context.Context,
	key string,
	data []byte,
	contentType string,
) error {
	_, err := client.mc.PutObject(
		ctx,
		client.bucket,
		key,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return wrap.Errorf(err, "failed to upload '%s' to bucket '%s'", key, client.bucket)
	}
	return nil
}

// EnsureBucket creates the bucket if it does not exist.
func (client *Client) EnsureBucket(ctx context.Context) error {
	exists, err := client.mc.BucketExists(ctx, client.bucket)
	if err != nil {
		return wrap.Errorf(err, "failed to check if bucket '%s' exists", client.bucket)
	}
	if exists {
		return nil
	}

	if err := client.mc.MakeBucket(ctx, client.bucket, minio.MakeBucketOptions{}); err != nil {
		return wrap.Errorf(err, "failed to create bucket '%s'", client.bucket)
	}
	return nil
}

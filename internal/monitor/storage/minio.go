package storage

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core"
	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
	"github.com/autopeer-io/fleetpeer/pkg/log"
	"github.com/autopeer-io/fleetpeer/pkg/options"
)

var _ Backend = (*MinIOStore)(nil)

// MinIOStore keeps the snapshot as a single object in an S3 compatible bucket.
type MinIOStore struct {
	client     *minio.Client
	bucketName string
	objectKey  string
}

// NewMinIOStore creates the S3 client and makes sure the bucket exists.
func NewMinIOStore(ctx context.Context, opts *options.S3Options) (*MinIOStore, error) {
	minioOpts := &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	}
	if opts.InsecureSkipVerify {
		minioOpts.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	client, err := minio.New(opts.Endpoint, minioOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	s := &MinIOStore{
		client:     client,
		bucketName: opts.BucketName,
		objectKey:  opts.ObjectKey,
	}
	if err := s.CheckBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// CheckBucket creates the bucket when it does not exist.
func (s *MinIOStore) CheckBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		log.Info("Bucket does not exist, creating...", "bucket", s.bucketName)
		if err := s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

func (s *MinIOStore) Name() string { return "s3" }

func (s *MinIOStore) Close() error { return nil }

func (s *MinIOStore) Save(ctx context.Context, snapshot model.Snapshot) error {
	data, err := encode(snapshot)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, s.bucketName, s.objectKey, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot: %w", err)
	}
	return nil
}

func (s *MinIOStore) Load(ctx context.Context) (model.Snapshot, error) {
	obj, err := s.client.GetObject(ctx, s.bucketName, s.objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.translate(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.translate(err)
	}
	return decode(data)
}

func (s *MinIOStore) translate(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return core.ErrSnapshotNotFound
	}
	return fmt.Errorf("failed to download snapshot: %w", err)
}

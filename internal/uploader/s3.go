package uploader

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"vigil/internal/config"
	"vigil/internal/events"
)

// S3Store implements ObjectStore against an S3-compatible endpoint.
type S3Store struct {
	client        *s3.Client
	bucket        string
	region        string
	publicURLBase string
}

// NewS3Store builds the production object store from the storage config.
// Credentials come from the config (already normalized from the standard
// environment variables when unset in the file).
func NewS3Store(ctx context.Context, cfg *config.Config) (*S3Store, error) {
	store := cfg.Storage
	if store.Bucket == "" {
		return nil, events.Wrap(events.ErrConfiguration, "uploader", "init", "bucket not configured", nil)
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(store.Region),
	}
	if store.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(store.AccessKeyID, store.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, events.Wrap(events.ErrConfiguration, "uploader", "init", "load aws config", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if store.Endpoint != "" {
			o.BaseEndpoint = &store.Endpoint
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:        client,
		bucket:        store.Bucket,
		region:        store.Region,
		publicURLBase: store.PublicURLBase,
	}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, length int64) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          body,
		ContentLength: &length,
		ACL:           s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return events.Wrap(events.ErrTransient, "uploader", "put", key, err)
	}
	return nil
}

func (s *S3Store) CreateMultipart(ctx context.Context, key string) (string, error) {
	out, err := s.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: &s.bucket,
		Key:    &key,
		ACL:    s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", events.Wrap(events.ErrTransient, "uploader", "create multipart", key, err)
	}
	return *out.UploadId, nil
}

func (s *S3Store) UploadPart(ctx context.Context, key, uploadID string, number int32, body io.Reader, length int64) (string, error) {
	out, err := s.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:        &s.bucket,
		Key:           &key,
		UploadId:      &uploadID,
		PartNumber:    &number,
		Body:          body,
		ContentLength: &length,
	})
	if err != nil {
		return "", events.Wrap(events.ErrTransient, "uploader", "upload part", fmt.Sprintf("%s part %d", key, number), err)
	}
	return *out.ETag, nil
}

func (s *S3Store) CompleteMultipart(ctx context.Context, key, uploadID string, parts []CompletedPart) error {
	sorted := make([]CompletedPart, len(parts))
	copy(sorted, parts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })

	completed := make([]s3types.CompletedPart, len(sorted))
	for i, part := range sorted {
		number := part.Number
		etag := part.ETag
		completed[i] = s3types.CompletedPart{PartNumber: &number, ETag: &etag}
	}

	_, err := s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          &s.bucket,
		Key:             &key,
		UploadId:        &uploadID,
		MultipartUpload: &s3types.CompletedMultipartUpload{Parts: completed},
	})
	if err != nil {
		return events.Wrap(events.ErrTransient, "uploader", "complete multipart", key, err)
	}
	return nil
}

func (s *S3Store) AbortMultipart(ctx context.Context, key, uploadID string) error {
	_, err := s.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   &s.bucket,
		Key:      &key,
		UploadId: &uploadID,
	})
	if err != nil {
		return events.Wrap(events.ErrTransient, "uploader", "abort multipart", key, err)
	}
	return nil
}

// URL builds the public URL for a key. An explicit base overrides the
// region-derived virtual-hosted form; us-east-1 keeps the legacy hostname
// without a region segment.
func (s *S3Store) URL(key string) string {
	if s.publicURLBase != "" {
		return strings.TrimSuffix(s.publicURLBase, "/") + "/" + key
	}
	if s.region == "us-east-1" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// S3Config describes the bucket an S3Service writes into and how public
// URLs for stored objects are built.
type S3Config struct {
	Bucket        string
	KeyPrefix     string
	Region        string
	Endpoint      string
	PublicBaseURL string
}

// S3Service stores car images in Amazon S3 (or compatible APIs).
type S3Service struct {
	client   *s3.Client
	uploader *manager.Uploader
	cfg      S3Config
}

func NewS3Service(client *s3.Client, cfg S3Config) *S3Service {
	cfg.KeyPrefix = strings.Trim(cfg.KeyPrefix, "/")
	return &S3Service{
		client:   client,
		uploader: manager.NewUploader(client),
		cfg:      cfg,
	}
}

func (s *S3Service) Upload(ctx context.Context, r io.Reader, opts UploadOptions) (Object, error) {
	if s.cfg.Bucket == "" {
		return Object{}, fmt.Errorf("storage bucket is required")
	}

	publicID := uuid.NewString() + strings.ToLower(path.Ext(opts.Filename))
	key := s.objectKey(publicID)

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		Body:   r,
		ACL:    types.ObjectCannedACLPublicRead,
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return Object{}, fmt.Errorf("upload %s: %w", opts.Filename, err)
	}

	return Object{
		URL:      s.objectURL(key),
		PublicID: publicID,
	}, nil
}

// Delete removes the object by handle. S3 delete of a missing key
// succeeds, which matches the adapter contract.
func (s *S3Service) Delete(ctx context.Context, publicID string) error {
	if s.cfg.Bucket == "" {
		return fmt.Errorf("storage bucket is required")
	}
	if strings.TrimSpace(publicID) == "" {
		return fmt.Errorf("public id is required")
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.objectKey(publicID)),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (s *S3Service) objectKey(publicID string) string {
	if s.cfg.KeyPrefix == "" {
		return publicID
	}
	return s.cfg.KeyPrefix + "/" + publicID
}

func (s *S3Service) objectURL(key string) string {
	if s.cfg.PublicBaseURL != "" {
		return strings.TrimSuffix(s.cfg.PublicBaseURL, "/") + "/" + key
	}
	if s.cfg.Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(s.cfg.Endpoint, "/"), s.cfg.Bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key)
}

var _ Service = (*S3Service)(nil)

// Package aws defines functions used to interact with S3 compatible storage
package aws

import (
	"bitwise74/filehub/internal/storage"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/spf13/viper"
)

const minMultipartSize = 12 << 20

// S3Client implements storage.Blob on top of a single bucket
type S3Client struct {
	C      *s3.Client
	Bucket *string

	presign *s3.PresignClient
}

var _ storage.Blob = (*S3Client)(nil)

type Options struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	// Optional, used for R2 and other S3 compatible providers
	Endpoint string
	Bucket   string
}

// NewS3 creates a client from the storage.* config keys
func NewS3(ctx context.Context) (*S3Client, error) {
	return New(ctx, Options{
		AccessKeyID:     viper.GetString("storage.access_key_id"),
		SecretAccessKey: viper.GetString("storage.secret_access_key"),
		Region:          viper.GetString("storage.region"),
		Endpoint:        viper.GetString("storage.endpoint"),
		Bucket:          viper.GetString("storage.bucket"),
	})
}

// New creates a client and checks that the bucket exists
func New(ctx context.Context, o Options) (*S3Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			o.AccessKeyID,
			o.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	bucket := aws.String(o.Bucket)

	client := s3.NewFromConfig(cfg, func(opts *s3.Options) {
		opts.Region = o.Region
		if o.Endpoint != "" {
			opts.BaseEndpoint = aws.String(o.Endpoint)
		}
	})

	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: bucket,
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) {
			if apiErr.ErrorCode() == "NotFound" {
				return nil, fmt.Errorf("bucket '%s' does not exist", o.Bucket)
			}
		}

		return nil, fmt.Errorf("failed to check if bucket exists, %w", err)
	}

	return &S3Client{
		C:       client,
		Bucket:  bucket,
		presign: s3.NewPresignClient(client),
	}, nil
}

func (s *S3Client) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: s.Bucket,
		Key:    aws.String(key),
		Body:   body,
	}

	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}

	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	var err error
	if size > minMultipartSize {
		u := manager.NewUploader(s.C, func(u *manager.Uploader) {
			u.Concurrency = 5
			u.PartSize = 6 << 20
		})

		_, err = u.Upload(ctx, input)
	} else {
		_, err = s.C.PutObject(ctx, input)
	}
	if err != nil {
		return fmt.Errorf("failed to upload object %s, %w", key, err)
	}

	return nil
}

func (s *S3Client) Delete(ctx context.Context, key string) error {
	_, err := s.C.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: s.Bucket,
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s, %w", key, err)
	}

	return nil
}

func (s *S3Client) SignURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: s.Bucket,
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign object %s, %w", key, err)
	}

	return req.URL, nil
}

func (s *S3Client) List(ctx context.Context, prefix string, limit int) ([]storage.Object, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: s.Bucket,
	}

	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	// S3 returns at most 1000 keys per page
	if limit > 0 && limit < 1000 {
		input.MaxKeys = aws.Int32(int32(limit))
	}

	var out []storage.Object

	p := s3.NewListObjectsV2Paginator(s.C, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects, %w", err)
		}

		for _, o := range page.Contents {
			out = append(out, storage.Object{
				Key:          aws.ToString(o.Key),
				Size:         aws.ToInt64(o.Size),
				LastModified: aws.ToTime(o.LastModified),
			})

			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}
	}

	return out, nil
}

package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/lychee-technology/formview"
)

type objectDownloader interface {
	Download(ctx context.Context, w io.WriterAt, input *s3.GetObjectInput, options ...func(*manager.Downloader)) (int64, error)
}

// S3Source fetches snapshot documents from S3 or an S3-compatible endpoint.
type S3Source struct {
	downloader objectDownloader
}

// NewS3Source builds a client from cfg. Static credentials are used when
// both keys are set, otherwise the default AWS credential chain applies.
func NewS3Source(ctx context.Context, cfg formview.SnapshotConfig) (*S3Source, error) {
	region := cfg.S3Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if cfg.S3AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}
	if cfg.S3Endpoint != "" {
		loadOpts = append(loadOpts, config.WithBaseEndpoint(cfg.S3Endpoint))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3Endpoint != ""
	})
	return &S3Source{downloader: manager.NewDownloader(client)}, nil
}

// Fetch downloads one object into memory. A missing object or bucket is
// reported as a not-found error.
func (s *S3Source) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	buf := manager.NewWriteAtBuffer([]byte{})
	_, err := s.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case "NoSuchKey", "NoSuchBucket", "NotFound":
				return nil, formview.NewNotFoundError(formview.ErrCodeObjectNotFound, "Object", "s3://"+bucket+"/"+key).WithCause(err)
			}
		}
		return nil, fmt.Errorf("s3 download: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseS3URI splits s3://bucket/key.
func ParseS3URI(uri string) (string, string, error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", formview.NewError(formview.ErrorTypeValidation, formview.ErrCodeUnsupportedSource,
			fmt.Sprintf("not an s3 uri: %q", uri))
	}
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", formview.NewError(formview.ErrorTypeValidation, formview.ErrCodeUnsupportedSource,
			fmt.Sprintf("s3 uri needs a bucket and a key: %q", uri))
	}
	return bucket, key, nil
}

package report

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Uploader ships a finished report to external storage.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte) error
}

type S3Uploader struct {
	client *s3.Client
	bucket string
}

func NewS3Uploader(region, bucket string) (*S3Uploader, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %v", err)
	}
	return &S3Uploader{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

func (u *S3Uploader) Upload(ctx context.Context, key string, data []byte) error {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("unable to upload report to S3: %v", err)
	}
	return nil
}

// UploadFile reads a local file and uploads it under its own name.
func UploadFile(ctx context.Context, u Uploader, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return u.Upload(ctx, path, data)
}

package targets

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/jdwit/mail-image-extract/internal/types"
)

type S3PutAPI interface {
	PutObjectWithContext(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error)
}

// S3Target stores images in the destination bucket.
type S3Target struct {
	s3Client S3PutAPI
	bucket   string
}

func NewS3Target(sess *session.Session, bucket string) (Target, error) {
	if bucket == "" {
		return nil, fmt.Errorf("environment variable DESTINATION_BUCKET is required")
	}
	return NewS3TargetWithClient(s3.New(sess), bucket), nil
}

func NewS3TargetWithClient(client S3PutAPI, bucket string) *S3Target {
	return &S3Target{s3Client: client, bucket: bucket}
}

func (t *S3Target) Put(ctx context.Context, image types.Image) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(image.Key),
		Body:   bytes.NewReader(image.Data),
	}
	if image.ContentType != "" {
		input.ContentType = aws.String(image.ContentType)
	}

	if _, err := t.s3Client.PutObjectWithContext(ctx, input); err != nil {
		return fmt.Errorf("failed to put object s3://%s/%s: %w", t.bucket, image.Key, err)
	}
	return nil
}

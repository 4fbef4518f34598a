package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/jdwit/mail-image-extract/internal/types"
)

func (ex *Extractor) processS3Objects(ctx context.Context, s3Objects []types.S3ObjectInfo) error {
	errs := make(chan error, len(s3Objects)) // buffered channel for errors
	var wg sync.WaitGroup
	concurrent := make(chan int, ex.config.Concurrency) // buffered channel for concurrency

	for _, s3obj := range s3Objects {
		wg.Add(1)
		concurrent <- 1
		go func(s3obj types.S3ObjectInfo) {
			defer func() {
				log.Printf("completed processing s3://%s/%s", s3obj.Bucket, s3obj.Key)
				wg.Done()
				<-concurrent
			}()
			// ProcessObject wraps errors with the bucket and key already
			if _, err := ex.ProcessObject(ctx, s3obj); err != nil {
				errs <- err
			}
		}(s3obj)
	}

	go func() {
		wg.Wait()
		close(errs)
	}()

	var errorList []error
	for err := range errs {
		if err != nil {
			errorList = append(errorList, err)
		}
	}

	if len(errorList) > 0 {
		return fmt.Errorf("encountered errors: %v", errorList)
	}

	return nil
}

// HandleLambdaEvent takes the raw payload so that events of an unexpected
// shape end up as a skipped invocation instead of a deserialization error.
func (ex *Extractor) HandleLambdaEvent(ctx context.Context, payload json.RawMessage) (*string, error) {
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		log.Printf("handling invocation %s", lc.AwsRequestID)
	}

	event, err := types.DecodeS3Event(payload)
	if err != nil {
		log.Printf("ignoring event: %v", err)
	}

	return ex.Process(ctx, event).Result()
}

func (ex *Extractor) HandleS3URL(ctx context.Context, url string) error {
	bucket, prefix, err := parseS3Url(url)
	if err != nil {
		return fmt.Errorf("failed to parse S3 URL: %v", err)
	}

	var s3Objects []types.S3ObjectInfo
	err = ex.s3Client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, item := range page.Contents {
			s3Objects = append(s3Objects, types.S3ObjectInfo{
				Bucket: bucket,
				Key:    aws.StringValue(item.Key),
			})
		}
		return true
	})
	if err != nil {
		return fmt.Errorf("failed to list objects: %w", err)
	}

	log.Printf("found %d message(s) under s3://%s/%s", len(s3Objects), bucket, prefix)
	return ex.processS3Objects(ctx, s3Objects)
}

func parseS3Url(url string) (bucket string, prefix string, err error) {
	if !strings.HasPrefix(url, "s3://") {
		return "", "", fmt.Errorf("invalid S3 URL, missing 's3://' prefix")
	}
	trimmedS3URL := strings.TrimPrefix(url, "s3://")
	splitPos := strings.Index(trimmedS3URL, "/")
	if splitPos == -1 {
		return "", "", fmt.Errorf("invalid S3 URL, no '/' found after bucket name")
	}
	bucket = trimmedS3URL[:splitPos]
	prefix = trimmedS3URL[splitPos+1:]
	return bucket, prefix, nil
}

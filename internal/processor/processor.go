package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/jdwit/mail-image-extract/internal/config"
	"github.com/jdwit/mail-image-extract/internal/mimetree"
	"github.com/jdwit/mail-image-extract/internal/targets"
	"github.com/jdwit/mail-image-extract/internal/types"
)

type S3Api interface {
	GetObjectWithContext(ctx aws.Context, input *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error)
	DeleteObjectWithContext(ctx aws.Context, input *s3.DeleteObjectInput, opts ...request.Option) (*s3.DeleteObjectOutput, error)
	ListObjectsV2PagesWithContext(ctx aws.Context, input *s3.ListObjectsV2Input, fn func(*s3.ListObjectsV2Output, bool) bool, opts ...request.Option) error
}

type Extractor struct {
	s3Client S3Api
	config   Config
	now      func() time.Time
}

type Config struct {
	SourceBucket string
	Targets      []targets.Target
	Concurrency  int
}

// imageContentTypes are the attachment types that get extracted, matched
// against the lower-cased media type of a part.
var imageContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

var ErrMissingFilename = errors.New("image part has no filename")

func NewExtractor(sess *session.Session, cfg *config.Config) (*Extractor, error) {
	t, err := targets.GetTargets(cfg, sess)
	if err != nil {
		return nil, err
	}

	return New(s3.New(sess), Config{
		SourceBucket: cfg.SourceBucket,
		Targets:      t,
		Concurrency:  cfg.Concurrency,
	}), nil
}

func New(client S3Api, cfg Config) *Extractor {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Extractor{
		s3Client: client,
		config:   cfg,
		now:      time.Now,
	}
}

// Process runs the extraction for a single notification event. Events
// without an object key are skipped. The object is always read from the
// configured source bucket.
func (ex *Extractor) Process(ctx context.Context, event types.S3ObjectCreatedEvent) Outcome {
	key, ok := event.ObjectKey()
	if !ok {
		log.Println("triggered without s3 object key, ignoring")
		return Outcome{Status: StatusSkipped}
	}

	obj := types.S3ObjectInfo{Bucket: ex.config.SourceBucket, Key: key}
	images, err := ex.ProcessObject(ctx, obj)
	if err != nil {
		return Outcome{Status: StatusFailed, Object: obj, Images: images, Err: err}
	}

	return Outcome{Status: StatusOK, Object: obj, Images: images}
}

// ProcessObject fetches a message, stores every jpeg and png attachment in
// all targets and deletes the message. It returns the keys of the stored
// images, including those stored before a failure. Images already stored
// are never removed again.
func (ex *Extractor) ProcessObject(ctx context.Context, obj types.S3ObjectInfo) ([]string, error) {
	log.Printf("processing message s3://%s/%s", obj.Bucket, obj.Key)

	raw, err := ex.fetch(ctx, obj)
	if err != nil {
		return nil, ex.fail("get object", obj, err)
	}

	root, err := mimetree.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, ex.fail("parse message", obj, err)
	}

	images, err := ex.extractImages(ctx, root)
	if err != nil {
		return images, ex.fail("extract images from", obj, err)
	}

	// The message is deleted even when it had no images
	_, err = ex.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(obj.Bucket),
		Key:    aws.String(obj.Key),
	})
	if err != nil {
		return images, ex.fail("delete object", obj, err)
	}

	log.Printf("deleted message s3://%s/%s, %d image(s) extracted", obj.Bucket, obj.Key, len(images))
	return images, nil
}

func (ex *Extractor) fetch(ctx context.Context, obj types.S3ObjectInfo) ([]byte, error) {
	out, err := ex.s3Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(obj.Bucket),
		Key:    aws.String(obj.Key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return raw, nil
}

// extractImages walks the message and stores matching parts one at a time,
// in document order.
func (ex *Extractor) extractImages(ctx context.Context, root *mimetree.Part) ([]string, error) {
	var images []string
	var lastMillis int64
	i := 0

	err := root.Walk(func(part *mimetree.Part) error {
		i++
		log.Printf("message part %d content-type=%s disposition=%s", i, part.ContentType, dispositionOrNone(part))

		if !imageContentTypes[part.ContentType] {
			log.Printf("message part %d not processed", i)
			return nil
		}

		if part.DecodeErr != nil {
			return fmt.Errorf("failed to decode part %d: %w", i, part.DecodeErr)
		}
		if part.Filename == "" {
			return fmt.Errorf("part %d (%s): %w", i, part.ContentType, ErrMissingFilename)
		}

		// Prefixes stay non-decreasing within one message even if the clock steps back
		millis := ex.now().UnixMilli()
		if millis < lastMillis {
			millis = lastMillis
		}
		lastMillis = millis

		image := types.Image{
			Key:         strconv.FormatInt(millis, 10) + "-" + part.Filename,
			ContentType: part.ContentType,
			Data:        part.Body,
		}
		for _, t := range ex.config.Targets {
			if err := t.Put(ctx, image); err != nil {
				return fmt.Errorf("failed to store part %d: %w", i, err)
			}
		}

		images = append(images, image.Key)
		log.Printf("image stored as: %s", image.Key)
		return nil
	})

	return images, err
}

func (ex *Extractor) fail(op string, obj types.S3ObjectInfo, err error) error {
	objErr := &ObjectError{Op: op, Bucket: obj.Bucket, Key: obj.Key, Err: err}

	var aerr awserr.Error
	if errors.As(err, &aerr) {
		log.Printf("error: %v (code %s)", objErr, aerr.Code())
	} else {
		log.Printf("error: %v", objErr)
	}

	return objErr
}

func dispositionOrNone(part *mimetree.Part) string {
	if part.Disposition == "" {
		return "none"
	}
	return part.Disposition
}

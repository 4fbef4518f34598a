package processor

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/jdwit/mail-image-extract/internal/targets"
	"github.com/jdwit/mail-image-extract/internal/types"
)

const (
	sourceBucket      = "mail-inbox"
	destinationBucket = "camera-images"
)

type putCall struct {
	Bucket      string
	Key         string
	ContentType string
	Data        []byte
}

// fakeS3 is an in-memory bucket store recording every call made to it.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]map[string][]byte

	getErr    error
	putErr    error
	deleteErr error

	gets    []types.S3ObjectInfo
	puts    []putCall
	deletes []types.S3ObjectInfo
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string]map[string][]byte{}}
}

func (f *fakeS3) seed(bucket, key string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects[bucket] == nil {
		f.objects[bucket] = map[string][]byte{}
	}
	f.objects[bucket][key] = data
}

func (f *fakeS3) has(bucket, key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[bucket][key]
	return ok
}

func (f *fakeS3) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.gets) + len(f.puts) + len(f.deletes)
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, input *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bucket, key := aws.StringValue(input.Bucket), aws.StringValue(input.Key)
	f.gets = append(f.gets, types.S3ObjectInfo{Bucket: bucket, Key: key})
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[bucket][key]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "The specified key does not exist.", nil)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, input *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	bucket, key := aws.StringValue(input.Bucket), aws.StringValue(input.Key)
	f.puts = append(f.puts, putCall{Bucket: bucket, Key: key, ContentType: aws.StringValue(input.ContentType), Data: data})
	if f.putErr != nil {
		return nil, f.putErr
	}
	if f.objects[bucket] == nil {
		f.objects[bucket] = map[string][]byte{}
	}
	f.objects[bucket][key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjectWithContext(_ aws.Context, input *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bucket, key := aws.StringValue(input.Bucket), aws.StringValue(input.Key)
	f.deletes = append(f.deletes, types.S3ObjectInfo{Bucket: bucket, Key: key})
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	delete(f.objects[bucket], key)
	return &s3.DeleteObjectOutput{}, nil
}

// ListObjectsV2PagesWithContext returns one key per page to exercise pagination.
func (f *fakeS3) ListObjectsV2PagesWithContext(_ aws.Context, input *s3.ListObjectsV2Input, fn func(*s3.ListObjectsV2Output, bool) bool, _ ...request.Option) error {
	f.mu.Lock()
	var keys []string
	for key := range f.objects[aws.StringValue(input.Bucket)] {
		if strings.HasPrefix(key, aws.StringValue(input.Prefix)) {
			keys = append(keys, key)
		}
	}
	f.mu.Unlock()
	sort.Strings(keys)

	for i, key := range keys {
		page := &s3.ListObjectsV2Output{Contents: []*s3.Object{{Key: aws.String(key)}}}
		if !fn(page, i == len(keys)-1) {
			break
		}
	}
	return nil
}

// newTestExtractor wires an extractor to the fake with a single s3 target.
func newTestExtractor(store *fakeS3) *Extractor {
	return New(store, Config{
		SourceBucket: sourceBucket,
		Targets:      []targets.Target{targets.NewS3TargetWithClient(store, destinationBucket)},
		Concurrency:  2,
	})
}

// clockAt returns a clock yielding the given unix millisecond values in order,
// repeating the last one.
func clockAt(millis ...int64) func() time.Time {
	var mu sync.Mutex
	i := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		m := millis[i]
		if i < len(millis)-1 {
			i++
		}
		return time.UnixMilli(m)
	}
}

type testPart struct {
	contentType string
	filename    string
	data        []byte
}

// buildMessage renders a multipart/mixed message. Parts with a filename are
// base64 encoded attachments, the rest are sent inline as text.
func buildMessage(parts ...testPart) []byte {
	var b strings.Builder
	b.WriteString("From: camera@example.com\r\n")
	b.WriteString("To: inbox@example.com\r\n")
	b.WriteString("Subject: Motion detected\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/mixed; boundary=\"frontier\"\r\n\r\n")
	for _, p := range parts {
		b.WriteString("--frontier\r\n")
		fmt.Fprintf(&b, "Content-Type: %s\r\n", p.contentType)
		if p.filename != "" {
			fmt.Fprintf(&b, "Content-Disposition: attachment; filename=\"%s\"\r\n", p.filename)
			b.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
			b.WriteString(base64.StdEncoding.EncodeToString(p.data))
		} else {
			b.WriteString("\r\n")
			b.Write(p.data)
		}
		b.WriteString("\r\n")
	}
	b.WriteString("--frontier--\r\n")
	return []byte(b.String())
}

func s3Event(key string) types.S3ObjectCreatedEvent {
	var record types.S3Record
	record.S3.Bucket.Name = sourceBucket
	record.S3.Object.Key = key
	return types.S3ObjectCreatedEvent{Records: []types.S3Record{record}}
}

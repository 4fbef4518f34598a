package processor

import (
	"fmt"

	"github.com/jdwit/mail-image-extract/internal/types"
)

// ContinueResult is returned to the invoker after a message was processed.
const ContinueResult = "CONTINUE"

type Status int

const (
	StatusSkipped Status = iota // Event carried no object key
	StatusOK
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSkipped:
		return "skipped"
	case StatusOK:
		return "ok"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

type Outcome struct {
	Status Status
	Object types.S3ObjectInfo // Zero for StatusSkipped
	Images []string           // Keys of stored images
	Err    error              // Only set for StatusFailed
}

// Result converts the outcome to a Lambda handler return value: nil for a
// skipped event, ContinueResult on success and the error otherwise.
func (o Outcome) Result() (*string, error) {
	switch o.Status {
	case StatusOK:
		result := ContinueResult
		return &result, nil
	case StatusFailed:
		return nil, o.Err
	default:
		return nil, nil
	}
}

// ObjectError is returned for any failure after an object key was found.
type ObjectError struct {
	Op     string
	Bucket string
	Key    string
	Err    error
}

func (e *ObjectError) Error() string {
	return fmt.Sprintf("failed to %s s3://%s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
}

func (e *ObjectError) Unwrap() error {
	return e.Err
}

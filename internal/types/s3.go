package types

import (
	"encoding/json"
	"fmt"
)

type S3ObjectInfo struct {
	Bucket string
	Key    string
}

type S3Record struct {
	S3 struct {
		Bucket struct {
			Name string `json:"name"`
		} `json:"bucket"`
		Object struct {
			Key string `json:"key"`
		} `json:"object"`
	} `json:"s3"`
}

type S3ObjectCreatedEvent struct {
	Records []S3Record `json:"Records"`
}

// ObjectKey returns the key of the first record. Events without records or
// with an empty key report false.
func (e S3ObjectCreatedEvent) ObjectKey() (string, bool) {
	if len(e.Records) == 0 {
		return "", false
	}
	key := e.Records[0].S3.Object.Key
	if key == "" {
		return "", false
	}
	return key, true
}

// DecodeS3Event decodes a raw notification payload. On error the returned
// event is empty, so ObjectKey reports false for it.
func DecodeS3Event(payload []byte) (S3ObjectCreatedEvent, error) {
	var event S3ObjectCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return S3ObjectCreatedEvent{}, fmt.Errorf("failed to decode s3 event: %w", err)
	}
	return event, nil
}

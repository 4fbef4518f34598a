package types

type Image struct {
	Key         string // Destination key, <unix millis>-<original filename>
	ContentType string
	Data        []byte
}

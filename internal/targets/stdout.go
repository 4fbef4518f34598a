package targets

import (
	"context"
	"fmt"
	"time"

	"github.com/jdwit/mail-image-extract/internal/types"
)

// StdoutTarget only reports images, nothing is stored.
type StdoutTarget struct {
	now func() time.Time
}

func (c *StdoutTarget) Put(_ context.Context, image types.Image) error {
	fmt.Printf("[%s] Image: %s (%d bytes, %s)\n", c.now().UTC().Format(time.RFC3339), image.Key, len(image.Data), image.ContentType)
	return nil
}

func NewStdoutTarget() *StdoutTarget {
	return &StdoutTarget{now: time.Now}
}

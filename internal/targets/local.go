package targets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jdwit/mail-image-extract/internal/types"
)

// LocalTarget writes images below a directory, one file per image key.
type LocalTarget struct {
	dir string
}

func NewLocalTarget(dir string) (Target, error) {
	if dir == "" {
		return nil, fmt.Errorf("environment variable OUTPUT_DIR is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &LocalTarget{dir: abs}, nil
}

func (t *LocalTarget) Put(_ context.Context, image types.Image) error {
	path := filepath.Join(t.dir, image.Key)
	// Keys carry the attachment filename verbatim and may contain path elements
	if !strings.HasPrefix(path, t.dir+string(os.PathSeparator)) {
		return fmt.Errorf("image key %q resolves outside of %s", image.Key, t.dir)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", image.Key, err)
	}
	if err := os.WriteFile(path, image.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

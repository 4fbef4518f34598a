package targets

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/jdwit/mail-image-extract/internal/config"
	"github.com/jdwit/mail-image-extract/internal/types"
)

const (
	TargetS3     = "s3"
	TargetLocal  = "local"
	TargetStdout = "stdout"
)

type Target interface {
	Put(ctx context.Context, image types.Image) error
}

func GetTargets(cfg *config.Config, sess *session.Session) ([]Target, error) {
	var targets []Target

	for _, t := range cfg.TargetNames() {
		var target Target
		var err error

		switch t {
		case TargetS3:
			target, err = NewS3Target(sess, cfg.DestinationBucket)
		case TargetLocal:
			target, err = NewLocalTarget(cfg.OutputDir)
		case TargetStdout:
			target = NewStdoutTarget()
		default:
			log.Printf("warning: unsupported target type: %s", t)
			continue
		}

		// Skip any targets that fail to initialize due to missing config or other errors
		if err != nil {
			log.Printf("warning: could not initialize target %s: %v", t, err)
			continue
		}

		targets = append(targets, target)
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("error: no valid targets initialized")
	}

	return targets, nil
}

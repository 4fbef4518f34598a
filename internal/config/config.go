package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	KeySourceBucket      = "source_bucket"
	KeyDestinationBucket = "destination_bucket"
	KeyTargets           = "targets"
	KeyOutputDir         = "output_dir"
	KeyEndpoint          = "aws_endpoint"
	KeyConcurrency       = "concurrency"
)

type Config struct {
	SourceBucket      string `mapstructure:"source_bucket"`
	DestinationBucket string `mapstructure:"destination_bucket"`
	Targets           string `mapstructure:"targets"`    // Comma separated target names
	OutputDir         string `mapstructure:"output_dir"` // Only used by the local target
	Endpoint          string `mapstructure:"aws_endpoint"`
	Concurrency       int    `mapstructure:"concurrency"` // Max objects processed at once in cli mode
}

// New returns a viper instance with defaults set. Every key can be set from
// the environment variable of the same name in upper case, e.g.
// SOURCE_BUCKET.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeySourceBucket, "")
	v.SetDefault(KeyDestinationBucket, "")
	v.SetDefault(KeyTargets, "s3")
	v.SetDefault(KeyOutputDir, ".")
	v.SetDefault(KeyEndpoint, "")
	v.SetDefault(KeyConcurrency, 10)

	v.AutomaticEnv()

	return v
}

func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.HasTarget("s3") && c.DestinationBucket == "" {
		return fmt.Errorf("environment variable DESTINATION_BUCKET is required for the s3 target")
	}
	return nil
}

// RequireSourceBucket is checked separately from Validate because cli mode
// can take the source bucket from an s3 url instead.
func (c *Config) RequireSourceBucket() error {
	if c.SourceBucket == "" {
		return fmt.Errorf("environment variable SOURCE_BUCKET is required")
	}
	return nil
}

// TargetNames splits Targets on commas, dropping empty entries.
func (c *Config) TargetNames() []string {
	var names []string
	for _, name := range strings.Split(c.Targets, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

func (c *Config) HasTarget(name string) bool {
	for _, n := range c.TargetNames() {
		if n == name {
			return true
		}
	}
	return false
}

package cmd

import (
	"context"
	"fmt"

	"github.com/jdwit/mail-image-extract/internal/config"
	"github.com/jdwit/mail-image-extract/internal/processor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ExtractorFactory builds the extractor once the configuration is loaded.
type ExtractorFactory func(cfg *config.Config) (*processor.Extractor, error)

var (
	v            *viper.Viper
	newExtractor ExtractorFactory
)

var rootCmd = &cobra.Command{
	Use:   "mail-image-extract",
	Short: "Extract image attachments from emails stored in S3",
	Long: `mail-image-extract reads email messages from an S3 bucket, stores every
jpeg and png attachment in the destination bucket as <unix millis>-<filename>
and deletes the message.

Outside of AWS Lambda it can drain a backlog of messages under an S3 prefix or
replay a single S3 event notification.`,
	SilenceUsage: true,
}

func Execute(ctx context.Context, factory ExtractorFactory) error {
	newExtractor = factory
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	v = config.New()

	flags := rootCmd.PersistentFlags()
	flags.String(config.KeyTargets, "", "comma separated image targets: s3, local, stdout (env TARGETS)")
	flags.String("output-dir", "", "directory used by the local target (env OUTPUT_DIR)")
	flags.Int(config.KeyConcurrency, 0, "max messages processed at once (env CONCURRENCY)")

	_ = v.BindPFlag(config.KeyTargets, flags.Lookup(config.KeyTargets))
	_ = v.BindPFlag(config.KeyOutputDir, flags.Lookup("output-dir"))
	_ = v.BindPFlag(config.KeyConcurrency, flags.Lookup(config.KeyConcurrency))

	rootCmd.AddCommand(processCmd, eventCmd)
}

func loadExtractor(requireSource bool) (*processor.Extractor, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	if requireSource {
		if err := cfg.RequireSourceBucket(); err != nil {
			return nil, err
		}
	}
	if newExtractor == nil {
		return nil, fmt.Errorf("no extractor factory configured")
	}
	return newExtractor(cfg)
}

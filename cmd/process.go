package cmd

import (
	"github.com/spf13/cobra"
)

var processCmd = &cobra.Command{
	Use:   "process <s3://bucket/prefix>",
	Short: "Extract images from every message under an S3 prefix",
	Long: `Lists all objects under the prefix and processes each one as if an event
had been received for it. The bucket of the url is used as the source bucket.`,
	Example: "  mail-image-extract process s3://mail-inbox/incoming/",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ex, err := loadExtractor(false)
		if err != nil {
			return err
		}
		return ex.HandleS3URL(cmd.Context(), args[0])
	},
}

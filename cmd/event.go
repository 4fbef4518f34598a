package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event [file]",
	Short: "Run the Lambda handler on an S3 event notification",
	Long: `Reads an S3 event notification from a file, or from stdin when no file or
"-" is given, and handles it exactly like a Lambda invocation. Prints
CONTINUE when a message was processed and null when the event had no key.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open event file: %w", err)
			}
			defer f.Close()
			in = f
		}

		payload, err := io.ReadAll(in)
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		ex, err := loadExtractor(true)
		if err != nil {
			return err
		}

		result, err := ex.HandleLambdaEvent(cmd.Context(), payload)
		if err != nil {
			return err
		}
		if result == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "null")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), *result)
		return nil
	},
}

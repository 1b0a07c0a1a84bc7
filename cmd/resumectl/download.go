package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download <resume-id>",
	Short: "Download the rendered PDF for a completed resume",
	Args:  cobra.ExactArgs(1),
	RunE:  runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().StringP("output", "o", "resume.pdf", "output path")
}

func runDownload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	c, err := login(ctx, cmd)
	if err != nil {
		return err
	}

	pdf, err := c.DownloadPDF(ctx, args[0])
	if err != nil {
		return fmt.Errorf("download pdf: %w", err)
	}

	out, _ := cmd.Flags().GetString("output")
	if err := os.WriteFile(out, pdf, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(pdf))
	return nil
}

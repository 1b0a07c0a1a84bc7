package main

import (
	"encoding/json"
	"fmt"
	"os"

	"resume-tailor/pkg/client"

	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a tailored resume and wait for it",
	Long: `Submit a generation job and poll it until it reaches a terminal
state. With -o the rendered PDF is written once the job completes.

Example:
  resumectl generate -f job.txt -o resume.pdf
  resumectl generate --job-description "Senior Go engineer..." --language en`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringP("file", "f", "", "read the job description from a file")
	generateCmd.Flags().String("job-description", "", "job description text")
	generateCmd.Flags().String("overrides", "", "JSON overrides applied on top of the stored profile")
	generateCmd.Flags().String("language", "", "output language")
	generateCmd.Flags().StringP("output", "o", "", "write the rendered PDF to this path")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	jobDesc, _ := cmd.Flags().GetString("job-description")
	if file, _ := cmd.Flags().GetString("file"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read job description: %w", err)
		}
		jobDesc = string(data)
	}

	var overrides map[string]interface{}
	if raw, _ := cmd.Flags().GetString("overrides"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
			return fmt.Errorf("parse overrides: %w", err)
		}
	}
	language, _ := cmd.Flags().GetString("language")

	c, err := login(ctx, cmd)
	if err != nil {
		return err
	}

	resp, err := c.GenerateResume(ctx, client.GenerateRequest{
		JobDescription: jobDesc,
		Overrides:      overrides,
		Language:       language,
	})
	if err != nil {
		return fmt.Errorf("submit generation: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "resume %s accepted, waiting...\n", resp.ResumeID)

	poller := c.NewPoller(client.DefaultPollConfig())
	if err := poller.Start(ctx, resp.ResumeID); err != nil {
		return err
	}
	select {
	case <-poller.Done():
	case <-ctx.Done():
		poller.Stop()
		return ctx.Err()
	}

	snap := poller.Snapshot()
	switch snap.State {
	case client.StateComplete:
		fmt.Fprintf(cmd.OutOrStdout(), "resume %s complete after %d checks\n", resp.ResumeID, snap.Attempts)
	default:
		return fmt.Errorf("generation ended in state %s: %s", snap.State, snap.LastError)
	}

	if out, _ := cmd.Flags().GetString("output"); out != "" {
		pdf, err := c.DownloadPDF(ctx, resp.ResumeID)
		if err != nil {
			return fmt.Errorf("download pdf: %w", err)
		}
		if err := os.WriteFile(out, pdf, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(pdf))
	}
	return nil
}

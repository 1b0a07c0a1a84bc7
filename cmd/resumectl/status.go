package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <resume-id>",
	Short: "Check a generation job's status",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	c, err := login(ctx, cmd)
	if err != nil {
		return err
	}

	body, err := c.FetchStatus(ctx, args[0])
	if err != nil {
		return err
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("decode status: %w", err)
	}
	out, _ := json.MarshalIndent(doc, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

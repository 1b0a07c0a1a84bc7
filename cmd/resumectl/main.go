// Package main is the entry point for the resumectl CLI.
//
// resumectl drives the resume service end to end from a terminal:
//
//	resumectl generate -f job.txt -o resume.pdf  # Generate and wait
//	resumectl status <resume-id>                 # One-shot status check
//	resumectl download <resume-id> -o resume.pdf # Fetch the PDF
package main

import (
	"context"
	"fmt"
	"os"

	"resume-tailor/pkg/client"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

var rootCmd = &cobra.Command{
	Use:   "resumectl",
	Short: "Generate tailored resumes from the command line",
	Long: `resumectl submits resume generation jobs to the resume service,
polls them until they finish, and downloads the rendered PDF.

Credentials come from flags or the RESUME_EMAIL and RESUME_PASSWORD
environment variables.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("resumectl %s (%s)\n", version, commit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringP("server", "s", "http://localhost:8080", "resume service base URL")
	rootCmd.PersistentFlags().String("email", "", "account email (or RESUME_EMAIL)")
	rootCmd.PersistentFlags().String("password", "", "account password (or RESUME_PASSWORD)")
}

// login builds a client from the persistent flags and authenticates.
func login(ctx context.Context, cmd *cobra.Command) (*client.Client, error) {
	server, _ := cmd.Flags().GetString("server")
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	if email == "" {
		email = os.Getenv("RESUME_EMAIL")
	}
	if password == "" {
		password = os.Getenv("RESUME_PASSWORD")
	}
	if email == "" || password == "" {
		return nil, fmt.Errorf("credentials required: pass --email/--password or set RESUME_EMAIL and RESUME_PASSWORD")
	}

	c := client.New(server)
	if err := c.Login(ctx, email, password); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	return c, nil
}

package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	noColor   bool
	serverURL string
)

var rootCmd = &cobra.Command{
	Use:   "nori",
	Short: "Study-abroad assistant: grounded chat, scholarships, SOPs and CVs",
	Long: `nori answers student questions from approved reference content, recommends
scholarships, drafts statements of purpose and builds CVs.

Run "nori serve" to start the HTTP API; the other commands talk to it.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "API base URL (default from server.host/server.port)")

	rootCmd.AddCommand(serveCmd, stopCmd, statusCmd)
	rootCmd.AddCommand(askCmd, chatCmd, feedbackCmd, queriesCmd)
	rootCmd.AddCommand(scholarshipsCmd, sopCmd, cvCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		noColor = true
	}
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

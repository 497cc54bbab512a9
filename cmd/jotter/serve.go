package main

import (
	"github.com/spf13/cobra"

	"jotter/cmd/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

func runServe(_ *cobra.Command, _ []string) error {
	return app.Run()
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/annotate/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the annotation service",
	Long:  `Starts the HTTP API. Configuration comes from ANNOTATE_* environment variables and an optional .env file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cmd.Context())
		if err != nil {
			return err
		}
		return a.Run()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bassamadnan/veil/api"
)

func newHealthCommand(root *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check that the classification service is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := root.settings()
			if err != nil {
				return err
			}
			logger, err := root.consoleLogger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			health, err := api.NewClient(settings.APIBaseURL, api.WithLogger(logger)).CheckHealth(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if output == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(health)
			}
			fmt.Fprintf(out, "Service:      %s\n", settings.APIBaseURL)
			fmt.Fprintf(out, "Status:       %s\n", health.Status)
			fmt.Fprintf(out, "Model loaded: %t\n", health.ModelLoaded)
			if health.Message != "" {
				fmt.Fprintf(out, "Message:      %s\n", health.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format (text, json)")
	return cmd
}

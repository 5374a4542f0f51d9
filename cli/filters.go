package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bassamadnan/veil/config"
)

func newFiltersCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filters",
		Short: "Manage inbox ignore filters",
		Long: `Inbox messages matching a filter are never shown or scanned.
Sender rules match any part of the From header, keyword rules match the
subject or body. Matching is case-insensitive.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show all filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fm, err := root.filterManager()
			if err != nil {
				return err
			}
			f := fm.GetFilters()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Filters file: %s\n", fm.Path())
			printRules(cmd, "Ignored senders", f.IgnoreSenders)
			printRules(cmd, "Ignored subject keywords", f.IgnoreKeywordsInSubject)
			printRules(cmd, "Ignored body keywords", f.IgnoreKeywordsInBody)
			return nil
		},
	})

	cmd.AddCommand(
		filterAddCommand(root, "ignore-sender <sender>", "Ignore messages from a sender or domain", (*config.FilterManager).AddIgnoreSender),
		filterAddCommand(root, "ignore-subject <keyword>", "Ignore messages whose subject contains a keyword", (*config.FilterManager).AddIgnoreKeywordInSubject),
		filterAddCommand(root, "ignore-body <keyword>", "Ignore messages whose body contains a keyword", (*config.FilterManager).AddIgnoreKeywordInBody),
		filterAddCommand(root, "unignore-sender <sender>", "Remove a sender rule", (*config.FilterManager).RemoveIgnoreSender),
	)
	return cmd
}

func filterAddCommand(root *rootOptions, use, short string, apply func(*config.FilterManager, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fm, err := root.filterManager()
			if err != nil {
				return err
			}
			if err := apply(fm, args[0]); err != nil {
				return fmt.Errorf("failed to update filters: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", fm.Path())
			return nil
		},
	}
}

func (o *rootOptions) filterManager() (*config.FilterManager, error) {
	settings, err := o.settings()
	if err != nil {
		return nil, err
	}
	return config.NewFilterManager(settings.FiltersFile)
}

func printRules(cmd *cobra.Command, title string, rules []string) {
	out := cmd.OutOrStdout()
	if len(rules) == 0 {
		fmt.Fprintf(out, "%s: none\n", title)
		return
	}
	fmt.Fprintf(out, "%s:\n  %s\n", title, strings.Join(rules, "\n  "))
}

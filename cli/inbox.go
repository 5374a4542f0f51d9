package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bassamadnan/veil/api"
	"github.com/bassamadnan/veil/scanner"
)

func newInboxCommand(root *rootOptions) *cobra.Command {
	var count int64
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Scan the most recent Gmail inbox messages",
		Long: `Fetch the most recent inbox messages (drafts and filtered senders excluded)
and classify them one at a time, printing one line per message.

The first run opens a Google consent URL; paste the code back to cache a token.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return fmt.Errorf("--count must be positive")
			}
			settings, err := root.settings()
			if err != nil {
				return err
			}
			logger, err := root.consoleLogger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			src, err := root.newInbox(cmd.Context(), cmd, settings, logger)
			if err != nil {
				return err
			}
			msgs, err := src.Recent(cmd.Context(), count)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(msgs) == 0 {
				fmt.Fprintln(out, "No messages.")
				return nil
			}

			session := scanner.NewSession(api.NewClient(settings.APIBaseURL, api.WithLogger(logger)), logger)
			failed := 0
			for _, msg := range msgs {
				session.LoadText(msg.ScanText())
				state := session.Submit(cmd.Context())
				verdict := "ERROR"
				detail := state.Error
				if r := state.Result; r != nil {
					verdict = fmt.Sprintf("%-8s %3d%%", r.Prediction, r.ConfidencePercent())
					detail = ""
				} else {
					failed++
					logger.Debug("scan failed", zap.String("id", msg.ID), zap.String("error", state.Error))
				}
				line := fmt.Sprintf("%-13s  %-24s  %s", verdict, truncate(msg.SenderName(), 24), truncate(msg.Subject, 50))
				if detail != "" {
					line += "  (" + detail + ")"
				}
				fmt.Fprintln(out, line)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d messages could not be scanned", failed, len(msgs))
			}
			return nil
		},
	}
	cmd.Flags().Int64VarP(&count, "count", "n", 10, "number of messages to scan")
	return cmd
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

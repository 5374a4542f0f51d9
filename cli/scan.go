package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bassamadnan/veil/api"
	"github.com/bassamadnan/veil/scanner"
	"github.com/bassamadnan/veil/tui"
)

const cardWidth = 64

type scanOptions struct {
	text    string
	example string
	output  string
}

// scanReport is the -o json shape of one scan.
type scanReport struct {
	Prediction        api.Label `json:"prediction,omitempty"`
	Confidence        float64   `json:"confidence,omitempty"`
	ConfidencePercent int       `json:"confidence_percent,omitempty"`
	Message           string    `json:"message,omitempty"`
	Error             string    `json:"error,omitempty"`
}

func newScanCommand(root *rootOptions) *cobra.Command {
	o := &scanOptions{}
	cmd := &cobra.Command{
		Use:   "scan [file]",
		Short: "Classify one email",
		Long: `Classify a single email as Safe, Spam or Phishing.

The text comes from exactly one of: a file argument, --text, --example, or
stdin when none of those is given.

Examples:
  veil scan message.txt
  veil scan --text "You have won a prize"
  veil scan --example spam -o json
  pbpaste | veil scan`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, args, root, o)
		},
	}

	cmd.Flags().StringVarP(&o.text, "text", "t", "", "email text to scan")
	cmd.Flags().StringVarP(&o.example, "example", "e", "", "scan a built-in example (safe, spam)")
	cmd.Flags().StringVarP(&o.output, "output", "o", "text", "output format (text, json)")

	return cmd
}

func runScan(cmd *cobra.Command, args []string, root *rootOptions, o *scanOptions) error {
	if o.output != "text" && o.output != "json" {
		return fmt.Errorf("unsupported output format %q", o.output)
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

	session := scanner.NewSession(api.NewClient(settings.APIBaseURL, api.WithLogger(logger)), logger)
	if o.example != "" {
		if o.text != "" || len(args) > 0 {
			return errors.New("use only one of a file, --text or --example")
		}
		if err := session.LoadExample(scanner.ExampleKind(o.example)); err != nil {
			return err
		}
	} else {
		text, err := scanInput(cmd, args, o.text)
		if err != nil {
			return err
		}
		session.SetInput(text)
	}

	state := session.Submit(cmd.Context())
	if err := printScan(cmd.OutOrStdout(), state, o.output); err != nil {
		return err
	}
	if state.Error != "" {
		return errors.New(state.Error)
	}
	return nil
}

func scanInput(cmd *cobra.Command, args []string, text string) (string, error) {
	switch {
	case text != "" && len(args) > 0:
		return "", errors.New("use only one of a file, --text or --example")
	case text != "":
		return text, nil
	case len(args) == 1:
		b, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		return string(b), nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(b), nil
}

func printScan(w io.Writer, state scanner.State, format string) error {
	if format == "json" {
		report := scanReport{Error: state.Error}
		if r := state.Result; r != nil {
			report.Prediction = r.Prediction
			report.Confidence = r.Confidence
			report.ConfidencePercent = r.ConfidencePercent()
			report.Message = r.Message
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	switch {
	case state.Error != "":
		_, err := fmt.Fprintln(w, tui.RenderError(state.Error, cardWidth))
		return err
	case state.Result != nil:
		_, err := fmt.Fprintln(w, tui.RenderResult(*state.Result, cardWidth))
		return err
	}
	return nil
}

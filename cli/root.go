package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/bassamadnan/veil/api"
	"github.com/bassamadnan/veil/config"
	"github.com/bassamadnan/veil/gmail"
	"github.com/bassamadnan/veil/logging"
	"github.com/bassamadnan/veil/metrics"
	"github.com/bassamadnan/veil/tui"
)

// inboxSource is the part of the Gmail client the inbox command needs.
type inboxSource interface {
	Recent(ctx context.Context, count int64) ([]gmail.Message, error)
}

type rootOptions struct {
	cfgFile string
	verbose bool
	v       *viper.Viper

	// newInbox is swapped out in tests.
	newInbox func(ctx context.Context, cmd *cobra.Command, s *config.Settings, logger *zap.Logger) (inboxSource, error)
}

// NewRootCommand creates the root command
func NewRootCommand(version, commit, date string) *cobra.Command {
	return newRootCommand(&rootOptions{v: config.NewViper(), newInbox: newGmailInbox}, version, commit, date)
}

func newRootCommand(opts *rootOptions, version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "veil",
		Short: "Scan email text for spam and phishing",
		Long: `Veil sends email text to a classification service and shows whether it
looks Safe, Spam or Phishing, with the model's confidence.

Run without a subcommand to open the interactive scanner. With --gmail the
scanner also watches your inbox so messages can be scanned directly.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.ReadConfigFile(opts.v, opts.cfgFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUI(cmd, opts)
		},
	}

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.cfgFile, "config", "c", "", "config file path")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	pf.String("api-url", "", "classification service base URL (default "+config.DefaultAPIBaseURL+")")
	pf.String("filters-file", "", "inbox filter file")
	_ = opts.v.BindPFlag("api.base_url", pf.Lookup("api-url"))
	_ = opts.v.BindPFlag("filters.file", pf.Lookup("filters-file"))

	f := rootCmd.Flags()
	f.String("ui", "", "interface: tea or form")
	f.Bool("gmail", false, "watch the Gmail inbox")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	_ = opts.v.BindPFlag("ui.mode", f.Lookup("ui"))
	_ = opts.v.BindPFlag("gmail.enabled", f.Lookup("gmail"))
	_ = opts.v.BindPFlag("metrics.addr", f.Lookup("metrics-addr"))

	// Add subcommands
	rootCmd.AddCommand(newScanCommand(opts))
	rootCmd.AddCommand(newHealthCommand(opts))
	rootCmd.AddCommand(newInboxCommand(opts))
	rootCmd.AddCommand(newFiltersCommand(opts))
	rootCmd.AddCommand(newVersionCommand(version, commit, date))

	return rootCmd
}

func (o *rootOptions) settings() (*config.Settings, error) {
	return config.FromViper(o.v)
}

// consoleLogger is the logger for one-shot commands.
func (o *rootOptions) consoleLogger() (*zap.Logger, error) {
	return logging.InitConsoleLogger(o.verbose, false)
}

func runUI(cmd *cobra.Command, opts *rootOptions) error {
	settings, err := opts.settings()
	if err != nil {
		return err
	}
	logger, err := logging.InitLogger(settings.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("application starting", zap.String("ui", settings.UI), zap.String("api", settings.APIBaseURL))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec := metrics.NewRecorder()
	client := api.NewClient(settings.APIBaseURL, api.WithLogger(logger), api.WithObserver(rec))
	if settings.MetricsAddr != "" {
		metrics.NewServer(rec, logger).Start(ctx, settings.MetricsAddr)
	}

	uiOpts := tui.Options{Backend: client, Logger: logger, APIBaseURL: settings.APIBaseURL}
	if settings.Gmail.Enabled {
		filters, err := config.NewFilterManager(settings.FiltersFile)
		if err != nil {
			return err
		}
		// Authorise before the UI owns the terminal so the consent prompt is visible.
		gc, err := gmail.NewClient(ctx, gmailAuth(cmd, settings), filters, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize Gmail client: %w", err)
		}
		inbox := make(chan gmail.Message, 15)
		go gc.Monitor(ctx, inbox,
			settings.Gmail.InitialFetch, settings.Gmail.PeriodicFetch,
			settings.Gmail.InitialPollDelay, settings.Gmail.PollInterval)
		uiOpts.Inbox = inbox
		uiOpts.Filters = filters
	}

	switch settings.UI {
	case "form":
		app := tui.NewFormApp(ctx, uiOpts)
		go func() {
			<-ctx.Done()
			app.Stop()
		}()
		err = app.Run()
	default:
		p := tea.NewProgram(tui.NewModel(ctx, uiOpts), tea.WithAltScreen(), tea.WithContext(ctx))
		_, err = p.Run()
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			err = nil
		}
	}
	logger.Info("application stopped", zap.Error(err))
	return err
}

func gmailAuth(cmd *cobra.Command, s *config.Settings) gmail.AuthOptions {
	return gmail.AuthOptions{
		CredentialsFile: s.Gmail.CredentialsFile,
		TokenFile:       s.Gmail.TokenFile,
		Prompt:          gmail.TerminalPrompt(cmd.ErrOrStderr(), cmd.InOrStdin()),
	}
}

func newGmailInbox(ctx context.Context, cmd *cobra.Command, s *config.Settings, logger *zap.Logger) (inboxSource, error) {
	filters, err := config.NewFilterManager(s.FiltersFile)
	if err != nil {
		return nil, err
	}
	gc, err := gmail.NewClient(ctx, gmailAuth(cmd, s), filters, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gmail client: %w", err)
	}
	return gc, nil
}

func newVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display version number, build commit, date, and runtime information",
		Run: func(cmd *cobra.Command, args []string) {
			displayVersion := version
			displayCommit := commit
			displayDate := date

			if version == "dev" || version == "" {
				displayVersion = "development"
			}
			if commit == "none" || commit == "" {
				displayCommit = "local-build"
			}
			if date == "unknown" || date == "" {
				displayDate = "local-build"
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "veil %s (%s) built on %s\n", displayVersion, displayCommit, displayDate)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

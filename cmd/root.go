package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"fwpanel/internal/backend"
	"fwpanel/internal/config"
	"fwpanel/internal/session"

	"github.com/spf13/cobra"
)

var (
	configPath  string
	operator    string
	metricsAddr string

	// cfg holds the loaded configuration, populated in PersistentPreRunE.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "fwpanel",
	Short: "Proactive firewall control panel: capture, classify and drop threat traffic",
	Long: `fwpanel drives a remote capture-and-classify backend. Without a subcommand
it opens the terminal dashboard; "capture" and "mitigate" run a single action.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if operator != "" {
			loaded.Capture.Operator = operator
		}
		if metricsAddr != "" {
			loaded.Metrics.Address = metricsAddr
		}
		cfg = loaded
		return nil
	},
	RunE: runPanel,
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "path to YAML config (default $FWPANEL_CONFIG)")
	flags.StringVar(&operator, "operator", "", "operator identity attached to capture requests")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
}

// newController wires the backend client into a session controller.
func newController(logger *slog.Logger) *session.Controller {
	client := backend.NewClient(
		cfg.Backend.BaseURL,
		cfg.Backend.CapturePath,
		cfg.Backend.DropPath,
		cfg.Backend.Timeout,
		logger,
	)
	return session.New(client, client, session.Options{
		CaptureTimeout:    cfg.Capture.Timeout,
		MitigationTimeout: cfg.Mitigation.Timeout,
		Logger:            logger,
	})
}

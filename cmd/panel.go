package cmd

import (
	"context"
	"fmt"

	"fwpanel/internal/logging"
	"fwpanel/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func runPanel(cmd *cobra.Command, args []string) error {
	// The dashboard owns the terminal, so logs go to a file.
	logFile, err := logging.OpenFile(cfg.Logging.File)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.JSON, logFile)

	stopMetrics, err := startMetrics(cfg.Metrics.Address, logger)
	if err != nil {
		return fmt.Errorf("starting metrics: %w", err)
	}
	defer stopMetrics()

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	ctrl := newController(logger)
	model := tui.NewPanelModel(ctx, ctrl, cfg.Capture.Operator, cfg.Report.Dir)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		logger.Error("dashboard exited with error", "error", err)
		return err
	}
	return nil
}

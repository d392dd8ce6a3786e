package cmd

import (
	"errors"
	"fmt"

	"fwpanel/internal/logging"

	"github.com/spf13/cobra"
)

var mitigateCmd = &cobra.Command{
	Use:   "mitigate <address>",
	Short: "Ask the backend to drop traffic from a source address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.New(cfg.Logging.Level, cfg.Logging.JSON, cmd.ErrOrStderr())
		ctrl := newController(logger)

		outcome := ctrl.Mitigate(commandContext(cmd), args[0])
		fmt.Fprintln(cmd.OutOrStdout(), outcome.Message)
		if !outcome.OK {
			return errors.New(outcome.Message)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mitigateCmd)
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"fwpanel/internal/analysis"
	"fwpanel/internal/logging"
	"fwpanel/internal/reporting"
	"fwpanel/internal/session"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var captureReport bool

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Run one capture-and-classify cycle and print the results",
	Args:  cobra.NoArgs,
	RunE:  runCapture,
}

func init() {
	captureCmd.Flags().BoolVar(&captureReport, "report", false, "write an HTML report of the cycle")
	rootCmd.AddCommand(captureCmd)
}

var (
	cliBanner = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444"))
	cliThreat = lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171"))
)

func runCapture(cmd *cobra.Command, args []string) error {
	logger := logging.New(cfg.Logging.Level, cfg.Logging.JSON, cmd.ErrOrStderr())

	stopMetrics, err := startMetrics(cfg.Metrics.Address, logger)
	if err != nil {
		return fmt.Errorf("starting metrics: %w", err)
	}
	defer stopMetrics()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl := newController(logger)
	snap, captureErr := ctrl.StartCapture(ctx, cfg.Capture.Operator)

	out := cmd.OutOrStdout()
	if snap.Status == session.Failed {
		fmt.Fprintln(out, snap.ErrorMessage)
	} else {
		printResults(out, snap)
	}

	if captureReport {
		path, err := reporting.GenerateSessionReport(snap, nil, cfg.Report.Dir, "html")
		if err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		fmt.Fprintf(out, "Report saved to %s\n", path)
	}
	return captureErr
}

func printResults(w io.Writer, snap session.Snapshot) {
	if snap.Banner != "" {
		fmt.Fprintln(w, cliBanner.Render(snap.Banner))
	}
	if !snap.HasResults() {
		fmt.Fprintln(w, "Capture finished with no packets.")
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "Source IP", "Destination IP", "Protocol", "Source Port", "Destination Port", "Length", "Prediction").
		StyleFunc(func(row, col int) lipgloss.Style {
			return lipgloss.NewStyle().Padding(0, 1)
		})
	for _, r := range snap.Rows() {
		label := r.Label
		if r.Mitigable {
			label = cliThreat.Render(label)
		}
		t.Row(
			strconv.Itoa(r.Number()),
			r.Packet.SrcIP.String(),
			r.Packet.DstIP.String(),
			r.Packet.ProtocolName(),
			analysis.PortLabel(r.Packet.SrcPort),
			analysis.PortLabel(r.Packet.DstPort),
			r.Packet.Length.String(),
			label,
		)
	}
	fmt.Fprintln(w, t.Render())

	counts := snap.Counts()
	fmt.Fprintf(w, "Normal: %d  Threat: %d  Total: %d\n", counts.Normal, counts.Threat, counts.Total())

	summary := analysis.Summarize(snap.Predictions, snap.Packets)
	mix := make([]string, 0, len(summary.Protocols))
	for _, ps := range summary.Protocols {
		mix = append(mix, fmt.Sprintf("%s %d", ps.Protocol, ps.Count))
	}
	fmt.Fprintf(w, "Protocols: %s  Threat bytes: %d\n", strings.Join(mix, ", "), summary.ThreatBytes)
	for _, src := range summary.ThreatSources(5) {
		fmt.Fprintf(w, "  threat source %s: %d packets\n", src.IP, src.Threats)
	}
}

// commandContext returns the command's context, falling back to Background
// when the command runs outside ExecuteContext.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

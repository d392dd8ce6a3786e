package tui

import (
	"fmt"
	"strings"

	"fwpanel/internal/analysis"
	"fwpanel/internal/session"

	"github.com/charmbracelet/lipgloss"
)

const (
	colorNormal = lipgloss.Color("#34D399")
	colorThreat = lipgloss.Color("#F87171")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFF7DB")).
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Margin(0, 1)

	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#EF4444")).
			Padding(0, 1).
			Margin(1, 1, 0, 1)

	errorStyle   = lipgloss.NewStyle().Foreground(colorThreat).Bold(true).Margin(0, 1)
	okStyle      = lipgloss.NewStyle().Foreground(colorNormal).Margin(0, 1)
	normalStyle  = lipgloss.NewStyle().Foreground(colorNormal)
	threatStyle  = lipgloss.NewStyle().Foreground(colorThreat)
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Margin(0, 1)
)

// predictionStripMax caps the per-packet strip so it fits narrow terminals.
const predictionStripMax = 60

func (m PanelModel) View() string {
	headerText := "Proactive Firewall Dashboard"
	if m.operator != "" {
		headerText += fmt.Sprintf(" [Operator: %s]", m.operator)
	}
	sections := []string{titleStyle.Render(headerText)}

	if m.snap.Banner != "" {
		sections = append(sections, bannerStyle.Render(m.snap.Banner))
	}

	switch m.snap.Status {
	case session.Idle:
		sections = append(sections, infoStyle.Render("Press s to start packet capture."))
	case session.Capturing:
		sections = append(sections, infoStyle.Render(m.spinner.View()+" Capturing..."))
	case session.Failed:
		sections = append(sections, errorStyle.Render(m.snap.ErrorMessage))
	case session.Succeeded:
		if m.snap.HasResults() {
			sections = append(sections, m.resultsView())
		} else {
			sections = append(sections, infoStyle.Render("Capture finished with no packets."))
		}
	}

	if m.notice != "" {
		if m.noticeOK {
			sections = append(sections, okStyle.Render(m.notice))
		} else {
			sections = append(sections, errorStyle.Render(m.notice))
		}
	}

	sections = append(sections, helpStyle.Render(m.helpLine()))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m PanelModel) resultsView() string {
	counts := m.snap.Counts()
	summary := analysis.Summarize(m.snap.Predictions, m.snap.Packets)

	predictions := infoStyle.Render("Packet Predictions\n" + predictionStrip(m.snap.Predictions))
	analysisBox := infoStyle.Render("Threat Analysis\n" + countsText(counts) +
		fmt.Sprintf("\nThreat bytes: %d", summary.ThreatBytes))

	var srcLines []string
	for _, src := range summary.ThreatSources(5) {
		srcLines = append(srcLines, fmt.Sprintf("%s: %d threat(s)", src.IP, src.Threats))
	}
	if len(srcLines) == 0 {
		srcLines = append(srcLines, "No threat sources.")
	}
	sourcesBox := infoStyle.Render("Threat Sources\n" + strings.Join(srcLines, "\n"))

	var protoLines []string
	for _, ps := range summary.Protocols {
		line := fmt.Sprintf("%s: %d", ps.Protocol, ps.Count)
		if ps.Threats > 0 {
			line += threatStyle.Render(fmt.Sprintf(" (%d threat)", ps.Threats))
		}
		protoLines = append(protoLines, line)
	}
	protocolBox := infoStyle.Render("Protocol Mix\n" + strings.Join(protoLines, "\n"))

	row1 := lipgloss.JoinHorizontal(lipgloss.Top, predictions, analysisBox, protocolBox, sourcesBox)
	tableBox := infoStyle.Render("Captured Packets with Predictions\n" + m.table.View())

	parts := []string{row1, tableBox}
	if len(m.outcomes) > 0 {
		var lines []string
		for _, o := range m.outcomes {
			line := o.At.Format("15:04:05") + " " + o.Message
			if o.OK {
				lines = append(lines, normalStyle.Render(line))
			} else {
				lines = append(lines, threatStyle.Render(line))
			}
		}
		parts = append(parts, infoStyle.Render("Mitigations\n"+strings.Join(lines, "\n")))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// predictionStrip draws one cell per packet, in capture order.
func predictionStrip(predictions []int) string {
	var b strings.Builder
	for i, p := range predictions {
		if i == predictionStripMax {
			fmt.Fprintf(&b, " +%d", len(predictions)-predictionStripMax)
			break
		}
		if p == session.PredictionThreat {
			b.WriteString(threatStyle.Render("█"))
		} else {
			b.WriteString(normalStyle.Render("▁"))
		}
	}
	return b.String()
}

func countsText(c session.Counts) string {
	total := c.Total()
	pct := func(n int) float64 {
		if total == 0 {
			return 0
		}
		return float64(n) * 100 / float64(total)
	}
	return fmt.Sprintf("%s: %d (%.1f%%)\n%s: %d (%.1f%%)",
		normalStyle.Render(session.LabelNormal), c.Normal, pct(c.Normal),
		threatStyle.Render(session.LabelThreat), c.Threat, pct(c.Threat))
}

func (m PanelModel) helpLine() string {
	switch m.snap.Status {
	case session.Capturing:
		return "Capturing... q quit"
	case session.Succeeded:
		if m.snap.HasResults() {
			return "s capture again • ↑/↓ select • d drop packets • r report • q quit"
		}
		return "s capture again • r report • q quit"
	case session.Failed:
		return "s retry capture • r report • q quit"
	default:
		return "s start packet capture • q quit"
	}
}

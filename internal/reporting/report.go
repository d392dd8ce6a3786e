package reporting

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fwpanel/internal/analysis"
	"fwpanel/internal/session"
)

// GenerateSessionReport writes a report of one capture cycle into dir and
// returns the file path. Currently supports "html" format.
func GenerateSessionReport(snap session.Snapshot, outcomes []session.Outcome, dir, format string) (string, error) {
	if format != "html" {
		return "", fmt.Errorf("unsupported format: %s", format)
	}
	if snap.Status != session.Succeeded && snap.Status != session.Failed {
		return "", fmt.Errorf("no finished capture to report (status %s)", snap.Status)
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(dir, fmt.Sprintf("capture_%s.html", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if _, err := file.WriteString(renderHTML(snap, outcomes, timestamp)); err != nil {
		return "", err
	}
	return filename, nil
}

func renderHTML(snap session.Snapshot, outcomes []session.Outcome, timestamp string) string {
	counts := snap.Counts()
	summary := analysis.Summarize(snap.Predictions, snap.Packets)
	esc := html.EscapeString

	var b strings.Builder
	fmt.Fprintf(&b, `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Proactive Firewall Capture Report - %s</title>
    <style>
        body { font-family: sans-serif; margin: 20px; color: #333; }
        h1, h2 { color: #2c3e50; }
        table { width: 100%%; border-collapse: collapse; margin-bottom: 20px; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        th { background-color: #f2f2f2; }
        tr:nth-child(even) { background-color: #f9f9f9; }
        .summary { background: #eef; padding: 15px; border-radius: 5px; margin-bottom: 20px; }
        .banner { background: #f87171; color: #fff; padding: 10px; border-radius: 5px; }
        .threat { color: #d9534f; font-weight: bold; }
        .normal { color: #16a34a; }
    </style>
</head>
<body>
    <h1>Proactive Firewall Capture Report</h1>
`, timestamp)

	if snap.Banner != "" {
		fmt.Fprintf(&b, "    <div class=\"banner\">%s</div>\n", esc(snap.Banner))
	}

	fmt.Fprintf(&b, `    <div class="summary">
        <p><strong>Capture:</strong> %s</p>
        <p><strong>Operator:</strong> %s</p>
        <p><strong>Started:</strong> %s</p>
        <p><strong>Status:</strong> %s</p>
        <p><strong>Packets:</strong> %d (Normal %d, Threat %d, %.1f%% threat)</p>
        <p><strong>Threat bytes:</strong> %d</p>
    </div>
`, esc(snap.CaptureID), esc(operatorOrDash(snap.Operator)), snap.StartedAt.Format(time.RFC1123),
		snap.Status, counts.Total(), counts.Normal, counts.Threat, summary.ThreatRatio()*100,
		summary.ThreatBytes)

	if snap.Status == session.Failed {
		fmt.Fprintf(&b, "    <p class=\"threat\">%s</p>\n</body>\n</html>", esc(snap.ErrorMessage))
		return b.String()
	}

	b.WriteString(`    <h2>Captured Packets with Predictions</h2>
    <table>
        <thead>
            <tr>
                <th>Packet ID</th>
                <th>Source IP</th>
                <th>Destination IP</th>
                <th>Protocol</th>
                <th>Source Port</th>
                <th>Destination Port</th>
                <th>Packet Length</th>
                <th>Prediction</th>
            </tr>
        </thead>
        <tbody>
`)
	rows := snap.Rows()
	if len(rows) == 0 {
		b.WriteString("            <tr><td colspan=\"8\">No packets captured.</td></tr>\n")
	}
	for _, row := range rows {
		class := "normal"
		if row.Mitigable {
			class = "threat"
		}
		p := row.Packet
		fmt.Fprintf(&b, "            <tr><td>%d</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td class=\"%s\">%s</td></tr>\n",
			row.Number(), esc(p.SrcIP.String()), esc(p.DstIP.String()), esc(p.ProtocolName()),
			esc(analysis.PortLabel(p.SrcPort)), esc(analysis.PortLabel(p.DstPort)), esc(p.Length.String()),
			class, row.Label)
	}
	b.WriteString("        </tbody>\n    </table>\n")

	b.WriteString(`    <h2>Protocol Mix</h2>
    <table>
        <thead>
            <tr>
                <th>Protocol</th>
                <th>Packets</th>
                <th>Threat Packets</th>
            </tr>
        </thead>
        <tbody>
`)
	if len(summary.Protocols) == 0 {
		b.WriteString("            <tr><td colspan=\"3\">No packets captured.</td></tr>\n")
	}
	for _, ps := range summary.Protocols {
		fmt.Fprintf(&b, "            <tr><td>%s</td><td>%d</td><td>%d</td></tr>\n",
			esc(ps.Protocol), ps.Count, ps.Threats)
	}
	b.WriteString("        </tbody>\n    </table>\n")

	b.WriteString(`    <h2>Threat Sources</h2>
    <table>
        <thead>
            <tr>
                <th>Source IP</th>
                <th>Threat Packets</th>
                <th>Total Packets</th>
                <th>Bytes</th>
            </tr>
        </thead>
        <tbody>
`)
	sources := summary.ThreatSources(10)
	if len(sources) == 0 {
		b.WriteString("            <tr><td colspan=\"4\">No threats detected in this capture.</td></tr>\n")
	}
	for _, src := range sources {
		fmt.Fprintf(&b, "            <tr><td>%s</td><td class=\"threat\">%d</td><td>%d</td><td>%d</td></tr>\n",
			esc(src.IP), src.Threats, src.Packets, src.Bytes)
	}
	b.WriteString("        </tbody>\n    </table>\n")

	if len(outcomes) > 0 {
		b.WriteString(`    <h2>Mitigations</h2>
    <table>
        <thead>
            <tr>
                <th>Time</th>
                <th>Source IP</th>
                <th>Result</th>
            </tr>
        </thead>
        <tbody>
`)
		for _, o := range outcomes {
			fmt.Fprintf(&b, "            <tr><td>%s</td><td>%s</td><td>%s</td></tr>\n",
				o.At.Format("15:04:05"), esc(o.Address), esc(o.Message))
		}
		b.WriteString("        </tbody>\n    </table>\n")
	}

	b.WriteString("</body>\n</html>")
	return b.String()
}

func operatorOrDash(op string) string {
	if op == "" {
		return "-"
	}
	return op
}

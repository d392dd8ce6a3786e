package tui

import (
	"context"

	"fwpanel/internal/reporting"
	"fwpanel/internal/session"

	tea "github.com/charmbracelet/bubbletea"
)

func awaitCapture(ctx context.Context, p *session.Pending) tea.Cmd {
	return func() tea.Msg {
		snap, err := p.Await(ctx)
		return captureDoneMsg{snap: snap, err: err}
	}
}

func mitigate(ctx context.Context, ctrl *session.Controller, addr string) tea.Cmd {
	return func() tea.Msg {
		return mitigationMsg{outcome: ctrl.Mitigate(ctx, addr)}
	}
}

func writeReport(snap session.Snapshot, outcomes []session.Outcome, dir string) tea.Cmd {
	return func() tea.Msg {
		path, err := reporting.GenerateSessionReport(snap, outcomes, dir, "html")
		return reportMsg{path: path, err: err}
	}
}

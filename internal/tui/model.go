package tui

import (
	"context"

	"fwpanel/internal/session"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// PanelModel is the terminal control panel. It only renders controller
// state; every transition goes through the session.Controller.
type PanelModel struct {
	ctx       context.Context
	ctrl      *session.Controller
	operator  string
	reportDir string

	snap     session.Snapshot
	outcomes []session.Outcome
	notice   string
	noticeOK bool

	table   table.Model
	spinner spinner.Model
	width   int
}

// Messages produced by background commands.
type (
	captureDoneMsg struct {
		snap session.Snapshot
		err  error
	}
	mitigationMsg struct {
		outcome session.Outcome
	}
	reportMsg struct {
		path string
		err  error
	}
)

var tableColumns = []table.Column{
	{Title: "Packet ID", Width: 9},
	{Title: "Source IP", Width: 16},
	{Title: "Destination IP", Width: 16},
	{Title: "Protocol", Width: 9},
	{Title: "Source Port", Width: 14},
	{Title: "Destination Port", Width: 16},
	{Title: "Length", Width: 7},
	{Title: "Prediction", Width: 10},
	{Title: "Action", Width: 12},
}

// NewPanelModel builds the panel around ctrl. operator is attached to every
// capture request and may be empty.
func NewPanelModel(ctx context.Context, ctrl *session.Controller, operator, reportDir string) PanelModel {
	t := table.New(
		table.WithColumns(tableColumns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle))

	return PanelModel{
		ctx:       ctx,
		ctrl:      ctrl,
		operator:  operator,
		reportDir: reportDir,
		snap:      ctrl.Snapshot(),
		table:     t,
		spinner:   sp,
	}
}

func (m PanelModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Snapshot is the session the panel is currently showing.
func (m PanelModel) Snapshot() session.Snapshot {
	return m.snap
}

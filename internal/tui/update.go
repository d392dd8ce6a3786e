package tui

import (
	"errors"
	"fmt"

	"fwpanel/internal/analysis"
	"fwpanel/internal/session"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
)

const outcomeHistory = 5

func (m PanelModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "s":
			return m.startCapture()
		case "d":
			return m.dropSelected()
		case "r":
			if m.snap.Status != session.Succeeded && m.snap.Status != session.Failed {
				m.setNotice("Nothing to report yet.", false)
				return m, nil
			}
			return m, writeReport(m.snap, m.outcomes, m.reportDir)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case captureDoneMsg:
		// A superseded capture says nothing about the session on screen.
		if errors.Is(msg.err, session.ErrSuperseded) {
			return m, nil
		}
		m.snap = msg.snap
		m.table.SetRows(buildRows(m.snap))
		m.table.SetCursor(0)
		return m, nil

	case mitigationMsg:
		m.setNotice(msg.outcome.Message, msg.outcome.OK)
		m.outcomes = m.ctrl.Outcomes(outcomeHistory)
		return m, nil

	case reportMsg:
		if msg.err != nil {
			m.setNotice(fmt.Sprintf("Report failed: %v", msg.err), false)
		} else {
			m.setNotice("Report written to "+msg.path, true)
		}
		return m, nil

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m PanelModel) startCapture() (tea.Model, tea.Cmd) {
	if m.snap.Status == session.Capturing {
		return m, nil
	}
	pending := m.ctrl.Begin(m.operator)
	m.snap = m.ctrl.Snapshot()
	m.notice = ""
	m.table.SetRows(nil)
	return m, awaitCapture(m.ctx, pending)
}

func (m PanelModel) dropSelected() (tea.Model, tea.Cmd) {
	rows := m.snap.Rows()
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(rows) {
		return m, nil
	}
	row := rows[idx]
	if !row.Mitigable {
		m.setNotice(fmt.Sprintf("Packet %d is not flagged as a threat.", row.Number()), false)
		return m, nil
	}
	addr := row.Packet.SrcIP.String()
	m.setNotice("Dropping packets from "+addr+"...", true)
	return m, mitigate(m.ctx, m.ctrl, addr)
}

func (m *PanelModel) setNotice(text string, ok bool) {
	m.notice = text
	m.noticeOK = ok
}

func buildRows(snap session.Snapshot) []table.Row {
	rows := snap.Rows()
	out := make([]table.Row, len(rows))
	for i, r := range rows {
		action := ""
		if r.Mitigable {
			action = "Drop [d]"
		}
		p := r.Packet
		out[i] = table.Row{
			fmt.Sprintf("%d", r.Number()),
			p.SrcIP.String(),
			p.DstIP.String(),
			p.ProtocolName(),
			analysis.PortLabel(p.SrcPort),
			analysis.PortLabel(p.DstPort),
			p.Length.String(),
			r.Label,
			action,
		}
	}
	return out
}

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/milk9111/towerstack/sim"
)

var (
	reportTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("229"))

	reportLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Width(14)

	reportValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("255"))

	reportLostStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	reportHeldStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	reportBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 2)
)

type reportRow struct {
	label string
	value string
}

func reportRows(seed int64, s sim.Stats) []reportRow {
	return []reportRow{
		{"Seed", fmt.Sprintf("%d", seed)},
		{"Time", fmt.Sprintf("%.1fs", s.Elapsed)},
		{"Steps", fmt.Sprintf("%d", s.Steps)},
		{"Wave", fmt.Sprintf("%d", s.Wave)},
		{"Energy", fmt.Sprintf("%.0f", s.Energy)},
		{"Gold", fmt.Sprintf("%.0f", s.Gold)},
		{"Energy rate", fmt.Sprintf("%.1f/s after %d upgrades", s.EnergyRate, s.Upgrades)},
		{"Blocks", fmt.Sprintf("%d placed, %d lost, %d standing", s.Placed, s.Destroyed, s.Blocks)},
		{"Enemies", fmt.Sprintf("%d spawned, %d defeated, %d alive", s.Spawned, s.Defeated, s.Enemies)},
		{"Bodies", fmt.Sprintf("%d", s.Bodies)},
	}
}

func reportOutcome(s sim.Stats) string {
	if s.GameOver {
		return "GAME OVER"
	}
	return "HELD"
}

// renderReport formats the end-of-run stats for a terminal.
func renderReport(seed int64, s sim.Stats) string {
	lines := []string{reportTitleStyle.Render("towerstack run"), ""}
	for _, row := range reportRows(seed, s) {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
			reportLabelStyle.Render(row.label),
			reportValueStyle.Render(row.value),
		))
	}

	outcome := reportHeldStyle.Render(reportOutcome(s))
	if s.GameOver {
		outcome = reportLostStyle.Render(reportOutcome(s))
	}
	lines = append(lines, "", outcome)

	return reportBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// plainReport is the same report without styling.
func plainReport(seed int64, s sim.Stats) string {
	var b strings.Builder
	for _, row := range reportRows(seed, s) {
		fmt.Fprintf(&b, "%-14s%s\n", row.label, row.value)
	}
	b.WriteString(reportOutcome(s))
	return b.String()
}

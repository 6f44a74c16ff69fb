package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rpggio/blueprint/internal/domain/journal"
	"github.com/rpggio/blueprint/internal/domain/project"
)

var (
	accentColor  = lipgloss.Color("#7D56F4")
	subtleColor  = lipgloss.Color("#6C6C6C")
	successColor = lipgloss.Color("#73F59F")
	errorColor   = lipgloss.Color("#FF6B6B")
	warnColor    = lipgloss.Color("#F5C26B")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	subtleStyle  = lipgloss.NewStyle().Foreground(subtleColor)
	successStyle = lipgloss.NewStyle().Foreground(successColor)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	warnStyle    = lipgloss.NewStyle().Foreground(warnColor)
	badgeStyle   = lipgloss.NewStyle().Bold(true).Width(12)
)

const barWidth = 20

func statusStyle(st project.Status) lipgloss.Style {
	switch st {
	case project.StatusReady:
		return successStyle
	case project.StatusFailed:
		return errorStyle
	default:
		return warnStyle
	}
}

// renderStatus formats one progress line for a project snapshot.
func renderStatus(p *project.Project) string {
	filled := p.Progress * barWidth / 100
	bar := strings.Repeat("█", filled) + subtleStyle.Render(strings.Repeat("░", barWidth-filled))

	line := fmt.Sprintf("%s %s %3d%%",
		badgeStyle.Inherit(statusStyle(p.Status)).Render(string(p.Status)),
		bar,
		p.Progress,
	)
	if p.Stage != nil && *p.Stage != "" && *p.Stage != string(p.Status) {
		line += "  " + subtleStyle.Render(*p.Stage)
	}
	if p.Message != nil && *p.Message != "" {
		line += "  " + statusStyle(p.Status).Render(*p.Message)
	}
	return line
}

// renderSummary describes a settled project.
func renderSummary(p *project.Project) string {
	stories, over := 0, 0
	for _, e := range p.Epics {
		stories += len(e.Stories)
		for _, s := range e.Stories {
			if s.DerivedFields != nil && s.DerivedFields.OverLimitCount > 0 {
				over++
			}
		}
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(p.Name))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%d epics, %d stories", len(p.Epics), stories))
	if over > 0 {
		b.WriteString(warnStyle.Render(fmt.Sprintf(", %d over a character limit", over)))
	}
	return b.String()
}

func outcomeStyle(o journal.Outcome) lipgloss.Style {
	switch o {
	case journal.OutcomeCommitted:
		return successStyle
	case journal.OutcomeRolledBack, journal.OutcomeFailed:
		return errorStyle
	default:
		return warnStyle
	}
}

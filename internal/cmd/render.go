package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/aasc77/prism/internal/event"
)

var (
	styleOK     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleWarn   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	styleError  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	styleInfo   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	styleDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleHeader = lipgloss.NewStyle().Bold(true).Underline(true)
)

// renderEvent formats an engine event for the operator console.
func renderEvent(e event.Event) string {
	ts := styleDim.Render(e.Timestamp().Format("15:04:05"))

	switch ev := e.(type) {
	case event.TaskAssignedEvent:
		return fmt.Sprintf("%s %s %s %s", ts,
			styleInfo.Render("▶ assigned"), ev.TaskID, styleDim.Render(ev.Title))
	case event.VerdictEvent:
		style := styleInfo
		switch ev.Verdict {
		case "advance":
			style = styleOK
		case "fail":
			style = styleWarn
		}
		return fmt.Sprintf("%s %s %s from %s: %s", ts,
			style.Render("◆ "+ev.Verdict), ev.TaskID, ev.Role, styleDim.Render(ev.Rationale))
	case event.PhaseAdvancedEvent:
		return fmt.Sprintf("%s %s %s %s → %s", ts,
			styleOK.Render("⇒ advanced"), ev.TaskID, ev.From, ev.To)
	case event.TaskCompletedEvent:
		return fmt.Sprintf("%s %s %s (%d attempts)", ts,
			styleOK.Render("✓ completed"), ev.TaskID, ev.Attempts)
	case event.TaskStuckEvent:
		return fmt.Sprintf("%s %s %s: %s", ts,
			styleError.Render("✗ stuck"), ev.TaskID, ev.Reason)
	case event.EngineBlockedEvent:
		return fmt.Sprintf("%s %s %s: %s", ts,
			styleError.Render("■ blocked"), ev.TaskID, ev.Reason)
	case event.EngineResumedEvent:
		return fmt.Sprintf("%s %s → %s", ts,
			styleOK.Render("▶ resumed"), ev.Mode)
	case event.NudgeSentEvent:
		return fmt.Sprintf("%s %s %s", ts,
			styleWarn.Render("~ nudged"), ev.Role)
	case event.PipelineDrainedEvent:
		return fmt.Sprintf("%s %s %d completed, %d stuck", ts,
			styleHeader.Render("pipeline drained"), ev.Completed, ev.Stuck)
	case event.EngineErrorEvent:
		return fmt.Sprintf("%s %s %s: %s", ts,
			styleError.Render("! error"), ev.TaskID, ev.Err)
	default:
		return fmt.Sprintf("%s %s", ts, e.EventType())
	}
}

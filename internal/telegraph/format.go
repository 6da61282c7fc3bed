package telegraph

import (
	"fmt"
	"strings"
)

// Color constants for event severity.
const (
	ColorSuccess = "#36a64f"
	ColorInfo    = "#2196f3"
	ColorWarning = "#ff9800"
)

// maxUpdateExcerpt bounds quoted community text in chat.
const maxUpdateExcerpt = 200

// severityColor maps a severity string to a sidebar color.
func severityColor(severity string) string {
	switch severity {
	case "success":
		return ColorSuccess
	case "warning":
		return ColorWarning
	default:
		return ColorInfo
	}
}

// milestoneVerb returns a human-friendly verb for a phase status change.
func milestoneVerb(toStatus string) string {
	switch toStatus {
	case "completed":
		return "finished"
	case "active":
		return "started"
	case "upcoming":
		return "reopened"
	default:
		return toStatus
	}
}

func milestoneSeverity(toStatus string) string {
	switch toStatus {
	case "completed":
		return "success"
	case "upcoming":
		return "warning"
	default:
		return "info"
	}
}

// FormatMilestone formats a phase transition on a project.
func FormatMilestone(ev ProjectEvent) FormattedEvent {
	severity := milestoneSeverity(ev.ToStatus)
	title := fmt.Sprintf("%s %s %s", ev.ProjectName, milestoneVerb(ev.ToStatus), ev.Phase)

	var bodyParts []string
	if ev.Address != "" {
		bodyParts = append(bodyParts, ev.Address)
	}
	if ev.FromStatus != "" {
		bodyParts = append(bodyParts, fmt.Sprintf("%s → %s", ev.FromStatus, ev.ToStatus))
	}

	fields := []Field{
		{Name: "Phase", Value: ev.Phase, Short: true},
		{Name: "Overall", Value: fmt.Sprintf("%d%%", ev.Progress), Short: true},
	}
	if ev.ProjectID != "" {
		fields = append(fields, Field{Name: "Project", Value: ev.ProjectID, Short: true})
	}

	return FormattedEvent{
		Title:    title,
		Body:     strings.Join(bodyParts, "\n"),
		Severity: severity,
		Color:    severityColor(severity),
		Fields:   fields,
	}
}

// FormatUpdate formats a community update on a project.
func FormatUpdate(ev ProjectEvent) FormattedEvent {
	user := ev.Username
	if user == "" {
		user = "Someone"
	}
	text := ev.Text
	if r := []rune(text); len(r) > maxUpdateExcerpt {
		text = string(r[:maxUpdateExcerpt-1]) + "…"
	}

	fields := []Field{{Name: "Posted by", Value: user, Short: true}}
	if !ev.Timestamp.IsZero() {
		fields = append(fields, Field{Name: "At", Value: ev.Timestamp.UTC().Format("2006-01-02 15:04 MST"), Short: true})
	}

	return FormattedEvent{
		Title:    fmt.Sprintf("New update on %s", ev.ProjectName),
		Body:     text,
		Severity: "info",
		Color:    ColorInfo,
		Fields:   fields,
	}
}

// FormatPulse formats a refresh summary.
func FormatPulse(s PulseSummary) FormattedEvent {
	var bodyLines []string
	bodyLines = append(bodyLines, fmt.Sprintf("**Projects**: %d from %s", s.Projects, s.Source))
	if s.Milestones > 0 {
		bodyLines = append(bodyLines, fmt.Sprintf("**Milestones**: %d", s.Milestones))
	}
	for _, label := range s.PhaseOrder {
		if n := s.ByPhase[label]; n > 0 {
			bodyLines = append(bodyLines, fmt.Sprintf("**%s**: %d", label, n))
		}
	}

	severity := "info"
	if s.FellBack {
		severity = "warning"
		bodyLines = append(bodyLines, "Primary source unavailable; serving fallback data")
	}

	fields := []Field{
		{Name: "Source", Value: s.Source, Short: true},
		{Name: "Projects", Value: fmt.Sprintf("%d", s.Projects), Short: true},
	}
	if !s.RefreshedAt.IsZero() {
		fields = append(fields, Field{Name: "Refreshed", Value: s.RefreshedAt.UTC().Format("2006-01-02 15:04 MST"), Short: true})
	}

	return FormattedEvent{
		Title:    "BuildWatch Pulse",
		Body:     strings.Join(bodyLines, "\n"),
		Severity: severity,
		Color:    severityColor(severity),
		Fields:   fields,
	}
}

// Format dispatches on the event type.
func Format(ev ProjectEvent) (FormattedEvent, bool) {
	switch ev.Type {
	case EventMilestone:
		return FormatMilestone(ev), true
	case EventUpdate:
		return FormatUpdate(ev), true
	}
	return FormattedEvent{}, false
}

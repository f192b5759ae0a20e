package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/wowr/internal/diaglog"
)

const (
	statusLines = 7
	// header + footer + two bordered panels
	chromeLines = 1 + 1 + 2 + 2
)

func (m *Model) resizeActivity() {
	w := max(m.width-4, 10)
	h := max(m.height-chromeLines-statusLines, 3)
	if !m.ready {
		m.activity = viewport.New(w, h)
		return
	}
	m.activity.Width = w
	m.activity.Height = h
}

// refreshActivity reloads the recent diagnostic lines into the viewport.
func (m *Model) refreshActivity() {
	if !m.ready {
		return
	}
	styles := m.theme.Styles()
	var b strings.Builder
	for _, e := range m.snapshot.Entries {
		if e.Level == diaglog.LevelDebug && !m.showDebug {
			continue
		}
		b.WriteString(styles.FaintText.Render(e.Time.Format("15:04:05")))
		b.WriteString(" ")
		b.WriteString(entryStyle(styles, e).Render(e.Message))
		b.WriteString("\n")
	}
	m.activity.SetContent(strings.TrimSuffix(b.String(), "\n"))
	if m.follow {
		m.activity.GotoBottom()
	}
}

func entryStyle(styles Styles, e diaglog.Entry) lipgloss.Style {
	switch {
	case strings.Contains(e.Message, "failed") || strings.Contains(e.Message, "Could not"):
		return styles.DangerText
	case strings.Contains(e.Message, "detected"):
		return styles.AccentText
	case e.Level == diaglog.LevelDebug:
		return styles.MutedText
	default:
		return styles.Text
	}
}

func (m Model) renderMain() string {
	styles := m.theme.Styles()
	panelWidth := max(m.width-2, 10)

	status := styles.Panel.Width(panelWidth).Render(m.renderStatus(styles))
	activity := styles.Panel.
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Width(panelWidth).
		Render(m.activity.View())

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(styles),
		status,
		activity,
		m.renderFooter(styles),
	)
}

func (m Model) renderHeader(styles Styles) string {
	title := styles.AccentText.Bold(true).Render("wowr")
	variant := styles.MutedText.Render(m.cfg.Variant.String())
	right := styles.FaintText.Render(m.lastUpdatedLabel())
	if m.dryRun {
		right = styles.WarningText.Render("dry run") + "  " + right
	}
	left := title + " " + variant
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	return styles.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) lastUpdatedLabel() string {
	if m.lastUpdated.IsZero() {
		return "waiting for first tick"
	}
	return "updated " + m.lastUpdated.Format("15:04:05")
}

func (m Model) renderStatus(styles Styles) string {
	snap := m.snapshot
	rows := []struct{ label, value string }{
		{"Combat", m.combatValue(styles)},
		{"Recording", m.recordingValue(styles)},
		{"Combat log", m.logValue(styles)},
		{"Last tick", m.tickValue(styles)},
		{"Last trigger", m.triggerValue(styles)},
		{"Commands", m.commandsValue(styles)},
		{"Ticks", styles.Text.Render(fmt.Sprintf("%d every %s, backstop %s", snap.Ticks, m.cfg.Interval, m.cfg.Backstop))},
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, styles.Label.Render(r.label)+r.value)
	}
	return strings.Join(lines, "\n")
}

func (m Model) combatValue(styles Styles) string {
	c := m.snapshot.Combat
	switch {
	case c.InDungeon:
		return styles.StateBadge("dungeon")
	case c.InEncounter:
		return styles.StateBadge("encounter")
	default:
		return styles.StateBadge("idle")
	}
}

func (m Model) recordingValue(styles Styles) string {
	snap := m.snapshot
	if !snap.HasRecording {
		if snap.RecordingError != nil {
			return styles.StateBadge("offline") + " " + styles.DangerText.Render(truncate(snap.RecordingError.Error(), m.width-30))
		}
		return styles.MutedText.Render("unknown")
	}
	out := styles.StateBadge(snap.Recording.String())
	if snap.RecordingError != nil {
		out += " " + styles.WarningText.Render("stale: "+truncate(snap.RecordingError.Error(), m.width-40))
	}
	return out
}

func (m Model) logValue(styles Styles) string {
	snap := m.snapshot
	if snap.IsOffline() && snap.LastError != nil {
		return styles.DangerText.Render(truncate(snap.LastError.Error(), m.width-20))
	}
	if snap.LogFile == "" {
		return styles.MutedText.Render("searching " + m.cfg.LogDir)
	}
	return styles.Text.Render(filepath.Base(snap.LogFile)) + " " + styles.FaintText.Render(filepath.Dir(snap.LogFile))
}

func (m Model) tickValue(styles Styles) string {
	snap := m.snapshot
	if snap.LastTick.IsZero() {
		return styles.MutedText.Render("-")
	}
	ago := time.Since(snap.LastTick).Truncate(time.Second)
	return styles.Text.Render(snap.LastTick.Format("15:04:05")) + " " +
		styles.FaintText.Render(fmt.Sprintf("(%s ago, %s)", ago, snap.LastHalt))
}

func (m Model) triggerValue(styles Styles) string {
	snap := m.snapshot
	if snap.LastTrigger == "" {
		return styles.MutedText.Render("none yet")
	}
	return styles.AccentText.Render(snap.LastTrigger) + " " + styles.FaintText.Render("at "+snap.LastTriggerAt.Format("15:04:05"))
}

func (m Model) commandsValue(styles Styles) string {
	if len(m.snapshot.LastCommands) == 0 {
		return styles.MutedText.Render("-")
	}
	return styles.Text.Render(strings.Join(m.snapshot.LastCommands, ", "))
}

func (m Model) renderFooter(styles Styles) string {
	follow := "follow off"
	if m.follow {
		follow = "follow on"
	}
	return styles.Header.Width(m.width).Render(m.help.View(m.keys) + "  " + styles.FaintText.Render(follow))
}

func truncate(s string, width int) string {
	if width < 8 {
		width = 8
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}

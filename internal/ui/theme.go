package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines colors for the dashboard.
type Theme struct {
	Name string

	Background string
	Surface    string
	Border     string
	Text       string
	Muted      string
	Faint      string
	Accent     string
	Success    string
	Warning    string
	Danger     string
	Info       string

	// StateColors keys are recorder.Status strings plus "offline".
	StateColors map[string]string
}

// Styles contains pre-built Lipgloss styles for the theme.
type Styles struct {
	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style
	Header      lipgloss.Style
	Panel       lipgloss.Style
	Label       lipgloss.Style

	stateColors map[string]string
	background  string
	muted       string
}

// Styles returns Lipgloss styles for this theme.
func (t Theme) Styles() Styles {
	return Styles{
		Text:        lipgloss.NewStyle().Foreground(lipgloss.Color(t.Text)),
		MutedText:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Muted)),
		FaintText:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Faint)),
		AccentText:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Accent)),
		SuccessText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Success)).Bold(true),
		WarningText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Warning)),
		DangerText:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Danger)).Bold(true),

		Header: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Text)).
			Padding(0, 1),

		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(t.Border)).
			Padding(0, 1),

		Label: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Muted)).
			Width(14),

		stateColors: t.StateColors,
		background:  t.Background,
		muted:       t.Muted,
	}
}

// StateBadge renders a recording or combat state as a colored chip.
func (s Styles) StateBadge(state string) string {
	color := s.stateColors[state]
	if color == "" {
		color = s.muted
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(s.background)).
		Background(lipgloss.Color(color)).
		Padding(0, 1).
		Render(state)
}

var themes = map[string]Theme{
	"Nightfox": nightfoxTheme(),
	"Kanagawa": kanagawaTheme(),
	"Slate":    slateTheme(),
}

var themeOrder = []string{"Nightfox", "Kanagawa", "Slate"}

// GetTheme returns a theme by name.
func GetTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return nightfoxTheme()
}

// NextTheme returns the next theme name in the cycle.
func NextTheme(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

func nightfoxTheme() Theme {
	// Nightfox palette: https://github.com/EdenEast/nightfox.nvim
	return Theme{
		Name:       "Nightfox",
		Background: "#131a24",
		Surface:    "#192330",
		Border:     "#39506d",
		Text:       "#cdcecf",
		Muted:      "#738091",
		Faint:      "#71839b",
		Accent:     "#719cd6",
		Success:    "#81b29a",
		Warning:    "#dbc074",
		Danger:     "#c94f6d",
		Info:       "#63cdcf",
		StateColors: map[string]string{
			"idle":      "#738091",
			"recording": "#c94f6d",
			"paused":    "#dbc074",
			"dungeon":   "#9d79d6",
			"encounter": "#f4a261",
			"offline":   "#c94f6d",
		},
	}
}

func kanagawaTheme() Theme {
	// Kanagawa palette: https://github.com/rebelot/kanagawa.nvim
	return Theme{
		Name:       "Kanagawa",
		Background: "#16161D",
		Surface:    "#1F1F28",
		Border:     "#54546D",
		Text:       "#DCD7BA",
		Muted:      "#C8C093",
		Faint:      "#727169",
		Accent:     "#7E9CD8",
		Success:    "#98BB6C",
		Warning:    "#E6C384",
		Danger:     "#E46876",
		Info:       "#7FB4CA",
		StateColors: map[string]string{
			"idle":      "#727169",
			"recording": "#E46876",
			"paused":    "#E6C384",
			"dungeon":   "#957FB8",
			"encounter": "#FFA066",
			"offline":   "#E46876",
		},
	}
}

func slateTheme() Theme {
	// Tailwind CSS Slate/Sky palette: https://tailwindcss.com/docs/colors
	return Theme{
		Name:       "Slate",
		Background: "#020617",
		Surface:    "#0f172a",
		Border:     "#334155",
		Text:       "#f1f5f9",
		Muted:      "#94a3b8",
		Faint:      "#64748b",
		Accent:     "#38bdf8",
		Success:    "#22c55e",
		Warning:    "#f59e0b",
		Danger:     "#ef4444",
		Info:       "#06b6d4",
		StateColors: map[string]string{
			"idle":      "#64748b",
			"recording": "#dc2626",
			"paused":    "#f59e0b",
			"dungeon":   "#a855f7",
			"encounter": "#f97316",
			"offline":   "#dc2626",
		},
	}
}

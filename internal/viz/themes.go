package viz

import "github.com/charmbracelet/lipgloss"

// Theme colors the live view. Cold and Hot are the ends of the heat map
// ramp; Body is the color of the braille overlay.
type Theme struct {
	Name    string
	Primary lipgloss.Color
	Accent  lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Cold    lipgloss.Color
	Hot     lipgloss.Color
	Body    lipgloss.Color
}

var (
	ThemeNebula = Theme{
		Name:    "nebula",
		Primary: lipgloss.Color("#ff00ff"),
		Accent:  lipgloss.Color("#00ffff"),
		Text:    lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#666666"),
		Cold:    lipgloss.Color("#05010f"),
		Hot:     lipgloss.Color("#c03cff"),
		Body:    lipgloss.Color("#ffffa0"),
	}

	ThemeInfrared = Theme{
		Name:    "infrared",
		Primary: lipgloss.Color("#ff6b6b"),
		Accent:  lipgloss.Color("#feca57"),
		Text:    lipgloss.Color("#fff5f5"),
		Muted:   lipgloss.Color("#8b6b8c"),
		Cold:    lipgloss.Color("#000000"),
		Hot:     lipgloss.Color("#ff4500"),
		Body:    lipgloss.Color("#ffffff"),
	}

	ThemeOcean = Theme{
		Name:    "ocean",
		Primary: lipgloss.Color("#0077be"),
		Accent:  lipgloss.Color("#ffd700"),
		Text:    lipgloss.Color("#e0f0ff"),
		Muted:   lipgloss.Color("#4488aa"),
		Cold:    lipgloss.Color("#001a33"),
		Hot:     lipgloss.Color("#00e5ff"),
		Body:    lipgloss.Color("#ffd700"),
	}

	ThemeMono = Theme{
		Name:    "mono",
		Primary: lipgloss.Color("#ffffff"),
		Accent:  lipgloss.Color("#0088ff"),
		Text:    lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#888888"),
		Cold:    lipgloss.Color("#000000"),
		Hot:     lipgloss.Color("#d0d0d0"),
		Body:    lipgloss.Color("#ff3030"),
	}

	Themes = []Theme{
		ThemeNebula,
		ThemeInfrared,
		ThemeOcean,
		ThemeMono,
	}
)

// GetTheme returns a theme by name, falling back to the first theme.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return Themes[0]
}

// NextTheme returns the theme after t in Themes.
func NextTheme(t Theme) Theme {
	for i, th := range Themes {
		if th.Name == t.Name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

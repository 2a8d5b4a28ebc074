package viz

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/popsim/internal/config"
	"github.com/san-kum/popsim/internal/universe"
)

var (
	menuTitle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00cccc")).Bold(true)
	menuCursor   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true)
	menuActive   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
	menuValue    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff")).Bold(true)
	menuInactive = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
	menuKey      = lipgloss.NewStyle().Foreground(lipgloss.Color("#00aaaa")).Bold(true)
)

var presetInfo = map[string]string{
	"early":    "random stars in warm gas",
	"central":  "gas concentrated in a disk",
	"galaxy":   "stars orbiting a heavy core",
	"collapse": "hot gas that forms bodies",
	"dust":     "many light grains",
	"inert":    "free drift, no forces",
}

// Builder turns a configuration into a ready universe.
type Builder func(cfg *config.Config) (*universe.Universe, error)

const (
	stateMenu = iota
	stateConfig
	stateSim
)

// knob is one editable config value on the setup screen.
type knob struct {
	name string
	get  func(*config.Config) float64
	set  func(*config.Config, float64)
}

var knobs = []knob{
	{"seed", func(c *config.Config) float64 { return float64(c.Seed) }, func(c *config.Config, v float64) { c.Seed = int64(v) }},
	{"stars", func(c *config.Config) float64 { return float64(c.Scenario.Stars) }, func(c *config.Config, v float64) { c.Scenario.Stars = max(int(v), 0) }},
	{"star_mass", func(c *config.Config) float64 { return c.Scenario.StarMass }, func(c *config.Config, v float64) { c.Scenario.StarMass = v }},
	{"gas_mass", func(c *config.Config) float64 { return c.Scenario.GasMass }, func(c *config.Config, v float64) { c.Scenario.GasMass = v }},
	{"gas_speed", func(c *config.Config) float64 { return c.Scenario.GasSpeed }, func(c *config.Config, v float64) { c.Scenario.GasSpeed = v }},
	{"g", func(c *config.Config) float64 { return c.Physics.G }, func(c *config.Config, v float64) { c.Physics.G = v }},
	{"dt", func(c *config.Config) float64 { return c.Dt }, func(c *config.Config, v float64) { c.Dt = v }},
}

type app struct {
	state, cursor int
	presets       []string
	selected      string
	cfg           *config.Config
	knobCursor    int
	editing       bool
	editBuf       string
	err           error
	build         Builder
	liveModel     Model
	width, height int
}

// NewInteractiveApp starts at the preset menu.
func NewInteractiveApp(build Builder) tea.Model {
	return app{
		state:   stateMenu,
		presets: config.ListPresets(),
		build:   build,
	}
}

func (m app) Init() tea.Cmd { return nil }

func (m app) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if m.state == stateSim {
			newLive, cmd := m.liveModel.Update(msg)
			m.liveModel = newLive.(Model)
			return m, cmd
		}
	default:
		if m.state == stateSim {
			newLive, cmd := m.liveModel.Update(msg)
			m.liveModel = newLive.(Model)
			return m, cmd
		}
	}
	return m, nil
}

func (m app) handleKey(msg tea.KeyMsg) (app, tea.Cmd) {
	switch m.state {
	case stateMenu:
		return m.menuKey(msg)
	case stateConfig:
		return m.configKey(msg)
	case stateSim:
		newLive, cmd := m.liveModel.Update(msg)
		m.liveModel = newLive.(Model)
		return m, cmd
	}
	return m, nil
}

func (m app) menuKey(msg tea.KeyMsg) (app, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.presets)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.selected = m.presets[m.cursor]
		m.cfg = config.GetPreset(m.selected)
		m.state, m.knobCursor, m.err = stateConfig, 0, nil
	}
	return m, nil
}

func (m app) configKey(msg tea.KeyMsg) (app, tea.Cmd) {
	if m.editing {
		switch msg.String() {
		case "enter":
			if v, err := strconv.ParseFloat(m.editBuf, 64); err == nil {
				knobs[m.knobCursor].set(m.cfg, v)
			}
			m.editing, m.editBuf = false, ""
		case "esc":
			m.editing, m.editBuf = false, ""
		case "backspace":
			if len(m.editBuf) > 0 {
				m.editBuf = m.editBuf[:len(m.editBuf)-1]
			}
		default:
			if len(msg.String()) == 1 {
				c := msg.String()[0]
				if (c >= '0' && c <= '9') || c == '.' || c == '-' {
					m.editBuf += string(c)
				}
			}
		}
		return m, nil
	}
	switch msg.String() {
	case "q", "esc":
		m.state = stateMenu
	case "up", "k":
		if m.knobCursor > 0 {
			m.knobCursor--
		}
	case "down", "j":
		if m.knobCursor < len(knobs)-1 {
			m.knobCursor++
		}
	case "enter", " ":
		m.editing = true
		m.editBuf = strconv.FormatFloat(knobs[m.knobCursor].get(m.cfg), 'f', -1, 64)
	case "s":
		return m.start()
	}
	return m, nil
}

func (m app) start() (app, tea.Cmd) {
	if err := m.cfg.Validate(); err != nil {
		m.err = err
		return m, nil
	}
	u, err := m.build(m.cfg)
	if err != nil {
		m.err = err
		return m, nil
	}
	m.liveModel = NewModel(u, m.cfg.Dt, m.selected)
	if m.width > 0 {
		newLive, _ := m.liveModel.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
		m.liveModel = newLive.(Model)
	}
	m.state = stateSim
	return m, m.liveModel.Init()
}

func (m app) View() string {
	switch m.state {
	case stateMenu:
		return m.viewMenu()
	case stateConfig:
		return m.viewConfig()
	case stateSim:
		return m.liveModel.View()
	}
	return ""
}

func hints(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString(menuKey.Render(pairs[i]) + menuInactive.Render(" "+pairs[i+1]+"  "))
	}
	return b.String()
}

func (m app) viewMenu() string {
	var b strings.Builder
	b.WriteString("\n\n    " + menuTitle.Render("POPSIM") + "\n    " + Subtle.Render("bodies and gas on a torus") + "\n    " + Subtle.Render("─────────────────────────") + "\n\n")
	for i, name := range m.presets {
		desc := presetInfo[name]
		if i == m.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n", menuCursor.Render("▸"), menuActive.Render(fmt.Sprintf("%-10s", name)), menuValue.Render(desc)))
		} else {
			b.WriteString(fmt.Sprintf("    %s  %s\n", menuInactive.Render(fmt.Sprintf("  %-10s", name)), Subtle.Render(desc)))
		}
	}
	b.WriteString("\n    " + hints("j/k", "navigate", "enter", "select", "q", "quit") + "\n")
	return b.String()
}

func (m app) viewConfig() string {
	var b strings.Builder
	b.WriteString("\n\n    " + menuTitle.Render(strings.ToUpper(m.selected)) + "\n    " + Subtle.Render(presetInfo[m.selected]) + "\n    " + Subtle.Render("─────────────────────────") + "\n\n")
	for i, k := range knobs {
		valStr := fmt.Sprintf("%10.4g", k.get(m.cfg))
		if m.editing && i == m.knobCursor {
			valStr = fmt.Sprintf("%10s", m.editBuf+"_")
		}
		if i == m.knobCursor {
			b.WriteString(fmt.Sprintf("    %s %s %s\n", menuCursor.Render("▸"), menuActive.Render(fmt.Sprintf("%-10s", k.name)), menuValue.Render(valStr)))
		} else {
			b.WriteString(fmt.Sprintf("    %s %s\n", menuInactive.Render(fmt.Sprintf("  %-10s", k.name)), Subtle.Render(valStr)))
		}
	}
	if m.err != nil {
		b.WriteString("\n    " + StatusError.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n    " + hints("j/k", "select", "enter", "edit", "s", "start", "esc", "back") + "\n")
	return b.String()
}

// RunInteractive shows the preset menu and then the live view.
func RunInteractive(build Builder) error {
	_, err := tea.NewProgram(NewInteractiveApp(build), tea.WithAltScreen()).Run()
	return err
}

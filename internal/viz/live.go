package viz

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/popsim/internal/nbody"
	"github.com/san-kum/popsim/internal/universe"
)

const (
	defaultCols     = 64
	defaultRows     = 24
	sidePanelWidth  = 44
	historyCapacity = 300
	frameInterval   = time.Second / 30
)

var (
	statsStyle = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(0, 2).Width(sidePanelWidth)
	graphStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

// Controls sets the size of one interactive nudge.
type Controls struct {
	// Impulse is the velocity change, per unit of body mass, of one key press.
	Impulse float64
	// Transfer is the mass moved by one absorb or release key press.
	Transfer float64
}

func DefaultControls() Controls {
	return Controls{Impulse: 1, Transfer: 0.5}
}

// Model is the live bubbletea view of a running universe.
type Model struct {
	u        *universe.Universe
	dt       float64
	name     string
	controls Controls

	canvas  *Canvas
	heat    Heatmap
	running bool

	selected nbody.ID
	last     universe.TickStats
	mass     []float64
	bodies   []float64
	message  string
	err      error
	showHelp bool

	recorder  *Recorder
	recordTo  string
	recording bool
}

func NewModel(u *universe.Universe, dt float64, name string) Model {
	return Model{
		u:        u,
		dt:       dt,
		name:     name,
		controls: DefaultControls(),
		canvas:   NewCanvas(defaultCols, defaultRows),
		heat:     Heatmap{Layer: LayerMass, Theme: Themes[0]},
		running:  true,
		mass:     make([]float64, 0, historyCapacity),
		bodies:   make([]float64, 0, historyCapacity),
	}
}

func (m Model) WithControls(c Controls) Model {
	m.controls = c
	return m
}

func (m Model) WithLayer(l Layer) Model {
	m.heat.Layer = l
	return m
}

func (m Model) WithTheme(t Theme) Model {
	m.heat.Theme = t
	return m
}

// WithRecording makes the g key toggle GIF capture into path.
func (m Model) WithRecording(path string) Model {
	m.recordTo = path
	m.recorder = NewRecorder(4, m.heat.Layer)
	return m
}

func (m Model) Layer() Layer             { return m.heat.Layer }
func (m Model) Running() bool            { return m.running }
func (m Model) Selected() nbody.ID       { return m.selected }
func (m Model) Err() error               { return m.err }
func (m Model) Last() universe.TickStats { return m.last }

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		cols := max(msg.Width-sidePanelWidth-6, 16)
		rows := max(msg.Height-4, 8)
		m.canvas = NewCanvas(cols, rows)
	case TickMsg:
		if m.running {
			m.step()
		}
		return m, tick()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.stopRecording()
		return m, tea.Quit
	case " ":
		if m.err == nil {
			m.running = !m.running
		}
	case "n":
		if !m.running && m.err == nil {
			m.step()
		}
	case "l":
		m.heat.Layer = m.heat.Layer.Next()
	case "L":
		m.heat.Layer = m.heat.Layer.Prev()
	case "t":
		m.heat.Theme = NextTheme(m.heat.Theme)
	case "tab":
		m.cycleSelection(1)
	case "shift+tab":
		m.cycleSelection(-1)
	case "up", "k":
		m.push(r2.Vec{Y: 1})
	case "down", "j":
		m.push(r2.Vec{Y: -1})
	case "left", "h":
		m.push(r2.Vec{X: -1})
	case "right":
		m.push(r2.Vec{X: 1})
	case "+", "=":
		m.transfer(m.controls.Transfer)
	case "-", "_":
		m.transfer(-m.controls.Transfer)
	case "g":
		if m.recording {
			m.stopRecording()
		} else if m.recorder != nil {
			m.recorder.Reset()
			m.recorder.Layer = m.heat.Layer
			m.recording = true
			m.message = "recording"
		}
	case "?":
		m.showHelp = !m.showHelp
	}
	return m, nil
}

func (m *Model) step() {
	stats, err := m.u.Step(m.dt)
	if err != nil {
		m.err = err
		m.running = false
		return
	}
	m.last = stats
	m.mass = pushHistory(m.mass, stats.TotalMass)
	m.bodies = pushHistory(m.bodies, float64(stats.Bodies))

	if m.recording {
		cells, w, h := m.u.Cells()
		m.recorder.Capture(cells, w, h, m.u.Domain(), m.u.Masses())
	}
}

func pushHistory(h []float64, v float64) []float64 {
	h = append(h, v)
	if len(h) > historyCapacity {
		h = h[1:]
	}
	return h
}

func (m *Model) stopRecording() {
	if !m.recording {
		return
	}
	m.recording = false
	if err := m.recorder.Save(m.recordTo); err != nil {
		m.message = "recording failed: " + err.Error()
		return
	}
	m.message = fmt.Sprintf("saved %d frames to %s", m.recorder.Len(), m.recordTo)
}

// cycleSelection moves the selection through the live bodies in ID order.
func (m *Model) cycleSelection(dir int) {
	masses := m.u.Masses()
	if len(masses) == 0 {
		m.selected = 0
		return
	}
	cur := -1
	for i, b := range masses {
		if b.ID == m.selected {
			cur = i
			break
		}
	}
	next := 0
	if cur >= 0 {
		next = (cur + dir + len(masses)) % len(masses)
	} else if dir < 0 {
		next = len(masses) - 1
	}
	m.selected = masses[next].ID
}

func (m *Model) selectedBody() (nbody.Mass, bool) {
	if m.selected == 0 {
		return nbody.Mass{}, false
	}
	for _, b := range m.u.Masses() {
		if b.ID == m.selected {
			return b, true
		}
	}
	return nbody.Mass{}, false
}

func (m *Model) push(dir r2.Vec) {
	b, ok := m.selectedBody()
	if !ok {
		m.message = "no body selected (tab)"
		return
	}
	j := r2.Scale(m.controls.Impulse*b.Mass, dir)
	if err := m.u.ApplyImpulse(b.ID, j); err != nil {
		m.message = interactionMessage(err)
		return
	}
	m.message = fmt.Sprintf("pushed #%d", b.ID)
}

func (m *Model) transfer(amount float64) {
	b, ok := m.selectedBody()
	if !ok {
		m.message = "no body selected (tab)"
		return
	}
	if err := m.u.TransferMass(b.ID, amount); err != nil {
		m.message = interactionMessage(err)
		return
	}
	if amount > 0 {
		m.message = fmt.Sprintf("#%d absorbed %.2f", b.ID, amount)
	} else {
		m.message = fmt.Sprintf("#%d released %.2f", b.ID, -amount)
	}
}

func interactionMessage(err error) string {
	switch {
	case errors.Is(err, universe.ErrTransferBounds):
		return "transfer out of bounds"
	case errors.Is(err, nbody.ErrUnknownMass):
		return "body is gone"
	default:
		return err.Error()
	}
}

func (m *Model) draw() {
	m.canvas.Clear()
	d := m.u.Domain()
	for _, b := range m.u.Masses() {
		m.canvas.Disc(d, b.Position, b.Radius())
		if b.ID == m.selected {
			m.canvas.Arrow(d, b.Position, b.Velocity)
		}
	}
}

// View renders the TUI interface.
func (m Model) View() string {
	m.draw()
	cells, w, h := m.u.Cells()
	mapView := m.heat.Render(cells, w, h, m.canvas)

	var s strings.Builder
	s.WriteString(HeaderStyle.Render(GradientText(strings.ToUpper(m.name), m.heat.Theme.Primary, m.heat.Theme.Accent)) + "\n")
	s.WriteString(m.status() + "\n\n")

	row := func(label, value string) {
		s.WriteString(MetricLabel.Render(label) + MetricValue.Render(value) + "\n")
	}
	row("Tick", fmt.Sprintf("%d", m.last.Tick))
	row("Time", fmt.Sprintf("%.2f", m.last.Time))
	row("Bodies", fmt.Sprintf("%d", m.last.Bodies))
	row("Body mass", fmt.Sprintf("%.2f", m.last.BodyMass))
	row("Gas mass", fmt.Sprintf("%.2f", m.last.GasMass))
	row("Total", fmt.Sprintf("%.4f", m.last.TotalMass))
	row("Layer", m.heat.Layer.String())
	row("Tick time", m.last.Duration.Round(time.Microsecond).String())

	if b, ok := m.selectedBody(); ok {
		s.WriteString("\n")
		row("Selected", fmt.Sprintf("#%d", b.ID))
		row("Mass", fmt.Sprintf("%.2f", b.Mass))
		row("Speed", fmt.Sprintf("%.2f", r2.Norm(b.Velocity)))
	}

	if len(m.mass) > 1 {
		s.WriteString(graphStyle.Render(Plot(m.mass, "total mass", sidePanelWidth-12, 4)) + "\n")
		s.WriteString(MetricLabel.Render("Bodies") + Sparkline(m.bodies, sidePanelWidth-16) + "\n")
	}
	if m.message != "" {
		s.WriteString("\n" + KeyHint.Render(m.message) + "\n")
	}
	s.WriteString(helpStyle.Render("SP:Pause N:Step L:Layer T:Theme\nTAB:Select ←↑↓→:Push +/-:Mass\nG:Record ?:Help Q:Quit"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, mapView, statsStyle.Render(s.String()))
	if m.showHelp {
		return helpOverlay + "\n" + mainView
	}
	return mainView
}

func (m Model) status() string {
	switch {
	case m.err != nil:
		return StatusError.Render("HALTED: " + m.err.Error())
	case m.recording:
		return StatusError.Render(fmt.Sprintf("REC %d", m.recorder.Len()))
	case !m.running:
		return StatusPaused.Render("PAUSED")
	default:
		return StatusRunning.Render("RUNNING")
	}
}

const helpOverlay = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume             ║
║  N        - Single tick while paused ║
║  L / S-L  - Next / previous layer    ║
║  T        - Cycle themes             ║
║  Tab      - Select next body         ║
║  Arrows   - Push selected body       ║
║  + / -    - Absorb / release gas     ║
║  G        - Toggle GIF recording     ║
║  Q        - Quit                     ║
╚══════════════════════════════════════╝`

// RunLive runs the model full screen until the user quits.
func RunLive(m Model) error {
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok && fm.err != nil {
		return fm.err
	}
	return nil
}

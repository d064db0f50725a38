package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"roadloop/pkg/graph"
	"roadloop/pkg/loop"
	"roadloop/pkg/routing"
	"roadloop/pkg/sample"
)

const (
	frameRate  = time.Second / 30
	maxHistory = 8
	maxSteps   = 1 << 20
	panelWidth = 36
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("36"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("35"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("167"))

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)

	cellStyles = map[byte]lipgloss.Style{
		cellRoad:     lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
		cellVisited:  lipgloss.NewStyle().Foreground(lipgloss.Color("24")),
		cellFrontier: lipgloss.NewStyle().Foreground(lipgloss.Color("75")),
		cellPath:     lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true),
		cellStart:    lipgloss.NewStyle().Foreground(lipgloss.Color("35")).Bold(true),
		cellGoal:     lipgloss.NewStyle().Foreground(lipgloss.Color("167")).Bold(true),
	}
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frameRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// model is the bubbletea model driving a loop.Runner one Tick per frame.
type model struct {
	runner *loop.Runner
	g      *graph.Graph
	proj   projection
	steps  int
	paused bool

	width, height int
	base          canvas
	frame         loop.Frame
	history       []string
}

func newModel(r *loop.Runner, steps int) model {
	g := r.Graph()
	m := model{
		runner: r,
		g:      g,
		proj:   newProjection(g),
		steps:  max(steps, 1),
	}
	m.resize(80, 24)
	return m
}

func (m *model) resize(width, height int) {
	m.width, m.height = width, height
	w := max(width-panelWidth-6, 10)
	h := max(height-4, 5)
	m.base = roadLayer(m.g, m.proj, w, h)
}

func (m model) Init() tea.Cmd {
	return tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ", "p":
			m.paused = !m.paused
		case "+", "=":
			m.steps = min(m.steps*2, maxSteps)
		case "-", "_":
			m.steps = max(m.steps/2, 1)
		case "s":
			if m.paused {
				m.advance(1)
			}
		}
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	case tickMsg:
		if !m.paused {
			m.advance(m.steps)
		}
		return m, tick()
	}
	return m, nil
}

func (m *model) advance(steps int) {
	m.frame = m.runner.Tick(steps)
	if m.frame.Finished {
		m.history = append(m.history, cycleLine(m.frame))
		if len(m.history) > maxHistory {
			m.history = m.history[len(m.history)-maxHistory:]
		}
	}
}

func (m model) View() string {
	left := paneStyle.Render(renderCanvas(draw(m.base, m.g, m.proj, m.frame)))
	right := paneStyle.Width(panelWidth).Render(m.panel())
	footer := dimStyle.Render("space pause • s step • +/- steps per frame • q quit")
	return lipgloss.JoinVertical(lipgloss.Left, lipgloss.JoinHorizontal(lipgloss.Top, left, right), footer)
}

func (m model) panel() string {
	f := m.frame
	snap := f.Snapshot
	var b strings.Builder

	b.WriteString(titleStyle.Render("roadloop") + "\n")
	fmt.Fprintf(&b, "graph    %d nodes / %d edges\n", m.g.NumNodes(), m.g.NumEdges)
	fmt.Fprintf(&b, "speed    %d steps/frame", m.steps)
	if m.paused {
		b.WriteString(warnStyle.Render("  paused"))
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "cycle    %d\n", f.Cycle)
	if f.Cycle > 0 {
		fmt.Fprintf(&b, "pair     %d -> %d  (%.0fm)\n", f.Outcome.Start, f.Outcome.Goal, f.Outcome.Distance)
		fmt.Fprintf(&b, "status   %s\n", statusText(snap.Status))
		fmt.Fprintf(&b, "steps    %d\n", snap.Steps)
		fmt.Fprintf(&b, "visited  %d  frontier %d\n", len(snap.Visited), len(snap.Frontier))
		if snap.Status == routing.Found {
			fmt.Fprintf(&b, "path     %d nodes, %.0fm\n", len(snap.Path), snap.Cost)
		}
	}
	b.WriteString("\n")

	gs := f.Guardrail
	relax := dimStyle.Render("off")
	if gs.Relaxed {
		relax = warnStyle.Render(fmt.Sprintf("on (%d left)", gs.RelaxCyclesRemaining))
	}
	fmt.Fprintf(&b, "relaxed  %s\n", relax)
	fmt.Fprintf(&b, "streaks  fail %d  resample %d\n", gs.Failures, gs.Resamples)
	fmt.Fprintf(&b, "triggers %d\n\n", gs.Triggers)

	c := f.Counters
	fmt.Fprintf(&b, "found %s  failed %s  resampled %d\n",
		okStyle.Render(fmt.Sprint(c.Found)), errStyle.Render(fmt.Sprint(c.Failed)), c.Resampled)
	if c.Discarded > 0 {
		fmt.Fprintf(&b, "discarded outside region %d\n", c.Discarded)
	}
	if len(m.history) > 0 {
		b.WriteString("\n" + dimStyle.Render("recent") + "\n")
		for _, line := range m.history {
			b.WriteString(line + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func statusText(s routing.Status) string {
	switch s {
	case routing.Found:
		return okStyle.Render(s.String())
	case routing.Searching:
		return s.String()
	default:
		return errStyle.Render(s.String())
	}
}

// cycleLine summarises a finished cycle for the history list.
func cycleLine(f loop.Frame) string {
	ev := sample.EventFailure
	if len(f.Events) > 0 {
		ev = f.Events[len(f.Events)-1]
	}
	mark := errStyle.Render("✗")
	if ev == sample.EventSuccess {
		mark = okStyle.Render("✓")
	}
	line := fmt.Sprintf("%s #%d %s %d steps", mark, f.Cycle, f.Snapshot.Status, f.Snapshot.Steps)
	if f.Snapshot.Status == routing.Found {
		line += fmt.Sprintf(" %.0fm", f.Snapshot.Cost)
	}
	if f.Relaxed {
		line += warnStyle.Render(" relaxed")
	}
	return line
}

// renderCanvas styles runs of equal markers.
func renderCanvas(c canvas) string {
	var b strings.Builder
	for y, row := range c.cells {
		for x := 0; x < len(row); {
			end := x + 1
			for end < len(row) && row[end] == row[x] {
				end++
			}
			run := string(row[x:end])
			if st, ok := cellStyles[row[x]]; ok {
				run = st.Render(run)
			}
			b.WriteString(run)
			x = end
		}
		if y < len(c.cells)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

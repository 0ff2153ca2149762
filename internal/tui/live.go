// Package tui renders a live terminal view of a calibration run: one row per
// material case with its iteration count, cost trace and terminal status.
package tui

import (
	"fmt"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/xraylab/speccal/internal/fit"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

const historyLen = 60

type caseRow struct {
	label     string
	iteration int
	cost      float64
	history   []float64
	done      bool
	status    fit.Status
}

type progressMsg fit.Progress

type doneMsg struct {
	res *fit.RunResult
	err error
}

type model struct {
	rows     []caseRow
	finished bool
	err      error
	width    int
}

func newModel(labels []string) model {
	rows := make([]caseRow, len(labels))
	for i, l := range labels {
		rows[i] = caseRow{label: l}
	}
	return model{rows: rows, width: 80}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case progressMsg:
		if msg.Case < 0 || msg.Case >= len(m.rows) {
			return m, nil
		}
		r := &m.rows[msg.Case]
		r.iteration = msg.Iteration
		r.cost = msg.Cost
		if msg.Done {
			r.done = true
			r.status = msg.Status
		} else {
			r.history = append(r.history, msg.Cost)
			if len(r.history) > historyLen {
				r.history = r.history[1:]
			}
		}
		return m, nil
	case doneMsg:
		m.finished = true
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(dimmer.Render("  ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("     " + cyan.Render("s p e c c a l") + "\n")
	b.WriteString(dimmer.Render("  ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n\n")

	for i, r := range m.rows {
		marker := yellow.Render("●")
		detail := dim.Render(fmt.Sprintf("iter %-5d cost %.4g", r.iteration, r.cost))
		if r.done {
			switch r.status {
			case fit.StatusConverged:
				marker = green.Render("●")
			case fit.StatusDiverged:
				marker = red.Render("✗")
			default:
				marker = yellow.Render("○")
			}
			detail = statusDetail(r)
		} else if r.iteration == 0 {
			marker = dimmer.Render("○")
			detail = dimmer.Render("waiting")
		}

		b.WriteString(fmt.Sprintf("   %s %s %s %s\n",
			marker,
			white.Render(fmt.Sprintf("case %-3d", i)),
			dim.Render(fmt.Sprintf("%-24s", r.label)),
			detail))
		if !r.done && len(r.history) > 1 {
			b.WriteString("       " + cyan.Render(sparkline(r.history, 32)) + "\n")
		}
	}

	b.WriteString("\n" + dim.Render("   q abort") + "\n")
	return b.String()
}

func statusDetail(r caseRow) string {
	s := fmt.Sprintf("%-14s iter %-5d cost %.4g", r.status, r.iteration, r.cost)
	switch r.status {
	case fit.StatusConverged:
		return green.Render(s)
	case fit.StatusDiverged:
		return red.Render(s)
	default:
		return yellow.Render(s)
	}
}

func sparkline(data []float64, width int) string {
	if len(data) == 0 {
		return ""
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	rang := maxVal - minVal
	if rang == 0 {
		rang = 1
	}
	step := len(data) / width
	if step < 1 {
		step = 1
	}
	var sb strings.Builder
	for i := 0; i < width && i*step < len(data); i++ {
		v := data[i*step]
		idx := int((v - minVal) / rang * 7)
		if idx > 7 {
			idx = 7
		}
		if idx < 0 {
			idx = 0
		}
		sb.WriteRune(chars[idx])
	}
	return sb.String()
}

// Run drives a calibration under a live view. The runner receives a progress
// callback safe to call from worker goroutines and must block until the run
// completes. Quitting the view does not stop the run; the runner's result is
// still awaited.
func Run(labels []string, runner func(onProgress func(fit.Progress)) (*fit.RunResult, error)) (*fit.RunResult, error) {
	p := tea.NewProgram(newModel(labels))

	var (
		res *fit.RunResult
		err error
		wg  sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		res, err = runner(func(pr fit.Progress) { p.Send(progressMsg(pr)) })
		p.Send(doneMsg{res: res, err: err})
	}()

	if _, perr := p.Run(); perr != nil {
		wg.Wait()
		if err != nil {
			return res, err
		}
		return res, perr
	}
	wg.Wait()
	return res, err
}

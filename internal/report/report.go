// Package report renders calibration results for the terminal: a styled
// per-case summary table and ascii plots of the estimated spectra.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/xraylab/speccal/internal/fit"
	"github.com/xraylab/speccal/internal/spectral"
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

func statusStyle(s fit.Status) lipgloss.Style {
	switch s {
	case fit.StatusConverged:
		return green
	case fit.StatusDiverged:
		return red
	default:
		return yellow
	}
}

// Summary renders the case table with the best case marked.
func Summary(res *fit.RunResult) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(dimmer.Render("  ╺━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("   " + cyan.Render("calibration result") + "\n")
	b.WriteString(dimmer.Render("  ╺━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n\n")

	cases := make([]fit.Result, len(res.Cases))
	copy(cases, res.Cases)
	sort.SliceStable(cases, func(i, j int) bool { return cases[i].Cost < cases[j].Cost })

	b.WriteString("   " + dim.Render(fmt.Sprintf("%-4s %-20s %-20s %-12s %-8s %s",
		"case", "filters", "scintillators", "status", "iters", "cost")) + "\n")

	for _, r := range cases {
		marker := "  "
		row := fmt.Sprintf("%-4d %-20s %-20s %-12s %-8d %.6g",
			r.Case.ID, formulas(r.Case.FilterMaterials), formulas(r.Case.ScintillatorMaterials),
			r.Status, r.Iterations, r.Cost)
		if r.Case.ID == res.Best.Case.ID {
			marker = cyan.Render("▸ ")
			b.WriteString(" " + marker + white.Render(row) + "\n")
		} else {
			b.WriteString(" " + marker + statusStyle(r.Status).Render(row) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString("   " + dim.Render("best parameters") + "\n")
	if res.Best.Model != nil {
		for _, p := range res.Best.Model.Params() {
			bd := p.Bound()
			b.WriteString(fmt.Sprintf("     %s %s  %s\n",
				white.Render(fmt.Sprintf("%-18s", p.Name())),
				cyan.Render(fmt.Sprintf("%10.4f", p.Value())),
				dimmer.Render(fmt.Sprintf("[%g, %g]", bd.Lower, bd.Upper))))
		}
	}
	if res.Best.Err != nil {
		b.WriteString("   " + red.Render("error: "+res.Best.Err.Error()) + "\n")
	}

	return b.String()
}

// Spectrum plots one effective spectrum against energy.
func Spectrum(energies, spectrum []float64, caption string) string {
	graph := asciigraph.Plot(spectrum,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	)
	footer := dim.Render(fmt.Sprintf("  energy %g to %g keV, %d bins",
		energies[0], energies[len(energies)-1], len(energies)))
	return graph + "\n" + footer + "\n"
}

func formulas(materials []spectral.Material) string {
	names := make([]string, len(materials))
	for i, m := range materials {
		names[i] = m.Formula
	}
	return strings.Join(names, ",")
}

package evaluator

import (
	"fmt"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// SaveSummaryPlot renders every tracker's observed value against lap
// number as one line on a shared plot and saves it to path, the same
// plot.New/plotter.NewLine/p.Save(14*vg.Inch, 6*vg.Inch, file) shape
// used to summarize a session's per-ring grid history on shutdown.
func (e *Evaluator) SaveSummaryPlot(path string) error {
	e.mu.Lock()
	names := make([]string, 0, len(e.history))
	for name := range e.history {
		names = append(names, name)
	}
	sort.Strings(names)

	series := make(map[string]plotter.XYs, len(names))
	for _, name := range names {
		points := e.history[name]
		xys := make(plotter.XYs, len(points))
		for i, p := range points {
			xys[i].X = float64(p.lap)
			xys[i].Y = p.value
		}
		series[name] = xys
	}
	e.mu.Unlock()

	p := plot.New()
	p.Title.Text = "Tracker results by lap"
	p.X.Label.Text = "lap"
	p.Y.Label.Text = "value"

	for _, name := range names {
		xys := series[name]
		if len(xys) == 0 {
			continue
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("evaluator: building line for %q: %w", name, err)
		}
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(name, line)
	}

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("evaluator: saving summary plot: %w", err)
	}
	return nil
}

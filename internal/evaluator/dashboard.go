package evaluator

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// AttachDashboard mounts a live bar-chart view of the current tracker
// results at "/evaluator/dashboard", re-rendered from Results() on every request,
// the same charts.NewBar/components.Page/page.Render(&buf) shape used
// to serve the LiDAR traffic chart.
func (e *Evaluator) AttachDashboard(mux *http.ServeMux) {
	mux.HandleFunc("/evaluator/dashboard", e.handleDashboard)
}

func (e *Evaluator) handleDashboard(w http.ResponseWriter, r *http.Request) {
	results := e.Results()

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	y := make([]opts.BarData, 0, len(names))
	for _, name := range names {
		y = append(y, opts.BarData{Value: results[name]})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "720px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Tracker Results", Subtitle: time.Now().Format(time.RFC3339)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(names).
		AddSeries("trackers", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsPrefix)
	page.AddCharts(bar)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		http.Error(w, fmt.Sprintf("render error: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

package render

import (
	"html/template"
	"math"
	"strconv"

	"cropmap_service/internal/domain/model"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Chart is a go-echarts snippet ready to drop into a page. The page must load
// the echarts library itself.
type Chart struct {
	Element template.HTML
	Script  template.HTML
}

// ProductionChart draws total production per crop year. Years whose total is
// not a finite number are left out.
func ProductionChart(crop string, totals []model.YearTotal) *Chart {
	if len(totals) == 0 {
		return nil
	}

	years := make([]string, 0, len(totals))
	values := make([]opts.BarData, 0, len(totals))
	for _, t := range totals {
		if math.IsNaN(t.Production) || math.IsInf(t.Production, 0) {
			continue
		}
		years = append(years, strconv.Itoa(t.Year))
		values = append(values, opts.BarData{Value: t.Production})
	}
	if len(values) == 0 {
		return nil
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "320px"}),
		charts.WithTitleOpts(opts.Title{Title: "Production per year", Subtitle: crop}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Year"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Production"}),
	)
	bar.SetXAxis(years).AddSeries(crop, values)

	snippet := bar.RenderSnippet()
	return &Chart{
		Element: template.HTML(snippet.Element),
		Script:  template.HTML(snippet.Script),
	}
}

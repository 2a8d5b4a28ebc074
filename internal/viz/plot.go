package viz

import (
	"github.com/guptarohit/asciigraph"
)

// Plot draws one series as an ASCII line chart.
func Plot(values []float64, caption string, width, height int) string {
	if len(values) == 0 {
		return Subtle.Render("(no data)")
	}
	return asciigraph.Plot(values,
		asciigraph.Width(width),
		asciigraph.Height(height),
		asciigraph.Caption(caption))
}

// PlotMass overlays body mass and gas mass, which together should stay flat.
func PlotMass(body, gas []float64, width, height int) string {
	if len(body) == 0 || len(gas) == 0 {
		return Subtle.Render("(no data)")
	}
	return asciigraph.PlotMany([][]float64{body, gas},
		asciigraph.Width(width),
		asciigraph.Height(height),
		asciigraph.SeriesColors(asciigraph.Goldenrod, asciigraph.DodgerBlue),
		asciigraph.SeriesLegends("bodies", "gas"),
		asciigraph.Caption("mass"))
}

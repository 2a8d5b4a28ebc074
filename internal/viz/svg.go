package viz

import (
	"fmt"
	"io"
	"strings"

	"github.com/san-kum/popsim/internal/gas"
	"github.com/san-kum/popsim/internal/geom"
	"github.com/san-kum/popsim/internal/nbody"
)

// SVG draws one gas layer as a grid of rects with bodies as circles on top.
// Scale is the size of one gas cell in SVG units.
type SVG struct {
	Layer Layer
	Theme Theme
	Scale float64
}

func (s SVG) Render(cells []gas.Cell, w, h int, d geom.Domain, bodies []nbody.Mass) string {
	scale := s.Scale
	if scale <= 0 {
		scale = 8
	}
	width := float64(w) * scale
	height := float64(h) * scale

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
<g shape-rendering="crispEdges">
`, width, height, width, height, s.Theme.Cold))

	field := Field(cells, s.Layer)
	lo, hi := bounds(field)
	for j := 0; j < h; j++ {
		y := float64(h-1-j) * scale
		for i := 0; i < w; i++ {
			t := Normalize(field[j*w+i], lo, hi)
			if t == 0 {
				continue
			}
			sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>
`, float64(i)*scale, y, scale, scale, Ramp(s.Theme.Cold, s.Theme.Hot, t)))
		}
	}
	sb.WriteString("</g>\n")

	perUnit := width / d.Size.X
	sb.WriteString(fmt.Sprintf("<g fill=\"%s\">\n", s.Theme.Body))
	for k := range bodies {
		b := &bodies[k]
		cx := (b.Position.X - d.Min.X) * perUnit
		cy := height - (b.Position.Y-d.Min.Y)*perUnit
		r := max(b.Radius()*perUnit, 0.5)
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f"/>
`, cx, cy, r))
	}
	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

func (s SVG) Write(out io.Writer, cells []gas.Cell, w, h int, d geom.Domain, bodies []nbody.Mass) error {
	_, err := io.WriteString(out, s.Render(cells, w, h, d, bodies))
	return err
}

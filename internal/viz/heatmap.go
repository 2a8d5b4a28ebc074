package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/popsim/internal/gas"
)

var shades = []rune{' ', '░', '▒', '▓', '█'}

// Resample averages a row-major w x h field onto cols x rows blocks.
// Output row 0 is the top of the world (highest j).
func Resample(field []float64, w, h, cols, rows int) [][]float64 {
	out := make([][]float64, rows)
	for r := range out {
		out[r] = make([]float64, cols)
		rr := rows - 1 - r
		j0 := rr * h / rows
		j1 := max(j0+1, (rr+1)*h/rows)
		for c := range out[r] {
			i0 := c * w / cols
			i1 := max(i0+1, (c+1)*w/cols)
			sum, n := 0.0, 0
			for j := j0; j < j1 && j < h; j++ {
				for i := i0; i < i1 && i < w; i++ {
					sum += field[j*w+i]
					n++
				}
			}
			if n > 0 {
				out[r][c] = sum / float64(n)
			}
		}
	}
	return out
}

func bounds(values []float64) (lo, hi float64) {
	if len(values) == 0 {
		return 0, 0
	}
	return floats.Min(values), floats.Max(values)
}

// Normalize maps v into [0, 1] over [lo, hi]. A flat range maps to 0.
func Normalize(v, lo, hi float64) float64 {
	if hi <= lo {
		return 0
	}
	return clamp01((v - lo) / (hi - lo))
}

// Heatmap renders one gas layer with bodies from a canvas laid on top.
type Heatmap struct {
	Layer Layer
	Theme Theme
}

// Render draws cells as colored blocks sized to the canvas. Character cells
// with any canvas dot show the braille glyph in the theme's body color.
func (h Heatmap) Render(cells []gas.Cell, w, ht int, canvas *Canvas) string {
	field := Field(cells, h.Layer)
	lo, hi := bounds(field)
	blocks := Resample(field, w, ht, canvas.Width, canvas.Height)

	var b strings.Builder
	for r, row := range blocks {
		for c, v := range row {
			bg := Ramp(h.Theme.Cold, h.Theme.Hot, Normalize(v, lo, hi))
			style := lipgloss.NewStyle().Background(bg)
			glyph := " "
			if canvas.Occupied(r, c) {
				glyph = string(canvas.Grid[r][c])
				style = style.Foreground(h.Theme.Body)
			}
			b.WriteString(style.Render(glyph))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// RenderPlain draws a field with shade characters only, for logs and
// terminals without color.
func RenderPlain(field []float64, w, h, cols, rows int) string {
	lo, hi := bounds(field)
	var b strings.Builder
	for _, row := range Resample(field, w, h, cols, rows) {
		for _, v := range row {
			idx := int(Normalize(v, lo, hi) * float64(len(shades)-1))
			b.WriteRune(shades[idx])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

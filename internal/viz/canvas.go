package viz

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/popsim/internal/geom"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

// Canvas is a braille dot canvas laid over the heat map. Each character cell
// holds 2x4 dots, so the dot resolution is (Width*2) x (Height*4).
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
	return c
}

// Set turns on the dot at (x, y). Dots wrap around the edges, matching the
// toroidal world.
func (c *Canvas) Set(x, y int) {
	if c.Width == 0 || c.Height == 0 {
		return
	}
	x = wrapInt(x, c.Width*2)
	y = wrapInt(y, c.Height*4)
	c.Grid[y/4][x/2] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// Occupied reports whether any dot in character cell (row, col) is set.
func (c *Canvas) Occupied(row, col int) bool {
	return c.Grid[row][col] != brailleBlank
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// project maps a world position to dot coordinates. World y grows upwards,
// dot y grows downwards.
func (c *Canvas) project(d geom.Domain, p r2.Vec) (int, int) {
	u := (p.X - d.Min.X) / d.Size.X
	v := (p.Y - d.Min.Y) / d.Size.Y
	x := int(math.Floor(u * float64(c.Width*2)))
	y := c.Height*4 - 1 - int(math.Floor(v*float64(c.Height*4)))
	return x, y
}

// Disc draws a filled body of world radius r at p, at least one dot wide.
func (c *Canvas) Disc(d geom.Domain, p r2.Vec, r float64) {
	cx, cy := c.project(d, p)
	rx := int(r / d.Size.X * float64(c.Width*2))
	ry := int(r / d.Size.Y * float64(c.Height*4))
	if rx == 0 && ry == 0 {
		c.Set(cx, cy)
		return
	}
	for dy := -ry; dy <= ry; dy++ {
		for dx := -rx; dx <= rx; dx++ {
			fx, fy := float64(dx)/float64(max(rx, 1)), float64(dy)/float64(max(ry, 1))
			if fx*fx+fy*fy <= 1 {
				c.Set(cx+dx, cy+dy)
			}
		}
	}
}

// Arrow draws a line from p along v, with v in world units.
func (c *Canvas) Arrow(d geom.Domain, p, v r2.Vec) {
	x0, y0 := c.project(d, p)
	x1 := x0 + int(v.X/d.Size.X*float64(c.Width*2))
	y1 := y0 - int(v.Y/d.Size.Y*float64(c.Height*4))
	c.DrawLine(x0, y0, x1, y1)
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func wrapInt(x, n int) int {
	x %= n
	if x < 0 {
		x += n
	}
	return x
}

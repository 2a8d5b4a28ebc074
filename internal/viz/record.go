package viz

import (
	"errors"
	"image"
	"image/color"
	"image/gif"
	"io"
	"math"
	"os"

	"github.com/san-kum/popsim/internal/gas"
	"github.com/san-kum/popsim/internal/geom"
	"github.com/san-kum/popsim/internal/nbody"
)

const (
	grayLevels = 16
	bodyIndex  = grayLevels
)

var ErrNoFrames = errors.New("viz: no frames recorded")

var recordPalette = func() color.Palette {
	p := make(color.Palette, 0, grayLevels+1)
	for i := 0; i < grayLevels; i++ {
		v := uint8(i * 255 / (grayLevels - 1))
		p = append(p, color.RGBA{R: v / 2, G: v / 3, B: v, A: 255})
	}
	return append(p, color.RGBA{R: 255, G: 255, B: 160, A: 255})
}()

// Recorder collects heat map frames for an animated GIF. Each gas cell
// becomes a Scale x Scale block.
type Recorder struct {
	Scale  int
	Delay  int
	Layer  Layer
	frames []*image.Paletted
}

func NewRecorder(scale int, layer Layer) *Recorder {
	if scale < 1 {
		scale = 1
	}
	return &Recorder{Scale: scale, Delay: 4, Layer: layer}
}

func (r *Recorder) Len() int { return len(r.frames) }

func (r *Recorder) Reset() { r.frames = nil }

// Capture renders one frame. Row j = 0 of the grid is the bottom of the
// image.
func (r *Recorder) Capture(cells []gas.Cell, w, h int, d geom.Domain, bodies []nbody.Mass) {
	s := r.Scale
	img := image.NewPaletted(image.Rect(0, 0, w*s, h*s), recordPalette)

	field := Field(cells, r.Layer)
	lo, hi := bounds(field)
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			idx := uint8(Normalize(field[j*w+i], lo, hi) * (grayLevels - 1))
			y0 := (h - 1 - j) * s
			for py := y0; py < y0+s; py++ {
				for px := i * s; px < (i+1)*s; px++ {
					img.SetColorIndex(px, py, idx)
				}
			}
		}
	}

	pxPerUnit := float64(w*s) / d.Size.X
	for k := range bodies {
		b := &bodies[k]
		cx := int((b.Position.X - d.Min.X) * pxPerUnit)
		cy := h*s - 1 - int((b.Position.Y-d.Min.Y)*pxPerUnit)
		rad := max(1, int(math.Round(b.Radius()*pxPerUnit)))
		for dy := -rad; dy <= rad; dy++ {
			for dx := -rad; dx <= rad; dx++ {
				if dx*dx+dy*dy > rad*rad {
					continue
				}
				img.SetColorIndex(wrapInt(cx+dx, w*s), wrapInt(cy+dy, h*s), bodyIndex)
			}
		}
	}

	r.frames = append(r.frames, img)
}

func (r *Recorder) Encode(out io.Writer) error {
	if len(r.frames) == 0 {
		return ErrNoFrames
	}
	anim := gif.GIF{LoopCount: 0}
	for _, frame := range r.frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, r.Delay)
	}
	return gif.EncodeAll(out, &anim)
}

func (r *Recorder) Save(path string) error {
	if len(r.frames) == 0 {
		return ErrNoFrames
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

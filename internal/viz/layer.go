package viz

import (
	"fmt"
	"strings"

	"github.com/san-kum/popsim/internal/gas"
)

// Layer selects which gas quantity the heat map shows.
type Layer int

const (
	LayerMass Layer = iota
	LayerDensity
	LayerTemperature
	LayerPressure
	LayerSpeed
	numLayers
)

var layerNames = [numLayers]string{"mass", "density", "temperature", "pressure", "speed"}

func (l Layer) String() string {
	if l < 0 || l >= numLayers {
		return fmt.Sprintf("layer(%d)", int(l))
	}
	return layerNames[l]
}

func (l Layer) Next() Layer { return (l + 1) % numLayers }
func (l Layer) Prev() Layer { return (l + numLayers - 1) % numLayers }

// Layers lists every layer in cycling order.
func Layers() []Layer {
	out := make([]Layer, numLayers)
	for i := range out {
		out[i] = Layer(i)
	}
	return out
}

func ParseLayer(name string) (Layer, error) {
	for i, n := range layerNames {
		if strings.EqualFold(n, name) {
			return Layer(i), nil
		}
	}
	return 0, fmt.Errorf("viz: unknown layer %q (want one of %s)", name, strings.Join(layerNames[:], ", "))
}

// Value extracts the layer's quantity from one cell.
func (l Layer) Value(c gas.Cell) float64 {
	switch l {
	case LayerDensity:
		return c.Density
	case LayerTemperature:
		return c.Temperature
	case LayerPressure:
		return c.Pressure
	case LayerSpeed:
		return c.Speed()
	default:
		return c.Mass
	}
}

// Field maps a row-major cell slice to the layer's values.
func Field(cells []gas.Cell, l Layer) []float64 {
	out := make([]float64, len(cells))
	for i, c := range cells {
		out[i] = l.Value(c)
	}
	return out
}

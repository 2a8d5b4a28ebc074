package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/popsim/internal/gas"
	"github.com/san-kum/popsim/internal/nbody"
	"github.com/san-kum/popsim/internal/universe"
)

// Snapshot is the full state of a universe at one tick.
type Snapshot struct {
	Tick   int          `json:"tick"`
	Time   float64      `json:"time"`
	Min    [2]float64   `json:"min"`
	Size   [2]float64   `json:"size"`
	Bodies []BodyExport `json:"bodies"`
	Width  int          `json:"width"`
	Height int          `json:"height"`
	Cells  []CellExport `json:"cells"`
}

type BodyExport struct {
	ID       nbody.ID   `json:"id"`
	Position [2]float64 `json:"position"`
	Velocity [2]float64 `json:"velocity"`
	Mass     float64    `json:"mass"`
	Density  float64    `json:"density"`
	Radius   float64    `json:"radius"`
}

type CellExport struct {
	Mass        float64    `json:"mass"`
	Pressure    float64    `json:"pressure"`
	Temperature float64    `json:"temperature"`
	Velocity    [2]float64 `json:"velocity"`
}

func NewSnapshot(u *universe.Universe) Snapshot {
	d := u.Domain()
	masses := u.Masses()
	cells, w, h := u.Cells()

	snap := Snapshot{
		Tick:   u.Tick(),
		Time:   u.Time(),
		Min:    [2]float64{d.Min.X, d.Min.Y},
		Size:   [2]float64{d.Size.X, d.Size.Y},
		Bodies: make([]BodyExport, len(masses)),
		Width:  w,
		Height: h,
		Cells:  make([]CellExport, len(cells)),
	}
	for i, m := range masses {
		snap.Bodies[i] = BodyExport{
			ID:       m.ID,
			Position: [2]float64{m.Position.X, m.Position.Y},
			Velocity: [2]float64{m.Velocity.X, m.Velocity.Y},
			Mass:     m.Mass,
			Density:  m.Density,
			Radius:   m.Radius(),
		}
	}
	for i, c := range cells {
		snap.Cells[i] = exportCell(c)
	}
	return snap
}

func exportCell(c gas.Cell) CellExport {
	return CellExport{
		Mass:        c.Mass,
		Pressure:    c.Pressure,
		Temperature: c.Temperature,
		Velocity:    [2]float64{c.Velocity.X, c.Velocity.Y},
	}
}

func WriteSnapshot(w io.Writer, snap Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

func ExportJSON(path string, snap Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteSnapshot(f, snap)
}

func ReadSnapshot(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	err := json.NewDecoder(r).Decode(&snap)
	return snap, err
}

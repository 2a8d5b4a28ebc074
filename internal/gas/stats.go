package gas

import (
	"log/slog"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats aggregates the grid for HUD scaling and metrics.
type Stats struct {
	MinMass         float64 `json:"min_mass"`
	MaxMass         float64 `json:"max_mass"`
	TotalMass       float64 `json:"total_mass"`
	MassStdDev      float64 `json:"mass_std_dev"`
	MeanTemperature float64 `json:"mean_temperature"`
	MeanPressure    float64 `json:"mean_pressure"`
	MaxSpeed        float64 `json:"max_speed"`
	Occupied        int     `json:"occupied"`
}

func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("min_mass", s.MinMass),
		slog.Float64("max_mass", s.MaxMass),
		slog.Float64("total_mass", s.TotalMass),
		slog.Float64("mean_temperature", s.MeanTemperature),
		slog.Int("occupied", s.Occupied),
	)
}

// Stats computes aggregate statistics over the published cells.
func (g *Grid) Stats() Stats {
	cells := g.current()
	n := len(cells)
	mass := make([]float64, n)
	temp := make([]float64, n)
	pres := make([]float64, n)
	speed := make([]float64, n)
	occupied := 0
	for k, c := range cells {
		mass[k] = c.Mass
		temp[k] = c.Temperature
		pres[k] = c.Pressure
		speed[k] = c.Speed()
		if c.Mass > 0 {
			occupied++
		}
	}

	return Stats{
		MinMass:         floats.Min(mass),
		MaxMass:         floats.Max(mass),
		TotalMass:       floats.Sum(mass),
		MassStdDev:      stat.PopStdDev(mass, nil),
		MeanTemperature: stat.Mean(temp, nil),
		MeanPressure:    stat.Mean(pres, nil),
		MaxSpeed:        floats.Max(speed),
		Occupied:        occupied,
	}
}

package universe

import (
	"log/slog"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/popsim/internal/gas"
)

// TickStats summarises one completed tick.
type TickStats struct {
	Tick            int
	Time            float64
	Bodies          int
	Merges          int
	CollisionPasses int
	Compacted       int
	Collapsed       int
	BodyMass        float64
	GasMass         float64
	TotalMass       float64
	Momentum        r2.Vec
	Gas             gas.Stats
	Duration        time.Duration
}

func (s TickStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("tick", s.Tick),
		slog.Float64("time", s.Time),
		slog.Int("bodies", s.Bodies),
		slog.Int("merges", s.Merges),
		slog.Int("passes", s.CollisionPasses),
		slog.Int("collapsed", s.Collapsed),
		slog.Float64("total_mass", s.TotalMass),
		slog.Any("gas", s.Gas),
		slog.Duration("took", s.Duration),
	)
}

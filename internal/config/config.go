package config

import (
	"errors"
	"fmt"
	"os"

	"gonum.org/v1/gonum/spatial/r2"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/popsim/internal/gas"
	"github.com/san-kum/popsim/internal/geom"
	"github.com/san-kum/popsim/internal/nbody"
	"github.com/san-kum/popsim/internal/universe"
)

const (
	DefaultDt       = 0.05
	DefaultTicks    = 500
	DefaultWidth    = 64
	DefaultHeight   = 64
	DefaultCellSize = 4.0
	DefaultStars    = 40
)

// ErrInvalidConfig indicates a configuration that cannot start a simulation.
var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Dt          float64           `yaml:"dt"`
	Ticks       int               `yaml:"ticks"`
	Seed        int64             `yaml:"seed"`
	Workers     int               `yaml:"workers"`
	Grid        GridConfig        `yaml:"grid"`
	Physics     PhysicsConfig     `yaml:"physics"`
	Bodies      BodyConfig        `yaml:"bodies"`
	Gas         GasConfig         `yaml:"gas"`
	Interaction InteractionConfig `yaml:"interaction"`
	Collapse    CollapseConfig    `yaml:"collapse"`
	Scenario    ScenarioConfig    `yaml:"scenario"`
}

// GridConfig sizes the gas grid. The universe is the grid, centered on the
// origin.
type GridConfig struct {
	Width    int     `yaml:"width"`
	Height   int     `yaml:"height"`
	CellSize float64 `yaml:"cell_size"`
}

type PhysicsConfig struct {
	G             float64 `yaml:"g"`
	GasConstant   float64 `yaml:"gas_constant"`
	MinDistanceSq float64 `yaml:"min_distance_sq"`
	GravityRadius float64 `yaml:"gravity_radius"`
}

type BodyConfig struct {
	CollisionMultiplier float64 `yaml:"collision_multiplier"`
	MinIndexMass        float64 `yaml:"min_index_mass"`
	GasCoupling         bool    `yaml:"gas_coupling"`
	MaxCollisionPasses  int     `yaml:"max_collision_passes"`
	NodeCapacity        int     `yaml:"node_capacity"`
}

type GasConfig struct {
	ParticleQueryScale float64 `yaml:"particle_query_scale"`
	BlendMassThreshold float64 `yaml:"blend_mass_threshold"`
	SelfGravity        bool    `yaml:"self_gravity"`
	PressureGradient   bool    `yaml:"pressure_gradient"`
	ParticleGravity    bool    `yaml:"particle_gravity"`
	ConserveMass       bool    `yaml:"conserve_mass"`
	ConservationRadius int     `yaml:"conservation_radius"`
}

type InteractionConfig struct {
	MaxTransfer float64 `yaml:"max_transfer"`
	MinBodyMass float64 `yaml:"min_body_mass"`
}

type CollapseConfig struct {
	Threshold      float64 `yaml:"threshold"`
	Density        float64 `yaml:"density"`
	VelocityFactor float64 `yaml:"velocity_factor"`
}

// ScenarioConfig describes the initial world handed to scenario.Generate.
type ScenarioConfig struct {
	Kind        string  `yaml:"kind"`
	Stars       int     `yaml:"stars"`
	StarMass    float64 `yaml:"star_mass"`
	StarDensity float64 `yaml:"star_density"`
	StarSpeed   float64 `yaml:"star_speed"`
	CentralMass float64 `yaml:"central_mass"`
	GasMass     float64 `yaml:"gas_mass"`
	GasSpeed    float64 `yaml:"gas_speed"`
	MinTemp     float64 `yaml:"min_temp"`
	MaxTemp     float64 `yaml:"max_temp"`
}

func DefaultConfig() *Config {
	bp := nbody.DefaultParams()
	gp := gas.DefaultParams()
	return &Config{
		Dt:    DefaultDt,
		Ticks: DefaultTicks,
		Seed:  1,
		Grid: GridConfig{
			Width:    DefaultWidth,
			Height:   DefaultHeight,
			CellSize: DefaultCellSize,
		},
		Physics: PhysicsConfig{
			G:             bp.G,
			GasConstant:   gp.GasConstant,
			MinDistanceSq: bp.MinDistanceSq,
			GravityRadius: bp.GravityRadius,
		},
		Bodies: BodyConfig{
			CollisionMultiplier: bp.CollisionMultiplier,
			MinIndexMass:        bp.MinIndexMass,
			GasCoupling:         bp.GasCoupling,
			MaxCollisionPasses:  bp.MaxCollisionPasses,
			NodeCapacity:        bp.NodeCapacity,
		},
		Gas: GasConfig{
			ParticleQueryScale: gp.ParticleQueryScale,
			BlendMassThreshold: gp.BlendMassThreshold,
			SelfGravity:        gp.SelfGravity,
			PressureGradient:   gp.PressureGradient,
			ParticleGravity:    gp.ParticleGravity,
			ConserveMass:       gp.ConserveMass,
			ConservationRadius: gp.ConservationRadius,
		},
		Interaction: InteractionConfig{
			MaxTransfer: 5,
			MinBodyMass: 0.1,
		},
		Collapse: CollapseConfig{
			Density:        1,
			VelocityFactor: 0.02,
		},
		Scenario: ScenarioConfig{
			Kind:        "early",
			Stars:       DefaultStars,
			StarMass:    4,
			StarDensity: 0.3,
			StarSpeed:   1,
			GasMass:     1,
			GasSpeed:    0.5,
			MinTemp:     10,
			MaxTemp:     30,
		},
	}
}

func Load(path string) (*Config, error) {
	return LoadOnto(path, DefaultConfig())
}

// LoadOnto reads a YAML file over base. Keys missing from the file keep
// their base values.
func LoadOnto(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, base); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return base, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks everything that would otherwise fail deep inside a
// constructor, so a bad file is reported before any allocation.
func (c *Config) Validate() error {
	if !(c.Dt > 0) {
		return fmt.Errorf("%w: dt %v must be positive", ErrInvalidConfig, c.Dt)
	}
	if c.Ticks < 0 {
		return fmt.Errorf("%w: ticks %d", ErrInvalidConfig, c.Ticks)
	}
	if c.Grid.Width <= 0 || c.Grid.Height <= 0 || !(c.Grid.CellSize > 0) {
		return fmt.Errorf("%w: grid %dx%d cell size %v", ErrInvalidConfig, c.Grid.Width, c.Grid.Height, c.Grid.CellSize)
	}
	if err := c.BodyParams().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.GasParams().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.UniverseConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	s := c.Scenario
	if s.Stars < 0 || s.StarMass < 0 || s.GasMass < 0 || s.MinTemp < 0 || s.MaxTemp < s.MinTemp {
		return fmt.Errorf("%w: scenario %+v", ErrInvalidConfig, s)
	}
	if s.Stars > 0 && !(s.StarMass > 0 && s.StarDensity > 0) {
		return fmt.Errorf("%w: stars need positive mass and density", ErrInvalidConfig)
	}
	return nil
}

// Size returns the extent of the universe.
func (c *Config) Size() r2.Vec {
	return r2.Vec{
		X: float64(c.Grid.Width) * c.Grid.CellSize,
		Y: float64(c.Grid.Height) * c.Grid.CellSize,
	}
}

// Domain returns the universe rectangle, centered on the origin.
func (c *Config) Domain() (geom.Domain, error) {
	return geom.Centered(c.Size())
}

func (c *Config) BodyParams() nbody.Params {
	return nbody.Params{
		G:                   c.Physics.G,
		CollisionMultiplier: c.Bodies.CollisionMultiplier,
		MinDistanceSq:       c.Physics.MinDistanceSq,
		GravityRadius:       c.Physics.GravityRadius,
		MinIndexMass:        c.Bodies.MinIndexMass,
		GasCoupling:         c.Bodies.GasCoupling,
		MaxCollisionPasses:  c.Bodies.MaxCollisionPasses,
		NodeCapacity:        c.Bodies.NodeCapacity,
	}
}

func (c *Config) GasParams() gas.Params {
	return gas.Params{
		G:                  c.Physics.G,
		GasConstant:        c.Physics.GasConstant,
		GravityRadius:      c.Physics.GravityRadius,
		MinDistanceSq:      c.Physics.MinDistanceSq,
		ParticleQueryScale: c.Gas.ParticleQueryScale,
		BlendMassThreshold: c.Gas.BlendMassThreshold,
		SelfGravity:        c.Gas.SelfGravity,
		PressureGradient:   c.Gas.PressureGradient,
		ParticleGravity:    c.Gas.ParticleGravity,
		ConserveMass:       c.Gas.ConserveMass,
		ConservationRadius: c.Gas.ConservationRadius,
	}
}

func (c *Config) UniverseConfig() universe.Config {
	return universe.Config{
		Bodies: c.BodyParams(),
		Interaction: universe.Interaction{
			MaxTransfer: c.Interaction.MaxTransfer,
			MinBodyMass: c.Interaction.MinBodyMass,
		},
		Collapse: universe.Collapse{
			Threshold:      c.Collapse.Threshold,
			Density:        c.Collapse.Density,
			VelocityFactor: c.Collapse.VelocityFactor,
		},
	}
}

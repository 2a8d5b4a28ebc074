package universe_test

import (
	"errors"
	"math/rand"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/popsim/internal/gas"
	"github.com/san-kum/popsim/internal/geom"
	"github.com/san-kum/popsim/internal/nbody"
	"github.com/san-kum/popsim/internal/universe"
)

func newGrid(p gas.Params) *gas.Grid {
	g, err := gas.NewGrid(r2.Vec{X: -50, Y: -50}, 20, 20, 5, p)
	Expect(err).NotTo(HaveOccurred())
	return g
}

func quietGas() gas.Params {
	p := gas.DefaultParams()
	p.SelfGravity = false
	p.PressureGradient = false
	p.ParticleGravity = false
	return p
}

func fillUniform(g *gas.Grid, mass float64) {
	Expect(g.Fill(func(int, int, r2.Vec) gas.Cell {
		return gas.Cell{Mass: mass, Temperature: 10}
	})).To(Succeed())
}

func newUniverse(cfg universe.Config, set *nbody.Set, g *gas.Grid) *universe.Universe {
	u, err := universe.New(cfg, set, g, universe.WithWorkers(4))
	Expect(err).NotTo(HaveOccurred())
	return u
}

func add(set *nbody.Set, m nbody.Mass) nbody.ID {
	id, err := set.Add(m)
	Expect(err).NotTo(HaveOccurred())
	return id
}

func momentum(u *universe.Universe) r2.Vec { return u.Momentum() }

var _ = Describe("Universe", func() {
	var cfg universe.Config

	BeforeEach(func() {
		cfg = universe.Config{Bodies: nbody.DefaultParams()}
	})

	Describe("construction", func() {
		It("rejects a body domain that differs from the grid", func() {
			d, err := geom.Centered(r2.Vec{X: 80, Y: 100})
			Expect(err).NotTo(HaveOccurred())

			_, err = universe.NewWithDomain(cfg, d, nil, newGrid(quietGas()))
			Expect(err).To(MatchError(universe.ErrDomainMismatch))
		})

		It("accepts a matching body domain", func() {
			d, err := geom.Centered(r2.Vec{X: 100, Y: 100})
			Expect(err).NotTo(HaveOccurred())

			_, err = universe.NewWithDomain(cfg, d, nil, newGrid(quietGas()))
			Expect(err).NotTo(HaveOccurred())
		})

		It("refuses invalid bodies", func() {
			set := nbody.NewSet()
			set.Masses = append(set.Masses, nbody.Mass{ID: 1, Mass: -1, Density: 1})

			_, err := universe.New(cfg, set, newGrid(quietGas()))
			Expect(err).To(MatchError(nbody.ErrInvalidMass))
		})

		It("refuses collapse without a density", func() {
			cfg.Collapse = universe.Collapse{Threshold: 1}
			_, err := universe.New(cfg, nil, newGrid(quietGas()))
			Expect(err).To(MatchError(universe.ErrInvalidConfig))
		})
	})

	Describe("stepping", func() {
		It("merges equal bodies that touch across the seam", func() {
			set := nbody.NewSet()
			add(set, nbody.Mass{Position: r2.Vec{X: 49.5}, Mass: 4, Density: 2})
			add(set, nbody.Mass{Position: r2.Vec{X: -49.5}, Mass: 4, Density: 2})
			u := newUniverse(cfg, set, newGrid(quietGas()))

			stats, err := u.Step(0.01)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Merges).To(Equal(1))
			Expect(stats.Tick).To(Equal(1))

			bodies := u.Masses()
			Expect(bodies).To(HaveLen(1))
			Expect(bodies[0].ID).To(Equal(nbody.ID(1)))
			Expect(bodies[0].Mass).To(BeNumerically("~", 8, 1e-12))
			Expect(bodies[0].Density).To(BeNumerically("~", 2, 1e-12))
		})

		It("conserves total mass with every term enabled", func() {
			g := newGrid(gas.DefaultParams())
			rng := rand.New(rand.NewSource(3))
			Expect(g.Fill(func(int, int, r2.Vec) gas.Cell {
				return gas.Cell{Mass: 0.5 + rng.Float64(), Temperature: 20}
			})).To(Succeed())

			set := nbody.NewSet()
			for i := 0; i < 20; i++ {
				add(set, nbody.Mass{
					Position: r2.Vec{X: rng.Float64()*100 - 50, Y: rng.Float64()*100 - 50},
					Mass:     1 + rng.Float64()*5,
					Density:  0.5,
				})
			}
			u := newUniverse(cfg, set, g)
			before := u.TotalMass()

			for i := 0; i < 10; i++ {
				_, err := u.Step(0.05)
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(u.TotalMass()).To(BeNumerically("~", before, before*1e-6))
			Expect(u.Tick()).To(Equal(10))
			Expect(u.Time()).To(BeNumerically("~", 0.5, 1e-12))
		})

		It("turns overfull cells into bodies", func() {
			cfg.Collapse = universe.Collapse{Threshold: 5, Density: 1, VelocityFactor: 0.5}
			g := newGrid(quietGas())
			Expect(g.SetCell(10, 10, gas.Cell{Mass: 20, Temperature: 10, Velocity: r2.Vec{X: 2}})).To(Succeed())
			u := newUniverse(cfg, nil, g)
			before := u.TotalMass()

			stats, err := u.Step(0.1)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Collapsed).To(Equal(1))
			Expect(stats.Bodies).To(Equal(1))

			body := u.Masses()[0]
			Expect(body.Mass).To(BeNumerically(">", 5))
			Expect(body.Position).To(Equal(g.CellCenter(10, 10)))
			Expect(body.Velocity.X).To(BeNumerically("~", 1, 1e-12))
			Expect(u.TotalMass()).To(BeNumerically("~", before, 1e-9))
		})

		It("reports failures as tick errors", func() {
			cfg.Bodies.MaxCollisionPasses = 1
			set := nbody.NewSet()
			add(set, nbody.Mass{Mass: 1, Density: 1})
			add(set, nbody.Mass{Position: r2.Vec{X: 0.1}, Mass: 1, Density: 1})
			u := newUniverse(cfg, set, newGrid(quietGas()))

			_, err := u.Step(0.1)
			var tickErr *universe.TickError
			Expect(errors.As(err, &tickErr)).To(BeTrue())
			Expect(tickErr.Tick).To(Equal(1))
			Expect(tickErr.Phase).To(Equal("bodies"))
			Expect(err).To(MatchError(nbody.ErrNoFixedPoint))
			Expect(u.Tick()).To(Equal(0))
		})

		It("allows reads while stepping", func() {
			set := nbody.NewSet()
			add(set, nbody.Mass{Mass: 1, Density: 1, Velocity: r2.Vec{X: 1}})
			u := newUniverse(cfg, set, newGrid(quietGas()))

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					_ = u.Masses()
					_ = u.GridStats()
				}
			}()
			for i := 0; i < 20; i++ {
				_, err := u.Step(0.1)
				Expect(err).NotTo(HaveOccurred())
			}
			wg.Wait()
		})
	})

	Describe("interaction", func() {
		var (
			u  *universe.Universe
			id nbody.ID
		)

		BeforeEach(func() {
			cfg.Interaction = universe.Interaction{MaxTransfer: 1, MinBodyMass: 0.5}
			g := newGrid(quietGas())
			fillUniform(g, 1)
			set := nbody.NewSet()
			id = add(set, nbody.Mass{Position: r2.Vec{X: 1, Y: 1}, Mass: 2, Density: 1})
			u = newUniverse(cfg, set, g)
		})

		It("pushes the body and the gas in opposite directions", func() {
			before := momentum(u)
			Expect(u.ApplyImpulse(id, r2.Vec{X: 3, Y: 1})).To(Succeed())

			Expect(u.Masses()[0].Velocity).To(Equal(r2.Vec{X: 1.5, Y: 0.5}))
			after := momentum(u)
			Expect(after.X).To(BeNumerically("~", before.X, 1e-12))
			Expect(after.Y).To(BeNumerically("~", before.Y, 1e-12))
		})

		It("rejects an impulse on an empty cell without moving the body", func() {
			g := newGrid(quietGas())
			set := nbody.NewSet()
			lone := add(set, nbody.Mass{Mass: 2, Density: 1})
			empty := newUniverse(cfg, set, g)

			Expect(empty.ApplyImpulse(lone, r2.Vec{X: 1})).To(MatchError(gas.ErrEmptyCell))
			Expect(empty.Masses()[0].Velocity).To(Equal(r2.Vec{}))
		})

		It("rejects unknown bodies", func() {
			Expect(u.ApplyImpulse(99, r2.Vec{X: 1})).To(MatchError(nbody.ErrUnknownMass))
			Expect(u.TransferMass(99, 0.5)).To(MatchError(nbody.ErrUnknownMass))
		})

		It("absorbs gas into the body", func() {
			mass, mom := u.TotalMass(), momentum(u)
			Expect(u.TransferMass(id, 0.5)).To(Succeed())

			Expect(u.Masses()[0].Mass).To(BeNumerically("~", 2.5, 1e-12))
			Expect(u.TotalMass()).To(BeNumerically("~", mass, 1e-9))
			Expect(momentum(u).X).To(BeNumerically("~", mom.X, 1e-12))
		})

		It("releases body mass into the gas", func() {
			_, w, _ := u.Cells()
			Expect(u.TransferMass(id, -1)).To(Succeed())

			cells, _, _ := u.Cells()
			Expect(cells[10*w+10].Mass).To(BeNumerically("~", 2, 1e-12))
			Expect(u.Masses()[0].Mass).To(BeNumerically("~", 1, 1e-12))
		})

		It("enforces transfer bounds", func() {
			Expect(u.TransferMass(id, 1.5)).To(MatchError(universe.ErrTransferBounds))
			Expect(u.TransferMass(id, -1)).To(Succeed())
			Expect(u.TransferMass(id, -0.75)).To(MatchError(universe.ErrTransferBounds))
			Expect(u.Masses()[0].Mass).To(BeNumerically("~", 1, 1e-12))
		})

		It("adds bodies wrapped into the domain", func() {
			newID, err := u.AddMass(nbody.Mass{Position: r2.Vec{X: 60}, Mass: 1, Density: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(newID).To(Equal(nbody.ID(2)))
			Expect(u.Masses()[1].Position.X).To(BeNumerically("~", -40, 1e-12))

			_, err = u.AddMass(nbody.Mass{Mass: 0, Density: 1})
			Expect(err).To(MatchError(nbody.ErrInvalidMass))
		})
	})
})

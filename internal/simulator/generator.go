package simulator

import (
	"math"
	"math/rand"
	"time"

	"github.com/machinestack/machine-monitor/internal/models"
)

// valueRange is a half-open draw range for one metric.
type valueRange struct {
	min, max float64
}

// Status-conditioned draw ranges. SHUTDOWN cools the machine and stops the
// rotor entirely; COMPLETED is the wind-down band.
var (
	tempRanges = map[models.Status]valueRange{
		models.StatusShutdown:  {15, 20},
		models.StatusPaused:    {20, 25},
		models.StatusRunning:   {25, 35},
		models.StatusStarted:   {25, 35},
		models.StatusCompleted: {20, 30},
	}
	speedRanges = map[models.Status]valueRange{
		models.StatusShutdown:  {0, 0},
		models.StatusPaused:    {800, 1000},
		models.StatusRunning:   {1000, 2000},
		models.StatusStarted:   {1000, 2000},
		models.StatusCompleted: {800, 1200},
	}
)

// Generator produces one Reading per tick by advancing the state machine and
// drawing temperature and speed from the new status's ranges.
type Generator struct {
	machine *StateMachine
	rng     RandSource
}

// NewGenerator constructs a generator around the given state machine. A nil
// rng falls back to a time-seeded source.
func NewGenerator(machine *StateMachine, rng RandSource) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{machine: machine, rng: rng}
}

// Tick advances the machine and returns the reading for the given instant.
// Values are rounded to two decimal places; speed is exactly zero iff the new
// status is SHUTDOWN.
func (g *Generator) Tick(now time.Time) models.Reading {
	status := g.machine.Advance()

	return models.Reading{
		Timestamp:   now,
		Temperature: round2(g.draw(tempRanges[status])),
		Speed:       round2(g.draw(speedRanges[status])),
		Status:      status,
	}
}

// Status returns the machine's current status.
func (g *Generator) Status() models.Status {
	return g.machine.Current()
}

func (g *Generator) draw(r valueRange) float64 {
	if r.max == r.min {
		return r.min
	}
	return r.min + g.rng.Float64()*(r.max-r.min)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

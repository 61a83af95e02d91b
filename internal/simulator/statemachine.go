// Package simulator produces the machine telemetry stream: a stochastic
// status state machine and a generator that draws status-conditioned
// temperature and speed samples on a fixed tick.
package simulator

import (
	"math/rand"
	"time"

	"github.com/machinestack/machine-monitor/internal/models"
)

// RandSource is the random dependency of the state machine and generator.
// *rand.Rand satisfies it; tests substitute a scripted source for
// deterministic replay.
type RandSource interface {
	Float64() float64
	Intn(n int) int
}

// StateMachine walks the status transition graph. From SHUTDOWN it always
// restarts; every other state either follows its usual edge or shuts down,
// with RUNNING additionally allowed to stay put.
type StateMachine struct {
	rng     RandSource
	table   map[models.Status][]models.Status
	current models.Status
}

// NewStateMachine creates a machine starting in SHUTDOWN. A nil rng falls
// back to a time-seeded source; a nil table uses the default transition graph.
func NewStateMachine(table map[models.Status][]models.Status, rng RandSource) *StateMachine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if table == nil {
		table = models.DefaultTransitions()
	}
	return &StateMachine{
		rng:     rng,
		table:   table,
		current: models.StatusShutdown,
	}
}

// Current returns the machine's present status.
func (m *StateMachine) Current() models.Status {
	return m.current
}

// Advance computes and commits the next status.
func (m *StateMachine) Advance() models.Status {
	m.current = m.Next(m.current)
	return m.current
}

// Next returns the status following current. It mutates nothing but the
// random source, so scripted sources replay exact walks.
func (m *StateMachine) Next(current models.Status) models.Status {
	switch current {
	case models.StatusShutdown:
		return models.StatusStarted
	case models.StatusStarted:
		if m.rng.Float64() < 0.9 {
			return models.StatusRunning
		}
		return models.StatusShutdown
	case models.StatusRunning:
		if m.rng.Float64() < 0.1 {
			candidates := m.candidates(current)
			if len(candidates) > 0 {
				return candidates[m.rng.Intn(len(candidates))]
			}
		}
		return models.StatusRunning
	case models.StatusPaused:
		if m.rng.Float64() < 0.8 {
			return models.StatusRunning
		}
		return models.StatusShutdown
	case models.StatusCompleted:
		if m.rng.Float64() < 0.7 {
			return models.StatusStarted
		}
		return models.StatusShutdown
	}
	return current
}

// candidates returns the allowed targets from current, excluding self-loops.
func (m *StateMachine) candidates(current models.Status) []models.Status {
	allowed := m.table[current]
	out := make([]models.Status, 0, len(allowed))
	for _, s := range allowed {
		if s != current {
			out = append(out, s)
		}
	}
	return out
}

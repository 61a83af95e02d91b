package simulator

import (
	"math/rand"
	"testing"

	"github.com/machinestack/machine-monitor/internal/models"
)

// scriptedRand replays fixed values so transitions are deterministic.
type scriptedRand struct {
	floats []float64
	ints   []int
	fi, ii int
}

func (s *scriptedRand) Float64() float64 {
	if s.fi >= len(s.floats) {
		return 0
	}
	v := s.floats[s.fi]
	s.fi++
	return v
}

func (s *scriptedRand) Intn(n int) int {
	if s.ii >= len(s.ints) {
		return 0
	}
	v := s.ints[s.ii] % n
	s.ii++
	return v
}

func TestStateMachineStartsShutdown(t *testing.T) {
	m := NewStateMachine(nil, &scriptedRand{})
	if m.Current() != models.StatusShutdown {
		t.Fatalf("expected initial status SHUTDOWN, got %s", m.Current())
	}
}

func TestStateMachinePolicy(t *testing.T) {
	tests := []struct {
		name    string
		current models.Status
		floats  []float64
		ints    []int
		want    models.Status
	}{
		{"shutdown always restarts", models.StatusShutdown, nil, nil, models.StatusStarted},
		{"started usually runs", models.StatusStarted, []float64{0.5}, nil, models.StatusRunning},
		{"started sometimes shuts down", models.StatusStarted, []float64{0.95}, nil, models.StatusShutdown},
		{"running usually stays", models.StatusRunning, []float64{0.5}, nil, models.StatusRunning},
		{"running branches to paused", models.StatusRunning, []float64{0.05}, []int{0}, models.StatusPaused},
		{"running branches to completed", models.StatusRunning, []float64{0.05}, []int{1}, models.StatusCompleted},
		{"running branches to shutdown", models.StatusRunning, []float64{0.05}, []int{2}, models.StatusShutdown},
		{"paused usually resumes", models.StatusPaused, []float64{0.5}, nil, models.StatusRunning},
		{"paused sometimes shuts down", models.StatusPaused, []float64{0.85}, nil, models.StatusShutdown},
		{"completed usually restarts", models.StatusCompleted, []float64{0.5}, nil, models.StatusStarted},
		{"completed sometimes shuts down", models.StatusCompleted, []float64{0.75}, nil, models.StatusShutdown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewStateMachine(nil, &scriptedRand{floats: tt.floats, ints: tt.ints})
			got := m.Next(tt.current)
			if got != tt.want {
				t.Fatalf("Next(%s) = %s, want %s", tt.current, got, tt.want)
			}
		})
	}
}

func TestStateMachineNeverTakesIllegalEdge(t *testing.T) {
	table := models.DefaultTransitions()
	m := NewStateMachine(table, rand.New(rand.NewSource(42)))

	prev := m.Current()
	for i := 0; i < 5000; i++ {
		next := m.Advance()
		if next == prev && prev == models.StatusRunning {
			prev = next
			continue
		}
		if !models.ValidTransition(table, prev, next) || next == prev {
			t.Fatalf("step %d: illegal transition %s -> %s", i, prev, next)
		}
		prev = next
	}
}

package simulator

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/machinestack/machine-monitor/internal/models"
)

func TestTickSpeedZeroIffShutdown(t *testing.T) {
	machine := NewStateMachine(nil, rand.New(rand.NewSource(7)))
	gen := NewGenerator(machine, rand.New(rand.NewSource(11)))

	sawShutdown := false
	for i := 0; i < 2000; i++ {
		r := gen.Tick(time.Now())
		if r.Status == models.StatusShutdown {
			sawShutdown = true
			if r.Speed != 0 {
				t.Fatalf("SHUTDOWN reading has speed %v, want 0", r.Speed)
			}
		} else if r.Speed == 0 {
			t.Fatalf("non-SHUTDOWN reading (%s) has zero speed", r.Status)
		}
	}
	if !sawShutdown {
		t.Fatal("walk never reached SHUTDOWN, ranges untested")
	}
}

func TestTickValuesWithinStatusRanges(t *testing.T) {
	machine := NewStateMachine(nil, rand.New(rand.NewSource(3)))
	gen := NewGenerator(machine, rand.New(rand.NewSource(5)))

	for i := 0; i < 2000; i++ {
		r := gen.Tick(time.Now())

		tr, ok := tempRanges[r.Status]
		if !ok {
			t.Fatalf("reading has unknown status %s", r.Status)
		}
		if r.Temperature < tr.min || r.Temperature > tr.max {
			t.Fatalf("%s temperature %v outside [%v, %v]", r.Status, r.Temperature, tr.min, tr.max)
		}

		sr := speedRanges[r.Status]
		if r.Speed < sr.min || r.Speed > sr.max {
			t.Fatalf("%s speed %v outside [%v, %v]", r.Status, r.Speed, sr.min, sr.max)
		}
	}
}

func TestTickRoundsToTwoDecimals(t *testing.T) {
	machine := NewStateMachine(nil, rand.New(rand.NewSource(13)))
	gen := NewGenerator(machine, rand.New(rand.NewSource(17)))

	for i := 0; i < 100; i++ {
		r := gen.Tick(time.Now())
		for _, v := range []float64{r.Temperature, r.Speed} {
			if math.Abs(v*100-math.Round(v*100)) > 1e-9 {
				t.Fatalf("value %v not rounded to two decimal places", v)
			}
		}
	}
}

func TestTickTimestamp(t *testing.T) {
	machine := NewStateMachine(nil, rand.New(rand.NewSource(19)))
	gen := NewGenerator(machine, rand.New(rand.NewSource(23)))

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)
	r := gen.Tick(now)
	if !r.Timestamp.Equal(now) {
		t.Fatalf("reading timestamp %v, want %v", r.Timestamp, now)
	}
}

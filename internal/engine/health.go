package engine

import (
	"fmt"
	"math"

	"github.com/machinestack/machine-monitor/internal/config"
	"github.com/machinestack/machine-monitor/internal/models"
)

// Health score normalisation: distance from the nominal operating point,
// scaled by the tolerated deviation.
const (
	tempNominal  = 25.0
	tempSpread   = 15.0
	speedNominal = 1500.0
	speedSpread  = 700.0
)

var statusScores = map[models.Status]float64{
	models.StatusStarted:   0.8,
	models.StatusRunning:   1.0,
	models.StatusPaused:    0.6,
	models.StatusCompleted: 0.9,
	models.StatusShutdown:  0.5,
}

// HealthScore combines normalised temperature, speed, and status scores into
// a single value in [0, 1], rounded to two decimal places. Pure, no error
// path: inputs are validated before they arrive here.
func HealthScore(r models.Reading) float64 {
	tempScore := math.Max(0, 1-math.Abs(r.Temperature-tempNominal)/tempSpread)
	speedScore := math.Max(0, 1-math.Abs(r.Speed-speedNominal)/speedSpread)

	statusScore, ok := statusScores[r.Status]
	if !ok {
		statusScore = 0.5
	}

	return math.Round((tempScore+speedScore+statusScore)/3*100) / 100
}

// Alerts evaluates the alert rules in fixed order: temperature range, speed
// range, then status advisories. An empty result is a normal outcome.
func Alerts(r models.Reading, m config.MetricsConfig) []string {
	var alerts []string

	if !m.Temperature.InAlert(r.Temperature) {
		alerts = append(alerts, fmt.Sprintf("Temperature out of safe range: %v", r.Temperature))
	}
	if !m.Speed.InAlert(r.Speed) {
		alerts = append(alerts, fmt.Sprintf("Speed out of safe range: %v", r.Speed))
	}

	switch r.Status {
	case models.StatusPaused:
		alerts = append(alerts, "Machine paused - may require attention")
	case models.StatusShutdown:
		alerts = append(alerts, "Machine shutdown - check if scheduled")
	}

	return alerts
}

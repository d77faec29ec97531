package usecases

import (
	"math"
	"time"

	"github.com/ericnem/passepartout/internal/core/domain"
)

// DefaultBodyMassKg is assumed when no body mass is supplied.
const DefaultBodyMassKg = 70.0

// walkingKcalPerKgHour is the MET-based energy cost of a walking pace.
const walkingKcalPerKgHour = 3.5

// EstimatedArrival formats now + durationMinutes as a local clock time.
// Returns "N/A" for NaN or negative durations.
func EstimatedArrival(now time.Time, durationMinutes float64) string {
	if math.IsNaN(durationMinutes) || durationMinutes < 0 {
		return "N/A"
	}
	eta := now.Add(time.Duration(durationMinutes * float64(time.Minute)))
	return eta.Format("3:04 PM")
}

// EstimatedEnergyKcal estimates the energy spent walking the trip:
// round(3.5 * bodyMassKg * hours). distanceKm is accepted for interface
// symmetry but does not enter the formula.
func EstimatedEnergyKcal(distanceKm, durationMinutes, bodyMassKg float64) int {
	_ = distanceKm
	if math.IsNaN(durationMinutes) || durationMinutes < 0 {
		return 0
	}
	if bodyMassKg <= 0 {
		bodyMassKg = DefaultBodyMassKg
	}
	return int(math.Round(walkingKcalPerKgHour * bodyMassKg * durationMinutes / 60))
}

// TripInfoFor derives the trip metrics panel from an active route.
func TripInfoFor(route *domain.Route, now time.Time) (*domain.TripInfo, error) {
	if route == nil {
		return nil, ErrNoActiveRoute
	}
	return &domain.TripInfo{
		TotalDistanceKm:          route.TotalDistanceKm,
		EstimatedDurationMinutes: route.EstimatedDurationMinutes,
		EstimatedArrival:         EstimatedArrival(now, route.EstimatedDurationMinutes),
		EstimatedEnergyKcal:      EstimatedEnergyKcal(route.TotalDistanceKm, route.EstimatedDurationMinutes, DefaultBodyMassKg),
	}, nil
}

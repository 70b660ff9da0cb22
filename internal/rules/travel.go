package rules

import (
	"math"
	"time"
)

const earthRadiusKm = 6371.0

// TravelLimits are the transport ceilings used by impossible-travel
// classification. Defaults approximate highway driving and commercial
// flight with airport overhead.
type TravelLimits struct {
	RoadKmh          float64
	CruiseKmh        float64
	TerminalOverhead time.Duration
}

// DefaultTravelLimits returns the standard transport ceilings.
func DefaultTravelLimits() TravelLimits {
	return TravelLimits{
		RoadKmh:          120,
		CruiseKmh:        900,
		TerminalOverhead: 150 * time.Minute,
	}
}

// haversineKm returns the great-circle distance between two coordinates.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// Feasible reports whether covering distanceKm in elapsed is physically
// plausible. Road travel is checked against a flat speed ceiling; anything
// faster is checked against flight time plus a fixed terminal overhead, so a
// legitimate domestic flight does not trip the rule.
func (l TravelLimits) Feasible(distanceKm float64, elapsed time.Duration) bool {
	if elapsed <= 0 {
		return distanceKm < 1
	}
	hours := elapsed.Hours()
	if distanceKm/hours <= l.RoadKmh {
		return true
	}
	flightTime := l.TerminalOverhead + time.Duration(distanceKm/l.CruiseKmh*float64(time.Hour))
	return elapsed >= flightTime
}

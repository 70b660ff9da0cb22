package rules

import (
	"fmt"
	"time"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

// geoVelocityRules covers geographic anomalies and sliding-window velocity.
func geoVelocityRules(limits TravelLimits) []Rule {
	return []Rule{
		{
			Name:     "impossible_travel",
			Category: CategoryGeoVelocity,
			Severity: domain.SeverityCritical,
			Score:    85,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if !tx.HasCoordinates() || rc.LastLocation == nil || rc.Elapsed <= 0 {
					return nil
				}
				dist := haversineKm(rc.LastLocation.Latitude, rc.LastLocation.Longitude,
					*tx.Enrichment.Latitude, *tx.Enrichment.Longitude)
				if dist < 50 {
					return nil
				}
				if limits.Feasible(dist, rc.Elapsed) {
					return nil
				}
				speed := dist / rc.Elapsed.Hours()
				return &Hit{
					Message:    fmt.Sprintf("%.0f km in %s requires %.0f km/h, beyond any transport", dist, rc.Elapsed.Round(time.Minute), speed),
					Confidence: confidence(0.95),
					Metadata:   map[string]any{"distance_km": dist, "required_kmh": speed},
				}
			},
		},
		{
			Name:     "improbable_road_travel",
			Category: CategoryGeoVelocity,
			Severity: domain.SeverityMedium,
			Score:    30,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if !tx.HasCoordinates() || rc.LastLocation == nil || rc.Elapsed <= 0 {
					return nil
				}
				dist := haversineKm(rc.LastLocation.Latitude, rc.LastLocation.Longitude,
					*tx.Enrichment.Latitude, *tx.Enrichment.Longitude)
				if dist < 50 || !limits.Feasible(dist, rc.Elapsed) {
					return nil
				}
				// Feasible only by flight: still noteworthy when the user
				// typically transacts from one city.
				speed := dist / rc.Elapsed.Hours()
				if speed <= limits.RoadKmh {
					return nil
				}
				return &Hit{
					Message:  fmt.Sprintf("%.0f km relocation in %s is flight-speed travel", dist, rc.Elapsed.Round(time.Minute)),
					Metadata: map[string]any{"distance_km": dist},
				}
			},
		},
		{
			Name:     "velocity_burst_1m",
			Category: CategoryGeoVelocity,
			Severity: domain.SeverityHigh,
			Score:    40,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if rc.Count1m < 5 {
					return nil
				}
				return &Hit{
					Message:    fmt.Sprintf("%d transactions in the last minute", rc.Count1m),
					Confidence: confidence(0.9),
				}
			},
		},
		{
			Name:     "velocity_burst_10m",
			Category: CategoryGeoVelocity,
			Severity: domain.SeverityMedium,
			Score:    25,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if rc.Count10m < 15 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("%d transactions in 10 minutes", rc.Count10m)}
			},
		},
		{
			Name:     "velocity_sustained_1h",
			Category: CategoryGeoVelocity,
			Severity: domain.SeverityMedium,
			Score:    20,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if rc.Count1h < 40 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("%d transactions in the last hour", rc.Count1h)}
			},
		},
		{
			Name:     "velocity_sustained_24h",
			Category: CategoryGeoVelocity,
			Severity: domain.SeverityLow,
			Score:    15,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if rc.Count24h < 150 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("%d transactions in 24 hours", rc.Count24h)}
			},
		},
		{
			Name:     "burst_from_quiet_account",
			Category: CategoryGeoVelocity,
			Severity: domain.SeverityMedium,
			Score:    25,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				// Sudden activity on an otherwise idle account.
				if rc.Count1m < 3 || rc.Count24h > rc.Count1m+2 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("%d rapid transactions on an account with no recent history", rc.Count1m)}
			},
		},
		{
			Name:     "rapid_fire_small_amounts",
			Category: CategoryGeoVelocity,
			Severity: domain.SeverityMedium,
			Score:    25,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if tx.Amount >= 100 || rc.Count10m < 8 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("%d small transactions in 10 minutes", rc.Count10m)}
			},
		},
		{
			Name:     "location_jump_high_amount",
			Category: CategoryGeoVelocity,
			Severity: domain.SeverityHigh,
			Score:    35,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if !tx.HasCoordinates() || rc.LastLocation == nil || tx.Amount < 100000 {
					return nil
				}
				dist := haversineKm(rc.LastLocation.Latitude, rc.LastLocation.Longitude,
					*tx.Enrichment.Latitude, *tx.Enrichment.Longitude)
				if dist < 500 {
					return nil
				}
				return &Hit{
					Message:  fmt.Sprintf("high-value transaction %.0f km from last seen location", dist),
					Metadata: map[string]any{"distance_km": dist},
				}
			},
		},
		{
			Name:     "midnight_high_value",
			Category: CategoryGeoVelocity,
			Severity: domain.SeverityLow,
			Score:    10,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				h := tx.Timestamp.Hour()
				if tx.Amount < 500000 || (h >= 5 && h < 23) {
					return nil
				}
				return &Hit{Message: "high-value transaction in the dead hours"}
			},
		},
		{
			Name:     "nocturnal_burst",
			Category: CategoryGeoVelocity,
			Severity: domain.SeverityMedium,
			Score:    20,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				h := tx.Timestamp.Hour()
				if h >= 5 || rc.Count1h < 5 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("%d transactions between midnight and 5am", rc.Count1h)}
			},
		},
		{
			Name:     "escalating_amount_burst",
			Category: CategoryGeoVelocity,
			Severity: domain.SeverityHigh,
			Score:    30,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				// A large ticket riding on a busy hour reads as a test-then-cash
				// escalation.
				if tx.Amount < 500000 || rc.Count1h < 10 {
					return nil
				}
				return &Hit{
					Message:    fmt.Sprintf("%.0f after %d transactions in the last hour", tx.Amount, rc.Count1h),
					Confidence: confidence(0.7),
				}
			},
		},
		{
			Name:     "null_island_coordinates",
			Category: CategoryGeoVelocity,
			Severity: domain.SeverityLow,
			Score:    12,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if !tx.HasCoordinates() {
					return nil
				}
				if *tx.Enrichment.Latitude != 0 || *tx.Enrichment.Longitude != 0 {
					return nil
				}
				return &Hit{Message: "coordinates are exactly 0,0, consistent with spoofed geolocation"}
			},
		},
	}
}

package domain

import "time"

// Location is a geocoordinate with the time it was observed.
type Location struct {
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lon"`
	SeenAt    time.Time `json:"seenAt"`
}

// RiskContext is the ephemeral, request-scoped view of behavioral and
// consortium signals a rule may read. Built fresh for every check, never
// persisted and never shared across requests.
type RiskContext struct {
	// Sliding-window transaction counts for the acting user.
	Count1m  int64 `json:"count1m"`
	Count10m int64 `json:"count10m"`
	Count1h  int64 `json:"count1h"`
	Count24h int64 `json:"count24h"`

	// Distinct accounts seen on the transaction's device fingerprint.
	DeviceUserCount int64 `json:"deviceUserCount"`

	// Most recent prior location with coordinates, if any.
	LastLocation *Location     `json:"lastLocation,omitempty"`
	Elapsed      time.Duration `json:"-"`

	// Coarse VPN/proxy suspicion over the source address.
	VPNSuspected bool `json:"vpnSuspected"`

	// AMLThreshold is the active vertical policy's reporting line. The
	// structuring rules scale their bands from it; zero means the built-in
	// default applies.
	AMLThreshold float64 `json:"amlThreshold,omitempty"`

	// Cross-tenant intelligence. Nil when the consortium is disabled or
	// unavailable.
	Consortium *ConsortiumSummary `json:"consortium,omitempty"`

	// Degraded names the sub-lookups that failed soft during aggregation.
	Degraded []string `json:"degraded,omitempty"`
}

// ConsortiumSummary is the merged result of an OR-query across hashed
// identifiers.
type ConsortiumSummary struct {
	Matched     bool      `json:"matched"`
	ClientCount int       `json:"clientCount"` // max distinct reporting tenants across matches
	Occurrences int       `json:"occurrences"` // summed fraud occurrences
	FraudTypes  []string  `json:"fraudTypes,omitempty"`
	TotalAmount float64   `json:"totalAmount"`
	RiskLevel   RiskLevel `json:"riskLevel"`
	Alerts      []string  `json:"alerts,omitempty"`

	// Loan-stacking scan over recent transactions at other tenants.
	StackingTenants int      `json:"stackingTenants"`
	StackingSample  []string `json:"stackingSample,omitempty"` // anonymized, capped
}

package domain

import "time"

// IdentifierType names the kind of identity attribute behind a hash.
type IdentifierType string

const (
	IdentifierDevice IdentifierType = "device"
	IdentifierEmail  IdentifierType = "email"
	IdentifierPhone  IdentifierType = "phone"
	IdentifierID     IdentifierType = "id_number"
)

// HashedIdentifier pairs an identifier type with its one-way salted hash.
// The raw value never crosses this boundary.
type HashedIdentifier struct {
	Type IdentifierType `json:"type"`
	Hash string         `json:"hash"`
}

// ConsortiumRecord is the cross-tenant fraud history for one hashed identity
// attribute. Created on the first fraud confirmation referencing the hash,
// updated on each subsequent confirmation, never deleted.
type ConsortiumRecord struct {
	Hash        string         `json:"hash"`
	Type        IdentifierType `json:"type"`
	Occurrences int            `json:"occurrences"`
	Verticals   []Vertical     `json:"verticals"`
	Tenants     []string       `json:"tenants"`
	FraudTypes  []string       `json:"fraudTypes"`
	TotalAmount float64        `json:"totalAmount"`
	RiskLevel   RiskLevel      `json:"riskLevel"`
	FirstSeen   time.Time      `json:"firstSeen"`
	LastSeen    time.Time      `json:"lastSeen"`
}

// DeriveConsortiumRisk maps a fraud occurrence count to the record's derived
// risk level.
func DeriveConsortiumRisk(occurrences int) RiskLevel {
	switch {
	case occurrences >= 5:
		return RiskCritical
	case occurrences >= 3:
		return RiskHigh
	case occurrences >= 1:
		return RiskMedium
	default:
		return RiskLow
	}
}

// ConsortiumStats is an aggregate view of the pool for the admin API.
type ConsortiumStats struct {
	Records        int     `json:"records"`
	Tenants        int     `json:"tenants"`
	TotalExposure  float64 `json:"totalExposure"`
	CriticalHashes int     `json:"criticalHashes"`
}

package rules

import (
	"net"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

// networkRules covers network and IP reputation signals.
func networkRules() []Rule {
	return []Rule{
		{
			Name:     "vpn_or_proxy_suspected",
			Category: CategoryNetwork,
			Severity: domain.SeverityMedium,
			Score:    20,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if !rc.VPNSuspected {
					return nil
				}
				return &Hit{Message: "source address matches a known VPN or hosting range"}
			},
		},
		{
			Name:     "vpn_with_high_amount",
			Category: CategoryNetwork,
			Severity: domain.SeverityHigh,
			Score:    30,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if !rc.VPNSuspected || tx.Amount < 200000 {
					return nil
				}
				return &Hit{
					Message:    "high-value transaction through a suspected VPN",
					Confidence: confidence(0.75),
				}
			},
		},
		{
			Name:     "unroutable_source_address",
			Category: CategoryNetwork,
			Severity: domain.SeverityMedium,
			Score:    25,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				raw := tx.Enrichment.IPAddress
				if raw == "" {
					return nil
				}
				ip := net.ParseIP(raw)
				if ip == nil {
					return &Hit{Message: "source address is not a valid IP"}
				}
				if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() {
					return &Hit{
						Message:  "source address is not publicly routable",
						Metadata: map[string]any{"ip": raw},
					}
				}
				return nil
			},
		},
		{
			Name:     "missing_ip_high_amount",
			Category: CategoryNetwork,
			Severity: domain.SeverityLow,
			Score:    8,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if tx.Enrichment.IPAddress != "" || tx.Amount < 500000 {
					return nil
				}
				return &Hit{Message: "very large transaction with no source address"}
			},
		},
		{
			Name:     "vpn_with_location_mismatch",
			Category: CategoryNetwork,
			Severity: domain.SeverityMedium,
			Score:    22,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if !rc.VPNSuspected || !tx.HasCoordinates() || rc.LastLocation == nil {
					return nil
				}
				dist := haversineKm(rc.LastLocation.Latitude, rc.LastLocation.Longitude,
					*tx.Enrichment.Latitude, *tx.Enrichment.Longitude)
				if dist < 200 {
					return nil
				}
				return &Hit{Message: "VPN session reporting coordinates far from last seen location"}
			},
		},
		{
			Name:     "vpn_new_account",
			Category: CategoryNetwork,
			Severity: domain.SeverityMedium,
			Score:    25,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				age := tx.Enrichment.AccountAgeDays
				if !rc.VPNSuspected || age == nil || *age > 7 {
					return nil
				}
				return &Hit{Message: "days-old account transacting through a suspected VPN"}
			},
		},
		{
			Name:     "vpn_rapid_transactions",
			Category: CategoryNetwork,
			Severity: domain.SeverityHigh,
			Score:    35,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if !rc.VPNSuspected || rc.Count1h < 10 {
					return nil
				}
				return &Hit{
					Message:  "high transaction frequency behind a suspected VPN",
					Metadata: map[string]any{"count_1h": rc.Count1h},
				}
			},
		},
		{
			Name:     "vpn_withdrawal",
			Category: CategoryNetwork,
			Severity: domain.SeverityMedium,
			Score:    22,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if !rc.VPNSuspected || tx.Type != "withdrawal" || tx.Amount < 100000 {
					return nil
				}
				return &Hit{Message: "sizeable withdrawal through a suspected VPN"}
			},
		},
		{
			Name:     "coordinates_without_address",
			Category: CategoryNetwork,
			Severity: domain.SeverityLow,
			Score:    8,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if tx.Enrichment.IPAddress != "" || !tx.HasCoordinates() {
					return nil
				}
				return &Hit{Message: "client reported coordinates but no source address"}
			},
		},
	}
}

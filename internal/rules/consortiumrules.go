package rules

import (
	"fmt"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

// consortiumRules reads the cross-tenant intelligence merged into the
// context. They never see raw identifiers, only the summary.
func consortiumRules() []Rule {
	return []Rule{
		{
			Name:     "consortium_known_fraudster",
			Category: CategoryConsortium,
			Severity: domain.SeverityCritical,
			Score:    70,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				c := rc.Consortium
				if c == nil || !hasAlert(c, "known_fraudster") {
					return nil
				}
				return &Hit{
					Message:    fmt.Sprintf("identity reported fraudulent %d times across the network", c.Occurrences),
					Confidence: confidence(0.95),
					Metadata:   map[string]any{"occurrences": c.Occurrences},
				}
			},
		},
		{
			Name:     "consortium_match",
			Category: CategoryConsortium,
			Severity: domain.SeverityMedium,
			Score:    25,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				c := rc.Consortium
				if c == nil || !c.Matched || hasAlert(c, "known_fraudster") {
					return nil
				}
				return &Hit{
					Message:  "identity attribute matches a network fraud record",
					Metadata: map[string]any{"risk_level": c.RiskLevel, "fraud_types": c.FraudTypes},
				}
			},
		},
		{
			Name:     "consortium_high_exposure",
			Category: CategoryConsortium,
			Severity: domain.SeverityHigh,
			Score:    35,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				c := rc.Consortium
				if c == nil || !hasAlert(c, "high_exposure") {
					return nil
				}
				return &Hit{
					Message:  fmt.Sprintf("network exposure tied to this identity totals %.0f", c.TotalAmount),
					Metadata: map[string]any{"total_amount": c.TotalAmount},
				}
			},
		},
		{
			Name:     "consortium_cross_client_pattern",
			Category: CategoryConsortium,
			Severity: domain.SeverityHigh,
			Score:    30,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				c := rc.Consortium
				if c == nil || c.ClientCount < 3 {
					return nil
				}
				return &Hit{
					Message:  fmt.Sprintf("identity reported by %d unrelated organizations", c.ClientCount),
					Metadata: map[string]any{"client_count": c.ClientCount},
				}
			},
		},
		{
			Name:     "consortium_critical_record",
			Category: CategoryConsortium,
			Severity: domain.SeverityCritical,
			Score:    45,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				c := rc.Consortium
				if c == nil || !c.Matched || !c.RiskLevel.AtLeast(domain.RiskCritical) {
					return nil
				}
				return &Hit{
					Message:    "identity carries a critical network risk record",
					Confidence: confidence(0.9),
				}
			},
		},
		{
			Name:     "consortium_multi_fraud_types",
			Category: CategoryConsortium,
			Severity: domain.SeverityMedium,
			Score:    25,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				c := rc.Consortium
				if c == nil || !c.Matched || len(c.FraudTypes) < 2 {
					return nil
				}
				return &Hit{
					Message:  fmt.Sprintf("identity tied to %d distinct fraud patterns in the network", len(c.FraudTypes)),
					Metadata: map[string]any{"fraud_types": c.FraudTypes},
				}
			},
		},
		{
			Name:     "consortium_wide_reporting",
			Category: CategoryConsortium,
			Severity: domain.SeverityCritical,
			Score:    45,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				c := rc.Consortium
				if c == nil || c.ClientCount < 5 {
					return nil
				}
				return &Hit{
					Message:    fmt.Sprintf("identity reported by %d organizations", c.ClientCount),
					Confidence: confidence(0.9),
					Metadata:   map[string]any{"client_count": c.ClientCount},
				}
			},
		},
		{
			Name:     "consortium_moderate_exposure",
			Category: CategoryConsortium,
			Severity: domain.SeverityMedium,
			Score:    20,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				c := rc.Consortium
				if c == nil || !c.Matched || hasAlert(c, "high_exposure") {
					return nil
				}
				if c.TotalAmount < 1000000 {
					return nil
				}
				return &Hit{
					Message:  fmt.Sprintf("network exposure tied to this identity totals %.0f", c.TotalAmount),
					Metadata: map[string]any{"total_amount": c.TotalAmount},
				}
			},
		},
	}
}

func hasAlert(c *domain.ConsortiumSummary, alert string) bool {
	for _, a := range c.Alerts {
		if a == alert {
			return true
		}
	}
	return false
}

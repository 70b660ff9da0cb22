package rules

import (
	"fmt"
	"math"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

// lendingRules covers loan stacking and application fraud.
func lendingRules() []Rule {
	lending := only(domain.VerticalLending)
	return []Rule{
		{
			Name:      "loan_stacking_consortium",
			Category:  CategoryLending,
			Severity:  domain.SeverityCritical,
			Score:     65,
			Verticals: lending,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				c := rc.Consortium
				if c == nil || !hasAlert(c, "loan_stacking_pattern") {
					return nil
				}
				return &Hit{
					Message:    fmt.Sprintf("identity reported by %d lenders in the network", c.ClientCount),
					Confidence: confidence(0.9),
					Metadata:   map[string]any{"client_count": c.ClientCount},
				}
			},
		},
		{
			Name:      "loan_stacking_active",
			Category:  CategoryLending,
			Severity:  domain.SeverityCritical,
			Score:     60,
			Verticals: lending,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				c := rc.Consortium
				if c == nil || c.StackingTenants < 3 {
					return nil
				}
				return &Hit{
					Message:    fmt.Sprintf("same identity applied at %d other lenders this week", c.StackingTenants),
					Confidence: confidence(0.85),
					Metadata:   map[string]any{"lender_count": c.StackingTenants, "sample": c.StackingSample},
				}
			},
		},
		{
			Name:      "loan_stacking_emerging",
			Category:  CategoryLending,
			Severity:  domain.SeverityMedium,
			Score:     25,
			Verticals: lending,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				c := rc.Consortium
				if c == nil || c.StackingTenants < 1 || c.StackingTenants >= 3 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("identity seen at %d other lenders this week", c.StackingTenants)}
			},
		},
		{
			Name:      "repeat_applications_24h",
			Category:  CategoryLending,
			Severity:  domain.SeverityHigh,
			Score:     30,
			Verticals: lending,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if rc.Count24h < 3 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("%d loan applications from this user in 24 hours", rc.Count24h)}
			},
		},
		{
			Name:      "round_amount_application",
			Category:  CategoryLending,
			Severity:  domain.SeverityLow,
			Score:     8,
			Verticals: lending,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if tx.Amount < 100000 || math.Mod(tx.Amount, 100000) != 0 {
					return nil
				}
				return &Hit{Message: "application for an exactly round large amount"}
			},
		},
		{
			Name:      "new_borrower_max_ticket",
			Category:  CategoryLending,
			Severity:  domain.SeverityHigh,
			Score:     35,
			Verticals: lending,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				age := tx.Enrichment.AccountAgeDays
				if age == nil || *age > 14 || tx.Amount < 500000 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("borrower %d days old requesting %.0f", *age, tx.Amount)}
			},
		},
		{
			Name:      "rapid_reapplication",
			Category:  CategoryLending,
			Severity:  domain.SeverityHigh,
			Score:     28,
			Verticals: lending,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if rc.Count1h < 2 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("%d applications within the hour", rc.Count1h)}
			},
		},
		{
			Name:      "first_day_loan_application",
			Category:  CategoryLending,
			Severity:  domain.SeverityHigh,
			Score:     35,
			Verticals: lending,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				age := tx.Enrichment.AccountAgeDays
				if age == nil || *age > 0 {
					return nil
				}
				return &Hit{
					Message:    "loan application on the day the account was created",
					Confidence: confidence(0.75),
				}
			},
		},
		{
			Name:      "serial_borrower_device",
			Category:  CategoryLending,
			Severity:  domain.SeverityMedium,
			Score:     25,
			Verticals: lending,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				age := tx.Enrichment.AccountAgeDays
				if age == nil || *age > 30 || rc.DeviceUserCount < 2 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("young borrower applying from a device tied to %d accounts", rc.DeviceUserCount)}
			},
		},
		{
			Name:      "fraud_history_loan",
			Category:  CategoryLending,
			Severity:  domain.SeverityCritical,
			Score:     55,
			Verticals: lending,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				c := rc.Consortium
				if c == nil || !c.Matched {
					return nil
				}
				for _, ft := range c.FraudTypes {
					if ft == "loan_stacking" || ft == "loan_default_fraud" {
						return &Hit{
							Message:  "identity tied to prior lending fraud in the network",
							Metadata: map[string]any{"fraud_type": ft},
						}
					}
				}
				return nil
			},
		},
	}
}

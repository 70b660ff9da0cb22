package rules

import (
	"fmt"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

// fintechRules covers wallet-to-wallet and P2P transfer patterns.
func fintechRules() []Rule {
	fintech := only(domain.VerticalFintech, domain.VerticalPayments)
	return []Rule{
		{
			Name:      "transfer_fan_out",
			Category:  CategoryBehavior,
			Severity:  domain.SeverityHigh,
			Score:     32,
			Verticals: fintech,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if tx.Type != "transfer" || rc.Count10m < 6 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("%d outbound transfers in 10 minutes", rc.Count10m)}
			},
		},
		{
			Name:      "deposit_withdraw_passthrough",
			Category:  CategoryBehavior,
			Severity:  domain.SeverityHigh,
			Score:     30,
			Verticals: fintech,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				// Money in and straight back out with nothing held.
				if tx.Type != "withdrawal" || rc.Count10m < 2 || tx.Amount < 100000 {
					return nil
				}
				return &Hit{Message: "large withdrawal minutes after inbound funds"}
			},
		},
		{
			Name:      "withdrawal_burst",
			Category:  CategoryBehavior,
			Severity:  domain.SeverityMedium,
			Score:     20,
			Verticals: fintech,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if tx.Type != "withdrawal" || rc.Count1h < 4 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("%d withdrawals within an hour", rc.Count1h)}
			},
		},
		{
			Name:      "dormant_account_reactivation",
			Category:  CategoryTakeover,
			Severity:  domain.SeverityMedium,
			Score:     20,
			Verticals: fintech,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				age := tx.Enrichment.AccountAgeDays
				if age == nil || *age < 180 || rc.Count24h != 1 || tx.Amount < 200000 {
					return nil
				}
				// Old account, no recent activity, suddenly moving big money.
				return &Hit{Message: fmt.Sprintf("%d-day-old dormant account moving %.0f", *age, tx.Amount)}
			},
		},
		{
			Name:      "p2p_new_device_transfer",
			Category:  CategoryDevice,
			Severity:  domain.SeverityMedium,
			Score:     18,
			Verticals: fintech,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if tx.Type != "transfer" || tx.Amount < 150000 {
					return nil
				}
				if tx.Enrichment.DeviceFingerprint == "" || rc.DeviceUserCount != 1 || rc.Count24h > 1 {
					return nil
				}
				return &Hit{Message: "large transfer from a first-seen device"}
			},
		},
	}
}

// amlRules covers structuring patterns. Applies everywhere money moves. The
// bands scale from the vertical policy's AML threshold so the reporting line
// can be tuned without touching rule code.
func amlRules() []Rule {
	return []Rule{
		{
			Name:     "threshold_structuring",
			Category: CategoryBehavior,
			Severity: domain.SeverityHigh,
			Score:    35,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				// Amounts parked just under the reporting line.
				line := amlLine(rc)
				if tx.Amount < 0.9*line || tx.Amount >= line {
					return nil
				}
				if rc.Count24h < 2 {
					return nil
				}
				return &Hit{
					Message:    fmt.Sprintf("repeated amounts just under the reporting threshold (%.0f)", tx.Amount),
					Confidence: confidence(0.75),
					Metadata:   map[string]any{"reporting_line": line},
				}
			},
		},
		{
			Name:     "structuring_with_burst",
			Category: CategoryBehavior,
			Severity: domain.SeverityCritical,
			Score:    50,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				// Sub-threshold amounts fired rapidly leave little room for a
				// benign reading.
				line := amlLine(rc)
				if tx.Amount < 0.9*line || tx.Amount >= line || rc.Count1h < 3 {
					return nil
				}
				return &Hit{
					Message:    fmt.Sprintf("%d sub-threshold movements within an hour", rc.Count1h),
					Confidence: confidence(0.85),
				}
			},
		},
		{
			Name:     "smurfing_pattern",
			Category: CategoryBehavior,
			Severity: domain.SeverityHigh,
			Score:    30,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				// Many mid-size movements in a day from one user.
				line := amlLine(rc)
				if tx.Amount < 0.05*line || tx.Amount > 0.5*line || rc.Count24h < 8 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("%d mid-size movements in 24 hours", rc.Count24h)}
			},
		},
		{
			Name:     "single_outsized_amount",
			Category: CategoryBehavior,
			Severity: domain.SeverityMedium,
			Score:    15,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if tx.Amount < 5*amlLine(rc) {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("single transaction of %.0f %s", tx.Amount, tx.Currency)}
			},
		},
	}
}

// amlLine returns the active reporting line, defaulting when no policy set
// one on the context.
func amlLine(rc *domain.RiskContext) float64 {
	if rc.AMLThreshold > 0 {
		return rc.AMLThreshold
	}
	return 1_000_000
}
